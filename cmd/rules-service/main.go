package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/retailpoint/pos-rules-engine/internal/api"
	"github.com/retailpoint/pos-rules-engine/internal/api/handlers"
	"github.com/retailpoint/pos-rules-engine/internal/api/middleware"
	"github.com/retailpoint/pos-rules-engine/internal/cache"
	"github.com/retailpoint/pos-rules-engine/internal/events"
	"github.com/retailpoint/pos-rules-engine/internal/promo"
	"github.com/retailpoint/pos-rules-engine/internal/repository"
	"github.com/retailpoint/pos-rules-engine/internal/risk"
	"github.com/retailpoint/pos-rules-engine/migrations"
	"github.com/retailpoint/pos-rules-engine/pkg/db"
)

func main() {
	_ = godotenv.Load()

	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "rules-service").Logger()

	conn, err := db.NewPostgresConnection(db.LoadPostgresConfig())
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	defer conn.Close()

	if err := migrations.Migrate(conn); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	promoRepo := repository.NewPromotionRepo(conn)
	historyRepo := repository.NewHistoryRepo(conn)

	var store promo.PromotionStore = promoRepo
	var invalidator handlers.CacheInvalidator
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		promoCache := cache.NewPromotionCache(promoRepo, rdb, 30*time.Second, log)
		store = promoCache
		invalidator = promoCache
	}

	var publisher *events.Publisher
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		topic := os.Getenv("KAFKA_AUDIT_TOPIC")
		if topic == "" {
			topic = "pos-rules-audit"
		}
		writer := events.NewWriter(strings.Split(brokers, ","), topic)
		defer writer.Close()
		publisher = events.NewPublisher(writer, log)
	}

	promoEngine := promo.NewEngine(store, log)
	riskEngine := risk.NewEngine(historyRepo, log)

	router := api.NewRouter(api.Deps{
		Evaluate:  handlers.NewEvaluateHandler(promoEngine, riskEngine, publisher, 5*time.Second, log),
		Checkout:  handlers.NewCheckoutHandler(promoRepo, publisher, log),
		Promotion: handlers.NewPromotionHandler(promoRepo, invalidator, log),
		RateLimit: rate.Limit(100),
		RateBurst: 200,
	})

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:         addr,
		Handler:      middleware.Logger(log)(router),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt)
		<-c
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("server shutdown")
		}
		close(idleConnsClosed)
	}()

	log.Info().Str("addr", addr).Msg("starting rules-service")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("listen")
	}

	<-idleConnsClosed
	log.Info().Msg("server stopped")
}
