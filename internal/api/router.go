package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"github.com/retailpoint/pos-rules-engine/internal/api/handlers"
	"github.com/retailpoint/pos-rules-engine/internal/api/middleware"
)

// Deps are the wired handlers the router mounts.
type Deps struct {
	Evaluate  *handlers.EvaluateHandler
	Checkout  *handlers.CheckoutHandler
	Promotion *handlers.PromotionHandler
	RateLimit rate.Limit // zero disables limiting
	RateBurst int
}

// NewRouter builds the HTTP router for the rules service.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Route("/evaluate", func(r chi.Router) {
		if d.RateLimit > 0 {
			r.Use(middleware.RateLimit(d.RateLimit, d.RateBurst))
		}
		r.Post("/", d.Evaluate.Evaluate)
		r.Post("/promotions", d.Evaluate.EvaluatePromotions)
		r.Post("/risk", d.Evaluate.EvaluateRisk)
	})

	r.Post("/checkout/commit", d.Checkout.Commit)

	r.Route("/admin", func(r chi.Router) {
		r.Post("/promotions", d.Promotion.Create)
		r.Get("/promotions/{id}", d.Promotion.Get)
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}
