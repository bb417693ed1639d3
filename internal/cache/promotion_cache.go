package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"github.com/retailpoint/pos-rules-engine/internal/models"
	"github.com/retailpoint/pos-rules-engine/internal/promo"
)

// PromotionCache is a Redis read-through in front of a PromotionStore.
// Entries carry a short TTL; the active-promotion list is cached per store
// without the `now` argument, so staleness is bounded by the TTL — fine for
// reference data that changes through the admin surface. Any Redis failure
// falls back to the inner store.
type PromotionCache struct {
	inner promo.PromotionStore
	rdb   *redis.Client
	ttl   time.Duration
	log   zerolog.Logger
}

func NewPromotionCache(inner promo.PromotionStore, rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *PromotionCache {
	return &PromotionCache{inner: inner, rdb: rdb, ttl: ttl, log: log}
}

func storeKey(storeID string) string     { return "promo:active:" + storeID }
func rulesKey(promotionID string) string { return "promo:rules:" + promotionID }

func (c *PromotionCache) ListActivePromotions(ctx context.Context, storeID string, now time.Time) ([]models.Promotion, error) {
	key := storeKey(storeID)
	if raw, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var promos []models.Promotion
		if err := json.Unmarshal(raw, &promos); err == nil {
			return promos, nil
		}
		c.log.Warn().Str("key", key).Msg("corrupt cache entry, refetching")
	} else if err != redis.Nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
	}

	promos, err := c.inner.ListActivePromotions(ctx, storeID, now)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, promos)
	return promos, nil
}

func (c *PromotionCache) ListRules(ctx context.Context, promotionID string) ([]models.PromotionRule, error) {
	key := rulesKey(promotionID)
	if raw, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var rules []models.PromotionRule
		if err := json.Unmarshal(raw, &rules); err == nil {
			return rules, nil
		}
		c.log.Warn().Str("key", key).Msg("corrupt cache entry, refetching")
	} else if err != redis.Nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
	}

	rules, err := c.inner.ListRules(ctx, promotionID)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, rules)
	return rules, nil
}

// InvalidateStore drops the cached active list for a store. Called after
// admin writes.
func (c *PromotionCache) InvalidateStore(ctx context.Context, storeID string) {
	if err := c.rdb.Del(ctx, storeKey(storeID)).Err(); err != nil {
		c.log.Warn().Err(err).Str("store_id", storeID).Msg("cache invalidation failed")
	}
}

func (c *PromotionCache) set(ctx context.Context, key string, v interface{}) {
	raw, err := json.Marshal(v)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache encode failed")
		return
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}
