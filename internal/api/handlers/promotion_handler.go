package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/retailpoint/pos-rules-engine/internal/models"
	"github.com/retailpoint/pos-rules-engine/internal/repository"
)

// AdminStore is the administration surface's slice of the promotion store.
type AdminStore interface {
	CreatePromotion(ctx context.Context, p models.Promotion, rules []models.PromotionRule) (string, error)
	GetPromotion(ctx context.Context, id string) (*models.Promotion, error)
}

// CacheInvalidator drops cached reference data after admin writes. May be nil
// when no cache is configured.
type CacheInvalidator interface {
	InvalidateStore(ctx context.Context, storeID string)
}

type PromotionHandler struct {
	store AdminStore
	cache CacheInvalidator
	log   zerolog.Logger
}

func NewPromotionHandler(store AdminStore, cache CacheInvalidator, log zerolog.Logger) *PromotionHandler {
	return &PromotionHandler{store: store, cache: cache, log: log}
}

type CreatePromotionRequest struct {
	StoreID           string               `json:"store_id"`
	Name              string               `json:"name"`
	Type              models.PromotionType `json:"type"`
	Value             decimal.Decimal      `json:"value"`
	MinOrderAmount    decimal.Decimal      `json:"min_order_amount"`
	MaxDiscountAmount decimal.Decimal      `json:"max_discount_amount"`
	UsageLimit        int                  `json:"usage_limit"`
	IsActive          bool                 `json:"is_active"`
	StartDate         time.Time            `json:"start_date"`
	EndDate           time.Time            `json:"end_date"`
	Rules             []CreateRuleRequest  `json:"rules"`
}

type CreateRuleRequest struct {
	Type        models.RuleType `json:"type"`
	ProductID   string          `json:"product_id,omitempty"`
	Category    string          `json:"category,omitempty"`
	BuyQuantity int             `json:"buy_quantity,omitempty"`
	GetQuantity int             `json:"get_quantity,omitempty"`
}

func (req CreatePromotionRequest) validate() error {
	if req.StoreID == "" || req.Name == "" {
		return errors.New("store_id and name are required")
	}
	switch req.Type {
	case models.PromotionPercentage, models.PromotionFixedAmount, models.PromotionBuyXGetY:
	default:
		return errors.New("unknown promotion type")
	}
	if req.Type != models.PromotionBuyXGetY && !req.Value.IsPositive() {
		return errors.New("value must be positive")
	}
	if req.Type == models.PromotionPercentage && req.Value.GreaterThan(decimal.NewFromInt(100)) {
		return errors.New("percentage value must not exceed 100")
	}
	if req.EndDate.Before(req.StartDate) {
		return errors.New("end_date precedes start_date")
	}
	if len(req.Rules) == 0 {
		return errors.New("at least one rule is required")
	}
	for _, r := range req.Rules {
		switch r.Type {
		case models.RuleAllProducts:
		case models.RuleProduct:
			if r.ProductID == "" {
				return errors.New("product rule requires product_id")
			}
		case models.RuleCategory:
			if r.Category == "" {
				return errors.New("category rule requires category")
			}
		default:
			return errors.New("unknown rule type")
		}
		if req.Type == models.PromotionBuyXGetY && (r.BuyQuantity <= 0 || r.GetQuantity <= 0) {
			return errors.New("buy_x_get_y rules require positive buy_quantity and get_quantity")
		}
	}
	return nil
}

// Create handles POST /admin/promotions.
func (h *PromotionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePromotionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	promo := models.Promotion{
		StoreID:           req.StoreID,
		Name:              req.Name,
		Type:              req.Type,
		Value:             req.Value,
		MinOrderAmount:    req.MinOrderAmount,
		MaxDiscountAmount: req.MaxDiscountAmount,
		UsageLimit:        req.UsageLimit,
		IsActive:          req.IsActive,
		StartDate:         req.StartDate,
		EndDate:           req.EndDate,
	}
	rules := make([]models.PromotionRule, 0, len(req.Rules))
	for _, rr := range req.Rules {
		rules = append(rules, models.PromotionRule{
			Type:        rr.Type,
			ProductID:   rr.ProductID,
			Category:    rr.Category,
			BuyQuantity: rr.BuyQuantity,
			GetQuantity: rr.GetQuantity,
		})
	}

	id, err := h.store.CreatePromotion(r.Context(), promo, rules)
	if err != nil {
		h.log.Error().Err(err).Msg("create promotion")
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	if h.cache != nil {
		h.cache.InvalidateStore(r.Context(), req.StoreID)
	}

	writeJSON(w, http.StatusCreated, map[string]string{"promotion_id": id})
}

// Get handles GET /admin/promotions/{id}.
func (h *PromotionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := h.store.GetPromotion(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		h.log.Error().Err(err).Str("promotion_id", id).Msg("get promotion")
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	writeJSON(w, http.StatusOK, p)
}
