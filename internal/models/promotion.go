package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PromotionType string

const (
	PromotionPercentage  PromotionType = "percentage"
	PromotionFixedAmount PromotionType = "fixed_amount"
	PromotionBuyXGetY    PromotionType = "buy_x_get_y"
)

type RuleType string

const (
	RuleAllProducts RuleType = "all_products"
	RuleProduct     RuleType = "product"
	RuleCategory    RuleType = "category"
)

type Promotion struct {
	ID                string          `json:"id"`
	StoreID           string          `json:"store_id"`
	Name              string          `json:"name"`
	Type              PromotionType   `json:"type"`
	Value             decimal.Decimal `json:"value"`
	MinOrderAmount    decimal.Decimal `json:"min_order_amount"`    // zero means no minimum
	MaxDiscountAmount decimal.Decimal `json:"max_discount_amount"` // zero means no cap
	UsageLimit        int             `json:"usage_limit"`         // zero means unlimited
	UsageCount        int             `json:"usage_count"`
	IsActive          bool            `json:"is_active"`
	StartDate         time.Time       `json:"start_date"`
	EndDate           time.Time       `json:"end_date"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// ActiveAt reports whether the promotion may be applied at the given instant:
// the active flag is set, the instant falls inside [StartDate, EndDate], and
// the usage limit (if any) has not been reached.
func (p Promotion) ActiveAt(now time.Time) bool {
	if !p.IsActive {
		return false
	}
	if now.Before(p.StartDate) || now.After(p.EndDate) {
		return false
	}
	if p.UsageLimit > 0 && p.UsageCount >= p.UsageLimit {
		return false
	}
	return true
}

// PromotionRule selects which cart contents its promotion covers. Matching
// any one of a promotion's rules makes the promotion eligible.
type PromotionRule struct {
	ID          string   `json:"id"`
	PromotionID string   `json:"promotion_id"`
	Type        RuleType `json:"type"`
	ProductID   string   `json:"product_id,omitempty"` // set when Type is product
	Category    string   `json:"category,omitempty"`   // set when Type is category
	BuyQuantity int      `json:"buy_quantity,omitempty"`
	GetQuantity int      `json:"get_quantity,omitempty"`
}

// PromotionUsage is an immutable fact recorded once per successful
// application at checkout commit.
type PromotionUsage struct {
	ID             string          `json:"id"`
	PromotionID    string          `json:"promotion_id"`
	CustomerID     string          `json:"customer_id,omitempty"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	UsedAt         time.Time       `json:"used_at"`
}

// AppliedPromotion records one promotion's contribution to a transaction.
type AppliedPromotion struct {
	PromotionID    string          `json:"promotion_id"`
	Name           string          `json:"name"`
	Type           PromotionType   `json:"type"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
}

type PromotionResult struct {
	TotalDiscount decimal.Decimal    `json:"total_discount"`
	Applied       []AppliedPromotion `json:"applied"`
}
