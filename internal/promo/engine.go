package promo

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/retailpoint/pos-rules-engine/internal/models"
)

// PromotionStore is the read side of promotion reference data. Implementations
// live in the repository and cache packages; the engine only reads through it.
type PromotionStore interface {
	ListActivePromotions(ctx context.Context, storeID string, now time.Time) ([]models.Promotion, error)
	ListRules(ctx context.Context, promotionID string) ([]models.PromotionRule, error)
}

// Engine evaluates promotions against a cart snapshot. It is a pure function
// of (snapshot, reference data): no internal state, no writes. Usage
// accounting is a separate operation owned by the checkout commit path.
type Engine struct {
	store PromotionStore
	log   zerolog.Logger
}

func NewEngine(store PromotionStore, log zerolog.Logger) *Engine {
	return &Engine{store: store, log: log}
}

// ApplicablePromotions returns every active promotion for the store whose
// rule set matches the cart and whose minimum order amount (if any) is met.
// A store lookup failure degrades to "no promotions apply" so checkout never
// blocks on promotion evaluation.
func (e *Engine) ApplicablePromotions(ctx context.Context, storeID string, lines []models.CartLine, now time.Time) ([]models.Promotion, error) {
	promos, err := e.store.ListActivePromotions(ctx, storeID, now)
	if err != nil {
		e.log.Warn().Err(err).Str("store_id", storeID).Msg("promotion lookup failed, treating as none applicable")
		return nil, nil
	}

	subtotal := cartSubtotal(lines)
	var applicable []models.Promotion
	for _, p := range promos {
		if !p.ActiveAt(now) {
			continue
		}
		if p.MinOrderAmount.IsPositive() && subtotal.LessThan(p.MinOrderAmount) {
			continue
		}
		rules, err := e.store.ListRules(ctx, p.ID)
		if err != nil {
			e.log.Warn().Err(err).Str("promotion_id", p.ID).Msg("rule lookup failed, skipping promotion")
			continue
		}
		if anyRuleMatches(rules, lines) {
			applicable = append(applicable, p)
		}
	}
	return applicable, nil
}

// ComputeDiscount returns the discount one promotion grants over the cart,
// and the lines it covered. An inactive promotion or one whose rules never
// match yields a zero discount, not an error.
func (e *Engine) ComputeDiscount(p models.Promotion, rules []models.PromotionRule, lines []models.CartLine, now time.Time) (decimal.Decimal, []models.CartLine) {
	if !p.ActiveAt(now) || !anyRuleMatches(rules, lines) {
		return decimal.Zero, nil
	}

	subtotal := cartSubtotal(lines)
	var discount decimal.Decimal
	var covered []models.CartLine

	switch p.Type {
	case models.PromotionPercentage:
		discount = subtotal.Mul(p.Value).Div(decimal.NewFromInt(100))
		covered = lines
	case models.PromotionFixedAmount:
		discount = p.Value
		covered = lines
	case models.PromotionBuyXGetY:
		for _, r := range rules {
			if r.BuyQuantity <= 0 || r.GetQuantity <= 0 {
				e.log.Warn().Str("promotion_id", p.ID).Str("rule_id", r.ID).Msg("buy_x_get_y rule missing quantities, skipped")
				continue
			}
			d, freed := freeUnitsDiscount(r, lines)
			discount = discount.Add(d)
			covered = append(covered, freed...)
		}
	default:
		e.log.Warn().Str("promotion_id", p.ID).Str("type", string(p.Type)).Msg("unknown promotion type, no discount")
		return decimal.Zero, nil
	}

	if p.MaxDiscountAmount.IsPositive() && discount.GreaterThan(p.MaxDiscountAmount) {
		discount = p.MaxDiscountAmount
	}
	// The legacy engine let percentage and fixed discounts exceed the
	// purchase; clamping to the subtotal keeps the ledger non-negative.
	if (p.Type == models.PromotionPercentage || p.Type == models.PromotionFixedAmount) && discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	return discount, covered
}

// ApplyPromotions evaluates every applicable promotion for the snapshot
// independently and sums their discounts. All eligible promotions stack;
// there is no best-only or mutual-exclusion policy. Usage counters are not
// touched here.
func (e *Engine) ApplyPromotions(ctx context.Context, snap models.CartSnapshot) (models.PromotionResult, error) {
	now := snap.Timestamp
	if now.IsZero() {
		now = time.Now().UTC()
	}

	result := models.PromotionResult{TotalDiscount: decimal.Zero, Applied: []models.AppliedPromotion{}}

	promos, err := e.ApplicablePromotions(ctx, snap.StoreID, snap.Lines, now)
	if err != nil {
		return result, err
	}

	for _, p := range promos {
		rules, err := e.store.ListRules(ctx, p.ID)
		if err != nil {
			e.log.Warn().Err(err).Str("promotion_id", p.ID).Msg("rule lookup failed, skipping promotion")
			continue
		}
		discount, _ := e.ComputeDiscount(p, rules, snap.Lines, now)
		if discount.IsZero() {
			continue
		}
		result.TotalDiscount = result.TotalDiscount.Add(discount)
		result.Applied = append(result.Applied, models.AppliedPromotion{
			PromotionID:    p.ID,
			Name:           p.Name,
			Type:           p.Type,
			DiscountAmount: discount,
		})
	}
	return result, nil
}

func cartSubtotal(lines []models.CartLine) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Total())
	}
	return sum
}
