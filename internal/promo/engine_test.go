package promo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/retailpoint/pos-rules-engine/internal/models"
	"github.com/retailpoint/pos-rules-engine/internal/repository"
)

var testWindow = struct {
	start, end, now time.Time
}{
	start: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	end:   time.Date(2026, 12, 31, 23, 59, 59, 0, time.UTC),
	now:   time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC),
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func activePromotion(storeID string, typ models.PromotionType, value string) models.Promotion {
	return models.Promotion{
		StoreID:   storeID,
		Name:      "test promo",
		Type:      typ,
		Value:     dec(value),
		IsActive:  true,
		StartDate: testWindow.start,
		EndDate:   testWindow.end,
	}
}

func line(product, category string, qty int, price string) models.CartLine {
	return models.CartLine{ProductID: product, Category: category, Quantity: qty, UnitPrice: dec(price)}
}

func newTestEngine(store PromotionStore) *Engine {
	return NewEngine(store, zerolog.Nop())
}

func TestApplicablePromotionsMinOrderAmount(t *testing.T) {
	store := repository.NewMemoryStore()
	p := activePromotion("s1", models.PromotionPercentage, "10")
	p.MinOrderAmount = dec("100")
	store.AddPromotion(p, []models.PromotionRule{{Type: models.RuleAllProducts}})

	e := newTestEngine(store)

	// subtotal 80 < 100: not applicable
	promos, err := e.ApplicablePromotions(context.Background(), "s1", []models.CartLine{line("p1", "c1", 4, "20")}, testWindow.now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(promos) != 0 {
		t.Fatalf("expected no applicable promotions, got %d", len(promos))
	}

	// subtotal 120 >= 100: applicable
	promos, err = e.ApplicablePromotions(context.Background(), "s1", []models.CartLine{line("p1", "c1", 6, "20")}, testWindow.now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(promos) != 1 {
		t.Fatalf("expected 1 applicable promotion, got %d", len(promos))
	}
}

func TestApplicablePromotionsRuleMatching(t *testing.T) {
	tests := []struct {
		name  string
		rules []models.PromotionRule
		lines []models.CartLine
		want  bool
	}{
		{
			name:  "all_products always matches",
			rules: []models.PromotionRule{{Type: models.RuleAllProducts}},
			lines: []models.CartLine{line("p1", "c1", 1, "10")},
			want:  true,
		},
		{
			name:  "product match",
			rules: []models.PromotionRule{{Type: models.RuleProduct, ProductID: "p2"}},
			lines: []models.CartLine{line("p1", "c1", 1, "10"), line("p2", "c1", 1, "10")},
			want:  true,
		},
		{
			name:  "product no match",
			rules: []models.PromotionRule{{Type: models.RuleProduct, ProductID: "p9"}},
			lines: []models.CartLine{line("p1", "c1", 1, "10")},
			want:  false,
		},
		{
			name:  "category match",
			rules: []models.PromotionRule{{Type: models.RuleCategory, Category: "snacks"}},
			lines: []models.CartLine{line("p1", "snacks", 1, "10")},
			want:  true,
		},
		{
			name: "disjunction: one matching rule suffices",
			rules: []models.PromotionRule{
				{Type: models.RuleProduct, ProductID: "p9"},
				{Type: models.RuleCategory, Category: "snacks"},
			},
			lines: []models.CartLine{line("p1", "snacks", 1, "10")},
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := repository.NewMemoryStore()
			store.AddPromotion(activePromotion("s1", models.PromotionPercentage, "10"), tt.rules)

			promos, err := newTestEngine(store).ApplicablePromotions(context.Background(), "s1", tt.lines, testWindow.now)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := len(promos) == 1; got != tt.want {
				t.Fatalf("applicable=%v, expected %v", got, tt.want)
			}
		})
	}
}

func TestComputeDiscountPercentage(t *testing.T) {
	e := newTestEngine(repository.NewMemoryStore())
	rules := []models.PromotionRule{{Type: models.RuleAllProducts}}
	lines := []models.CartLine{line("p1", "c1", 2, "100")} // subtotal 200

	p := activePromotion("s1", models.PromotionPercentage, "10")
	got, _ := e.ComputeDiscount(p, rules, lines, testWindow.now)
	if !got.Equal(dec("20")) {
		t.Fatalf("discount=%s, expected 20", got)
	}

	p.MaxDiscountAmount = dec("15")
	got, _ = e.ComputeDiscount(p, rules, lines, testWindow.now)
	if !got.Equal(dec("15")) {
		t.Fatalf("capped discount=%s, expected 15", got)
	}
}

func TestComputeDiscountFixedAmountClampedToSubtotal(t *testing.T) {
	e := newTestEngine(repository.NewMemoryStore())
	rules := []models.PromotionRule{{Type: models.RuleAllProducts}}
	lines := []models.CartLine{line("p1", "c1", 1, "30")}

	p := activePromotion("s1", models.PromotionFixedAmount, "50")
	got, _ := e.ComputeDiscount(p, rules, lines, testWindow.now)
	if !got.Equal(dec("30")) {
		t.Fatalf("discount=%s, expected clamp to subtotal 30", got)
	}
}

func TestComputeDiscountInactivePromotionIsZero(t *testing.T) {
	e := newTestEngine(repository.NewMemoryStore())
	rules := []models.PromotionRule{{Type: models.RuleAllProducts}}
	lines := []models.CartLine{line("p1", "c1", 1, "30")}

	p := activePromotion("s1", models.PromotionPercentage, "10")
	p.IsActive = false
	if got, _ := e.ComputeDiscount(p, rules, lines, testWindow.now); !got.IsZero() {
		t.Fatalf("discount=%s, expected zero for inactive promotion", got)
	}

	expired := activePromotion("s1", models.PromotionPercentage, "10")
	if got, _ := e.ComputeDiscount(expired, rules, lines, testWindow.end.Add(time.Hour)); !got.IsZero() {
		t.Fatalf("discount=%s, expected zero outside validity window", got)
	}
}

func TestComputeDiscountIdempotent(t *testing.T) {
	e := newTestEngine(repository.NewMemoryStore())
	rules := []models.PromotionRule{{Type: models.RuleAllProducts, BuyQuantity: 2, GetQuantity: 1}}
	lines := []models.CartLine{line("p1", "c1", 2, "10"), line("p2", "c1", 1, "5")}
	p := activePromotion("s1", models.PromotionBuyXGetY, "0")

	first, _ := e.ComputeDiscount(p, rules, lines, testWindow.now)
	second, _ := e.ComputeDiscount(p, rules, lines, testWindow.now)
	if !first.Equal(second) {
		t.Fatalf("discounts differ across identical calls: %s vs %s", first, second)
	}
}

func TestApplyPromotionsStacksAllEligible(t *testing.T) {
	store := repository.NewMemoryStore()
	store.AddPromotion(activePromotion("s1", models.PromotionPercentage, "10"),
		[]models.PromotionRule{{Type: models.RuleAllProducts}})
	store.AddPromotion(activePromotion("s1", models.PromotionFixedAmount, "5"),
		[]models.PromotionRule{{Type: models.RuleCategory, Category: "c1"}})

	snap := models.CartSnapshot{
		StoreID:       "s1",
		Lines:         []models.CartLine{line("p1", "c1", 2, "100")}, // subtotal 200
		PaymentMethod: models.PaymentCard,
		Timestamp:     testWindow.now,
	}

	res, err := newTestEngine(store).ApplyPromotions(context.Background(), snap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Applied) != 2 {
		t.Fatalf("applied=%d, expected both promotions to stack", len(res.Applied))
	}
	if !res.TotalDiscount.Equal(dec("25")) { // 20 + 5
		t.Fatalf("total discount=%s, expected 25", res.TotalDiscount)
	}
	if res.TotalDiscount.IsNegative() {
		t.Fatal("total discount must never be negative")
	}
}

func TestApplyPromotionsSkipsExhaustedUsageLimit(t *testing.T) {
	store := repository.NewMemoryStore()
	p := activePromotion("s1", models.PromotionPercentage, "10")
	p.UsageLimit = 3
	p.UsageCount = 3
	store.AddPromotion(p, []models.PromotionRule{{Type: models.RuleAllProducts}})

	snap := models.CartSnapshot{
		StoreID:       "s1",
		Lines:         []models.CartLine{line("p1", "c1", 1, "100")},
		PaymentMethod: models.PaymentCash,
		Timestamp:     testWindow.now,
	}
	res, err := newTestEngine(store).ApplyPromotions(context.Background(), snap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Applied) != 0 || !res.TotalDiscount.IsZero() {
		t.Fatalf("expected exhausted promotion to be skipped, got %+v", res)
	}
}

func TestMalformedBuyXGetYRuleSkipped(t *testing.T) {
	e := newTestEngine(repository.NewMemoryStore())
	rules := []models.PromotionRule{
		{Type: models.RuleAllProducts}, // missing quantities
		{Type: models.RuleAllProducts, BuyQuantity: 2, GetQuantity: 1},
	}
	lines := []models.CartLine{line("p1", "c1", 3, "10")}
	p := activePromotion("s1", models.PromotionBuyXGetY, "0")

	// malformed rule contributes nothing; well-formed rule still grants a free unit
	got, _ := e.ComputeDiscount(p, rules, lines, testWindow.now)
	if !got.Equal(dec("10")) {
		t.Fatalf("discount=%s, expected 10 from the well-formed rule only", got)
	}
}

type failingStore struct{}

func (failingStore) ListActivePromotions(context.Context, string, time.Time) ([]models.Promotion, error) {
	return nil, errors.New("store down")
}

func (failingStore) ListRules(context.Context, string) ([]models.PromotionRule, error) {
	return nil, errors.New("store down")
}

func TestStoreFailureDegradesToNoDiscount(t *testing.T) {
	snap := models.CartSnapshot{
		StoreID:       "s1",
		Lines:         []models.CartLine{line("p1", "c1", 1, "100")},
		PaymentMethod: models.PaymentCash,
		Timestamp:     testWindow.now,
	}
	res, err := newTestEngine(failingStore{}).ApplyPromotions(context.Background(), snap)
	if err != nil {
		t.Fatalf("store failure must not surface: %v", err)
	}
	if !res.TotalDiscount.IsZero() || len(res.Applied) != 0 {
		t.Fatalf("expected empty result on store failure, got %+v", res)
	}
}
