package promo

import (
	"testing"

	"github.com/retailpoint/pos-rules-engine/internal/models"
)

func TestFreeUnitsCheapestFirst(t *testing.T) {
	// 3 eligible units priced 10, 5, 8; buy 2 get 1 -> one set -> the
	// cheapest unit (5) is freed.
	rule := models.PromotionRule{Type: models.RuleAllProducts, BuyQuantity: 2, GetQuantity: 1}
	lines := []models.CartLine{
		line("p1", "c1", 1, "10"),
		line("p2", "c1", 1, "5"),
		line("p3", "c1", 1, "8"),
	}

	discount, freed := freeUnitsDiscount(rule, lines)
	if !discount.Equal(dec("5")) {
		t.Fatalf("discount=%s, expected 5", discount)
	}
	if len(freed) != 1 || freed[0].ProductID != "p2" || freed[0].Quantity != 1 {
		t.Fatalf("freed=%+v, expected one unit of p2", freed)
	}
}

func TestFreeUnitsEqualPricesKeepCartOrder(t *testing.T) {
	rule := models.PromotionRule{Type: models.RuleAllProducts, BuyQuantity: 2, GetQuantity: 1}
	lines := []models.CartLine{
		line("first", "c1", 1, "5"),
		line("second", "c1", 1, "5"),
		line("third", "c1", 1, "5"),
	}

	_, freed := freeUnitsDiscount(rule, lines)
	if len(freed) != 1 || freed[0].ProductID != "first" {
		t.Fatalf("freed=%+v, expected the tie to break on cart order", freed)
	}
}

func TestFreeUnitsSpanMultipleLines(t *testing.T) {
	// 8 eligible units, buy 2 get 2 -> 4 sets -> 8 free units requested but
	// capped at what each line holds; everything ends up free.
	rule := models.PromotionRule{Type: models.RuleAllProducts, BuyQuantity: 2, GetQuantity: 2}
	lines := []models.CartLine{
		line("p1", "c1", 5, "4"),
		line("p2", "c1", 3, "2"),
	}

	discount, _ := freeUnitsDiscount(rule, lines)
	// cheapest first: 3x2 + 5x4 = 26
	if !discount.Equal(dec("26")) {
		t.Fatalf("discount=%s, expected 26", discount)
	}
}

func TestFreeUnitsRespectLineQuantityCap(t *testing.T) {
	rule := models.PromotionRule{Type: models.RuleAllProducts, BuyQuantity: 3, GetQuantity: 2}
	lines := []models.CartLine{
		line("cheap", "c1", 1, "1"),
		line("mid", "c1", 5, "10"),
	}

	// 6 units -> 2 sets -> 4 free: 1 from "cheap" (all it holds), 3 from "mid"
	discount, freed := freeUnitsDiscount(rule, lines)
	if !discount.Equal(dec("31")) {
		t.Fatalf("discount=%s, expected 31", discount)
	}
	if len(freed) != 2 || freed[0].Quantity != 1 || freed[1].Quantity != 3 {
		t.Fatalf("freed=%+v, expected 1 cheap unit then 3 mid units", freed)
	}
}

func TestFreeUnitsRuleScopedEligibility(t *testing.T) {
	rule := models.PromotionRule{Type: models.RuleCategory, Category: "snacks", BuyQuantity: 2, GetQuantity: 1}
	lines := []models.CartLine{
		line("p1", "snacks", 2, "10"),
		line("p2", "drinks", 10, "1"), // ineligible, must not be freed
	}

	discount, freed := freeUnitsDiscount(rule, lines)
	if !discount.Equal(dec("10")) {
		t.Fatalf("discount=%s, expected 10 from the snacks line", discount)
	}
	for _, f := range freed {
		if f.Category != "snacks" {
			t.Fatalf("freed ineligible line %+v", f)
		}
	}
}

func TestFreeUnitsNotEnoughForASet(t *testing.T) {
	rule := models.PromotionRule{Type: models.RuleAllProducts, BuyQuantity: 5, GetQuantity: 1}
	lines := []models.CartLine{line("p1", "c1", 4, "10")}

	if discount, _ := freeUnitsDiscount(rule, lines); !discount.IsZero() {
		t.Fatalf("discount=%s, expected zero below one full set", discount)
	}
}

func TestMultipleBxgyRulesAccumulate(t *testing.T) {
	e := newTestEngine(nil)
	p := activePromotion("s1", models.PromotionBuyXGetY, "0")
	rules := []models.PromotionRule{
		{Type: models.RuleCategory, Category: "snacks", BuyQuantity: 2, GetQuantity: 1},
		{Type: models.RuleCategory, Category: "drinks", BuyQuantity: 2, GetQuantity: 1},
	}
	lines := []models.CartLine{
		line("p1", "snacks", 2, "10"),
		line("p2", "drinks", 2, "4"),
	}

	discount, _ := e.ComputeDiscount(p, rules, lines, testWindow.now)
	if !discount.Equal(dec("14")) {
		t.Fatalf("discount=%s, expected 10+4 across independent rules", discount)
	}
}
