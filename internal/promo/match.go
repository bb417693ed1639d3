package promo

import "github.com/retailpoint/pos-rules-engine/internal/models"

// Rule matching is disjunctive: a promotion is eligible when any one of its
// rules matches the cart.

func anyRuleMatches(rules []models.PromotionRule, lines []models.CartLine) bool {
	for _, r := range rules {
		if ruleMatches(r, lines) {
			return true
		}
	}
	return false
}

func ruleMatches(r models.PromotionRule, lines []models.CartLine) bool {
	switch r.Type {
	case models.RuleAllProducts:
		return true
	case models.RuleProduct:
		for _, l := range lines {
			if l.ProductID == r.ProductID {
				return true
			}
		}
	case models.RuleCategory:
		for _, l := range lines {
			if l.Category == r.Category {
				return true
			}
		}
	}
	return false
}

// eligibleLines returns the cart lines a single rule covers, preserving cart
// order.
func eligibleLines(r models.PromotionRule, lines []models.CartLine) []models.CartLine {
	var out []models.CartLine
	for _, l := range lines {
		switch r.Type {
		case models.RuleAllProducts:
			out = append(out, l)
		case models.RuleProduct:
			if l.ProductID == r.ProductID {
				out = append(out, l)
			}
		case models.RuleCategory:
			if l.Category == r.Category {
				out = append(out, l)
			}
		}
	}
	return out
}
