package promo

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/retailpoint/pos-rules-engine/internal/models"
)

// freeUnitsDiscount computes one buy-X-get-Y rule's contribution: the cart
// qualifies floor(eligibleQty / buyQty) sets, each granting getQty free
// units. Free units are taken cheapest unit price first — a stable sort, so
// equal prices keep cart order — which keeps the grant in the merchant's
// favor and pins down exactly which units are free. Returns the discount and
// the lines free units were taken from.
func freeUnitsDiscount(r models.PromotionRule, lines []models.CartLine) (decimal.Decimal, []models.CartLine) {
	eligible := eligibleLines(r, lines)
	if len(eligible) == 0 {
		return decimal.Zero, nil
	}

	totalQty := 0
	for _, l := range eligible {
		totalQty += l.Quantity
	}
	sets := totalQty / r.BuyQuantity
	if sets == 0 {
		return decimal.Zero, nil
	}
	free := sets * r.GetQuantity

	sorted := make([]models.CartLine, len(eligible))
	copy(sorted, eligible)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UnitPrice.LessThan(sorted[j].UnitPrice)
	})

	discount := decimal.Zero
	var consumed []models.CartLine
	for _, l := range sorted {
		if free == 0 {
			break
		}
		take := l.Quantity
		if take > free {
			take = free
		}
		discount = discount.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(take))))
		consumed = append(consumed, models.CartLine{
			ProductID: l.ProductID,
			Category:  l.Category,
			Quantity:  take,
			UnitPrice: l.UnitPrice,
		})
		free -= take
	}
	return discount, consumed
}
