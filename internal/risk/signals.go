package risk

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/retailpoint/pos-rules-engine/internal/models"
)

// HistoryStore is the read side of customer and stock history the signals
// consult. Lookups may be served from a replica; a few seconds of staleness
// is acceptable for an advisory score.
type HistoryStore interface {
	CountPriorTransactions(ctx context.Context, customerID string) (int, error)
	CountVoidsSince(ctx context.Context, customerID string, since time.Time) (int, error)
	CountTransactionsSince(ctx context.Context, customerID string, since time.Time) (int, error)
	GetStockLevels(ctx context.Context, productIDs []string) (map[string]int, error)
}

// Signal weights and trigger thresholds. These are deliberate hard constants:
// the score must stay auditable from this table alone.
const (
	weightHighValue         = 25
	weightCashOnlyLarge     = 20
	weightUnusualQuantity   = 15
	weightMultipleHighValue = 20
	weightSuspiciousPayment = 10
	weightUnusualTime       = 5
	weightFirstTimeCustomer = 10
	weightFrequentReturns   = 15
	weightRapidTransactions = 20
	weightLowStockItems     = 10
)

var (
	highValueThreshold     = decimal.NewFromInt(500)
	cashLargeThreshold     = decimal.NewFromInt(200)
	highValueItemThreshold = decimal.NewFromInt(100)
)

const (
	unusualQuantityThreshold = 50
	multipleHighValueCount   = 3
	frequentReturnsCount     = 3
	frequentReturnsWindow    = 30 * 24 * time.Hour
	rapidTransactionCount    = 3
	rapidTransactionWindow   = time.Hour
	lowStockFloor            = 10
)

// signal is one independent heuristic. eval returns fired, one reason
// string, and zero or more recommendations. An eval error means the signal
// could not be determined and is treated as not fired by the engine.
type signal struct {
	name   string
	weight int
	eval   func(ctx context.Context, snap models.CartSnapshot, total decimal.Decimal, h HistoryStore) (bool, string, []string, error)
}

// The fixed signal set, in reporting order.
func signalTable() []signal {
	return []signal{
		{
			name:   "highValueTransaction",
			weight: weightHighValue,
			eval: func(_ context.Context, _ models.CartSnapshot, total decimal.Decimal, _ HistoryStore) (bool, string, []string, error) {
				if total.GreaterThan(highValueThreshold) {
					return true, fmt.Sprintf("High value transaction: %s", total.StringFixed(2)),
						[]string{"Verify payment authorization"}, nil
				}
				return false, "", nil, nil
			},
		},
		{
			name:   "cashOnlyLargeTransaction",
			weight: weightCashOnlyLarge,
			eval: func(_ context.Context, snap models.CartSnapshot, total decimal.Decimal, _ HistoryStore) (bool, string, []string, error) {
				if snap.PaymentMethod == models.PaymentCash && total.GreaterThan(cashLargeThreshold) {
					return true, fmt.Sprintf("Large cash transaction: %s", total.StringFixed(2)),
						[]string{"Count cash carefully and check for counterfeit bills"}, nil
				}
				return false, "", nil, nil
			},
		},
		{
			name:   "unusualQuantity",
			weight: weightUnusualQuantity,
			eval: func(_ context.Context, snap models.CartSnapshot, _ decimal.Decimal, _ HistoryStore) (bool, string, []string, error) {
				if qty := snap.TotalQuantity(); qty > unusualQuantityThreshold {
					return true, fmt.Sprintf("Unusually large quantity: %d units", qty), nil, nil
				}
				return false, "", nil, nil
			},
		},
		{
			name:   "multipleHighValueItems",
			weight: weightMultipleHighValue,
			eval: func(_ context.Context, snap models.CartSnapshot, _ decimal.Decimal, _ HistoryStore) (bool, string, []string, error) {
				n := 0
				for _, l := range snap.Lines {
					if l.UnitPrice.GreaterThan(highValueItemThreshold) {
						n++
					}
				}
				if n >= multipleHighValueCount {
					return true, fmt.Sprintf("%d high-value items in one transaction", n),
						[]string{"Check items against receipt before bagging"}, nil
				}
				return false, "", nil, nil
			},
		},
		{
			name:   "suspiciousPaymentPattern",
			weight: weightSuspiciousPayment,
			eval: func(_ context.Context, snap models.CartSnapshot, _ decimal.Decimal, _ HistoryStore) (bool, string, []string, error) {
				if snap.PaymentMethod == models.PaymentCard && snap.CashTendered.IsPositive() {
					return true, "Card payment with cash tendered", nil, nil
				}
				return false, "", nil, nil
			},
		},
		{
			name:   "unusualTime",
			weight: weightUnusualTime,
			eval: func(_ context.Context, snap models.CartSnapshot, _ decimal.Decimal, _ HistoryStore) (bool, string, []string, error) {
				if h := snap.Timestamp.Hour(); h < 6 || h > 22 {
					return true, fmt.Sprintf("Transaction at unusual hour: %02d:00", h), nil, nil
				}
				return false, "", nil, nil
			},
		},
		{
			name:   "firstTimeCustomer",
			weight: weightFirstTimeCustomer,
			eval: func(ctx context.Context, snap models.CartSnapshot, _ decimal.Decimal, h HistoryStore) (bool, string, []string, error) {
				if snap.CustomerID == "" {
					return false, "", nil, nil
				}
				prior, err := h.CountPriorTransactions(ctx, snap.CustomerID)
				if err != nil {
					return false, "", nil, err
				}
				if prior == 0 {
					return true, "First transaction for this customer", nil, nil
				}
				return false, "", nil, nil
			},
		},
		{
			name:   "frequentReturns",
			weight: weightFrequentReturns,
			eval: func(ctx context.Context, snap models.CartSnapshot, _ decimal.Decimal, h HistoryStore) (bool, string, []string, error) {
				if snap.CustomerID == "" {
					return false, "", nil, nil
				}
				voids, err := h.CountVoidsSince(ctx, snap.CustomerID, snap.Timestamp.Add(-frequentReturnsWindow))
				if err != nil {
					return false, "", nil, err
				}
				if voids >= frequentReturnsCount {
					return true, fmt.Sprintf("%d voided transactions in the last 30 days", voids),
						[]string{"Review customer's void history"}, nil
				}
				return false, "", nil, nil
			},
		},
		{
			name:   "rapidSequentialTransactions",
			weight: weightRapidTransactions,
			eval: func(ctx context.Context, snap models.CartSnapshot, _ decimal.Decimal, h HistoryStore) (bool, string, []string, error) {
				if snap.CustomerID == "" {
					return false, "", nil, nil
				}
				recent, err := h.CountTransactionsSince(ctx, snap.CustomerID, snap.Timestamp.Add(-rapidTransactionWindow))
				if err != nil {
					return false, "", nil, err
				}
				if recent >= rapidTransactionCount {
					return true, fmt.Sprintf("%d transactions within one hour", recent),
						[]string{"Confirm transactions are intentional"}, nil
				}
				return false, "", nil, nil
			},
		},
		{
			name:   "lowStockItems",
			weight: weightLowStockItems,
			eval: func(ctx context.Context, snap models.CartSnapshot, _ decimal.Decimal, h HistoryStore) (bool, string, []string, error) {
				ids := make([]string, 0, len(snap.Lines))
				for _, l := range snap.Lines {
					ids = append(ids, l.ProductID)
				}
				stock, err := h.GetStockLevels(ctx, ids)
				if err != nil {
					return false, "", nil, err
				}
				for _, l := range snap.Lines {
					s, ok := stock[l.ProductID]
					if !ok || s >= lowStockFloor {
						continue
					}
					if l.Quantity*2 > s {
						return true, fmt.Sprintf("Purchase depletes low stock of %s", l.ProductID),
							[]string{"Verify stock levels after sale"}, nil
					}
				}
				return false, "", nil, nil
			},
		},
	}
}
