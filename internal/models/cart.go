package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCard   PaymentMethod = "card"
	PaymentMobile PaymentMethod = "mobile"
)

// CartLine is one purchased item in a transaction. Quantity and UnitPrice
// are validated at the API boundary; the engines assume sanitized input.
type CartLine struct {
	ProductID string          `json:"product_id"`
	Category  string          `json:"category"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Total returns quantity x unit price for the line.
func (l CartLine) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CartSnapshot is the immutable view of a transaction handed to both
// evaluation engines. Timestamp is the evaluation instant; the boundary
// fills it with the current time when the caller omits it.
type CartSnapshot struct {
	StoreID       string          `json:"store_id"`
	Lines         []CartLine      `json:"lines"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	CashTendered  decimal.Decimal `json:"cash_tendered"`
	CustomerID    string          `json:"customer_id,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}

// Subtotal sums line totals in decimal arithmetic.
func (s CartSnapshot) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range s.Lines {
		sum = sum.Add(l.Total())
	}
	return sum
}

// TotalQuantity sums unit counts across all lines.
func (s CartSnapshot) TotalQuantity() int {
	n := 0
	for _, l := range s.Lines {
		n += l.Quantity
	}
	return n
}
