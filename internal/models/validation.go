package models

import (
	"errors"
	"fmt"
)

// Boundary validation for cart snapshots. The engines assume sanitized
// input; everything entering through the API goes through here first.

var ErrEmptyCart = errors.New("cart has no lines")

func ValidateSnapshot(s CartSnapshot) error {
	if s.StoreID == "" {
		return errors.New("store_id is required")
	}
	if len(s.Lines) == 0 {
		return ErrEmptyCart
	}
	switch s.PaymentMethod {
	case PaymentCash, PaymentCard, PaymentMobile:
	default:
		return fmt.Errorf("unknown payment_method %q", s.PaymentMethod)
	}
	if s.CashTendered.IsNegative() {
		return errors.New("cash_tendered must not be negative")
	}
	for i, l := range s.Lines {
		if l.ProductID == "" {
			return fmt.Errorf("line %d: product_id is required", i)
		}
		if l.Quantity <= 0 {
			return fmt.Errorf("line %d: quantity must be positive", i)
		}
		if l.UnitPrice.IsNegative() {
			return fmt.Errorf("line %d: unit_price must not be negative", i)
		}
	}
	return nil
}
