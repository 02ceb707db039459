package cart

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("validation")
	ErrNotFound   = errors.New("not found")

	// ErrInvalidCoupon deliberately covers "unknown code", "inactive" and
	// "expired" without telling the caller which one it hit.
	ErrInvalidCoupon = errors.New("invalid or expired coupon")
)

// InsufficientStockError reports an advisory stock check failure. Stock is
// never reserved by cart operations, the catalog decrements it at order
// time, so concurrent carts can still oversell.
type InsufficientStockError struct {
	Available uint
	Requested uint
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock: available %d, requested %d", e.Available, e.Requested)
}

// MinimumNotMetError reports a coupon whose minimum purchase exceeds the
// current subtotal.
type MinimumNotMetError struct {
	Required float64
	Current  float64
}

func (e *MinimumNotMetError) Error() string {
	return fmt.Sprintf("minimum purchase not met: required %.2f, current %.2f", e.Required, e.Current)
}
