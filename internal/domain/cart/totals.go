package cart

import "github.com/phucthaihg/wallpaper-ecommerce/internal/models"

// TaxRate is a flat 10%, applied before the discount is subtracted.
const TaxRate = 0.10

type Totals struct {
	ItemCount int     `json:"itemCount"`
	Subtotal  float64 `json:"subtotal"`
	Discount  float64 `json:"discount"`
	Tax       float64 `json:"tax"`
	Total     float64 `json:"total"`
}

// CalculateTotals derives cart totals from the active line items only,
// saved-for-later lines carry no weight. ItemCount is the number of
// active lines, not the summed quantity. Total is not clamped at zero, a
// discount larger than subtotal+tax yields a negative total.
func CalculateTotals(items []models.CartItem, discount float64) Totals {
	t := Totals{Discount: discount}
	for _, it := range items {
		if it.Status != models.ItemStatusActive {
			continue
		}
		t.ItemCount++
		t.Subtotal += it.UnitPrice * float64(it.Quantity)
	}
	t.Tax = t.Subtotal * TaxRate
	t.Total = t.Subtotal + t.Tax - t.Discount
	return t
}

// Subtotal sums unitPrice x quantity over the active lines.
func Subtotal(items []models.CartItem) float64 {
	var sum float64
	for _, it := range items {
		if it.Status != models.ItemStatusActive {
			continue
		}
		sum += it.UnitPrice * float64(it.Quantity)
	}
	return sum
}

// Discount computes the absolute discount a coupon grants against a
// subtotal. Percentage coupons scale, fixed coupons apply as-is.
func Discount(coupon *models.Coupon, subtotal float64) float64 {
	if coupon.Type == models.CouponTypePercentage {
		return subtotal * coupon.Value / 100
	}
	return coupon.Value
}
