package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phucthaihg/wallpaper-ecommerce/internal/models"
)

func TestCalculateTotals(t *testing.T) {
	items := []models.CartItem{
		{ProductID: 1, Quantity: 2, UnitPrice: 25, Status: models.ItemStatusActive},
		{ProductID: 2, Quantity: 1, UnitPrice: 50, Status: models.ItemStatusActive},
	}

	totals := CalculateTotals(items, 10)

	assert.Equal(t, 2, totals.ItemCount)
	assert.Equal(t, 100.0, totals.Subtotal)
	assert.Equal(t, 10.0, totals.Tax)
	assert.Equal(t, 10.0, totals.Discount)
	assert.Equal(t, 100.0, totals.Total)
}

func TestCalculateTotals_ExcludesSavedItems(t *testing.T) {
	items := []models.CartItem{
		{ProductID: 1, Quantity: 2, UnitPrice: 10, Status: models.ItemStatusActive},
		{ProductID: 2, Quantity: 1, UnitPrice: 100, Status: models.ItemStatusSaved},
	}

	totals := CalculateTotals(items, 0)

	assert.Equal(t, 1, totals.ItemCount)
	assert.Equal(t, 20.0, totals.Subtotal)
	assert.Equal(t, 2.0, totals.Tax)
	assert.Equal(t, 22.0, totals.Total)
}

func TestCalculateTotals_CountsLinesNotQuantities(t *testing.T) {
	items := []models.CartItem{
		{ProductID: 1, Quantity: 5, UnitPrice: 1, Status: models.ItemStatusActive},
		{ProductID: 2, Quantity: 3, UnitPrice: 1, Status: models.ItemStatusActive},
	}

	totals := CalculateTotals(items, 0)
	assert.Equal(t, 2, totals.ItemCount)
}

func TestCalculateTotals_DoesNotClampNegativeTotal(t *testing.T) {
	items := []models.CartItem{
		{ProductID: 1, Quantity: 1, UnitPrice: 10, Status: models.ItemStatusActive},
	}

	totals := CalculateTotals(items, 50)
	assert.Equal(t, -39.0, totals.Total)
}

func TestCalculateTotals_EmptyCart(t *testing.T) {
	totals := CalculateTotals(nil, 0)
	assert.Zero(t, totals.ItemCount)
	assert.Zero(t, totals.Subtotal)
	assert.Zero(t, totals.Total)
}

func TestDiscount(t *testing.T) {
	percentage := &models.Coupon{Type: models.CouponTypePercentage, Value: 10}
	require.Equal(t, 10.0, Discount(percentage, 100))

	fixed := &models.Coupon{Type: models.CouponTypeFixed, Value: 20}
	require.Equal(t, 20.0, Discount(fixed, 100))
}

func TestSubtotal_ActiveOnly(t *testing.T) {
	items := []models.CartItem{
		{Quantity: 2, UnitPrice: 9.5, Status: models.ItemStatusActive},
		{Quantity: 4, UnitPrice: 100, Status: models.ItemStatusSaved},
	}
	assert.Equal(t, 19.0, Subtotal(items))
}
