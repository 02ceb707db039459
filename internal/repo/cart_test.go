package repo

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/phucthaihg/wallpaper-ecommerce/internal/models"
)

func newTestRepo(t *testing.T) *GormRepo {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// Every pooled connection gets its own :memory: database, so keep
	// the pool at one connection.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.SpecificationTemplate{},
		&models.Coupon{},
		&models.Cart{},
		&models.CartItem{},
	))
	return &GormRepo{DB: db}
}

func TestGetOrCreateActiveCart_CreatesAndReuses(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	now := time.Now()

	cart, err := r.GetOrCreateActiveCart(ctx, nil, "sess-1", now)
	require.NoError(t, err)
	require.NotNil(t, cart.SessionID)
	assert.Equal(t, "sess-1", *cart.SessionID)
	assert.Nil(t, cart.UserID)
	assert.Equal(t, models.CartStatusActive, cart.Status)
	assert.WithinDuration(t, now.Add(CartTTL), cart.ExpiresAt, time.Second)

	again, err := r.GetOrCreateActiveCart(ctx, nil, "sess-1", now)
	require.NoError(t, err)
	assert.Equal(t, cart.ID, again.ID)
}

func TestGetOrCreateActiveCart_AbandonsExpired(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	now := time.Now()

	old, err := r.GetOrCreateActiveCart(ctx, nil, "sess-1", now)
	require.NoError(t, err)
	require.NoError(t, r.DB.Model(old).Update("expires_at", now.Add(-time.Hour)).Error)

	fresh, err := r.GetOrCreateActiveCart(ctx, nil, "sess-1", now)
	require.NoError(t, err)
	assert.NotEqual(t, old.ID, fresh.ID)

	var abandoned models.Cart
	require.NoError(t, r.DB.First(&abandoned, old.ID).Error)
	assert.Equal(t, models.CartStatusAbandoned, abandoned.Status)
}

func TestActiveCart_UserWinsOverSession(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	now := time.Now()
	userID := uint(1)

	userCart, err := r.GetOrCreateActiveCart(ctx, &userID, "", now)
	require.NoError(t, err)
	guestCart, err := r.GetOrCreateActiveCart(ctx, nil, "sess-1", now)
	require.NoError(t, err)
	require.NotEqual(t, userCart.ID, guestCart.ID)

	got, err := r.ActiveCart(ctx, &userID, "sess-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, userCart.ID, got.ID)
}

func TestActiveCart_NoneExists(t *testing.T) {
	r := newTestRepo(t)

	cart, err := r.ActiveCart(context.Background(), nil, "nope")
	require.NoError(t, err)
	assert.Nil(t, cart)
}

func TestAddItem_MergesQuantityAndSpecsKeepsPrice(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	cart, err := r.GetOrCreateActiveCart(ctx, nil, "sess-1", time.Now())
	require.NoError(t, err)

	first, err := r.AddItem(ctx, cart.ID, 7, 2, 9.99, models.JSONMap{"color": "blue"})
	require.NoError(t, err)
	assert.Equal(t, uint(2), first.Quantity)

	second, err := r.AddItem(ctx, cart.ID, 7, 3, 15.00, models.JSONMap{"color": "red", "width": "53cm"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, uint(5), second.Quantity)
	assert.Equal(t, 9.99, second.UnitPrice)
	assert.Equal(t, "red", second.Specifications["color"])
	assert.Equal(t, "53cm", second.Specifications["width"])

	var count int64
	require.NoError(t, r.DB.Model(&models.CartItem{}).Where("cart_id = ?", cart.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestAddItem_SavedLineNotMerged(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	cart, err := r.GetOrCreateActiveCart(ctx, nil, "sess-1", time.Now())
	require.NoError(t, err)

	saved, err := r.AddItem(ctx, cart.ID, 7, 1, 10, nil)
	require.NoError(t, err)
	_, err = r.SetItemStatus(ctx, saved.ID, models.ItemStatusSaved)
	require.NoError(t, err)

	fresh, err := r.AddItem(ctx, cart.ID, 7, 2, 12, nil)
	require.NoError(t, err)
	assert.NotEqual(t, saved.ID, fresh.ID)
	assert.Equal(t, 12.0, fresh.UnitPrice)
}

func TestUpdateItem_PartialFields(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	cart, err := r.GetOrCreateActiveCart(ctx, nil, "sess-1", time.Now())
	require.NoError(t, err)
	item, err := r.AddItem(ctx, cart.ID, 7, 2, 10, models.JSONMap{"color": "blue"})
	require.NoError(t, err)

	qty := uint(4)
	updated, err := r.UpdateItem(ctx, item.ID, &qty, nil)
	require.NoError(t, err)
	assert.Equal(t, uint(4), updated.Quantity)
	assert.Equal(t, "blue", updated.Specifications["color"])

	updated, err = r.UpdateItem(ctx, item.ID, nil, models.JSONMap{"pattern": "floral"})
	require.NoError(t, err)
	assert.Equal(t, uint(4), updated.Quantity)
	assert.Equal(t, "blue", updated.Specifications["color"])
	assert.Equal(t, "floral", updated.Specifications["pattern"])
}

func TestRemoveItem_SecondDeleteNotFound(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	cart, err := r.GetOrCreateActiveCart(ctx, nil, "sess-1", time.Now())
	require.NoError(t, err)
	item, err := r.AddItem(ctx, cart.ID, 7, 1, 10, nil)
	require.NoError(t, err)

	require.NoError(t, r.RemoveItem(ctx, item.ID))
	err = r.RemoveItem(ctx, item.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestMergeCarts_CombinesQuantities(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	now := time.Now()
	userID := uint(1)

	guest, err := r.GetOrCreateActiveCart(ctx, nil, "sess-1", now)
	require.NoError(t, err)
	_, err = r.AddItem(ctx, guest.ID, 7, 2, 15.00, models.JSONMap{"color": "red"})
	require.NoError(t, err)
	_, err = r.AddItem(ctx, guest.ID, 8, 1, 30.00, nil)
	require.NoError(t, err)

	user, err := r.GetOrCreateActiveCart(ctx, &userID, "", now)
	require.NoError(t, err)
	_, err = r.AddItem(ctx, user.ID, 7, 3, 9.99, models.JSONMap{"color": "blue"})
	require.NoError(t, err)

	merged, err := r.MergeCarts(ctx, userID, "sess-1")
	require.NoError(t, err)
	require.NotNil(t, merged)
	assert.Equal(t, user.ID, merged.ID)
	require.Len(t, merged.Items, 2)

	byProduct := map[uint]models.CartItem{}
	for _, it := range merged.Items {
		byProduct[it.ProductID] = it
	}
	assert.Equal(t, uint(5), byProduct[7].Quantity)
	assert.Equal(t, 9.99, byProduct[7].UnitPrice)
	assert.Equal(t, "blue", byProduct[7].Specifications["color"])
	assert.Equal(t, uint(1), byProduct[8].Quantity)
	assert.Equal(t, 30.0, byProduct[8].UnitPrice)

	var guestAfter models.Cart
	require.NoError(t, r.DB.First(&guestAfter, guest.ID).Error)
	assert.Equal(t, models.CartStatusMerged, guestAfter.Status)

	// Guest lines stay on the merged cart for audit.
	var guestLines int64
	require.NoError(t, r.DB.Model(&models.CartItem{}).Where("cart_id = ?", guest.ID).Count(&guestLines).Error)
	assert.Equal(t, int64(2), guestLines)
}

func TestMergeCarts_ReparentsGuestCart(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	userID := uint(1)

	guest, err := r.GetOrCreateActiveCart(ctx, nil, "sess-1", time.Now())
	require.NoError(t, err)
	_, err = r.AddItem(ctx, guest.ID, 7, 2, 10, nil)
	require.NoError(t, err)

	merged, err := r.MergeCarts(ctx, userID, "sess-1")
	require.NoError(t, err)
	require.NotNil(t, merged)

	assert.Equal(t, guest.ID, merged.ID)
	require.NotNil(t, merged.UserID)
	assert.Equal(t, userID, *merged.UserID)
	assert.Nil(t, merged.SessionID)
	assert.Equal(t, models.CartStatusActive, merged.Status)
	assert.Len(t, merged.Items, 1)
}

func TestMergeCarts_FailureRollsBackBothCarts(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	now := time.Now()
	userID := uint(1)

	guest, err := r.GetOrCreateActiveCart(ctx, nil, "sess-1", now)
	require.NoError(t, err)
	_, err = r.AddItem(ctx, guest.ID, 7, 2, 10, nil)
	require.NoError(t, err)
	_, err = r.AddItem(ctx, guest.ID, 8, 1, 20, nil)
	require.NoError(t, err)

	user, err := r.GetOrCreateActiveCart(ctx, &userID, "", now)
	require.NoError(t, err)
	_, err = r.AddItem(ctx, user.ID, 7, 3, 9.99, nil)
	require.NoError(t, err)
	saved, err := r.AddItem(ctx, user.ID, 8, 1, 25, nil)
	require.NoError(t, err)
	_, err = r.SetItemStatus(ctx, saved.ID, models.ItemStatusSaved)
	require.NoError(t, err)

	// Product 7 merges first, then copying product 8 hits this index
	// because the user already holds it saved. The earlier quantity
	// update must not survive the failure.
	require.NoError(t, r.DB.Exec(
		"CREATE UNIQUE INDEX idx_one_line_per_product ON cart_items (cart_id, product_id)",
	).Error)

	_, err = r.MergeCarts(ctx, userID, "sess-1")
	require.Error(t, err)

	var guestAfter models.Cart
	require.NoError(t, r.DB.First(&guestAfter, guest.ID).Error)
	assert.Equal(t, models.CartStatusActive, guestAfter.Status)

	var userItem7 models.CartItem
	require.NoError(t, r.DB.
		Where("cart_id = ? AND product_id = ?", user.ID, 7).
		First(&userItem7).Error)
	assert.Equal(t, uint(3), userItem7.Quantity)

	var userLines int64
	require.NoError(t, r.DB.Model(&models.CartItem{}).
		Where("cart_id = ?", user.ID).Count(&userLines).Error)
	assert.Equal(t, int64(2), userLines)

	var guestItem7 models.CartItem
	require.NoError(t, r.DB.
		Where("cart_id = ? AND product_id = ?", guest.ID, 7).
		First(&guestItem7).Error)
	assert.Equal(t, uint(2), guestItem7.Quantity)
}

func TestMergeCarts_NoGuestCart(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	userID := uint(1)

	user, err := r.GetOrCreateActiveCart(ctx, &userID, "", time.Now())
	require.NoError(t, err)

	merged, err := r.MergeCarts(ctx, userID, "sess-ghost")
	require.NoError(t, err)
	require.NotNil(t, merged)
	assert.Equal(t, user.ID, merged.ID)
}

func TestSetCoupon_AndClear(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	cart, err := r.GetOrCreateActiveCart(ctx, nil, "sess-1", time.Now())
	require.NoError(t, err)

	require.NoError(t, r.SetCoupon(ctx, cart.ID, 3, 12.5))
	var withCoupon models.Cart
	require.NoError(t, r.DB.First(&withCoupon, cart.ID).Error)
	require.NotNil(t, withCoupon.CouponID)
	assert.Equal(t, uint(3), *withCoupon.CouponID)
	assert.Equal(t, 12.5, withCoupon.Discount)

	require.NoError(t, r.ClearCoupon(ctx, cart.ID))
	var cleared models.Cart
	require.NoError(t, r.DB.First(&cleared, cart.ID).Error)
	assert.Nil(t, cleared.CouponID)
	assert.Zero(t, cleared.Discount)
}

func TestFindActiveCoupon(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, r.DB.Create(&models.Coupon{
		Code: "SALE10", Type: models.CouponTypePercentage, Value: 10,
		IsActive: true, ExpiresAt: now.Add(time.Hour),
	}).Error)
	require.NoError(t, r.DB.Create(&models.Coupon{
		Code: "EXPIRED", Type: models.CouponTypeFixed, Value: 5,
		IsActive: true, ExpiresAt: now.Add(-time.Hour),
	}).Error)
	require.NoError(t, r.DB.Create(&models.Coupon{
		Code: "DISABLED", Type: models.CouponTypeFixed, Value: 5,
		IsActive: false, ExpiresAt: now.Add(time.Hour),
	}).Error)

	coupon, err := r.FindActiveCoupon(ctx, "SALE10", now)
	require.NoError(t, err)
	assert.Equal(t, 10.0, coupon.Value)

	_, err = r.FindActiveCoupon(ctx, "EXPIRED", now)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, err = r.FindActiveCoupon(ctx, "DISABLED", now)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, err = r.FindActiveCoupon(ctx, "UNKNOWN", now)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
