package repo

import (
	"context"
	"time"

	"github.com/phucthaihg/wallpaper-ecommerce/internal/models"
)

// FindActiveCoupon looks up a coupon that exists, is active and has not
// expired. Callers get gorm.ErrRecordNotFound for all three misses.
func (r *GormRepo) FindActiveCoupon(ctx context.Context, code string, now time.Time) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.DB.WithContext(ctx).
		Where("code = ? AND is_active = ? AND expires_at > ?", code, true, now).
		First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}
