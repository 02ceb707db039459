package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/phucthaihg/wallpaper-ecommerce/internal/models"
)

// CartTTL is how long a fresh cart stays mutable before the lazy expiry
// check abandons it.
const CartTTL = 7 * 24 * time.Hour

// activeCartQuery resolves the single active cart for a principal. The
// user id wins deterministically; the session id is only consulted when
// no user cart exists, so a request that momentarily carries both never
// flips between the two.
func activeCartQuery(tx *gorm.DB, userID *uint, sessionID string) (*models.Cart, error) {
	var cart models.Cart

	if userID != nil {
		err := tx.Where("user_id = ? AND status = ?", *userID, models.CartStatusActive).
			First(&cart).Error
		if err == nil {
			return &cart, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	if sessionID != "" {
		err := tx.Where("session_id = ? AND status = ?", sessionID, models.CartStatusActive).
			First(&cart).Error
		if err == nil {
			return &cart, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	return nil, nil
}

// ActiveCart returns the principal's active cart with its items, or nil
// when none exists.
func (r *GormRepo) ActiveCart(ctx context.Context, userID *uint, sessionID string) (*models.Cart, error) {
	cart, err := activeCartQuery(r.DB.WithContext(ctx), userID, sessionID)
	if err != nil || cart == nil {
		return cart, err
	}
	if err := r.DB.WithContext(ctx).Where("cart_id = ?", cart.ID).Find(&cart.Items).Error; err != nil {
		return nil, err
	}
	return cart, nil
}

// GetOrCreateActiveCart returns the active cart for the principal,
// lazily abandoning one that sat past its expiry and creating a
// replacement attached to the same identity.
func (r *GormRepo) GetOrCreateActiveCart(ctx context.Context, userID *uint, sessionID string, now time.Time) (*models.Cart, error) {
	var out *models.Cart

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := activeCartQuery(forUpdate(tx), userID, sessionID)
		if err != nil {
			return err
		}

		if cart != nil && cart.ExpiresAt.Before(now) {
			if err := tx.Model(cart).Update("status", models.CartStatusAbandoned).Error; err != nil {
				return err
			}
			cart = nil
		}

		if cart == nil {
			cart = &models.Cart{
				UserID:    userID,
				Status:    models.CartStatusActive,
				ExpiresAt: now.Add(CartTTL),
			}
			if sessionID != "" {
				cart.SessionID = &sessionID
			}
			if err := tx.Create(cart).Error; err != nil {
				return err
			}
		}

		out = cart
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AddItem folds quantity into the existing active line for the product,
// merging specifications with new keys winning and keeping the original
// price snapshot, or creates a fresh line at the given price.
func (r *GormRepo) AddItem(ctx context.Context, cartID, productID, quantity uint, unitPrice float64, specs models.JSONMap) (*models.CartItem, error) {
	var out *models.CartItem

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.CartItem
		err := forUpdate(tx).
			Where("cart_id = ? AND product_id = ? AND status = ?", cartID, productID, models.ItemStatusActive).
			First(&item).Error

		if err == nil {
			item.Quantity += quantity
			item.Specifications = item.Specifications.Merge(specs)
			if err := tx.Save(&item).Error; err != nil {
				return err
			}
			out = &item
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		item = models.CartItem{
			CartID:         cartID,
			ProductID:      productID,
			Quantity:       quantity,
			UnitPrice:      unitPrice,
			Specifications: specs,
			Status:         models.ItemStatusActive,
		}
		if item.Specifications == nil {
			item.Specifications = models.JSONMap{}
		}
		if err := tx.Create(&item).Error; err != nil {
			return err
		}
		out = &item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormRepo) ItemByID(ctx context.Context, id uint) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.DB.WithContext(ctx).First(&item, id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateItem applies the provided fields only. A nil quantity leaves the
// current quantity alone; specifications merge shallowly.
func (r *GormRepo) UpdateItem(ctx context.Context, id uint, quantity *uint, specs models.JSONMap) (*models.CartItem, error) {
	var out *models.CartItem

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.CartItem
		if err := forUpdate(tx).First(&item, id).Error; err != nil {
			return err
		}

		if quantity != nil {
			item.Quantity = *quantity
		}
		if specs != nil {
			item.Specifications = item.Specifications.Merge(specs)
		}
		if err := tx.Save(&item).Error; err != nil {
			return err
		}
		out = &item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RemoveItem deletes the line. A second delete of the same id reports
// ErrRecordNotFound rather than success.
func (r *GormRepo) RemoveItem(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Delete(&models.CartItem{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepo) ClearItems(ctx context.Context, cartID uint) error {
	return r.DB.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error
}

// SetItemStatus toggles a line between active and saved without touching
// quantity or price.
func (r *GormRepo) SetItemStatus(ctx context.Context, id uint, status string) (*models.CartItem, error) {
	var out *models.CartItem

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.CartItem
		if err := forUpdate(tx).First(&item, id).Error; err != nil {
			return err
		}
		if err := tx.Model(&item).Update("status", status).Error; err != nil {
			return err
		}
		item.Status = status
		out = &item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormRepo) SetCoupon(ctx context.Context, cartID uint, couponID uint, discount float64) error {
	return r.DB.WithContext(ctx).Model(&models.Cart{}).
		Where("id = ?", cartID).
		Updates(map[string]interface{}{"coupon_id": couponID, "discount": discount}).Error
}

func (r *GormRepo) ClearCoupon(ctx context.Context, cartID uint) error {
	return r.DB.WithContext(ctx).Model(&models.Cart{}).
		Where("id = ?", cartID).
		Updates(map[string]interface{}{"coupon_id": nil, "discount": 0}).Error
}

func (r *GormRepo) CartsByUser(ctx context.Context, userID uint) ([]models.Cart, error) {
	var carts []models.Cart
	err := r.DB.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&carts).Error
	if err != nil {
		return nil, err
	}
	return carts, nil
}

// MergeCarts folds the guest cart for sessionID into the user's active
// cart inside one transaction, so a mid-merge failure leaves both carts
// untouched. Shared products combine quantities and keep the user line's
// price snapshot and specifications; products only the guest holds are
// copied over. The guest cart ends up merged with its lines left in
// place for audit.
func (r *GormRepo) MergeCarts(ctx context.Context, userID uint, sessionID string) (*models.Cart, error) {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var guest models.Cart
		err := forUpdate(tx).
			Where("session_id = ? AND status = ?", sessionID, models.CartStatusActive).
			First(&guest).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		var user models.Cart
		err = forUpdate(tx).
			Where("user_id = ? AND status = ?", userID, models.CartStatusActive).
			First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Cheap rename: the guest cart becomes the user cart.
			return tx.Model(&guest).
				Updates(map[string]interface{}{"user_id": userID, "session_id": nil}).Error
		}
		if err != nil {
			return err
		}

		var guestItems []models.CartItem
		if err := tx.Where("cart_id = ?", guest.ID).Find(&guestItems).Error; err != nil {
			return err
		}

		for _, gi := range guestItems {
			var ui models.CartItem
			err := forUpdate(tx).
				Where("cart_id = ? AND product_id = ? AND status = ?", user.ID, gi.ProductID, gi.Status).
				First(&ui).Error

			if err == nil {
				if err := tx.Model(&ui).
					Update("quantity", gorm.Expr("quantity + ?", gi.Quantity)).Error; err != nil {
					return err
				}
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			moved := models.CartItem{
				CartID:         user.ID,
				ProductID:      gi.ProductID,
				Quantity:       gi.Quantity,
				UnitPrice:      gi.UnitPrice,
				Specifications: gi.Specifications,
				Status:         gi.Status,
			}
			if err := tx.Create(&moved).Error; err != nil {
				return err
			}
		}

		return tx.Model(&guest).Update("status", models.CartStatusMerged).Error
	})
	if err != nil {
		return nil, err
	}

	return r.ActiveCart(ctx, &userID, "")
}
