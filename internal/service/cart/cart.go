package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	domain "github.com/phucthaihg/wallpaper-ecommerce/internal/domain/cart"
	"github.com/phucthaihg/wallpaper-ecommerce/internal/identity"
	"github.com/phucthaihg/wallpaper-ecommerce/internal/models"
	"github.com/phucthaihg/wallpaper-ecommerce/internal/repo"
)

type Service struct {
	Repo *repo.GormRepo
}

// View is the cart as callers see it: the stored rows plus totals
// recomputed on every read.
type View struct {
	ID        uint              `json:"id"`
	UserID    *uint             `json:"userId"`
	SessionID *string           `json:"sessionId"`
	Status    string            `json:"status"`
	ExpiresAt time.Time         `json:"expiresAt"`
	CouponID  *uint             `json:"couponId"`
	Items     []models.CartItem `json:"items"`
	ItemCount int               `json:"itemCount"`
	Subtotal  float64           `json:"subtotal"`
	Discount  float64           `json:"discount"`
	Tax       float64           `json:"tax"`
	Total     float64           `json:"total"`
}

type CouponResult struct {
	Code     string  `json:"code"`
	Discount float64 `json:"discount"`
	Type     string  `json:"type"`
}

func view(cart *models.Cart) View {
	if cart == nil {
		return View{Items: []models.CartItem{}}
	}
	t := domain.CalculateTotals(cart.Items, cart.Discount)
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}
	return View{
		ID:        cart.ID,
		UserID:    cart.UserID,
		SessionID: cart.SessionID,
		Status:    cart.Status,
		ExpiresAt: cart.ExpiresAt,
		CouponID:  cart.CouponID,
		Items:     cart.Items,
		ItemCount: t.ItemCount,
		Subtotal:  t.Subtotal,
		Discount:  t.Discount,
		Tax:       t.Tax,
		Total:     t.Total,
	}
}

func (s *Service) GetCart(ctx context.Context, p identity.Principal) (View, error) {
	cart, err := s.Repo.ActiveCart(ctx, p.UserID, p.SessionID)
	if err != nil {
		return View{}, err
	}
	return view(cart), nil
}

func (s *Service) AddItem(ctx context.Context, p identity.Principal, productID, quantity uint, specs models.JSONMap) (*models.CartItem, error) {
	if !p.Known() {
		return nil, fmt.Errorf("no user or session identity: %w", domain.ErrValidation)
	}
	if productID == 0 {
		return nil, fmt.Errorf("product id is required: %w", domain.ErrValidation)
	}
	if quantity < 1 {
		return nil, fmt.Errorf("quantity must be at least 1: %w", domain.ErrValidation)
	}

	product, err := s.Repo.ProductByID(ctx, productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("product %d: %w", productID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	// Advisory gate: available stock is checked, never reserved.
	if product.StockQuantity < quantity {
		return nil, &domain.InsufficientStockError{
			Available: product.StockQuantity,
			Requested: quantity,
		}
	}

	cart, err := s.Repo.GetOrCreateActiveCart(ctx, p.UserID, p.SessionID, time.Now())
	if err != nil {
		return nil, err
	}

	return s.Repo.AddItem(ctx, cart.ID, productID, quantity, product.Price, specs)
}

func (s *Service) UpdateItem(ctx context.Context, itemID uint, quantity *uint, specs models.JSONMap) (*models.CartItem, error) {
	if quantity != nil && *quantity < 1 {
		return nil, fmt.Errorf("quantity must be at least 1: %w", domain.ErrValidation)
	}

	item, err := s.Repo.ItemByID(ctx, itemID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("cart item %d: %w", itemID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if quantity != nil {
		product, err := s.Repo.ProductByID(ctx, item.ProductID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product %d: %w", item.ProductID, domain.ErrNotFound)
		}
		if err != nil {
			return nil, err
		}
		if *quantity > product.StockQuantity {
			return nil, &domain.InsufficientStockError{
				Available: product.StockQuantity,
				Requested: *quantity,
			}
		}
	}

	return s.Repo.UpdateItem(ctx, itemID, quantity, specs)
}

func (s *Service) RemoveItem(ctx context.Context, itemID uint) error {
	err := s.Repo.RemoveItem(ctx, itemID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("cart item %d: %w", itemID, domain.ErrNotFound)
	}
	return err
}

// ClearCart drops every line from the principal's active cart. No cart
// is a no-op, not an error.
func (s *Service) ClearCart(ctx context.Context, p identity.Principal) error {
	cart, err := s.Repo.ActiveCart(ctx, p.UserID, p.SessionID)
	if err != nil || cart == nil {
		return err
	}
	return s.Repo.ClearItems(ctx, cart.ID)
}

func (s *Service) ApplyCoupon(ctx context.Context, p identity.Principal, code string) (*CouponResult, error) {
	if code == "" {
		return nil, fmt.Errorf("coupon code is required: %w", domain.ErrValidation)
	}

	coupon, err := s.Repo.FindActiveCoupon(ctx, code, time.Now())
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrInvalidCoupon
	}
	if err != nil {
		return nil, err
	}

	cart, err := s.Repo.ActiveCart(ctx, p.UserID, p.SessionID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, fmt.Errorf("cart: %w", domain.ErrNotFound)
	}

	subtotal := domain.Subtotal(cart.Items)
	if coupon.MinimumPurchase > 0 && subtotal < coupon.MinimumPurchase {
		return nil, &domain.MinimumNotMetError{
			Required: coupon.MinimumPurchase,
			Current:  subtotal,
		}
	}

	discount := domain.Discount(coupon, subtotal)
	if err := s.Repo.SetCoupon(ctx, cart.ID, coupon.ID, discount); err != nil {
		return nil, err
	}

	return &CouponResult{Code: coupon.Code, Discount: discount, Type: coupon.Type}, nil
}

// RemoveCoupon resets the coupon and cached discount. No active cart is
// a no-op.
func (s *Service) RemoveCoupon(ctx context.Context, p identity.Principal) error {
	cart, err := s.Repo.ActiveCart(ctx, p.UserID, p.SessionID)
	if err != nil || cart == nil {
		return err
	}
	return s.Repo.ClearCoupon(ctx, cart.ID)
}

// Merge folds the guest cart for sessionID into the user's cart. Run at
// login so later requests never race the dual-identity lookup.
func (s *Service) Merge(ctx context.Context, userID uint, sessionID string) (View, error) {
	if sessionID == "" {
		cart, err := s.Repo.ActiveCart(ctx, &userID, "")
		if err != nil {
			return View{}, err
		}
		return view(cart), nil
	}

	cart, err := s.Repo.MergeCarts(ctx, userID, sessionID)
	if err != nil {
		return View{}, err
	}
	return view(cart), nil
}

func (s *Service) SaveForLater(ctx context.Context, itemID uint) (*models.CartItem, error) {
	return s.setStatus(ctx, itemID, models.ItemStatusSaved)
}

func (s *Service) MoveToCart(ctx context.Context, itemID uint) (*models.CartItem, error) {
	return s.setStatus(ctx, itemID, models.ItemStatusActive)
}

func (s *Service) setStatus(ctx context.Context, itemID uint, status string) (*models.CartItem, error) {
	item, err := s.Repo.SetItemStatus(ctx, itemID, status)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("cart item %d: %w", itemID, domain.ErrNotFound)
	}
	return item, err
}

func (s *Service) Summary(ctx context.Context, p identity.Principal) (domain.Totals, error) {
	cart, err := s.Repo.ActiveCart(ctx, p.UserID, p.SessionID)
	if err != nil {
		return domain.Totals{}, err
	}
	if cart == nil {
		return domain.Totals{}, nil
	}
	return domain.CalculateTotals(cart.Items, cart.Discount), nil
}

func (s *Service) UserCarts(ctx context.Context, userID uint) ([]models.Cart, error) {
	return s.Repo.CartsByUser(ctx, userID)
}
