package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	domain "github.com/phucthaihg/wallpaper-ecommerce/internal/domain/cart"
	"github.com/phucthaihg/wallpaper-ecommerce/internal/identity"
	"github.com/phucthaihg/wallpaper-ecommerce/internal/middleware/auth"
	"github.com/phucthaihg/wallpaper-ecommerce/internal/models"
	"github.com/phucthaihg/wallpaper-ecommerce/internal/mykafka"
	cartsvc "github.com/phucthaihg/wallpaper-ecommerce/internal/service/cart"
	"github.com/phucthaihg/wallpaper-ecommerce/pkg/logging"
)

type CartHTTP struct {
	Svc      *cartsvc.Service
	Resolver *identity.Resolver
	Producer *mykafka.Producer
}

func (h *CartHTTP) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	key, _ := event["owner"].(string)
	if err := h.Producer.PublishEvent(ctx, "cart_events", key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish error", "error", err)
	}
}

func owner(p identity.Principal) string {
	if p.UserID != nil {
		return "user:" + strconv.FormatUint(uint64(*p.UserID), 10)
	}
	if p.SessionID != "" {
		return "session:" + p.SessionID
	}
	return "anonymous"
}

// cartError maps the domain taxonomy onto HTTP responses with enough
// structured fields for the storefront to render a message.
func cartError(c echo.Context, err error) error {
	var stockErr *domain.InsufficientStockError
	var minErr *domain.MinimumNotMetError

	l := logging.FromContext(c.Request().Context())
	switch {
	case errors.As(err, &stockErr):
		return c.JSON(http.StatusConflict, map[string]any{
			"message":   "not enough stock",
			"available": stockErr.Available,
			"requested": stockErr.Requested,
		})
	case errors.As(err, &minErr):
		return c.JSON(http.StatusBadRequest, map[string]any{
			"message":  "minimum purchase amount not met",
			"required": minErr.Required,
			"current":  minErr.Current,
		})
	case errors.Is(err, domain.ErrInvalidCoupon):
		return c.JSON(http.StatusBadRequest, map[string]any{"message": "invalid or expired coupon"})
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]any{"message": err.Error()})
	case errors.Is(err, domain.ErrValidation):
		return c.JSON(http.StatusBadRequest, map[string]any{"message": err.Error()})
	default:
		l.Error("cart handler error", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]any{"message": "internal error"})
	}
}

func itemID(c echo.Context) (uint, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	p := h.Resolver.Resolve(c)

	view, err := h.Svc.GetCart(ctx, p)
	if err != nil {
		return cartError(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *CartHTTP) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add")
	p := h.Resolver.Resolve(c)

	var req struct {
		ProductID      uint           `json:"productId"`
		Quantity       uint           `json:"quantity"`
		Specifications models.JSONMap `json:"specifications"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("bad request body", "error", err)
		return c.JSON(http.StatusBadRequest, map[string]any{"message": "invalid body"})
	}

	item, err := h.Svc.AddItem(ctx, p, req.ProductID, req.Quantity, req.Specifications)
	if err != nil {
		return cartError(c, err)
	}

	h.publish(c, map[string]any{
		"type":      "cart_item_added",
		"owner":     owner(p),
		"productID": item.ProductID,
		"quantity":  item.Quantity,
	})
	return c.JSON(http.StatusCreated, item)
}

func (h *CartHTTP) UpdateCartItem(c echo.Context) error {
	ctx := c.Request().Context()
	p := h.Resolver.Resolve(c)

	id, err := itemID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"message": "invalid id"})
	}

	var req struct {
		Quantity       *uint          `json:"quantity"`
		Specifications models.JSONMap `json:"specifications"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"message": "invalid body"})
	}

	item, err := h.Svc.UpdateItem(ctx, id, req.Quantity, req.Specifications)
	if err != nil {
		return cartError(c, err)
	}

	h.publish(c, map[string]any{
		"type":     "cart_item_updated",
		"owner":    owner(p),
		"itemID":   item.ID,
		"quantity": item.Quantity,
	})
	return c.JSON(http.StatusOK, item)
}

func (h *CartHTTP) RemoveCartItem(c echo.Context) error {
	ctx := c.Request().Context()
	p := h.Resolver.Resolve(c)

	id, err := itemID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"message": "invalid id"})
	}

	if err := h.Svc.RemoveItem(ctx, id); err != nil {
		return cartError(c, err)
	}

	h.publish(c, map[string]any{
		"type":   "cart_item_removed",
		"owner":  owner(p),
		"itemID": id,
	})
	return c.JSON(http.StatusOK, map[string]any{"message": "item removed from cart"})
}

func (h *CartHTTP) ClearCart(c echo.Context) error {
	ctx := c.Request().Context()
	p := h.Resolver.Resolve(c)

	if err := h.Svc.ClearCart(ctx, p); err != nil {
		return cartError(c, err)
	}

	h.publish(c, map[string]any{
		"type":  "cart_cleared",
		"owner": owner(p),
	})
	return c.JSON(http.StatusOK, map[string]any{"message": "cart cleared"})
}

func (h *CartHTTP) ApplyCoupon(c echo.Context) error {
	ctx := c.Request().Context()
	p := h.Resolver.Resolve(c)

	var req struct {
		Code string `json:"code"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"message": "invalid body"})
	}

	result, err := h.Svc.ApplyCoupon(ctx, p, req.Code)
	if err != nil {
		return cartError(c, err)
	}

	h.publish(c, map[string]any{
		"type":     "coupon_applied",
		"owner":    owner(p),
		"code":     result.Code,
		"discount": result.Discount,
	})
	return c.JSON(http.StatusOK, result)
}

func (h *CartHTTP) RemoveCoupon(c echo.Context) error {
	ctx := c.Request().Context()
	p := h.Resolver.Resolve(c)

	if err := h.Svc.RemoveCoupon(ctx, p); err != nil {
		return cartError(c, err)
	}

	h.publish(c, map[string]any{
		"type":  "coupon_removed",
		"owner": owner(p),
	})
	return c.JSON(http.StatusOK, map[string]any{"message": "coupon removed"})
}

func (h *CartHTTP) GetCartSummary(c echo.Context) error {
	ctx := c.Request().Context()
	p := h.Resolver.Resolve(c)

	totals, err := h.Svc.Summary(ctx, p)
	if err != nil {
		return cartError(c, err)
	}
	return c.JSON(http.StatusOK, totals)
}

// MergeCarts folds the guest cart named by the session cookie into the
// authenticated user's cart. Clients call it right after login.
func (h *CartHTTP) MergeCarts(c echo.Context) error {
	ctx := c.Request().Context()
	p := h.Resolver.Resolve(c)

	userID, ok := auth.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]any{"message": "unauthorized"})
	}

	view, err := h.Svc.Merge(ctx, userID, p.SessionID)
	if err != nil {
		return cartError(c, err)
	}

	h.publish(c, map[string]any{
		"type":      "carts_merged",
		"owner":     "user:" + strconv.FormatUint(uint64(userID), 10),
		"sessionID": p.SessionID,
	})
	return c.JSON(http.StatusOK, view)
}

func (h *CartHTTP) SaveForLater(c echo.Context) error {
	ctx := c.Request().Context()
	p := h.Resolver.Resolve(c)

	id, err := itemID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"message": "invalid id"})
	}

	item, err := h.Svc.SaveForLater(ctx, id)
	if err != nil {
		return cartError(c, err)
	}

	h.publish(c, map[string]any{
		"type":   "item_saved",
		"owner":  owner(p),
		"itemID": item.ID,
	})
	return c.JSON(http.StatusOK, item)
}

func (h *CartHTTP) MoveToCart(c echo.Context) error {
	ctx := c.Request().Context()
	p := h.Resolver.Resolve(c)

	id, err := itemID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"message": "invalid id"})
	}

	item, err := h.Svc.MoveToCart(ctx, id)
	if err != nil {
		return cartError(c, err)
	}

	h.publish(c, map[string]any{
		"type":   "item_moved",
		"owner":  owner(p),
		"itemID": item.ID,
	})
	return c.JSON(http.StatusOK, item)
}

func (h *CartHTTP) GetUserCarts(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := auth.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]any{"message": "unauthorized"})
	}

	carts, err := h.Svc.UserCarts(ctx, userID)
	if err != nil {
		return cartError(c, err)
	}
	return c.JSON(http.StatusOK, carts)
}
