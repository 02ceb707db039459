package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	authsvc "github.com/phucthaihg/wallpaper-ecommerce/internal/service/auth"
	"github.com/phucthaihg/wallpaper-ecommerce/pkg/logging"
)

type AuthHTTP struct {
	Svc *authsvc.Service
}

func createCookie(name, value, path string, exp time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  exp,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

func deleteCookie(name, path string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	var req struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"message": "invalid body"})
	}

	user, err := h.Svc.Register(ctx, req.Email, req.Password, req.FirstName, req.LastName)
	switch {
	case errors.Is(err, authsvc.ErrEmailTaken):
		return c.JSON(http.StatusConflict, map[string]any{"message": "email already registered"})
	case errors.Is(err, authsvc.ErrValidation):
		return c.JSON(http.StatusBadRequest, map[string]any{"message": err.Error()})
	case err != nil:
		l.Error("register error", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]any{"message": "internal error"})
	}

	l.Info("user registered", "userID", user.ID)
	return c.JSON(http.StatusCreated, user)
}

// Login sets the access token cookie and ensures a session cookie is in
// place so the client can merge its guest cart right after.
func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"message": "invalid body"})
	}

	user, token, err := h.Svc.Login(ctx, req.Email, req.Password)
	switch {
	case errors.Is(err, authsvc.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, map[string]any{"message": "invalid email or password"})
	case err != nil:
		l.Error("login error", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]any{"message": "internal error"})
	}

	c.SetCookie(createCookie("accessToken", token, "/", time.Now().Add(authsvc.AccessTTL)))

	l.Info("user logged in", "userID", user.ID)
	return c.JSON(http.StatusOK, map[string]any{"user": user})
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	c.SetCookie(deleteCookie("accessToken", "/"))
	return c.JSON(http.StatusOK, map[string]any{"message": "logged out"})
}

// NewSession hands a guest a fresh opaque session id for cart tracking.
func (h *AuthHTTP) NewSession(c echo.Context) error {
	sid := uuid.NewString()
	c.SetCookie(createCookie("sessionId", sid, "/", time.Now().Add(7*24*time.Hour)))
	return c.JSON(http.StatusOK, map[string]any{"sessionId": sid})
}
