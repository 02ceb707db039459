package identity

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Principal identifies who a cart belongs to. UserID is set when the
// request carries a valid access token; SessionID is read from the
// sessionId cookie or X-Session-Id header regardless of auth state, so a
// freshly logged-in request still exposes its stale guest session for
// merging. Both empty means "no identifiable cart", not an error.
type Principal struct {
	UserID    *uint
	SessionID string
}

func (p Principal) Known() bool {
	return p.UserID != nil || p.SessionID != ""
}

type Resolver struct {
	JWTSecret []byte
}

func (r *Resolver) Resolve(c echo.Context) Principal {
	p := Principal{SessionID: sessionID(c)}

	if id, err := userID(c, r.JWTSecret); err == nil {
		p.UserID = &id
	}
	return p
}

func sessionID(c echo.Context) string {
	if cookie, err := c.Cookie("sessionId"); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return c.Request().Header.Get("X-Session-Id")
}

func userID(c echo.Context, secret []byte) (uint, error) {
	cookie, err := c.Cookie("accessToken")
	if err != nil || cookie.Value == "" {
		return 0, fmt.Errorf("missing auth cookie")
	}

	token, err := jwt.Parse(cookie.Value, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return 0, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, fmt.Errorf("invalid token claims")
	}
	subRaw, ok := claims["sub"].(float64)
	if !ok {
		return 0, fmt.Errorf("invalid subject claim")
	}

	return uint(subRaw), nil
}
