package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/phucthaihg/wallpaper-ecommerce/internal/identity"
	authmw "github.com/phucthaihg/wallpaper-ecommerce/internal/middleware/auth"
	"github.com/phucthaihg/wallpaper-ecommerce/internal/models"
	"github.com/phucthaihg/wallpaper-ecommerce/internal/repo"
	authsvc "github.com/phucthaihg/wallpaper-ecommerce/internal/service/auth"
	cartsvc "github.com/phucthaihg/wallpaper-ecommerce/internal/service/cart"
	catalogsvc "github.com/phucthaihg/wallpaper-ecommerce/internal/service/catalog"
)

var testSecret = []byte("test-secret")

type testApp struct {
	e    *echo.Echo
	repo *repo.GormRepo
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

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

	r := &repo.GormRepo{DB: db}
	resolver := &identity.Resolver{JWTSecret: testSecret}

	e := echo.New()
	Register(e, &Deps{
		AuthHandler:    &AuthHTTP{Svc: &authsvc.Service{Repo: r, JWTSecret: testSecret}},
		CartHandler:    &CartHTTP{Svc: &cartsvc.Service{Repo: r}, Resolver: resolver},
		CatalogHandler: &CatalogHTTP{Svc: &catalogsvc.Service{Repo: r}},
		SearchHandler:  &SearchHTTP{},
		AuthMW:         &authmw.Middleware{JWTSecret: testSecret},
	})

	return &testApp{e: e, repo: r}
}

func (a *testApp) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func (a *testApp) seedProduct(t *testing.T, slug string, price float64, stock uint) *models.Product {
	t.Helper()

	category := models.Category{Name: "Wallpaper", Slug: "wallpaper"}
	require.NoError(t, a.repo.DB.FirstOrCreate(&category, models.Category{Slug: "wallpaper"}).Error)

	p := &models.Product{
		Name: "Test Wallpaper", Slug: slug,
		Price: price, StockQuantity: stock, CategoryID: &category.ID,
	}
	require.NoError(t, a.repo.DB.Create(p).Error)
	return p
}

func (a *testApp) login(t *testing.T, email, role string) *http.Cookie {
	t.Helper()

	rec := a.do(t, http.MethodPost, "/api/v1/register", map[string]any{
		"email": email, "password": "s3cret",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	if role != "customer" {
		require.NoError(t, a.repo.DB.Model(&models.User{}).
			Where("email = ?", email).Update("role", role).Error)
	}

	rec = a.do(t, http.MethodPost, "/api/v1/login", map[string]any{
		"email": email, "password": "s3cret",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == "accessToken" {
			return cookie
		}
	}
	t.Fatal("login response did not set accessToken cookie")
	return nil
}

func sessionCookie(id string) *http.Cookie {
	return &http.Cookie{Name: "sessionId", Value: id}
}

func TestNewSession(t *testing.T) {
	a := newTestApp(t)

	rec := a.do(t, http.MethodPost, "/api/v1/session", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode(t, rec)["sessionId"])

	var found bool
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == "sessionId" && cookie.Value != "" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestGuestCartFlow(t *testing.T) {
	a := newTestApp(t)
	product := a.seedProduct(t, "gold-damask", 25, 10)
	sess := sessionCookie("sess-1")

	rec := a.do(t, http.MethodPost, "/api/v1/cart", map[string]any{
		"productId": product.ID, "quantity": 2,
		"specifications": map[string]string{"color": "gold"},
	}, sess)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/v1/cart", nil, sess)
	require.Equal(t, http.StatusOK, rec.Code)
	cart := decode(t, rec)
	assert.Equal(t, 50.0, cart["subtotal"])
	assert.Equal(t, 55.0, cart["total"])
	assert.Len(t, cart["items"], 1)
}

func TestAddToCart_SessionHeader(t *testing.T) {
	a := newTestApp(t)
	product := a.seedProduct(t, "gold-damask", 25, 10)

	body, err := json.Marshal(map[string]any{"productId": product.ID, "quantity": 1})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart", bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("X-Session-Id", "sess-header")
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	cart, err := a.repo.ActiveCart(context.Background(), nil, "sess-header")
	require.NoError(t, err)
	require.NotNil(t, cart)
	assert.Len(t, cart.Items, 1)
}

func TestAddToCart_InsufficientStock(t *testing.T) {
	a := newTestApp(t)
	product := a.seedProduct(t, "gold-damask", 25, 5)

	rec := a.do(t, http.MethodPost, "/api/v1/cart", map[string]any{
		"productId": product.ID, "quantity": 6,
	}, sessionCookie("sess-1"))

	require.Equal(t, http.StatusConflict, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, 5.0, body["available"])
	assert.Equal(t, 6.0, body["requested"])
}

func TestAddToCart_NoIdentity(t *testing.T) {
	a := newTestApp(t)
	product := a.seedProduct(t, "gold-damask", 25, 5)

	rec := a.do(t, http.MethodPost, "/api/v1/cart", map[string]any{
		"productId": product.ID, "quantity": 1,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRemoveCartItem(t *testing.T) {
	a := newTestApp(t)
	product := a.seedProduct(t, "gold-damask", 25, 10)
	sess := sessionCookie("sess-1")

	rec := a.do(t, http.MethodPost, "/api/v1/cart", map[string]any{
		"productId": product.ID, "quantity": 1,
	}, sess)
	require.Equal(t, http.StatusCreated, rec.Code)
	itemID := decode(t, rec)["id"]
	require.NotNil(t, itemID)

	path := "/api/v1/cart/items/" + jsonNumber(itemID)
	rec = a.do(t, http.MethodDelete, path, nil, sess)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodDelete, path, nil, sess)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(t, http.MethodDelete, "/api/v1/cart/items/abc", nil, sess)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCouponEndpoints(t *testing.T) {
	a := newTestApp(t)
	product := a.seedProduct(t, "gold-damask", 50, 10)
	sess := sessionCookie("sess-1")

	require.NoError(t, a.repo.DB.Create(&models.Coupon{
		Code: "SALE10", Type: models.CouponTypePercentage, Value: 10,
		IsActive: true, ExpiresAt: time.Now().Add(time.Hour),
	}).Error)

	rec := a.do(t, http.MethodPost, "/api/v1/cart", map[string]any{
		"productId": product.ID, "quantity": 2,
	}, sess)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/v1/cart/coupon", map[string]any{"code": "SALE10"}, sess)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10.0, decode(t, rec)["discount"])

	rec = a.do(t, http.MethodGet, "/api/v1/cart/summary", nil, sess)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode(t, rec)
	assert.Equal(t, 100.0, summary["subtotal"])
	assert.Equal(t, 100.0, summary["total"])

	rec = a.do(t, http.MethodPost, "/api/v1/cart/coupon", map[string]any{"code": "BOGUS"}, sess)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodDelete, "/api/v1/cart/coupon", nil, sess)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/v1/cart/summary", nil, sess)
	assert.Equal(t, 110.0, decode(t, rec)["total"])
}

func TestMergeCarts(t *testing.T) {
	a := newTestApp(t)
	product := a.seedProduct(t, "gold-damask", 10, 100)
	sess := sessionCookie("sess-1")

	rec := a.do(t, http.MethodPost, "/api/v1/cart", map[string]any{
		"productId": product.ID, "quantity": 2,
	}, sess)
	require.Equal(t, http.StatusCreated, rec.Code)

	token := a.login(t, "anna@example.com", "customer")

	rec = a.do(t, http.MethodPost, "/api/v1/cart", map[string]any{
		"productId": product.ID, "quantity": 3,
	}, token)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/v1/cart/merge", nil, token, sess)
	require.Equal(t, http.StatusOK, rec.Code)
	merged := decode(t, rec)
	items := merged["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, 5.0, items[0].(map[string]any)["quantity"])
	assert.Equal(t, 50.0, merged["subtotal"])

	// Without a token the merge route is closed.
	rec = a.do(t, http.MethodPost, "/api/v1/cart/merge", nil, sess)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSaveAndMoveItem(t *testing.T) {
	a := newTestApp(t)
	product := a.seedProduct(t, "gold-damask", 10, 100)
	token := a.login(t, "anna@example.com", "customer")

	rec := a.do(t, http.MethodPost, "/api/v1/cart", map[string]any{
		"productId": product.ID, "quantity": 2,
	}, token)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := jsonNumber(decode(t, rec)["id"])

	rec = a.do(t, http.MethodPost, "/api/v1/cart/items/"+id+"/save", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/v1/cart/summary", nil, token)
	assert.Equal(t, 0.0, decode(t, rec)["subtotal"])

	rec = a.do(t, http.MethodPost, "/api/v1/cart/items/"+id+"/move", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/v1/cart/summary", nil, token)
	assert.Equal(t, 20.0, decode(t, rec)["subtotal"])
}

func TestAdminRoutes_Guarded(t *testing.T) {
	a := newTestApp(t)

	rec := a.do(t, http.MethodPost, "/api/v1/admin/categories", map[string]any{"name": "Wallpaper"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	customer := a.login(t, "anna@example.com", "customer")
	rec = a.do(t, http.MethodPost, "/api/v1/admin/categories", map[string]any{"name": "Wallpaper"}, customer)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin := a.login(t, "boss@example.com", "admin")
	rec = a.do(t, http.MethodPost, "/api/v1/admin/categories", map[string]any{"name": "Wallpaper"}, admin)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "wallpaper", decode(t, rec)["slug"])
}

func TestCategoryAndProductReads(t *testing.T) {
	a := newTestApp(t)
	product := a.seedProduct(t, "gold-damask", 25, 10)

	rec := a.do(t, http.MethodGet, "/api/v1/categories", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/v1/products", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode(t, rec)
	meta := list["meta"].(map[string]any)
	assert.Equal(t, 1.0, meta["total"])
	assert.Len(t, list["data"], 1)

	rec = a.do(t, http.MethodGet, "/api/v1/products/"+jsonNumber(float64(product.ID)), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/v1/products/9999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/v1/products/slug/gold-damask", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(product.ID), decode(t, rec)["id"])

	rec = a.do(t, http.MethodGet, "/api/v1/products/slug/no-such-slug", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearch_UnavailableWithoutElasticsearch(t *testing.T) {
	a := newTestApp(t)

	rec := a.do(t, http.MethodGet, "/api/v1/search?q=damask", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealth(t *testing.T) {
	a := newTestApp(t)
	rec := a.do(t, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func jsonNumber(v any) string {
	f, _ := v.(float64)
	return strconv.Itoa(int(f))
}
