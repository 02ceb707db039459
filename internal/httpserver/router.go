package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/phucthaihg/wallpaper-ecommerce/internal/middleware/auth"
)

type Deps struct {
	AuthHandler    *AuthHTTP
	CartHandler    *CartHTTP
	CatalogHandler *CatalogHTTP
	SearchHandler  *SearchHTTP
	AuthMW         *auth.Middleware
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	v1 := e.Group("/api/v1")

	v1.POST("/register", d.AuthHandler.Register)
	v1.POST("/login", d.AuthHandler.Login)
	v1.POST("/logout", d.AuthHandler.Logout)
	v1.POST("/session", d.AuthHandler.NewSession)

	v1.GET("/search", d.SearchHandler.Search)

	categories := v1.Group("/categories")
	categories.GET("", d.CatalogHandler.GetCategories)
	categories.GET("/:id", d.CatalogHandler.GetCategory)
	categories.GET("/slug/:slug", d.CatalogHandler.GetCategoryBySlug)
	categories.GET("/:id/specifications", d.CatalogHandler.GetTemplates)

	products := v1.Group("/products")
	products.GET("", d.CatalogHandler.GetProducts)
	products.GET("/:id", d.CatalogHandler.GetProduct)
	products.GET("/slug/:slug", d.CatalogHandler.GetProductBySlug)

	admin := v1.Group("/admin", d.AuthMW.AdminOnly)
	admin.POST("/categories", d.CatalogHandler.CreateCategory)
	admin.PUT("/categories/:id", d.CatalogHandler.UpdateCategory)
	admin.DELETE("/categories/:id", d.CatalogHandler.DeleteCategory)
	admin.POST("/categories/:id/specifications", d.CatalogHandler.CreateTemplate)
	admin.POST("/products", d.CatalogHandler.CreateProduct)
	admin.PUT("/products/:id", d.CatalogHandler.UpdateProduct)
	admin.DELETE("/products/:id", d.CatalogHandler.DeleteProduct)
	admin.PUT("/specifications/:id", d.CatalogHandler.UpdateTemplate)
	admin.DELETE("/specifications/:id", d.CatalogHandler.DeleteTemplate)

	// Guest-accessible: identity comes from the session cookie when no
	// access token is present.
	cart := v1.Group("/cart")
	cart.GET("", d.CartHandler.GetCart)
	cart.POST("", d.CartHandler.AddToCart)
	cart.PUT("/items/:id", d.CartHandler.UpdateCartItem)
	cart.DELETE("/items/:id", d.CartHandler.RemoveCartItem)
	cart.DELETE("", d.CartHandler.ClearCart)
	cart.POST("/coupon", d.CartHandler.ApplyCoupon)
	cart.DELETE("/coupon", d.CartHandler.RemoveCoupon)
	cart.GET("/summary", d.CartHandler.GetCartSummary)

	cartAuth := v1.Group("/cart", d.AuthMW.RequireAuth)
	cartAuth.POST("/merge", d.CartHandler.MergeCarts)
	cartAuth.POST("/items/:id/save", d.CartHandler.SaveForLater)
	cartAuth.POST("/items/:id/move", d.CartHandler.MoveToCart)
	cartAuth.GET("/all", d.CartHandler.GetUserCarts)
}
