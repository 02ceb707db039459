package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"

	"github.com/phucthaihg/wallpaper-ecommerce/internal/models"
	"github.com/phucthaihg/wallpaper-ecommerce/internal/mykafka"
	"github.com/phucthaihg/wallpaper-ecommerce/internal/service/catalog"
	"github.com/phucthaihg/wallpaper-ecommerce/internal/service/search"
	"github.com/phucthaihg/wallpaper-ecommerce/internal/util"
	"github.com/phucthaihg/wallpaper-ecommerce/pkg/logging"
)

type CatalogHTTP struct {
	Svc      *catalog.Service
	Producer *mykafka.Producer
	ES       *elasticsearch.Client
}

func catalogError(c echo.Context, err error) error {
	l := logging.FromContext(c.Request().Context())
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]any{"message": err.Error()})
	case errors.Is(err, catalog.ErrValidation):
		return c.JSON(http.StatusBadRequest, map[string]any{"message": err.Error()})
	case errors.Is(err, catalog.ErrInUse):
		return c.JSON(http.StatusConflict, map[string]any{"message": err.Error()})
	default:
		l.Error("catalog handler error", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]any{"message": "internal error"})
	}
}

func pathID(c echo.Context) (uint, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}

func (h *CatalogHTTP) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	key, _ := event["type"].(string)
	if err := h.Producer.PublishEvent(ctx, "product_events", key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish error", "error", err)
	}
}

func (h *CatalogHTTP) index(c echo.Context, p *models.Product) {
	if h.ES == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := search.IndexProduct(ctx, h.ES, p); err != nil {
		logging.FromContext(c.Request().Context()).Error("index product error", "error", err)
	}
}

func (h *CatalogHTTP) GetCategories(c echo.Context) error {
	ctx := c.Request().Context()

	cats, err := h.Svc.Categories(ctx)
	if err != nil {
		return catalogError(c, err)
	}

	type categoryWithCount struct {
		models.Category
		ProductCount int64 `json:"productCount"`
	}
	out := make([]categoryWithCount, len(cats))
	for i, cat := range cats {
		n, err := h.Svc.ProductCount(ctx, cat.ID)
		if err != nil {
			return catalogError(c, err)
		}
		out[i] = categoryWithCount{Category: cat, ProductCount: n}
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CatalogHTTP) GetCategory(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"message": "invalid id"})
	}

	cat, err := h.Svc.CategoryByID(c.Request().Context(), id)
	if err != nil {
		return catalogError(c, err)
	}
	return c.JSON(http.StatusOK, cat)
}

func (h *CatalogHTTP) GetCategoryBySlug(c echo.Context) error {
	cat, err := h.Svc.CategoryBySlug(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return catalogError(c, err)
	}
	return c.JSON(http.StatusOK, cat)
}

func (h *CatalogHTTP) CreateCategory(c echo.Context) error {
	var req struct {
		Name         string `json:"name"`
		Description  string `json:"description"`
		Image        string `json:"image"`
		ParentID     *uint  `json:"parentId"`
		DisplayOrder int    `json:"displayOrder"`
		IsActive     *bool  `json:"isActive"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"message": "invalid body"})
	}

	cat, err := h.Svc.CreateCategory(c.Request().Context(), catalog.CategoryInput{
		Name:         req.Name,
		Description:  req.Description,
		Image:        req.Image,
		ParentID:     req.ParentID,
		DisplayOrder: req.DisplayOrder,
		IsActive:     req.IsActive,
	})
	if err != nil {
		return catalogError(c, err)
	}
	return c.JSON(http.StatusCreated, cat)
}

func (h *CatalogHTTP) UpdateCategory(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"message": "invalid id"})
	}

	var req struct {
		Name         string `json:"name"`
		Description  string `json:"description"`
		Image        string `json:"image"`
		ParentID     *uint  `json:"parentId"`
		DisplayOrder int    `json:"displayOrder"`
		IsActive     *bool  `json:"isActive"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"message": "invalid body"})
	}

	cat, err := h.Svc.UpdateCategory(c.Request().Context(), id, catalog.CategoryInput{
		Name:         req.Name,
		Description:  req.Description,
		Image:        req.Image,
		ParentID:     req.ParentID,
		DisplayOrder: req.DisplayOrder,
		IsActive:     req.IsActive,
	})
	if err != nil {
		return catalogError(c, err)
	}
	return c.JSON(http.StatusOK, cat)
}

func (h *CatalogHTTP) DeleteCategory(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"message": "invalid id"})
	}

	if err := h.Svc.DeleteCategory(c.Request().Context(), id); err != nil {
		return catalogError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"message": "category deleted"})
}

func (h *CatalogHTTP) GetProduct(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"message": "invalid id"})
	}

	p, err := h.Svc.ProductByID(c.Request().Context(), id)
	if err != nil {
		return catalogError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *CatalogHTTP) GetProductBySlug(c echo.Context) error {
	p, err := h.Svc.ProductBySlug(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return catalogError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *CatalogHTTP) GetProducts(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	var categoryID *uint
	if raw := c.QueryParam("categoryId"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			id := uint(v)
			categoryID = &id
		}
	}

	total, items, err := h.Svc.Products(c.Request().Context(), offset, limit, categoryID)
	if err != nil {
		return catalogError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]any{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

func (h *CatalogHTTP) CreateProduct(c echo.Context) error {
	var req productRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"message": "invalid body"})
	}

	p, err := h.Svc.CreateProduct(c.Request().Context(), req.input())
	if err != nil {
		return catalogError(c, err)
	}

	h.publish(c, map[string]any{
		"type":      "product_created",
		"productID": p.ID,
		"name":      p.Name,
	})
	h.index(c, p)
	return c.JSON(http.StatusCreated, p)
}

func (h *CatalogHTTP) UpdateProduct(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"message": "invalid id"})
	}

	var req productRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"message": "invalid body"})
	}

	p, err := h.Svc.UpdateProduct(c.Request().Context(), id, req.input())
	if err != nil {
		return catalogError(c, err)
	}

	h.publish(c, map[string]any{
		"type":      "product_updated",
		"productID": p.ID,
	})
	h.index(c, p)
	return c.JSON(http.StatusOK, p)
}

func (h *CatalogHTTP) DeleteProduct(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"message": "invalid id"})
	}

	if err := h.Svc.DeleteProduct(c.Request().Context(), id); err != nil {
		return catalogError(c, err)
	}

	h.publish(c, map[string]any{
		"type":      "product_deleted",
		"productID": id,
	})
	if h.ES != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()
		if err := search.DeleteProduct(ctx, h.ES, id); err != nil {
			logging.FromContext(c.Request().Context()).Error("deindex product error", "error", err)
		}
	}
	return c.JSON(http.StatusOK, map[string]any{"message": "product deleted"})
}

type productRequest struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Price         *float64 `json:"price"`
	StockQuantity *uint    `json:"stockQuantity"`
	CategoryID    *uint    `json:"categoryId"`
	FeaturedImage string   `json:"featuredImage"`
	IsActive      *bool    `json:"isActive"`
}

func (r productRequest) input() catalog.ProductInput {
	return catalog.ProductInput{
		Name:          r.Name,
		Description:   r.Description,
		Price:         r.Price,
		StockQuantity: r.StockQuantity,
		CategoryID:    r.CategoryID,
		FeaturedImage: r.FeaturedImage,
		IsActive:      r.IsActive,
	}
}

func (h *CatalogHTTP) GetTemplates(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"message": "invalid id"})
	}

	tpls, err := h.Svc.TemplatesByCategory(c.Request().Context(), id)
	if err != nil {
		return catalogError(c, err)
	}
	return c.JSON(http.StatusOK, tpls)
}

func (h *CatalogHTTP) CreateTemplate(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"message": "invalid id"})
	}

	var req templateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"message": "invalid body"})
	}

	tpl, err := h.Svc.CreateTemplate(c.Request().Context(), id, req.input())
	if err != nil {
		return catalogError(c, err)
	}
	return c.JSON(http.StatusCreated, tpl)
}

func (h *CatalogHTTP) UpdateTemplate(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"message": "invalid id"})
	}

	var req templateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"message": "invalid body"})
	}

	tpl, err := h.Svc.UpdateTemplate(c.Request().Context(), id, req.input())
	if err != nil {
		return catalogError(c, err)
	}
	return c.JSON(http.StatusOK, tpl)
}

func (h *CatalogHTTP) DeleteTemplate(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"message": "invalid id"})
	}

	if err := h.Svc.DeleteTemplate(c.Request().Context(), id); err != nil {
		return catalogError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"message": "template deleted"})
}

type templateRequest struct {
	Key          string         `json:"key"`
	Name         string         `json:"name"`
	Type         string         `json:"type"`
	Unit         string         `json:"unit"`
	Options      models.JSONMap `json:"options"`
	Required     *bool          `json:"required"`
	DisplayOrder int            `json:"displayOrder"`
}

func (r templateRequest) input() catalog.TemplateInput {
	return catalog.TemplateInput{
		Key:          r.Key,
		Name:         r.Name,
		Type:         r.Type,
		Unit:         r.Unit,
		Options:      r.Options,
		Required:     r.Required,
		DisplayOrder: r.DisplayOrder,
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}
