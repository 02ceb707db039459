package httpserver

import (
	"net/http"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"

	"github.com/phucthaihg/wallpaper-ecommerce/internal/service/search"
	"github.com/phucthaihg/wallpaper-ecommerce/internal/util"
	"github.com/phucthaihg/wallpaper-ecommerce/pkg/logging"
)

type SearchHTTP struct {
	ES *elasticsearch.Client
}

func (h *SearchHTTP) Search(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "search")

	// The server starts without a client when Elasticsearch is down.
	if h.ES == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]any{"message": "search unavailable"})
	}

	query := c.QueryParam("q")
	if query == "" {
		return c.JSON(http.StatusBadRequest, map[string]any{"message": "query parameter q is required"})
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	from, limit := util.Calculate(page, size)

	total, products, err := search.Search(ctx, h.ES, query, from, limit)
	if err != nil {
		l.Error("search error", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]any{"message": "internal error"})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": products,
		"meta": map[string]any{
			"page":  page,
			"size":  limit,
			"total": total,
		},
	})
}
