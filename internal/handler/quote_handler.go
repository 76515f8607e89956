package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/caribe-transfers/service-transfer/internal/application"
	"github.com/caribe-transfers/service-transfer/internal/platform/response"
)

// QuoteHandler handles the public transfer endpoints.
type QuoteHandler struct {
	quotes  *application.QuoteService
	catalog *application.CatalogService
}

// NewQuoteHandler creates a new QuoteHandler.
func NewQuoteHandler(quotes *application.QuoteService, catalog *application.CatalogService) *QuoteHandler {
	return &QuoteHandler{quotes: quotes, catalog: catalog}
}

// RegisterRoutes registers the public transfer routes on the given router group.
func (h *QuoteHandler) RegisterRoutes(r *gin.RouterGroup) {
	transfers := r.Group("/api/v1/transfers")
	{
		transfers.POST("/quote", h.Quote)
		transfers.GET("/quote/:originSlug/:destinationSlug", h.QuoteBySlugs)
		transfers.GET("/locations", h.ListLocations)
	}
}

// Quote handles POST /api/v1/transfers/quote. Success bodies are the bare
// quote, without the response envelope.
func (h *QuoteHandler) Quote(c *gin.Context) {
	var req application.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "origin_location_id, destination_location_id and a numeric passengers count are required")
		return
	}

	result, err := h.quotes.Quote(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// QuoteBySlugs handles GET /api/v1/transfers/quote/:originSlug/:destinationSlug.
// passengers is optional and defaults to two.
func (h *QuoteHandler) QuoteBySlugs(c *gin.Context) {
	req := application.SlugQuoteRequest{
		OriginSlug:      c.Param("originSlug"),
		DestinationSlug: c.Param("destinationSlug"),
	}
	if raw := c.Query("passengers"); raw != "" {
		passengers, err := strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(c, "passengers must be an integer")
			return
		}
		req.Passengers = passengers
	}

	result, err := h.quotes.QuoteBySlugs(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListLocations handles GET /api/v1/transfers/locations. Only active locations are listed.
func (h *QuoteHandler) ListLocations(c *gin.Context) {
	page, limit := parsePagination(c, 100, 500)

	result, err := h.catalog.ListLocations(c.Request.Context(), application.ListLocationsQuery{
		ZoneID:     c.Query("zone_id"),
		Type:       c.Query("type"),
		ActiveOnly: true,
		Page:       page,
		Limit:      limit,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

func parsePagination(c *gin.Context, defaultLimit, maxLimit int) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	return page, limit
}
