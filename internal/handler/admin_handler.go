package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/caribe-transfers/service-transfer/internal/application"
	"github.com/caribe-transfers/service-transfer/internal/platform/auth"
	"github.com/caribe-transfers/service-transfer/internal/platform/middleware"
	"github.com/caribe-transfers/service-transfer/internal/platform/response"
)

const maxImportSize = 5 << 20

// AdminTransferHandler handles admin HTTP requests for catalog maintenance.
type AdminTransferHandler struct {
	service *application.CatalogService
	logger  *zap.Logger
}

// NewAdminTransferHandler creates a new AdminTransferHandler.
func NewAdminTransferHandler(service *application.CatalogService, logger *zap.Logger) *AdminTransferHandler {
	return &AdminTransferHandler{service: service, logger: logger}
}

// RegisterRoutes registers admin transfer routes.
func (h *AdminTransferHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	adminRole := middleware.RequireRole(auth.RoleAdmin)

	admin := r.Group("/api/v1/admin/transfers")
	admin.Use(authMW, adminRole)
	{
		admin.GET("/zones", h.ListZones)
		admin.PUT("/zones", h.UpsertZone)
		admin.PUT("/zones/:id", h.UpdateZone)
		admin.DELETE("/zones/:id", h.DeleteZone)

		admin.GET("/locations", h.ListLocations)
		admin.PUT("/locations", h.UpsertLocation)
		admin.POST("/locations/import", h.ImportLocations)
		admin.POST("/locations/:id/toggle", h.ToggleLocation)

		admin.GET("/vehicles", h.ListVehicles)
		admin.POST("/vehicles", h.CreateVehicle)
		admin.PUT("/vehicles/:id", h.UpdateVehicle)
		admin.POST("/vehicles/:id/toggle", h.ToggleVehicle)

		admin.GET("/routes", h.ListRoutes)
		admin.POST("/routes", h.CreateRoute)
		admin.PUT("/routes/:id/prices", h.UpsertRoutePrice)
		admin.PUT("/routes/:id/overrides", h.UpsertOverride)
		admin.DELETE("/routes/:id/overrides/:overrideId", h.DeleteOverride)
	}
}

// ListZones handles GET /api/v1/admin/transfers/zones.
func (h *AdminTransferHandler) ListZones(c *gin.Context) {
	zones, err := h.service.ListZones(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, zones)
}

// UpsertZone handles PUT /api/v1/admin/transfers/zones.
func (h *AdminTransferHandler) UpsertZone(c *gin.Context) {
	var req application.ZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	zone, err := h.service.UpsertZone(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.audit(c, "zone upserted", zone.ID)
	response.Success(c, zone)
}

// UpdateZone handles PUT /api/v1/admin/transfers/zones/:id.
func (h *AdminTransferHandler) UpdateZone(c *gin.Context) {
	var req application.ZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	zone, err := h.service.UpdateZone(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.audit(c, "zone updated", zone.ID)
	response.Success(c, zone)
}

// DeleteZone handles DELETE /api/v1/admin/transfers/zones/:id.
func (h *AdminTransferHandler) DeleteZone(c *gin.Context) {
	id := c.Param("id")
	if err := h.service.DeleteZone(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	h.audit(c, "zone deleted", id)
	c.Status(http.StatusNoContent)
}

// ListLocations handles GET /api/v1/admin/transfers/locations, including inactive ones
// unless active=true is passed.
func (h *AdminTransferHandler) ListLocations(c *gin.Context) {
	page, limit := parsePagination(c, 50, 500)
	result, err := h.service.ListLocations(c.Request.Context(), application.ListLocationsQuery{
		ZoneID:     c.Query("zone_id"),
		Type:       c.Query("type"),
		ActiveOnly: c.Query("active") == "true",
		Page:       page,
		Limit:      limit,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// UpsertLocation handles PUT /api/v1/admin/transfers/locations.
func (h *AdminTransferHandler) UpsertLocation(c *gin.Context) {
	var req application.LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	loc, err := h.service.UpsertLocation(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.audit(c, "location upserted", loc.ID)
	response.Success(c, loc)
}

// ImportLocations handles POST /api/v1/admin/transfers/locations/import.
// It expects a multipart form with a csvFile part and an optional zoneId.
func (h *AdminTransferHandler) ImportLocations(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportSize)

	fileHeader, err := c.FormFile("csvFile")
	if err != nil {
		response.BadRequest(c, "a csvFile upload is required")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.BadRequest(c, "could not read the uploaded file")
		return
	}
	defer file.Close()

	result, err := h.service.ImportLocations(c.Request.Context(), file, strings.TrimSpace(c.PostForm("zoneId")))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.audit(c, "locations imported", fileHeader.Filename)
	response.Success(c, result)
}

// ToggleLocation handles POST /api/v1/admin/transfers/locations/:id/toggle.
func (h *AdminTransferHandler) ToggleLocation(c *gin.Context) {
	loc, err := h.service.ToggleLocation(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.audit(c, "location toggled", loc.ID)
	response.Success(c, loc)
}

// ListVehicles handles GET /api/v1/admin/transfers/vehicles.
func (h *AdminTransferHandler) ListVehicles(c *gin.Context) {
	vehicles, err := h.service.ListVehicles(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, vehicles)
}

// CreateVehicle handles POST /api/v1/admin/transfers/vehicles.
func (h *AdminTransferHandler) CreateVehicle(c *gin.Context) {
	var req application.VehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	v, err := h.service.CreateVehicle(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.audit(c, "vehicle created", v.ID)
	response.Created(c, v)
}

// UpdateVehicle handles PUT /api/v1/admin/transfers/vehicles/:id.
func (h *AdminTransferHandler) UpdateVehicle(c *gin.Context) {
	var req application.VehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	v, err := h.service.UpdateVehicle(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.audit(c, "vehicle updated", v.ID)
	response.Success(c, v)
}

// ToggleVehicle handles POST /api/v1/admin/transfers/vehicles/:id/toggle.
func (h *AdminTransferHandler) ToggleVehicle(c *gin.Context) {
	v, err := h.service.ToggleVehicle(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.audit(c, "vehicle toggled", v.ID)
	response.Success(c, v)
}

// ListRoutes handles GET /api/v1/admin/transfers/routes.
func (h *AdminTransferHandler) ListRoutes(c *gin.Context) {
	routes, err := h.service.ListRoutes(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, routes)
}

// CreateRoute handles POST /api/v1/admin/transfers/routes.
func (h *AdminTransferHandler) CreateRoute(c *gin.Context) {
	var req application.RouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	route, err := h.service.CreateRoute(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.audit(c, "route saved", route.ID)
	response.Success(c, route)
}

// UpsertRoutePrice handles PUT /api/v1/admin/transfers/routes/:id/prices.
func (h *AdminTransferHandler) UpsertRoutePrice(c *gin.Context) {
	var req application.RoutePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	routeID := c.Param("id")
	if err := h.service.UpsertRoutePrice(c.Request.Context(), routeID, req); err != nil {
		response.Error(c, err)
		return
	}
	h.audit(c, "route price saved", routeID)
	response.Success(c, gin.H{"route_id": routeID, "vehicle_id": req.VehicleID, "price": req.Price})
}

// UpsertOverride handles PUT /api/v1/admin/transfers/routes/:id/overrides.
func (h *AdminTransferHandler) UpsertOverride(c *gin.Context) {
	var req application.OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	override, err := h.service.UpsertOverride(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.audit(c, "price override saved", override.ID)
	response.Success(c, override)
}

// DeleteOverride handles DELETE /api/v1/admin/transfers/routes/:id/overrides/:overrideId.
func (h *AdminTransferHandler) DeleteOverride(c *gin.Context) {
	overrideID := c.Param("overrideId")
	if err := h.service.DeleteOverride(c.Request.Context(), c.Param("id"), overrideID); err != nil {
		response.Error(c, err)
		return
	}
	h.audit(c, "price override deleted", overrideID)
	c.Status(http.StatusNoContent)
}

func (h *AdminTransferHandler) audit(c *gin.Context, action, target string) {
	fields := []zap.Field{zap.String("target", target)}
	if userID, ok := middleware.GetUserID(c); ok {
		fields = append(fields, zap.String("admin_id", userID.String()))
	}
	h.logger.Info(action, fields...)
}
