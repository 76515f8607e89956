package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	transferDomain "github.com/caribe-transfers/service-transfer/internal/domain/transfer"
	"github.com/caribe-transfers/service-transfer/internal/platform/domain"
)

// --- Requests ---

// ZoneRequest holds the data needed to create or update a zone.
type ZoneRequest struct {
	Name        string `json:"name" binding:"required"`
	Slug        string `json:"slug" binding:"required"`
	CountryCode string `json:"country_code" binding:"required"`
	Description string `json:"description"`
}

// LocationRequest holds the data needed to upsert a location by slug.
type LocationRequest struct {
	Name        string `json:"name" binding:"required"`
	Slug        string `json:"slug" binding:"required"`
	Type        string `json:"type" binding:"required"`
	ZoneID      string `json:"zone_id" binding:"required"`
	Description string `json:"description"`
	Address     string `json:"address"`
}

// VehicleRequest holds the data needed to create or update a vehicle.
type VehicleRequest struct {
	Name     string `json:"name" binding:"required"`
	Slug     string `json:"slug" binding:"required"`
	Category string `json:"category" binding:"required"`
	MinPax   int    `json:"min_pax" binding:"required"`
	MaxPax   int    `json:"max_pax" binding:"required"`
	ImageURL string `json:"image_url"`
}

// RouteRequest identifies the two zones a route connects, in any order.
type RouteRequest struct {
	ZoneAID string `json:"zone_a_id" binding:"required"`
	ZoneBID string `json:"zone_b_id" binding:"required"`
}

// RoutePriceRequest sets a vehicle's base price on a route, in USD.
type RoutePriceRequest struct {
	VehicleID string  `json:"vehicle_id" binding:"required"`
	Price     float64 `json:"price" binding:"required"`
}

// OverrideRequest sets an override price, in USD. At least one location must be set.
type OverrideRequest struct {
	VehicleID             string  `json:"vehicle_id" binding:"required"`
	OriginLocationID      string  `json:"origin_location_id"`
	DestinationLocationID string  `json:"destination_location_id"`
	Price                 float64 `json:"price" binding:"required"`
	Notes                 string  `json:"notes"`
}

// ListLocationsQuery filters location listings.
type ListLocationsQuery struct {
	ZoneID     string
	Type       string
	ActiveOnly bool
	Page       int
	Limit      int
}

// --- DTOs ---

// ZoneDTO is the response representation of a zone.
type ZoneDTO struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	CountryCode string    `json:"country_code"`
	Description string    `json:"description,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// LocationDTO is the response representation of a location.
type LocationDTO struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Type        string    `json:"type"`
	ZoneID      string    `json:"zone_id"`
	CountryCode string    `json:"country_code"`
	Description string    `json:"description,omitempty"`
	Address     string    `json:"address,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// VehicleDTO is the response representation of a vehicle.
type VehicleDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Category  string    `json:"category"`
	MinPax    int       `json:"min_pax"`
	MaxPax    int       `json:"max_pax"`
	ImageURL  string    `json:"image_url,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RouteDTO is the response representation of a route.
type RouteDTO struct {
	ID          string    `json:"id"`
	ZoneAID     string    `json:"zone_a_id"`
	ZoneBID     string    `json:"zone_b_id"`
	CountryCode string    `json:"country_code"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// OverrideDTO is the response representation of a price override.
type OverrideDTO struct {
	ID                    string  `json:"id"`
	RouteID               string  `json:"route_id"`
	VehicleID             string  `json:"vehicle_id"`
	OriginLocationID      string  `json:"origin_location_id,omitempty"`
	DestinationLocationID string  `json:"destination_location_id,omitempty"`
	Price                 float64 `json:"price"`
	Notes                 string  `json:"notes,omitempty"`
}

// CatalogService maintains zones, locations, vehicles, routes and prices.
// Every write that can change a quote invalidates the route snapshot cache.
type CatalogService struct {
	zones       transferDomain.ZoneRepository
	locations   transferDomain.LocationRepository
	vehicles    transferDomain.VehicleRepository
	routes      transferDomain.RouteRepository
	invalidator transferDomain.CacheInvalidator
	logger      *zap.Logger
}

// NewCatalogService creates a new CatalogService. invalidator may be nil when
// no route cache is configured.
func NewCatalogService(
	zones transferDomain.ZoneRepository,
	locations transferDomain.LocationRepository,
	vehicles transferDomain.VehicleRepository,
	routes transferDomain.RouteRepository,
	invalidator transferDomain.CacheInvalidator,
	logger *zap.Logger,
) *CatalogService {
	return &CatalogService{
		zones:       zones,
		locations:   locations,
		vehicles:    vehicles,
		routes:      routes,
		invalidator: invalidator,
		logger:      logger,
	}
}

// --- Zones ---

// UpsertZone creates a zone or updates the one with the same slug.
func (s *CatalogService) UpsertZone(ctx context.Context, req ZoneRequest) (*ZoneDTO, error) {
	existing, err := s.zones.FindBySlug(ctx, req.Slug)
	if err != nil && !domain.IsNotFound(err) {
		return nil, err
	}

	if existing != nil {
		if err := existing.Update(req.Name, req.Slug, req.CountryCode, req.Description); err != nil {
			return nil, err
		}
		if err := s.zones.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("failed to update zone: %w", err)
		}
		s.invalidate(ctx)
		dto := toZoneDTO(existing)
		return &dto, nil
	}

	zone, err := transferDomain.NewZone(req.Name, req.Slug, req.CountryCode, req.Description)
	if err != nil {
		return nil, err
	}
	if err := s.zones.Save(ctx, zone); err != nil {
		return nil, fmt.Errorf("failed to save zone: %w", err)
	}
	dto := toZoneDTO(zone)
	return &dto, nil
}

// UpdateZone updates a zone by id, refusing a slug already used by another zone.
func (s *CatalogService) UpdateZone(ctx context.Context, id string, req ZoneRequest) (*ZoneDTO, error) {
	zone, err := s.zones.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureZoneSlugFree(ctx, req.Slug, id); err != nil {
		return nil, err
	}
	if err := zone.Update(req.Name, req.Slug, req.CountryCode, req.Description); err != nil {
		return nil, err
	}
	if err := s.zones.Update(ctx, zone); err != nil {
		return nil, fmt.Errorf("failed to update zone: %w", err)
	}
	s.invalidate(ctx)
	dto := toZoneDTO(zone)
	return &dto, nil
}

// DeleteZone removes a zone that no location references.
func (s *CatalogService) DeleteZone(ctx context.Context, id string) error {
	if _, err := s.zones.FindByID(ctx, id); err != nil {
		return err
	}
	count, err := s.locations.CountByZone(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return domain.NewConflictError(fmt.Sprintf("zone has %d locations; move or delete them first", count))
	}
	if err := s.zones.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// ListZones returns every zone ordered by name.
func (s *CatalogService) ListZones(ctx context.Context) ([]ZoneDTO, error) {
	zones, err := s.zones.List(ctx)
	if err != nil {
		return nil, err
	}
	dtos := make([]ZoneDTO, len(zones))
	for i, z := range zones {
		dtos[i] = toZoneDTO(z)
	}
	return dtos, nil
}

func (s *CatalogService) ensureZoneSlugFree(ctx context.Context, slug, ownerID string) error {
	other, err := s.zones.FindBySlug(ctx, slug)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil
		}
		return err
	}
	if other.ID() != ownerID {
		return domain.NewConflictError(fmt.Sprintf("zone slug %q is already in use", slug))
	}
	return nil
}

// --- Locations ---

// UpsertLocation creates a location or updates the one with the same slug.
// The location inherits its country from the zone.
func (s *CatalogService) UpsertLocation(ctx context.Context, req LocationRequest) (*LocationDTO, error) {
	locType, err := transferDomain.ParseLocationType(req.Type)
	if err != nil {
		return nil, domain.NewValidationError(err.Error())
	}
	zone, err := s.zones.FindByID(ctx, req.ZoneID)
	if err != nil {
		return nil, err
	}

	loc, _, err := s.upsertLocation(ctx, transferDomain.LocationDetails{
		Name:        req.Name,
		Slug:        strings.TrimSpace(req.Slug),
		Type:        locType,
		Description: req.Description,
		Address:     req.Address,
	}, zone)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	dto := toLocationDTO(loc)
	return &dto, nil
}

// upsertLocation saves details under zone and reports whether a new row was created.
func (s *CatalogService) upsertLocation(ctx context.Context, details transferDomain.LocationDetails, zone *transferDomain.Zone) (*transferDomain.Location, bool, error) {
	existing, err := s.locations.FindBySlug(ctx, details.Slug)
	if err != nil && !domain.IsNotFound(err) {
		return nil, false, err
	}

	if existing != nil {
		if err := existing.Update(details, zone); err != nil {
			return nil, false, err
		}
		if err := s.locations.Update(ctx, existing); err != nil {
			return nil, false, fmt.Errorf("failed to update location: %w", err)
		}
		return existing, false, nil
	}

	loc, err := transferDomain.NewLocation(details, zone)
	if err != nil {
		return nil, false, err
	}
	if err := s.locations.Save(ctx, loc); err != nil {
		return nil, false, fmt.Errorf("failed to save location: %w", err)
	}
	return loc, true, nil
}

// ToggleLocation flips a location's active flag.
func (s *CatalogService) ToggleLocation(ctx context.Context, id string) (*LocationDTO, error) {
	loc, err := s.locations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	loc.ToggleActive()
	if err := s.locations.Update(ctx, loc); err != nil {
		return nil, fmt.Errorf("failed to update location: %w", err)
	}
	s.invalidate(ctx)
	dto := toLocationDTO(loc)
	return &dto, nil
}

// ListLocations returns a page of locations matching the query.
func (s *CatalogService) ListLocations(ctx context.Context, q ListLocationsQuery) (domain.PaginatedResult[LocationDTO], error) {
	filter := transferDomain.LocationFilter{
		ZoneID:     q.ZoneID,
		ActiveOnly: q.ActiveOnly,
		Page:       q.Page,
		Limit:      q.Limit,
	}
	if q.Type != "" {
		locType, err := transferDomain.ParseLocationType(q.Type)
		if err != nil {
			return domain.PaginatedResult[LocationDTO]{}, domain.NewValidationError(err.Error())
		}
		filter.Type = locType
	}

	locations, total, err := s.locations.List(ctx, filter)
	if err != nil {
		return domain.PaginatedResult[LocationDTO]{}, err
	}
	dtos := make([]LocationDTO, len(locations))
	for i, l := range locations {
		dtos[i] = toLocationDTO(l)
	}
	return domain.NewPaginatedResult(dtos, total, q.Page, q.Limit), nil
}

// --- Vehicles ---

// CreateVehicle adds a vehicle with a unique slug.
func (s *CatalogService) CreateVehicle(ctx context.Context, req VehicleRequest) (*VehicleDTO, error) {
	if err := s.ensureVehicleSlugFree(ctx, req.Slug, ""); err != nil {
		return nil, err
	}
	v, err := transferDomain.NewVehicle(toVehicleDetails(req))
	if err != nil {
		return nil, err
	}
	if err := s.vehicles.Save(ctx, v); err != nil {
		return nil, fmt.Errorf("failed to save vehicle: %w", err)
	}
	dto := toVehicleDTO(v)
	return &dto, nil
}

// UpdateVehicle replaces a vehicle's attributes.
func (s *CatalogService) UpdateVehicle(ctx context.Context, id string, req VehicleRequest) (*VehicleDTO, error) {
	v, err := s.vehicles.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureVehicleSlugFree(ctx, req.Slug, id); err != nil {
		return nil, err
	}
	if err := v.Update(toVehicleDetails(req)); err != nil {
		return nil, err
	}
	if err := s.vehicles.Update(ctx, v); err != nil {
		return nil, fmt.Errorf("failed to update vehicle: %w", err)
	}
	s.invalidate(ctx)
	dto := toVehicleDTO(v)
	return &dto, nil
}

// ToggleVehicle flips a vehicle's active flag.
func (s *CatalogService) ToggleVehicle(ctx context.Context, id string) (*VehicleDTO, error) {
	v, err := s.vehicles.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	v.ToggleActive()
	if err := s.vehicles.Update(ctx, v); err != nil {
		return nil, fmt.Errorf("failed to update vehicle: %w", err)
	}
	s.invalidate(ctx)
	dto := toVehicleDTO(v)
	return &dto, nil
}

// ListVehicles returns every vehicle.
func (s *CatalogService) ListVehicles(ctx context.Context) ([]VehicleDTO, error) {
	vehicles, err := s.vehicles.List(ctx)
	if err != nil {
		return nil, err
	}
	dtos := make([]VehicleDTO, len(vehicles))
	for i, v := range vehicles {
		dtos[i] = toVehicleDTO(v)
	}
	return dtos, nil
}

func (s *CatalogService) ensureVehicleSlugFree(ctx context.Context, slug, ownerID string) error {
	other, err := s.vehicles.FindBySlug(ctx, slug)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil
		}
		return err
	}
	if other.ID() != ownerID {
		return domain.NewConflictError(fmt.Sprintf("vehicle slug %q is already in use", slug))
	}
	return nil
}

// --- Routes ---

// CreateRoute creates the route between two zones, or reactivates the existing one.
func (s *CatalogService) CreateRoute(ctx context.Context, req RouteRequest) (*RouteDTO, error) {
	if req.ZoneAID == req.ZoneBID {
		return nil, domain.NewValidationError("a route must connect two different zones")
	}
	zoneA, err := s.zones.FindByID(ctx, req.ZoneAID)
	if err != nil {
		return nil, err
	}
	zoneB, err := s.zones.FindByID(ctx, req.ZoneBID)
	if err != nil {
		return nil, err
	}

	existing, err := s.routes.FindByZones(ctx, transferDomain.NewZonePair(zoneA.ID(), zoneB.ID()))
	if err != nil && !domain.IsNotFound(err) {
		return nil, err
	}
	if existing != nil {
		if !existing.IsActive() {
			existing.Activate()
			if err := s.routes.Update(ctx, existing); err != nil {
				return nil, fmt.Errorf("failed to reactivate route: %w", err)
			}
			s.invalidate(ctx)
		}
		dto := toRouteDTO(existing)
		return &dto, nil
	}

	route, err := transferDomain.NewRoute(zoneA, zoneB)
	if err != nil {
		return nil, err
	}
	if err := s.routes.Save(ctx, route); err != nil {
		if !domain.IsConflict(err) {
			return nil, fmt.Errorf("failed to save route: %w", err)
		}
		// A concurrent request created the route first.
		if route, err = s.routes.FindByZones(ctx, route.Zones()); err != nil {
			return nil, err
		}
	}
	s.invalidate(ctx)
	dto := toRouteDTO(route)
	return &dto, nil
}

// ListRoutes returns every route.
func (s *CatalogService) ListRoutes(ctx context.Context) ([]RouteDTO, error) {
	routes, err := s.routes.List(ctx)
	if err != nil {
		return nil, err
	}
	dtos := make([]RouteDTO, len(routes))
	for i, r := range routes {
		dtos[i] = toRouteDTO(r)
	}
	return dtos, nil
}

// UpsertRoutePrice sets the base price of a vehicle on a route.
func (s *CatalogService) UpsertRoutePrice(ctx context.Context, routeID string, req RoutePriceRequest) error {
	price := domain.CentsFromAmount(req.Price)
	if price <= 0 {
		return domain.NewValidationError("price must be greater than zero")
	}
	if _, err := s.routes.FindByID(ctx, routeID); err != nil {
		return err
	}
	if _, err := s.vehicles.FindByID(ctx, req.VehicleID); err != nil {
		return err
	}
	if err := s.routes.UpsertPrice(ctx, routeID, transferDomain.RoutePrice{VehicleID: req.VehicleID, PriceCents: price}); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// UpsertOverride creates or updates the override with the same
// (route, vehicle, origin, destination) scope.
func (s *CatalogService) UpsertOverride(ctx context.Context, routeID string, req OverrideRequest) (*OverrideDTO, error) {
	price := domain.CentsFromAmount(req.Price)
	if price <= 0 {
		return nil, domain.NewValidationError("price must be greater than zero")
	}
	if req.OriginLocationID == "" && req.DestinationLocationID == "" {
		return nil, domain.NewValidationError("an override needs an origin or a destination location")
	}
	if _, err := s.routes.FindByID(ctx, routeID); err != nil {
		return nil, err
	}
	if _, err := s.vehicles.FindByID(ctx, req.VehicleID); err != nil {
		return nil, err
	}
	for _, id := range []string{req.OriginLocationID, req.DestinationLocationID} {
		if id == "" {
			continue
		}
		if _, err := s.locations.FindByID(ctx, id); err != nil {
			return nil, err
		}
	}

	saved, err := s.routes.UpsertOverride(ctx, routeID, transferDomain.PriceOverride{
		VehicleID:             req.VehicleID,
		OriginLocationID:      req.OriginLocationID,
		DestinationLocationID: req.DestinationLocationID,
		PriceCents:            price,
		Notes:                 strings.TrimSpace(req.Notes),
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	dto := toOverrideDTO(routeID, saved)
	return &dto, nil
}

// DeleteOverride removes an override from a route.
func (s *CatalogService) DeleteOverride(ctx context.Context, routeID, overrideID string) error {
	if err := s.routes.DeleteOverride(ctx, routeID, overrideID); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// invalidate drops cached route snapshots. Failures are logged; entries still
// expire through their TTL.
func (s *CatalogService) invalidate(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx); err != nil {
		s.logger.Warn("failed to invalidate route cache", zap.Error(err))
	}
}

// --- Conversion Helpers ---

func toVehicleDetails(req VehicleRequest) transferDomain.VehicleDetails {
	return transferDomain.VehicleDetails{
		Name:     req.Name,
		Slug:     strings.TrimSpace(req.Slug),
		Category: transferDomain.VehicleCategory(strings.ToUpper(strings.TrimSpace(req.Category))),
		MinPax:   req.MinPax,
		MaxPax:   req.MaxPax,
		ImageURL: req.ImageURL,
	}
}

func toZoneDTO(z *transferDomain.Zone) ZoneDTO {
	return ZoneDTO{
		ID:          z.ID(),
		Name:        z.Name(),
		Slug:        z.Slug(),
		CountryCode: z.CountryCode(),
		Description: z.Description(),
		Active:      z.IsActive(),
		CreatedAt:   z.CreatedAt(),
		UpdatedAt:   z.UpdatedAt(),
	}
}

func toLocationDTO(l *transferDomain.Location) LocationDTO {
	return LocationDTO{
		ID:          l.ID(),
		Name:        l.Name(),
		Slug:        l.Slug(),
		Type:        string(l.Type()),
		ZoneID:      l.ZoneID(),
		CountryCode: l.CountryCode(),
		Description: l.Description(),
		Address:     l.Address(),
		Active:      l.IsActive(),
		CreatedAt:   l.CreatedAt(),
		UpdatedAt:   l.UpdatedAt(),
	}
}

func toVehicleDTO(v *transferDomain.Vehicle) VehicleDTO {
	return VehicleDTO{
		ID:        v.ID(),
		Name:      v.Name(),
		Slug:      v.Slug(),
		Category:  string(v.Category()),
		MinPax:    v.MinPax(),
		MaxPax:    v.MaxPax(),
		ImageURL:  v.ImageURL(),
		Active:    v.IsActive(),
		CreatedAt: v.CreatedAt(),
		UpdatedAt: v.UpdatedAt(),
	}
}

func toRouteDTO(r *transferDomain.Route) RouteDTO {
	zones := r.Zones()
	return RouteDTO{
		ID:          r.ID(),
		ZoneAID:     zones.Low,
		ZoneBID:     zones.High,
		CountryCode: r.CountryCode(),
		Active:      r.IsActive(),
		CreatedAt:   r.CreatedAt(),
		UpdatedAt:   r.UpdatedAt(),
	}
}

func toOverrideDTO(routeID string, o transferDomain.PriceOverride) OverrideDTO {
	return OverrideDTO{
		ID:                    o.ID,
		RouteID:               routeID,
		VehicleID:             o.VehicleID,
		OriginLocationID:      o.OriginLocationID,
		DestinationLocationID: o.DestinationLocationID,
		Price:                 o.PriceCents.Amount(),
		Notes:                 o.Notes,
	}
}
