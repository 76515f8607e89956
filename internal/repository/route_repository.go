package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	transferDomain "github.com/caribe-transfers/service-transfer/internal/domain/transfer"
	"github.com/caribe-transfers/service-transfer/internal/platform/domain"
)

// RouteModel is the GORM model for the transfer_routes table.
type RouteModel struct {
	ID          string    `gorm:"type:varchar(36);primaryKey"`
	ZoneAID     string    `gorm:"column:zone_a_id;type:varchar(36);not null;uniqueIndex:uq_transfer_routes_zones"`
	ZoneBID     string    `gorm:"column:zone_b_id;type:varchar(36);not null;uniqueIndex:uq_transfer_routes_zones"`
	CountryCode string    `gorm:"type:char(2);not null"`
	Active      bool      `gorm:"not null;default:true"`
	CreatedAt   time.Time `gorm:"type:timestamptz;not null"`
	UpdatedAt   time.Time `gorm:"type:timestamptz;not null"`
}

// TableName returns the table name for the GORM model.
func (RouteModel) TableName() string { return "transfer_routes" }

// RoutePriceModel is the GORM model for the transfer_route_prices table.
type RoutePriceModel struct {
	ID         string        `gorm:"type:varchar(36);primaryKey"`
	RouteID    string        `gorm:"type:varchar(36);not null;uniqueIndex:uq_transfer_route_prices_route_vehicle"`
	VehicleID  string        `gorm:"type:varchar(36);not null;uniqueIndex:uq_transfer_route_prices_route_vehicle"`
	PriceCents int64         `gorm:"not null"`
	CreatedAt  time.Time     `gorm:"type:timestamptz;not null"`
	UpdatedAt  time.Time     `gorm:"type:timestamptz;not null"`
	Vehicle    *VehicleModel `gorm:"foreignKey:VehicleID"`
}

// TableName returns the table name for the GORM model.
func (RoutePriceModel) TableName() string { return "transfer_route_prices" }

// PriceOverrideModel is the GORM model for the transfer_price_overrides table.
// Nil location ids mean the override does not constrain that side.
type PriceOverrideModel struct {
	ID                    string    `gorm:"type:varchar(36);primaryKey"`
	RouteID               string    `gorm:"type:varchar(36);not null"`
	VehicleID             string    `gorm:"type:varchar(36);not null"`
	OriginLocationID      *string   `gorm:"type:varchar(36)"`
	DestinationLocationID *string   `gorm:"type:varchar(36)"`
	PriceCents            int64     `gorm:"not null"`
	Notes                 string    `gorm:"type:text"`
	CreatedAt             time.Time `gorm:"type:timestamptz;not null"`
	UpdatedAt             time.Time `gorm:"type:timestamptz;not null"`
}

// TableName returns the table name for the GORM model.
func (PriceOverrideModel) TableName() string { return "transfer_price_overrides" }

// GormRouteRepository implements RouteRepository and RouteSnapshotReader using GORM.
type GormRouteRepository struct {
	db *gorm.DB
}

// NewGormRouteRepository creates a new GormRouteRepository.
func NewGormRouteRepository(db *gorm.DB) *GormRouteRepository {
	return &GormRouteRepository{db: db}
}

// FindByID retrieves a route by id.
func (r *GormRouteRepository) FindByID(ctx context.Context, id string) (*transferDomain.Route, error) {
	var model RouteModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Route", id)
		}
		return nil, fmt.Errorf("failed to find route by ID: %w", err)
	}
	return toRouteDomain(&model), nil
}

// FindByZones retrieves the route for a zone pair in either stored orientation.
func (r *GormRouteRepository) FindByZones(ctx context.Context, pair transferDomain.ZonePair) (*transferDomain.Route, error) {
	var model RouteModel
	err := r.pairQuery(ctx, pair).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Route", pair.String())
		}
		return nil, fmt.Errorf("failed to find route by zones: %w", err)
	}
	return toRouteDomain(&model), nil
}

// List retrieves all routes.
func (r *GormRouteRepository) List(ctx context.Context) ([]*transferDomain.Route, error) {
	var models []RouteModel
	if err := r.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list routes: %w", err)
	}
	routes := make([]*transferDomain.Route, len(models))
	for i := range models {
		routes[i] = toRouteDomain(&models[i])
	}
	return routes, nil
}

// Save persists a new route. A route that already exists for the zone pair
// returns a ConflictError.
func (r *GormRouteRepository) Save(ctx context.Context, route *transferDomain.Route) error {
	if err := r.db.WithContext(ctx).Create(toRouteModel(route)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.NewConflictError("a route already exists between these zones")
		}
		return fmt.Errorf("failed to save route: %w", err)
	}
	return nil
}

// Update persists changes to an existing route.
func (r *GormRouteRepository) Update(ctx context.Context, route *transferDomain.Route) error {
	model := toRouteModel(route)
	result := r.db.WithContext(ctx).
		Model(&RouteModel{}).
		Where("id = ?", model.ID).
		Updates(map[string]interface{}{
			"active":     model.Active,
			"updated_at": model.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update route: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("Route", model.ID)
	}
	return nil
}

// UpsertPrice sets the base price of a vehicle on a route.
func (r *GormRouteRepository) UpsertPrice(ctx context.Context, routeID string, price transferDomain.RoutePrice) error {
	now := time.Now().UTC()
	model := &RoutePriceModel{
		ID:         uuid.NewString(),
		RouteID:    routeID,
		VehicleID:  price.VehicleID,
		PriceCents: int64(price.PriceCents),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	err := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "route_id"}, {Name: "vehicle_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"price_cents", "updated_at"}),
		}).
		Create(model).Error
	if err != nil {
		return fmt.Errorf("failed to upsert route price: %w", err)
	}
	return nil
}

// UpsertOverride updates the override with the same scope or creates a new one.
func (r *GormRouteRepository) UpsertOverride(ctx context.Context, routeID string, override transferDomain.PriceOverride) (transferDomain.PriceOverride, error) {
	origin := nullableID(override.OriginLocationID)
	destination := nullableID(override.DestinationLocationID)

	var existing PriceOverrideModel
	query := r.db.WithContext(ctx).Where("route_id = ? AND vehicle_id = ?", routeID, override.VehicleID)
	query = whereNullable(query, "origin_location_id", origin)
	query = whereNullable(query, "destination_location_id", destination)

	err := query.First(&existing).Error
	switch {
	case err == nil:
		existing.PriceCents = int64(override.PriceCents)
		existing.Notes = override.Notes
		existing.UpdatedAt = time.Now().UTC()
		if err := r.db.WithContext(ctx).Model(&PriceOverrideModel{}).Where("id = ?", existing.ID).Updates(map[string]interface{}{
			"price_cents": existing.PriceCents,
			"notes":       existing.Notes,
			"updated_at":  existing.UpdatedAt,
		}).Error; err != nil {
			return transferDomain.PriceOverride{}, fmt.Errorf("failed to update price override: %w", err)
		}
		return toOverrideDomain(&existing), nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		now := time.Now().UTC()
		model := &PriceOverrideModel{
			ID:                    uuid.NewString(),
			RouteID:               routeID,
			VehicleID:             override.VehicleID,
			OriginLocationID:      origin,
			DestinationLocationID: destination,
			PriceCents:            int64(override.PriceCents),
			Notes:                 override.Notes,
			CreatedAt:             now,
			UpdatedAt:             now,
		}
		if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
			return transferDomain.PriceOverride{}, fmt.Errorf("failed to create price override: %w", err)
		}
		return toOverrideDomain(model), nil
	default:
		return transferDomain.PriceOverride{}, fmt.Errorf("failed to find price override: %w", err)
	}
}

// DeleteOverride removes an override from a route.
func (r *GormRouteRepository) DeleteOverride(ctx context.Context, routeID, overrideID string) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND route_id = ?", overrideID, routeID).
		Delete(&PriceOverrideModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete price override: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("PriceOverride", overrideID)
	}
	return nil
}

// FindActiveSnapshot loads the active route for the pair with its prices and
// overrides. Prices are ordered by creation so quotes list vehicles stably.
func (r *GormRouteRepository) FindActiveSnapshot(ctx context.Context, pair transferDomain.ZonePair) (*transferDomain.RouteSnapshot, error) {
	var route RouteModel
	err := r.pairQuery(ctx, pair).Where("active = ?", true).First(&route).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, transferDomain.ErrNoRoute
		}
		return nil, fmt.Errorf("failed to find active route: %w", err)
	}

	var prices []RoutePriceModel
	if err := r.db.WithContext(ctx).
		Preload("Vehicle").
		Where("route_id = ?", route.ID).
		Order("created_at ASC, id ASC").
		Find(&prices).Error; err != nil {
		return nil, fmt.Errorf("failed to load route prices: %w", err)
	}

	var overrides []PriceOverrideModel
	if err := r.db.WithContext(ctx).
		Where("route_id = ?", route.ID).
		Order("created_at ASC, id ASC").
		Find(&overrides).Error; err != nil {
		return nil, fmt.Errorf("failed to load price overrides: %w", err)
	}

	snap := &transferDomain.RouteSnapshot{
		RouteID:   route.ID,
		ZoneAID:   route.ZoneAID,
		ZoneBID:   route.ZoneBID,
		Prices:    make([]transferDomain.RoutePrice, len(prices)),
		Overrides: make([]transferDomain.PriceOverride, len(overrides)),
	}
	for i := range prices {
		snap.Prices[i] = transferDomain.RoutePrice{
			VehicleID:  prices[i].VehicleID,
			PriceCents: domain.Cents(prices[i].PriceCents),
		}
		if prices[i].Vehicle != nil {
			snap.Prices[i].Vehicle = toVehicleSpec(prices[i].Vehicle)
		}
	}
	for i := range overrides {
		snap.Overrides[i] = toOverrideDomain(&overrides[i])
	}
	return snap, nil
}

func (r *GormRouteRepository) pairQuery(ctx context.Context, pair transferDomain.ZonePair) *gorm.DB {
	return r.db.WithContext(ctx).Where(
		r.db.Where("zone_a_id = ? AND zone_b_id = ?", pair.Low, pair.High).
			Or("zone_a_id = ? AND zone_b_id = ?", pair.High, pair.Low),
	)
}

func nullableID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

func whereNullable(q *gorm.DB, column string, value *string) *gorm.DB {
	if value == nil {
		return q.Where(column + " IS NULL")
	}
	return q.Where(column+" = ?", *value)
}

// --- Conversion Helpers ---

func toRouteModel(rt *transferDomain.Route) *RouteModel {
	zones := rt.Zones()
	return &RouteModel{
		ID:          rt.ID(),
		ZoneAID:     zones.Low,
		ZoneBID:     zones.High,
		CountryCode: rt.CountryCode(),
		Active:      rt.IsActive(),
		CreatedAt:   rt.CreatedAt(),
		UpdatedAt:   rt.UpdatedAt(),
	}
}

func toRouteDomain(m *RouteModel) *transferDomain.Route {
	return transferDomain.ReconstructRoute(m.ID, m.ZoneAID, m.ZoneBID, m.CountryCode, m.Active, m.CreatedAt, m.UpdatedAt)
}

func toOverrideDomain(m *PriceOverrideModel) transferDomain.PriceOverride {
	o := transferDomain.PriceOverride{
		ID:         m.ID,
		VehicleID:  m.VehicleID,
		PriceCents: domain.Cents(m.PriceCents),
		Notes:      m.Notes,
	}
	if m.OriginLocationID != nil {
		o.OriginLocationID = *m.OriginLocationID
	}
	if m.DestinationLocationID != nil {
		o.DestinationLocationID = *m.DestinationLocationID
	}
	return o
}
