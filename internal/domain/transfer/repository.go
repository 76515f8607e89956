package transfer

import "context"

// LocationFilter narrows location listings. Zero values mean "any".
type LocationFilter struct {
	ZoneID     string
	Type       LocationType
	ActiveOnly bool
	Page       int
	Limit      int
}

// LocationRepository defines the persistence contract for locations.
type LocationRepository interface {
	// FindByID retrieves a location by id.
	FindByID(ctx context.Context, id string) (*Location, error)

	// FindBySlug retrieves a location by its unique slug.
	FindBySlug(ctx context.Context, slug string) (*Location, error)

	// List retrieves locations matching the filter with pagination.
	List(ctx context.Context, filter LocationFilter) ([]*Location, int64, error)

	// CountByZone returns how many locations reference the zone.
	CountByZone(ctx context.Context, zoneID string) (int64, error)

	// Save persists a new location.
	Save(ctx context.Context, location *Location) error

	// Update persists changes to an existing location.
	Update(ctx context.Context, location *Location) error
}

// ZoneRepository defines the persistence contract for zones.
type ZoneRepository interface {
	FindByID(ctx context.Context, id string) (*Zone, error)
	FindBySlug(ctx context.Context, slug string) (*Zone, error)
	List(ctx context.Context) ([]*Zone, error)
	Save(ctx context.Context, zone *Zone) error
	Update(ctx context.Context, zone *Zone) error
	Delete(ctx context.Context, id string) error
}

// VehicleRepository defines the persistence contract for vehicles.
type VehicleRepository interface {
	FindByID(ctx context.Context, id string) (*Vehicle, error)
	FindBySlug(ctx context.Context, slug string) (*Vehicle, error)
	List(ctx context.Context) ([]*Vehicle, error)
	Save(ctx context.Context, vehicle *Vehicle) error
	Update(ctx context.Context, vehicle *Vehicle) error
}

// RouteRepository defines the persistence contract for routes, their base
// prices and their overrides.
type RouteRepository interface {
	// FindByID retrieves a route by id.
	FindByID(ctx context.Context, id string) (*Route, error)

	// FindByZones retrieves the route for a canonical zone pair, active or not.
	FindByZones(ctx context.Context, pair ZonePair) (*Route, error)

	// List retrieves all routes.
	List(ctx context.Context) ([]*Route, error)

	// Save persists a new route, or returns a ConflictError when the zone pair
	// already has one.
	Save(ctx context.Context, route *Route) error

	// Update persists changes to an existing route.
	Update(ctx context.Context, route *Route) error

	// UpsertPrice sets the base price of a vehicle on a route.
	UpsertPrice(ctx context.Context, routeID string, price RoutePrice) error

	// UpsertOverride creates or updates the override keyed by
	// (route, vehicle, origin, destination) and returns it with its id.
	UpsertOverride(ctx context.Context, routeID string, override PriceOverride) (PriceOverride, error)

	// DeleteOverride removes an override.
	DeleteOverride(ctx context.Context, routeID, overrideID string) error
}

// RouteSnapshotReader loads the priced view of the active route serving a
// zone pair, in either stored orientation. It returns ErrNoRoute when there is none.
type RouteSnapshotReader interface {
	FindActiveSnapshot(ctx context.Context, pair ZonePair) (*RouteSnapshot, error)
}

// CacheInvalidator drops cached route snapshots after catalog writes.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}
