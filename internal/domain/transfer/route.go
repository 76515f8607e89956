package transfer

import (
	"time"

	"github.com/google/uuid"

	"github.com/caribe-transfers/service-transfer/internal/platform/domain"
)

// ZonePair is an unordered pair of zone ids, stored with Low <= High.
type ZonePair struct {
	Low  string
	High string
}

// NewZonePair canonicalizes two zone ids by lexicographic order, so
// NewZonePair(a, b) == NewZonePair(b, a).
func NewZonePair(a, b string) ZonePair {
	if b < a {
		a, b = b, a
	}
	return ZonePair{Low: a, High: b}
}

// String returns "low:high".
func (p ZonePair) String() string {
	return p.Low + ":" + p.High
}

// Route is a transport link between two zones. Base prices hang off it per vehicle.
type Route struct {
	id          string
	zones       ZonePair
	countryCode string
	active      bool
	createdAt   time.Time
	updatedAt   time.Time
}

// NewRoute creates an active route between two distinct zones of the same country.
func NewRoute(a, b *Zone) (*Route, error) {
	if a == nil || b == nil {
		return nil, domain.NewValidationError("both route zones are required")
	}
	if a.ID() == b.ID() {
		return nil, domain.NewValidationError("a route must connect two different zones")
	}
	if a.CountryCode() != b.CountryCode() {
		return nil, domain.NewValidationError("route zones must belong to the same country")
	}
	now := time.Now().UTC()
	return &Route{
		id:          uuid.NewString(),
		zones:       NewZonePair(a.ID(), b.ID()),
		countryCode: a.CountryCode(),
		active:      true,
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

// ReconstructRoute rebuilds a Route from persistence data (no validation).
func ReconstructRoute(id, zoneAID, zoneBID, countryCode string, active bool, createdAt, updatedAt time.Time) *Route {
	return &Route{
		id:          id,
		zones:       NewZonePair(zoneAID, zoneBID),
		countryCode: countryCode,
		active:      active,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

// ID returns the route id.
func (r *Route) ID() string { return r.id }

// Zones returns the canonical zone pair.
func (r *Route) Zones() ZonePair { return r.zones }

// CountryCode returns the country both zones belong to.
func (r *Route) CountryCode() string { return r.countryCode }

// IsActive reports whether the route is served.
func (r *Route) IsActive() bool { return r.active }

// CreatedAt returns the creation timestamp.
func (r *Route) CreatedAt() time.Time { return r.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (r *Route) UpdatedAt() time.Time { return r.updatedAt }

// Activate marks the route as served again.
func (r *Route) Activate() {
	r.active = true
	r.updatedAt = time.Now().UTC()
}

// RoutePrice is the base price of one vehicle on one route. Vehicle is nil when
// the referenced vehicle row no longer exists.
type RoutePrice struct {
	VehicleID  string       `json:"vehicle_id"`
	PriceCents domain.Cents `json:"price_cents"`
	Vehicle    *VehicleSpec `json:"vehicle,omitempty"`
}

// PriceOverride replaces a route's base price for one vehicle when the quote's
// origin and/or destination match. An empty location id means "unset".
type PriceOverride struct {
	ID                    string       `json:"id"`
	VehicleID             string       `json:"vehicle_id"`
	OriginLocationID      string       `json:"origin_location_id,omitempty"`
	DestinationLocationID string       `json:"destination_location_id,omitempty"`
	PriceCents            domain.Cents `json:"price_cents"`
	Notes                 string       `json:"notes,omitempty"`
}

// RouteSnapshot is everything the resolver needs about one route: prices in
// stable order plus all overrides. It is what the route cache stores.
type RouteSnapshot struct {
	RouteID   string          `json:"route_id"`
	ZoneAID   string          `json:"zone_a_id"`
	ZoneBID   string          `json:"zone_b_id"`
	Prices    []RoutePrice    `json:"prices"`
	Overrides []PriceOverride `json:"overrides"`
}
