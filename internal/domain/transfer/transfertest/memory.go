// Package transfertest provides an in-memory transfer catalog for tests.
package transfertest

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/caribe-transfers/service-transfer/internal/domain/transfer"
	"github.com/caribe-transfers/service-transfer/internal/platform/domain"
)

type priceRow struct {
	seq     int
	routeID string
	price   transfer.RoutePrice
}

type overrideRow struct {
	seq      int
	routeID  string
	override transfer.PriceOverride
}

// Store implements every transfer repository port in memory. Set FailWith to
// make all reads fail with that error, or FailLocations to fail reads of
// single locations by id or slug.
type Store struct {
	mu        sync.Mutex
	seq       int
	zones     map[string]*transfer.Zone
	locations map[string]*transfer.Location
	vehicles  map[string]*transfer.Vehicle
	routes    map[string]*transfer.Route
	prices    []priceRow
	overrides []overrideRow

	FailWith      error
	FailLocations map[string]error
	SnapshotReads int
	Invalidations int
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		zones:     make(map[string]*transfer.Zone),
		locations: make(map[string]*transfer.Location),
		vehicles:  make(map[string]*transfer.Vehicle),
		routes:    make(map[string]*transfer.Route),
	}
}

// Zones returns the store as a ZoneRepository.
func (s *Store) Zones() transfer.ZoneRepository { return zoneRepo{s} }

// Locations returns the store as a LocationRepository.
func (s *Store) Locations() transfer.LocationRepository { return locationRepo{s} }

// Vehicles returns the store as a VehicleRepository.
func (s *Store) Vehicles() transfer.VehicleRepository { return vehicleRepo{s} }

// Routes returns the store as a RouteRepository.
func (s *Store) Routes() transfer.RouteRepository { return routeRepo{s} }

func (s *Store) nextSeq() int {
	s.seq++
	return s.seq
}

// FindActiveSnapshot implements transfer.RouteSnapshotReader.
func (s *Store) FindActiveSnapshot(_ context.Context, pair transfer.ZonePair) (*transfer.RouteSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SnapshotReads++
	if s.FailWith != nil {
		return nil, s.FailWith
	}

	var route *transfer.Route
	for _, r := range s.routes {
		if r.IsActive() && r.Zones() == pair {
			route = r
			break
		}
	}
	if route == nil {
		return nil, transfer.ErrNoRoute
	}

	snap := &transfer.RouteSnapshot{
		RouteID:   route.ID(),
		ZoneAID:   route.Zones().Low,
		ZoneBID:   route.Zones().High,
		Prices:    []transfer.RoutePrice{},
		Overrides: []transfer.PriceOverride{},
	}
	rows := append([]priceRow(nil), s.prices...)
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	for _, row := range rows {
		if row.routeID != route.ID() {
			continue
		}
		p := row.price
		p.Vehicle = nil
		if v, ok := s.vehicles[p.VehicleID]; ok {
			spec := v.Spec()
			p.Vehicle = &spec
		}
		snap.Prices = append(snap.Prices, p)
	}
	for _, row := range s.overrides {
		if row.routeID == route.ID() {
			snap.Overrides = append(snap.Overrides, row.override)
		}
	}
	return snap, nil
}

// Invalidate implements transfer.CacheInvalidator by counting calls.
func (s *Store) Invalidate(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Invalidations++
	return nil
}

// RemoveVehicle deletes a vehicle row while leaving its prices behind, to
// simulate a broken catalog.
func (s *Store) RemoveVehicle(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.vehicles, id)
}

// --- zones ---

type zoneRepo struct{ s *Store }

func cloneZone(z *transfer.Zone) *transfer.Zone {
	return transfer.ReconstructZone(z.ID(), z.Name(), z.Slug(), z.CountryCode(), z.Description(), z.IsActive(), z.CreatedAt(), z.UpdatedAt())
}

func (r zoneRepo) FindByID(_ context.Context, id string) (*transfer.Zone, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailWith != nil {
		return nil, r.s.FailWith
	}
	z, ok := r.s.zones[id]
	if !ok {
		return nil, domain.NewNotFoundError("Zone", id)
	}
	return cloneZone(z), nil
}

func (r zoneRepo) FindBySlug(_ context.Context, slug string) (*transfer.Zone, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, z := range r.s.zones {
		if z.Slug() == slug {
			return cloneZone(z), nil
		}
	}
	return nil, domain.NewNotFoundError("Zone", slug)
}

func (r zoneRepo) List(_ context.Context) ([]*transfer.Zone, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*transfer.Zone, 0, len(r.s.zones))
	for _, z := range r.s.zones {
		out = append(out, cloneZone(z))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

func (r zoneRepo) Save(_ context.Context, z *transfer.Zone) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.zones[z.ID()] = cloneZone(z)
	return nil
}

func (r zoneRepo) Update(_ context.Context, z *transfer.Zone) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.zones[z.ID()]; !ok {
		return domain.NewNotFoundError("Zone", z.ID())
	}
	r.s.zones[z.ID()] = cloneZone(z)
	return nil
}

func (r zoneRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.zones, id)
	return nil
}

// --- locations ---

type locationRepo struct{ s *Store }

func cloneLocation(l *transfer.Location) *transfer.Location {
	return transfer.ReconstructLocation(l.ID(), l.Name(), l.Slug(), l.Type(), l.ZoneID(), l.CountryCode(),
		l.Description(), l.Address(), l.IsActive(), l.CreatedAt(), l.UpdatedAt())
}

func (r locationRepo) FindByID(_ context.Context, id string) (*transfer.Location, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailWith != nil {
		return nil, r.s.FailWith
	}
	if err := r.s.FailLocations[id]; err != nil {
		return nil, err
	}
	l, ok := r.s.locations[id]
	if !ok {
		return nil, domain.NewNotFoundError("Location", id)
	}
	return cloneLocation(l), nil
}

func (r locationRepo) FindBySlug(_ context.Context, slug string) (*transfer.Location, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.FailLocations[slug]; err != nil {
		return nil, err
	}
	for _, l := range r.s.locations {
		if l.Slug() == slug {
			return cloneLocation(l), nil
		}
	}
	return nil, domain.NewNotFoundError("Location", slug)
}

func (r locationRepo) List(_ context.Context, f transfer.LocationFilter) ([]*transfer.Location, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*transfer.Location
	for _, l := range r.s.locations {
		if f.ZoneID != "" && l.ZoneID() != f.ZoneID {
			continue
		}
		if f.Type != "" && l.Type() != f.Type {
			continue
		}
		if f.ActiveOnly && !l.IsActive() {
			continue
		}
		out = append(out, cloneLocation(l))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	total := int64(len(out))
	if f.Limit > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		start := (page - 1) * f.Limit
		if start > len(out) {
			start = len(out)
		}
		end := start + f.Limit
		if end > len(out) {
			end = len(out)
		}
		out = out[start:end]
	}
	return out, total, nil
}

func (r locationRepo) CountByZone(_ context.Context, zoneID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, l := range r.s.locations {
		if l.ZoneID() == zoneID {
			n++
		}
	}
	return n, nil
}

func (r locationRepo) Save(_ context.Context, l *transfer.Location) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.locations[l.ID()] = cloneLocation(l)
	return nil
}

func (r locationRepo) Update(_ context.Context, l *transfer.Location) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.locations[l.ID()]; !ok {
		return domain.NewNotFoundError("Location", l.ID())
	}
	r.s.locations[l.ID()] = cloneLocation(l)
	return nil
}

// --- vehicles ---

type vehicleRepo struct{ s *Store }

func cloneVehicle(v *transfer.Vehicle) *transfer.Vehicle {
	return transfer.ReconstructVehicle(v.ID(), v.Name(), v.Slug(), v.Category(), v.MinPax(), v.MaxPax(),
		v.ImageURL(), v.IsActive(), v.CreatedAt(), v.UpdatedAt())
}

func (r vehicleRepo) FindByID(_ context.Context, id string) (*transfer.Vehicle, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.vehicles[id]
	if !ok {
		return nil, domain.NewNotFoundError("Vehicle", id)
	}
	return cloneVehicle(v), nil
}

func (r vehicleRepo) FindBySlug(_ context.Context, slug string) (*transfer.Vehicle, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, v := range r.s.vehicles {
		if v.Slug() == slug {
			return cloneVehicle(v), nil
		}
	}
	return nil, domain.NewNotFoundError("Vehicle", slug)
}

func (r vehicleRepo) List(_ context.Context) ([]*transfer.Vehicle, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*transfer.Vehicle, 0, len(r.s.vehicles))
	for _, v := range r.s.vehicles {
		out = append(out, cloneVehicle(v))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

func (r vehicleRepo) Save(_ context.Context, v *transfer.Vehicle) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.vehicles[v.ID()] = cloneVehicle(v)
	return nil
}

func (r vehicleRepo) Update(_ context.Context, v *transfer.Vehicle) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.vehicles[v.ID()]; !ok {
		return domain.NewNotFoundError("Vehicle", v.ID())
	}
	r.s.vehicles[v.ID()] = cloneVehicle(v)
	return nil
}

// --- routes ---

type routeRepo struct{ s *Store }

func cloneRoute(rt *transfer.Route) *transfer.Route {
	z := rt.Zones()
	return transfer.ReconstructRoute(rt.ID(), z.Low, z.High, rt.CountryCode(), rt.IsActive(), rt.CreatedAt(), rt.UpdatedAt())
}

func (r routeRepo) FindByID(_ context.Context, id string) (*transfer.Route, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rt, ok := r.s.routes[id]
	if !ok {
		return nil, domain.NewNotFoundError("Route", id)
	}
	return cloneRoute(rt), nil
}

func (r routeRepo) FindByZones(_ context.Context, pair transfer.ZonePair) (*transfer.Route, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rt := range r.s.routes {
		if rt.Zones() == pair {
			return cloneRoute(rt), nil
		}
	}
	return nil, domain.NewNotFoundError("Route", pair.String())
}

func (r routeRepo) List(_ context.Context) ([]*transfer.Route, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*transfer.Route, 0, len(r.s.routes))
	for _, rt := range r.s.routes {
		out = append(out, cloneRoute(rt))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out, nil
}

func (r routeRepo) Save(_ context.Context, rt *transfer.Route) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.routes {
		if existing.Zones() == rt.Zones() {
			return domain.NewConflictError("a route already exists between these zones")
		}
	}
	r.s.routes[rt.ID()] = cloneRoute(rt)
	return nil
}

func (r routeRepo) Update(_ context.Context, rt *transfer.Route) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.routes[rt.ID()]; !ok {
		return domain.NewNotFoundError("Route", rt.ID())
	}
	r.s.routes[rt.ID()] = cloneRoute(rt)
	return nil
}

func (r routeRepo) UpsertPrice(_ context.Context, routeID string, price transfer.RoutePrice) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	price.Vehicle = nil
	for i := range r.s.prices {
		if r.s.prices[i].routeID == routeID && r.s.prices[i].price.VehicleID == price.VehicleID {
			r.s.prices[i].price.PriceCents = price.PriceCents
			return nil
		}
	}
	r.s.prices = append(r.s.prices, priceRow{seq: r.s.nextSeq(), routeID: routeID, price: price})
	return nil
}

func (r routeRepo) UpsertOverride(_ context.Context, routeID string, o transfer.PriceOverride) (transfer.PriceOverride, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.overrides {
		row := &r.s.overrides[i]
		if row.routeID == routeID &&
			row.override.VehicleID == o.VehicleID &&
			row.override.OriginLocationID == o.OriginLocationID &&
			row.override.DestinationLocationID == o.DestinationLocationID {
			row.override.PriceCents = o.PriceCents
			row.override.Notes = o.Notes
			return row.override, nil
		}
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	r.s.overrides = append(r.s.overrides, overrideRow{seq: r.s.nextSeq(), routeID: routeID, override: o})
	return o, nil
}

func (r routeRepo) DeleteOverride(_ context.Context, routeID, overrideID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, row := range r.s.overrides {
		if row.routeID == routeID && row.override.ID == overrideID {
			r.s.overrides = append(r.s.overrides[:i], r.s.overrides[i+1:]...)
			return nil
		}
	}
	return domain.NewNotFoundError("PriceOverride", overrideID)
}
