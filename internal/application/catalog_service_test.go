package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	transferDomain "github.com/caribe-transfers/service-transfer/internal/domain/transfer"
	"github.com/caribe-transfers/service-transfer/internal/platform/domain"
)

func TestUpsertZone_UpdatesBySlug(t *testing.T) {
	f := newCatalogFixture(t)

	updated, err := f.catalog.UpsertZone(context.Background(), ZoneRequest{Name: "Airport Area", Slug: "z1", CountryCode: "do"})
	require.NoError(t, err)

	assert.Equal(t, f.z1.ID, updated.ID)
	assert.Equal(t, "Airport Area", updated.Name)
	assert.Equal(t, "DO", updated.CountryCode)
}

func TestUpdateZone_SlugConflict(t *testing.T) {
	f := newCatalogFixture(t)

	_, err := f.catalog.UpdateZone(context.Background(), f.z1.ID, ZoneRequest{Name: "Z1", Slug: "z2", CountryCode: "DO"})
	assert.True(t, domain.IsConflict(err))

	_, err = f.catalog.UpdateZone(context.Background(), f.z1.ID, ZoneRequest{Name: "Renamed", Slug: "z1", CountryCode: "DO"})
	assert.NoError(t, err)
}

func TestDeleteZone_RefusedWhileReferenced(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()

	assert.True(t, domain.IsConflict(f.catalog.DeleteZone(ctx, f.z1.ID)))

	empty, err := f.catalog.UpsertZone(ctx, ZoneRequest{Name: "Empty", Slug: "empty", CountryCode: "DO"})
	require.NoError(t, err)
	require.NoError(t, f.catalog.DeleteZone(ctx, empty.ID))

	assert.True(t, domain.IsNotFound(f.catalog.DeleteZone(ctx, empty.ID)))
}

func TestUpsertLocation_MovesZoneAndReactivates(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()

	_, err := f.catalog.ToggleLocation(ctx, f.abc.ID)
	require.NoError(t, err)

	moved, err := f.catalog.UpsertLocation(ctx, LocationRequest{Name: "Hotel-ABC", Slug: "hotel-abc", Type: "hotel", ZoneID: f.z3.ID})
	require.NoError(t, err)
	assert.Equal(t, f.abc.ID, moved.ID)
	assert.Equal(t, f.z3.ID, moved.ZoneID)
	assert.True(t, moved.Active)
}

func TestUpsertLocation_Validation(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()

	_, err := f.catalog.UpsertLocation(ctx, LocationRequest{Name: "X", Slug: "x", Type: "BEACH", ZoneID: f.z1.ID})
	assert.True(t, domain.IsValidation(err))

	_, err = f.catalog.UpsertLocation(ctx, LocationRequest{Name: "X", Slug: "x", Type: "PLACE", ZoneID: "nope"})
	assert.True(t, domain.IsNotFound(err))
}

func TestCreateVehicle_DuplicateSlug(t *testing.T) {
	f := newCatalogFixture(t)

	_, err := f.catalog.CreateVehicle(context.Background(), VehicleRequest{Name: "Other", Slug: "van", Category: "VAN", MinPax: 1, MaxPax: 4})
	assert.True(t, domain.IsConflict(err))
}

func TestCreateRoute_ReactivatesExisting(t *testing.T) {
	f := newCatalogFixture(t)

	again, err := f.catalog.CreateRoute(context.Background(), RouteRequest{ZoneAID: f.z1.ID, ZoneBID: f.z2.ID})
	require.NoError(t, err)
	assert.Equal(t, f.route.ID, again.ID)

	routes, err := f.catalog.ListRoutes(context.Background())
	require.NoError(t, err)
	assert.Len(t, routes, 1)
}

func TestCreateRoute_RejectsCrossCountry(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	mx, err := f.catalog.UpsertZone(ctx, ZoneRequest{Name: "Cancun", Slug: "cancun", CountryCode: "MX"})
	require.NoError(t, err)

	_, err = f.catalog.CreateRoute(ctx, RouteRequest{ZoneAID: f.z1.ID, ZoneBID: mx.ID})
	assert.True(t, domain.IsValidation(err))

	_, err = f.catalog.CreateRoute(ctx, RouteRequest{ZoneAID: f.z1.ID, ZoneBID: f.z1.ID})
	assert.True(t, domain.IsValidation(err))
}

func TestUpsertRoutePrice_RejectsNonPositive(t *testing.T) {
	f := newCatalogFixture(t)

	err := f.catalog.UpsertRoutePrice(context.Background(), f.route.ID, RoutePriceRequest{VehicleID: f.van.ID, Price: 0.001})
	assert.True(t, domain.IsValidation(err))

	err = f.catalog.UpsertRoutePrice(context.Background(), f.route.ID, RoutePriceRequest{VehicleID: "ghost", Price: 10})
	assert.True(t, domain.IsNotFound(err))
}

func TestUpsertOverride_KeysOnScope(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()

	first, err := f.catalog.UpsertOverride(ctx, f.route.ID, OverrideRequest{VehicleID: f.van.ID, OriginLocationID: f.puj.ID, Price: 50})
	require.NoError(t, err)
	second, err := f.catalog.UpsertOverride(ctx, f.route.ID, OverrideRequest{VehicleID: f.van.ID, OriginLocationID: f.puj.ID, Price: 55})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 55.0, second.Price)

	_, err = f.catalog.UpsertOverride(ctx, f.route.ID, OverrideRequest{VehicleID: f.van.ID, Price: 55})
	assert.True(t, domain.IsValidation(err))

	require.NoError(t, f.catalog.DeleteOverride(ctx, f.route.ID, first.ID))
	assert.True(t, domain.IsNotFound(f.catalog.DeleteOverride(ctx, f.route.ID, first.ID)))
}

func TestCatalogWrites_InvalidateCache(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	before := f.store.Invalidations

	require.NoError(t, f.catalog.UpsertRoutePrice(ctx, f.route.ID, RoutePriceRequest{VehicleID: f.van.ID, Price: 70}))
	assert.Equal(t, before+1, f.store.Invalidations)

	svc := NewQuoteService(f.store.Locations(), f.store, nil, zap.NewNop())
	result, err := svc.Quote(ctx, quoteReq(f.puj, f.abc, 5))
	require.NoError(t, err)
	assert.Equal(t, 70.0, result.Vehicles[0].Price)
}

func TestListLocations_Filters(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()

	page, err := f.catalog.ListLocations(ctx, ListLocationsQuery{Type: "hotel", ActiveOnly: true, Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	page, err = f.catalog.ListLocations(ctx, ListLocationsQuery{ZoneID: f.z1.ID, Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Airport-PUJ", page.Items[0].Name)

	_, err = f.catalog.ListLocations(ctx, ListLocationsQuery{Type: "castle"})
	assert.True(t, domain.IsValidation(err))
}

// staleRouteReads hides the stored route from the first FindByZones call, the
// way a concurrent CreateRoute sees the table before the other insert lands.
type staleRouteReads struct {
	transferDomain.RouteRepository
	served bool
}

func (r *staleRouteReads) FindByZones(ctx context.Context, pair transferDomain.ZonePair) (*transferDomain.Route, error) {
	if !r.served {
		r.served = true
		return nil, domain.NewNotFoundError("Route", pair.String())
	}
	return r.RouteRepository.FindByZones(ctx, pair)
}

func TestCreateRoute_ConcurrentInsertReturnsStoredRoute(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	catalog := NewCatalogService(f.store.Zones(), f.store.Locations(), f.store.Vehicles(),
		&staleRouteReads{RouteRepository: f.store.Routes()}, f.store, zap.NewNop())

	route, err := catalog.CreateRoute(ctx, RouteRequest{ZoneAID: f.z1.ID, ZoneBID: f.z2.ID})
	require.NoError(t, err)
	assert.Equal(t, f.route.ID, route.ID)

	routes, err := f.catalog.ListRoutes(ctx)
	require.NoError(t, err)
	assert.Len(t, routes, 1)
}
