package transfer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caribe-transfers/service-transfer/internal/platform/domain"
)

func spec(id string, minPax, maxPax int) *VehicleSpec {
	return &VehicleSpec{ID: id, Name: id, Category: CategoryVan, MinPax: minPax, MaxPax: maxPax, Active: true}
}

func TestQuoteRequest_Validate(t *testing.T) {
	tests := []struct {
		name string
		req  QuoteRequest
		ok   bool
	}{
		{"valid", QuoteRequest{"a", "b", 1}, true},
		{"missing origin", QuoteRequest{"", "b", 1}, false},
		{"missing destination", QuoteRequest{"a", "", 1}, false},
		{"same location", QuoteRequest{"a", "a", 2}, false},
		{"zero passengers", QuoteRequest{"a", "b", 0}, false},
		{"negative passengers", QuoteRequest{"a", "b", -3}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, domain.IsValidation(err), "want validation error, got %v", err)
		})
	}
}

func TestPriceRoute_CapacityBoundary(t *testing.T) {
	snap := RouteSnapshot{
		RouteID: "r1",
		Prices:  []RoutePrice{{VehicleID: "v", PriceCents: 5000, Vehicle: spec("v", 4, 6)}},
	}

	for _, tc := range []struct {
		passengers int
		included   bool
	}{{3, false}, {4, true}, {5, true}, {6, true}, {7, false}} {
		priced, err := PriceRoute(snap, QuoteRequest{OriginID: "o", DestinationID: "d", Passengers: tc.passengers})
		if tc.included {
			require.NoError(t, err, "passengers=%d", tc.passengers)
			assert.Len(t, priced, 1)
		} else {
			assert.ErrorIs(t, err, ErrNoCapacityMatch, "passengers=%d", tc.passengers)
		}
	}
}

func TestPriceRoute_OverridePrecedence(t *testing.T) {
	snap := RouteSnapshot{
		RouteID: "r1",
		Prices:  []RoutePrice{{VehicleID: "v", PriceCents: 10000, Vehicle: spec("v", 1, 8)}},
		Overrides: []PriceOverride{
			{ID: "o1", VehicleID: "v", OriginLocationID: "X", DestinationLocationID: "Y", PriceCents: 12000},
			{ID: "o2", VehicleID: "v", OriginLocationID: "X", PriceCents: 9000},
		},
	}

	tests := []struct {
		origin, destination string
		want                domain.Cents
		source              PriceSource
	}{
		{"X", "Y", 12000, SourceOriginAndDestination},
		{"X", "Z", 9000, SourceOriginOnly},
		{"W", "Y", 10000, SourceBase},
	}
	for _, tt := range tests {
		priced, err := PriceRoute(snap, QuoteRequest{OriginID: tt.origin, DestinationID: tt.destination, Passengers: 2})
		require.NoError(t, err)
		require.Len(t, priced, 1)
		assert.Equal(t, tt.want, priced[0].Price, "%s->%s", tt.origin, tt.destination)
		assert.Equal(t, tt.source, priced[0].Source)
	}
}

func TestPriceRoute_DestinationOnlyOverride(t *testing.T) {
	snap := RouteSnapshot{
		Prices:    []RoutePrice{{VehicleID: "v", PriceCents: 10000, Vehicle: spec("v", 1, 8)}},
		Overrides: []PriceOverride{{VehicleID: "v", DestinationLocationID: "Y", PriceCents: 8000}},
	}

	priced, err := PriceRoute(snap, QuoteRequest{OriginID: "W", DestinationID: "Y", Passengers: 1})
	require.NoError(t, err)
	assert.Equal(t, domain.Cents(8000), priced[0].Price)
	assert.Equal(t, SourceDestinationOnly, priced[0].Source)
}

func TestPriceRoute_OverridesAreVehicleScoped(t *testing.T) {
	snap := RouteSnapshot{
		Prices: []RoutePrice{
			{VehicleID: "sedan", PriceCents: 3500, Vehicle: spec("sedan", 1, 3)},
			{VehicleID: "van", PriceCents: 6000, Vehicle: spec("van", 1, 8)},
		},
		Overrides: []PriceOverride{{VehicleID: "van", OriginLocationID: "X", PriceCents: 5500}},
	}

	priced, err := PriceRoute(snap, QuoteRequest{OriginID: "X", DestinationID: "Y", Passengers: 2})
	require.NoError(t, err)
	require.Len(t, priced, 2)
	assert.Equal(t, domain.Cents(3500), priced[0].Price)
	assert.Equal(t, domain.Cents(5500), priced[1].Price)
}

func TestPriceRoute_SkipsInactiveVehicles(t *testing.T) {
	inactive := spec("old", 1, 8)
	inactive.Active = false
	snap := RouteSnapshot{
		Prices: []RoutePrice{
			{VehicleID: "old", PriceCents: 1000, Vehicle: inactive},
			{VehicleID: "van", PriceCents: 6000, Vehicle: spec("van", 1, 8)},
		},
	}

	priced, err := PriceRoute(snap, QuoteRequest{OriginID: "a", DestinationID: "b", Passengers: 2})
	require.NoError(t, err)
	require.Len(t, priced, 1)
	assert.Equal(t, "van", priced[0].Vehicle.ID)
}

func TestPriceRoute_KeepsPriceOrder(t *testing.T) {
	snap := RouteSnapshot{
		Prices: []RoutePrice{
			{VehicleID: "c", PriceCents: 100, Vehicle: spec("c", 1, 8)},
			{VehicleID: "a", PriceCents: 300, Vehicle: spec("a", 1, 8)},
			{VehicleID: "b", PriceCents: 200, Vehicle: spec("b", 1, 8)},
		},
	}

	priced, err := PriceRoute(snap, QuoteRequest{OriginID: "a", DestinationID: "b", Passengers: 1})
	require.NoError(t, err)
	ids := []string{priced[0].Vehicle.ID, priced[1].Vehicle.ID, priced[2].Vehicle.ID}
	assert.Equal(t, []string{"c", "a", "b"}, ids)
}

func TestPriceRoute_NoPrices(t *testing.T) {
	_, err := PriceRoute(RouteSnapshot{RouteID: "empty"}, QuoteRequest{OriginID: "a", DestinationID: "b", Passengers: 1})
	assert.ErrorIs(t, err, ErrNoCapacityMatch)
}

func TestPriceRoute_MissingVehicleIsInternal(t *testing.T) {
	snap := RouteSnapshot{RouteID: "r1", Prices: []RoutePrice{{VehicleID: "ghost", PriceCents: 1000}}}

	_, err := PriceRoute(snap, QuoteRequest{OriginID: "a", DestinationID: "b", Passengers: 1})
	require.Error(t, err)
	assert.False(t, domain.IsExpected(err))
}

func TestReasonErrorsAreDistinct(t *testing.T) {
	assert.True(t, errors.Is(ErrNoRoute, ErrNoRoute))
	assert.False(t, errors.Is(ErrNoRoute, ErrNoCapacityMatch))
	assert.False(t, errors.Is(ErrLocationsNotFound, ErrNoRoute))
	assert.True(t, domain.IsNotFound(ErrNoCapacityMatch))
	assert.False(t, errors.Is(domain.NewNotFoundError("Location", "x"), ErrLocationsNotFound))
}
