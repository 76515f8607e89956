//go:build integration

package main_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/caribe-transfers/service-transfer/internal/application"
	transferDomain "github.com/caribe-transfers/service-transfer/internal/domain/transfer"
	transferEvents "github.com/caribe-transfers/service-transfer/internal/events"
	"github.com/caribe-transfers/service-transfer/internal/repository"
	"github.com/caribe-transfers/service-transfer/migrations"
)

// TestQuote_ResolvesFromPostgres verifies base prices, capacity filtering and
// override precedence against the real schema.
func TestQuote_ResolvesFromPostgres(t *testing.T) {
	db, cleanup := setupPostgres(t)
	defer cleanup()

	stack := setupTransferStack(t, db, nil)
	seed := seedCatalog(t, stack.Catalog)
	ctx := context.Background()

	result, err := stack.Quotes.Quote(ctx, application.QuoteRequest{
		OriginLocationID:      seed.AirportID,
		DestinationLocationID: seed.HotelID,
		Passengers:            2,
	})
	require.NoError(t, err)
	assert.Equal(t, seed.RouteID, result.RouteID)
	require.Len(t, result.Vehicles, 2)
	assert.Equal(t, 35.0, result.Vehicles[0].Price)
	assert.Equal(t, 100.0, result.Vehicles[1].Price)

	// Origin-only loses to the exact pair; destination-only loses to both.
	_, err = stack.Catalog.UpsertOverride(ctx, seed.RouteID, application.OverrideRequest{VehicleID: seed.VanID, DestinationLocationID: seed.HotelID, Price: 80})
	require.NoError(t, err)
	_, err = stack.Catalog.UpsertOverride(ctx, seed.RouteID, application.OverrideRequest{VehicleID: seed.VanID, OriginLocationID: seed.AirportID, Price: 90})
	require.NoError(t, err)
	_, err = stack.Catalog.UpsertOverride(ctx, seed.RouteID, application.OverrideRequest{VehicleID: seed.VanID, OriginLocationID: seed.AirportID, DestinationLocationID: seed.HotelID, Price: 120})
	require.NoError(t, err)

	result, err = stack.Quotes.Quote(ctx, application.QuoteRequest{
		OriginLocationID:      seed.AirportID,
		DestinationLocationID: seed.HotelID,
		Passengers:            5,
	})
	require.NoError(t, err)
	require.Len(t, result.Vehicles, 1)
	assert.Equal(t, "Van", result.Vehicles[0].Name)
	assert.Equal(t, 120.0, result.Vehicles[0].Price)

	// Overrides are directional, so the return trip pays the base price.
	result, err = stack.Quotes.Quote(ctx, application.QuoteRequest{
		OriginLocationID:      seed.HotelID,
		DestinationLocationID: seed.AirportID,
		Passengers:            5,
	})
	require.NoError(t, err)
	assert.Equal(t, 100.0, result.Vehicles[0].Price)

	_, err = stack.Quotes.Quote(ctx, application.QuoteRequest{
		OriginLocationID:      seed.AirportID,
		DestinationLocationID: seed.HotelID,
		Passengers:            9,
	})
	assert.ErrorIs(t, err, transferDomain.ErrNoCapacityMatch)
}

// TestSchema_EnforcesCatalogUniqueness verifies that the startup migrations
// create the unique indexes behind the route and price upserts.
func TestSchema_EnforcesCatalogUniqueness(t *testing.T) {
	db, cfg, cleanup := startPostgres(t)
	defer cleanup()

	// Startup applies migrations on every boot.
	require.NoError(t, migrations.Up(cfg.DatabaseURL(), zap.NewNop()))

	var indexes []string
	require.NoError(t, db.Table("pg_indexes").Where("tablename LIKE ?", "transfer_%").Pluck("indexname", &indexes).Error)
	assert.Contains(t, indexes, "uq_transfer_routes_zones")
	assert.Contains(t, indexes, "uq_transfer_route_prices_route_vehicle")
	assert.Contains(t, indexes, "uq_transfer_price_overrides_scope")

	stack := setupTransferStack(t, db, nil)
	seed := seedCatalog(t, stack.Catalog)
	ctx := context.Background()

	require.NoError(t, stack.Catalog.UpsertRoutePrice(ctx, seed.RouteID, application.RoutePriceRequest{VehicleID: seed.SedanID, Price: 38}))
	require.NoError(t, stack.Catalog.UpsertRoutePrice(ctx, seed.RouteID, application.RoutePriceRequest{VehicleID: seed.SedanID, Price: 39}))
	var prices []repository.RoutePriceModel
	require.NoError(t, db.Where("route_id = ? AND vehicle_id = ?", seed.RouteID, seed.SedanID).Find(&prices).Error)
	require.Len(t, prices, 1)
	assert.Equal(t, int64(3900), prices[0].PriceCents)

	err := db.Create(&repository.RouteModel{
		ID:          uuid.NewString(),
		ZoneAID:     transferDomain.NewZonePair(seed.AirportZone, seed.HotelZone).Low,
		ZoneBID:     transferDomain.NewZonePair(seed.AirportZone, seed.HotelZone).High,
		CountryCode: "DO",
		Active:      true,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

// TestCreateRoute_ConcurrentCallsShareOneRoute verifies that racing route
// creations for one zone pair all return the same stored route.
func TestCreateRoute_ConcurrentCallsShareOneRoute(t *testing.T) {
	db, cleanup := setupPostgres(t)
	defer cleanup()

	stack := setupTransferStack(t, db, nil)
	ctx := context.Background()
	suffix := uuid.NewString()[:6]
	north, err := stack.Catalog.UpsertZone(ctx, application.ZoneRequest{Name: "Puerto Plata", Slug: "pop-" + suffix, CountryCode: "DO"})
	require.NoError(t, err)
	south, err := stack.Catalog.UpsertZone(ctx, application.ZoneRequest{Name: "Santo Domingo", Slug: "sdq-" + suffix, CountryCode: "DO"})
	require.NoError(t, err)

	const callers = 8
	ids := make([]string, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			route, err := stack.Catalog.CreateRoute(ctx, application.RouteRequest{ZoneAID: north.ID, ZoneBID: south.ID})
			errs[i] = err
			if route != nil {
				ids[i] = route.ID
			}
		}(i)
	}
	wg.Wait()

	for i := range errs {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	var count int64
	require.NoError(t, db.Model(&repository.RouteModel{}).
		Where("zone_a_id IN ? AND zone_b_id IN ?", []string{north.ID, south.ID}, []string{north.ID, south.ID}).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

// TestRouteSnapshot_MatchesEitherOrientation verifies that a route row stored
// with its zones reversed is still found.
func TestRouteSnapshot_MatchesEitherOrientation(t *testing.T) {
	db, cleanup := setupPostgres(t)
	defer cleanup()

	stack := setupTransferStack(t, db, nil)
	seed := seedCatalog(t, stack.Catalog)
	ctx := context.Background()

	pair := transferDomain.NewZonePair(seed.AirportZone, seed.HotelZone)
	require.NoError(t, db.Model(&repository.RouteModel{}).
		Where("id = ?", seed.RouteID).
		Updates(map[string]interface{}{"zone_a_id": pair.High, "zone_b_id": pair.Low}).Error)

	snap, err := stack.Routes.FindActiveSnapshot(ctx, pair)
	require.NoError(t, err)
	assert.Equal(t, seed.RouteID, snap.RouteID)
	require.Len(t, snap.Prices, 2)
	require.NotNil(t, snap.Prices[0].Vehicle)
	assert.Equal(t, seed.SedanID, snap.Prices[0].VehicleID)

	require.NoError(t, db.Model(&repository.RouteModel{}).Where("id = ?", seed.RouteID).Update("active", false).Error)
	_, err = stack.Routes.FindActiveSnapshot(ctx, pair)
	assert.ErrorIs(t, err, transferDomain.ErrNoRoute)
}

// TestUpsertOverride_NullScopeUpdatesInPlace verifies that an override with an
// unset side is matched on NULL rather than duplicated.
func TestUpsertOverride_NullScopeUpdatesInPlace(t *testing.T) {
	db, cleanup := setupPostgres(t)
	defer cleanup()

	stack := setupTransferStack(t, db, nil)
	seed := seedCatalog(t, stack.Catalog)
	ctx := context.Background()

	first, err := stack.Catalog.UpsertOverride(ctx, seed.RouteID, application.OverrideRequest{VehicleID: seed.SedanID, OriginLocationID: seed.AirportID, Price: 40})
	require.NoError(t, err)
	second, err := stack.Catalog.UpsertOverride(ctx, seed.RouteID, application.OverrideRequest{VehicleID: seed.SedanID, OriginLocationID: seed.AirportID, Price: 45, Notes: "peak season"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&repository.PriceOverrideModel{}).Where("route_id = ?", seed.RouteID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var stored repository.PriceOverrideModel
	require.NoError(t, db.Where("id = ?", first.ID).First(&stored).Error)
	assert.Nil(t, stored.DestinationLocationID)
	assert.Equal(t, int64(4500), stored.PriceCents)
	assert.Equal(t, "peak season", stored.Notes)
}

// TestRouteCache_InvalidatedByCatalogWrites verifies that the Redis snapshot
// cache serves repeat quotes and drops entries when prices change.
func TestRouteCache_InvalidatedByCatalogWrites(t *testing.T) {
	db, cleanupPG := setupPostgres(t)
	defer cleanupPG()
	rdb, cleanupRedis := setupRedis(t)
	defer cleanupRedis()

	logger, _ := zap.NewDevelopment()
	routeRepo := repository.NewGormRouteRepository(db)
	locationRepo := repository.NewGormLocationRepository(db)
	cached := repository.NewCachedRouteReader(routeRepo, rdb, time.Minute, logger)
	catalog := application.NewCatalogService(
		repository.NewGormZoneRepository(db),
		locationRepo,
		repository.NewGormVehicleRepository(db),
		routeRepo,
		cached,
		logger,
	)
	quotes := application.NewQuoteService(locationRepo, cached, nil, logger)
	seed := seedCatalog(t, catalog)
	ctx := context.Background()
	req := application.QuoteRequest{OriginLocationID: seed.AirportID, DestinationLocationID: seed.HotelID, Passengers: 2}

	_, err := quotes.Quote(ctx, req)
	require.NoError(t, err)
	keys, err := rdb.Keys(ctx, "transfer:route:*").Result()
	require.NoError(t, err)
	assert.Len(t, keys, 1)

	require.NoError(t, catalog.UpsertRoutePrice(ctx, seed.RouteID, application.RoutePriceRequest{VehicleID: seed.SedanID, Price: 42}))

	result, err := quotes.Quote(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 42.0, result.Vehicles[0].Price)
}

// TestQuote_PublishesQuoteRequested verifies that a successful quote emits a
// transfer.quote.requested event on transfer.events.
func TestQuote_PublishesQuoteRequested(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupTransferStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.CleanupProducer()
	seed := seedCatalog(t, stack.Catalog)

	_, err := stack.Quotes.Quote(context.Background(), application.QuoteRequest{
		OriginLocationID:      seed.AirportID,
		DestinationLocationID: seed.HotelID,
		Passengers:            3,
	})
	require.NoError(t, err)

	ce := consumeOneEvent(t, infra.KafkaBrokers, transferEvents.TopicTransferEvents,
		transferEvents.TransferQuoteRequested, 15*time.Second)

	var evt transferEvents.QuoteRequestedEvent
	require.NoError(t, ce.ParseData(&evt))
	assert.Equal(t, seed.RouteID, evt.RouteID)
	assert.Equal(t, "Airport-PUJ", evt.OriginName)
	assert.Equal(t, 3, evt.Passengers)
	assert.Equal(t, 2, evt.VehicleCount)
	assert.Equal(t, int64(3500), evt.LowestPriceCents)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []transferEvents.QuoteRequestedEvent
}

func (n *recordingNotifier) Name() string { return "recording" }

func (n *recordingNotifier) NotifyQuote(_ context.Context, evt transferEvents.QuoteRequestedEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, evt)
	return nil
}

func (n *recordingNotifier) received() []transferEvents.QuoteRequestedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]transferEvents.QuoteRequestedEvent(nil), n.events...)
}

// TestQuoteEventConsumer_NotifiesOperators verifies that quote events on
// transfer.events reach every configured notifier.
func TestQuoteEventConsumer_NotifiesOperators(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	logger, _ := zap.NewDevelopment()
	notifier := &recordingNotifier{}
	consumer := transferEvents.NewQuoteEventConsumer(infra.KafkaBrokers, "test-notifier-"+uuid.NewString()[:8], []transferEvents.QuoteNotifier{notifier}, logger)
	defer func() { _ = consumer.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = consumer.Start(ctx) }()
	time.Sleep(3 * time.Second) // Wait for consumer group join.

	evt := transferEvents.QuoteRequestedEvent{
		RouteID:          uuid.NewString(),
		OriginID:         uuid.NewString(),
		OriginName:       "Airport-PUJ",
		DestinationID:    uuid.NewString(),
		DestinationName:  "Hotel-ABC",
		Passengers:       4,
		VehicleCount:     1,
		LowestPriceCents: 10000,
		Currency:         "USD",
		OccurredAt:       time.Now().UTC(),
	}
	publishTestEvent(t, infra.KafkaBrokers, transferEvents.TopicTransferEvents,
		transferEvents.EventSource, transferEvents.TransferQuoteRequested, evt)

	require.Eventually(t, func() bool {
		return len(notifier.received()) == 1
	}, 15*time.Second, 200*time.Millisecond, "notifier did not receive the quote event")
	assert.Equal(t, "Hotel-ABC", notifier.received()[0].DestinationName)
}
