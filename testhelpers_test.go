//go:build integration

package main_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/caribe-transfers/service-transfer/internal/application"
	transferEvents "github.com/caribe-transfers/service-transfer/internal/events"
	"github.com/caribe-transfers/service-transfer/internal/platform/database"
	"github.com/caribe-transfers/service-transfer/internal/platform/kafka"
	"github.com/caribe-transfers/service-transfer/internal/repository"
	"github.com/caribe-transfers/service-transfer/migrations"
)

// testInfra holds shared test infrastructure.
type testInfra struct {
	DB           *gorm.DB
	KafkaBrokers []string
	Cleanup      func()
}

// transferStack holds wired-up transfer service components.
type transferStack struct {
	Quotes          *application.QuoteService
	Catalog         *application.CatalogService
	Routes          *repository.GormRouteRepository
	CleanupProducer func()
}

// seededCatalog is a Punta Cana catalog: airport PUJ in one zone, hotel ABC in
// another, a sedan and a van priced on the route between them.
type seededCatalog struct {
	RouteID     string
	AirportID   string
	HotelID     string
	SedanID     string
	VanID       string
	AirportZone string
	HotelZone   string
}

// setupPostgres starts a PostgreSQL testcontainer and applies the embedded migrations.
func setupPostgres(t *testing.T) (*gorm.DB, func()) {
	t.Helper()
	db, _, cleanup := startPostgres(t)
	return db, cleanup
}

// startPostgres is setupPostgres that also returns the connection settings.
func startPostgres(t *testing.T) (*gorm.DB, database.PostgresConfig, func()) {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()

	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test_transfer",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")

	pgHost, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := database.PostgresConfig{
		Host:     pgHost,
		Port:     pgPort.Port(),
		User:     "test",
		Password: "test",
		DBName:   "test_transfer",
		SSLMode:  "disable",
	}

	// Poll until GORM can actually connect and ping.
	var db *gorm.DB
	require.Eventually(t, func() bool {
		var err error
		db, err = database.Connect(cfg, logger)
		return err == nil
	}, 30*time.Second, 1*time.Second, "PostgreSQL not ready for connections")

	require.NoError(t, migrations.Up(cfg.DatabaseURL(), logger))

	return db, cfg, func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	}
}

// setupContainers starts PostgreSQL and Kafka testcontainers.
func setupContainers(t *testing.T) *testInfra {
	t.Helper()
	ctx := context.Background()

	db, cleanupPG := setupPostgres(t)

	// Start Kafka container using confluent-local (supports KRaft natively).
	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")

	kafkaBrokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	// Pre-create required topics.
	createTopics(t, kafkaBrokers, transferEvents.TopicTransferEvents)

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
		cleanupPG()
	}

	return &testInfra{
		DB:           db,
		KafkaBrokers: kafkaBrokers,
		Cleanup:      cleanup,
	}
}

// setupRedis starts a Redis testcontainer and returns a connected client.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start Redis container")

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: net.JoinHostPort(host, port.Port())})
	require.NoError(t, rdb.Ping(ctx).Err())

	return rdb, func() {
		_ = rdb.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Redis container: %v", err)
		}
	}
}

// setupTransferStack wires up the transfer service on GORM repositories. A nil
// brokers slice disables event publishing.
func setupTransferStack(t *testing.T, db *gorm.DB, brokers []string) *transferStack {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	routeRepo := repository.NewGormRouteRepository(db)
	catalog := application.NewCatalogService(
		repository.NewGormZoneRepository(db),
		repository.NewGormLocationRepository(db),
		repository.NewGormVehicleRepository(db),
		routeRepo,
		nil,
		logger,
	)

	stack := &transferStack{Catalog: catalog, Routes: routeRepo, CleanupProducer: func() {}}
	var publisher application.EventPublisher
	if len(brokers) > 0 {
		producer := kafka.NewProducer(brokers, logger)
		publisher = producer
		stack.CleanupProducer = func() { _ = producer.Close() }
	}
	stack.Quotes = application.NewQuoteService(repository.NewGormLocationRepository(db), routeRepo, publisher, logger)
	return stack
}

// seedCatalog creates the Punta Cana catalog through the catalog service.
func seedCatalog(t *testing.T, catalog *application.CatalogService) seededCatalog {
	t.Helper()
	ctx := context.Background()
	suffix := uuid.NewString()[:6]

	airportZone, err := catalog.UpsertZone(ctx, application.ZoneRequest{Name: "Punta Cana Airport", Slug: "puj-zone-" + suffix, CountryCode: "DO"})
	require.NoError(t, err)
	hotelZone, err := catalog.UpsertZone(ctx, application.ZoneRequest{Name: "Bavaro", Slug: "bavaro-" + suffix, CountryCode: "DO"})
	require.NoError(t, err)

	airport, err := catalog.UpsertLocation(ctx, application.LocationRequest{Name: "Airport-PUJ", Slug: "airport-puj-" + suffix, Type: "AIRPORT", ZoneID: airportZone.ID})
	require.NoError(t, err)
	hotel, err := catalog.UpsertLocation(ctx, application.LocationRequest{Name: "Hotel-ABC", Slug: "hotel-abc-" + suffix, Type: "HOTEL", ZoneID: hotelZone.ID})
	require.NoError(t, err)

	sedan, err := catalog.CreateVehicle(ctx, application.VehicleRequest{Name: "Sedan", Slug: "sedan-" + suffix, Category: "SEDAN", MinPax: 1, MaxPax: 3})
	require.NoError(t, err)
	van, err := catalog.CreateVehicle(ctx, application.VehicleRequest{Name: "Van", Slug: "van-" + suffix, Category: "VAN", MinPax: 1, MaxPax: 8})
	require.NoError(t, err)

	route, err := catalog.CreateRoute(ctx, application.RouteRequest{ZoneAID: hotelZone.ID, ZoneBID: airportZone.ID})
	require.NoError(t, err)
	require.NoError(t, catalog.UpsertRoutePrice(ctx, route.ID, application.RoutePriceRequest{VehicleID: sedan.ID, Price: 35}))
	require.NoError(t, catalog.UpsertRoutePrice(ctx, route.ID, application.RoutePriceRequest{VehicleID: van.ID, Price: 100}))

	return seededCatalog{
		RouteID:     route.ID,
		AirportID:   airport.ID,
		HotelID:     hotel.ID,
		SedanID:     sedan.ID,
		VanID:       van.ID,
		AirportZone: airportZone.ID,
		HotelZone:   hotelZone.ID,
	}
}

// publishTestEvent publishes a CloudEvent to Kafka.
func publishTestEvent(t *testing.T, brokers []string, topic, source, eventType string, data interface{}) {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	producer := kafka.NewProducer(brokers, logger)
	defer func() { _ = producer.Close() }()

	ce, err := kafka.NewCloudEvent(source, eventType, data)
	require.NoError(t, err, "failed to create cloud event")

	err = producer.PublishEvent(context.Background(), topic, ce)
	require.NoError(t, err, "failed to publish event")
}

// consumeOneEvent reads from a Kafka topic until it finds an event of the expected type.
func consumeOneEvent(t *testing.T, brokers []string, topic, expectedType string, timeout time.Duration) kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	groupID := fmt.Sprintf("test-assert-%s", uuid.New().String()[:8])
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	defer func() { _ = reader.Close() }()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.Fatalf("timed out waiting for event type %q on topic %q", expectedType, topic)
			}
			continue
		}
		ce, err := kafka.ParseCloudEvent(msg.Value)
		if err != nil {
			continue
		}
		if ce.Type == expectedType {
			return ce
		}
	}
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	err = controllerConn.CreateTopics(topicConfigs...)
	require.NoError(t, err, "failed to create Kafka topics")

	// Give Kafka a moment to propagate topic metadata.
	time.Sleep(1 * time.Second)
}
