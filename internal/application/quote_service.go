package application

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	transferDomain "github.com/caribe-transfers/service-transfer/internal/domain/transfer"
	"github.com/caribe-transfers/service-transfer/internal/events"
	"github.com/caribe-transfers/service-transfer/internal/platform/domain"
	"github.com/caribe-transfers/service-transfer/internal/platform/kafka"
)

const publishTimeout = 5 * time.Second

// EventPublisher writes CloudEvents to a topic. *kafka.Producer satisfies it.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, event kafka.CloudEvent) error
}

// QuoteRequest holds the data needed to quote a transfer.
type QuoteRequest struct {
	OriginLocationID      string `json:"origin_location_id" binding:"required"`
	DestinationLocationID string `json:"destination_location_id" binding:"required"`
	Passengers            int    `json:"passengers" binding:"required"`
}

// QuoteVehicleDTO is one priced vehicle in a quote response.
type QuoteVehicleDTO struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	MinPax   int     `json:"minPax"`
	MaxPax   int     `json:"maxPax"`
	Price    float64 `json:"price"`
	ImageURL string  `json:"imageUrl"`
}

// QuoteResultDTO is the response representation of a quote.
type QuoteResultDTO struct {
	RouteID  string            `json:"routeId"`
	Currency string            `json:"currency"`
	Vehicles []QuoteVehicleDTO `json:"vehicles"`
}

// SlugQuoteRequest quotes a transfer between two location slugs, the way
// landing pages link to a route. Passengers defaults to DefaultSlugQuotePassengers.
type SlugQuoteRequest struct {
	OriginSlug      string
	DestinationSlug string
	Passengers      int
}

// DefaultSlugQuotePassengers is used when a slug quote omits the passenger count.
const DefaultSlugQuotePassengers = 2

// SlugQuoteResultDTO is a quote together with the endpoints it was resolved to.
type SlugQuoteResultDTO struct {
	OriginID        string `json:"originId"`
	OriginSlug      string `json:"originSlug"`
	DestinationID   string `json:"destinationId"`
	DestinationSlug string `json:"destinationSlug"`
	QuoteResultDTO
}

// QuoteService resolves transfer quotes from the catalog.
type QuoteService struct {
	locations transferDomain.LocationRepository
	routes    transferDomain.RouteSnapshotReader
	publisher EventPublisher
	logger    *zap.Logger
}

// NewQuoteService creates a new QuoteService. publisher may be nil.
func NewQuoteService(
	locations transferDomain.LocationRepository,
	routes transferDomain.RouteSnapshotReader,
	publisher EventPublisher,
	logger *zap.Logger,
) *QuoteService {
	return &QuoteService{
		locations: locations,
		routes:    routes,
		publisher: publisher,
		logger:    logger,
	}
}

// locationFinder loads a location by one of its unique keys.
type locationFinder func(ctx context.Context, key string) (*transferDomain.Location, error)

// quoteOutcome is a computed quote and the endpoints it was priced between.
type quoteOutcome struct {
	origin, destination *transferDomain.Location
	result              *QuoteResultDTO
}

// Quote returns every vehicle that can carry the passengers between the two
// locations with its effective price.
func (s *QuoteService) Quote(ctx context.Context, req QuoteRequest) (*QuoteResultDTO, error) {
	q := transferDomain.QuoteRequest{
		OriginID:      req.OriginLocationID,
		DestinationID: req.DestinationLocationID,
		Passengers:    req.Passengers,
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	out, err := s.quote(ctx, q, s.locations.FindByID)
	if err != nil {
		s.logFailure(err,
			zap.String("origin_id", q.OriginID),
			zap.String("destination_id", q.DestinationID),
			zap.Int("passengers", q.Passengers),
		)
		return nil, err
	}
	return out.result, nil
}

// QuoteBySlugs quotes between two location slugs and echoes the resolved ids
// and slugs alongside the vehicles.
func (s *QuoteService) QuoteBySlugs(ctx context.Context, req SlugQuoteRequest) (*SlugQuoteResultDTO, error) {
	if req.Passengers == 0 {
		req.Passengers = DefaultSlugQuotePassengers
	}
	// Slugs stand in for ids until the locations are loaded.
	q := transferDomain.QuoteRequest{
		OriginID:      req.OriginSlug,
		DestinationID: req.DestinationSlug,
		Passengers:    req.Passengers,
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	out, err := s.quote(ctx, q, s.locations.FindBySlug)
	if err != nil {
		s.logFailure(err,
			zap.String("origin_slug", req.OriginSlug),
			zap.String("destination_slug", req.DestinationSlug),
			zap.Int("passengers", req.Passengers),
		)
		return nil, err
	}
	return &SlugQuoteResultDTO{
		OriginID:        out.origin.ID(),
		OriginSlug:      out.origin.Slug(),
		DestinationID:   out.destination.ID(),
		DestinationSlug: out.destination.Slug(),
		QuoteResultDTO:  *out.result,
	}, nil
}

func (s *QuoteService) logFailure(err error, fields ...zap.Field) {
	if domain.IsExpected(err) {
		return
	}
	s.logger.Error("failed to compute transfer quote", append(fields, zap.Error(err))...)
}

func (s *QuoteService) quote(ctx context.Context, q transferDomain.QuoteRequest, find locationFinder) (*quoteOutcome, error) {
	origin, destination, err := s.loadEndpoints(ctx, q.OriginID, q.DestinationID, find)
	if err != nil {
		return nil, err
	}
	// Overrides are keyed by location id whichever key found the endpoints.
	q.OriginID, q.DestinationID = origin.ID(), destination.ID()

	snap, err := s.routes.FindActiveSnapshot(ctx, transferDomain.NewZonePair(origin.ZoneID(), destination.ZoneID()))
	if err != nil {
		return nil, err
	}

	priced, err := transferDomain.PriceRoute(*snap, q)
	if err != nil {
		return nil, err
	}

	result := &QuoteResultDTO{
		RouteID:  snap.RouteID,
		Currency: domain.CurrencyUSD,
		Vehicles: make([]QuoteVehicleDTO, len(priced)),
	}
	for i, p := range priced {
		result.Vehicles[i] = toQuoteVehicleDTO(p)
	}

	s.publishQuoteRequested(ctx, origin, destination, q.Passengers, snap.RouteID, priced)
	return &quoteOutcome{origin: origin, destination: destination, result: result}, nil
}

// loadEndpoints reads both locations concurrently. Missing, inactive or
// unzoned locations all collapse into ErrLocationsNotFound. Both reads always
// finish, and a datastore failure on either side wins over a not-found on the
// other.
func (s *QuoteService) loadEndpoints(ctx context.Context, originKey, destinationKey string, find locationFinder) (*transferDomain.Location, *transferDomain.Location, error) {
	var (
		origin, destination       *transferDomain.Location
		originErr, destinationErr error
		g                         errgroup.Group
	)
	g.Go(func() error {
		origin, originErr = loadQuotable(ctx, find, originKey)
		return nil
	})
	g.Go(func() error {
		destination, destinationErr = loadQuotable(ctx, find, destinationKey)
		return nil
	})
	_ = g.Wait()

	if err := worstError(originErr, destinationErr); err != nil {
		return nil, nil, err
	}
	return origin, destination, nil
}

func loadQuotable(ctx context.Context, find locationFinder, key string) (*transferDomain.Location, error) {
	loc, err := find(ctx, key)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, transferDomain.ErrLocationsNotFound
		}
		return nil, fmt.Errorf("failed to load location %s: %w", key, err)
	}
	if !loc.Quotable() {
		return nil, transferDomain.ErrLocationsNotFound
	}
	return loc, nil
}

// worstError returns the first unexpected error, or else the first error.
func worstError(errs ...error) error {
	var first error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if !domain.IsExpected(err) {
			return err
		}
		if first == nil {
			first = err
		}
	}
	return first
}

// publishQuoteRequested emits the quote event in the background so a slow or
// unavailable broker never delays the response.
func (s *QuoteService) publishQuoteRequested(
	ctx context.Context,
	origin, destination *transferDomain.Location,
	passengers int,
	routeID string,
	priced []transferDomain.PricedVehicle,
) {
	if s.publisher == nil {
		return
	}

	lowest := priced[0].Price
	for _, p := range priced[1:] {
		if p.Price < lowest {
			lowest = p.Price
		}
	}
	evt := events.QuoteRequestedEvent{
		RouteID:          routeID,
		OriginID:         origin.ID(),
		OriginName:       origin.Name(),
		DestinationID:    destination.ID(),
		DestinationName:  destination.Name(),
		Passengers:       passengers,
		VehicleCount:     len(priced),
		LowestPriceCents: int64(lowest),
		Currency:         domain.CurrencyUSD,
		OccurredAt:       time.Now().UTC(),
	}

	cloudEvent, err := kafka.NewCloudEvent(events.EventSource, events.TransferQuoteRequested, evt)
	if err != nil {
		s.logger.Warn("failed to create cloud event",
			zap.String("event_type", events.TransferQuoteRequested),
			zap.Error(err),
		)
		return
	}
	cloudEvent.Subject = routeID

	bg := context.WithoutCancel(ctx)
	go func() {
		pubCtx, cancel := context.WithTimeout(bg, publishTimeout)
		defer cancel()
		if err := s.publisher.PublishEvent(pubCtx, events.TopicTransferEvents, cloudEvent); err != nil {
			s.logger.Warn("failed to publish event",
				zap.String("topic", events.TopicTransferEvents),
				zap.String("event_type", events.TransferQuoteRequested),
				zap.Error(err),
			)
		}
	}()
}

func toQuoteVehicleDTO(p transferDomain.PricedVehicle) QuoteVehicleDTO {
	return QuoteVehicleDTO{
		ID:       p.Vehicle.ID,
		Name:     p.Vehicle.Name,
		Category: string(p.Vehicle.Category),
		MinPax:   p.Vehicle.MinPax,
		MaxPax:   p.Vehicle.MaxPax,
		Price:    p.Price.Amount(),
		ImageURL: p.Vehicle.ImageURL,
	}
}
