package transfer

import (
	"fmt"

	"github.com/caribe-transfers/service-transfer/internal/platform/domain"
)

// Not-found reasons returned by the quote resolver. Callers map each to a
// different user-facing message.
const (
	ReasonLocationsNotFound = "locations_not_found"
	ReasonNoRoute           = "no_route"
	ReasonNoCapacityMatch   = "no_capacity_match"
)

var (
	// ErrLocationsNotFound matches (via errors.Is) a quote whose origin or destination is unusable.
	ErrLocationsNotFound = domain.NewNotFoundReason(ReasonLocationsNotFound, "origin or destination not found")
	// ErrNoRoute matches a quote whose zones have no route.
	ErrNoRoute = domain.NewNotFoundReason(ReasonNoRoute, "no route between these zones")
	// ErrNoCapacityMatch matches a quote where no vehicle fits the passenger count.
	ErrNoCapacityMatch = domain.NewNotFoundReason(ReasonNoCapacityMatch, "no vehicle fits this passenger count")
)

// QuoteRequest identifies what is being quoted.
type QuoteRequest struct {
	OriginID      string
	DestinationID string
	Passengers    int
}

// Validate rejects malformed requests before any lookup.
func (r QuoteRequest) Validate() error {
	if r.OriginID == "" || r.DestinationID == "" {
		return domain.NewValidationError("origin and destination are required")
	}
	if r.OriginID == r.DestinationID {
		return domain.NewValidationError("origin and destination must be different")
	}
	if r.Passengers <= 0 {
		return domain.NewValidationError("passengers must be a positive integer")
	}
	return nil
}

// PricedVehicle is one quotable vehicle with its effective price.
type PricedVehicle struct {
	Vehicle VehicleSpec
	Price   domain.Cents
	Source  PriceSource
}

// PriceRoute filters the route's vehicles by capacity, then applies override
// precedence to each survivor. Output keeps the snapshot's price order.
// A price row whose vehicle is missing is a data inconsistency and returns a
// non-domain error.
func PriceRoute(snap RouteSnapshot, req QuoteRequest) ([]PricedVehicle, error) {
	idx := NewOverrideIndex(snap.Overrides)

	out := make([]PricedVehicle, 0, len(snap.Prices))
	for _, rp := range snap.Prices {
		if rp.Vehicle == nil {
			return nil, fmt.Errorf("route %s prices vehicle %s which does not exist", snap.RouteID, rp.VehicleID)
		}
		v := *rp.Vehicle
		if !v.Active || !v.Fits(req.Passengers) {
			continue
		}
		price, source := idx.Resolve(v.ID, req.OriginID, req.DestinationID, rp.PriceCents)
		out = append(out, PricedVehicle{Vehicle: v, Price: price, Source: source})
	}

	if len(out) == 0 {
		return nil, ErrNoCapacityMatch
	}
	return out, nil
}
