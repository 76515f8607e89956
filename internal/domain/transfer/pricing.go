package transfer

import "github.com/caribe-transfers/service-transfer/internal/platform/domain"

// PriceSource records which rule produced an effective price.
type PriceSource string

const (
	SourceOriginAndDestination PriceSource = "override_origin_destination"
	SourceOriginOnly           PriceSource = "override_origin"
	SourceDestinationOnly      PriceSource = "override_destination"
	SourceBase                 PriceSource = "base"
)

type overrideKey struct {
	vehicleID     string
	originID      string
	destinationID string
}

// OverrideIndex resolves override prices in O(1) per vehicle. On duplicate keys
// the first override wins. Overrides with neither location set are never
// consulted; they would only duplicate the base price.
type OverrideIndex struct {
	prices map[overrideKey]domain.Cents
}

// NewOverrideIndex indexes overrides by (vehicle, origin, destination).
func NewOverrideIndex(overrides []PriceOverride) OverrideIndex {
	idx := OverrideIndex{prices: make(map[overrideKey]domain.Cents, len(overrides))}
	for _, o := range overrides {
		if o.OriginLocationID == "" && o.DestinationLocationID == "" {
			continue
		}
		k := overrideKey{vehicleID: o.VehicleID, originID: o.OriginLocationID, destinationID: o.DestinationLocationID}
		if _, exists := idx.prices[k]; !exists {
			idx.prices[k] = o.PriceCents
		}
	}
	return idx
}

// Resolve returns the effective price of vehicleID for an origin/destination
// pair. Precedence, most specific first:
//  1. override scoped to both origin and destination
//  2. override scoped to origin only
//  3. override scoped to destination only
//  4. base price
func (idx OverrideIndex) Resolve(vehicleID, originID, destinationID string, base domain.Cents) (domain.Cents, PriceSource) {
	candidates := [...]struct {
		key    overrideKey
		source PriceSource
	}{
		{overrideKey{vehicleID, originID, destinationID}, SourceOriginAndDestination},
		{overrideKey{vehicleID, originID, ""}, SourceOriginOnly},
		{overrideKey{vehicleID, "", destinationID}, SourceDestinationOnly},
	}
	for _, c := range candidates {
		if price, ok := idx.prices[c.key]; ok {
			return price, c.source
		}
	}
	return base, SourceBase
}
