package transfer

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/caribe-transfers/service-transfer/internal/platform/domain"
)

// LocationType classifies a bookable point.
type LocationType string

const (
	LocationHotel   LocationType = "HOTEL"
	LocationAirport LocationType = "AIRPORT"
	LocationPlace   LocationType = "PLACE"
)

// IsValid returns true if the location type is recognized.
func (t LocationType) IsValid() bool {
	switch t {
	case LocationHotel, LocationAirport, LocationPlace:
		return true
	}
	return false
}

// ParseLocationType normalizes s (case-insensitive) into a LocationType.
func ParseLocationType(s string) (LocationType, error) {
	t := LocationType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("invalid location type %q: use HOTEL, AIRPORT or PLACE", s)
	}
	return t, nil
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// ValidateSlug checks that s is a lowercase, URL-safe slug.
func ValidateSlug(s string) error {
	if !slugPattern.MatchString(s) {
		return domain.NewValidationError(fmt.Sprintf("invalid slug %q: use lowercase letters, digits and dashes", s))
	}
	return nil
}

// Location is a bookable point (hotel, airport or place) assigned to exactly one zone.
type Location struct {
	id          string
	name        string
	slug        string
	locType     LocationType
	zoneID      string
	countryCode string
	description string
	address     string
	active      bool
	createdAt   time.Time
	updatedAt   time.Time
}

// LocationDetails holds the mutable attributes of a Location.
type LocationDetails struct {
	Name        string
	Slug        string
	Type        LocationType
	Description string
	Address     string
}

// NewLocation creates an active Location inside zone.
func NewLocation(details LocationDetails, zone *Zone) (*Location, error) {
	if err := validateLocationDetails(details, zone); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Location{
		id:          uuid.NewString(),
		name:        strings.TrimSpace(details.Name),
		slug:        details.Slug,
		locType:     details.Type,
		zoneID:      zone.ID(),
		countryCode: zone.CountryCode(),
		description: strings.TrimSpace(details.Description),
		address:     strings.TrimSpace(details.Address),
		active:      true,
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

// ReconstructLocation rebuilds a Location from persistence data (no validation).
func ReconstructLocation(
	id, name, slug string,
	locType LocationType,
	zoneID, countryCode, description, address string,
	active bool,
	createdAt, updatedAt time.Time,
) *Location {
	return &Location{
		id:          id,
		name:        name,
		slug:        slug,
		locType:     locType,
		zoneID:      zoneID,
		countryCode: countryCode,
		description: description,
		address:     address,
		active:      active,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

func validateLocationDetails(details LocationDetails, zone *Zone) error {
	if strings.TrimSpace(details.Name) == "" {
		return domain.NewValidationError("location name is required")
	}
	if err := ValidateSlug(details.Slug); err != nil {
		return err
	}
	if !details.Type.IsValid() {
		return domain.NewValidationError(fmt.Sprintf("invalid location type: %s", details.Type))
	}
	if zone == nil {
		return domain.NewValidationError("location zone is required")
	}
	return nil
}

// --- Getters ---

func (l *Location) ID() string { return l.id }
func (l *Location) Name() string { return l.name }
func (l *Location) Slug() string { return l.slug }
func (l *Location) Type() LocationType { return l.locType }
func (l *Location) ZoneID() string { return l.zoneID }
func (l *Location) CountryCode() string { return l.countryCode }
func (l *Location) Description() string { return l.description }
func (l *Location) Address() string { return l.address }
func (l *Location) IsActive() bool { return l.active }
func (l *Location) CreatedAt() time.Time { return l.createdAt }
func (l *Location) UpdatedAt() time.Time { return l.updatedAt }

// --- Behavior ---

// Update replaces the mutable attributes, moves the location into zone and reactivates it.
func (l *Location) Update(details LocationDetails, zone *Zone) error {
	if err := validateLocationDetails(details, zone); err != nil {
		return err
	}
	l.name = strings.TrimSpace(details.Name)
	l.slug = details.Slug
	l.locType = details.Type
	l.zoneID = zone.ID()
	l.countryCode = zone.CountryCode()
	l.description = strings.TrimSpace(details.Description)
	l.address = strings.TrimSpace(details.Address)
	l.active = true
	l.updatedAt = time.Now().UTC()
	return nil
}

// ToggleActive flips the active flag. Inactive locations stay for historical bookings but cannot be quoted.
func (l *Location) ToggleActive() {
	l.active = !l.active
	l.updatedAt = time.Now().UTC()
}

// Quotable reports whether the location can take part in a quote.
func (l *Location) Quotable() bool {
	return l.active && l.zoneID != ""
}
