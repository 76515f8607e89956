package transfer

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/caribe-transfers/service-transfer/internal/platform/domain"
)

// Zone is a named region grouping locations for fare-table purposes.
// Routes and locations reference zones by id; names are display-only.
type Zone struct {
	id          string
	name        string
	slug        string
	countryCode string
	description string
	active      bool
	createdAt   time.Time
	updatedAt   time.Time
}

// NewZone creates an active Zone.
func NewZone(name, slug, countryCode, description string) (*Zone, error) {
	z := &Zone{id: uuid.NewString(), active: true}
	if err := z.apply(name, slug, countryCode, description); err != nil {
		return nil, err
	}
	z.createdAt = z.updatedAt
	return z, nil
}

// ReconstructZone rebuilds a Zone from persistence data (no validation).
func ReconstructZone(id, name, slug, countryCode, description string, active bool, createdAt, updatedAt time.Time) *Zone {
	return &Zone{
		id:          id,
		name:        name,
		slug:        slug,
		countryCode: countryCode,
		description: description,
		active:      active,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

func (z *Zone) ID() string { return z.id }
func (z *Zone) Name() string { return z.name }
func (z *Zone) Slug() string { return z.slug }
func (z *Zone) CountryCode() string { return z.countryCode }
func (z *Zone) Description() string { return z.description }
func (z *Zone) IsActive() bool { return z.active }
func (z *Zone) CreatedAt() time.Time { return z.createdAt }
func (z *Zone) UpdatedAt() time.Time { return z.updatedAt }

// Update renames the zone. The id is untouched so routes keep resolving.
func (z *Zone) Update(name, slug, countryCode, description string) error {
	if err := z.apply(name, slug, countryCode, description); err != nil {
		return err
	}
	z.active = true
	return nil
}

func (z *Zone) apply(name, slug, countryCode, description string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.NewValidationError("zone name is required")
	}
	if err := ValidateSlug(slug); err != nil {
		return err
	}
	countryCode = strings.ToUpper(strings.TrimSpace(countryCode))
	if len(countryCode) != 2 {
		return domain.NewValidationError("zone country code must be a two-letter ISO code")
	}
	z.name = name
	z.slug = slug
	z.countryCode = countryCode
	z.description = strings.TrimSpace(description)
	z.updatedAt = time.Now().UTC()
	return nil
}
