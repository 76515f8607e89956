package transfer

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/caribe-transfers/service-transfer/internal/platform/domain"
)

// VehicleCategory is a transport tier.
type VehicleCategory string

const (
	CategorySedan VehicleCategory = "SEDAN"
	CategoryVan   VehicleCategory = "VAN"
	CategorySUV   VehicleCategory = "SUV"
)

// IsValid returns true if the category is recognized.
func (c VehicleCategory) IsValid() bool {
	switch c {
	case CategorySedan, CategoryVan, CategorySUV:
		return true
	}
	return false
}

// VehicleSpec is the immutable view of a vehicle used when quoting.
type VehicleSpec struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Category VehicleCategory `json:"category"`
	MinPax   int             `json:"min_pax"`
	MaxPax   int             `json:"max_pax"`
	ImageURL string          `json:"image_url,omitempty"`
	Active   bool            `json:"active"`
}

// Fits reports whether passengers falls inside the vehicle's capacity band (inclusive).
func (v VehicleSpec) Fits(passengers int) bool {
	return passengers >= v.MinPax && passengers <= v.MaxPax
}

// Vehicle is a category of transport shared across routes.
type Vehicle struct {
	id        string
	name      string
	slug      string
	category  VehicleCategory
	minPax    int
	maxPax    int
	imageURL  string
	active    bool
	createdAt time.Time
	updatedAt time.Time
}

// VehicleDetails holds the mutable attributes of a Vehicle.
type VehicleDetails struct {
	Name     string
	Slug     string
	Category VehicleCategory
	MinPax   int
	MaxPax   int
	ImageURL string
}

// NewVehicle creates an active Vehicle.
func NewVehicle(details VehicleDetails) (*Vehicle, error) {
	v := &Vehicle{id: uuid.NewString(), active: true}
	if err := v.apply(details); err != nil {
		return nil, err
	}
	v.createdAt = v.updatedAt
	return v, nil
}

// ReconstructVehicle rebuilds a Vehicle from persistence data (no validation).
func ReconstructVehicle(
	id, name, slug string,
	category VehicleCategory,
	minPax, maxPax int,
	imageURL string,
	active bool,
	createdAt, updatedAt time.Time,
) *Vehicle {
	return &Vehicle{
		id:        id,
		name:      name,
		slug:      slug,
		category:  category,
		minPax:    minPax,
		maxPax:    maxPax,
		imageURL:  imageURL,
		active:    active,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

func (v *Vehicle) ID() string { return v.id }
func (v *Vehicle) Name() string { return v.name }
func (v *Vehicle) Slug() string { return v.slug }
func (v *Vehicle) Category() VehicleCategory { return v.category }
func (v *Vehicle) MinPax() int { return v.minPax }
func (v *Vehicle) MaxPax() int { return v.maxPax }
func (v *Vehicle) ImageURL() string { return v.imageURL }
func (v *Vehicle) IsActive() bool { return v.active }
func (v *Vehicle) CreatedAt() time.Time { return v.createdAt }
func (v *Vehicle) UpdatedAt() time.Time { return v.updatedAt }

// Spec returns the quoting view of the vehicle.
func (v *Vehicle) Spec() VehicleSpec {
	return VehicleSpec{
		ID:       v.id,
		Name:     v.name,
		Category: v.category,
		MinPax:   v.minPax,
		MaxPax:   v.maxPax,
		ImageURL: v.imageURL,
		Active:   v.active,
	}
}

// Update replaces the mutable attributes.
func (v *Vehicle) Update(details VehicleDetails) error {
	return v.apply(details)
}

// ToggleActive flips the active flag. Inactive vehicles are never quoted.
func (v *Vehicle) ToggleActive() {
	v.active = !v.active
	v.updatedAt = time.Now().UTC()
}

func (v *Vehicle) apply(d VehicleDetails) error {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return domain.NewValidationError("vehicle name is required")
	}
	if err := ValidateSlug(d.Slug); err != nil {
		return err
	}
	if !d.Category.IsValid() {
		return domain.NewValidationError(fmt.Sprintf("invalid vehicle category: %s", d.Category))
	}
	if d.MinPax <= 0 || d.MaxPax <= 0 || d.MinPax > d.MaxPax {
		return domain.NewValidationError("passenger range must satisfy 0 < min_pax <= max_pax")
	}
	v.name = name
	v.slug = d.Slug
	v.category = d.Category
	v.minPax = d.MinPax
	v.maxPax = d.MaxPax
	v.imageURL = strings.TrimSpace(d.ImageURL)
	v.updatedAt = time.Now().UTC()
	return nil
}
