package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	transferDomain "github.com/caribe-transfers/service-transfer/internal/domain/transfer"
	"github.com/caribe-transfers/service-transfer/internal/platform/domain"
)

// LocationModel is the GORM model for the transfer_locations table.
type LocationModel struct {
	ID          string    `gorm:"type:varchar(36);primaryKey"`
	Name        string    `gorm:"type:varchar(200);not null"`
	Slug        string    `gorm:"type:varchar(200);uniqueIndex;not null"`
	Type        string    `gorm:"type:varchar(20);not null"`
	ZoneID      string    `gorm:"type:varchar(36);index;not null"`
	CountryCode string    `gorm:"type:char(2);not null"`
	Description string    `gorm:"type:text"`
	Address     string    `gorm:"type:text"`
	Active      bool      `gorm:"not null;default:true"`
	CreatedAt   time.Time `gorm:"type:timestamptz;not null"`
	UpdatedAt   time.Time `gorm:"type:timestamptz;not null"`
}

// TableName returns the table name for the GORM model.
func (LocationModel) TableName() string { return "transfer_locations" }

// GormLocationRepository implements LocationRepository using GORM.
type GormLocationRepository struct {
	db *gorm.DB
}

// NewGormLocationRepository creates a new GormLocationRepository.
func NewGormLocationRepository(db *gorm.DB) *GormLocationRepository {
	return &GormLocationRepository{db: db}
}

// FindByID retrieves a location by id.
func (r *GormLocationRepository) FindByID(ctx context.Context, id string) (*transferDomain.Location, error) {
	var model LocationModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Location", id)
		}
		return nil, fmt.Errorf("failed to find location by ID: %w", err)
	}
	return toLocationDomain(&model), nil
}

// FindBySlug retrieves a location by slug.
func (r *GormLocationRepository) FindBySlug(ctx context.Context, slug string) (*transferDomain.Location, error) {
	var model LocationModel
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Location", slug)
		}
		return nil, fmt.Errorf("failed to find location by slug: %w", err)
	}
	return toLocationDomain(&model), nil
}

// List retrieves locations matching the filter, ordered by name.
func (r *GormLocationRepository) List(ctx context.Context, filter transferDomain.LocationFilter) ([]*transferDomain.Location, int64, error) {
	query := r.db.WithContext(ctx).Model(&LocationModel{})
	if filter.ZoneID != "" {
		query = query.Where("zone_id = ?", filter.ZoneID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", string(filter.Type))
	}
	if filter.ActiveOnly {
		query = query.Where("active = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count locations: %w", err)
	}

	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.Limit).Limit(filter.Limit)
	}

	var models []LocationModel
	if err := query.Order("name ASC").Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list locations: %w", err)
	}

	locations := make([]*transferDomain.Location, len(models))
	for i := range models {
		locations[i] = toLocationDomain(&models[i])
	}
	return locations, total, nil
}

// CountByZone returns how many locations reference the zone.
func (r *GormLocationRepository) CountByZone(ctx context.Context, zoneID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&LocationModel{}).Where("zone_id = ?", zoneID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count zone locations: %w", err)
	}
	return count, nil
}

// Save persists a new location.
func (r *GormLocationRepository) Save(ctx context.Context, location *transferDomain.Location) error {
	if err := r.db.WithContext(ctx).Create(toLocationModel(location)).Error; err != nil {
		return fmt.Errorf("failed to save location: %w", err)
	}
	return nil
}

// Update persists changes to an existing location.
func (r *GormLocationRepository) Update(ctx context.Context, location *transferDomain.Location) error {
	model := toLocationModel(location)
	result := r.db.WithContext(ctx).
		Model(&LocationModel{}).
		Where("id = ?", model.ID).
		Updates(map[string]interface{}{
			"name":         model.Name,
			"slug":         model.Slug,
			"type":         model.Type,
			"zone_id":      model.ZoneID,
			"country_code": model.CountryCode,
			"description":  model.Description,
			"address":      model.Address,
			"active":       model.Active,
			"updated_at":   model.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update location: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("Location", model.ID)
	}
	return nil
}

// --- Conversion Helpers ---

func toLocationModel(l *transferDomain.Location) *LocationModel {
	return &LocationModel{
		ID:          l.ID(),
		Name:        l.Name(),
		Slug:        l.Slug(),
		Type:        string(l.Type()),
		ZoneID:      l.ZoneID(),
		CountryCode: l.CountryCode(),
		Description: l.Description(),
		Address:     l.Address(),
		Active:      l.IsActive(),
		CreatedAt:   l.CreatedAt(),
		UpdatedAt:   l.UpdatedAt(),
	}
}

func toLocationDomain(m *LocationModel) *transferDomain.Location {
	return transferDomain.ReconstructLocation(
		m.ID, m.Name, m.Slug,
		transferDomain.LocationType(m.Type),
		m.ZoneID, m.CountryCode, m.Description, m.Address,
		m.Active,
		m.CreatedAt, m.UpdatedAt,
	)
}
