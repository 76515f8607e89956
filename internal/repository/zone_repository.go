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

// ZoneModel is the GORM model for the transfer_zones table.
type ZoneModel struct {
	ID          string    `gorm:"type:varchar(36);primaryKey"`
	Name        string    `gorm:"type:varchar(150);not null"`
	Slug        string    `gorm:"type:varchar(150);uniqueIndex;not null"`
	CountryCode string    `gorm:"type:char(2);not null"`
	Description string    `gorm:"type:text"`
	Active      bool      `gorm:"not null;default:true"`
	CreatedAt   time.Time `gorm:"type:timestamptz;not null"`
	UpdatedAt   time.Time `gorm:"type:timestamptz;not null"`
}

// TableName returns the table name for the GORM model.
func (ZoneModel) TableName() string { return "transfer_zones" }

// GormZoneRepository implements ZoneRepository using GORM.
type GormZoneRepository struct {
	db *gorm.DB
}

// NewGormZoneRepository creates a new GormZoneRepository.
func NewGormZoneRepository(db *gorm.DB) *GormZoneRepository {
	return &GormZoneRepository{db: db}
}

func (r *GormZoneRepository) FindByID(ctx context.Context, id string) (*transferDomain.Zone, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *GormZoneRepository) FindBySlug(ctx context.Context, slug string) (*transferDomain.Zone, error) {
	return r.findOne(ctx, "slug = ?", slug)
}

func (r *GormZoneRepository) findOne(ctx context.Context, where string, arg string) (*transferDomain.Zone, error) {
	var model ZoneModel
	if err := r.db.WithContext(ctx).Where(where, arg).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Zone", arg)
		}
		return nil, fmt.Errorf("failed to find zone: %w", err)
	}
	return toZoneDomain(&model), nil
}

func (r *GormZoneRepository) List(ctx context.Context) ([]*transferDomain.Zone, error) {
	var models []ZoneModel
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list zones: %w", err)
	}
	zones := make([]*transferDomain.Zone, len(models))
	for i := range models {
		zones[i] = toZoneDomain(&models[i])
	}
	return zones, nil
}

func (r *GormZoneRepository) Save(ctx context.Context, zone *transferDomain.Zone) error {
	if err := r.db.WithContext(ctx).Create(toZoneModel(zone)).Error; err != nil {
		return fmt.Errorf("failed to save zone: %w", err)
	}
	return nil
}

func (r *GormZoneRepository) Update(ctx context.Context, zone *transferDomain.Zone) error {
	model := toZoneModel(zone)
	result := r.db.WithContext(ctx).Model(&ZoneModel{}).Where("id = ?", model.ID).Updates(map[string]interface{}{
		"name":         model.Name,
		"slug":         model.Slug,
		"country_code": model.CountryCode,
		"description":  model.Description,
		"active":       model.Active,
		"updated_at":   model.UpdatedAt,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to update zone: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("Zone", model.ID)
	}
	return nil
}

func (r *GormZoneRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&ZoneModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete zone: %w", err)
	}
	return nil
}

func toZoneModel(z *transferDomain.Zone) *ZoneModel {
	return &ZoneModel{
		ID:          z.ID(),
		Name:        z.Name(),
		Slug:        z.Slug(),
		CountryCode: z.CountryCode(),
		Description: z.Description(),
		Active:      z.IsActive(),
		CreatedAt:   z.CreatedAt(),
		UpdatedAt:   z.UpdatedAt(),
	}
}

func toZoneDomain(m *ZoneModel) *transferDomain.Zone {
	return transferDomain.ReconstructZone(m.ID, m.Name, m.Slug, m.CountryCode, m.Description, m.Active, m.CreatedAt, m.UpdatedAt)
}
