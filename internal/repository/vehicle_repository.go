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

// VehicleModel is the GORM model for the transfer_vehicles table.
type VehicleModel struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	Name      string    `gorm:"type:varchar(100);not null"`
	Slug      string    `gorm:"type:varchar(100);uniqueIndex;not null"`
	Category  string    `gorm:"type:varchar(10);not null"`
	MinPax    int       `gorm:"not null"`
	MaxPax    int       `gorm:"not null"`
	ImageURL  string    `gorm:"column:image_url;type:text"`
	Active    bool      `gorm:"not null;default:true"`
	CreatedAt time.Time `gorm:"type:timestamptz;not null"`
	UpdatedAt time.Time `gorm:"type:timestamptz;not null"`
}

// TableName returns the table name for the GORM model.
func (VehicleModel) TableName() string { return "transfer_vehicles" }

// GormVehicleRepository implements VehicleRepository using GORM.
type GormVehicleRepository struct {
	db *gorm.DB
}

func NewGormVehicleRepository(db *gorm.DB) *GormVehicleRepository {
	return &GormVehicleRepository{db: db}
}

func (r *GormVehicleRepository) FindByID(ctx context.Context, id string) (*transferDomain.Vehicle, error) {
	var model VehicleModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Vehicle", id)
		}
		return nil, fmt.Errorf("failed to find vehicle: %w", err)
	}
	return toVehicleDomain(&model), nil
}

func (r *GormVehicleRepository) FindBySlug(ctx context.Context, slug string) (*transferDomain.Vehicle, error) {
	var model VehicleModel
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Vehicle", slug)
		}
		return nil, fmt.Errorf("failed to find vehicle: %w", err)
	}
	return toVehicleDomain(&model), nil
}

func (r *GormVehicleRepository) List(ctx context.Context) ([]*transferDomain.Vehicle, error) {
	var models []VehicleModel
	if err := r.db.WithContext(ctx).Order("min_pax ASC, name ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list vehicles: %w", err)
	}
	vehicles := make([]*transferDomain.Vehicle, len(models))
	for i := range models {
		vehicles[i] = toVehicleDomain(&models[i])
	}
	return vehicles, nil
}

func (r *GormVehicleRepository) Save(ctx context.Context, vehicle *transferDomain.Vehicle) error {
	if err := r.db.WithContext(ctx).Create(toVehicleModel(vehicle)).Error; err != nil {
		return fmt.Errorf("failed to save vehicle: %w", err)
	}
	return nil
}

func (r *GormVehicleRepository) Update(ctx context.Context, vehicle *transferDomain.Vehicle) error {
	model := toVehicleModel(vehicle)
	result := r.db.WithContext(ctx).Model(&VehicleModel{}).Where("id = ?", model.ID).Updates(map[string]interface{}{
		"name":       model.Name,
		"slug":       model.Slug,
		"category":   model.Category,
		"min_pax":    model.MinPax,
		"max_pax":    model.MaxPax,
		"image_url":  model.ImageURL,
		"active":     model.Active,
		"updated_at": model.UpdatedAt,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to update vehicle: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("Vehicle", model.ID)
	}
	return nil
}

func toVehicleModel(v *transferDomain.Vehicle) *VehicleModel {
	return &VehicleModel{
		ID:        v.ID(),
		Name:      v.Name(),
		Slug:      v.Slug(),
		Category:  string(v.Category()),
		MinPax:    v.MinPax(),
		MaxPax:    v.MaxPax(),
		ImageURL:  v.ImageURL(),
		Active:    v.IsActive(),
		CreatedAt: v.CreatedAt(),
		UpdatedAt: v.UpdatedAt(),
	}
}

func toVehicleDomain(m *VehicleModel) *transferDomain.Vehicle {
	return transferDomain.ReconstructVehicle(
		m.ID, m.Name, m.Slug,
		transferDomain.VehicleCategory(m.Category),
		m.MinPax, m.MaxPax,
		m.ImageURL, m.Active,
		m.CreatedAt, m.UpdatedAt,
	)
}

// toVehicleSpec converts a model straight to the quoting view.
func toVehicleSpec(m *VehicleModel) *transferDomain.VehicleSpec {
	spec := toVehicleDomain(m).Spec()
	return &spec
}
