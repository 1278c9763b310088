package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/erp/gs1bridge/internal/domain/entity"
	"github.com/erp/gs1bridge/internal/infrastructure/persistence/models"
)

// GormMaterialRepository implements entity.MaterialRepository using GORM
type GormMaterialRepository struct {
	db *gorm.DB
}

// NewGormMaterialRepository creates a new GormMaterialRepository
func NewGormMaterialRepository(db *gorm.DB) *GormMaterialRepository {
	return &GormMaterialRepository{db: db}
}

func (r *GormMaterialRepository) findOne(ctx context.Context, query string, args ...any) (*entity.Material, error) {
	var m models.MaterialModel
	err := r.db.WithContext(ctx).
		Preload("Identifiers", withAuthority("material_identifiers")).
		Where(query, args...).
		Order("created_at").
		Take(&m).Error
	if err != nil {
		return nil, translateError(err)
	}
	return m.ToDomain(), nil
}

// FindByID finds a material by ID
func (r *GormMaterialRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Material, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByGTIN finds the generic product with gtin
func (r *GormMaterialRepository) FindByGTIN(ctx context.Context, gtin string) (*entity.Material, error) {
	return r.findOne(ctx, "gtin = ? AND kind = ?", gtin, entity.MaterialGeneric)
}

// FindManufactured finds the lot of gtin numbered lot
func (r *GormMaterialRepository) FindManufactured(ctx context.Context, gtin, lot string) (*entity.Material, error) {
	return r.findOne(ctx, "gtin = ? AND lot_number = ? AND kind = ?", gtin, lot, entity.MaterialManufactured)
}

// Save creates a material. Manufactured materials created while importing
// a message are written by the act repository as part of the bundle.
func (r *GormMaterialRepository) Save(ctx context.Context, mat *entity.Material) error {
	return translateError(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return createMaterial(tx, mat)
	}))
}

func createMaterial(tx *gorm.DB, mat *entity.Material) error {
	m := models.MaterialModelFromDomain(mat)
	if err := tx.Omit(clause.Associations).Create(m).Error; err != nil {
		return err
	}
	if len(m.Identifiers) > 0 {
		return tx.Create(&m.Identifiers).Error
	}
	return nil
}

var _ entity.MaterialRepository = (*GormMaterialRepository)(nil)
