package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/erp/gs1bridge/internal/domain/entity"
	"github.com/erp/gs1bridge/internal/infrastructure/persistence/models"
)

// withAuthority loads identifier rows together with their authority's
// namespace and name
func withAuthority(table string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.
			Select(table + ".*, authorities.namespace, authorities.name").
			Joins("LEFT JOIN authorities ON authorities.id = " + table + ".authority_id").
			Order(table + ".id")
	}
}

// GormPlaceRepository implements entity.PlaceRepository using GORM
type GormPlaceRepository struct {
	db *gorm.DB
}

// NewGormPlaceRepository creates a new GormPlaceRepository
func NewGormPlaceRepository(db *gorm.DB) *GormPlaceRepository {
	return &GormPlaceRepository{db: db}
}

func (r *GormPlaceRepository) query(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Identifiers", withAuthority("place_identifiers"))
}

// FindByID finds a place by ID
func (r *GormPlaceRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Place, error) {
	var m models.PlaceModel
	if err := r.query(ctx).Where("id = ?", id).Take(&m).Error; err != nil {
		return nil, translateError(err)
	}
	return m.ToDomain(), nil
}

// FindByIdentifierValue finds places carrying value under any authority
func (r *GormPlaceRepository) FindByIdentifierValue(ctx context.Context, value string) ([]*entity.Place, error) {
	var rows []models.PlaceModel
	sub := r.db.Model(&models.PlaceIdentifierModel{}).Select("place_id").Where("value = ?", value)
	if err := r.query(ctx).Where("id IN (?)", sub).Order("created_at").Find(&rows).Error; err != nil {
		return nil, translateError(err)
	}
	places := make([]*entity.Place, 0, len(rows))
	for i := range rows {
		places = append(places, rows[i].ToDomain())
	}
	return places, nil
}

// Save creates a place or replaces an existing one, identifiers included
func (r *GormPlaceRepository) Save(ctx context.Context, p *entity.Place) error {
	m := models.PlaceModelFromDomain(p)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(m).Error; err != nil {
			return err
		}
		if err := tx.Where("place_id = ?", p.ID).Delete(&models.PlaceIdentifierModel{}).Error; err != nil {
			return err
		}
		if len(m.Identifiers) > 0 {
			return tx.Create(&m.Identifiers).Error
		}
		return nil
	})
	return translateError(err)
}

var _ entity.PlaceRepository = (*GormPlaceRepository)(nil)
