package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/erp/gs1bridge/internal/domain/authority"
	"github.com/erp/gs1bridge/internal/infrastructure/persistence/models"
)

// GormAuthorityRepository implements authority.Repository using GORM
type GormAuthorityRepository struct {
	db *gorm.DB
}

// NewGormAuthorityRepository creates a new GormAuthorityRepository
func NewGormAuthorityRepository(db *gorm.DB) *GormAuthorityRepository {
	return &GormAuthorityRepository{db: db}
}

// Get finds an authority by name
func (r *GormAuthorityRepository) Get(ctx context.Context, name string) (*authority.Authority, error) {
	return r.findOne(ctx, "name = ?", name)
}

// FindByNamespace finds an authority by its OID namespace
func (r *GormAuthorityRepository) FindByNamespace(ctx context.Context, namespace string) (*authority.Authority, error) {
	return r.findOne(ctx, "namespace = ?", namespace)
}

func (r *GormAuthorityRepository) findOne(ctx context.Context, query string, arg any) (*authority.Authority, error) {
	var m models.AuthorityModel
	if err := r.db.WithContext(ctx).Where(query, arg).Take(&m).Error; err != nil {
		return nil, translateError(err)
	}
	return m.ToDomain(), nil
}

// Save creates or updates an authority
func (r *GormAuthorityRepository) Save(ctx context.Context, a *authority.Authority) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return translateError(r.db.WithContext(ctx).Save(models.AuthorityModelFromDomain(a)).Error)
}

var _ authority.Repository = (*GormAuthorityRepository)(nil)
