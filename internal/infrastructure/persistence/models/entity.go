package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/erp/gs1bridge/internal/domain/authority"
	"github.com/erp/gs1bridge/internal/domain/entity"
)

// AuthorityModel is the persistence model for identifier authorities
type AuthorityModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name        string    `gorm:"type:varchar(100);not null;uniqueIndex"`
	Namespace   string    `gorm:"type:varchar(255);not null;uniqueIndex"`
	Description string    `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (AuthorityModel) TableName() string {
	return "authorities"
}

// ToDomain converts the model to a domain Authority
func (m *AuthorityModel) ToDomain() *authority.Authority {
	return &authority.Authority{
		ID:          m.ID,
		Name:        m.Name,
		Namespace:   m.Namespace,
		Description: m.Description,
	}
}

// AuthorityModelFromDomain creates a model from a domain Authority
func AuthorityModelFromDomain(a *authority.Authority) *AuthorityModel {
	return &AuthorityModel{
		ID:          a.ID,
		Name:        a.Name,
		Namespace:   a.Namespace,
		Description: a.Description,
	}
}

// IdentifierColumns is shared by place and material identifiers. The
// authority's name and namespace are filled by a join when loading.
type IdentifierColumns struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	AuthorityID uuid.UUID `gorm:"type:uuid;not null;index"`
	Value       string    `gorm:"type:varchar(255);not null;index"`
	Namespace   string    `gorm:"->;-:migration"`
	Name        string    `gorm:"->;-:migration"`
}

func (c IdentifierColumns) toDomain() entity.Identifier {
	return entity.Identifier{
		AuthorityID:   c.AuthorityID,
		Namespace:     c.Namespace,
		AuthorityName: c.Name,
		Value:         c.Value,
	}
}

// PlaceModel is the persistence model for places
type PlaceModel struct {
	BaseModel
	Name        string                 `gorm:"type:varchar(200);not null"`
	Identifiers []PlaceIdentifierModel `gorm:"foreignKey:PlaceID"`
}

// TableName returns the table name for GORM
func (PlaceModel) TableName() string {
	return "places"
}

// PlaceIdentifierModel is an identifier assigned to a place
type PlaceIdentifierModel struct {
	IdentifierColumns
	PlaceID uuid.UUID `gorm:"type:uuid;not null;index"`
}

// TableName returns the table name for GORM
func (PlaceIdentifierModel) TableName() string {
	return "place_identifiers"
}

// ToDomain converts the model to a domain Place
func (m *PlaceModel) ToDomain() *entity.Place {
	p := &entity.Place{BaseEntity: m.BaseModel.ToDomain(), Name: m.Name}
	for _, id := range m.Identifiers {
		p.Identifiers = append(p.Identifiers, id.toDomain())
	}
	return p
}

// PlaceModelFromDomain creates a model from a domain Place
func PlaceModelFromDomain(p *entity.Place) *PlaceModel {
	m := &PlaceModel{Name: p.Name}
	m.FromDomainBaseEntity(p.BaseEntity)
	for _, id := range p.Identifiers {
		m.Identifiers = append(m.Identifiers, PlaceIdentifierModel{
			IdentifierColumns: IdentifierColumns{AuthorityID: id.AuthorityID, Value: id.Value},
			PlaceID:           p.ID,
		})
	}
	return m
}

// MaterialModel is the persistence model for materials. A manufactured lot
// is unique per (GTIN, lot number).
type MaterialModel struct {
	BaseModel
	Kind        entity.MaterialKind       `gorm:"type:varchar(20);not null"`
	Name        string                    `gorm:"type:varchar(200)"`
	TypeCode    string                    `gorm:"type:varchar(100)"`
	GTIN        string                    `gorm:"column:gtin;type:varchar(14);uniqueIndex:idx_materials_gtin_lot,priority:1,where:kind = 'MANUFACTURED'"`
	LotNumber   string                    `gorm:"type:varchar(100);uniqueIndex:idx_materials_gtin_lot,priority:2"`
	ExpiryDate  *time.Time                `gorm:"type:date"`
	Identifiers []MaterialIdentifierModel `gorm:"foreignKey:MaterialID"`
}

// TableName returns the table name for GORM
func (MaterialModel) TableName() string {
	return "materials"
}

// MaterialIdentifierModel is an identifier assigned to a material
type MaterialIdentifierModel struct {
	IdentifierColumns
	MaterialID uuid.UUID `gorm:"type:uuid;not null;index"`
}

// TableName returns the table name for GORM
func (MaterialIdentifierModel) TableName() string {
	return "material_identifiers"
}

// ToDomain converts the model to a domain Material
func (m *MaterialModel) ToDomain() *entity.Material {
	mat := &entity.Material{
		BaseEntity: m.BaseModel.ToDomain(),
		Kind:       m.Kind,
		Name:       m.Name,
		TypeCode:   m.TypeCode,
		GTIN:       m.GTIN,
		LotNumber:  m.LotNumber,
		ExpiryDate: m.ExpiryDate,
	}
	for _, id := range m.Identifiers {
		mat.Identifiers = append(mat.Identifiers, id.toDomain())
	}
	return mat
}

// MaterialModelFromDomain creates a model from a domain Material
func MaterialModelFromDomain(mat *entity.Material) *MaterialModel {
	m := &MaterialModel{
		Kind:       mat.Kind,
		Name:       mat.Name,
		TypeCode:   mat.TypeCode,
		GTIN:       mat.GTIN,
		LotNumber:  mat.LotNumber,
		ExpiryDate: mat.ExpiryDate,
	}
	m.FromDomainBaseEntity(mat.BaseEntity)
	for _, id := range mat.Identifiers {
		m.Identifiers = append(m.Identifiers, MaterialIdentifierModel{
			IdentifierColumns: IdentifierColumns{AuthorityID: id.AuthorityID, Value: id.Value},
			MaterialID:        mat.ID,
		})
	}
	return m
}
