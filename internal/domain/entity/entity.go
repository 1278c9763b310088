// Package entity holds the places and materials that participate in supply acts.
package entity

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/erp/gs1bridge/internal/domain/shared"
)

// Identifier is a business identifier assigned to a place or material
type Identifier struct {
	AuthorityID uuid.UUID
	// Namespace and AuthorityName are denormalized from the authority when loaded
	Namespace     string
	AuthorityName string
	Value         string
}

// Place is a facility or organisational site that ships or receives goods
type Place struct {
	shared.BaseEntity
	Name        string
	Identifiers []Identifier
}

// IdentifierFor returns the identifier assigned by authorityID
func (p *Place) IdentifierFor(authorityID uuid.UUID) (Identifier, bool) {
	return findIdentifier(p.Identifiers, authorityID)
}

// MaterialKind separates generic products from lot-specific stock
type MaterialKind string

const (
	MaterialGeneric      MaterialKind = "GENERIC"
	MaterialManufactured MaterialKind = "MANUFACTURED"
)

// Material is an orderable product. A manufactured material is a specific
// lot of a product and carries a lot number and expiry date.
type Material struct {
	shared.BaseEntity
	Kind        MaterialKind
	Name        string
	TypeCode    string
	GTIN        string
	LotNumber   string
	ExpiryDate  *time.Time
	Identifiers []Identifier
}

// NewManufacturedMaterial creates an unsaved lot-specific material
func NewManufacturedMaterial(gtin, lot, name string, expiry *time.Time) *Material {
	return &Material{
		BaseEntity: shared.NewBaseEntity(),
		Kind:       MaterialManufactured,
		Name:       name,
		GTIN:       gtin,
		LotNumber:  lot,
		ExpiryDate: expiry,
	}
}

// IsManufactured reports whether the material is lot-specific
func (m *Material) IsManufactured() bool {
	return m.Kind == MaterialManufactured
}

// IdentifierFor returns the identifier assigned by authorityID
func (m *Material) IdentifierFor(authorityID uuid.UUID) (Identifier, bool) {
	return findIdentifier(m.Identifiers, authorityID)
}

func findIdentifier(ids []Identifier, authorityID uuid.UUID) (Identifier, bool) {
	for _, id := range ids {
		if id.AuthorityID == authorityID {
			return id, true
		}
	}
	return Identifier{}, false
}

// PlaceRepository is the port for place lookups
type PlaceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Place, error)
	// FindByIdentifierValue returns places carrying value under any authority
	FindByIdentifierValue(ctx context.Context, value string) ([]*Place, error)
}

// MaterialRepository is the port for material lookups.
// New manufactured materials are persisted through an act.Bundle.
type MaterialRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Material, error)
	FindByGTIN(ctx context.Context, gtin string) (*Material, error)
	FindManufactured(ctx context.Context, gtin, lot string) (*Material, error)
}
