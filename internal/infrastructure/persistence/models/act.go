package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/erp/gs1bridge/internal/domain/act"
)

// UniqueActIdentifierIndex is the index that makes (authority, value) unique
const UniqueActIdentifierIndex = "idx_act_identifiers_authority_value"

// ActModel is the persistence model for acts
type ActModel struct {
	AggregateModel
	Mood     act.Mood   `gorm:"type:varchar(30);not null;index"`
	Class    act.Class  `gorm:"type:varchar(30);not null"`
	Status   act.Status `gorm:"type:varchar(30);not null"`
	TypeCode string     `gorm:"type:varchar(100)"`
	ActTime  time.Time  `gorm:"not null"`

	Identifiers    []ActIdentifierModel    `gorm:"foreignKey:ActID"`
	Tags           []ActTagModel           `gorm:"foreignKey:ActID"`
	Participations []ActParticipationModel `gorm:"foreignKey:ActID"`
	Relationships  []ActRelationshipModel  `gorm:"foreignKey:ActID"`
	Notes          []ActNoteModel          `gorm:"foreignKey:ActID"`
	Extensions     []ActExtensionModel     `gorm:"foreignKey:ActID"`
}

// TableName returns the table name for GORM
func (ActModel) TableName() string {
	return "acts"
}

// ActIdentifierModel is a business identifier of an act
type ActIdentifierModel struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	ActID       uuid.UUID `gorm:"type:uuid;not null;index"`
	AuthorityID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_act_identifiers_authority_value,priority:1"`
	Value       string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_act_identifiers_authority_value,priority:2;index"`
	Namespace   string    `gorm:"->;-:migration"`
}

// TableName returns the table name for GORM
func (ActIdentifierModel) TableName() string {
	return "act_identifiers"
}

// ActTagModel is a key/value tag of an act
type ActTagModel struct {
	ID    uint      `gorm:"primaryKey;autoIncrement"`
	ActID uuid.UUID `gorm:"type:uuid;not null;index"`
	Key   string    `gorm:"column:tag_key;type:varchar(100);not null"`
	Value string    `gorm:"column:tag_value;type:text"`
}

// TableName returns the table name for GORM
func (ActTagModel) TableName() string {
	return "act_tags"
}

// ActParticipationModel binds a place or material to an act
type ActParticipationModel struct {
	ID       uuid.UUID             `gorm:"type:uuid;primaryKey"`
	ActID    uuid.UUID             `gorm:"type:uuid;not null;index"`
	Seq      int                   `gorm:"not null"`
	Role     act.ParticipationRole `gorm:"type:varchar(30);not null"`
	PlayerID uuid.UUID             `gorm:"type:uuid;not null;index"`
	Quantity decimal.NullDecimal   `gorm:"type:decimal(18,4)"`
}

// TableName returns the table name for GORM
func (ActParticipationModel) TableName() string {
	return "act_participations"
}

// ActRelationshipModel is a directed link between two acts
type ActRelationshipModel struct {
	ID       uint                 `gorm:"primaryKey;autoIncrement"`
	ActID    uuid.UUID            `gorm:"type:uuid;not null;index"`
	Seq      int                  `gorm:"not null"`
	Type     act.RelationshipType `gorm:"type:varchar(30);not null"`
	TargetID uuid.UUID            `gorm:"type:uuid;not null;index"`
}

// TableName returns the table name for GORM
func (ActRelationshipModel) TableName() string {
	return "act_relationships"
}

// ActNoteModel is a free-text note on an act
type ActNoteModel struct {
	ID    uint      `gorm:"primaryKey;autoIncrement"`
	ActID uuid.UUID `gorm:"type:uuid;not null;index"`
	Seq   int       `gorm:"not null"`
	Text  string    `gorm:"type:text;not null"`
}

// TableName returns the table name for GORM
func (ActNoteModel) TableName() string {
	return "act_notes"
}

// ActExtensionModel is a typed attribute of an act
type ActExtensionModel struct {
	ID    uint      `gorm:"primaryKey;autoIncrement"`
	ActID uuid.UUID `gorm:"type:uuid;not null;index"`
	Key   string    `gorm:"column:ext_key;type:varchar(100);not null"`
	Value string    `gorm:"column:ext_value;type:text"`
}

// TableName returns the table name for GORM
func (ActExtensionModel) TableName() string {
	return "act_extensions"
}

// ToDomain converts the model to a domain Act. Child rows are expected in
// their stored order.
func (m *ActModel) ToDomain() *act.Act {
	a := &act.Act{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Mood:              m.Mood,
		Class:             m.Class,
		Status:            m.Status,
		TypeCode:          m.TypeCode,
		ActTime:           m.ActTime,
	}
	for _, id := range m.Identifiers {
		a.Identifiers = append(a.Identifiers, act.Identifier{
			AuthorityID: id.AuthorityID,
			Namespace:   id.Namespace,
			Value:       id.Value,
		})
	}
	for _, t := range m.Tags {
		a.Tags = append(a.Tags, act.Tag{Key: t.Key, Value: t.Value})
	}
	for _, p := range m.Participations {
		var qty *decimal.Decimal
		if p.Quantity.Valid {
			q := p.Quantity.Decimal
			qty = &q
		}
		a.Participations = append(a.Participations, act.Participation{
			ID:       p.ID,
			Role:     p.Role,
			PlayerID: p.PlayerID,
			Quantity: qty,
		})
	}
	for _, r := range m.Relationships {
		a.Relationships = append(a.Relationships, act.Relationship{Type: r.Type, TargetID: r.TargetID})
	}
	for _, n := range m.Notes {
		a.Notes = append(a.Notes, act.Note{Text: n.Text})
	}
	for _, e := range m.Extensions {
		a.Extensions = append(a.Extensions, act.Extension{Key: e.Key, Value: e.Value})
	}
	return a
}

// ActModelFromDomain creates a model, children included, from a domain Act
func ActModelFromDomain(a *act.Act) *ActModel {
	m := &ActModel{
		Mood:     a.Mood,
		Class:    a.Class,
		Status:   a.Status,
		TypeCode: a.TypeCode,
		ActTime:  a.ActTime,
	}
	m.FromDomainAggregateRoot(a.BaseAggregateRoot)

	for _, id := range a.Identifiers {
		m.Identifiers = append(m.Identifiers, ActIdentifierModel{ActID: a.ID, AuthorityID: id.AuthorityID, Value: id.Value})
	}
	for _, t := range a.Tags {
		m.Tags = append(m.Tags, ActTagModel{ActID: a.ID, Key: t.Key, Value: t.Value})
	}
	for i, p := range a.Participations {
		id := p.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		pm := ActParticipationModel{ID: id, ActID: a.ID, Seq: i, Role: p.Role, PlayerID: p.PlayerID}
		if p.Quantity != nil {
			pm.Quantity = decimal.NewNullDecimal(*p.Quantity)
		}
		m.Participations = append(m.Participations, pm)
	}
	for i, r := range a.Relationships {
		m.Relationships = append(m.Relationships, ActRelationshipModel{ActID: a.ID, Seq: i, Type: r.Type, TargetID: r.TargetID})
	}
	for i, n := range a.Notes {
		m.Notes = append(m.Notes, ActNoteModel{ActID: a.ID, Seq: i, Text: n.Text})
	}
	for _, e := range a.Extensions {
		m.Extensions = append(m.Extensions, ActExtensionModel{ActID: a.ID, Key: e.Key, Value: e.Value})
	}
	return m
}
