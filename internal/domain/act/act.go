package act

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/erp/gs1bridge/internal/domain/shared"
)

// Mood distinguishes what an act expresses
type Mood string

const (
	// MoodRequest is an order: something asked for
	MoodRequest Mood = "REQUEST"
	// MoodEventOccurrence is something that happened, such as a shipment
	MoodEventOccurrence Mood = "EVENT_OCCURRENCE"
)

// Class is the act classification
type Class string

const (
	ClassSupply Class = "SUPPLY"
)

// Status is the act lifecycle status
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
)

// ParticipationRole is the role an entity plays in an act
type ParticipationRole string

const (
	RoleAuthor      ParticipationRole = "AUTHOR"
	RoleLocation    ParticipationRole = "LOCATION"
	RoleDestination ParticipationRole = "DESTINATION"
	RoleDistributor ParticipationRole = "DISTRIBUTOR"
	RoleProduct     ParticipationRole = "PRODUCT"
	RoleConsumable  ParticipationRole = "CONSUMABLE"
)

// RelationshipType is the type of a directed link between two acts
type RelationshipType string

const (
	// RelationshipFulfills links a shipment to the order it fulfils
	RelationshipFulfills RelationshipType = "FULFILLS"
	// RelationshipArrival links a receipt to the order that arrived
	RelationshipArrival RelationshipType = "ARRIVAL"
)

// Well-known tag keys
const (
	TagOrderNumber = "orderNumber"
	TagOrderStatus = "orderStatus"
	// TagImportedData marks acts created from inbound partner messages.
	// Such acts never trigger outbound messages.
	TagImportedData = "importedData"
)

// Order status tag values
const (
	OrderStatusShipped   = "shipped"
	OrderStatusAccepted  = "accepted"
	OrderStatusRejected  = "rejected"
	OrderStatusCompleted = "completed"
)

// Well-known extension keys
const (
	ExtensionActualShipmentDate   = "actualShipmentDate"
	ExtensionExpectedDeliveryDate = "expectedDeliveryDate"
)

// TypeOrder is the classification mnemonic of supply orders and shipments
const TypeOrder = "Order"

// Identifier is a business identifier assigned to an act by an authority.
// Namespace is the authority namespace, filled in when loaded from the store.
type Identifier struct {
	AuthorityID uuid.UUID
	Namespace   string
	Value       string
}

// Tag is a key/value annotation
type Tag struct {
	Key   string
	Value string
}

// Participation binds an entity (place or material) to an act in a role
type Participation struct {
	ID       uuid.UUID
	Role     ParticipationRole
	PlayerID uuid.UUID
	Quantity *decimal.Decimal
}

// Relationship is a directed link from the owning act to TargetID
type Relationship struct {
	Type     RelationshipType
	TargetID uuid.UUID
}

// Note is a free-text annotation
type Note struct {
	Text string
}

// Extension holds a typed attribute; date extensions are RFC 3339 strings
type Extension struct {
	Key   string
	Value string
}

// Act is a transaction record in the domain store
type Act struct {
	shared.BaseAggregateRoot
	Mood           Mood
	Class          Class
	Status         Status
	TypeCode       string
	ActTime        time.Time
	Identifiers    []Identifier
	Tags           []Tag
	Participations []Participation
	Relationships  []Relationship
	Notes          []Note
	Extensions     []Extension
}

// New creates an unsaved supply act
func New(mood Mood, status Status, actTime time.Time) *Act {
	return &Act{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Mood:              mood,
		Class:             ClassSupply,
		Status:            status,
		TypeCode:          TypeOrder,
		ActTime:           actTime,
	}
}

// ---------------------------------------------------------------------------
// Identifiers
// ---------------------------------------------------------------------------

// AddIdentifier appends an identifier. An act never carries the same
// (authority, value) pair twice.
func (a *Act) AddIdentifier(id Identifier) error {
	if strings.TrimSpace(id.Value) == "" {
		return shared.ErrInvalidInput.WithTarget("identifier")
	}
	if a.HasIdentifier(id.AuthorityID, id.Value) {
		return shared.ErrDuplicateIdentifier.WithTarget(id.Value)
	}
	a.Identifiers = append(a.Identifiers, id)
	return nil
}

// HasIdentifier reports whether the act carries the (authority, value) pair
func (a *Act) HasIdentifier(authorityID uuid.UUID, value string) bool {
	for _, id := range a.Identifiers {
		if id.AuthorityID == authorityID && id.Value == value {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Tags
// ---------------------------------------------------------------------------

// Tag returns the value of the tag with the given key
func (a *Act) Tag(key string) (string, bool) {
	for _, t := range a.Tags {
		if t.Key == key {
			return t.Value, true
		}
	}
	return "", false
}

// SetTag creates or replaces the tag with the given key
func (a *Act) SetTag(key, value string) {
	for i := range a.Tags {
		if a.Tags[i].Key == key {
			a.Tags[i].Value = value
			return
		}
	}
	a.Tags = append(a.Tags, Tag{Key: key, Value: value})
}

// IsImported reports whether the act carries the import-provenance tag
func (a *Act) IsImported() bool {
	v, ok := a.Tag(TagImportedData)
	return ok && strings.EqualFold(v, "true")
}

// MarkImported sets the import-provenance tag
func (a *Act) MarkImported() {
	a.SetTag(TagImportedData, "true")
}

// ---------------------------------------------------------------------------
// Participations & relationships
// ---------------------------------------------------------------------------

// AddParticipation binds playerID in role, with an optional quantity
func (a *Act) AddParticipation(role ParticipationRole, playerID uuid.UUID, quantity *decimal.Decimal) {
	a.Participations = append(a.Participations, Participation{
		ID:       uuid.New(),
		Role:     role,
		PlayerID: playerID,
		Quantity: quantity,
	})
}

// Participation returns the first participation in role
func (a *Act) Participation(role ParticipationRole) (Participation, bool) {
	for _, p := range a.Participations {
		if p.Role == role {
			return p, true
		}
	}
	return Participation{}, false
}

// ParticipationsByRole returns all participations in role, in insertion order
func (a *Act) ParticipationsByRole(role ParticipationRole) []Participation {
	var result []Participation
	for _, p := range a.Participations {
		if p.Role == role {
			result = append(result, p)
		}
	}
	return result
}

// HasParticipation reports whether any participation exists in role
func (a *Act) HasParticipation(role ParticipationRole) bool {
	_, ok := a.Participation(role)
	return ok
}

// AddRelationship links the act to target
func (a *Act) AddRelationship(relType RelationshipType, target uuid.UUID) {
	a.Relationships = append(a.Relationships, Relationship{Type: relType, TargetID: target})
}

// Relationship returns the first relationship of relType
func (a *Act) Relationship(relType RelationshipType) (Relationship, bool) {
	for _, r := range a.Relationships {
		if r.Type == relType {
			return r, true
		}
	}
	return Relationship{}, false
}

// ---------------------------------------------------------------------------
// Notes & extensions
// ---------------------------------------------------------------------------

// AddNote appends a free-text note
func (a *Act) AddNote(text string) {
	a.Notes = append(a.Notes, Note{Text: text})
}

// FirstNote returns the text of the first note, if any
func (a *Act) FirstNote() string {
	if len(a.Notes) == 0 {
		return ""
	}
	return a.Notes[0].Text
}

// SetDateExtension stores t as an RFC 3339 extension value
func (a *Act) SetDateExtension(key string, t time.Time) {
	value := t.UTC().Format(time.RFC3339)
	for i := range a.Extensions {
		if a.Extensions[i].Key == key {
			a.Extensions[i].Value = value
			return
		}
	}
	a.Extensions = append(a.Extensions, Extension{Key: key, Value: value})
}

// DateExtension parses a date extension
func (a *Act) DateExtension(key string) (time.Time, bool) {
	for _, e := range a.Extensions {
		if e.Key == key {
			t, err := time.Parse(time.RFC3339, e.Value)
			if err != nil {
				return time.Time{}, false
			}
			return t, true
		}
	}
	return time.Time{}, false
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

// Complete marks the act completed
func (a *Act) Complete() {
	a.Status = StatusCompleted
	a.Touch()
}

// IsSupply reports whether the act belongs to the supply class
func (a *Act) IsSupply() bool {
	return a.Class == ClassSupply
}
