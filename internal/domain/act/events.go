package act

import (
	"github.com/google/uuid"

	"github.com/erp/gs1bridge/internal/domain/shared"
)

const (
	AggregateTypeAct         = "Act"
	EventTypeActInserted     = "act.inserted"
	EventTypeBundleCommitted = "act.bundle_committed"
)

// ActInsertedEvent is published after a single act has been inserted
type ActInsertedEvent struct {
	shared.BaseDomainEvent
	Act *Act `json:"act"`
}

// NewActInsertedEvent creates an ActInsertedEvent
func NewActInsertedEvent(a *Act) *ActInsertedEvent {
	return &ActInsertedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeActInserted, AggregateTypeAct, a.ID),
		Act:             a,
	}
}

// BundleCommittedEvent is published after a bundle commit. Inserted holds
// the acts that did not exist before the commit; Updated holds the rest.
type BundleCommittedEvent struct {
	shared.BaseDomainEvent
	Inserted []*Act `json:"inserted"`
	Updated  []*Act `json:"updated"`
}

// NewBundleCommittedEvent creates a BundleCommittedEvent
func NewBundleCommittedEvent(inserted, updated []*Act) *BundleCommittedEvent {
	aggID := uuid.Nil
	if len(inserted) > 0 {
		aggID = inserted[0].ID
	} else if len(updated) > 0 {
		aggID = updated[0].ID
	}
	return &BundleCommittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBundleCommitted, AggregateTypeAct, aggID),
		Inserted:        inserted,
		Updated:         updated,
	}
}
