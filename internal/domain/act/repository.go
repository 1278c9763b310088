package act

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the port to the domain store for acts.
//
// Lookups return shared.ErrNotFound when nothing matches (FindByIdentifier*
// return an empty slice instead). Writes fail with shared.ErrDuplicateIdentifier
// when an (authority, value) identifier pair already belongs to another act,
// shared.ErrConcurrencyConflict when an updated act changed underneath, and
// shared.ErrPersistence for any other store failure.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Act, error)
	FindByIdentifier(ctx context.Context, authorityID uuid.UUID, value string) ([]*Act, error)
	FindByIdentifierValue(ctx context.Context, value string, mood Mood) ([]*Act, error)
	// Insert stores a single new act and publishes ActInsertedEvent
	Insert(ctx context.Context, a *Act) error
	// Commit stores all members of the bundle in one transaction and
	// publishes BundleCommittedEvent
	Commit(ctx context.Context, b *Bundle) error
}
