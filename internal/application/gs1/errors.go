package gs1

import (
	"errors"

	"github.com/erp/gs1bridge/internal/domain/shared"
)

// maxCommitAttempts bounds how often a message is rebuilt after losing a
// commit race to a concurrent writer
const maxCommitAttempts = 3

// isRetryableCommit reports whether a commit failed because another writer
// got there first. Rebuilding the bundle observes the competing write.
func isRetryableCommit(err error) bool {
	return errors.Is(err, shared.ErrDuplicateIdentifier) || errors.Is(err, shared.ErrConcurrencyConflict)
}

// asPersistenceError wraps a store failure in shared.ErrPersistence unless it
// already is one
func asPersistenceError(err error) error {
	if errors.Is(err, shared.ErrPersistence) {
		return err
	}
	return shared.ErrPersistence.WithCause(err)
}
