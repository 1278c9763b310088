package persistence

import (
	"errors"

	"gorm.io/gorm"

	"github.com/erp/gs1bridge/internal/domain/shared"
)

// translateError maps GORM errors onto the store error contract. Domain
// errors raised inside transactions pass through untouched.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var de *shared.DomainError
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return shared.ErrDuplicateIdentifier.WithCause(err)
	default:
		return shared.ErrPersistence.WithCause(err)
	}
}
