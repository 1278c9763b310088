package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_IsMatchesByCode(t *testing.T) {
	err := ErrLocationNotFound.WithTarget("shipper")

	assert.ErrorIs(t, err, ErrLocationNotFound)
	assert.NotErrorIs(t, err, ErrOrderNotFound)
	assert.Equal(t, "shipper: Location not found", err.Error())
}

func TestDomainError_WithCauseUnwraps(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("commit bundle: %w", ErrPersistence.WithCause(cause))

	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestDomainError_SentinelsAreNotMutated(t *testing.T) {
	_ = ErrSellerNotFound.WithTarget("seller").WithCause(errors.New("x"))

	assert.Empty(t, ErrSellerNotFound.Target)
	assert.Nil(t, ErrSellerNotFound.Cause)
}

func TestIsResolutionError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"authority", ErrAuthorityNotFound, true},
		{"location with role", ErrLocationNotFound.WithTarget("receiver"), true},
		{"order wrapped", fmt.Errorf("despatch: %w", ErrOrderNotFound), true},
		{"seller", ErrSellerNotFound, true},
		{"validation", ErrValidation, false},
		{"invalid unit", ErrInvalidUnit, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsResolutionError(tt.err))
		})
	}
}
