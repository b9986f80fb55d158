package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Is(t *testing.T) {
	t.Run("same sentinel", func(t *testing.T) {
		assert.True(t, errors.Is(ErrNotOwned, ErrNotOwned))
	})

	t.Run("custom message keeps code", func(t *testing.T) {
		err := ErrInsufficientFunds.WithMessage("need %d crystals, have %d", 7000, 10)
		assert.True(t, errors.Is(err, ErrInsufficientFunds))
		assert.Equal(t, "need 7000 crystals, have 10", err.Error())
		assert.Equal(t, "INSUFFICIENT_FUNDS", err.Code)
	})

	t.Run("wrapped", func(t *testing.T) {
		err := fmt.Errorf("transfer: %w", ErrExpired)
		assert.True(t, errors.Is(err, ErrExpired))
		assert.False(t, errors.Is(err, ErrNotFound))
	})

	t.Run("errors.As extracts code", func(t *testing.T) {
		var de *DomainError
		err := fmt.Errorf("wrap: %w", ErrConflict)
		assert.True(t, errors.As(err, &de))
		assert.Equal(t, "CONFLICT", de.Code)
	})

	t.Run("different codes", func(t *testing.T) {
		assert.False(t, errors.Is(ErrNotFound, ErrNotOwned))
	})
}
