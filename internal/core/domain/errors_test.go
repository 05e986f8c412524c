package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrors_Distinct(t *testing.T) {
	all := []error{
		ErrNotFound,
		ErrInvalidInput,
		ErrUnknownStream,
		ErrInvalidStreamDefinition,
		ErrSyncInProgress,
		ErrInvalidWatermark,
		ErrInvalidTimestamp,
		ErrMalformedResponse,
		ErrRetriesExhausted,
		ErrLockHeld,
	}

	for i, a := range all {
		assert.NotEmpty(t, a.Error())
		for j, b := range all {
			if i != j {
				assert.False(t, errors.Is(a, b), "%v must not match %v", a, b)
			}
		}
	}
}

func TestErrors_Wrapped(t *testing.T) {
	err := fmt.Errorf("sync opens for parent c1: %w", fmt.Errorf("%w: %q", ErrInvalidWatermark, "yesterday"))

	assert.ErrorIs(t, err, ErrInvalidWatermark)
	assert.NotErrorIs(t, err, ErrInvalidTimestamp)
	assert.Contains(t, err.Error(), `invalid watermark: "yesterday"`)
}
