package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByKind(t *testing.T) {
	err := NotFound("get movie", "movie %d not found", 42)

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrValidation))

	wrapped := fmt.Errorf("dispatch: %w", err)
	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.Equal(t, KindNotFound, KindOf(wrapped))
}

func TestKindOfUntagged(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, "internal error", Message(errors.New("near \"SELEC\": syntax error")))
}

func TestErrorString(t *testing.T) {
	cause := errors.New("database is locked")
	err := Wrap(KindResourceBusy, "store write", cause)

	assert.Equal(t, "store write: ResourceBusyError: database is locked", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "ResourceBusyError", Message(err))

	v := Validation("parse id", "invalid id %q", "abc")
	assert.Equal(t, `parse id: invalid id "abc"`, v.Error())
	assert.Equal(t, `invalid id "abc"`, Message(v))
}
