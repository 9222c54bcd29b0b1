package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesKind(t *testing.T) {
	err := Wrap(ErrKindSourceUnavailable, "read", errors.New("disk gone"))

	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "read: disk gone", err.Error())

	wrapped := fmt.Errorf("loading page: %w", err)
	assert.ErrorIs(t, wrapped, ErrSourceUnavailable)
	assert.Equal(t, ErrKindSourceUnavailable, KindOf(wrapped))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, ErrKind(0), KindOf(nil))
	assert.Equal(t, ErrKind(0), KindOf(errors.New("plain")))
	assert.Equal(t, ErrKindStale, KindOf(New(ErrKindStale, "old")))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "RowLengthExceeded", ErrKindRowLengthExceeded.String())
	assert.Equal(t, "Unknown", ErrKind(99).String())
}

func TestNilError(t *testing.T) {
	var e *Error
	assert.Equal(t, "<nil>", e.Error())
	assert.False(t, e.Is(ErrStale))
}
