package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorError(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "without internal error",
			err:      NewMetadataNotFound("class", "Router"),
			expected: "metadata_object_not_found: class 'Router' not found",
		},
		{
			name:     "with internal error",
			err:      NewInvalidArgument("42x", "cannot convert %q to %s", "42x", "Integer").WithInternal(errors.New("strconv failure")),
			expected: `invalid_argument: cannot convert "42x" to Integer (strconv failure)`,
		},
		{
			name:     "empty message",
			err:      &Error{Kind: KindOperationNotPermitted},
			expected: "operation_not_permitted: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestErrorIs(t *testing.T) {
	err := NewObjectNotFound("inst-1", "instance %s has no value for %s", "inst-1", "serial")
	wrapped := fmt.Errorf("set attribute: %w", err)

	assert.True(t, errors.Is(wrapped, ErrObjectNotFound))
	assert.False(t, errors.Is(wrapped, ErrInvalidArgument))
	assert.True(t, IsObjectNotFound(wrapped))
	assert.False(t, IsMetadataNotFound(wrapped))
	assert.Equal(t, KindObjectNotFound, KindOf(wrapped))
	assert.Equal(t, "inst-1", SubjectOf(wrapped))

	other := NewObjectNotFound("inst-2", "other")
	assert.False(t, errors.Is(err, other), "non-sentinel targets match by identity")
}

func TestHelpers(t *testing.T) {
	assert.True(t, IsMetadataNotFound(NewMetadataNotFound("attribute", "x")))
	assert.True(t, IsInvalidArgument(NewInvalidArgument("x", "bad")))
	assert.True(t, IsNotPermitted(NewNotPermitted("x", "no")))
	assert.True(t, IsNotFound(NewObjectNotFound("i-1", "missing")))
	assert.True(t, IsNotFound(fmt.Errorf("wrapped: %w", NewMetadataNotFound("class", "Rack"))))
	assert.False(t, IsNotFound(NewInvalidArgument("x", "bad")))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.Equal(t, "", SubjectOf(errors.New("plain")))
}

func TestWithCopies(t *testing.T) {
	base := NewNotPermitted("Router", "class %s has instances", "Router")
	internal := errors.New("boom")

	withInternal := base.WithInternal(internal)
	assert.Nil(t, base.Internal, "original untouched")
	assert.ErrorIs(t, withInternal, internal)

	moved := base.WithSubject("Switch")
	assert.Equal(t, "Switch", moved.Subject)
	assert.Equal(t, base.Message, moved.Message)
}
