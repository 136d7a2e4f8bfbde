package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindsMatchThroughWrapping(t *testing.T) {
	err := fmt.Errorf("save participant: %w", Conflict("A participant with this email already exists"))

	assert.True(t, errors.Is(err, ErrConflict))
	assert.False(t, errors.Is(err, ErrNotFound))

	msg, ok := Message(err)
	assert.True(t, ok)
	assert.Equal(t, "A participant with this email already exists", msg)
}

func TestMessageUnknownError(t *testing.T) {
	msg, ok := Message(errors.New("disk I/O error"))
	assert.False(t, ok)
	assert.Empty(t, msg)
}
