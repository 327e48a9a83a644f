package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserError(t *testing.T) {
	cause := errors.New("disk I/O error")
	err := NewUserError("could not open the expense database", cause)

	assert.Equal(t, "could not open the expense database: disk I/O error", err.Error())
	assert.ErrorIs(t, err, cause)

	// The terminal-facing message survives further wrapping.
	wrapped := fmt.Errorf("startup: %w", err)
	var userErr *UserError
	require.ErrorAs(t, wrapped, &userErr)
	assert.Equal(t, "could not open the expense database", userErr.UserMessage)
}

func TestUserErrorWithoutCause(t *testing.T) {
	err := &UserError{UserMessage: "nothing to import"}
	assert.Equal(t, "nothing to import", err.Error())
	assert.NoError(t, err.Unwrap())
}
