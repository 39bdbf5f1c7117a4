package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorMessage(t *testing.T) {
	err := NotFound("user missing")
	assert.Equal(t, "user missing", err.Error())

	cause := errors.New("connection refused")
	wrapped := Wrap(cause, ErrCodeStorage, "query users")
	assert.Equal(t, "query users: connection refused", wrapped.Error())
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(cause, ErrCodeInternal, "outer")

	require.ErrorIs(t, err, cause)
	assert.Equal(t, ErrCodeInternal, GetCode(err))
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeStorage, "nothing"))
	assert.Nil(t, Wrapf(nil, ErrCodeStorage, "nothing %d", 1))
}

func TestCodeCheckersSeeThroughWrapping(t *testing.T) {
	inner := Token("invalid token")
	outer := fmt.Errorf("during refresh: %w", inner)

	assert.True(t, IsToken(outer))
	assert.False(t, IsNotFound(outer))
	assert.Equal(t, ErrCodeToken, GetCode(outer))
}

func TestCheckers(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"not found", NotFoundf("user %s", "a@b"), IsNotFound},
		{"conflict", Conflict("exists"), IsConflict},
		{"validation", Validationf("bad %s", "state"), IsValidation},
		{"token", Token("invalid"), IsToken},
		{"upstream", Upstream("provider down"), IsUpstream},
		{"storage", Storage("io"), IsStorage},
		{"internal", Internal("bug"), IsInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
		})
	}
}

func TestGetCodeOnForeignError(t *testing.T) {
	assert.Equal(t, ErrorCode(""), GetCode(errors.New("plain")))
}
