package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusErrorKeepsCode(t *testing.T) {
	err := NewStatusError("generate ideas", 502)

	assert.True(t, IsStatusError(err))
	assert.Equal(t, 502, err.StatusCode)
	assert.Equal(t, "BACKEND_STATUS", err.Code)
}

func TestWrapErrorPreservesType(t *testing.T) {
	base := NewStatusError("specialize", 500)
	wrapped := WrapError(base, "twitter", ErrorTypeError)

	require.Error(t, wrapped)
	assert.True(t, IsStatusError(wrapped))
	assert.Equal(t, ErrorTypeStatus, TypeOf(wrapped))

	var appErr *AppError
	require.True(t, stderrors.As(wrapped, &appErr))
	assert.Equal(t, 500, appErr.StatusCode)
	assert.Equal(t, "twitter: specialize", appErr.Message)
}

func TestWrapErrorPlainError(t *testing.T) {
	wrapped := WrapError(fmt.Errorf("dial tcp: refused"), "history", ErrorTypeTransport)

	assert.True(t, IsTransportError(wrapped))
	assert.Contains(t, wrapped.Error(), "dial tcp: refused")
	assert.Nil(t, WrapError(nil, "x", ErrorTypeError))
}

func TestTypeOfUntypedError(t *testing.T) {
	assert.Equal(t, ErrorTypeError, TypeOf(stderrors.New("boom")))
	assert.Equal(t, ErrorTypeEmpty, TypeOf(fmt.Errorf("ideas: %w", NewEmptyError("no ideas"))))
}
