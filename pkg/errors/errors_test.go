package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_WrapsCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := NewPersistenceError("failed to append event", cause)

	assert.Equal(t, ErrCodePersistence, err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus)
	assert.True(t, stderrors.Is(err, cause))
	assert.Contains(t, err.Error(), "PERSISTENCE_ERROR")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestGetAppError_FindsDeepestWrap(t *testing.T) {
	inner := NewPersistenceError("failed to list events", stderrors.New("timeout"))
	wrapped := fmt.Errorf("while handling request: %w", inner)

	got := GetAppError(wrapped)
	require.NotNil(t, got)
	assert.Equal(t, ErrCodePersistence, got.Code)
	assert.Equal(t, "failed to list events", got.Message)

	assert.Nil(t, GetAppError(stderrors.New("plain")))
	assert.Nil(t, GetAppError(nil))
}
