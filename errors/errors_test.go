package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidation_JoinsMessagesInFieldOrder(t *testing.T) {
	err := Validation(map[string]string{
		"photo":     "photo is required",
		"full_name": "full_name is a required field",
	})

	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.Equal(t, "full_name is a required field; photo is required", err.Error())
	assert.True(t, IsValidation(err))
	assert.False(t, IsNotFound(err))
}

func TestKindsSurviveWrapping(t *testing.T) {
	cause := stderrors.New("connection reset")
	wrapped := fmt.Errorf("submit: %w", Persistence(cause))

	assert.True(t, IsPersistence(wrapped))
	assert.True(t, stderrors.Is(wrapped, cause))
	assert.Contains(t, wrapped.Error(), "connection reset")

	var e *Error
	require.True(t, stderrors.As(wrapped, &e))
	assert.Equal(t, http.StatusServiceUnavailable, e.Status)
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		err    *Error
		status int
		is     func(error) bool
	}{
		{"storage", Storage(stderrors.New("s3 down")), http.StatusBadGateway, IsStorage},
		{"not found", NotFound("report", "abc"), http.StatusNotFound, IsNotFound},
		{"auth", Auth("token expired", nil), http.StatusUnauthorized, IsAuth},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.Status)
			assert.True(t, tt.is(tt.err))
		})
	}
	assert.Equal(t, "report abc not found", NotFound("report", "abc").Error())
}

func TestFromError(t *testing.T) {
	typed := NotFound("comment", "1")
	assert.Same(t, typed, FromError(fmt.Errorf("wrap: %w", typed)))

	plain := FromError(stderrors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, plain.Status)
	assert.Equal(t, "internal server error: boom", plain.Error())
}
