package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	base := errors.New("boom")

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", Validation("bad %s", "input"), http.StatusBadRequest},
		{"wrapped validation", fmt.Errorf("ctx: %w", Validation("bad")), http.StatusBadRequest},
		{"auth", &AuthError{Reason: "missing key"}, http.StatusUnauthorized},
		{"not found", &NotFoundError{Resource: "subscriber"}, http.StatusNotFound},
		{"conflict", &ConflictError{Message: "taken"}, http.StatusConflict},
		{"storage", Storage("get", base), http.StatusInternalServerError},
		{"plain", base, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusCode(tt.err))
		})
	}
}

func TestStorageUnwraps(t *testing.T) {
	base := errors.New("connection refused")
	err := Storage("set", base)

	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "storage set")
	assert.Nil(t, Storage("set", nil))
}

func TestPublicMessage(t *testing.T) {
	assert.Equal(t, "Full name is required", PublicMessage(Validation("Full name is required"), "fallback"))
	assert.Equal(t, "subscriber not found", PublicMessage(&NotFoundError{Resource: "subscriber"}, "fallback"))
	assert.Equal(t, "fallback", PublicMessage(Storage("get", errors.New("x")), "fallback"))
}
