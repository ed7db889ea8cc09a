package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructorsCarryStatus(t *testing.T) {
	cases := []struct {
		err    *AppError
		code   string
		status int
	}{
		{Validation("title is required"), CodeValidation, http.StatusBadRequest},
		{Unauthorized("missing token", nil), CodeUnauthorized, http.StatusUnauthorized},
		{Forbidden("not yours", nil), CodeForbidden, http.StatusForbidden},
		{NotFound("Offer", nil), CodeNotFound, http.StatusNotFound},
		{Conflict("duplicate offer"), CodeConflict, http.StatusConflict},
		{Internal("boom", nil), CodeInternal, http.StatusInternalServerError},
		{TooManyRequests("slow down"), CodeTooManyRequests, http.StatusTooManyRequests},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.code, tc.err.Code)
		assert.Equal(t, tc.status, tc.err.Status)
	}
}

func TestNotFoundMessage(t *testing.T) {
	assert.Equal(t, "Buyer request not found", NotFound("Buyer request", nil).Message)
}

func TestIsSeesThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("accept: %w", Conflict("request not open"))

	assert.True(t, IsConflict(wrapped))
	assert.False(t, IsNotFound(wrapped))
	assert.False(t, Is(stderrors.New("plain"), CodeConflict))
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := Internal("Failed to load offer", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "INTERNAL_ERROR: Failed to load offer", err.Error())
}
