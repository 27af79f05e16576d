package httperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/accountd/pkg/httperr"
)

func TestStatusError(t *testing.T) {
	t.Parallel()

	err := httperr.New(http.StatusTeapot, "short and %s", "stout")
	assert.Equal(t, http.StatusTeapot, err.Code)
	assert.Equal(t, "short and stout", err.Message)
	assert.Equal(t, "418: short and stout", err.Error())
}

func TestConstructors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  httperr.StatusError
		code int
	}{
		{"bad request", httperr.BadRequest("x"), http.StatusBadRequest},
		{"unauthorized", httperr.Unauthorized("x"), http.StatusUnauthorized},
		{"forbidden", httperr.Forbidden("x"), http.StatusForbidden},
		{"conflict", httperr.Conflict("x"), http.StatusConflict},
		{"internal", httperr.Internal("x"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.code, tt.err.Code)
		})
	}
}

func TestErrorsAsThroughWrapping(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("handler: %w", httperr.Forbidden("nope"))

	var statusErr httperr.StatusError
	require.True(t, errors.As(wrapped, &statusErr))
	assert.Equal(t, http.StatusForbidden, statusErr.Code)
	assert.Equal(t, "nope", statusErr.Message)
}
