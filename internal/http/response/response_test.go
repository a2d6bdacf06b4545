package response

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/interview-coach/internal/models"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"validation", fmt.Errorf("op: %w", models.ErrValidation), http.StatusBadRequest, "invalid request"},
		{"unauthorized", models.ErrUnauthorized, http.StatusUnauthorized, "invalid credentials"},
		{"order not found", fmt.Errorf("op: %w", models.ErrOrderNotFound), http.StatusNotFound, "payment order not found"},
		{"not found", models.ErrNotFound, http.StatusNotFound, "not found"},
		{"already premium", models.ErrAlreadyPremium, http.StatusConflict, "profile is already premium"},
		{"invalid state", models.ErrInvalidState, http.StatusConflict, "operation not allowed in current state"},
		{"already exists", models.ErrAlreadyExists, http.StatusConflict, "already exists"},
		{"signature", models.ErrInvalidSignature, http.StatusBadRequest, "invalid signature"},
		{"payment init", models.ErrPaymentInit, http.StatusBadGateway, "payment provider error"},
		{"upstream", models.ErrUpstream, http.StatusBadGateway, "upstream service error"},
		{"unknown", errors.New("pq: connection refused"), http.StatusInternalServerError, "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := FromError(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, StatusError, body.Status)
			assert.Equal(t, tt.wantMsg, body.Error)
		})
	}
}

func TestValidationError(t *testing.T) {
	type request struct {
		Email    string `validate:"required,email"`
		Password string `validate:"required,min=8"`
		Index    int    `validate:"gte=0"`
	}

	err := validator.New().Struct(request{Email: "nope", Password: "short", Index: -1})
	require.Error(t, err)

	resp := ValidationError(err.(validator.ValidationErrors))
	assert.Equal(t, StatusError, resp.Status)
	assert.Contains(t, resp.Error, "field Email must be a valid email")
	assert.Contains(t, resp.Error, "field Password must be at least 8 long")
	assert.Contains(t, resp.Error, "field Index must be greater than or equal to 0")
}
