package response

import (
	"errors"
	"net/http"

	"github.com/magabrotheeeer/interview-coach/internal/models"
)

// FromError сопоставляет доменную ошибку HTTP-статусу и безопасному сообщению.
// Подробности ошибки остаются в логах.
func FromError(err error) (int, ErrorResponse) {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest, Error("invalid request")
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusUnauthorized, Error("invalid credentials")
	case errors.Is(err, models.ErrOrderNotFound):
		return http.StatusNotFound, Error("payment order not found")
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, Error("not found")
	case errors.Is(err, models.ErrAlreadyPremium):
		return http.StatusConflict, Error("profile is already premium")
	case errors.Is(err, models.ErrInvalidState):
		return http.StatusConflict, Error("operation not allowed in current state")
	case errors.Is(err, models.ErrAlreadyExists):
		return http.StatusConflict, Error("already exists")
	case errors.Is(err, models.ErrInvalidSignature):
		return http.StatusBadRequest, Error("invalid signature")
	case errors.Is(err, models.ErrPaymentInit):
		return http.StatusBadGateway, Error("payment provider error")
	case errors.Is(err, models.ErrUpstream):
		return http.StatusBadGateway, Error("upstream service error")
	default:
		return http.StatusInternalServerError, Error("internal error")
	}
}
