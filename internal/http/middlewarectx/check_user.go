package middlewarectx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/interview-coach/internal/http/response"
	"github.com/magabrotheeeer/interview-coach/internal/lib/sl"
	"github.com/magabrotheeeer/interview-coach/internal/models"
)

// CapabilityService определяет интерфейс проверки доступа к голосовому интервью
type CapabilityService interface {
	CanEnterVoiceInterview(ctx context.Context, userID string) (bool, error)
}

// PremiumMiddleware пропускает только пользователей с премиум-доступом.
func PremiumMiddleware(log *slog.Logger, gate CapabilityService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				log.Error("user identification missing")
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("user identification missing"))
				return
			}

			allowed, err := gate.CanEnterVoiceInterview(r.Context(), userID)
			if errors.Is(err, models.ErrNotFound) {
				log.Error("profile not found", slog.String("user_id", userID))
				w.WriteHeader(http.StatusNotFound)
				render.JSON(w, r, response.Error("profile not found"))
				return
			}
			if err != nil {
				log.Error("failed to check premium status", sl.Err(err))
				w.WriteHeader(http.StatusInternalServerError)
				render.JSON(w, r, response.Error("internal service error"))
				return
			}

			if !allowed {
				log.Info("premium required, access denied", slog.String("user_id", userID))
				w.WriteHeader(http.StatusForbidden)
				render.JSON(w, r, response.Error("premium required, access denied"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
