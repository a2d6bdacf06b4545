// Package paymentcreate обрабатывает создание заказа на покупку премиума.
package paymentcreate

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/interview-coach/internal/http/middlewarectx"
	"github.com/magabrotheeeer/interview-coach/internal/http/response"
	"github.com/magabrotheeeer/interview-coach/internal/lib/sl"
	"github.com/magabrotheeeer/interview-coach/internal/models"
)

// Service определяет интерфейс создания заказа у платежного провайдера.
type Service interface {
	InitiatePayment(ctx context.Context, userID string) (*models.PaymentInit, error)
}

// Handler обрабатывает запросы на создание заказа.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Создать заказ на премиум
// @Description Создает заказ у Razorpay и возвращает данные для открытия checkout на клиенте.
// @Description Премиум включается только после подтверждения вебхуком.
// @Tags Payments
// @Produce  json
// @Success 200 {object} response.Response "Данные заказа: order_id, amount, currency, provider_key"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 409 {object} response.ErrorResponse "Премиум уже куплен"
// @Failure 502 {object} response.ErrorResponse "Ошибка платежного провайдера"
// @Router /payments/orders [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, ok := middlewarectx.UserIDFromContext(r.Context())
	if !ok {
		log.Error("user id not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	order, err := h.service.InitiatePayment(r.Context(), userID)
	if err != nil {
		log.Error("failed to initiate payment", slog.String("user_id", userID), sl.Err(err))
		status, body := response.FromError(err)
		w.WriteHeader(status)
		render.JSON(w, r, body)
		return
	}

	log.Info("payment order created", slog.String("order_id", order.OrderID), slog.Int64("amount", order.Amount))
	render.JSON(w, r, response.StatusOKWithData(order))
}
