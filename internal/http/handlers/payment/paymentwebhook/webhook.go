// Package paymentwebhook принимает вебхуки платежного провайдера.
package paymentwebhook

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/interview-coach/internal/http/response"
	"github.com/magabrotheeeer/interview-coach/internal/lib/sl"
	"github.com/magabrotheeeer/interview-coach/internal/paymentprovider"
	"github.com/magabrotheeeer/interview-coach/internal/services/payment"
)

// maxBodySize ограничение на размер тела вебхука
const maxBodySize = 1 << 20

// Service обработка доставки вебхука
type Service interface {
	HandleWebhook(ctx context.Context, rawBody []byte, signature string) (*payment.WebhookResult, error)
}

// Handler обработчик POST /payments/webhook
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service
}

// New создает Handler
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Вебхук Razorpay
// @Description Проверяет подпись X-Razorpay-Signature и применяет событие к заказу.
// @Description Повторные доставки отвечают 200. На ошибку хранилища отвечает 500, чтобы провайдер повторил доставку.
// @Tags Payments
// @Accept  json
// @Produce  json
// @Param X-Razorpay-Signature header string false "hex HMAC-SHA256 тела"
// @Success 200 {object} response.Response "Событие обработано"
// @Failure 400 {object} response.ErrorResponse "Неверная подпись или тело"
// @Failure 404 {object} response.ErrorResponse "Заказ не найден"
// @Failure 500 {object} response.ErrorResponse "Ошибка хранилища"
// @Router /payments/webhook [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.webhook"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	result, err := h.service.HandleWebhook(r.Context(), body, r.Header.Get(paymentprovider.SignatureHeader))
	if err != nil {
		log.Error("failed to process webhook", sl.Err(err))
		status, resp := response.FromError(err)
		w.WriteHeader(status)
		render.JSON(w, r, resp)
		return
	}

	log.Info("webhook processed",
		slog.String("event", result.Event),
		slog.String("order_id", result.OrderID),
		slog.String("outcome", result.Outcome),
	)
	render.JSON(w, r, response.StatusOKWithData(result))
}
