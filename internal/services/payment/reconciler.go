// Package payment применяет вебхуки платежного провайдера к заказам
// и профилям. Доставка вебхуков at-least-once: повторы и события
// не по порядку поглощаются блокировкой строки заказа и терминальными состояниями.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/interview-coach/internal/metrics"
	"github.com/magabrotheeeer/interview-coach/internal/models"
	"github.com/magabrotheeeer/interview-coach/internal/paymentprovider"
)

// События провайдера, которые меняют состояние заказа
const (
	EventPaymentCaptured = "payment.captured"
	EventOrderPaid       = "order.paid"
	EventPaymentFailed   = "payment.failed"
)

// Исходы обработки вебхука, они же значения метки метрики
const (
	OutcomeApplied          = "applied"
	OutcomeDuplicate        = "duplicate"
	OutcomeIgnored          = "ignored"
	OutcomeInvalidSignature = "invalid_signature"
	OutcomeMalformed        = "malformed"
	OutcomeUnknownOrder     = "unknown_order"
	OutcomeError            = "error"
)

// Repository применение итога платежа
type Repository interface {
	SettlePaymentOrder(ctx context.Context, orderID string, to models.PaymentStatus,
		paymentID, method string) (*models.Settlement, error)
}

// WebhookResult итог обработки одной доставки
type WebhookResult struct {
	Event   string               `json:"event"`
	OrderID string               `json:"order_id,omitempty"`
	Outcome string               `json:"outcome"`
	Status  models.PaymentStatus `json:"status,omitempty"`
}

// Reconciler обработчик вебхуков
type Reconciler struct {
	repo    Repository
	secret  string
	metrics *metrics.Metrics
	log     *slog.Logger
}

// New создает обработчик. Пустой secret отключает проверку подписи.
func New(repo Repository, webhookSecret string, log *slog.Logger, m *metrics.Metrics) *Reconciler {
	if webhookSecret == "" {
		log.Warn("webhook secret is not configured, signature verification is disabled")
	}
	return &Reconciler{
		repo:    repo,
		secret:  webhookSecret,
		metrics: m,
		log:     log,
	}
}

// HandleWebhook проверяет подпись, разбирает событие и применяет его к заказу
func (r *Reconciler) HandleWebhook(ctx context.Context, rawBody []byte, signature string) (*WebhookResult, error) {
	const op = "services.payment.HandleWebhook"

	if r.secret != "" && !paymentprovider.VerifySignature(r.secret, rawBody, signature) {
		r.metrics.WebhookEvent("unknown", OutcomeInvalidSignature)
		return nil, fmt.Errorf("%s: %w", op, models.ErrInvalidSignature)
	}

	var event paymentprovider.WebhookEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		r.metrics.WebhookEvent("unknown", OutcomeMalformed)
		return nil, fmt.Errorf("%s: decode payload: %w: %w", op, models.ErrValidation, err)
	}
	if event.Event == "" {
		r.metrics.WebhookEvent("unknown", OutcomeMalformed)
		return nil, fmt.Errorf("%s: event name is missing: %w", op, models.ErrValidation)
	}

	var target models.PaymentStatus
	switch event.Event {
	case EventPaymentCaptured, EventOrderPaid:
		target = models.PaymentCompleted
	case EventPaymentFailed:
		target = models.PaymentFailed
	default:
		r.metrics.WebhookEvent(event.Event, OutcomeIgnored)
		r.log.Info("ignored webhook event", slog.String("event", event.Event))
		return &WebhookResult{Event: event.Event, Outcome: OutcomeIgnored}, nil
	}

	orderID := event.OrderID()
	if orderID == "" {
		r.metrics.WebhookEvent(event.Event, OutcomeMalformed)
		return nil, fmt.Errorf("%s: order id is missing: %w", op, models.ErrValidation)
	}

	var paymentID, method string
	if p := event.Payment(); p != nil {
		paymentID, method = p.ID, p.Method
	}

	settlement, err := r.repo.SettlePaymentOrder(ctx, orderID, target, paymentID, method)
	if err != nil {
		if errors.Is(err, models.ErrOrderNotFound) {
			r.metrics.WebhookEvent(event.Event, OutcomeUnknownOrder)
		} else {
			r.metrics.WebhookEvent(event.Event, OutcomeError)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log := r.log.With(
		slog.String("event", event.Event),
		slog.String("order_id", orderID),
		slog.String("user_id", settlement.UserID),
	)
	result := &WebhookResult{Event: event.Event, OrderID: orderID, Status: settlement.Status}

	switch {
	case settlement.Applied:
		result.Outcome = OutcomeApplied
		log.Info("payment order settled", slog.String("status", string(settlement.Status)))
	case settlement.Status == models.PaymentFailed && target == models.PaymentCompleted:
		// failed терминален, поздний capture не повышает профиль
		result.Outcome = OutcomeDuplicate
		log.Warn("capture received for failed order, ignoring")
	default:
		result.Outcome = OutcomeDuplicate
		log.Info("duplicate webhook delivery", slog.String("status", string(settlement.Status)))
	}

	r.metrics.WebhookEvent(event.Event, result.Outcome)
	return result, nil
}
