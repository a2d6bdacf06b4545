// Package capability решает, доступно ли пользователю голосовое интервью,
// и инициирует покупку премиума у платежного провайдера.
package capability

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/interview-coach/internal/config"
	"github.com/magabrotheeeer/interview-coach/internal/models"
	"github.com/magabrotheeeer/interview-coach/internal/paymentprovider"
)

// PremiumUpgrade тип заказа в заметках провайдера и метаданных
const PremiumUpgrade = "premium_upgrade"

// Repository методы хранилища, нужные шлюзу
type Repository interface {
	GetPremiumStatus(ctx context.Context, userID string) (bool, error)
	CreatePaymentOrder(ctx context.Context, order *models.PaymentOrder) error
	ListPaymentOrders(ctx context.Context, userID string) ([]*models.PaymentOrder, error)
}

// Provider API заказов платежного провайдера
type Provider interface {
	CreateOrder(ctx context.Context, req paymentprovider.CreateOrderRequest) (*paymentprovider.Order, error)
	KeyID() string
}

// Gate шлюз возможностей пользователя
type Gate struct {
	repo       Repository
	provider   Provider
	amount     int64
	currency   string
	configured bool
	now        func() time.Time
	log        *slog.Logger
}

// New создает шлюз. Без ключей провайдера любая попытка оплаты
// завершается ErrPaymentInit.
func New(repo Repository, provider Provider, cfg config.Razorpay, log *slog.Logger) *Gate {
	return &Gate{
		repo:       repo,
		provider:   provider,
		amount:     cfg.PremiumAmount,
		currency:   cfg.Currency,
		configured: provider != nil && cfg.KeyID != "" && cfg.KeySecret != "",
		now:        time.Now,
		log:        log,
	}
}

// CanEnterVoiceInterview только читает флаг премиума профиля
func (g *Gate) CanEnterVoiceInterview(ctx context.Context, userID string) (bool, error) {
	const op = "services.capability.CanEnterVoiceInterview"

	premium, err := g.repo.GetPremiumStatus(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return premium, nil
}

// InitiatePayment создает заказ у провайдера и сохраняет его локально.
// Заказ у провайдера создается первым: при его сбое ничего не сохраняется.
func (g *Gate) InitiatePayment(ctx context.Context, userID string) (*models.PaymentInit, error) {
	const op = "services.capability.InitiatePayment"

	if !g.configured {
		return nil, fmt.Errorf("%s: provider keys are not configured: %w", op, models.ErrPaymentInit)
	}

	premium, err := g.repo.GetPremiumStatus(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if premium {
		return nil, fmt.Errorf("%s: %w", op, models.ErrAlreadyPremium)
	}

	receipt := fmt.Sprintf("premium_%s_%d", userID, g.now().UnixMilli())
	order, err := g.provider.CreateOrder(ctx, paymentprovider.CreateOrderRequest{
		Amount:   g.amount,
		Currency: g.currency,
		Receipt:  receipt,
		Notes: map[string]string{
			"user_id": userID,
			"type":    PremiumUpgrade,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, models.ErrPaymentInit, err)
	}

	amount, currency := order.Amount, order.Currency
	if amount == 0 {
		amount = g.amount
	}
	if currency == "" {
		currency = g.currency
	}

	err = g.repo.CreatePaymentOrder(ctx, &models.PaymentOrder{
		OrderID:  order.ID,
		UserID:   userID,
		Amount:   amount,
		Currency: currency,
		Status:   models.PaymentCreated,
		Metadata: map[string]string{
			"receipt": receipt,
			"type":    PremiumUpgrade,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	g.log.Info("payment order created",
		slog.String("user_id", userID),
		slog.String("order_id", order.ID),
		slog.Int64("amount", amount))

	return &models.PaymentInit{
		OrderID:     order.ID,
		Amount:      amount,
		Currency:    currency,
		ProviderKey: g.provider.KeyID(),
	}, nil
}

// ListOrders заказы пользователя, новые первыми
func (g *Gate) ListOrders(ctx context.Context, userID string) ([]*models.PaymentOrder, error) {
	const op = "services.capability.ListOrders"

	orders, err := g.repo.ListPaymentOrders(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return orders, nil
}
