package models

import "time"

// PaymentStatus состояние платежного заказа
type PaymentStatus string

// Допустимые состояния заказа. completed и failed терминальны.
const (
	PaymentCreated   PaymentStatus = "created"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// CanTransition разрешает только переходы из created в терминальное состояние
func (s PaymentStatus) CanTransition(to PaymentStatus) bool {
	return s == PaymentCreated && (to == PaymentCompleted || to == PaymentFailed)
}

// PaymentOrder заказ у платежного провайдера и его локальное состояние
type PaymentOrder struct {
	OrderID       string            `json:"order_id"`
	UserID        string            `json:"user_id"`
	Amount        int64             `json:"amount"`
	Currency      string            `json:"currency"`
	Status        PaymentStatus     `json:"status"`
	PaymentID     *string           `json:"payment_id,omitempty"`
	PaymentMethod *string           `json:"payment_method,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// PaymentInit данные, которые клиент передает в checkout провайдера
type PaymentInit struct {
	OrderID     string `json:"order_id"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	ProviderKey string `json:"provider_key"`
}

// Settlement результат применения подтверждения платежа
type Settlement struct {
	OrderID string
	UserID  string
	// Applied false, если заказ уже был в терминальном состоянии
	Applied bool
	Status  PaymentStatus
}
