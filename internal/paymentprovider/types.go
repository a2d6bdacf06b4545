package paymentprovider

// CreateOrderRequest запрос на создание заказа у провайдера.
// Amount указывается в минимальных единицах валюты (пайсы для INR).
type CreateOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// Order заказ в ответе провайдера
type Order struct {
	ID        string            `json:"id"`
	Entity    string            `json:"entity"`
	Amount    int64             `json:"amount"`
	Currency  string            `json:"currency"`
	Receipt   string            `json:"receipt"`
	Status    string            `json:"status"`
	Notes     map[string]string `json:"notes"`
	CreatedAt int64             `json:"created_at"`
}

// APIError тело ошибки провайдера
type APIError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// WebhookEvent конверт события вебхука
type WebhookEvent struct {
	Event   string         `json:"event"`
	Payload WebhookPayload `json:"payload"`
}

// WebhookPayload сущности события. Для order.paid приходят обе.
type WebhookPayload struct {
	Payment *EntityWrapper[PaymentEntity] `json:"payment,omitempty"`
	Order   *EntityWrapper[OrderEntity]   `json:"order,omitempty"`
}

// EntityWrapper обертка {"entity": {...}}
type EntityWrapper[T any] struct {
	Entity T `json:"entity"`
}

// PaymentEntity платеж из вебхука
type PaymentEntity struct {
	ID      string `json:"id"`
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Method  string `json:"method"`
	Amount  int64  `json:"amount"`
}

// OrderEntity заказ из вебхука
type OrderEntity struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// OrderID идентификатор заказа, к которому относится событие
func (e *WebhookEvent) OrderID() string {
	if e.Payload.Payment != nil && e.Payload.Payment.Entity.OrderID != "" {
		return e.Payload.Payment.Entity.OrderID
	}
	if e.Payload.Order != nil {
		return e.Payload.Order.Entity.ID
	}
	return ""
}

// Payment платеж события, если он есть
func (e *WebhookEvent) Payment() *PaymentEntity {
	if e.Payload.Payment == nil {
		return nil
	}
	return &e.Payload.Payment.Entity
}
