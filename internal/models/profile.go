package models

import "time"

// Profile профиль пользователя. PremiumPurchasedAt выставляется один раз
// при первом подтвержденном платеже и больше не меняется.
type Profile struct {
	ID                 string     `json:"id"`
	Email              string     `json:"email"`
	FullName           string     `json:"full_name"`
	PasswordHash       string     `json:"-"`
	PremiumStatus      bool       `json:"premium_status"`
	PremiumPurchasedAt *time.Time `json:"premium_purchased_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// RegisterRequest тело запроса регистрации
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	FullName string `json:"full_name" validate:"max=200"`
}

// LoginRequest тело запроса входа
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
