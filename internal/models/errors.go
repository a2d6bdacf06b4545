package models

import (
	"errors"
	"fmt"
)

// Классы ошибок домена. Слои оборачивают их через fmt.Errorf("%s: %w", op, err),
// обработчики сопоставляют через errors.Is.
var (
	ErrValidation       = errors.New("validation failed")
	ErrNotFound         = errors.New("not found")
	ErrOrderNotFound    = fmt.Errorf("payment order %w", ErrNotFound)
	ErrInvalidState     = errors.New("invalid state transition")
	ErrAlreadyPremium   = fmt.Errorf("profile is already premium: %w", ErrInvalidState)
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrUpstream         = errors.New("upstream service failed")
	ErrPaymentInit      = errors.New("payment initiation failed")
	ErrAlreadyExists    = errors.New("already exists")
	ErrUnauthorized     = errors.New("invalid credentials")
)
