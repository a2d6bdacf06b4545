package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/interview-coach/internal/models"
)

const paymentColumns = `order_id, user_id, amount, currency, status, payment_id,
	payment_method, metadata, created_at, updated_at`

// CreatePaymentOrder сохраняет заказ, созданный у провайдера.
func (s *Storage) CreatePaymentOrder(ctx context.Context, order *models.PaymentOrder) error {
	const op = "storage.CreatePaymentOrder"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	metadata, err := json.Marshal(order.Metadata)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if order.Metadata == nil {
		metadata = []byte("{}")
	}

	query := `INSERT INTO payments (order_id, user_id, amount, currency, status, metadata)
			  VALUES ($1, $2, $3, $4, $5, $6::jsonb)
			  RETURNING created_at, updated_at`
	if err := s.DB.QueryRowContext(ctx, query,
		order.OrderID, order.UserID, order.Amount, order.Currency, string(order.Status),
		string(metadata)).Scan(&order.CreatedAt, &order.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, models.ErrAlreadyExists)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetPaymentOrder возвращает заказ по ID провайдера.
func (s *Storage) GetPaymentOrder(ctx context.Context, orderID string) (*models.PaymentOrder, error) {
	const op = "storage.GetPaymentOrder"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	row := s.DB.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE order_id = $1`, orderID)
	order, err := scanPaymentOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrOrderNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return order, nil
}

// ListPaymentOrders возвращает заказы пользователя, новые первыми.
func (s *Storage) ListPaymentOrders(ctx context.Context, userID string) ([]*models.PaymentOrder, error) {
	const op = "storage.ListPaymentOrders"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT `+paymentColumns+`
			  FROM payments
			  WHERE user_id = $1
			  ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]*models.PaymentOrder, 0)
	for rows.Next() {
		order, err := scanPaymentOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, order)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// SettlePaymentOrder применяет итог платежа к заказу в одной транзакции.
// Строка заказа блокируется, переход выполняется только из created.
// При переходе в completed профиль получает премиум, а время покупки
// выставляется только при первом подтверждении.
func (s *Storage) SettlePaymentOrder(ctx context.Context, orderID string, to models.PaymentStatus,
	paymentID, method string) (*models.Settlement, error) {
	const op = "storage.SettlePaymentOrder"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var (
		userID string
		status string
	)
	err = tx.QueryRowContext(ctx,
		`SELECT user_id, status FROM payments WHERE order_id = $1 FOR UPDATE`, orderID).Scan(&userID, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrOrderNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	current := models.PaymentStatus(status)
	result := &models.Settlement{OrderID: orderID, UserID: userID, Status: current}
	if !current.CanTransition(to) {
		return result, nil
	}

	_, err = tx.ExecContext(ctx, `UPDATE payments
			  SET status = $2,
			      payment_id = COALESCE(NULLIF($3, ''), payment_id),
			      payment_method = COALESCE(NULLIF($4, ''), payment_method),
			      updated_at = NOW()
			  WHERE order_id = $1`, orderID, string(to), paymentID, method)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if to == models.PaymentCompleted {
		res, err := tx.ExecContext(ctx, `UPDATE profiles
			  SET premium_status = true,
			      premium_purchased_at = COALESCE(premium_purchased_at, NOW()),
			      updated_at = NOW()
			  WHERE id = $1`, userID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if n, err := res.RowsAffected(); err != nil || n == 0 {
			return nil, fmt.Errorf("%s: profile %s: %w", op, userID, models.ErrNotFound)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	result.Applied = true
	result.Status = to
	return result, nil
}

func scanPaymentOrder(row rowScanner) (*models.PaymentOrder, error) {
	var (
		order             models.PaymentOrder
		status            string
		paymentID, method sql.NullString
		metadata          []byte
	)
	if err := row.Scan(&order.OrderID, &order.UserID, &order.Amount, &order.Currency, &status,
		&paymentID, &method, &metadata, &order.CreatedAt, &order.UpdatedAt); err != nil {
		return nil, err
	}
	order.Status = models.PaymentStatus(status)
	if paymentID.Valid {
		order.PaymentID = &paymentID.String
	}
	if method.Valid {
		order.PaymentMethod = &method.String
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &order.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return &order, nil
}
