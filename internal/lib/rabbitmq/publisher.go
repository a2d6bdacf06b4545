package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"
)

// Ошибки публикации
var (
	ErrNacked     = errors.New("message rejected by broker")
	ErrUnroutable = errors.New("message has no matching queue")
)

// Publisher публикует JSON-сообщения в режиме подтверждений: Publish
// возвращается только после ack брокера. Сообщение без подходящей очереди
// (mandatory) возвращается как ErrUnroutable.
type Publisher struct {
	mu       sync.Mutex
	ch       *amqp.Channel
	confirms chan amqp.Confirmation
	returns  chan amqp.Return
	tag      uint64
}

// NewPublisher переводит канал в режим подтверждений
func NewPublisher(ch *amqp.Channel) (*Publisher, error) {
	const op = "rabbitmq.NewPublisher"

	if err := ch.Confirm(false); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Publisher{
		ch:       ch,
		confirms: ch.NotifyPublish(make(chan amqp.Confirmation, 16)),
		returns:  ch.NotifyReturn(make(chan amqp.Return, 16)),
	}, nil
}

// Publish публикует persistent-сообщение с идентификатором messageID
// и ждет подтверждения брокера или отмены ctx.
func (p *Publisher) Publish(ctx context.Context, exchange, routingKey, messageID string, message any) error {
	const op = "rabbitmq.Publish"

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.Publish(
		exchange,
		routingKey,
		true,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    messageID,
			Timestamp:    time.Now().UTC(),
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	p.tag++

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %s: %w", op, messageID, ctx.Err())
		case conf, ok := <-p.confirms:
			if !ok {
				return fmt.Errorf("%s: %w", op, amqp.ErrClosed)
			}
			// подтверждения прошлых публикаций, брошенных по ctx
			if conf.DeliveryTag < p.tag {
				continue
			}
			if !conf.Ack {
				return fmt.Errorf("%s: %s: %w", op, messageID, ErrNacked)
			}
			return p.checkReturned(op, messageID)
		}
	}
}

// checkReturned basic.return приходит раньше ack того же сообщения
func (p *Publisher) checkReturned(op, messageID string) error {
	for {
		select {
		case ret, ok := <-p.returns:
			if !ok {
				return nil
			}
			if ret.MessageId == messageID {
				return fmt.Errorf("%s: %s to %q: %w", op, messageID, ret.RoutingKey, ErrUnroutable)
			}
		default:
			return nil
		}
	}
}
