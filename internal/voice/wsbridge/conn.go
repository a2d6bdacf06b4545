package wsbridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/magabrotheeeer/interview-coach/internal/lib/sl"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 64
)

// Ошибки отправки кадров
var (
	ErrClosed       = errors.New("connection is closed")
	ErrSendOverflow = errors.New("send buffer is full")
)

// Sender очередь исходящих кадров
type Sender interface {
	Send(msgType string, payload any) error
}

// Conn websocket-соединение с отдельной горутиной записи
type Conn struct {
	ws   *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
	log  *slog.Logger
}

// NewConn оборачивает соединение. WritePump нужно запустить отдельно.
func NewConn(ws *websocket.Conn, log *slog.Logger) *Conn {
	return &Conn{
		ws:   ws,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
		log:  log,
	}
}

// Send ставит кадр в очередь без блокировки
func (c *Conn) Send(msgType string, payload any) error {
	const op = "wsbridge.Send"

	msg, err := NewMessage(msgType, payload)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	select {
	case <-c.done:
		return fmt.Errorf("%s: %w", op, ErrClosed)
	default:
	}

	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return fmt.Errorf("%s: %w", op, ErrClosed)
	default:
		return fmt.Errorf("%s %s: %w", op, msgType, ErrSendOverflow)
	}
}

// Close останавливает запись; повторный вызов безопасен
func (c *Conn) Close() {
	c.once.Do(func() { close(c.done) })
}

// ReadPump читает кадры до ошибки или закрытия соединения. Нормальное
// закрытие клиентом возвращает nil.
func (c *Conn) ReadPump(handle func(Message)) error {
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				return fmt.Errorf("wsbridge.ReadPump: %w", err)
			}
			return nil
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
			c.log.Warn("malformed frame", sl.Err(err))
			_ = c.Send(TypeError, ErrorPayload{Message: ErrMalformedFrame.Error()})
			continue
		}
		handle(msg)
	}
}

// WritePump пишет кадры из очереди и пингует клиента. Возвращается после Close.
func (c *Conn) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case data := <-c.send:
			if err := c.write(websocket.TextMessage, data); err != nil {
				c.log.Debug("websocket write failed", sl.Err(err))
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			c.flush()
			_ = c.write(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// flush дописывает кадры, поставленные в очередь до Close
func (c *Conn) flush() {
	for {
		select {
		case data := <-c.send:
			if err := c.write(websocket.TextMessage, data); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *Conn) write(messageType int, data []byte) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(messageType, data)
}
