// Package amqp feeds the dashboard from the backend's notifications fanout
// instead of the websocket edge, for deployments that sit next to the broker.
// Consume-only: the dashboard never publishes order traffic.
package amqp

import (
	"context"
	"errors"

	amqp091 "github.com/rabbitmq/amqp091-go"

	"resto-dashboard/internal/realtime"
)

const notificationsExchange = "notifications_fanout"

type Transport struct{}

func New() *Transport { return &Transport{} }

// Dial connects to the broker at endpoint (an amqp:// URL) and binds an
// exclusive auto-delete queue to the notifications fanout for this tenant.
func (t *Transport) Dial(ctx context.Context, endpoint, tenantID string) (realtime.Session, error) {
	conn, err := amqp091.Dial(endpoint)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	// Idempotent: the backend declares the same exchange.
	if err := ch.ExchangeDeclare(notificationsExchange, "fanout", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, err
	}
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := ch.QueueBind(q.Name, tenantID, notificationsExchange, false, nil); err != nil {
		_ = conn.Close()
		return nil, err
	}
	deliveries, err := ch.Consume(q.Name, "dashboard-"+tenantID, true, true, false, false, nil)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &session{conn: conn, ch: ch, deliveries: deliveries}, nil
}

type session struct {
	conn       *amqp091.Connection
	ch         *amqp091.Channel
	deliveries <-chan amqp091.Delivery
}

func (s *session) ReadMessage() ([]byte, error) {
	d, ok := <-s.deliveries
	if !ok {
		return nil, errors.New("amqp delivery channel closed")
	}
	return d.Body, nil
}

// WriteJSON is a no-op: ping control frames belong to the websocket edge,
// the broker connection carries its own liveness.
func (s *session) WriteJSON(any) error { return nil }

func (s *session) Close() error {
	if s.ch != nil {
		_ = s.ch.Close()
	}
	return s.conn.Close()
}
