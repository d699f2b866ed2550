// Package ws dials the public websocket order feed, one channel per tenant.
package ws

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"resto-dashboard/internal/realtime"
)

type Transport struct {
	dialer *websocket.Dialer
}

func New() *Transport {
	return &Transport{dialer: &websocket.Dialer{
		Proxy:            websocket.DefaultDialer.Proxy,
		HandshakeTimeout: 10 * time.Second,
	}}
}

func (t *Transport) Dial(ctx context.Context, endpoint, tenantID string) (realtime.Session, error) {
	u := strings.TrimSuffix(endpoint, "/") + "/orders/" + tenantID
	conn, _, err := t.dialer.DialContext(ctx, u, nil)
	if err != nil {
		return nil, err
	}
	return &session{conn: conn}, nil
}

type session struct {
	conn *websocket.Conn

	writeMu sync.Mutex // gorilla allows one concurrent writer
}

func (s *session) ReadMessage() ([]byte, error) {
	_, data, err := s.conn.ReadMessage()
	return data, err
}

func (s *session) WriteJSON(v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return s.conn.WriteJSON(v)
}

func (s *session) Close() error {
	s.writeMu.Lock()
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	s.writeMu.Unlock()
	return s.conn.Close()
}
