package realtime

import "context"

// Session is one established channel to the order feed. ReadMessage blocks
// until a frame arrives or the session dies; it must return an error after
// Close so the read loop can unwind.
type Session interface {
	ReadMessage() ([]byte, error)
	WriteJSON(v any) error
	Close() error
}

// Transport dials sessions. Implementations exist for the public websocket
// edge and for the broker's notifications fanout; the Manager does not care
// which one it is given.
type Transport interface {
	Dial(ctx context.Context, endpoint, tenantID string) (Session, error)
}
