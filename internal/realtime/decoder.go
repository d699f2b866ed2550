package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"resto-dashboard/internal/domain"
)

// Event is a decoded inbound message. NewOrder and OrderUpdated reach the
// downstream consumer; Heartbeat and Ignored are absorbed by the Manager.
type Event interface{ event() }

type NewOrder struct{ Order domain.Order }

type OrderUpdated struct{ Patch domain.OrderPatch }

type Heartbeat struct{}

// Ignored is an unrecognized message type, kept non-fatal for forward
// compatibility with future message kinds.
type Ignored struct{ Type string }

func (NewOrder) event()     {}
func (OrderUpdated) event() {}
func (Heartbeat) event()    {}
func (Ignored) event()      {}

// DecodeError marks a malformed or invariant-violating frame. The offending
// message is dropped; the pipeline keeps going.
type DecodeError struct {
	Reason string
	cause  error
}

func (e *DecodeError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("decode: %s: %v", e.Reason, e.cause)
	}
	return "decode: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.cause }

type inboundFrame struct {
	Type  string          `json:"type"`
	Order json.RawMessage `json:"order,omitempty"`
}

type orderUpdateWire struct {
	ID           string             `json:"id"`
	CustomerName *string            `json:"customer_name,omitempty"`
	Phone        *string            `json:"customer_phone,omitempty"`
	TableNumber  *string            `json:"table_number,omitempty"`
	Items        []domain.OrderItem `json:"items,omitempty"`
	Total        *decimal.Decimal   `json:"total,omitempty"`
	Notes        *string            `json:"notes,omitempty"`
	Status       *string            `json:"status,omitempty"`
}

// Decode parses a raw frame into a typed event. It never panics into the
// read loop; every failure comes back as a *DecodeError.
func Decode(raw []byte) (Event, error) {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, &DecodeError{Reason: "malformed frame", cause: err}
	}

	switch frame.Type {
	case "pong":
		return Heartbeat{}, nil

	case "new_order":
		if len(frame.Order) == 0 {
			return nil, &DecodeError{Reason: "new_order without order payload"}
		}
		var o domain.Order
		if err := json.Unmarshal(frame.Order, &o); err != nil {
			return nil, &DecodeError{Reason: "malformed order payload", cause: err}
		}
		if o.Status == "" {
			o.Status = domain.StatusPending
		}
		if err := o.Validate(); err != nil {
			return nil, &DecodeError{Reason: "invalid order", cause: err}
		}
		return NewOrder{Order: o}, nil

	case "order_updated":
		if len(frame.Order) == 0 {
			return nil, &DecodeError{Reason: "order_updated without order payload"}
		}
		var w orderUpdateWire
		if err := json.Unmarshal(frame.Order, &w); err != nil {
			return nil, &DecodeError{Reason: "malformed order payload", cause: err}
		}
		patch := domain.OrderPatch{
			ID:           w.ID,
			CustomerName: w.CustomerName,
			Phone:        w.Phone,
			TableNumber:  w.TableNumber,
			Items:        w.Items,
			Total:        w.Total,
			Notes:        w.Notes,
		}
		if w.Status != nil {
			st, err := domain.ParseStatus(*w.Status)
			if err != nil {
				return nil, &DecodeError{Reason: "invalid order", cause: err}
			}
			patch.Status = &st
		}
		if err := patch.Validate(); err != nil {
			return nil, &DecodeError{Reason: "invalid order", cause: err}
		}
		return OrderUpdated{Patch: patch}, nil

	default:
		return Ignored{Type: frame.Type}, nil
	}
}
