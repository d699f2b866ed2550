// Package view exposes the realtime subsystem to a UI layer: one snapshot
// of observable state, and the user actions that flow back down. It is also
// the wiring point where channel events land in the store and fresh inserts
// fan out to the notification sink.
package view

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"resto-dashboard/internal/domain"
	"resto-dashboard/internal/realtime"
	"resto-dashboard/internal/store"
)

// Conn is the slice of the connection manager the view needs.
type Conn interface {
	Reconnect()
	Status() realtime.StatusSnapshot
}

// StatusAPI confirms optimistic transitions with the backend.
type StatusAPI interface {
	UpdateStatus(ctx context.Context, orderID string, st domain.Status) (domain.Order, error)
}

// Sound is the sink's mute toggle.
type Sound interface {
	SetSound(enabled bool)
	SoundEnabled() bool
}

// NewOrderSink receives every freshly inserted order, never updates.
type NewOrderSink interface {
	OnNewOrder(o domain.Order)
}

type Snapshot struct {
	Conn         realtime.StatusSnapshot
	Orders       []domain.Order
	UnseenCount  int
	SoundEnabled bool
}

type Binding struct {
	store   *store.Store
	conn    Conn
	api     StatusAPI
	sound   Sound
	sink    NewOrderSink
	log     *zap.Logger
	timeout time.Duration

	onChange func()
}

func NewBinding(st *store.Store, conn Conn, api StatusAPI, sound Sound, sink NewOrderSink, timeout time.Duration, log *zap.Logger) *Binding {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Binding{
		store:   st,
		conn:    conn,
		api:     api,
		sound:   sound,
		sink:    sink,
		log:     log,
		timeout: timeout,
	}
}

// OnChange registers a re-render trigger. Called after every state change
// the UI could observe.
func (b *Binding) OnChange(fn func()) { b.onChange = fn }

func (b *Binding) notifyChange() {
	if b.onChange != nil {
		b.onChange()
	}
}

// HandleEvent is the downstream consumer registered with the connection
// manager. The store mutation commits before the sink hears about it.
func (b *Binding) HandleEvent(ev realtime.Event) {
	switch e := ev.(type) {
	case realtime.NewOrder:
		inserted, err := b.store.ApplyNew(e.Order)
		if err != nil {
			b.log.Warn("event_rejected", zap.String("order_id", e.Order.ID), zap.Error(err))
			return
		}
		if inserted && b.sink != nil {
			b.sink.OnNewOrder(e.Order)
		}
		b.notifyChange()
	case realtime.OrderUpdated:
		if err := b.store.ApplyUpdate(e.Patch); err != nil {
			b.log.Warn("event_rejected", zap.String("order_id", e.Patch.ID), zap.Error(err))
			return
		}
		b.notifyChange()
	}
}

func (b *Binding) Snapshot() Snapshot {
	return Snapshot{
		Conn:         b.conn.Status(),
		Orders:       b.store.List(),
		UnseenCount:  b.store.UnseenCount(),
		SoundEnabled: b.sound.SoundEnabled(),
	}
}

func (b *Binding) MarkSeen() {
	b.store.MarkAllSeen()
	b.notifyChange()
}

func (b *Binding) ToggleSound() bool {
	next := !b.sound.SoundEnabled()
	b.sound.SetSound(next)
	b.notifyChange()
	return next
}

func (b *Binding) Reconnect() {
	b.conn.Reconnect()
	b.notifyChange()
}

// ChangeStatus applies the transition locally first, then asks the backend
// to confirm within the bounded timeout. Rejection or timeout rolls the
// local state back and surfaces the error.
func (b *Binding) ChangeStatus(ctx context.Context, orderID string, next domain.Status) error {
	prev, err := b.store.ChangeStatus(orderID, next)
	if err != nil {
		return err
	}
	b.notifyChange()

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	confirmed, err := b.api.UpdateStatus(ctx, orderID, next)
	if err != nil {
		if revertErr := b.store.ForceStatus(orderID, prev); revertErr != nil {
			b.log.Error("rollback_failed", zap.String("order_id", orderID), zap.Error(revertErr))
		}
		b.notifyChange()
		return fmt.Errorf("status change rejected: %w", err)
	}
	// Adopt the backend's word if it settled on something else.
	if confirmed.ID == orderID && confirmed.Status.Valid() && confirmed.Status != next {
		if err := b.store.ForceStatus(orderID, confirmed.Status); err == nil {
			b.notifyChange()
		}
	}
	return nil
}
