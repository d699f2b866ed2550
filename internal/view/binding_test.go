package view

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resto-dashboard/internal/domain"
	"resto-dashboard/internal/realtime"
	"resto-dashboard/internal/store"
)

type fakeConn struct {
	mu         sync.Mutex
	reconnects int
	snap       realtime.StatusSnapshot
}

func (c *fakeConn) Reconnect() {
	c.mu.Lock()
	c.reconnects++
	c.mu.Unlock()
}

func (c *fakeConn) Status() realtime.StatusSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

type fakeAPI struct {
	mu    sync.Mutex
	calls int
	fn    func(orderID string, st domain.Status) (domain.Order, error)
}

func (a *fakeAPI) UpdateStatus(_ context.Context, orderID string, st domain.Status) (domain.Order, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	return a.fn(orderID, st)
}

func (a *fakeAPI) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

type fakeSound struct{ enabled bool }

func (s *fakeSound) SetSound(v bool)    { s.enabled = v }
func (s *fakeSound) SoundEnabled() bool { return s.enabled }

type fakeSink struct {
	mu  sync.Mutex
	ids []string
}

func (s *fakeSink) OnNewOrder(o domain.Order) {
	s.mu.Lock()
	s.ids = append(s.ids, o.ID)
	s.mu.Unlock()
}

func (s *fakeSink) got() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ids...)
}

func testOrder(id string, st domain.Status) domain.Order {
	return domain.Order{
		ID:           id,
		CustomerName: "Alice",
		Items: []domain.OrderItem{
			{Name: "Burger", Price: decimal.NewFromInt(2500), Quantity: 2},
		},
		Total:     decimal.NewFromInt(5000),
		CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Status:    st,
	}
}

func newTestBinding(api *fakeAPI) (*Binding, *store.Store, *fakeConn, *fakeSink) {
	st := store.New()
	conn := &fakeConn{snap: realtime.StatusSnapshot{State: realtime.StateConnected}}
	sound := &fakeSound{enabled: true}
	sink := &fakeSink{}
	b := NewBinding(st, conn, api, sound, sink, time.Second, nil)
	return b, st, conn, sink
}

func TestHandleEventNewOrderNotifiesOnce(t *testing.T) {
	b, st, _, sink := newTestBinding(&fakeAPI{})

	ev := realtime.NewOrder{Order: testOrder("o1", domain.StatusPending)}
	b.HandleEvent(ev)
	b.HandleEvent(ev) // duplicate degrades into an update, no second signal

	assert.Equal(t, 1, st.Len())
	assert.Equal(t, []string{"o1"}, sink.got())
	assert.Equal(t, 1, st.UnseenCount())
}

func TestHandleEventUpdate(t *testing.T) {
	b, st, _, _ := newTestBinding(&fakeAPI{})
	b.HandleEvent(realtime.NewOrder{Order: testOrder("o1", domain.StatusPending)})

	next := domain.StatusAccepted
	b.HandleEvent(realtime.OrderUpdated{Patch: domain.OrderPatch{ID: "o1", Status: &next}})

	got, _ := st.Get("o1")
	assert.Equal(t, domain.StatusAccepted, got.Status)

	// rejected events leave state untouched
	jump := domain.StatusDelivered
	b.HandleEvent(realtime.OrderUpdated{Patch: domain.OrderPatch{ID: "o1", Status: &jump}})
	got, _ = st.Get("o1")
	assert.Equal(t, domain.StatusAccepted, got.Status)
}

func TestChangeStatusConfirmed(t *testing.T) {
	api := &fakeAPI{fn: func(orderID string, st domain.Status) (domain.Order, error) {
		o := testOrder(orderID, st)
		return o, nil
	}}
	b, st, _, _ := newTestBinding(api)
	b.HandleEvent(realtime.NewOrder{Order: testOrder("o1", domain.StatusPending)})

	require.NoError(t, b.ChangeStatus(context.Background(), "o1", domain.StatusAccepted))
	got, _ := st.Get("o1")
	assert.Equal(t, domain.StatusAccepted, got.Status)
	assert.Equal(t, 1, api.callCount())
}

func TestChangeStatusRollsBackOnRejection(t *testing.T) {
	api := &fakeAPI{fn: func(string, domain.Status) (domain.Order, error) {
		return domain.Order{}, errors.New("backend said no")
	}}
	b, st, _, _ := newTestBinding(api)
	b.HandleEvent(realtime.NewOrder{Order: testOrder("o1", domain.StatusPending)})

	err := b.ChangeStatus(context.Background(), "o1", domain.StatusAccepted)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend said no")

	got, _ := st.Get("o1")
	assert.Equal(t, domain.StatusPending, got.Status, "optimistic change must be rolled back")
}

func TestChangeStatusIllegalTransitionNeverCallsAPI(t *testing.T) {
	api := &fakeAPI{fn: func(string, domain.Status) (domain.Order, error) {
		t.Fatal("api must not be called for an illegal transition")
		return domain.Order{}, nil
	}}
	b, st, _, _ := newTestBinding(api)
	b.HandleEvent(realtime.NewOrder{Order: testOrder("o1", domain.StatusPending)})

	err := b.ChangeStatus(context.Background(), "o1", domain.StatusDelivered)
	require.Error(t, err)
	assert.Equal(t, 0, api.callCount())

	got, _ := st.Get("o1")
	assert.Equal(t, domain.StatusPending, got.Status)
}

func TestChangeStatusAdoptsBackendDivergence(t *testing.T) {
	api := &fakeAPI{fn: func(orderID string, _ domain.Status) (domain.Order, error) {
		// backend settled on CANCELLED instead
		return testOrder(orderID, domain.StatusCancelled), nil
	}}
	b, st, _, _ := newTestBinding(api)
	b.HandleEvent(realtime.NewOrder{Order: testOrder("o1", domain.StatusPending)})

	require.NoError(t, b.ChangeStatus(context.Background(), "o1", domain.StatusAccepted))
	got, _ := st.Get("o1")
	assert.Equal(t, domain.StatusCancelled, got.Status)
}

func TestSnapshotAndActions(t *testing.T) {
	b, st, conn, _ := newTestBinding(&fakeAPI{})
	b.HandleEvent(realtime.NewOrder{Order: testOrder("o1", domain.StatusPending)})

	var changes int
	b.OnChange(func() { changes++ })

	snap := b.Snapshot()
	assert.Equal(t, realtime.StateConnected, snap.Conn.State)
	assert.Len(t, snap.Orders, 1)
	assert.Equal(t, 1, snap.UnseenCount)
	assert.True(t, snap.SoundEnabled)

	b.MarkSeen()
	assert.Equal(t, 0, st.UnseenCount())

	assert.False(t, b.ToggleSound())
	assert.False(t, b.Snapshot().SoundEnabled)
	assert.True(t, b.ToggleSound())

	b.Reconnect()
	assert.Equal(t, 1, conn.reconnects)
	assert.Equal(t, 4, changes)
}
