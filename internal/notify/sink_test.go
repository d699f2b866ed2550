package notify

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resto-dashboard/internal/domain"
)

type recordingBeeper struct {
	mu    sync.Mutex
	beeps int
	err   error
}

func (b *recordingBeeper) Beep() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.beeps++
	return b.err
}

func (b *recordingBeeper) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.beeps
}

type recordingPresenter struct {
	mu    sync.Mutex
	lines []string
	err   error
}

func (p *recordingPresenter) Present(summary string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lines = append(p.lines, summary)
	return p.err
}

func (p *recordingPresenter) got() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.lines...)
}

func aliceOrder() domain.Order {
	return domain.Order{
		ID:           "o1",
		CustomerName: "Alice",
		Items: []domain.OrderItem{
			{Name: "Burger", Price: decimal.NewFromInt(2500), Quantity: 2},
		},
		Total:     decimal.NewFromInt(5000),
		CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Status:    domain.StatusPending,
	}
}

func TestSinkFiresOncePerOrder(t *testing.T) {
	beeper := &recordingBeeper{}
	presenter := &recordingPresenter{}
	s := NewSink(beeper, presenter, "FCFA", nil)
	defer s.Close()

	s.OnNewOrder(aliceOrder())

	require.Eventually(t, func() bool { return len(presenter.got()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"Alice — 5 000 FCFA"}, presenter.got())
	assert.Equal(t, 1, beeper.count())
}

func TestSinkMutedSkipsBeepButStillPresents(t *testing.T) {
	beeper := &recordingBeeper{}
	presenter := &recordingPresenter{}
	s := NewSink(beeper, presenter, "FCFA", nil)
	defer s.Close()

	s.SetSound(false)
	assert.False(t, s.SoundEnabled())

	s.OnNewOrder(aliceOrder())
	require.Eventually(t, func() bool { return len(presenter.got()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, 0, beeper.count())
}

func TestSinkBeeperFailureDoesNotSuppressSummary(t *testing.T) {
	beeper := &recordingBeeper{err: errors.New("audio blocked")}
	presenter := &recordingPresenter{}
	s := NewSink(beeper, presenter, "FCFA", nil)
	defer s.Close()

	s.OnNewOrder(aliceOrder())
	require.Eventually(t, func() bool { return len(presenter.got()) == 1 }, time.Second, time.Millisecond)
}

func TestSinkPresenterFailureDoesNotSuppressBeep(t *testing.T) {
	beeper := &recordingBeeper{}
	presenter := &recordingPresenter{err: errors.New("terminal gone")}
	s := NewSink(beeper, presenter, "FCFA", nil)
	defer s.Close()

	s.OnNewOrder(aliceOrder())
	require.Eventually(t, func() bool { return beeper.count() == 1 }, time.Second, time.Millisecond)
}

func TestSinkCloseDrainsQueue(t *testing.T) {
	presenter := &recordingPresenter{}
	s := NewSink(nil, presenter, "FCFA", nil)

	for range [5]struct{}{} {
		s.OnNewOrder(aliceOrder())
	}
	s.Close()
	assert.Len(t, presenter.got(), 5)
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0"},
		{"950", "950"},
		{"5000", "5 000"},
		{"12500.50", "12 500.50"},
		{"1234567", "1 234 567"},
		{"-75000", "-75 000"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, FormatAmount(decimal.RequireFromString(tc.in)), tc.in)
	}
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "Alice — 5 000 FCFA", Summary(aliceOrder(), "FCFA"))
}
