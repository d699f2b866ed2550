// Package notify turns fresh order inserts into user-visible signals. The
// sink runs behind a buffered channel so a slow bell or terminal can never
// hold up the event pipeline.
package notify

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"resto-dashboard/internal/domain"
)

// Beeper plays the audible cue. Failures are tolerated: browsers block
// audio, terminals may have no bell.
type Beeper interface {
	Beep() error
}

// Presenter shows the one-line order summary to the user.
type Presenter interface {
	Present(summary string) error
}

type Sink struct {
	beeper    Beeper
	presenter Presenter
	currency  string
	log       *zap.Logger

	sound atomic.Bool

	ch        chan domain.Order
	closeOnce sync.Once
	done      chan struct{}
}

const defaultBuffer = 64

func NewSink(b Beeper, p Presenter, currency string, log *zap.Logger) *Sink {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Sink{
		beeper:    b,
		presenter: p,
		currency:  currency,
		log:       log,
		ch:        make(chan domain.Order, defaultBuffer),
		done:      make(chan struct{}),
	}
	s.sound.Store(true)
	go s.run()
	return s
}

// OnNewOrder queues the signal and returns immediately. If the buffer is
// full the signal is dropped with a log line rather than blocking the store.
func (s *Sink) OnNewOrder(o domain.Order) {
	select {
	case s.ch <- o:
	default:
		s.log.Warn("notification_dropped", zap.String("order_id", o.ID))
	}
}

func (s *Sink) SetSound(enabled bool) { s.sound.Store(enabled) }

func (s *Sink) SoundEnabled() bool { return s.sound.Load() }

func (s *Sink) Close() {
	s.closeOnce.Do(func() {
		close(s.ch)
		<-s.done
	})
}

func (s *Sink) run() {
	defer close(s.done)
	for o := range s.ch {
		s.deliver(o)
	}
}

// deliver fires both side effects independently: a failed beep never
// suppresses the summary and vice versa.
func (s *Sink) deliver(o domain.Order) {
	if s.sound.Load() && s.beeper != nil {
		if err := s.beeper.Beep(); err != nil {
			s.log.Debug("beep_failed", zap.Error(err))
		}
	}
	if s.presenter != nil {
		if err := s.presenter.Present(Summary(o, s.currency)); err != nil {
			s.log.Warn("present_failed", zap.Error(err))
		}
	}
}
