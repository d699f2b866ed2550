package realtime

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

// StatusSnapshot is the observable health of the channel.
type StatusSnapshot struct {
	State        State
	LastActivity time.Time
	Failures     int
}

type Config struct {
	Endpoint string
	TenantID string

	HeartbeatInterval time.Duration // default 30s
	BackoffBase       time.Duration // default 1s
	BackoffMax        time.Duration // default 30s
	MaxRetries        int           // automatic attempts before giving up, default 5
}

func (c *Config) withDefaults() {
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 30 * time.Second
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = time.Second
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 30 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 5
	}
}

// Handler receives decoded NewOrder / OrderUpdated events, strictly in
// arrival order. Heartbeats and unknown frames never reach it.
type Handler func(Event)

type pingFrame struct {
	Type     string `json:"type"`
	TenantID string `json:"tenant_id"`
}

// Manager owns the live channel: it dials through the given Transport,
// sends heartbeats while connected, and reconnects with exponential backoff
// on close or error. Connect and Reconnect are fire-and-forget; health is
// observed through Status.
type Manager struct {
	cfg       Config
	transport Transport
	log       *zap.Logger

	mu           sync.Mutex
	handler      Handler
	state        State
	failures     int
	lastActivity time.Time
	sess         Session
	retry        *time.Timer
	hbStop       chan struct{}
	gen          uint64 // bumped by every manual action; stale loops check it and die
}

func NewManager(t Transport, cfg Config, log *zap.Logger) *Manager {
	cfg.withDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		cfg:       cfg,
		transport: t,
		log:       log,
		state:     StateDisconnected,
	}
}

// OnEvent registers the single downstream consumer.
func (m *Manager) OnEvent(h Handler) {
	m.mu.Lock()
	m.handler = h
	m.mu.Unlock()
}

func (m *Manager) Connect() { m.restart(false) }

// Reconnect closes any live session, cancels a pending automatic retry,
// resets the failure count and dials immediately.
func (m *Manager) Reconnect() { m.restart(true) }

func (m *Manager) restart(resetFailures bool) {
	m.mu.Lock()
	m.stopTimersLocked()
	sess := m.sess
	m.sess = nil
	if resetFailures {
		m.failures = 0
	}
	m.gen++
	g := m.gen
	m.state = StateConnecting
	m.mu.Unlock()

	if sess != nil {
		_ = sess.Close()
	}
	go m.dial(g)
}

// Disconnect tears the channel down. No events reach the handler afterwards.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.stopTimersLocked()
	sess := m.sess
	m.sess = nil
	m.gen++
	m.state = StateDisconnected
	m.mu.Unlock()

	if sess != nil {
		_ = sess.Close()
	}
}

func (m *Manager) Status() StatusSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return StatusSnapshot{State: m.state, LastActivity: m.lastActivity, Failures: m.failures}
}

// caller holds m.mu
func (m *Manager) stopTimersLocked() {
	if m.retry != nil {
		m.retry.Stop()
		m.retry = nil
	}
	if m.hbStop != nil {
		close(m.hbStop)
		m.hbStop = nil
	}
}

func (m *Manager) dial(g uint64) {
	sess, err := m.transport.Dial(context.Background(), m.cfg.Endpoint, m.cfg.TenantID)

	m.mu.Lock()
	if g != m.gen {
		m.mu.Unlock()
		if err == nil {
			_ = sess.Close()
		}
		return
	}
	if err != nil {
		m.log.Warn("channel_dial_failed", zap.Error(err), zap.Int("failures", m.failures))
		m.scheduleRetryLocked(g)
		m.mu.Unlock()
		return
	}
	m.sess = sess
	m.state = StateConnected
	m.failures = 0
	m.lastActivity = time.Now()
	stop := make(chan struct{})
	m.hbStop = stop
	m.mu.Unlock()

	m.log.Info("channel_connected", zap.String("tenant_id", m.cfg.TenantID))
	m.sendPing(sess)
	go m.heartbeatLoop(sess, stop)
	go m.readLoop(sess, g)
}

func (m *Manager) readLoop(sess Session, g uint64) {
	for {
		raw, err := sess.ReadMessage()
		if err != nil {
			m.connectionLost(g, err)
			return
		}
		m.touch()

		ev, derr := Decode(raw)
		if derr != nil {
			m.log.Warn("event_dropped", zap.Error(derr))
			continue
		}
		switch e := ev.(type) {
		case Heartbeat:
			// activity already recorded
		case Ignored:
			m.log.Debug("event_ignored", zap.String("type", e.Type))
		default:
			m.mu.Lock()
			h := m.handler
			stale := g != m.gen
			m.mu.Unlock()
			if stale {
				return
			}
			if h != nil {
				h(ev)
			}
		}
	}
}

func (m *Manager) connectionLost(g uint64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g != m.gen {
		return // superseded by a manual action
	}
	m.log.Warn("channel_lost", zap.Error(err), zap.Int("failures", m.failures))
	m.sess = nil
	if m.hbStop != nil {
		close(m.hbStop)
		m.hbStop = nil
	}
	m.scheduleRetryLocked(g)
}

// caller holds m.mu
func (m *Manager) scheduleRetryLocked(g uint64) {
	m.state = StateDisconnected
	if m.failures >= m.cfg.MaxRetries {
		m.log.Warn("channel_retries_exhausted", zap.Int("failures", m.failures))
		return
	}
	delay := backoffDelay(m.cfg.BackoffBase, m.cfg.BackoffMax, m.failures)
	m.failures++
	m.retry = time.AfterFunc(delay, func() {
		m.mu.Lock()
		if g != m.gen {
			m.mu.Unlock()
			return
		}
		m.retry = nil
		m.state = StateConnecting
		m.mu.Unlock()
		m.dial(g)
	})
}

func backoffDelay(base, max time.Duration, failures int) time.Duration {
	if failures > 20 {
		return max
	}
	d := base << uint(failures)
	if d > max || d <= 0 {
		return max
	}
	return d
}

func (m *Manager) heartbeatLoop(sess Session, stop chan struct{}) {
	t := time.NewTicker(m.cfg.HeartbeatInterval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			if !m.sendPing(sess) {
				return // the read loop will notice the dead session
			}
		}
	}
}

func (m *Manager) sendPing(sess Session) bool {
	if err := sess.WriteJSON(pingFrame{Type: "ping", TenantID: m.cfg.TenantID}); err != nil {
		m.log.Debug("heartbeat_write_failed", zap.Error(err))
		return false
	}
	return true
}

func (m *Manager) touch() {
	m.mu.Lock()
	m.lastActivity = time.Now()
	m.mu.Unlock()
}
