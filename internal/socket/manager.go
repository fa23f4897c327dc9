// Package socket owns the persistent bidirectional channel to the
// backend. It reconnects on failure with a bounded retry budget and
// dispatches inbound typed messages to registered handlers. Callers
// never see connection errors directly: Send reports false and the
// caller falls back to the synchronous HTTP path.
package socket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"inkwell-client/internal/model"
	"inkwell-client/pkg/logger"
)

// State of the channel.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

const (
	DefaultMaxReconnectAttempts = 5
	DefaultReconnectDelay       = 3 * time.Second
)

// Clock schedules deferred work. Tests inject a fake so reconnect
// backoff runs without real timers.
type Clock interface {
	AfterFunc(d time.Duration, fn func())
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, fn func()) { time.AfterFunc(d, fn) }

// Conn is the subset of *websocket.Conn the manager uses.
type Conn interface {
	ReadJSON(v interface{}) error
	WriteJSON(v interface{}) error
	Close() error
}

// DialFunc opens a channel connection.
type DialFunc func(url string) (Conn, error)

func gorillaDial(url string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Handler receives inbound messages of one registered type.
type Handler func(msg model.SocketMessage)

type handlerEntry struct {
	id int
	fn Handler
}

// Options configure a Manager. Zero values fall back to defaults.
type Options struct {
	URL                  string
	MaxReconnectAttempts int
	ReconnectDelay       time.Duration
	Clock                Clock
	Dial                 DialFunc
}

// Manager is the transport state machine. All state transitions happen
// under mu via the connect/close/error paths; the read loop runs per
// connection and is invalidated by a generation counter on reconnect.
type Manager struct {
	url         string
	maxAttempts int
	delay       time.Duration
	clock       Clock
	dial        DialFunc

	mu       sync.Mutex
	state    State
	attempts int
	conn     Conn
	gen      int
	closed   bool
	writeMu  sync.Mutex

	handlerMu sync.Mutex
	handlers  map[string][]handlerEntry
	nextID    int
}

func NewManager(opts Options) *Manager {
	m := &Manager{
		url:         opts.URL,
		maxAttempts: opts.MaxReconnectAttempts,
		delay:       opts.ReconnectDelay,
		clock:       opts.Clock,
		dial:        opts.Dial,
		handlers:    make(map[string][]handlerEntry),
	}
	if m.maxAttempts <= 0 {
		m.maxAttempts = DefaultMaxReconnectAttempts
	}
	if m.delay <= 0 {
		m.delay = DefaultReconnectDelay
	}
	if m.clock == nil {
		m.clock = realClock{}
	}
	if m.dial == nil {
		m.dial = gorillaDial
	}
	return m
}

// Connect opens the channel. No-op when already Connected, Connecting
// or closed.
func (m *Manager) Connect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectLocked()
}

func (m *Manager) connectLocked() {
	if m.closed || m.state != StateDisconnected {
		return
	}
	m.state = StateConnecting
	m.gen++
	gen := m.gen
	go m.doDial(gen)
}

func (m *Manager) doDial(gen int) {
	conn, err := m.dial(m.url)

	m.mu.Lock()
	if m.closed || gen != m.gen {
		m.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		logger.Warnf("channel dial failed: %v", err)
		m.dropLocked()
		m.mu.Unlock()
		return
	}
	m.conn = conn
	m.state = StateConnected
	m.attempts = 0
	m.mu.Unlock()

	logger.Debugf("channel connected to %s", m.url)
	go m.readLoop(conn, gen)
}

func (m *Manager) readLoop(conn Conn, gen int) {
	for {
		var msg model.SocketMessage
		if err := conn.ReadJSON(&msg); err != nil {
			m.mu.Lock()
			if !m.closed && gen == m.gen {
				logger.Warnf("channel read failed: %v", err)
				m.conn = nil
				m.dropLocked()
			}
			m.mu.Unlock()
			conn.Close()
			return
		}
		m.dispatch(msg)
	}
}

// dropLocked handles a close or dial error: back to Disconnected and,
// while the retry budget lasts, schedule a reconnect after the fixed
// delay. Past the budget the channel stays down until Send asks for a
// fresh connect.
func (m *Manager) dropLocked() {
	m.state = StateDisconnected
	if m.attempts >= m.maxAttempts {
		logger.Warnf("channel reconnect budget exhausted after %d attempts", m.attempts)
		return
	}
	m.attempts++
	attempt := m.attempts
	m.clock.AfterFunc(m.delay, func() {
		logger.Debugf("channel reconnect attempt %d/%d", attempt, m.maxAttempts)
		m.Connect()
	})
}

func (m *Manager) dispatch(msg model.SocketMessage) {
	m.handlerMu.Lock()
	entries := append([]handlerEntry(nil), m.handlers[msg.Type]...)
	m.handlerMu.Unlock()
	if len(entries) == 0 {
		// Unknown types are dropped silently.
		return
	}
	for _, e := range entries {
		e.fn(msg)
	}
}

// Send transmits msg when the channel is Connected and returns true.
// Otherwise it triggers a connect as a side effect and returns false
// immediately so the caller can use the HTTP fallback.
func (m *Manager) Send(msg model.SocketRequest) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	if m.state != StateConnected || m.conn == nil {
		if m.state == StateDisconnected && m.attempts >= m.maxAttempts {
			// An explicit send restarts the retry budget.
			m.attempts = 0
		}
		m.connectLocked()
		m.mu.Unlock()
		return false
	}
	conn := m.conn
	gen := m.gen
	m.mu.Unlock()

	m.writeMu.Lock()
	err := conn.WriteJSON(msg)
	m.writeMu.Unlock()
	if err != nil {
		logger.Warnf("channel write failed: %v", err)
		m.mu.Lock()
		if !m.closed && gen == m.gen {
			m.conn = nil
			m.dropLocked()
		}
		m.mu.Unlock()
		conn.Close()
		return false
	}
	return true
}

// OnMessage registers a handler for one inbound message type and
// returns its unregister function. Handlers for a type run in
// registration order.
func (m *Manager) OnMessage(msgType string, fn Handler) func() {
	m.handlerMu.Lock()
	m.nextID++
	id := m.nextID
	m.handlers[msgType] = append(m.handlers[msgType], handlerEntry{id: id, fn: fn})
	m.handlerMu.Unlock()

	return func() {
		m.handlerMu.Lock()
		defer m.handlerMu.Unlock()
		entries := m.handlers[msgType]
		for i, e := range entries {
			if e.id == id {
				m.handlers[msgType] = append(entries[:i:i], entries[i+1:]...)
				break
			}
		}
	}
}

// State reports the current channel state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Attempts reports the reconnect counter, for observability.
func (m *Manager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// Close tears the channel down permanently.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.closed = true
	m.gen++
	conn := m.conn
	m.conn = nil
	m.state = StateDisconnected
	m.mu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}
