package socket

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkwell-client/internal/model"
)

// fakeClock collects scheduled callbacks so tests fire reconnects
// deterministically.
type fakeClock struct {
	mu  sync.Mutex
	fns []func()
}

func (c *fakeClock) AfterFunc(_ time.Duration, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fns = append(c.fns, fn)
}

func (c *fakeClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.fns)
}

func (c *fakeClock) fire(t *testing.T) {
	c.mu.Lock()
	require.NotEmpty(t, c.fns, "no scheduled callback to fire")
	fn := c.fns[0]
	c.fns = c.fns[1:]
	c.mu.Unlock()
	fn()
}

type fakeConn struct {
	in     chan model.SocketMessage
	closed chan struct{}
	once   sync.Once

	mu    sync.Mutex
	wrote []model.SocketRequest
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan model.SocketMessage, 16),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ReadJSON(v interface{}) error {
	select {
	case msg := <-c.in:
		*(v.(*model.SocketMessage)) = msg
		return nil
	case <-c.closed:
		return io.EOF
	}
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	select {
	case <-c.closed:
		return io.ErrClosedPipe
	default:
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wrote = append(c.wrote, v.(model.SocketRequest))
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) written() []model.SocketRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.SocketRequest(nil), c.wrote...)
}

// dialScript hands out one result per dial and signals each attempt.
type dialScript struct {
	mu       sync.Mutex
	attempts int
	conns    []*fakeConn
	fail     bool
	dialed   chan struct{}
}

func newDialScript(fail bool) *dialScript {
	return &dialScript{fail: fail, dialed: make(chan struct{}, 64)}
}

func (s *dialScript) dial(string) (Conn, error) {
	s.mu.Lock()
	s.attempts++
	fail := s.fail
	var conn *fakeConn
	if !fail {
		conn = newFakeConn()
		s.conns = append(s.conns, conn)
	}
	s.mu.Unlock()

	s.dialed <- struct{}{}
	if fail {
		return nil, errors.New("connection refused")
	}
	return conn, nil
}

func (s *dialScript) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

func (s *dialScript) waitDial(t *testing.T) {
	select {
	case <-s.dialed:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for dial attempt")
	}
}

func waitState(t *testing.T, m *Manager, want State) {
	require.Eventually(t, func() bool { return m.State() == want },
		time.Second, time.Millisecond, "state never reached %s", want)
}

func newTestManager(script *dialScript, clk *fakeClock) *Manager {
	return NewManager(Options{
		URL:                  "ws://test/ws",
		MaxReconnectAttempts: 5,
		ReconnectDelay:       time.Second,
		Clock:                clk,
		Dial:                 script.dial,
	})
}

func TestConnectTransitionsToConnected(t *testing.T) {
	script := newDialScript(false)
	m := newTestManager(script, &fakeClock{})
	defer m.Close()

	m.Connect()
	script.waitDial(t)
	waitState(t, m, StateConnected)
	assert.Equal(t, 0, m.Attempts())

	// Connect while connected is a no-op.
	m.Connect()
	assert.Equal(t, 1, script.count())
}

func TestReconnectStopsAfterMaxAttempts(t *testing.T) {
	script := newDialScript(true)
	clk := &fakeClock{}
	m := newTestManager(script, clk)
	defer m.Close()

	m.Connect()
	script.waitDial(t)

	// Each failure schedules exactly one retry until the budget of 5
	// is spent.
	for i := 0; i < 5; i++ {
		require.Eventually(t, func() bool { return clk.pending() == 1 },
			time.Second, time.Millisecond)
		clk.fire(t)
		script.waitDial(t)
	}

	waitState(t, m, StateDisconnected)
	assert.Equal(t, 6, script.count())
	assert.Equal(t, 0, clk.pending(), "no retry scheduled past the budget")

	// An explicit send requests a fresh connect with a fresh budget.
	ok := m.Send(model.SocketRequest{Type: "grammar"})
	assert.False(t, ok)
	script.waitDial(t)
	assert.Equal(t, 7, script.count())
}

func TestAttemptCounterResetsOnSuccess(t *testing.T) {
	script := newDialScript(true)
	clk := &fakeClock{}
	m := newTestManager(script, clk)
	defer m.Close()

	m.Connect()
	script.waitDial(t)
	require.Eventually(t, func() bool { return m.Attempts() == 1 }, time.Second, time.Millisecond)

	script.mu.Lock()
	script.fail = false
	script.mu.Unlock()

	clk.fire(t)
	script.waitDial(t)
	waitState(t, m, StateConnected)
	assert.Equal(t, 0, m.Attempts())
}

func TestSendWhileDisconnectedTriggersConnect(t *testing.T) {
	script := newDialScript(false)
	m := newTestManager(script, &fakeClock{})
	defer m.Close()

	ok := m.Send(model.SocketRequest{Type: "grammar", MessageID: "m1"})
	assert.False(t, ok, "send before connect must fail fast")

	script.waitDial(t)
	waitState(t, m, StateConnected)

	ok = m.Send(model.SocketRequest{Type: "grammar", MessageID: "m2"})
	assert.True(t, ok)

	written := script.conns[0].written()
	require.Len(t, written, 1)
	assert.Equal(t, "m2", written[0].MessageID)
}

func TestHandlersDispatchInRegistrationOrder(t *testing.T) {
	script := newDialScript(false)
	m := newTestManager(script, &fakeClock{})
	defer m.Close()

	m.Connect()
	script.waitDial(t)
	waitState(t, m, StateConnected)

	var mu sync.Mutex
	var order []string
	record := func(tag string) Handler {
		return func(model.SocketMessage) {
			mu.Lock()
			order = append(order, tag)
			mu.Unlock()
		}
	}

	unregA := m.OnMessage("grammar", record("a"))
	m.OnMessage("grammar", record("b"))
	m.OnMessage("other", record("c"))

	script.conns[0].in <- model.SocketMessage{Type: "grammar", MessageID: "x"}
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 2
	}, time.Second, time.Millisecond)
	assert.Equal(t, []string{"a", "b"}, order)

	// Unknown types are dropped silently.
	script.conns[0].in <- model.SocketMessage{Type: "mystery"}

	unregA()
	script.conns[0].in <- model.SocketMessage{Type: "grammar"}
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 3
	}, time.Second, time.Millisecond)
	assert.Equal(t, []string{"a", "b", "b"}, order)
}

func TestReadFailureSchedulesReconnect(t *testing.T) {
	script := newDialScript(false)
	clk := &fakeClock{}
	m := newTestManager(script, clk)
	defer m.Close()

	m.Connect()
	script.waitDial(t)
	waitState(t, m, StateConnected)

	// Drop the connection out from under the read loop.
	script.conns[0].Close()
	waitState(t, m, StateDisconnected)
	require.Eventually(t, func() bool { return clk.pending() == 1 }, time.Second, time.Millisecond)

	clk.fire(t)
	script.waitDial(t)
	waitState(t, m, StateConnected)
	assert.Equal(t, 2, script.count())
	assert.Equal(t, 0, m.Attempts())
}
