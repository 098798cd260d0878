package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	"sciviz_playground/internal/config"
	"sciviz_playground/internal/game"
)

const waitTimeout = 2 * time.Second

var errClosed = errors.New("use of closed network connection")

type frame struct {
	data []byte
	err  error
}

type fakeSocket struct {
	incoming  chan frame
	closed    chan struct{}
	closeOnce sync.Once

	mu       sync.Mutex
	written  [][]byte
	controls int
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{
		incoming: make(chan frame, 16),
		closed:   make(chan struct{}),
	}
}

func (s *fakeSocket) ReadMessage() (int, []byte, error) {
	select {
	case f := <-s.incoming:
		if f.err != nil {
			return 0, nil, f.err
		}
		return websocket.TextMessage, f.data, nil
	case <-s.closed:
		return 0, nil, errClosed
	}
}

func (s *fakeSocket) WriteMessage(_ int, data []byte) error {
	select {
	case <-s.closed:
		return errClosed
	default:
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.written = append(s.written, data)
	return nil
}

func (s *fakeSocket) WriteControl(int, []byte, time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controls++
	return nil
}

func (s *fakeSocket) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

func (s *fakeSocket) push(data string) {
	s.incoming <- frame{data: []byte(data)}
}

// drop simulates a transport failure.
func (s *fakeSocket) drop() {
	s.incoming <- frame{err: errors.New("connection reset by peer")}
}

// hangUp simulates the server sending a normal close frame.
func (s *fakeSocket) hangUp() {
	s.incoming <- frame{err: &websocket.CloseError{Code: websocket.CloseNormalClosure}}
}

func (s *fakeSocket) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

func (s *fakeSocket) writes() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.written...)
}

type dialResult struct {
	sock *fakeSocket
	err  error
}

type fakeDialer struct {
	results chan dialResult
	dialed  chan string
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{
		results: make(chan dialResult, 16),
		dialed:  make(chan string, 64),
	}
}

func (d *fakeDialer) Dial(ctx context.Context, url string) (Socket, error) {
	d.dialed <- url
	select {
	case r := <-d.results:
		if r.err != nil {
			return nil, r.err
		}
		return r.sock, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (d *fakeDialer) accept() *fakeSocket {
	sock := newFakeSocket()
	d.results <- dialResult{sock: sock}
	return sock
}

func (d *fakeDialer) refuse() {
	d.results <- dialResult{err: errors.New("connection refused")}
}

func (d *fakeDialer) waitDial(t *testing.T) string {
	t.Helper()
	select {
	case url := <-d.dialed:
		return url
	case <-time.After(waitTimeout):
		t.Fatal("expected a dial")
		return ""
	}
}

func (d *fakeDialer) assertNoDial(t *testing.T, within time.Duration) {
	t.Helper()
	select {
	case url := <-d.dialed:
		t.Fatalf("unexpected dial to %s", url)
	case <-time.After(within):
	}
}

type harness struct {
	client *Client
	dialer *fakeDialer
	clock  *testingclock.FakeClock
	states chan ConnectionState
	frames chan *game.GameState
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()

	h := &harness{
		dialer: newFakeDialer(),
		clock:  testingclock.NewFakeClock(time.Unix(1700000000, 0)),
		states: make(chan ConnectionState, 64),
		frames: make(chan *game.GameState, 16),
	}

	cfg := config.Config{
		BackendURL:           "http://game.test",
		WSURL:                "ws://game.test",
		WSPath:               "/ws",
		MaxReconnectAttempts: DefaultMaxReconnectAttempts,
		ReconnectDelay:       DefaultReconnectDelay,
	}

	base := []Option{
		WithDialer(h.dialer),
		WithClock(h.clock),
		WithStateObserver(func(s ConnectionState) { h.states <- s }),
	}
	h.client = New(cfg, append(base, opts...)...)
	t.Cleanup(h.client.Disconnect)
	return h
}

func (h *harness) onState(s *game.GameState) {
	h.frames <- s
}

func (h *harness) waitState(t *testing.T, want ConnectionState) {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case got := <-h.states:
			if got == want {
				return
			}
		case <-deadline:
			t.Fatalf("state %s never reached, client is %s", want, h.client.State())
		}
	}
}

func (h *harness) waitFrame(t *testing.T) *game.GameState {
	t.Helper()
	select {
	case s := <-h.frames:
		return s
	case <-time.After(waitTimeout):
		t.Fatal("expected a state update")
		return nil
	}
}

func (h *harness) assertNoFrame(t *testing.T, within time.Duration) {
	t.Helper()
	select {
	case s := <-h.frames:
		t.Fatalf("unexpected state update: %s", s.Raw)
	case <-time.After(within):
	}
}

// waitTimer blocks until a reconnect timer is pending on the fake clock.
func (h *harness) waitTimer(t *testing.T) {
	t.Helper()
	require.Eventually(t, h.clock.HasWaiters, waitTimeout, time.Millisecond)
}

// connect drives the client to Connected and returns the live socket.
func (h *harness) connect(t *testing.T) *fakeSocket {
	t.Helper()
	require.NoError(t, h.client.Connect(h.onState))
	h.dialer.waitDial(t)
	sock := h.dialer.accept()
	h.waitState(t, Connected)
	return sock
}
