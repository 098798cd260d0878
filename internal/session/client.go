// Package session implements the client side of a game server session: one
// streaming websocket that delivers state snapshots and accepts actions,
// recovered automatically within a bounded reconnect budget, plus one-shot
// REST helpers against the same server.
//
// State machine:
//
//	Disconnected -> Connecting -> Connected
//	Connecting/Connected -> (error/close) -> Reconnecting -> Connecting
//	Connecting/Connected -> (budget spent) -> Failed
//	any -> Disconnect() -> Disconnected
//
// Every Connect starts a new generation. Socket events and reconnect timers
// carry the generation they were created in and are ignored once it is no
// longer current, which is how Disconnect cancels pending work.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"k8s.io/utils/clock"

	"sciviz_playground/internal/config"
	"sciviz_playground/internal/game"
)

var ErrReconnectBudgetExhausted = errors.New("reconnect_budget_exhausted")

type Client struct {
	cfg         config.Config
	clientID    string
	dialer      Dialer
	http        *http.Client
	clock       clock.WithDelayedExecution
	backoff     backoff.BackOff
	maxAttempts int
	logger      zerolog.Logger
	metrics     *Metrics
	observer    StateObserver

	mu         sync.Mutex
	state      ConnectionState
	attempts   int
	generation uint64
	conn       Socket
	cancelDial context.CancelFunc
	timer      clock.Timer
	latest     *game.GameState

	writeMu sync.Mutex
}

// New builds a disconnected client. cfg is read once here and never again.
func New(cfg config.Config, opts ...Option) *Client {
	c := &Client{
		cfg:         cfg,
		clientID:    uuid.NewString(),
		dialer:      WebSocketDialer{},
		http:        &http.Client{Timeout: DefaultHTTPTimeout},
		clock:       clock.RealClock{},
		maxAttempts: cfg.MaxReconnectAttempts,
		logger:      log.Logger,
	}

	delay := cfg.ReconnectDelay
	if delay <= 0 {
		delay = DefaultReconnectDelay
	}
	c.backoff = backoff.NewConstantBackOff(delay)

	for _, opt := range opts {
		opt(c)
	}

	if c.maxAttempts <= 0 {
		c.maxAttempts = DefaultMaxReconnectAttempts
	}
	c.logger = c.logger.With().Str("client_id", c.clientID).Logger()
	c.metrics.setState(Disconnected)
	return c
}

func (c *Client) ClientID() string {
	return c.clientID
}

func (c *Client) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) ReconnectAttempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// Latest returns the most recent snapshot, or nil before the first one.
func (c *Client) Latest() *game.GameState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest
}

// Connect opens the socket in the background and delivers every valid
// snapshot to onStateUpdate. Once the reconnect budget is spent it does
// nothing, leaves the client Failed and returns ErrReconnectBudgetExhausted.
func (c *Client) Connect(onStateUpdate StateHandler) error {
	c.mu.Lock()
	return c.connectLocked(onStateUpdate)
}

// connectLocked must be called with c.mu held; it releases it.
func (c *Client) connectLocked(onStateUpdate StateHandler) error {
	if c.attempts >= c.maxAttempts {
		changed := c.setStateLocked(Failed)
		attempts := c.attempts
		c.mu.Unlock()

		c.notify(changed)
		c.logger.Error().Int("attempts", attempts).Msg("Reconnect budget exhausted, giving up.")
		return ErrReconnectBudgetExhausted
	}

	prev := c.detachLocked()
	c.generation++
	gen := c.generation
	ctx, cancel := context.WithCancel(context.Background())
	c.cancelDial = cancel
	changed := c.setStateLocked(Connecting)
	c.mu.Unlock()

	prev.release()
	c.notify(changed)
	c.metrics.connectAttempt()

	go c.run(ctx, gen, onStateUpdate)
	return nil
}

// Disconnect tears the session down. A reconnect scheduled earlier will not
// fire afterwards. Calling it on a disconnected client is a no-op.
func (c *Client) Disconnect() {
	c.mu.Lock()
	prev := c.detachLocked()
	c.generation++
	c.attempts = 0
	c.backoff.Reset()
	changed := c.setStateLocked(Disconnected)
	c.mu.Unlock()

	prev.release()
	c.notify(changed)
	if prev.conn != nil {
		c.logger.Info().Msg("Disconnected.")
	}
}

// SendAction writes {"action": ...} to the open socket. Actions are never
// queued: when the socket is not open the action is dropped with a warning
// and SendAction reports false.
func (c *Client) SendAction(action game.Action) bool {
	c.mu.Lock()
	conn := c.conn
	if c.state != Connected {
		conn = nil
	}
	c.mu.Unlock()

	if conn == nil {
		c.metrics.actionDropped()
		c.logger.Warn().Stringer("action", action).Msg("Socket not open, dropping action.")
		return false
	}
	if action.IsZero() {
		c.metrics.actionDropped()
		c.logger.Warn().Msg("Empty action, not sending.")
		return false
	}

	data, err := json.Marshal(game.ActionMessage{Action: action})
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to marshal action.")
		return false
	}

	c.writeMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, data)
	c.writeMu.Unlock()
	if err != nil {
		c.metrics.actionDropped()
		c.logger.Warn().Err(err).Stringer("action", action).Msg("Failed to send action.")
		return false
	}

	c.metrics.actionSent()
	return true
}

func (c *Client) run(ctx context.Context, gen uint64, onStateUpdate StateHandler) {
	url := c.cfg.WebSocketURL(c.clientID)

	conn, err := c.dialer.Dial(ctx, url)
	if err != nil {
		c.handleError(gen, err)
		c.handleClose(gen, onStateUpdate)
		return
	}
	if !c.handleOpen(gen, conn) {
		_ = conn.Close()
		return
	}

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if !isCleanClose(err) {
				c.handleError(gen, err)
			}
			c.handleClose(gen, onStateUpdate)
			return
		}
		c.handleMessage(gen, payload, onStateUpdate)
	}
}

func (c *Client) handleOpen(gen uint64, conn Socket) bool {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return false
	}
	c.conn = conn
	c.attempts = 0
	c.backoff.Reset()
	changed := c.setStateLocked(Connected)
	c.mu.Unlock()

	c.notify(changed)
	c.logger.Info().Msg("Connected.")
	return true
}

func (c *Client) handleMessage(gen uint64, payload []byte, onStateUpdate StateHandler) {
	state, err := game.DecodeState(payload)
	if err != nil {
		c.metrics.messageDropped()
		c.logger.Warn().Err(err).Int("bytes", len(payload)).Msg("Discarding malformed state message.")
		return
	}

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.latest = state
	c.mu.Unlock()

	c.metrics.messageReceived()
	if onStateUpdate != nil {
		onStateUpdate(state)
	}
}

func (c *Client) handleError(gen uint64, err error) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.attempts++
	attempts := c.attempts
	c.mu.Unlock()

	c.logger.Warn().Err(err).Int("attempts", attempts).Msg("WebSocket error.")
}

func (c *Client) handleClose(gen uint64, onStateUpdate StateHandler) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	prev := c.detachLocked()

	delay := backoff.Stop
	if c.attempts < c.maxAttempts {
		delay = c.backoff.NextBackOff()
	}
	if delay == backoff.Stop {
		changed := c.setStateLocked(Failed)
		attempts := c.attempts
		c.mu.Unlock()

		prev.release()
		c.notify(changed)
		c.logger.Error().Int("attempts", attempts).Msg("Reconnect budget exhausted, giving up.")
		return
	}

	changed := c.setStateLocked(Reconnecting)
	c.mu.Unlock()

	prev.release()
	c.notify(changed)
	c.metrics.reconnectScheduled()
	c.logger.Info().Dur("delay", delay).Msg("WebSocket closed, scheduling reconnect.")

	// The timer is created outside c.mu: a fake clock may run the callback
	// synchronously while holding its own lock.
	timer := c.clock.AfterFunc(delay, func() { c.reconnect(gen, onStateUpdate) })

	c.mu.Lock()
	if gen == c.generation && c.state == Reconnecting {
		c.timer = timer
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	timer.Stop()
}

func (c *Client) reconnect(gen uint64, onStateUpdate StateHandler) {
	c.mu.Lock()
	if gen != c.generation || c.state != Reconnecting {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	_ = c.connectLocked(onStateUpdate)
}

// setStateLocked returns the new state when it differs from the old one, or
// -1 when nothing changed.
func (c *Client) setStateLocked(s ConnectionState) ConnectionState {
	if c.state == s {
		return -1
	}
	c.state = s
	c.metrics.setState(s)
	return s
}

func (c *Client) notify(s ConnectionState) {
	if s < 0 || c.observer == nil {
		return
	}
	c.observer(s)
}

type detached struct {
	conn   Socket
	timer  clock.Timer
	cancel context.CancelFunc
}

// detachLocked takes ownership of the live socket, timer and dial so they can
// be released without holding c.mu.
func (c *Client) detachLocked() detached {
	d := detached{conn: c.conn, timer: c.timer, cancel: c.cancelDial}
	c.conn, c.timer, c.cancelDial = nil, nil, nil
	return d
}

func (d detached) release() {
	if d.timer != nil {
		d.timer.Stop()
	}
	if d.cancel != nil {
		d.cancel()
	}
	if d.conn != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client disconnect")
		_ = d.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteWait))
		_ = d.conn.Close()
	}
}
