package session

import (
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"k8s.io/utils/clock"
)

const (
	DefaultMaxReconnectAttempts = 5
	DefaultReconnectDelay       = 5 * time.Second
	DefaultHTTPTimeout          = 10 * time.Second
	DefaultHandshakeTimeout     = 10 * time.Second
	closeWriteWait              = time.Second
)

type Option func(*Client)

func WithDialer(d Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithClock replaces the clock that schedules reconnects.
func WithClock(clk clock.WithDelayedExecution) Option {
	return func(c *Client) { c.clock = clk }
}

// WithBackOff replaces the delay policy between reconnects. The attempt
// budget still applies; returning backoff.Stop fails the session early.
func WithBackOff(b backoff.BackOff) Option {
	return func(c *Client) { c.backoff = b }
}

func WithMaxReconnectAttempts(n int) Option {
	return func(c *Client) { c.maxAttempts = n }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithStateObserver(o StateObserver) Option {
	return func(c *Client) { c.observer = o }
}

func WithClientID(id string) Option {
	return func(c *Client) { c.clientID = id }
}
