package config

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var ErrConfigTimeout = errors.New("config_timeout")

// DefaultWaitTimeout bounds how long a session waits for configuration.
const DefaultWaitTimeout = 10 * time.Second

// Provider is a one-shot configuration future. The first Resolve or Reject
// wins; every Wait observes the same outcome.
type Provider struct {
	once  sync.Once
	ready chan struct{}
	cfg   Config
	err   error
}

func NewProvider() *Provider {
	return &Provider{ready: make(chan struct{})}
}

// Resolved returns a provider that is already settled with cfg.
func Resolved(cfg Config) *Provider {
	p := NewProvider()
	p.Resolve(cfg)
	return p
}

// Resolve settles the provider and reports whether this call did so.
func (p *Provider) Resolve(cfg Config) bool {
	return p.settle(cfg, nil)
}

func (p *Provider) Reject(err error) bool {
	return p.settle(Config{}, err)
}

func (p *Provider) settle(cfg Config, err error) bool {
	settled := false
	p.once.Do(func() {
		p.cfg, p.err = cfg, err
		close(p.ready)
		settled = true
	})
	return settled
}

// Ready is closed once the provider has settled.
func (p *Provider) Ready() <-chan struct{} {
	return p.ready
}

func (p *Provider) Wait(ctx context.Context) (Config, error) {
	select {
	case <-p.ready:
		return p.cfg, p.err
	case <-ctx.Done():
		return Config{}, fmt.Errorf("%w: %v", ErrConfigTimeout, ctx.Err())
	}
}

func (p *Provider) Await(timeout time.Duration) (Config, error) {
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return p.Wait(ctx)
}

// LoadAsync settles p from Load(path, overrides...) in the background.
func LoadAsync(p *Provider, path string, overrides ...Override) {
	go func() {
		cfg, err := Load(path, overrides...)
		if err != nil {
			p.Reject(err)
			return
		}
		p.Resolve(cfg)
	}()
}
