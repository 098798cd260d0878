// Package config resolves the game server endpoints a session talks to.
// Values come from the environment (including .env files loaded by envy) and
// may be overridden by a runtime-injected YAML or JSON document.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/gobuffalo/envy"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid_config")

type Config struct {
	BackendURL           string        `env:"PLAYGROUND_BACKEND_URL" envDefault:"http://localhost:8000" yaml:"backendUrl"`
	WSURL                string        `env:"PLAYGROUND_WS_URL" envDefault:"ws://localhost:8000" yaml:"wsUrl"`
	WSPath               string        `env:"PLAYGROUND_WS_PATH" envDefault:"/ws" yaml:"wsPath"`
	MaxReconnectAttempts int           `env:"PLAYGROUND_MAX_RECONNECT_ATTEMPTS" envDefault:"5" yaml:"maxReconnectAttempts"`
	ReconnectDelay       time.Duration `env:"PLAYGROUND_RECONNECT_DELAY" envDefault:"5s" yaml:"reconnectDelay"`
	LogLevel             string        `env:"PLAYGROUND_LOG_LEVEL" envDefault:"info" yaml:"logLevel"`
}

// FromEnv parses the process environment as seen by envy.
func FromEnv() (Config, error) {
	return FromEnvironment(envy.Map())
}

func FromEnvironment(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// LoadFile overlays the document at path on base. Keys missing from the
// document keep their base values.
func LoadFile(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// Override adjusts a resolved configuration before it is validated.
type Override func(*Config)

// UnmarshalYAML accepts reconnectDelay either as a duration string ("5s") or
// as a number of milliseconds (5000).
func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	type plain Config

	var delay *yaml.Node
	if node.Kind == yaml.MappingNode {
		stripped := *node
		stripped.Content = make([]*yaml.Node, 0, len(node.Content))
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value == "reconnectDelay" {
				delay = node.Content[i+1]
				continue
			}
			stripped.Content = append(stripped.Content, node.Content[i], node.Content[i+1])
		}
		node = &stripped
	}

	if err := node.Decode((*plain)(c)); err != nil {
		return err
	}
	if delay != nil {
		d, err := parseDelay(delay)
		if err != nil {
			return err
		}
		c.ReconnectDelay = d
	}
	return nil
}

func parseDelay(node *yaml.Node) (time.Duration, error) {
	var ms int64
	if node.ShortTag() == "!!int" && node.Decode(&ms) == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	var d time.Duration
	if err := node.Decode(&d); err != nil {
		return 0, fmt.Errorf("reconnectDelay: %w", err)
	}
	return d, nil
}

// Load resolves the environment, applies the optional file and the overrides
// in order, then validates.
func Load(path string, overrides ...Override) (Config, error) {
	cfg, err := FromEnv()
	if err != nil {
		return Config{}, err
	}
	if path != "" {
		if cfg, err = LoadFile(path, cfg); err != nil {
			return Config{}, err
		}
	}
	for _, o := range overrides {
		o(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := checkURL(c.BackendURL, "http", "https"); err != nil {
		return fmt.Errorf("%w: backendUrl: %v", ErrInvalidConfig, err)
	}
	if err := checkURL(c.WSURL, "ws", "wss"); err != nil {
		return fmt.Errorf("%w: wsUrl: %v", ErrInvalidConfig, err)
	}
	if c.MaxReconnectAttempts < 1 {
		return fmt.Errorf("%w: maxReconnectAttempts must be positive", ErrInvalidConfig)
	}
	if c.ReconnectDelay <= 0 {
		return fmt.Errorf("%w: reconnectDelay must be positive", ErrInvalidConfig)
	}
	return nil
}

func checkURL(raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %q", raw)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("scheme %q not one of %s", u.Scheme, strings.Join(schemes, ", "))
}

// Warnings lists suspicious but valid settings.
func (c Config) Warnings() []string {
	var warnings []string
	for _, setting := range []struct{ name, raw string }{
		{"backendUrl", c.BackendURL},
		{"wsUrl", c.WSURL},
	} {
		name := setting.name
		u, err := url.Parse(setting.raw)
		if err != nil {
			continue
		}
		switch u.Hostname() {
		case "localhost", "127.0.0.1", "::1":
			warnings = append(warnings, fmt.Sprintf("%s points at %s", name, u.Host))
		}
	}
	return warnings
}

// WebSocketURL is the socket endpoint for one client:
// {wsUrl}{wsPath}/{clientID}.
func (c Config) WebSocketURL(clientID string) string {
	base := strings.TrimRight(c.WSURL, "/")
	if p := strings.Trim(c.WSPath, "/"); p != "" {
		base += "/" + p
	}
	return base + "/" + url.PathEscape(clientID)
}

func (c Config) GameStateURL() string {
	return strings.TrimRight(c.BackendURL, "/") + "/game/state"
}

func (c Config) ActionURL(action string) string {
	return strings.TrimRight(c.BackendURL, "/") + "/game/action/" + url.PathEscape(action)
}
