// Package cli is the terminal front end of the playground: it watches a game
// session, prints its snapshots and forwards actions typed on stdin.
package cli

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"sciviz_playground/internal/config"
	"sciviz_playground/internal/logger"
)

// Options holds the flags shared by every subcommand.
type Options struct {
	ConfigFile    string
	LogLevel      string
	BackendURL    string
	WSURL         string
	ConfigTimeout time.Duration
}

// NewRootCmd creates the playground command tree.
func NewRootCmd() *cobra.Command {
	opts := &Options{}

	cmd := &cobra.Command{
		Use:   "playground",
		Short: "Watch and drive a game environment server",
		Long: `Connects to a game environment server that streams state snapshots over a
websocket and accepts actions over the same socket or over HTTP.

Available subcommands:
  watch       Stream snapshots and send actions read from stdin
  state       Fetch the current snapshot once
  action      Perform a single action

Examples:
  playground watch
  playground watch --ws-url wss://env.example.com --metrics-addr :9090
  playground state --backend-url http://10.0.0.5:8000
  playground action move_left
  playground action 2`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.InitWithWriter(cmd.ErrOrStderr(), opts.LogLevel)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.ConfigFile, "config", "", "Path to a YAML or JSON runtime config document")
	flags.StringVar(&opts.LogLevel, "log-level", "", "Log level (default: PLAYGROUND_LOG_LEVEL or info)")
	flags.StringVar(&opts.BackendURL, "backend-url", "", "HTTP base URL of the game server")
	flags.StringVar(&opts.WSURL, "ws-url", "", "Websocket base URL of the game server")
	flags.DurationVar(&opts.ConfigTimeout, "config-timeout", config.DefaultWaitTimeout, "How long to wait for configuration")

	cmd.AddCommand(NewWatchCmd(opts))
	cmd.AddCommand(NewStateCmd(opts))
	cmd.AddCommand(NewActionCmd(opts))

	return cmd
}

// loadConfig resolves env, the config file and flag overrides, in that order
// of precedence from lowest to highest.
func (o *Options) loadConfig() (config.Config, error) {
	p := config.NewProvider()
	config.LoadAsync(p, o.ConfigFile, o.override)

	cfg, err := p.Await(o.ConfigTimeout)
	if err != nil {
		return config.Config{}, err
	}

	if o.LogLevel == "" {
		zerolog.SetGlobalLevel(logger.ParseLevel(cfg.LogLevel))
	}
	for _, w := range cfg.Warnings() {
		log.Warn().Msg("Suspicious configuration: " + w + ".")
	}
	return cfg, nil
}

func (o *Options) override(cfg *config.Config) {
	if o.BackendURL != "" {
		cfg.BackendURL = o.BackendURL
	}
	if o.WSURL != "" {
		cfg.WSURL = o.WSURL
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
}
