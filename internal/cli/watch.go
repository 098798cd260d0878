package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"sciviz_playground/internal/config"
	"sciviz_playground/internal/game"
	"sciviz_playground/internal/session"
)

type WatchConfig struct {
	MetricsAddr string
}

func NewWatchCmd(opts *Options) *cobra.Command {
	wc := &WatchConfig{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream snapshots and send actions read from stdin",
		Long: `Opens a session, prints every snapshot as one JSON line on stdout and every
connection state change on stderr. Each line typed on stdin is sent as an
action while the socket is open. Stops on interrupt or when the reconnect
budget is spent.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runWatch(ctx, cfg, wc, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&wc.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	return cmd
}

// lockedWriter serialises writes coming from the socket and stdin goroutines.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) println(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = fmt.Fprintln(l.w, s)
}

func runWatch(ctx context.Context, cfg config.Config, wc *WatchConfig, in io.Reader, out, errOut io.Writer) error {
	stdout := &lockedWriter{w: out}
	stderr := &lockedWriter{w: errOut}

	failed := make(chan struct{})
	var failOnce sync.Once

	opts := []session.Option{
		session.WithStateObserver(func(s session.ConnectionState) {
			stderr.println("state: " + s.String())
			if s == session.Failed {
				failOnce.Do(func() { close(failed) })
			}
		}),
	}

	if wc.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		metrics, err := session.NewMetrics(reg)
		if err != nil {
			return err
		}
		opts = append(opts, session.WithMetrics(metrics))

		srv := &http.Server{
			Addr:              wc.MetricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("Failed to serve metrics.")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	client := session.New(cfg, opts...)
	defer client.Disconnect()

	err := client.Connect(func(state *game.GameState) {
		var line bytes.Buffer
		if err := json.Compact(&line, state.Raw); err != nil {
			return
		}
		stdout.println(line.String())
	})
	if err != nil {
		return err
	}

	go forwardActions(ctx, client, in, stderr)

	select {
	case <-ctx.Done():
		return nil
	case <-failed:
		return session.ErrReconnectBudgetExhausted
	}
}

// forwardActions sends one action per non-empty input line until the input
// ends or ctx is done.
func forwardActions(ctx context.Context, client *session.Client, in io.Reader, stderr *lockedWriter) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		action, err := game.ParseAction(line)
		if err != nil {
			stderr.println(fmt.Sprintf("invalid action %q", line))
			continue
		}
		if !client.SendAction(action) {
			stderr.println("not connected, dropped " + action.String())
		}
	}
}
