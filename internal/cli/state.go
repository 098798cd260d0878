package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"sciviz_playground/internal/game"
	"sciviz_playground/internal/session"
)

func NewStateCmd(opts *Options) *cobra.Command {
	var pretty bool

	cmd := &cobra.Command{
		Use:   "state",
		Short: "Fetch the current snapshot over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), session.DefaultHTTPTimeout)
			defer cancel()

			state, err := session.New(cfg).GetGameState(ctx)
			if err != nil {
				return fmt.Errorf("failed to fetch state: %w", err)
			}
			return printState(cmd, state, pretty)
		},
	}

	cmd.Flags().BoolVar(&pretty, "pretty", false, "Indent the JSON output")
	return cmd
}

func printState(cmd *cobra.Command, state *game.GameState, pretty bool) error {
	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = json.MarshalIndent(state, "", "  ")
	} else {
		data, err = json.Marshal(state)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
