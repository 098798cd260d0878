package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"sciviz_playground/internal/game"
	"sciviz_playground/internal/session"
)

func NewActionCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "action <opcode>",
		Short: "Perform one action over HTTP",
		Long: `Posts a single action to the game server. The opcode is either a name
(move_left, spawn, ...) or an integer (2 is right, 3 is left).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			action, err := game.ParseAction(args[0])
			if err != nil {
				return err
			}

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), session.DefaultHTTPTimeout)
			defer cancel()

			if err := session.New(cfg).PerformAction(ctx, action); err != nil {
				return fmt.Errorf("failed to perform action: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "performed %s\n", action)
			return err
		},
	}
}
