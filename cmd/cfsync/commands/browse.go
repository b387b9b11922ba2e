package commands

import (
	"io"

	"github.com/fivetwenty-io/cfsync/internal/tree"
	"github.com/fivetwenty-io/cfsync/internal/tui"
	"github.com/spf13/cobra"
)

// NewBrowseCommand creates the interactive browser command.
func NewBrowseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse platforms interactively",
		Long: `Open a terminal browser over the live hierarchy. Expand with → or enter,
collapse with ←, refresh with r (R for everything), and start, stop or restart
the selected application with s, S and x.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// The terminal belongs to the browser.
			s, err := newSession(io.Discard)
			if err != nil {
				return err
			}

			notifier, closeNotifier, err := s.notifier()
			if err != nil {
				return err
			}
			defer closeNotifier()

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			exec := tui.NewExecutor(ctx)

			ex, err := s.explorer(tree.WithExecutor(exec), tree.WithNotifier(notifier))
			if err != nil {
				return err
			}

			return tui.Run(ctx, ex, exec)
		},
	}
}
