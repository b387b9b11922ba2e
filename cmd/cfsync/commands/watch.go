package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fivetwenty-io/cfsync/internal/constants"
	"github.com/fivetwenty-io/cfsync/internal/explorer"
	"github.com/fivetwenty-io/cfsync/internal/notify"
	"github.com/fivetwenty-io/cfsync/internal/tree"
	"github.com/fivetwenty-io/cfsync/pkg/capi"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	var (
		interval time.Duration
		depth    int
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the hierarchy in sync and print changes",
		Long: `Expand the hierarchy to --depth, then refresh every expanded branch each
--interval. Every settled change is printed, logged, and published to NATS when
nats.url is configured. Stop with Ctrl-C.`,
		Example: `  cfsync watch --interval 1m
  CFSYNC_NATS_URL=nats://localhost:4222 cfsync watch -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(nil)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("interval") {
				s.cfg.Watch.Interval = interval
			}

			if cmd.Flags().Changed("depth") {
				s.cfg.Watch.Depth = depth
			}

			if s.cfg.Watch.Interval < constants.MinWatchInterval {
				return fmt.Errorf("%w: %s is below %s", constants.ErrInvalidWatchInterval, s.cfg.Watch.Interval, constants.MinWatchInterval)
			}

			format, err := outputFormat()
			if err != nil {
				return err
			}

			notifier, closeNotifier, err := s.notifier(eventPrinter(out(cmd), format))
			if err != nil {
				return err
			}
			defer closeNotifier()

			loop := tree.NewLoop(constants.OwnerQueueSize)

			ex, err := s.explorer(
				tree.WithExecutor(loop),
				tree.WithNotifier(notifier),
				tree.WithConcurrency(constants.DefaultRefreshConcurrency),
			)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			group, ctx := errgroup.WithContext(ctx)

			group.Go(func() error {
				return loop.Run(ctx)
			})

			group.Go(func() error {
				defer loop.Stop()

				return watch(ctx, ex, s.cfg.Watch.Depth, s.cfg.Watch.Interval, s.logger)
			})

			err = group.Wait()
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}

			return nil
		},
	}

	cmd.Flags().DurationVarP(&interval, "interval", "i", constants.DefaultWatchInterval, "time between refresh sweeps")
	cmd.Flags().IntVarP(&depth, "depth", "d", constants.DefaultTreeDepth, "levels to expand before watching")

	return cmd
}

// watch expands the tree and refreshes it every interval until ctx is done.
// Failed branches are logged and retried on the next sweep.
func watch(ctx context.Context, ex *explorer.Explorer, depth int, interval time.Duration, logger capi.Logger) error {
	err := ex.ExpandTo(ctx, depth)
	if err != nil {
		logger.Warn("initial expansion incomplete", map[string]interface{}{"error": err.Error()})
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	t := ex.Tree()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			started := time.Now()

			err := t.RefreshAll(ctx, t.Root())
			if err != nil {
				logger.Warn("refresh sweep incomplete", map[string]interface{}{"error": err.Error()})

				continue
			}

			logger.Info("refresh sweep completed", map[string]interface{}{
				"duration": time.Since(started).String(),
			})
		}
	}
}

// eventPrinter writes settled changes as text lines or JSON lines.
func eventPrinter(w io.Writer, format string) tree.Notifier {
	encoder := json.NewEncoder(w)

	return tree.NotifierFunc(func(n *tree.Node) {
		if n.Loading() {
			return
		}

		event := notify.NewEvent(n)

		if format == constants.FormatJSON {
			_ = encoder.Encode(event)

			return
		}

		path := strings.Join(event.Path, "/")
		if path == "" {
			path = event.Label
		}

		_, _ = fmt.Fprintf(w, "%s  %-12s  %s  %s\n",
			time.Now().Format(time.TimeOnly), event.Kind, path, strings.Join(event.Children, ", "))
	})
}
