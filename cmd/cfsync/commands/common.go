package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fivetwenty-io/cfsync/internal/config"
	"github.com/fivetwenty-io/cfsync/internal/constants"
	"github.com/fivetwenty-io/cfsync/internal/explorer"
	"github.com/fivetwenty-io/cfsync/internal/logging"
	"github.com/fivetwenty-io/cfsync/internal/notify"
	"github.com/fivetwenty-io/cfsync/internal/tree"
	"github.com/fivetwenty-io/cfsync/pkg/capi"
	"github.com/fivetwenty-io/cfsync/pkg/cfclient"
	"github.com/nats-io/nats.go"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// workspaceName labels the synthetic root above the configured platforms.
const workspaceName = "workspace"

// loadConfig reads the configuration through the global viper instance so
// flags bound in main take precedence.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper(), viper.GetString("config"))
	if err != nil {
		return nil, err
	}

	if viper.GetBool("verbose") {
		cfg.Log.Level = "debug"
		cfg.HTTP.Debug = true
	}

	return cfg, nil
}

// session is everything a command needs to reach the platforms.
type session struct {
	cfg    *config.Config
	logger *logging.Logger
	cf     *cfclient.Client
}

// newSession loads the configuration and builds the client. Logs go to w,
// or stderr when w is nil.
func newSession(w io.Writer) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format, w)

	cf, err := cfclient.New(cfg.ClientConfig(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &session{cfg: cfg, logger: logger, cf: cf}, nil
}

// platform resolves the --platform flag, defaulting to the first platform.
func (s *session) platform() (*capi.PlatformInstance, error) {
	return s.cfg.Platform(viper.GetString("platform"))
}

// workspace collects the platforms selected by --platform.
func (s *session) workspace() (*explorer.Workspace, error) {
	platforms, err := s.cfg.PlatformInstances(viper.GetString("platform"))
	if err != nil {
		return nil, err
	}

	return &explorer.Workspace{Name: workspaceName, Platforms: platforms}, nil
}

// explorer builds the workspace tree over the resilient client.
func (s *session) explorer(opts ...tree.Option) (*explorer.Explorer, error) {
	workspace, err := s.workspace()
	if err != nil {
		return nil, err
	}

	opts = append([]tree.Option{tree.WithLogger(s.logger)}, opts...)

	return explorer.New(s.cf.Resources(), workspace, s.logger, opts...), nil
}

// notifier combines the log notifier with a NATS publisher when nats.url is
// set. The returned close function drains the connection.
func (s *session) notifier(extra ...tree.Notifier) (tree.Notifier, func(), error) {
	notifiers := append([]tree.Notifier{notify.NewLog(s.logger)}, extra...)
	closer := func() {}

	if s.cfg.NATS.URL != "" {
		conn, err := notify.Connect(s.cfg.NATS.URL, s.logger)
		if err != nil {
			return nil, nil, err
		}

		notifiers = append(notifiers, notify.NewNATS(conn, s.cfg.NATS.SubjectPrefix, s.logger))
		closer = func() { drain(conn, s.logger) }
	}

	combined, err := notify.Combine(notifiers...)
	if err != nil {
		return nil, nil, err
	}

	return combined, closer, nil
}

func drain(conn *nats.Conn, logger capi.Logger) {
	err := conn.Drain()
	if err != nil {
		logger.Warn("failed to drain NATS connection", map[string]interface{}{"error": err.Error()})
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// outputFormat returns the validated --output value.
func outputFormat() (string, error) {
	format := viper.GetString("output")

	switch format {
	case constants.FormatTable, constants.FormatJSON, constants.FormatYAML:
		return format, nil
	default:
		return "", fmt.Errorf("%w: %s", constants.ErrInvalidOutputFormat, format)
	}
}

// render writes data as JSON or YAML, or rows as a table.
func render(w io.Writer, data interface{}, header []string, rows [][]string) error {
	format, err := outputFormat()
	if err != nil {
		return err
	}

	switch format {
	case constants.FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")

		err := encoder.Encode(data)
		if err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
	case constants.FormatYAML:
		encoder := yaml.NewEncoder(w)

		err := encoder.Encode(data)
		if err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}

		err = encoder.Close()
		if err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
	default:
		table := tablewriter.NewWriter(w)
		table.Header(header)

		for _, row := range rows {
			_ = table.Append(row)
		}

		err := table.Render()
		if err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}
	}

	return nil
}

// check unwraps a failed result into an error naming the operation.
func check[T any](operation string, res capi.Result[T]) (T, error) {
	content, err := res.Unwrap()
	if err != nil {
		if res.FailureKind == capi.FailureInvalidRefreshToken {
			return content, fmt.Errorf("%s: %w (run \"cfsync login\")", operation, err)
		}

		return content, fmt.Errorf("%s: %w", operation, err)
	}

	return content, nil
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}

	return "no"
}

func out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
