package commands

import (
	"fmt"

	"github.com/fivetwenty-io/cfsync/pkg/capi"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  "View and edit the cfsync configuration",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetPlatformCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			file := cfg.File
			if file == "" {
				file = "(none)"
			}

			rows := [][]string{
				{"Config file", file},
				{"cf binary", cfg.CFBinary},
				{"CF_HOME", cfg.CFHome},
				{"Retry budget", fmt.Sprint(cfg.RetryBudget)},
				{"HTTP timeout", cfg.HTTP.Timeout.String()},
				{"Log level", cfg.Log.Level},
				{"NATS", cfg.NATS.URL},
				{"Watch interval", cfg.Watch.Interval.String()},
			}

			for _, platform := range cfg.Platforms {
				value := platform.APIAddress
				if platform.SkipSSLValidation {
					value += " (skip SSL validation)"
				}

				rows = append(rows, []string{"Platform " + platform.Name, value})
			}

			return render(out(cmd), cfg, []string{"Setting", "Value"}, rows)
		},
	}
}

func newConfigSetPlatformCommand() *cobra.Command {
	var skipSSL bool

	cmd := &cobra.Command{
		Use:   "set-platform NAME API",
		Short: "Add or replace a platform",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			err = cfg.SetPlatform(capi.PlatformInstance{Name: args[0], APIAddress: args[1], SkipSSLValidation: skipSSL})
			if err != nil {
				return err
			}

			path, err := cfg.Save(viper.GetString("config"))
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(out(cmd), "Platform %s saved to %s\n", args[0], path)

			return nil
		},
	}

	cmd.Flags().BoolVar(&skipSSL, "skip-ssl-validation", false, "skip TLS certificate validation")

	return cmd
}
