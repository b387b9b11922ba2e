package commands

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fivetwenty-io/cfsync/internal/constants"
	"github.com/fivetwenty-io/cfsync/pkg/capi"
	"github.com/fivetwenty-io/cfsync/pkg/cfclient"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// NewLoginCommand creates the login command.
func NewLoginCommand() *cobra.Command {
	var (
		apiEndpoint string
		name        string
		username    string
		password    string
		skipSSL     bool
		save        bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log the cf session in to a platform",
		Long: `Authenticate the cf session against a platform. Without --api the platform
selected by --platform (or the first configured one) is used. With --save the
platform is written to the config file, as is an endpoint entered at the prompt
when no platform is configured yet.`,
		Example: `  cfsync login -p prod -u admin
  cfsync login --api https://api.sys.example.com --name lab --save`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(nil)
			if err != nil {
				return err
			}

			reader := bufio.NewReader(cmd.InOrStdin())

			var platform *capi.PlatformInstance

			if apiEndpoint != "" {
				platform = &capi.PlatformInstance{Name: name, APIAddress: apiEndpoint, SkipSSLValidation: skipSSL}
			} else {
				platform, err = s.platform()
				if errors.Is(err, constants.ErrNoPlatformsConfigured) {
					apiEndpoint = prompt(cmd, reader, "API endpoint")
					if apiEndpoint == "" {
						return constants.ErrAPIEndpointRequired
					}

					platform = &capi.PlatformInstance{Name: name, APIAddress: apiEndpoint, SkipSSLValidation: skipSSL}
					save = true
				} else if err != nil {
					return err
				}
			}

			info, err := cfclient.Probe(cmd.Context(), platform)
			if err != nil {
				return err
			}

			s.logger.Debug("platform verified", map[string]interface{}{
				"api": platform.APIAddress,
				"uaa": info.UAA,
			})

			if username == "" {
				username = prompt(cmd, reader, "Username")
			}

			if password == "" {
				password, err = readPassword(cmd, reader)
				if err != nil {
					return err
				}
			}

			status, err := s.cf.Login(cmd.Context(), platform, username, password)
			if err != nil {
				return fmt.Errorf("failed to log in to %s: %w", platform.APIAddress, err)
			}

			if save {
				err = s.cfg.SetPlatform(*platform)
				if err != nil {
					return err
				}

				path, err := s.cfg.Save(viper.GetString("config"))
				if err != nil {
					return err
				}

				_, _ = fmt.Fprintf(out(cmd), "Saved platform to %s\n", path)
			}

			_, _ = fmt.Fprintf(out(cmd), "Logged in to %s\n", platform.APIAddress)

			return renderTokenStatus(out(cmd), status)
		},
	}

	cmd.Flags().StringVarP(&apiEndpoint, "api", "a", "", "API endpoint of a platform to log in to")
	cmd.Flags().StringVar(&name, "name", "", "name for the platform given by --api (default derived from the endpoint)")
	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")
	cmd.Flags().BoolVar(&skipSSL, "skip-ssl-validation", false, "skip TLS certificate validation")
	cmd.Flags().BoolVar(&save, "save", false, "save the platform to the config file")

	return cmd
}

func prompt(cmd *cobra.Command, reader *bufio.Reader, label string) string {
	_, _ = fmt.Fprintf(out(cmd), "%s: ", label)

	value, _ := reader.ReadString('\n')

	return strings.TrimSpace(value)
}

// readPassword reads without echo from a terminal and falls back to a plain
// line read otherwise.
func readPassword(cmd *cobra.Command, reader *bufio.Reader) (string, error) {
	_, _ = fmt.Fprint(out(cmd), "Password: ")

	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		data, err := term.ReadPassword(int(f.Fd()))
		_, _ = fmt.Fprintln(out(cmd))

		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}

		return string(data), nil
	}

	value, _ := reader.ReadString('\n')

	return strings.TrimSpace(value), nil
}
