package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewLogoutCommand creates the logout command.
func NewLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out of the cf session",
		Long:  "Drop the cached access token and log the cf session out",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(nil)
			if err != nil {
				return err
			}

			err = s.cf.Logout(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to log out: %w", err)
			}

			_, _ = fmt.Fprintln(out(cmd), "Logged out")

			return nil
		},
	}
}
