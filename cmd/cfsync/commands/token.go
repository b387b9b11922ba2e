package commands

import (
	"io"
	"strings"
	"time"

	"github.com/fivetwenty-io/cfsync/internal/constants"
	"github.com/fivetwenty-io/cfsync/pkg/cfclient"
	"github.com/spf13/cobra"
)

// NewTokenCommand creates the token command group.
func NewTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Inspect the access token",
		Long:  "Commands for inspecting the access token minted by the cf session",
	}

	cmd.AddCommand(newTokenStatusCommand())

	return cmd
}

func newTokenStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show token status and expiration",
		Long:  "Display the identity, scopes and expiration of the current access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(nil)
			if err != nil {
				return err
			}

			status, err := s.cf.TokenStatus(cmd.Context())
			if err != nil {
				return err
			}

			return renderTokenStatus(out(cmd), status)
		},
	}
}

func renderTokenStatus(w io.Writer, status *cfclient.TokenStatus) error {
	expires := "unknown"

	if !status.ExpiresAt.IsZero() {
		remaining := time.Until(status.ExpiresAt).Round(time.Second)

		switch {
		case status.Expired:
			expires = status.ExpiresAt.Format(time.RFC3339) + " (expired)"
		case remaining < constants.TokenExpiryWarning:
			expires = status.ExpiresAt.Format(time.RFC3339) + " (expires in " + remaining.String() + ")"
		default:
			expires = status.ExpiresAt.Format(time.RFC3339) + " (" + remaining.String() + " left)"
		}
	}

	issued := ""
	if !status.IssuedAt.IsZero() {
		issued = status.IssuedAt.Format(time.RFC3339)
	}

	return render(w, status, []string{"Property", "Value"}, [][]string{
		{"User", status.User},
		{"Email", status.Email},
		{"Client", status.ClientID},
		{"Issuer", status.Issuer},
		{"Scopes", strings.Join(status.Scopes, ", ")},
		{"Issued", issued},
		{"Expires", expires},
	})
}
