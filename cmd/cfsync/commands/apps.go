package commands

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/fivetwenty-io/cfsync/internal/explorer"
	"github.com/fivetwenty-io/cfsync/internal/tree"
	"github.com/fivetwenty-io/cfsync/pkg/capi"
	"github.com/spf13/cobra"
)

// appRow is the printed form of an application.
type appRow struct {
	Platform     string `json:"platform"     yaml:"platform"`
	Organization string `json:"organization" yaml:"organization"`
	Space        string `json:"space"        yaml:"space"`
	Name         string `json:"name"         yaml:"name"`
	GUID         string `json:"guid"         yaml:"guid"`
	State        string `json:"state"        yaml:"state"`
}

func newAppRow(app *capi.App) appRow {
	row := appRow{Name: app.Name, GUID: app.GUID, State: explorer.StateLabel(app.State)}

	if app.Space != nil {
		row.Space = app.Space.Name

		if org := app.Space.Organization; org != nil {
			row.Organization = org.Name
		}
	}

	if platform := app.Platform(); platform != nil {
		row.Platform = platform.Name
	}

	return row
}

// NewAppsCommand creates the apps command group.
func NewAppsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "apps",
		Aliases: []string{"app", "applications"},
		Short:   "Manage applications",
		Long:    "Start, stop, restart and delete applications addressed by organization, space and name",
	}

	cmd.AddCommand(newAppActionCommand("start", "Start an application", (*explorer.Explorer).StartApp))
	cmd.AddCommand(newAppActionCommand("stop", "Stop an application", (*explorer.Explorer).StopApp))
	cmd.AddCommand(newAppActionCommand("restart", "Restart an application", (*explorer.Explorer).RestartApp))
	cmd.AddCommand(newAppsDeleteCommand())

	return cmd
}

type appAction func(e *explorer.Explorer, ctx context.Context, node *tree.Node) error

func newAppActionCommand(use, short string, action appAction) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ORG SPACE APP",
		Short: short,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ex, node, err := locateApp(cmd, args)
			if err != nil {
				return err
			}

			err = action(ex, cmd.Context(), node)
			if err != nil {
				return fmt.Errorf("failed to %s application %s: %w", use, args[2], err)
			}

			app, err := ex.App(node)
			if err != nil {
				return err
			}

			return renderApp(cmd, app)
		},
	}
}

func newAppsDeleteCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete ORG SPACE APP",
		Short: "Delete an application",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force && !confirm(cmd, fmt.Sprintf("Really delete application %s in %s/%s?", args[2], args[0], args[1])) {
				_, _ = fmt.Fprintln(out(cmd), "Delete cancelled")

				return nil
			}

			ex, node, err := locateApp(cmd, args)
			if err != nil {
				return err
			}

			err = ex.DeleteApp(cmd.Context(), node)
			if err != nil {
				return fmt.Errorf("failed to delete application %s: %w", args[2], err)
			}

			_, _ = fmt.Fprintf(out(cmd), "Application %s deleted\n", args[2])

			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "delete without confirmation")

	return cmd
}

// locateApp walks the tree from the selected platform to ORG SPACE APP.
func locateApp(cmd *cobra.Command, args []string) (*explorer.Explorer, *tree.Node, error) {
	s, err := newSession(nil)
	if err != nil {
		return nil, nil, err
	}

	platform, err := s.platform()
	if err != nil {
		return nil, nil, err
	}

	ex, err := s.explorer()
	if err != nil {
		return nil, nil, err
	}

	node, err := ex.Locate(cmd.Context(), platform.Name, args[0], args[1], args[2])
	if err != nil {
		return nil, nil, err
	}

	return ex, node, nil
}

func renderApp(cmd *cobra.Command, app *capi.App) error {
	row := newAppRow(app)

	return render(out(cmd), row, []string{"Platform", "Organization", "Space", "Name", "State"}, [][]string{
		{row.Platform, row.Organization, row.Space, row.Name, row.State},
	})
}

// confirm asks a yes/no question on the command's input. Anything but y or
// yes is a no.
func confirm(cmd *cobra.Command, question string) bool {
	_, _ = fmt.Fprintf(out(cmd), "%s [y/N]: ", question)

	answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))

	return answer == "y" || answer == "yes"
}
