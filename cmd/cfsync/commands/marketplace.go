package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewMarketplaceCommand creates the marketplace command.
func NewMarketplaceCommand() *cobra.Command {
	var org, space string

	cmd := &cobra.Command{
		Use:     "marketplace",
		Aliases: []string{"m"},
		Short:   "List service offerings",
		Long: `List the service offerings advertised on the selected platform. With --org and
--space the cf session is targeted first, so plans restricted by visibility are
listed as that space sees them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(nil)
			if err != nil {
				return err
			}

			platform, err := s.platform()
			if err != nil {
				return err
			}

			if org != "" || space != "" {
				err = s.cf.Target(cmd.Context(), org, space)
				if err != nil {
					return fmt.Errorf("failed to target %s/%s: %w", org, space, err)
				}
			}

			offerings, err := check("listing service offerings", s.cf.Resources().ListServiceOfferings(cmd.Context(), platform))
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(offerings))
			for _, offering := range offerings {
				rows = append(rows, []string{
					offering.Name, offering.BrokerName, yesNo(offering.Available), yesNo(offering.Shareable), offering.Description,
				})
			}

			return render(out(cmd), offerings, []string{"Name", "Broker", "Available", "Shareable", "Description"}, rows)
		},
	}

	cmd.Flags().StringVar(&org, "org", "", "organization to target")
	cmd.Flags().StringVar(&space, "space", "", "space to target")

	return cmd
}
