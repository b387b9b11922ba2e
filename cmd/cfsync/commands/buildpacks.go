package commands

import (
	"strconv"

	"github.com/spf13/cobra"
)

// NewBuildpacksCommand creates the buildpacks command.
func NewBuildpacksCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "buildpacks",
		Aliases: []string{"bp"},
		Short:   "List buildpacks",
		Long:    "List the buildpacks installed on the selected platform in priority order",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(nil)
			if err != nil {
				return err
			}

			platform, err := s.platform()
			if err != nil {
				return err
			}

			buildpacks, err := check("listing buildpacks", s.cf.Resources().ListBuildpacks(cmd.Context(), platform))
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(buildpacks))

			for _, bp := range buildpacks {
				stack, filename := "", ""
				if bp.Stack != nil {
					stack = *bp.Stack
				}

				if bp.Filename != nil {
					filename = *bp.Filename
				}

				rows = append(rows, []string{
					strconv.Itoa(bp.Position), bp.Name, stack, bp.State, yesNo(bp.Enabled), yesNo(bp.Locked), filename,
				})
			}

			return render(out(cmd), buildpacks, []string{"Position", "Name", "Stack", "State", "Enabled", "Locked", "Filename"}, rows)
		},
	}
}
