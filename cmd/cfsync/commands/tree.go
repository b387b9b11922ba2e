package commands

import (
	"fmt"
	"strings"

	"github.com/fivetwenty-io/cfsync/internal/constants"
	"github.com/fivetwenty-io/cfsync/internal/explorer"
	"github.com/fivetwenty-io/cfsync/internal/tree"
	"github.com/spf13/cobra"
)

// treeEntry is the serialized form of an expanded node.
type treeEntry struct {
	Kind     string       `json:"kind"               yaml:"kind"`
	Name     string       `json:"name"               yaml:"name"`
	Children []*treeEntry `json:"children,omitempty" yaml:"children,omitempty"`
}

// NewTreeCommand creates the tree command.
func NewTreeCommand() *cobra.Command {
	var depth int

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the platform hierarchy",
		Long: `Expand platforms, organizations and spaces down to --depth and print the
result. Depth 1 lists platforms, 2 organizations, 3 spaces and 4 applications.
Branches that fail to load are reported after the tree is printed.`,
		Example: `  cfsync tree
  cfsync tree --depth 2 --platform prod
  cfsync tree -o yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(nil)
			if err != nil {
				return err
			}

			ex, err := s.explorer()
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			expandErr := ex.ExpandTo(ctx, depth)

			root, rows := snapshot(ex)

			err = render(out(cmd), root, []string{"Name", "Kind"}, rows)
			if err != nil {
				return err
			}

			if expandErr != nil {
				return fmt.Errorf("some branches could not be loaded: %w", expandErr)
			}

			return nil
		},
	}

	cmd.Flags().IntVarP(&depth, "depth", "d", constants.DefaultTreeDepth, "levels to expand (1 platforms, 4 applications)")

	return cmd
}

// snapshot captures the expanded part of the tree on its owner.
func snapshot(ex *explorer.Explorer) (*treeEntry, [][]string) {
	var (
		root *treeEntry
		rows [][]string
	)

	t := ex.Tree()

	t.Read(func() {
		root = entry(t.Root())

		for _, row := range t.Visible() {
			kind := row.Node.Kind()
			if row.Node.IsPlaceholder() {
				kind = ""
			}

			rows = append(rows, []string{strings.Repeat("  ", row.Level) + row.Node.Label(), kind})
		}
	})

	return root, rows
}

func entry(n *tree.Node) *treeEntry {
	e := &treeEntry{Kind: n.Kind(), Name: n.Label()}

	if !n.Expanded() {
		return e
	}

	for _, child := range n.Children() {
		if child.IsPlaceholder() {
			continue
		}

		e.Children = append(e.Children, entry(child))
	}

	return e
}
