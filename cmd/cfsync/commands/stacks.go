package commands

import (
	"github.com/spf13/cobra"
)

// NewStacksCommand creates the stacks command.
func NewStacksCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stacks",
		Short: "List stacks",
		Long:  "List the stacks available on the selected platform",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(nil)
			if err != nil {
				return err
			}

			platform, err := s.platform()
			if err != nil {
				return err
			}

			stacks, err := check("listing stacks", s.cf.Resources().ListStacks(cmd.Context(), platform))
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(stacks))
			for _, stack := range stacks {
				rows = append(rows, []string{stack.Name, yesNo(stack.Default), stack.Description})
			}

			return render(out(cmd), stacks, []string{"Name", "Default", "Description"}, rows)
		},
	}
}
