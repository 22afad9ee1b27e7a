package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AnatoleLucet/reactive/internal/scenario"
)

func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <scenario.yaml>...",
		Short: "Check scenario files without running them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				s, err := scenario.Load(path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ok: %s (%d watchers, %d steps)\n", s.Name, len(s.Watchers), len(s.Steps))
			}
			return nil
		},
	}
}
