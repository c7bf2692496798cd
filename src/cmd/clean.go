package cmd

import "github.com/spf13/cobra"

// newCleanCmd is a reserved no-op, per spec §6.
func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Reserved; currently a no-op",
		RunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
	}
}
