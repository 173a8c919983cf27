package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

func newDeleteCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Explicitly delete services or buildings",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "service <id>",
			Short: "Delete one service, removing its footprint when orphaned",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return err
				}
				return a.newDeleter().DeleteService(cmd.Context(), id)
			},
		},
		&cobra.Command{
			Use:   "building <id>",
			Short: "Delete a building with all its services and its footprint",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return err
				}
				return a.newDeleter().DeleteBuilding(cmd.Context(), id)
			},
		},
	)

	return cmd
}
