package cli

import (
	"github.com/spf13/cobra"
)

func newRefreshViewsCommand(a *app) *cobra.Command {
	var excluded []string

	cmd := &cobra.Command{
		Use:   "refresh-views",
		Short: "Refresh all materialized views except the excluded ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := a.newRefresher(excluded).RefreshAll(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("%d refreshed, %d skipped, %d failed\n",
				len(report.Refreshed), len(report.Skipped), len(report.Failed))
			for _, failure := range report.Failed {
				cmd.Printf("failed %s: %v\n", failure.View, failure.Err)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&excluded, "exclude", nil, "view name to skip, repeatable (defaults from configuration)")

	return cmd
}
