package cli

import (
	"github.com/spf13/cobra"
)

func newAssignLocationsCommand(a *app) *cobra.Command {
	var (
		city         string
		skipMaintain bool
	)

	cmd := &cobra.Command{
		Use:   "assign-locations",
		Short: "Fill missing hierarchy references of objects in a city",
		Long: `Assigns administrative unit, municipality and block references to
physical objects and blocks that lack them, by center containment with
an area-overlap fallback. Already assigned references are never
overwritten.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := a.newAssigner().AssignLocations(cmd.Context(), city)
			if err != nil {
				return err
			}
			cmd.Printf("%d administrative units, %d municipalities, %d blocks assigned, %d unresolved\n",
				report.AssignedAdministrativeUnits,
				report.AssignedMunicipalities,
				report.AssignedBlocks,
				report.Unresolved)

			if skipMaintain {
				return nil
			}
			return a.newAssigner().RunMaintenance(cmd.Context(), city)
		},
	}

	cmd.Flags().StringVarP(&city, "city", "c", "", "target city name or code")
	cmd.Flags().BoolVar(&skipMaintain, "skip-maintenance", false, "skip block population and building area updates")
	_ = cmd.MarkFlagRequired("city")

	return cmd
}
