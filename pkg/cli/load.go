package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/iduprojects/insert-services/pkg/document"
	"github.com/iduprojects/insert-services/pkg/loader"
	"github.com/iduprojects/insert-services/pkg/models"
)

func newLoadCommand(a *app) *cobra.Command {
	var (
		documentPath string
		opts         loader.Options
		properties   []string
		noPostLoad   bool
	)

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load one service document into a city",
		Long: `Load reconciles every row of the document against the city model:
existing objects are updated, unknown ones are created, and each row
reports its outcome. All writes happen in one transaction; --dry-run
rolls it back at the end.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, pair := range properties {
				key, column, ok := strings.Cut(pair, "=")
				if !ok {
					return fmt.Errorf("invalid --property %q, expected key=column", pair)
				}
				if opts.Mapping.Properties == nil {
					opts.Mapping.Properties = make(map[string]string)
				}
				opts.Mapping.Properties[key] = column
			}

			if len(opts.AddressPrefixes) == 0 {
				opts.AddressPrefixes = a.cfg.Loader.AddressPrefixes
			}
			if opts.NewAddressPrefix == "" {
				opts.NewAddressPrefix = a.cfg.Loader.NewAddressPrefix
			}
			if opts.LogEvery == 0 {
				opts.LogEvery = a.cfg.Loader.LogEvery
			}

			src, err := document.Open(documentPath)
			if err != nil {
				return err
			}

			report, err := a.newLoader().Load(cmd.Context(), src, opts)
			if err != nil {
				return err
			}
			printLoadReport(cmd, report)

			if opts.DryRun || noPostLoad {
				return nil
			}

			assignment, err := a.newAssigner().AssignLocations(cmd.Context(), opts.City)
			if err != nil {
				return err
			}
			cmd.Printf("locations: %d administrative units, %d municipalities, %d blocks assigned, %d unresolved\n",
				assignment.AssignedAdministrativeUnits,
				assignment.AssignedMunicipalities,
				assignment.AssignedBlocks,
				assignment.Unresolved)

			if err := a.newAssigner().RunMaintenance(cmd.Context(), opts.City); err != nil {
				return err
			}

			refresh, err := a.newRefresher(nil).RefreshAll(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("views: %d refreshed, %d skipped, %d failed\n",
				len(refresh.Refreshed), len(refresh.Skipped), len(refresh.Failed))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&documentPath, "document", "f", "", "path to the source document (json, geojson or csv)")
	flags.StringVarP(&opts.City, "city", "c", "", "target city name or code")
	flags.StringVarP(&opts.ServiceType, "service-type", "T", "", "service type name or code")
	flags.StringVar(&opts.Mapping.Geometry, "geometry-column", "", "column with GeoJSON geometry")
	flags.StringVar(&opts.Mapping.Latitude, "latitude-column", "", "column with latitude, used when no geometry column is mapped")
	flags.StringVar(&opts.Mapping.Longitude, "longitude-column", "", "column with longitude, used when no geometry column is mapped")
	flags.StringVar(&opts.Mapping.Address, "address-column", "", "column with the raw address")
	flags.StringVar(&opts.Mapping.Name, "name-column", "", "column with the service name")
	flags.StringVar(&opts.Mapping.OpeningHours, "opening-hours-column", "", "column with opening hours")
	flags.StringVar(&opts.Mapping.Website, "website-column", "", "column with the website")
	flags.StringVar(&opts.Mapping.Phone, "phone-column", "", "column with the phone number")
	flags.StringVar(&opts.Mapping.Capacity, "capacity-column", "", "column with the service capacity")
	flags.StringVar(&opts.Mapping.OSMID, "osm-id-column", "", "column with the OpenStreetMap id")
	flags.StringArrayVar(&properties, "property", nil, "extra property mapping key=column, repeatable")
	flags.StringArrayVar(&opts.AddressPrefixes, "address-prefix", nil, "accepted address prefix, repeatable")
	flags.StringVar(&opts.NewAddressPrefix, "new-address-prefix", "", "prefix replacing the matched one")
	flags.IntSliceVar(&opts.SkipRows, "skip-row", nil, "zero-based row index to skip, repeatable")
	flags.BoolVar(&opts.DryRun, "dry-run", false, "run everything but roll the transaction back")
	flags.IntVar(&opts.Workers, "workers", 0, "parallel validation workers (default 4)")
	flags.BoolVar(&noPostLoad, "no-post-load", false, "skip location assignment and view refresh after the load")

	_ = cmd.MarkFlagRequired("document")
	_ = cmd.MarkFlagRequired("city")
	_ = cmd.MarkFlagRequired("service-type")

	return cmd
}

func printLoadReport(cmd *cobra.Command, report *models.LoadReport) {
	cmd.Printf("session %s: %d created, %d updated, %d unchanged, %d skipped, %d rejected\n",
		report.SessionID, report.Created, report.Updated, report.Unchanged,
		report.Skipped, report.Rejected)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "row\toutcome\tservice id\treason")
	for _, res := range report.Results {
		id := ""
		if res.FunctionalObjectID != nil {
			id = fmt.Sprint(*res.FunctionalObjectID)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", res.Index, res.Outcome, id, res.Reason)
	}
	_ = w.Flush()
}
