package main

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/parcel-cli/internal/model"
)

var (
	resolveLat     float64
	resolveLon     float64
	resolveAddress string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve a single address or coordinate to a parcel and hierarchy",
	Long: `Resolves one location to its parcel record and census geography.

Examples:
  # From coordinates (preferred, no geocoding ambiguity)
  parcel-cli resolve --lat 32.857467 --lon -117.254313

  # From an address (geocoded first)
  parcel-cli resolve --address "2260 Calle Frescota La Jolla"`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("resolve"); err != nil {
			return err
		}

		q := model.LocationQuery{RawAddress: resolveAddress}
		if cmd.Flags().Changed("lat") && cmd.Flags().Changed("lon") {
			q.Lat = resolveLat
			q.Lon = resolveLon
			q.HasCoordinate = true
		}
		if err := q.Validate(); err != nil {
			return eris.Wrap(err, "resolve: provide --lat/--lon or --address")
		}

		r := newResolver(cfg)
		loc, err := r.Resolve(cmd.Context(), q)
		if err != nil {
			return eris.Wrap(err, "resolve")
		}

		printLocation(cmd, loc)
		return nil
	},
}

func printLocation(cmd *cobra.Command, loc model.EnrichedLocation) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Status:  %s\n", loc.Status)
	fmt.Fprintf(out, "Coords:  %.6f, %.6f\n", loc.Lat, loc.Lon)

	if p := loc.BestParcel; p != nil {
		situs := strings.TrimSpace(strings.Join([]string{
			p.SitusHouseNumber, p.SitusStreetName, p.SitusStreetSuffix,
		}, " "))
		fmt.Fprintf(out, "Parcel:  APN=%s  Owner=%s\n", p.APN, p.OwnerName)
		fmt.Fprintf(out, "Situs:   %s, %s %s\n", situs, p.SitusCommunity, p.SitusZip)
		if p.AssessedTotal > 0 {
			fmt.Fprintf(out, "Value:   $%d\n", p.AssessedTotal)
		}
		if loc.Score > 0 {
			fmt.Fprintf(out, "Score:   %d\n", loc.Score)
		}
	}

	h := loc.Hierarchy
	if !h.Empty() {
		fmt.Fprintf(out, "Census:  %s / %s / %s\n", orUnknown(h.PlaceName), orUnknown(h.CountyName), orUnknown(h.StateName))
		fmt.Fprintf(out, "Tract:   %s\n", orUnknown(h.TractGEOID))
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "?"
	}
	return s
}

func init() {
	resolveCmd.Flags().Float64Var(&resolveLat, "lat", 0, "latitude")
	resolveCmd.Flags().Float64Var(&resolveLon, "lon", 0, "longitude")
	resolveCmd.Flags().StringVar(&resolveAddress, "address", "", "address string (geocoded when no coordinates given)")
	rootCmd.AddCommand(resolveCmd)
}
