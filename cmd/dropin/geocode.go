package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var geocodeCmd = &cobra.Command{
	Use:     "geocode <query>",
	Short:   "Look up coordinates for an address",
	GroupID: "views",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q := strings.Join(args, " ")
		results, err := runsClient.Geocode(context.Background(), q)
		if err != nil {
			return fmt.Errorf("geocoding %q: %w", q, err)
		}

		if jsonOutput {
			printJSON(results)
			return nil
		}
		if len(results) == 0 {
			fmt.Println("No matches.")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "LAT\tLNG\tPLACE")
		for _, r := range results {
			fmt.Fprintf(w, "%.5f\t%.5f\t%s\n", r.Lat, r.Lng, r.DisplayName)
		}
		w.Flush()
		return nil
	},
}
