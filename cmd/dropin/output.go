package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/alfredjeanlab/dropin/internal/model"
	"github.com/alfredjeanlab/dropin/internal/ui"
	"github.com/dustin/go-humanize"
)

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

func relTime(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

func writeRunDetail(w io.Writer, r *model.Run, now time.Time) {
	fmt.Fprintf(w, "ID:          %s\n", r.ID)
	fmt.Fprintf(w, "Name:        %s\n", ui.RenderAccent(r.Name))
	fmt.Fprintf(w, "Status:      %s\n", ui.RenderStatus(r.IsActive))
	fmt.Fprintf(w, "When:        %s %s\n", r.DayOfWeek, r.StartTime)
	fmt.Fprintf(w, "Location:    %s (%.5f, %.5f)\n", r.LocationName, r.Latitude, r.Longitude)
	fmt.Fprintf(w, "Distances:   %s\n", r.TypicalDistances)
	fmt.Fprintf(w, "Terrain:     %s\n", r.Terrain)
	fmt.Fprintf(w, "Pace Groups: %s\n", formatPaceGroups(r.PaceGroups))
	if contact := formatContact(r); contact != "" {
		fmt.Fprintf(w, "Contact:     %s\n", contact)
	}
	if r.Notes != nil {
		fmt.Fprintf(w, "Notes:       %s\n", *r.Notes)
	}
	if r.EditToken != "" {
		fmt.Fprintf(w, "Edit Token:  %s\n", r.EditToken)
	}
	fmt.Fprintf(w, "Created:     %s\n", relTime(r.CreatedAt, now))
	fmt.Fprintf(w, "Updated:     %s\n", relTime(r.UpdatedAt, now))
}

func formatPaceGroups(g model.PaceGroups) string {
	parts := make([]string, 0, len(model.PaceRanges))
	for _, p := range model.PaceRanges {
		if f, ok := g[p]; ok {
			parts = append(parts, fmt.Sprintf("%s=%s", p, f))
		}
	}
	return strings.Join(parts, " ")
}

func formatContact(r *model.Run) string {
	var parts []string
	for _, s := range []*string{r.ContactName, r.ContactEmail, r.ContactPhone} {
		if s != nil {
			parts = append(parts, *s)
		}
	}
	return strings.Join(parts, ", ")
}

// writeRunList prints runs as a table with a heading per day. Runs arrive in
// index order, so days are already grouped.
func writeRunList(w io.Writer, runs []*model.Run, now time.Time) {
	if len(runs) == 0 {
		fmt.Fprintln(w, ui.RenderMuted("No active runs."))
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	var day model.Day
	for _, r := range runs {
		if r.DayOfWeek != day {
			if day != "" {
				fmt.Fprintln(tw)
			}
			day = r.DayOfWeek
			fmt.Fprintln(tw, ui.RenderAccent(day.String()))
		}
		name := r.Name
		if len(name) > 40 {
			name = name[:37] + "..."
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID,
			r.StartTime,
			name,
			r.LocationName,
			r.Terrain,
			ui.RenderMuted(relTime(r.UpdatedAt, now)),
		)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d active runs\n", len(runs))
}
