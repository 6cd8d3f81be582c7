package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alfredjeanlab/dropin/internal/model"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List active runs",
	GroupID: "runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		day, _ := cmd.Flags().GetString("day")
		if day != "" && !model.Day(day).IsValid() {
			return fmt.Errorf("invalid --day %q", day)
		}

		runs, err := runsClient.ListRuns(context.Background())
		if err != nil {
			return fmt.Errorf("listing runs: %w", err)
		}
		if day != "" {
			runs = filterDay(runs, model.Day(day))
		}

		if jsonOutput {
			printJSON(runs)
		} else {
			writeRunList(os.Stdout, runs, time.Now())
		}
		return nil
	},
}

func filterDay(runs []*model.Run, day model.Day) []*model.Run {
	out := make([]*model.Run, 0, len(runs))
	for _, r := range runs {
		if r.DayOfWeek == day {
			out = append(out, r)
		}
	}
	return out
}

func init() {
	listCmd.Flags().StringP("day", "d", "", "only show runs on this day (e.g. Tuesday)")
}
