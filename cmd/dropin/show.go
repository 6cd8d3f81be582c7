package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:     "show <id>",
	Short:   "Show details of a run",
	GroupID: "runs",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		token, _ := cmd.Flags().GetString("token")

		run, err := runsClient.GetRun(context.Background(), id, token)
		if err != nil {
			return fmt.Errorf("getting run %s: %w", id, err)
		}

		if jsonOutput {
			printJSON(run)
		} else {
			writeRunDetail(os.Stdout, run, time.Now())
		}
		return nil
	},
}

func init() {
	showCmd.Flags().String("token", "", "edit token, required to see an inactive run")
}
