package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alfredjeanlab/dropin/internal/model"
	"github.com/spf13/cobra"
)

func submitUpdate(cmd *cobra.Command, id string, body map[string]any) error {
	token, err := resolveToken(cmd, id)
	if err != nil {
		return err
	}

	run, err := runsClient.UpdateRun(context.Background(), id, token, body)
	if err != nil {
		return fmt.Errorf("updating run %s: %w", id, err)
	}

	if jsonOutput {
		printJSON(run)
	} else {
		writeRunDetail(os.Stdout, run, time.Now())
	}
	return nil
}

var updateCmd = &cobra.Command{
	Use:     "update <id>",
	Short:   "Update a run",
	GroupID: "runs",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := runFieldsFromFlags(cmd.Flags())
		if err != nil {
			return err
		}
		return submitUpdate(cmd, args[0], body)
	},
}

var deactivateCmd = &cobra.Command{
	Use:     "deactivate <id>",
	Short:   "Hide a run from the listing",
	GroupID: "runs",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return submitUpdate(cmd, args[0], map[string]any{model.FieldIsActive: false})
	},
}

var activateCmd = &cobra.Command{
	Use:     "activate <id>",
	Short:   "Return a run to the listing",
	GroupID: "runs",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return submitUpdate(cmd, args[0], map[string]any{model.FieldIsActive: true})
	},
}

func init() {
	addRunFlags(updateCmd.Flags())
	for _, c := range []*cobra.Command{updateCmd, deactivateCmd, activateCmd} {
		c.Flags().String("token", "", "edit token (defaults to the saved token)")
	}
}
