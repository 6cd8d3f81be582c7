package main

import (
	"os"

	"github.com/alfredjeanlab/dropin/internal/client"
	"github.com/alfredjeanlab/dropin/internal/ui"
	"github.com/spf13/cobra"
)

var (
	serverURL  string
	jsonOutput bool
	noColor    bool

	runsClient client.RunsClient
)

func defaultServerURL() string {
	if s := os.Getenv("DROPIN_URL"); s != "" {
		return s
	}
	return "http://localhost:3001"
}

var rootCmd = &cobra.Command{
	Use:           "dropin <command>",
	Short:         "Community drop-in run listings",
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColor || jsonOutput || !ui.ShouldUseColor(os.Stdout) {
			ui.ForceNoColor()
		}
		runsClient = client.NewHTTPClient(serverURL)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if runsClient != nil {
			runsClient.Close()
		}
	},
}

// localCommand skips client setup for commands that talk to the store or
// bus directly.
func localCommand(cmd *cobra.Command, args []string) error {
	if noColor || !ui.ShouldUseColor(os.Stdout) {
		ui.ForceNoColor()
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "url", defaultServerURL(), "server base URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colour output")

	rootCmd.AddGroup(
		&cobra.Group{ID: "runs", Title: "Runs:"},
		&cobra.Group{ID: "views", Title: "Views:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false

	// Runs
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(deactivateCmd)
	rootCmd.AddCommand(activateCmd)
	rootCmd.AddCommand(tokensCmd)

	// Views
	rootCmd.AddCommand(geocodeCmd)
	rootCmd.AddCommand(watchCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(createTableCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(healthCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
