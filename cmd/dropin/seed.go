package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/alfredjeanlab/dropin/internal/model"
	"github.com/alfredjeanlab/dropin/internal/server"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// seedFile is the YAML layout accepted by `dropin seed`. Each entry uses the
// same field names as the POST /runs body.
type seedFile struct {
	Runs []map[string]any `yaml:"runs"`
}

// parseSeed decodes a seed document into create bodies.
func parseSeed(r io.Reader) ([]model.Fields, error) {
	var sf seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&sf); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("seed file is empty")
		}
		return nil, fmt.Errorf("parsing seed file: %w", err)
	}

	out := make([]model.Fields, 0, len(sf.Runs))
	for i, entry := range sf.Runs {
		f := make(model.Fields, len(entry))
		for k, v := range entry {
			raw, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("run %d: field %s: %w", i+1, k, err)
			}
			f[k] = raw
		}
		out = append(out, f)
	}
	return out, nil
}

// seededRun is one line of seed output.
type seededRun struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	EditToken string `json:"editToken"`
}

// creator is the part of the lifecycle engine seeding needs.
type creator interface {
	CreateRun(ctx context.Context, f model.Fields) (*model.Run, error)
}

// seedRuns creates every entry, stopping at the first failure.
func seedRuns(ctx context.Context, c creator, bodies []model.Fields) ([]seededRun, error) {
	out := make([]seededRun, 0, len(bodies))
	for i, f := range bodies {
		run, err := c.CreateRun(ctx, f)
		if err != nil {
			return out, fmt.Errorf("run %d: %w", i+1, err)
		}
		out = append(out, seededRun{ID: run.ID, Name: run.Name, EditToken: run.EditToken})
	}
	return out, nil
}

var seedCmd = &cobra.Command{
	Use:               "seed <file.yaml>",
	Short:             "Create runs from a YAML file",
	GroupID:           "system",
	Args:              cobra.ExactArgs(1),
	PersistentPreRunE: localCommand,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		bodies, err := parseSeed(f)
		f.Close()
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := stderrLogger(cfg)
		ctx := context.Background()

		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close()
		publisher, err := openPublisher(cfg, logger)
		if err != nil {
			return err
		}
		defer publisher.Close()

		engine := server.NewRunsServer(st, publisher, server.WithLogger(logger))
		seeded, seedErr := seedRuns(ctx, engine, bodies)

		if save, _ := cmd.Flags().GetBool("save-tokens"); save {
			for _, s := range seeded {
				if err := rememberToken(s.ID, s.EditToken, s.Name, ""); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: could not save edit token: %v\n", err)
				}
			}
		}

		if jsonOutput {
			printJSON(seeded)
		} else {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tEDIT TOKEN")
			for _, s := range seeded {
				fmt.Fprintf(w, "%s\t%s\t%s\n", s.ID, s.Name, s.EditToken)
			}
			w.Flush()
			fmt.Printf("\n%d of %d runs created\n", len(seeded), len(bodies))
		}
		return seedErr
	},
}

func init() {
	seedCmd.Flags().Bool("save-tokens", true, "remember edit tokens in the local token file")
}
