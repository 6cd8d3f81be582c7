package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alfredjeanlab/dropin/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// runFlag binds a CLI flag to a request body field.
type runFlag struct {
	flag  string
	field string
	usage string
	kind  string // string, float or pace
}

var runFlags = []runFlag{
	{"name", model.FieldName, "run name", "string"},
	{"day", model.FieldDayOfWeek, "day of week (Monday..Sunday)", "string"},
	{"time", model.FieldStartTime, "start time (e.g. \"6:30 AM\")", "string"},
	{"location", model.FieldLocationName, "meeting place", "string"},
	{"lat", model.FieldLatitude, "latitude", "float"},
	{"lng", model.FieldLongitude, "longitude", "float"},
	{"distances", model.FieldTypicalDistances, "typical distances (e.g. \"4-6 miles\")", "string"},
	{"terrain", model.FieldTerrain, "Road, Trail or Mixed", "string"},
	{"pace", model.FieldPaceGroups, "pace groups, e.g. sub_8=rarely,8_to_9=sometimes,9_to_10=frequently,10_plus=consistently", "pace"},
	{"contact-name", model.FieldContactName, "contact name", "string"},
	{"contact-email", model.FieldContactEmail, "contact email", "string"},
	{"contact-phone", model.FieldContactPhone, "contact phone", "string"},
	{"notes", model.FieldNotes, "free-form notes", "string"},
}

func addRunFlags(fs *pflag.FlagSet) {
	for _, rf := range runFlags {
		switch rf.kind {
		case "float":
			fs.Float64(rf.flag, 0, rf.usage)
		default:
			fs.String(rf.flag, "", rf.usage)
		}
	}
	fs.StringArrayP("field", "f", nil, "raw body field (key=value, repeatable)")
}

// runFieldsFromFlags builds a request body from the flags the user set.
// -f pairs are applied last and win over named flags.
func runFieldsFromFlags(fs *pflag.FlagSet) (map[string]any, error) {
	body := make(map[string]any)
	for _, rf := range runFlags {
		if !fs.Changed(rf.flag) {
			continue
		}
		switch rf.kind {
		case "float":
			v, _ := fs.GetFloat64(rf.flag)
			body[rf.field] = v
		case "pace":
			v, _ := fs.GetString(rf.flag)
			pace, err := parsePaceGroups(v)
			if err != nil {
				return nil, err
			}
			body[rf.field] = pace
		default:
			v, _ := fs.GetString(rf.flag)
			body[rf.field] = v
		}
	}
	pairs, _ := fs.GetStringArray("field")
	extra, err := parseFields(pairs)
	if err != nil {
		return nil, err
	}
	for k, v := range extra {
		body[k] = v
	}
	return body, nil
}

var createCmd = &cobra.Command{
	Use:     "create",
	Short:   "Create a new run",
	GroupID: "runs",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := runFieldsFromFlags(cmd.Flags())
		if err != nil {
			return err
		}

		run, err := runsClient.CreateRun(context.Background(), body)
		if err != nil {
			return fmt.Errorf("creating run: %w", err)
		}

		if err := rememberToken(run.ID, run.EditToken, run.Name, serverURL); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not save edit token: %v\n", err)
		}

		if jsonOutput {
			printJSON(run)
		} else {
			writeRunDetail(os.Stdout, run, time.Now())
			fmt.Println()
			fmt.Println("Keep the edit token: it is the only way to change this run.")
		}
		return nil
	},
}

func init() {
	addRunFlags(createCmd.Flags())
}
