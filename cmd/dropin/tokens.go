package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
)

// TokenFile holds the edit tokens of runs created from this machine, keyed by
// run ID.
type TokenFile struct {
	Runs map[string]SavedToken `toml:"runs"`
}

// SavedToken is one remembered edit token.
type SavedToken struct {
	Token   string    `toml:"token"`
	Name    string    `toml:"name,omitempty"`
	Server  string    `toml:"server,omitempty"`
	SavedAt time.Time `toml:"saved_at"`
}

func tokenFilePath() (string, error) {
	if p := os.Getenv("DROPIN_TOKEN_FILE"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state", "dropin", "tokens.toml"), nil
}

func loadTokenFile() (TokenFile, error) {
	path, err := tokenFilePath()
	if err != nil {
		return TokenFile{}, err
	}
	var tf TokenFile
	if _, err := toml.DecodeFile(path, &tf); err != nil {
		if os.IsNotExist(err) {
			return TokenFile{Runs: map[string]SavedToken{}}, nil
		}
		return TokenFile{}, fmt.Errorf("reading %s: %w", path, err)
	}
	if tf.Runs == nil {
		tf.Runs = map[string]SavedToken{}
	}
	return tf, nil
}

func saveTokenFile(tf TokenFile) error {
	path, err := tokenFilePath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	// Write a sibling file and rename it over the old one. A failed write
	// leaves the saved tokens untouched.
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if err := toml.NewEncoder(f).Encode(tf); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Chmod(tmp, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// rememberToken records the edit token of a newly created run.
func rememberToken(id, token, name, server string) error {
	tf, err := loadTokenFile()
	if err != nil {
		return err
	}
	tf.Runs[id] = SavedToken{Token: token, Name: name, Server: server, SavedAt: time.Now().UTC()}
	return saveTokenFile(tf)
}

// resolveToken returns the --token flag if given, else the remembered token
// for id.
func resolveToken(cmd *cobra.Command, id string) (string, error) {
	if cmd.Flags().Changed("token") {
		return cmd.Flags().GetString("token")
	}
	tf, err := loadTokenFile()
	if err != nil {
		return "", err
	}
	saved, ok := tf.Runs[id]
	if !ok {
		return "", fmt.Errorf("no saved edit token for run %s (pass --token)", id)
	}
	return saved.Token, nil
}

var tokensCmd = &cobra.Command{
	Use:               "tokens",
	Short:             "List saved edit tokens",
	GroupID:           "runs",
	PersistentPreRunE: localCommand,
	RunE: func(cmd *cobra.Command, args []string) error {
		tf, err := loadTokenFile()
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(tf.Runs)
			return nil
		}
		ids := make([]string, 0, len(tf.Runs))
		for id := range tf.Runs {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tTOKEN\tSAVED")
		now := time.Now()
		for _, id := range ids {
			t := tf.Runs[id]
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", id, t.Name, t.Token, relTime(t.SavedAt, now))
		}
		w.Flush()
		return nil
	},
}

var tokensForgetCmd = &cobra.Command{
	Use:               "forget <id>",
	Short:             "Remove a saved edit token",
	Args:              cobra.ExactArgs(1),
	PersistentPreRunE: localCommand,
	RunE: func(cmd *cobra.Command, args []string) error {
		tf, err := loadTokenFile()
		if err != nil {
			return err
		}
		if _, ok := tf.Runs[args[0]]; !ok {
			return fmt.Errorf("no saved edit token for run %s", args[0])
		}
		delete(tf.Runs, args[0])
		return saveTokenFile(tf)
	},
}

func init() {
	tokensCmd.AddCommand(tokensForgetCmd)
}
