package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/outreachcrm/crmsync/internal/config"
	"github.com/outreachcrm/crmsync/internal/logging"
	"github.com/outreachcrm/crmsync/internal/schema"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "crmsync",
	Short: "Reconcile CRM contact data between the local and remote stores",
	Long: `crmsync synchronizes People, Churches and their shared Contact records
between the local database and the remote (Supabase-hosted) database.

The tool is a stateless batch: it reads candidate records from one side,
decides per record whether to create, update or skip on the other side, and
prints a summary of {success, conflict, error} counts per model. Individual
record failures never abort a run.

Do not run two syncs against the same tables at once; there is no locking.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: ./crmsync.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log a line per record")
}

// setup loads configuration, the schema registry and the logger.
// Failures here are fatal configuration errors.
func setup() (*config.Config, *schema.Registry, *log.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}

	reg := schema.Default()
	if cfg.SchemaOverlay != "" {
		reg, err = schema.LoadOverlay(cfg.SchemaOverlay)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	return cfg, reg, logging.New(cfg.LogFile), nil
}

// fatal prints a setup error and exits non-zero. Per-record errors never
// come through here; they are reported in the summary instead.
func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
