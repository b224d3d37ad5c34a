package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/outreachcrm/crmsync/internal/store"
	"github.com/outreachcrm/crmsync/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show row counts per table on both stores",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, reg, _, err := setup()
		if err != nil {
			fatal(err)
		}

		local, err := store.Open(cfg.LocalDSN)
		if err != nil {
			fatal(fmt.Errorf("failed to open local store: %w", err))
		}
		defer local.Close()

		var remoteDB *store.DB
		if cfg.RemoteDSN != "" {
			remoteDB, err = store.Open(cfg.RemoteDSN)
			if err != nil {
				fatal(fmt.Errorf("failed to open remote store: %w", err))
			}
			defer remoteDB.Close()
		}

		ctx := context.Background()
		fmt.Printf("\n%s\n", ui.RenderAccent("Store Status"))

		w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TABLE\tLOCAL\tREMOTE")
		for _, table := range reg.TableNames() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", table, countCell(ctx, local, table), countCell(ctx, remoteDB, table))
		}
		w.Flush()
		fmt.Println()
	},
}

// countCell renders one row-count cell; missing stores and missing tables
// show up as dashes rather than errors.
func countCell(ctx context.Context, db *store.DB, table string) string {
	if db == nil {
		return "-"
	}
	if _, err := db.Columns(ctx, table); errors.Is(err, store.ErrNoTable) {
		return "missing"
	}
	n, err := db.CountRows(ctx, table)
	if err != nil {
		return "?"
	}
	return strconv.Itoa(n)
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
