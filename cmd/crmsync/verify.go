package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/outreachcrm/crmsync/internal/schema"
	"github.com/outreachcrm/crmsync/internal/store"
	"github.com/outreachcrm/crmsync/internal/ui"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Report drift between the declared schema and the live stores",
	Long: `Compare the declared schema contract against each configured store.

Drift is tolerated at sync time (missing columns are dropped from writes),
but it usually means a migration was applied on one side only. This command
makes that visible before it silently narrows what syncs.`,
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
		verifyStore(reg, "local", local)

		if cfg.RemoteDSN != "" {
			remoteDB, err := store.Open(cfg.RemoteDSN)
			if err != nil {
				fatal(fmt.Errorf("failed to open remote store: %w", err))
			}
			defer remoteDB.Close()
			verifyStore(reg, "remote", remoteDB)
		}
	},
}

func verifyStore(reg *schema.Registry, name string, db *store.DB) {
	ctx := context.Background()
	fmt.Printf("\n%s\n", ui.RenderAccent(name+" store"))

	clean := true
	for _, table := range reg.TableNames() {
		def, _ := reg.Table(table)

		live, err := db.Columns(ctx, table)
		if errors.Is(err, store.ErrNoTable) {
			fmt.Printf("  %s %s: table missing\n", ui.RenderFail("✗"), table)
			clean = false
			continue
		}
		if err != nil {
			fmt.Printf("  %s %s: %v\n", ui.RenderFail("✗"), table, err)
			clean = false
			continue
		}

		for _, col := range def.ColumnNames() {
			if _, ok := live[col]; !ok {
				fmt.Printf("  %s %s.%s: declared but missing, will be dropped from writes\n",
					ui.RenderWarn("⚠"), table, col)
				clean = false
			}
		}
		for col := range live {
			if _, ok := def.Column(col); !ok {
				fmt.Printf("  %s %s.%s: live column not in the contract, never synced\n",
					ui.RenderMuted("·"), table, col)
			}
		}
	}
	if clean {
		fmt.Printf("  %s matches the declared schema\n", ui.RenderPass("✓"))
	}
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
