package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/outreachcrm/crmsync/internal/remote"
	"github.com/outreachcrm/crmsync/internal/store"
	"github.com/outreachcrm/crmsync/internal/sync"
	"github.com/outreachcrm/crmsync/internal/ui"
)

var (
	syncDirection string
	syncModel     string
	syncStrategy  string
	syncLimit     int
	syncDryRun    bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run the reconciliation",
	Long: `Reconcile records between the local and remote stores.

Direction chooses which way records flow; "both" pushes then pulls. The
conflict strategy names the side that wins when a record exists on both
stores: with "skip", existing destination rows are always left alone and
counted as conflicts.

Dry-run classifies every record (would-create / would-update / would-skip)
and reports the same counts a real run would, without writing anything.`,
	Run: func(cmd *cobra.Command, args []string) {
		direction, err := sync.ParseDirection(syncDirection)
		if err != nil {
			fatal(err)
		}
		strategy, err := sync.ParseStrategy(syncStrategy)
		if err != nil {
			fatal(err)
		}

		cfg, reg, logger, err := setup()
		if err != nil {
			fatal(err)
		}

		local, err := store.Open(cfg.LocalDSN)
		if err != nil {
			fatal(fmt.Errorf("failed to open local store: %w", err))
		}
		defer local.Close()

		orcCfg := sync.Config{
			Local:       local,
			Registry:    reg,
			Logger:      logger,
			CallTimeout: cfg.CallTimeout,
		}
		if cfg.RemoteDSN != "" {
			remoteDB, err := store.Open(cfg.RemoteDSN)
			if err != nil {
				fatal(fmt.Errorf("failed to open remote store: %w", err))
			}
			defer remoteDB.Close()
			orcCfg.Remote = remoteDB
		}
		if cfg.RemoteRESTURL != "" {
			orcCfg.REST = remote.New(cfg.RemoteRESTURL, cfg.RemoteAPIKey, cfg.CallTimeout, cfg.PageSize)
		}

		orc, err := sync.New(orcCfg)
		if err != nil {
			fatal(err)
		}

		report, err := orc.Run(context.Background(), sync.Options{
			Direction: direction,
			Model:     syncModel,
			Strategy:  strategy,
			Limit:     syncLimit,
			DryRun:    syncDryRun,
			Verbose:   verbose,
		})
		if err != nil {
			fatal(err)
		}

		printReport(report)
	},
}

func printReport(report *sync.Report) {
	title := "Sync Summary"
	if report.DryRun {
		title += " (dry run)"
	}
	fmt.Printf("\n%s %s\n", ui.RenderAccent(title), ui.RenderMuted("run "+report.RunID))

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tDIRECTION\tSUCCESS\tCONFLICT\tERROR")
	var totalErr int
	for _, s := range report.Stats {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\n", s.Model, s.Direction, s.Success, s.Conflict, s.Error)
		totalErr += s.Error
	}
	w.Flush()

	mark := ui.RenderPass("✓")
	if totalErr > 0 {
		mark = ui.RenderWarn("⚠")
	}
	fmt.Printf("%s Completed in %v\n\n", mark, report.Elapsed.Round(time.Millisecond))
}

func init() {
	syncCmd.Flags().StringVar(&syncDirection, "direction", string(sync.DirectionBoth), "to_remote, from_remote or both")
	syncCmd.Flags().StringVar(&syncModel, "model", "all", "person, church, contact or all")
	syncCmd.Flags().StringVar(&syncStrategy, "conflict-strategy", string(sync.StrategySkip), "local, remote or skip")
	syncCmd.Flags().IntVar(&syncLimit, "limit", 0, "max records per model (0 = all)")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "classify records without writing")
	rootCmd.AddCommand(syncCmd)
}
