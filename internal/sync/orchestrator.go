package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/outreachcrm/crmsync/internal/remote"
	"github.com/outreachcrm/crmsync/internal/schema"
	"github.com/outreachcrm/crmsync/internal/store"
)

// Config wires an Orchestrator.
type Config struct {
	// Local is the local store. Required.
	Local *store.DB

	// Remote is the remote store over SQL. Required for to_remote; optional
	// for from_remote when REST is set.
	Remote *store.DB

	// REST, when set, is preferred over Remote for reading remote records.
	REST *remote.Client

	// Registry is the schema contract. Nil means schema.Default().
	Registry *schema.Registry

	// Logger for the run. Nil means stderr.
	Logger *log.Logger

	// CallTimeout bounds each store call so a hung connection cannot stall
	// the batch forever. Zero disables the deadline.
	CallTimeout time.Duration
}

// Options configures one run.
type Options struct {
	Direction Direction
	Model     string
	Strategy  Strategy
	Limit     int
	DryRun    bool
	Verbose   bool
}

// ModelStats accumulates the per-model, per-direction counters.
type ModelStats struct {
	Model     string
	Direction Direction
	Success   int
	Conflict  int
	Error     int
}

// Report is the result of one run. It exists only for the summary; nothing
// is persisted between invocations.
type Report struct {
	RunID   string
	DryRun  bool
	Started time.Time
	Elapsed time.Duration
	Stats   []ModelStats
}

// Orchestrator runs the reconciliation over configured models and
// directions, sequentially, one record at a time.
type Orchestrator struct {
	cfg    Config
	logger *log.Logger
	runID  string
}

// New validates the wiring and creates an Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Local == nil {
		return nil, fmt.Errorf("local store is required")
	}
	if cfg.Remote == nil && cfg.REST == nil {
		return nil, fmt.Errorf("a remote store (DSN or REST endpoint) is required")
	}
	if cfg.Registry == nil {
		cfg.Registry = schema.Default()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[crmsync] ", log.LstdFlags)
	}
	return &Orchestrator{
		cfg:    cfg,
		logger: logger,
		runID:  uuid.NewString(),
	}, nil
}

// RunID identifies this orchestrator's run in log output.
func (o *Orchestrator) RunID() string {
	return o.runID
}

// Run executes the sync. The returned error is non-nil only for
// configuration problems (unknown model or direction, a direction the wiring
// cannot serve); per-record failures end up in the report's error counters.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Report, error) {
	models, err := ModelsFor(o.cfg.Registry, opts.Model)
	if err != nil {
		return nil, err
	}
	directions := opts.Direction.Each()
	for _, d := range directions {
		if d != DirectionToRemote && d != DirectionFromRemote {
			return nil, fmt.Errorf("unknown direction %q", d)
		}
		if d == DirectionToRemote && o.cfg.Remote == nil {
			return nil, fmt.Errorf("to_remote requires a remote DSN; the REST interface is read-only")
		}
	}

	report := &Report{
		RunID:   o.runID,
		DryRun:  opts.DryRun,
		Started: time.Now(),
	}
	o.logger.Printf("run %s: direction=%s model=%s strategy=%s dry_run=%v",
		o.runID, opts.Direction, opts.Model, opts.Strategy, opts.DryRun)

	for _, dir := range directions {
		for _, m := range models {
			stats := o.syncModel(ctx, dir, m, opts)
			report.Stats = append(report.Stats, stats)
		}
	}

	report.Elapsed = time.Since(report.Started)
	return report, nil
}

// syncModel reconciles one model in one direction. All failures inside are
// non-fatal: they surface as warnings and counters, never as an error.
func (o *Orchestrator) syncModel(ctx context.Context, dir Direction, m Model, opts Options) ModelStats {
	stats := ModelStats{Model: m.Name, Direction: dir}

	var (
		source Source
		dest   *store.DB
	)
	switch dir {
	case DirectionToRemote:
		source = NewStoreSource(o.cfg.Local)
		dest = o.cfg.Remote
	case DirectionFromRemote:
		dest = o.cfg.Local
		if o.cfg.REST != nil {
			source = NewRESTSource(o.cfg.REST)
		} else {
			source = NewStoreSource(o.cfg.Remote)
		}
	}

	rec := NewReconciler(dest, o.cfg.Registry, ReconcilerOptions{
		Overwrite: opts.Strategy.Overwrites(dir),
		DryRun:    opts.DryRun,
		Verbose:   opts.Verbose,
		Logger:    o.logger,
	})

	if err := o.withDeadline(ctx, func(cctx context.Context) error {
		return rec.Prepare(cctx, m)
	}); err != nil {
		if errors.Is(err, store.ErrNoTable) {
			o.logger.Printf("WARNING: run %s: skipping %s %s: %v", o.runID, m.Name, dir, err)
			return stats
		}
		o.logger.Printf("WARNING: run %s: cannot prepare %s %s: %v", o.runID, m.Name, dir, err)
		return stats
	}

	var records []map[string]any
	if err := o.withDeadline(ctx, func(cctx context.Context) error {
		var err error
		records, err = source.Records(cctx, m, opts.Limit)
		return err
	}); err != nil {
		o.logger.Printf("WARNING: run %s: failed to read %s records for %s: %v", o.runID, m.Name, dir, err)
		return stats
	}

	for _, r := range records {
		var outcome Outcome
		err := o.withDeadline(ctx, func(cctx context.Context) error {
			var err error
			outcome, err = rec.Reconcile(cctx, m, r)
			return err
		})
		if err != nil {
			stats.Error++
			o.logger.Printf("WARNING: run %s: %s %s: record %v failed: %v",
				o.runID, m.Name, dir, r[m.Base.PrimaryKey], err)
			continue
		}
		if outcome == OutcomeSkipped {
			stats.Conflict++
		} else {
			stats.Success++
		}
	}

	o.logger.Printf("run %s: %s %s: success=%d conflict=%d error=%d",
		o.runID, m.Name, dir, stats.Success, stats.Conflict, stats.Error)
	return stats
}

// withDeadline runs fn under the configured per-call timeout.
func (o *Orchestrator) withDeadline(ctx context.Context, fn func(context.Context) error) error {
	if o.cfg.CallTimeout <= 0 {
		return fn(ctx)
	}
	cctx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
	defer cancel()
	return fn(cctx)
}
