package sync

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/outreachcrm/crmsync/internal/schema"
	"github.com/outreachcrm/crmsync/internal/store"
)

// Outcome classifies what happened (or, in dry-run mode, would happen) to
// one record.
type Outcome int

const (
	// OutcomeCreated: the destination had no row; one was inserted.
	OutcomeCreated Outcome = iota
	// OutcomeUpdated: the destination row was overwritten.
	OutcomeUpdated
	// OutcomeSkipped: the destination row exists and the conflict policy
	// left it alone. Counted as a conflict.
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeUpdated:
		return "updated"
	case OutcomeSkipped:
		return "skipped"
	}
	return "unknown"
}

// ReconcilerOptions configures a Reconciler for one model/direction batch.
type ReconcilerOptions struct {
	// Overwrite applies the resolved conflict policy: when false, existing
	// destination rows are skipped and counted as conflicts.
	Overwrite bool

	// DryRun classifies records without writing.
	DryRun bool

	// Verbose logs a line per record.
	Verbose bool

	// Logger for warnings and per-record lines. Nil means stderr.
	Logger *log.Logger

	// Now overrides the clock for created_at/updated_at stamps. Nil means
	// time.Now.
	Now func() time.Time
}

// Reconciler applies the per-record decide-and-write procedure against one
// destination store.
type Reconciler struct {
	dest      *store.DB
	reg       *schema.Registry
	mapper    *Mapper
	validator *Validator
	opts      ReconcilerOptions
	logger    *log.Logger
	now       func() time.Time

	// live columns per table, introspected once per batch by Prepare.
	live map[string]map[string]store.Column
}

// NewReconciler creates a Reconciler. Call Prepare before Reconcile.
func NewReconciler(dest *store.DB, reg *schema.Registry, opts ReconcilerOptions) *Reconciler {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Reconciler{
		dest:      dest,
		reg:       reg,
		mapper:    NewMapper(logger),
		validator: NewValidator(dest, reg, logger),
		opts:      opts,
		logger:    logger,
		now:       now,
		live:      make(map[string]map[string]store.Column),
	}
}

// Prepare introspects the destination tables of the model once for the whole
// batch. Returns an error wrapping store.ErrNoTable when a table is absent,
// which callers treat as skip-this-model, not as a failed run.
func (r *Reconciler) Prepare(ctx context.Context, m Model) error {
	for _, def := range m.Tables() {
		cols, err := r.dest.Columns(ctx, def.Name)
		if err != nil {
			return fmt.Errorf("failed to prepare %s: %w", m.Name, err)
		}
		r.live[def.Name] = cols
	}
	return nil
}

// Reconcile processes one source record.
//
// State machine: the destination either has the base row (Exists) or not
// (NotExists). Exists resolves to Updated or Skipped depending on the
// conflict policy; NotExists resolves to Created. Dry-run short-circuits
// right after classification. Any error leaves the destination untouched
// (the write is transactional across base and variant tables) and is
// reported to the caller, who counts it and moves on.
func (r *Reconciler) Reconcile(ctx context.Context, m Model, rec map[string]any) (Outcome, error) {
	pk := m.Base.PrimaryKey
	id, ok := rec[pk]
	if !ok || id == nil {
		return 0, fmt.Errorf("record has no %s value", pk)
	}

	exists, err := r.dest.RowExists(ctx, nil, m.Base.Name, pk, id)
	if err != nil {
		return 0, err
	}

	if exists && !r.opts.Overwrite {
		if r.opts.Verbose {
			r.logger.Printf("%s %s=%v: conflict, destination row kept", m.Name, pk, id)
		}
		return OutcomeSkipped, nil
	}

	outcome := OutcomeCreated
	if exists {
		outcome = OutcomeUpdated
	}

	if r.opts.DryRun {
		r.logger.Printf("[dry-run] %s %s=%v: would be %s", m.Name, pk, id, outcome)
		return outcome, nil
	}

	if err := r.write(ctx, m, rec, id); err != nil {
		return 0, err
	}

	if r.opts.Verbose {
		r.logger.Printf("%s %s=%v: %s", m.Name, pk, id, outcome)
	}
	return outcome, nil
}

// write applies the record to every table of the model inside one
// transaction, base table first so the variant row always has its base row.
// Mapping and reference validation happen before the transaction opens;
// only the existence checks and the writes themselves run inside it.
func (r *Reconciler) write(ctx context.Context, m Model, rec map[string]any, id any) error {
	type tableWrite struct {
		def    *schema.TableDefinition
		fields map[string]any
	}
	writes := make([]tableWrite, 0, 2)
	for _, def := range m.Tables() {
		fields := r.mapper.MapFields(def, r.live[def.Name], rec)
		r.validator.ValidateRefs(ctx, def, fields)
		fields[def.PrimaryKey] = id
		writes = append(writes, tableWrite{def: def, fields: fields})
	}

	tx, err := r.dest.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stamp := r.now().UTC().Format(time.RFC3339)

	for _, wr := range writes {
		def, fields := wr.def, wr.fields
		live := r.live[def.Name]

		rowExists, err := r.dest.RowExists(ctx, tx, def.Name, def.PrimaryKey, id)
		if err != nil {
			return err
		}

		if rowExists {
			// The destination owns its creation time.
			delete(fields, "created_at")
			setIfLive(fields, live, "updated_at", stamp)
			if err := r.dest.UpdateRow(ctx, tx, def.Name, def.PrimaryKey, id, fields); err != nil {
				return err
			}
		} else {
			setIfLive(fields, live, "created_at", stamp)
			setIfLive(fields, live, "updated_at", stamp)
			if err := r.dest.InsertRow(ctx, tx, def.Name, fields); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s %v: %w", m.Name, id, err)
	}
	return nil
}

// setIfLive sets fields[col] only when the destination actually has col.
func setIfLive(fields map[string]any, live map[string]store.Column, col, val string) {
	if live != nil {
		if _, ok := live[col]; !ok {
			return
		}
	}
	fields[col] = val
}
