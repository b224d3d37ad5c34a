package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/outreachcrm/crmsync/internal/schema"
	"github.com/outreachcrm/crmsync/internal/store"
)

var testClock = func() time.Time {
	return time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
}

const testStamp = "2026-08-27T12:00:00Z"

func newTestReconciler(t *testing.T, dest *store.DB, overwrite, dryRun bool) *Reconciler {
	t.Helper()
	return NewReconciler(dest, schema.Default(), ReconcilerOptions{
		Overwrite: overwrite,
		DryRun:    dryRun,
		Logger:    quietLogger(),
		Now:       testClock,
	})
}

func contactModel(t *testing.T) Model {
	t.Helper()
	ms, err := ModelsFor(schema.Default(), "contact")
	if err != nil {
		t.Fatalf("ModelsFor failed: %v", err)
	}
	return ms[0]
}

func personModel(t *testing.T) Model {
	t.Helper()
	ms, err := ModelsFor(schema.Default(), "person")
	if err != nil {
		t.Fatalf("ModelsFor failed: %v", err)
	}
	return ms[0]
}

func TestReconcileCreatesMissingRow(t *testing.T) {
	dest := openTestStore(t)
	ctx := context.Background()
	m := contactModel(t)

	r := newTestReconciler(t, dest, false, false)
	if err := r.Prepare(ctx, m); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	outcome, err := r.Reconcile(ctx, m, map[string]any{"id": 42, "email": "a@b.com", "tags": ""})
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if outcome != OutcomeCreated {
		t.Fatalf("outcome = %s, want created", outcome)
	}

	if got := fetchOne(t, dest, "SELECT email FROM contacts WHERE id = 42"); got != "a@b.com" {
		t.Errorf("email = %v, want a@b.com", got)
	}
	if got := fetchOne(t, dest, "SELECT tags FROM contacts WHERE id = 42"); got != "[]" {
		t.Errorf("tags = %v, want []", got)
	}
	if got := fetchOne(t, dest, "SELECT created_at FROM contacts WHERE id = 42"); got != testStamp {
		t.Errorf("created_at = %v, want %s", got, testStamp)
	}
	if got := fetchOne(t, dest, "SELECT updated_at FROM contacts WHERE id = 42"); got != testStamp {
		t.Errorf("updated_at = %v, want %s", got, testStamp)
	}
	// Required columns the source never supplied get their defaults.
	if got := fetchOne(t, dest, "SELECT pipeline_stage FROM contacts WHERE id = 42"); got != "New" {
		t.Errorf("pipeline_stage = %v, want New", got)
	}
}

func TestReconcileSkipsExistingRowWithoutOverwrite(t *testing.T) {
	dest := openTestStore(t)
	ctx := context.Background()
	m := contactModel(t)
	seedContact(t, dest, 42, "old@b.com")

	r := newTestReconciler(t, dest, false, false)
	if err := r.Prepare(ctx, m); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	outcome, err := r.Reconcile(ctx, m, map[string]any{"id": 42, "email": "new@b.com"})
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if outcome != OutcomeSkipped {
		t.Fatalf("outcome = %s, want skipped", outcome)
	}
	if got := fetchOne(t, dest, "SELECT email FROM contacts WHERE id = 42"); got != "old@b.com" {
		t.Errorf("email = %v, destination row must be untouched", got)
	}
}

func TestReconcileUpdatesExistingRowWithOverwrite(t *testing.T) {
	dest := openTestStore(t)
	ctx := context.Background()
	m := contactModel(t)
	seedContact(t, dest, 42, "old@b.com")

	r := newTestReconciler(t, dest, true, false)
	if err := r.Prepare(ctx, m); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	outcome, err := r.Reconcile(ctx, m, map[string]any{"id": 42, "email": "new@b.com"})
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if outcome != OutcomeUpdated {
		t.Fatalf("outcome = %s, want updated", outcome)
	}

	if got := fetchOne(t, dest, "SELECT email FROM contacts WHERE id = 42"); got != "new@b.com" {
		t.Errorf("email = %v, want new@b.com", got)
	}
	if got := fetchOne(t, dest, "SELECT updated_at FROM contacts WHERE id = 42"); got != testStamp {
		t.Errorf("updated_at = %v, want refreshed to %s", got, testStamp)
	}
	// Creation time belongs to the destination and survives updates.
	if got := fetchOne(t, dest, "SELECT created_at FROM contacts WHERE id = 42"); got != "2026-01-01T00:00:00Z" {
		t.Errorf("created_at = %v, must not change on update", got)
	}
}

func TestReconcileNullsDanglingForeignKey(t *testing.T) {
	dest := openTestStore(t)
	ctx := context.Background()
	m := contactModel(t)

	r := newTestReconciler(t, dest, false, false)
	if err := r.Prepare(ctx, m); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	// Office 999 does not exist at the destination: the reference is nulled
	// and the write still succeeds.
	outcome, err := r.Reconcile(ctx, m, map[string]any{"id": 1, "email": "a@b.com", "office_id": 999})
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if outcome != OutcomeCreated {
		t.Fatalf("outcome = %s, want created", outcome)
	}
	if got := fetchOne(t, dest, "SELECT office_id IS NULL FROM contacts WHERE id = 1"); got != int64(1) {
		t.Error("office_id should be NULL")
	}
}

func TestReconcileWritesBaseBeforeVariant(t *testing.T) {
	dest := openTestStore(t)
	ctx := context.Background()
	m := personModel(t)

	r := newTestReconciler(t, dest, false, false)
	if err := r.Prepare(ctx, m); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	outcome, err := r.Reconcile(ctx, m, map[string]any{
		"id":         7,
		"email":      "ada@b.com",
		"first_name": "Ada",
		"last_name":  "Lovelace",
	})
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if outcome != OutcomeCreated {
		t.Fatalf("outcome = %s, want created", outcome)
	}

	if got := fetchOne(t, dest, "SELECT COUNT(*) FROM contacts WHERE id = 7"); got != int64(1) {
		t.Error("base contact row missing")
	}
	if got := fetchOne(t, dest, "SELECT first_name FROM people WHERE id = 7"); got != "Ada" {
		t.Errorf("first_name = %v, want Ada", got)
	}
}

func TestReconcileFillsVariantGap(t *testing.T) {
	dest := openTestStore(t)
	ctx := context.Background()
	m := personModel(t)

	// Base row exists, variant row doesn't. The reconciler must insert the
	// variant while updating the base.
	seedContact(t, dest, 9, "gap@b.com")

	r := newTestReconciler(t, dest, true, false)
	if err := r.Prepare(ctx, m); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	outcome, err := r.Reconcile(ctx, m, map[string]any{"id": 9, "first_name": "Grace", "last_name": "Hopper"})
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if outcome != OutcomeUpdated {
		t.Fatalf("outcome = %s, want updated", outcome)
	}
	if got := fetchOne(t, dest, "SELECT first_name FROM people WHERE id = 9"); got != "Grace" {
		t.Errorf("first_name = %v, want Grace", got)
	}
}

func TestReconcileDryRunWritesNothing(t *testing.T) {
	dest := openTestStore(t)
	ctx := context.Background()
	m := contactModel(t)

	r := newTestReconciler(t, dest, false, true)
	if err := r.Prepare(ctx, m); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	outcome, err := r.Reconcile(ctx, m, map[string]any{"id": 1, "email": "a@b.com"})
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if outcome != OutcomeCreated {
		t.Fatalf("outcome = %s, want created (classification only)", outcome)
	}
	if got := fetchOne(t, dest, "SELECT COUNT(*) FROM contacts"); got != int64(0) {
		t.Errorf("dry run wrote %v rows", got)
	}
}

func TestReconcileRollsBackOnVariantFailure(t *testing.T) {
	dest := openTestStore(t)
	ctx := context.Background()
	m := personModel(t)

	// Force the variant write to fail after the base write succeeded.
	mustExec(t, dest, `DROP TABLE people`)
	mustExec(t, dest, `CREATE TABLE people (
		id INTEGER PRIMARY KEY REFERENCES contacts(id),
		first_name TEXT NOT NULL CHECK (first_name <> 'Boom'),
		last_name TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`)

	r := newTestReconciler(t, dest, false, false)
	if err := r.Prepare(ctx, m); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	_, err := r.Reconcile(ctx, m, map[string]any{"id": 3, "first_name": "Boom", "last_name": "X"})
	if err == nil {
		t.Fatal("expected write failure")
	}
	// The base insert must have been rolled back with it.
	if got := fetchOne(t, dest, "SELECT COUNT(*) FROM contacts WHERE id = 3"); got != int64(0) {
		t.Error("base row leaked from a failed record write")
	}
}

func TestPrepareReportsMissingTable(t *testing.T) {
	dest := openTestStore(t)
	mustExec(t, dest, `DROP TABLE churches`)

	ms, err := ModelsFor(schema.Default(), "church")
	if err != nil {
		t.Fatalf("ModelsFor failed: %v", err)
	}

	r := newTestReconciler(t, dest, false, false)
	err = r.Prepare(context.Background(), ms[0])
	if !errors.Is(err, store.ErrNoTable) {
		t.Errorf("got %v, want ErrNoTable", err)
	}
}

func TestReconcileRejectsRecordWithoutID(t *testing.T) {
	dest := openTestStore(t)
	m := contactModel(t)

	r := newTestReconciler(t, dest, false, false)
	if err := r.Prepare(context.Background(), m); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	if _, err := r.Reconcile(context.Background(), m, map[string]any{"email": "a@b.com"}); err == nil {
		t.Error("expected error for record without primary key")
	}
}
