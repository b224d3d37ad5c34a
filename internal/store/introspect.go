package store

import (
	"context"
	"errors"
)

// ErrNoTable reports that an introspected table does not exist at the store.
// Callers treat this as non-fatal and skip the affected model.
var ErrNoTable = errors.New("table does not exist")

// Column describes one live column of a table.
type Column struct {
	Name     string
	Nullable bool
}

// Columns returns the live column set for table, keyed by column name.
//
// The declared schema registry is the authority on what should sync; this
// lookup exists so that columns missing at the destination can be dropped
// instead of breaking the write. Returns ErrNoTable when the table is absent.
func (db *DB) Columns(ctx context.Context, table string) (map[string]Column, error) {
	return db.dialect.columns(ctx, db.conn, table)
}
