package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
)

// RowExists reports whether table has a row whose pkCol equals id.
// When tx is non-nil the check runs inside that transaction.
func (db *DB) RowExists(ctx context.Context, tx *sql.Tx, table, pkCol string, id any) (bool, error) {
	query := fmt.Sprintf("SELECT 1 FROM %s WHERE %s = %s", table, pkCol, db.dialect.placeholder(1))

	var one int
	err := db.runner(tx).QueryRowContext(ctx, query, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check %s.%s=%v: %w", table, pkCol, id, err)
	}
	return true, nil
}

// InsertRow inserts one row built from fields. Column order is sorted so the
// generated statement is deterministic.
func (db *DB) InsertRow(ctx context.Context, tx *sql.Tx, table string, fields map[string]any) error {
	if len(fields) == 0 {
		return fmt.Errorf("insert into %s: no fields", table)
	}

	cols := sortedKeys(fields)
	marks := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		marks[i] = db.dialect.placeholder(i + 1)
		args[i] = fields[col]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), strings.Join(marks, ", "))

	if _, err := db.runner(tx).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	return nil
}

// UpdateRow updates the row of table whose pkCol equals id with fields.
// The primary key itself is never part of the SET clause.
func (db *DB) UpdateRow(ctx context.Context, tx *sql.Tx, table, pkCol string, id any, fields map[string]any) error {
	assigns := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields)+1)
	n := 1
	for _, col := range sortedKeys(fields) {
		if col == pkCol {
			continue
		}
		assigns = append(assigns, fmt.Sprintf("%s = %s", col, db.dialect.placeholder(n)))
		args = append(args, fields[col])
		n++
	}
	if len(assigns) == 0 {
		return fmt.Errorf("update %s: no fields", table)
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
		table, strings.Join(assigns, ", "), pkCol, db.dialect.placeholder(n))

	if _, err := db.runner(tx).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update %s %s=%v: %w", table, pkCol, id, err)
	}
	return nil
}

// CountRows returns the number of rows in table.
func (db *DB) CountRows(ctx context.Context, table string) (int, error) {
	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", table)
	if err := db.conn.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return count, nil
}

// SelectRecords reads up to limit rows (0 = all) of the named columns from
// table, ordered by pkCol for stable batches.
func (db *DB) SelectRecords(ctx context.Context, table, pkCol string, cols []string, limit int) ([]map[string]any, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(cols, ", "), table, pkCol)
	var args []any
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %s", db.dialect.placeholder(1))
		args = append(args, limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select from %s: %w", table, err)
	}
	defer rows.Close()

	return scanRecords(rows, cols)
}

// SelectJoined reads base rows joined with their variant rows on the shared
// primary key. Column lists come from the schema registry, so name collisions
// between the two tables are resolved up front: base columns win.
func (db *DB) SelectJoined(ctx context.Context, base, variant, pkCol string, baseCols, variantCols []string, limit int) ([]map[string]any, error) {
	seen := make(map[string]bool, len(baseCols))
	var sel []string
	var names []string
	for _, c := range baseCols {
		sel = append(sel, "b."+c)
		names = append(names, c)
		seen[c] = true
	}
	for _, c := range variantCols {
		if seen[c] {
			continue
		}
		sel = append(sel, "v."+c)
		names = append(names, c)
	}

	query := fmt.Sprintf("SELECT %s FROM %s b JOIN %s v ON v.%s = b.%s ORDER BY b.%s",
		strings.Join(sel, ", "), base, variant, pkCol, pkCol, pkCol)
	var args []any
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %s", db.dialect.placeholder(1))
		args = append(args, limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select %s joined with %s: %w", base, variant, err)
	}
	defer rows.Close()

	return scanRecords(rows, names)
}

// scanRecords scans every row into a map keyed by the given column names.
func scanRecords(rows *sql.Rows, cols []string) ([]map[string]any, error) {
	var records []map[string]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		rec := make(map[string]any, len(cols))
		for i, col := range cols {
			// Drivers hand back []byte for text columns; normalize to string
			// so records compare and serialize cleanly.
			if b, ok := vals[i].([]byte); ok {
				rec[col] = string(b)
			} else {
				rec[col] = vals[i]
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}
	return records, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
