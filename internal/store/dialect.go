package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// dialect abstracts the differences between Postgres and SQLite that the
// store layer cares about: placeholder syntax and schema introspection.
type dialect interface {
	name() string
	// placeholder returns the parameter marker for the n-th argument (1-based).
	placeholder(n int) string
	// columns returns the live column set for table, keyed by column name.
	// Returns ErrNoTable if the table does not exist.
	columns(ctx context.Context, conn *sql.DB, table string) (map[string]Column, error)
}

type postgresDialect struct{}

func (postgresDialect) name() string { return "postgres" }

func (postgresDialect) placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (postgresDialect) columns(ctx context.Context, conn *sql.DB, table string) (map[string]Column, error) {
	rows, err := conn.QueryContext(ctx, `
		SELECT column_name, is_nullable
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
	`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to introspect %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]Column)
	for rows.Next() {
		var name, nullable string
		if err := rows.Scan(&name, &nullable); err != nil {
			return nil, fmt.Errorf("failed to scan column of %s: %w", table, err)
		}
		cols[name] = Column{Name: name, Nullable: nullable == "YES"}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns of %s: %w", table, err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoTable, table)
	}
	return cols, nil
}

type sqliteDialect struct{}

func (sqliteDialect) name() string { return "sqlite" }

func (sqliteDialect) placeholder(int) string { return "?" }

func (sqliteDialect) columns(ctx context.Context, conn *sql.DB, table string) (map[string]Column, error) {
	// PRAGMA arguments cannot be bound; quote the identifier instead.
	ident := strings.ReplaceAll(table, `"`, `""`)
	rows, err := conn.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info("%s")`, ident))
	if err != nil {
		return nil, fmt.Errorf("failed to introspect %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]Column)
	for rows.Next() {
		var (
			cid     int
			name    string
			typ     string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column of %s: %w", table, err)
		}
		cols[name] = Column{Name: name, Nullable: notNull == 0}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns of %s: %w", table, err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoTable, table)
	}
	return cols, nil
}
