package sync

import (
	"io"
	"log"
	"path/filepath"
	"testing"

	"github.com/outreachcrm/crmsync/internal/store"
)

// crmDDL mirrors the declared registry for sqlite-backed tests.
const crmDDL = `
CREATE TABLE offices (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	code TEXT,
	timezone TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE contacts (
	id INTEGER PRIMARY KEY,
	office_id INTEGER REFERENCES offices(id),
	pipeline_stage TEXT NOT NULL,
	priority TEXT NOT NULL,
	status TEXT,
	email TEXT,
	phone TEXT,
	street_address TEXT,
	city TEXT,
	state TEXT,
	zip_code TEXT,
	country TEXT,
	notes TEXT,
	tags TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE people (
	id INTEGER PRIMARY KEY REFERENCES contacts(id),
	first_name TEXT NOT NULL,
	last_name TEXT NOT NULL,
	title TEXT,
	birthday TEXT,
	marital_status TEXT,
	spouse_name TEXT,
	home_country TEXT,
	languages TEXT,
	skills TEXT,
	interests TEXT,
	church_id INTEGER,
	user_id TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE churches (
	id INTEGER PRIMARY KEY REFERENCES contacts(id),
	church_name TEXT NOT NULL,
	denomination TEXT,
	website TEXT,
	congregation_size INTEGER,
	year_founded INTEGER,
	pastor_name TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
`

// openTestStore creates a temporary sqlite store with the CRM schema.
func openTestStore(t *testing.T) *store.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "crm.db")
	db, err := store.Open("file:" + dbPath)
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Conn().Exec(crmDDL); err != nil {
		t.Fatalf("failed to create CRM schema: %v", err)
	}
	return db
}

// quietLogger swallows output so warnings don't clutter test runs.
func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func mustExec(t *testing.T, db *store.DB, query string, args ...any) {
	t.Helper()
	if _, err := db.Conn().Exec(query, args...); err != nil {
		t.Fatalf("exec failed: %v\n%s", err, query)
	}
}

// seedContact inserts a contact row with sane required fields.
func seedContact(t *testing.T, db *store.DB, id int, email string) {
	t.Helper()
	mustExec(t, db, `INSERT INTO contacts (id, pipeline_stage, priority, email, tags, created_at, updated_at)
		VALUES (?, 'New', 'Medium', ?, '[]', '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z')`, id, email)
}

// seedPerson inserts a contact plus its person row.
func seedPerson(t *testing.T, db *store.DB, id int, email, first, last string) {
	t.Helper()
	seedContact(t, db, id, email)
	mustExec(t, db, `INSERT INTO people (id, first_name, last_name, created_at, updated_at)
		VALUES (?, ?, ?, '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z')`, id, first, last)
}

// seedChurch inserts a contact plus its church row.
func seedChurch(t *testing.T, db *store.DB, id int, email, name string) {
	t.Helper()
	seedContact(t, db, id, email)
	mustExec(t, db, `INSERT INTO churches (id, church_name, created_at, updated_at)
		VALUES (?, ?, '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z')`, id, name)
}

// fetchOne reads a single row's column from db, failing the test on error.
func fetchOne(t *testing.T, db *store.DB, query string, args ...any) any {
	t.Helper()
	var out any
	if err := db.Conn().QueryRow(query, args...).Scan(&out); err != nil {
		t.Fatalf("query failed: %v\n%s", err, query)
	}
	if b, ok := out.([]byte); ok {
		return string(b)
	}
	return out
}
