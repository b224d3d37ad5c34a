// Package schema defines the declared table contract shared by the local and
// remote CRM stores.
//
// Both stores are expected to carry the tables defined here. The registry is
// the authority on which columns sync, which columns are foreign keys, which
// hold JSON-encoded lists, and which defaults apply to required columns. The
// live database is still introspected before writing, but only to tolerate
// drift: columns the destination lacks are dropped, never guessed at.
package schema

import (
	"fmt"
	"sort"
)

// ColumnDefinition describes a single column of a synced table.
type ColumnDefinition struct {
	// Name is the column name, identical on both stores.
	Name string `yaml:"name"`

	// Type is the logical type (text, integer, timestamp, json). Informational
	// only; the stores own their physical types.
	Type string `yaml:"type"`

	// Nullable reports whether the column accepts NULL.
	Nullable bool `yaml:"nullable"`

	// Default is substituted when a required column has no value in the
	// source record. Empty means no default.
	Default string `yaml:"default,omitempty"`

	// JSON marks columns holding JSON-encoded lists (tags, skills, ...).
	// Values are normalized to valid JSON text before writing.
	JSON bool `yaml:"json,omitempty"`

	// ReferenceTo names the table this column references, making the
	// foreign-key graph explicit instead of inferred from column naming.
	ReferenceTo string `yaml:"reference_to,omitempty"`

	// SkipSync excludes the column from synchronization entirely.
	// Used for people.user_id, whose type differs between the two stores.
	SkipSync bool `yaml:"skip_sync,omitempty"`
}

// TableDefinition describes one synced table.
type TableDefinition struct {
	// Name is the table name, identical on both stores.
	Name string `yaml:"name"`

	// PrimaryKey is the primary key column. Record identity is shared across
	// stores, so the key is always written, never generated.
	PrimaryKey string `yaml:"primary_key"`

	// BaseTable links a variant table (people, churches) to its base table
	// (contacts). A variant row shares its primary key with the base row and
	// must never exist without it.
	BaseTable string `yaml:"base_table,omitempty"`

	// Columns lists every declared column, primary key included.
	Columns []ColumnDefinition `yaml:"columns"`
}

// Column returns the definition for the named column.
func (t *TableDefinition) Column(name string) (ColumnDefinition, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnDefinition{}, false
}

// ColumnNames returns the declared column names in definition order,
// excluding skip-listed columns.
func (t *TableDefinition) ColumnNames() []string {
	names := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		if c.SkipSync {
			continue
		}
		names = append(names, c.Name)
	}
	return names
}

// ReferenceColumns returns the columns participating in the declared
// foreign-key graph.
func (t *TableDefinition) ReferenceColumns() []ColumnDefinition {
	var refs []ColumnDefinition
	for _, c := range t.Columns {
		if c.ReferenceTo != "" && !c.SkipSync {
			refs = append(refs, c)
		}
	}
	return refs
}

// Registry holds the table definitions for one deployment.
type Registry struct {
	tables map[string]*TableDefinition
}

// NewRegistry builds a registry from the given definitions.
// Definitions must be internally consistent; a variant's BaseTable and every
// ReferenceTo must resolve to a table in the same registry.
func NewRegistry(defs ...*TableDefinition) (*Registry, error) {
	r := &Registry{tables: make(map[string]*TableDefinition, len(defs))}
	for _, def := range defs {
		if def.Name == "" {
			return nil, fmt.Errorf("table definition missing name")
		}
		if def.PrimaryKey == "" {
			return nil, fmt.Errorf("table %s: missing primary key", def.Name)
		}
		if _, ok := def.Column(def.PrimaryKey); !ok {
			return nil, fmt.Errorf("table %s: primary key %s is not a declared column", def.Name, def.PrimaryKey)
		}
		if _, dup := r.tables[def.Name]; dup {
			return nil, fmt.Errorf("table %s declared twice", def.Name)
		}
		r.tables[def.Name] = def
	}
	for _, def := range r.tables {
		if def.BaseTable != "" {
			if _, ok := r.tables[def.BaseTable]; !ok {
				return nil, fmt.Errorf("table %s: base table %s not declared", def.Name, def.BaseTable)
			}
		}
		for _, c := range def.Columns {
			if c.ReferenceTo == "" {
				continue
			}
			if _, ok := r.tables[c.ReferenceTo]; !ok {
				return nil, fmt.Errorf("table %s: column %s references undeclared table %s", def.Name, c.Name, c.ReferenceTo)
			}
		}
	}
	return r, nil
}

// Table returns the definition for the named table.
func (r *Registry) Table(name string) (*TableDefinition, bool) {
	def, ok := r.tables[name]
	return def, ok
}

// TableNames returns all declared table names, sorted.
func (r *Registry) TableNames() []string {
	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
