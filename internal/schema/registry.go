package schema

// Built-in definitions for the CRM tables.
//
// contacts is the base table; people and churches are variant tables that
// share the contact primary key. offices scope every contact to one tenant.

func officesTable() *TableDefinition {
	return &TableDefinition{
		Name:       "offices",
		PrimaryKey: "id",
		Columns: []ColumnDefinition{
			{Name: "id", Type: "integer"},
			{Name: "name", Type: "text", Default: ""},
			{Name: "code", Type: "text", Nullable: true},
			{Name: "timezone", Type: "text", Nullable: true},
			{Name: "created_at", Type: "timestamp"},
			{Name: "updated_at", Type: "timestamp"},
		},
	}
}

func contactsTable() *TableDefinition {
	return &TableDefinition{
		Name:       "contacts",
		PrimaryKey: "id",
		Columns: []ColumnDefinition{
			{Name: "id", Type: "integer"},
			{Name: "office_id", Type: "integer", Nullable: true, ReferenceTo: "offices"},
			{Name: "pipeline_stage", Type: "text", Default: "New"},
			{Name: "priority", Type: "text", Default: "Medium"},
			{Name: "status", Type: "text", Nullable: true},
			{Name: "email", Type: "text", Nullable: true},
			{Name: "phone", Type: "text", Nullable: true},
			{Name: "street_address", Type: "text", Nullable: true},
			{Name: "city", Type: "text", Nullable: true},
			{Name: "state", Type: "text", Nullable: true},
			{Name: "zip_code", Type: "text", Nullable: true},
			{Name: "country", Type: "text", Nullable: true},
			{Name: "notes", Type: "text", Nullable: true},
			{Name: "tags", Type: "json", Nullable: true, JSON: true},
			{Name: "created_at", Type: "timestamp"},
			{Name: "updated_at", Type: "timestamp"},
		},
	}
}

func peopleTable() *TableDefinition {
	return &TableDefinition{
		Name:       "people",
		PrimaryKey: "id",
		BaseTable:  "contacts",
		Columns: []ColumnDefinition{
			{Name: "id", Type: "integer"},
			{Name: "first_name", Type: "text", Default: ""},
			{Name: "last_name", Type: "text", Default: ""},
			{Name: "title", Type: "text", Nullable: true},
			{Name: "birthday", Type: "text", Nullable: true},
			{Name: "marital_status", Type: "text", Nullable: true},
			{Name: "spouse_name", Type: "text", Nullable: true},
			{Name: "home_country", Type: "text", Nullable: true},
			{Name: "languages", Type: "json", Nullable: true, JSON: true},
			{Name: "skills", Type: "json", Nullable: true, JSON: true},
			{Name: "interests", Type: "json", Nullable: true, JSON: true},
			{Name: "church_id", Type: "integer", Nullable: true, ReferenceTo: "churches"},
			// The two stores disagree on this column's type (string vs
			// integer), so it does not sync. See DESIGN.md.
			{Name: "user_id", Type: "text", Nullable: true, SkipSync: true},
			{Name: "created_at", Type: "timestamp"},
			{Name: "updated_at", Type: "timestamp"},
		},
	}
}

func churchesTable() *TableDefinition {
	return &TableDefinition{
		Name:       "churches",
		PrimaryKey: "id",
		BaseTable:  "contacts",
		Columns: []ColumnDefinition{
			{Name: "id", Type: "integer"},
			{Name: "church_name", Type: "text", Default: ""},
			{Name: "denomination", Type: "text", Nullable: true},
			{Name: "website", Type: "text", Nullable: true},
			{Name: "congregation_size", Type: "integer", Nullable: true},
			{Name: "year_founded", Type: "integer", Nullable: true},
			{Name: "pastor_name", Type: "text", Nullable: true},
			{Name: "created_at", Type: "timestamp"},
			{Name: "updated_at", Type: "timestamp"},
		},
	}
}

// Default returns the built-in registry covering the CRM tables.
func Default() *Registry {
	r, err := NewRegistry(officesTable(), contactsTable(), peopleTable(), churchesTable())
	if err != nil {
		// Built-in definitions are validated by tests; a failure here is a
		// programming error.
		panic(err)
	}
	return r
}
