package sync

import (
	"context"
	"log"
	"os"

	"github.com/outreachcrm/crmsync/internal/schema"
	"github.com/outreachcrm/crmsync/internal/store"
)

// Validator checks declared foreign keys against the destination store
// before a write.
//
// The policy is fail-safe-to-null: a reference whose target row is missing,
// whose target table is missing, or whose existence check errors for any
// reason is nulled instead of risking a constraint violation. Every
// substitution is logged with the field and the attempted value for audit.
type Validator struct {
	dest   *store.DB
	reg    *schema.Registry
	logger *log.Logger
}

// NewValidator creates a Validator against the destination store.
// If logger is nil, a default logger writing to stderr is used.
func NewValidator(dest *store.DB, reg *schema.Registry, logger *log.Logger) *Validator {
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	return &Validator{dest: dest, reg: reg, logger: logger}
}

// ValidateRefs nulls every reference field of fields whose referent does not
// exist at the destination. The map is modified in place.
func (v *Validator) ValidateRefs(ctx context.Context, def *schema.TableDefinition, fields map[string]any) {
	for _, col := range def.ReferenceColumns() {
		val, ok := fields[col.Name]
		if !ok || val == nil {
			continue
		}

		ref, ok := v.reg.Table(col.ReferenceTo)
		if !ok {
			// NewRegistry validates the graph, so this only happens with a
			// hand-built definition.
			v.logger.Printf("WARNING: %s.%s references undeclared table %s, nulling value %v",
				def.Name, col.Name, col.ReferenceTo, val)
			fields[col.Name] = nil
			continue
		}

		exists, err := v.dest.RowExists(ctx, nil, ref.Name, ref.PrimaryKey, val)
		if err != nil {
			v.logger.Printf("WARNING: %s.%s: existence check against %s failed (%v), nulling value %v",
				def.Name, col.Name, ref.Name, err, val)
			fields[col.Name] = nil
			continue
		}
		if !exists {
			v.logger.Printf("WARNING: %s.%s: no %s row with %s=%v at destination, nulling reference",
				def.Name, col.Name, ref.Name, ref.PrimaryKey, val)
			fields[col.Name] = nil
		}
	}
}
