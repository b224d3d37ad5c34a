package sync

import (
	"encoding/json"
	"log"
	"os"
	"strings"

	"github.com/outreachcrm/crmsync/internal/schema"
	"github.com/outreachcrm/crmsync/internal/store"
)

// Mapper filters source records down to writable destination fields.
//
// A field is written only when it is declared in the registry AND present in
// the destination's live column set; anything else is dropped so schema drift
// never breaks a write. JSON columns are normalized to valid JSON text, and
// required columns missing a value receive their declared default.
type Mapper struct {
	logger *log.Logger
}

// NewMapper creates a Mapper. If logger is nil, a default logger writing to
// stderr is used.
func NewMapper(logger *log.Logger) *Mapper {
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	return &Mapper{logger: logger}
}

// MapFields produces the destination fields for one table from a source
// record. live may be nil, in which case only the declared contract filters.
func (m *Mapper) MapFields(def *schema.TableDefinition, live map[string]store.Column, rec map[string]any) map[string]any {
	fields := make(map[string]any)

	for _, col := range def.Columns {
		if col.SkipSync {
			continue
		}
		if live != nil {
			if _, ok := live[col.Name]; !ok {
				continue
			}
		}

		val, present := rec[col.Name]

		if col.JSON {
			fields[col.Name] = m.normalizeJSON(def.Name, col.Name, val)
			continue
		}

		if !present {
			if !col.Nullable {
				fields[col.Name] = col.Default
			}
			continue
		}
		if val == nil && !col.Nullable {
			fields[col.Name] = col.Default
			continue
		}
		fields[col.Name] = val
	}

	return fields
}

// normalizeJSON coerces a structured-field value to valid JSON text.
//
// Empty input becomes "[]". A string that already parses as JSON passes
// through unchanged; a string that doesn't is treated as malformed and
// replaced with "[]". Any other value is serialized, falling back to "[]"
// when serialization fails. Data loss is preferred over a failed write, so
// every substitution is logged.
func (m *Mapper) normalizeJSON(table, field string, val any) string {
	const empty = "[]"

	switch v := val.(type) {
	case nil:
		return empty
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return empty
		}
		if json.Valid([]byte(s)) {
			return s
		}
		m.logger.Printf("WARNING: %s.%s holds malformed JSON %q, substituting %s", table, field, v, empty)
		return empty
	default:
		data, err := json.Marshal(val)
		if err != nil {
			m.logger.Printf("WARNING: %s.%s is not serializable (%v), substituting %s", table, field, err, empty)
			return empty
		}
		return string(data)
	}
}
