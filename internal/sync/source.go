package sync

import (
	"context"

	"github.com/outreachcrm/crmsync/internal/remote"
	"github.com/outreachcrm/crmsync/internal/store"
)

// Source yields the candidate records of a model from one side of the sync.
type Source interface {
	// Records returns up to limit records (0 = all). For variant models the
	// records carry both base and variant fields, keyed by column name.
	Records(ctx context.Context, m Model, limit int) ([]map[string]any, error)
}

// NewStoreSource reads records over SQL, used for the local store and for
// remotes reachable by DSN.
func NewStoreSource(db *store.DB) Source {
	return &storeSource{db: db}
}

type storeSource struct {
	db *store.DB
}

func (s *storeSource) Records(ctx context.Context, m Model, limit int) ([]map[string]any, error) {
	if m.Variant == nil {
		return s.db.SelectRecords(ctx, m.Base.Name, m.Base.PrimaryKey, m.Base.ColumnNames(), limit)
	}
	return s.db.SelectJoined(ctx, m.Base.Name, m.Variant.Name, m.Base.PrimaryKey,
		m.Base.ColumnNames(), m.Variant.ColumnNames(), limit)
}

// NewRESTSource reads records from the remote REST table-select interface.
// Base and variant tables are fetched separately and joined by primary key,
// mirroring the SQL join.
func NewRESTSource(client *remote.Client) Source {
	return &restSource{client: client}
}

type restSource struct {
	client *remote.Client
}

func (s *restSource) Records(ctx context.Context, m Model, limit int) ([]map[string]any, error) {
	if m.Variant == nil {
		return s.client.Select(ctx, m.Base.Name, limit)
	}

	variants, err := s.client.Select(ctx, m.Variant.Name, limit)
	if err != nil {
		return nil, err
	}
	bases, err := s.client.Select(ctx, m.Base.Name, 0)
	if err != nil {
		return nil, err
	}

	pk := m.Base.PrimaryKey
	baseByID := make(map[any]map[string]any, len(bases))
	for _, b := range bases {
		if id, ok := b[pk]; ok {
			baseByID[id] = b
		}
	}

	records := make([]map[string]any, 0, len(variants))
	for _, v := range variants {
		rec := make(map[string]any, len(v))
		if b, ok := baseByID[v[pk]]; ok {
			for k, val := range b {
				rec[k] = val
			}
		}
		// Variant fields win on the shared columns (id, timestamps).
		for k, val := range v {
			rec[k] = val
		}
		records = append(records, rec)
	}
	return records, nil
}
