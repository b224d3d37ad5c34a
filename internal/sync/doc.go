// Package sync implements the per-record reconciliation between the local
// and remote CRM stores.
//
// Overview
//
// Records flow from a source (the other store, read over SQL or the remote
// REST interface) into a destination store:
//
//	Source (local SQL / remote SQL / remote REST)
//	     ↓ records
//	Orchestrator — iterates models × directions, accumulates counters
//	     ↓ per record
//	Reconciler — exists check, conflict policy, transactional write
//	     ↓
//	Mapper + Validator — declared ∩ live columns, JSON normalization,
//	                     foreign keys nulled when the referent is absent
//	     ↓
//	Destination store (raw insert/update)
//
// A failing record is counted and logged, never retried, and never aborts
// the batch. Only configuration errors (unknown model, unusable direction)
// abort a run.
//
// Concurrent runs against the same tables are NOT supported: there is no
// advisory locking and no optimistic concurrency token. Run one sync at a
// time.
package sync
