// Package store persists check-in records and the per-scope sync watermark.
// The duplicate-prevention contract lives here: at most one check-in exists
// per (employee, timestamp, log type) triple, guarded by Exists-then-Create
// in the writer.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/iahsanshah/ZK-machine-Integration/internal/domain/model"
)

// Sentinel kinds for store errors.
var (
	ErrNotFound = errors.New("record not found")
)

// Store is the persisted check-in collaborator consumed by the writer and
// the maintenance passes.
type Store interface {
	// Exists reports whether a check-in with the composite key
	// (employee, timestamp, logType) is present. The log type is part of
	// the key: a same-second IN and OUT are distinct records.
	Exists(ctx context.Context, employee string, ts time.Time, logType model.LogType) (bool, error)

	// Create inserts a check-in and returns its record id.
	Create(ctx context.Context, c Checkin) (string, error)

	// List returns every check-in recorded for a device scope, ordered by
	// employee, then timestamp, then creation time, then id.
	List(ctx context.Context, scope string) ([]Checkin, error)

	// Delete removes a check-in by record id.
	Delete(ctx context.Context, id string) error

	// UpdateLogType rewrites the log type of an existing check-in. Only the
	// rederivation maintenance pass calls this.
	UpdateLogType(ctx context.Context, id string, logType model.LogType) error

	// GetSyncState loads the watermark for a scope, ErrNotFound when the
	// scope has never synced.
	GetSyncState(ctx context.Context, scope string) (SyncState, error)

	// PutSyncState upserts the watermark for a scope.
	PutSyncState(ctx context.Context, st SyncState) error
}
