// Package app composes the sync pipeline: fetch raw punches, normalize them,
// assign log types, and write check-ins idempotently. It also owns the two
// on-demand maintenance passes over the persisted store.
package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/iahsanshah/ZK-machine-Integration/internal/adapters/fetch"
	"github.com/iahsanshah/ZK-machine-Integration/internal/adapters/store"
	"github.com/iahsanshah/ZK-machine-Integration/internal/adapters/transport"
	"github.com/iahsanshah/ZK-machine-Integration/internal/domain/identity"
	"github.com/iahsanshah/ZK-machine-Integration/internal/domain/model"
	"github.com/iahsanshah/ZK-machine-Integration/internal/domain/sequence"
	"github.com/iahsanshah/ZK-machine-Integration/pkg/logger"
	"github.com/iahsanshah/ZK-machine-Integration/pkg/metrics"
)

// Default cycle configuration constants.
const (
	defaultLookback = time.Hour // first-cycle window when no watermark exists
)

// SyncStats summarizes the writer outcome of one cycle or sync call.
type SyncStats struct {
	Fetched           int // raw payloads received from the transport
	Malformed         int // dropped before sequencing
	Created           int // new check-in records
	SkippedDuplicate  int // existence check hit
	SkippedUnresolved int // no employee identity matched
}

// Skipped is the total number of sequenced punches that created no record.
func (s SyncStats) Skipped() int {
	return s.SkippedDuplicate + s.SkippedUnresolved
}

// Service orchestrates sync cycles and maintenance passes.
type Service struct {
	transport  transport.Transport
	store      store.Store
	resolver   identity.Resolver
	sequencer  *sequence.Sequencer
	normalizer *fetch.Normalizer

	locks    *scopeLocks
	lookback time.Duration
	now      func() time.Time
	logger   logger.Logger
}

// New constructs a Service around its collaborators.
func New(t transport.Transport, st store.Store, r identity.Resolver, opts ...Option) *Service {
	s := &Service{
		transport:  t,
		store:      st,
		resolver:   r,
		sequencer:  sequence.New(),
		normalizer: fetch.New(),
		locks:      newScopeLocks(),
		lookback:   defaultLookback,
		now:        time.Now,
		logger:     logger.Named("sync"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunCycle executes one full sync cycle for a device scope: window from the
// persisted watermark, fetch, normalize, sequence, write, advance watermark.
// A transport failure aborts the cycle before any write. The watermark
// advances even when the window held no punches.
func (s *Service) RunCycle(ctx context.Context, scope string) (SyncStats, error) {
	release, err := s.locks.acquire(scope)
	if err != nil {
		metrics.RecordCycle(metrics.OutcomeSkipped)
		return SyncStats{}, err
	}
	defer release()

	start := s.now()
	defer func() {
		metrics.RecordCycleDuration(s.now().Sub(start).Seconds())
	}()

	window, state, err := s.window(ctx, scope)
	if err != nil {
		metrics.RecordCycle(metrics.OutcomeError)
		return SyncStats{}, err
	}

	raws, err := s.transport.Fetch(ctx, window)
	if err != nil {
		metrics.RecordTransportError()
		metrics.RecordCycle(metrics.OutcomeError)
		s.logger.Error(ctx, "fetch failed, cycle aborted with no writes",
			logger.String("scope", scope), logger.Error(err))
		return SyncStats{}, fmt.Errorf("fetch window %s..%s: %w",
			window.Start.Format(time.RFC3339), window.End.Format(time.RFC3339), err)
	}

	punches, malformed := s.normalizer.Normalize(raws, scope)
	metrics.RecordPunchesFetched(len(raws))
	metrics.RecordPunchesMalformed(malformed)

	sequenced := s.sequencer.Assign(punches)

	stats, writeErr := s.write(ctx, sequenced)
	stats.Fetched = len(raws)
	stats.Malformed = malformed
	if writeErr != nil {
		// Records created so far stand; the next cycle re-covers the window
		// and existence checks keep re-syncing safe.
		metrics.RecordCycle(metrics.OutcomeError)
		return stats, writeErr
	}

	state.Scope = scope
	state.LastSync = window.End
	state.TotalSynced += int64(stats.Created)
	if err := s.store.PutSyncState(ctx, state); err != nil {
		metrics.RecordCycle(metrics.OutcomeError)
		return stats, fmt.Errorf("advance watermark: %w", err)
	}
	metrics.UpdateLastSync(scope, float64(window.End.Unix()))
	metrics.UpdateTotalSynced(scope, state.TotalSynced)
	metrics.RecordCycle(metrics.OutcomeOK)

	s.logger.Info(ctx, "cycle finished",
		logger.String("scope", scope),
		logger.Int("fetched", stats.Fetched),
		logger.Int("malformed", stats.Malformed),
		logger.Int("created", stats.Created),
		logger.Int("skipped_duplicate", stats.SkippedDuplicate),
		logger.Int("skipped_unresolved", stats.SkippedUnresolved),
	)
	return stats, nil
}

// window computes the fetch window for a scope from its persisted watermark,
// falling back to the configured lookback on the first cycle.
func (s *Service) window(ctx context.Context, scope string) (transport.Window, store.SyncState, error) {
	now := s.now()
	state, err := s.store.GetSyncState(ctx, scope)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return transport.Window{Start: now.Add(-s.lookback), End: now}, store.SyncState{Scope: scope}, nil
	case err != nil:
		return transport.Window{}, store.SyncState{}, fmt.Errorf("load watermark: %w", err)
	default:
		return transport.Window{Start: state.LastSync, End: now}, state, nil
	}
}

// Sync writes a batch of already-sequenced punches under the scope lock.
// Exposed for callers that sequence punches themselves.
func (s *Service) Sync(ctx context.Context, scope string, punches []model.SequencedPunch) (SyncStats, error) {
	release, err := s.locks.acquire(scope)
	if err != nil {
		return SyncStats{}, err
	}
	defer release()
	return s.write(ctx, punches)
}

// write resolves each punch and creates its check-in unless one already
// exists for (employee, timestamp, log type). Unresolved subjects are
// skipped, never an error. A store failure aborts the remainder; records
// already created in this cycle remain valid.
func (s *Service) write(ctx context.Context, punches []model.SequencedPunch) (SyncStats, error) {
	var stats SyncStats
	for _, p := range punches {
		employee, ok, err := s.resolver.Resolve(ctx, p.SubjectCode)
		if err != nil {
			return stats, fmt.Errorf("resolve subject %q: %w", p.SubjectCode, err)
		}
		if !ok {
			stats.SkippedUnresolved++
			metrics.RecordCheckinUnresolved()
			s.logger.Debug(ctx, "no identity for subject, punch skipped",
				logger.String("subject", p.SubjectCode))
			continue
		}

		exists, err := s.store.Exists(ctx, employee, p.Timestamp, p.LogType)
		if err != nil {
			return stats, fmt.Errorf("existence check for %s: %w", employee, err)
		}
		if exists {
			stats.SkippedDuplicate++
			metrics.RecordCheckinDuplicate()
			continue
		}

		if _, err := s.store.Create(ctx, store.Checkin{
			Employee:  employee,
			Timestamp: p.Timestamp,
			LogType:   string(p.LogType),
			DeviceID:  p.DeviceID,
		}); err != nil {
			return stats, fmt.Errorf("create checkin for %s: %w", employee, err)
		}
		stats.Created++
		metrics.RecordCheckinCreated()
	}
	return stats, nil
}

// checkinGroupKey partitions persisted check-ins per employee per day for
// the rederive pass.
type checkinGroupKey struct {
	employee string
	day      string
}

// RederiveLogTypes regroups every persisted check-in in the scope by
// (employee, day) and rewrites log types that differ from the structural
// assignment. Idempotent: a second run with no intervening writes updates
// zero records.
func (s *Service) RederiveLogTypes(ctx context.Context, scope string) (int, error) {
	release, err := s.locks.acquire(scope)
	if err != nil {
		return 0, err
	}
	defer release()

	checkins, err := s.store.List(ctx, scope)
	if err != nil {
		return 0, fmt.Errorf("list scope %q: %w", scope, err)
	}

	groups := make(map[checkinGroupKey][]store.Checkin)
	keys := make([]checkinGroupKey, 0)
	for _, c := range checkins {
		k := checkinGroupKey{employee: c.Employee, day: c.Timestamp.Format("2006-01-02")}
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], c)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].employee != keys[j].employee {
			return keys[i].employee < keys[j].employee
		}
		return keys[i].day < keys[j].day
	})

	updated := 0
	for _, k := range keys {
		group := groups[k]
		// List order is already employee, timestamp, creation; within one
		// group that leaves timestamp order with a stable tie-break.
		expected := sequence.Structural(len(group))
		for i, c := range group {
			if c.LogType == string(expected[i]) {
				continue
			}
			if err := s.store.UpdateLogType(ctx, c.ID, expected[i]); err != nil {
				return updated, fmt.Errorf("rewrite log type of %s: %w", c.ID, err)
			}
			updated++
		}
	}
	metrics.RecordRederiveUpdates(updated)
	s.logger.Info(ctx, "rederive pass finished",
		logger.String("scope", scope), logger.Int("updated", updated))
	return updated, nil
}

// PurgeDuplicates deletes all but the earliest-created member of every
// (employee, timestamp, log type) group in the scope. Idempotent: a second
// run finds no group with more than one member.
func (s *Service) PurgeDuplicates(ctx context.Context, scope string) (int, error) {
	release, err := s.locks.acquire(scope)
	if err != nil {
		return 0, err
	}
	defer release()

	checkins, err := s.store.List(ctx, scope)
	if err != nil {
		return 0, fmt.Errorf("list scope %q: %w", scope, err)
	}

	type dupKey struct {
		employee string
		unix     int64
		logType  string
	}
	seen := make(map[dupKey]struct{}, len(checkins))
	deleted := 0
	// List order puts the earliest creation first within each key, so the
	// first member seen is the keeper.
	for _, c := range checkins {
		k := dupKey{employee: c.Employee, unix: c.Timestamp.Unix(), logType: c.LogType}
		if _, kept := seen[k]; !kept {
			seen[k] = struct{}{}
			continue
		}
		if err := s.store.Delete(ctx, c.ID); err != nil {
			return deleted, fmt.Errorf("delete duplicate %s: %w", c.ID, err)
		}
		deleted++
	}
	metrics.RecordPurgeDeletes(deleted)
	s.logger.Info(ctx, "purge pass finished",
		logger.String("scope", scope), logger.Int("deleted", deleted))
	return deleted, nil
}
