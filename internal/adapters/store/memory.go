package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iahsanshah/ZK-machine-Integration/internal/domain/model"
)

// MemoryStore implements Store in memory. It backs tests and dry runs;
// production syncs use GormStore.
type MemoryStore struct {
	mu       sync.RWMutex
	checkins map[string]Checkin
	states   map[string]SyncState
	seq      int // creation order tie-break when CreatedAt collides
	order    map[string]int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		checkins: make(map[string]Checkin),
		states:   make(map[string]SyncState),
		order:    make(map[string]int),
	}
}

// Exists implements Store.
func (s *MemoryStore) Exists(_ context.Context, employee string, ts time.Time, logType model.LogType) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ts = ts.Truncate(time.Second)
	for _, c := range s.checkins {
		if c.Employee == employee && c.Timestamp.Equal(ts) && c.LogType == string(logType) {
			return true, nil
		}
	}
	return false, nil
}

// Create implements Store.
func (s *MemoryStore) Create(_ context.Context, c Checkin) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	c.Timestamp = c.Timestamp.Truncate(time.Second)
	s.checkins[c.ID] = c
	s.order[c.ID] = s.seq
	s.seq++
	return c.ID, nil
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context, scope string) ([]Checkin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	checkins := make([]Checkin, 0)
	for _, c := range s.checkins {
		if c.DeviceID == scope {
			checkins = append(checkins, c)
		}
	}
	sort.SliceStable(checkins, func(i, j int) bool {
		a, b := checkins[i], checkins[j]
		if a.Employee != b.Employee {
			return a.Employee < b.Employee
		}
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return s.order[a.ID] < s.order[b.ID]
	})
	return checkins, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.checkins[id]; !ok {
		return ErrNotFound
	}
	delete(s.checkins, id)
	delete(s.order, id)
	return nil
}

// UpdateLogType implements Store.
func (s *MemoryStore) UpdateLogType(_ context.Context, id string, logType model.LogType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.checkins[id]
	if !ok {
		return ErrNotFound
	}
	c.LogType = string(logType)
	s.checkins[id] = c
	return nil
}

// GetSyncState implements Store.
func (s *MemoryStore) GetSyncState(_ context.Context, scope string) (SyncState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.states[scope]
	if !ok {
		return SyncState{}, ErrNotFound
	}
	return st, nil
}

// PutSyncState implements Store.
func (s *MemoryStore) PutSyncState(_ context.Context, st SyncState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st.UpdatedAt = time.Now()
	s.states[st.Scope] = st
	return nil
}

// Count reports how many check-ins are stored, across all scopes.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.checkins)
}
