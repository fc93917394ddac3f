package app

import "sync"

// scopeLocks provides per-scope mutual exclusion. Cycles and maintenance
// passes for the same device scope never overlap; distinct scopes run
// independently.
type scopeLocks struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func newScopeLocks() *scopeLocks {
	return &scopeLocks{held: make(map[string]struct{})}
}

// acquire takes the lock for a scope, failing fast with ErrScopeBusy when
// it is already held. The returned release function is idempotent.
func (l *scopeLocks) acquire(scope string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[scope]; busy {
		return nil, ErrScopeBusy
	}
	l.held[scope] = struct{}{}

	var once sync.Once
	release := func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, scope)
			l.mu.Unlock()
		})
	}
	return release, nil
}
