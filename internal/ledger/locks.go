package ledger

import (
	"slices"
	"sync"
)

type lockMode int

const (
	modeRead lockMode = iota
	modeWrite
)

type lockEntry struct {
	mu   sync.RWMutex
	refs int
}

// AccountLocker hands out exclusive (write) and shared (read) locks per account key.
// Operations on disjoint account sets run in parallel; operations sharing a written
// account are serialized.
type AccountLocker struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

func NewAccountLocker() *AccountLocker {
	return &AccountLocker{locks: make(map[string]*lockEntry)}
}

// Lock acquires write locks on writes and read locks on reads, always in key
// order so concurrent callers cannot deadlock. A key present in both is write
// locked. The returned func releases everything.
func (l *AccountLocker) Lock(writes, reads []string) (unlock func()) {
	modes := make(map[string]lockMode, len(writes)+len(reads))
	for _, k := range reads {
		modes[k] = modeRead
	}
	for _, k := range writes {
		modes[k] = modeWrite
	}

	keys := make([]string, 0, len(modes))
	for k := range modes {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	entries := make([]*lockEntry, len(keys))
	l.mu.Lock()
	for i, k := range keys {
		e, ok := l.locks[k]
		if !ok {
			e = &lockEntry{}
			l.locks[k] = e
		}
		e.refs++
		entries[i] = e
	}
	l.mu.Unlock()

	for i, k := range keys {
		if modes[k] == modeWrite {
			entries[i].mu.Lock()
		} else {
			entries[i].mu.RLock()
		}
	}

	return func() {
		for i := len(keys) - 1; i >= 0; i-- {
			if modes[keys[i]] == modeWrite {
				entries[i].mu.Unlock()
			} else {
				entries[i].mu.RUnlock()
			}
		}

		l.mu.Lock()
		for i, k := range keys {
			entries[i].refs--
			if entries[i].refs == 0 {
				delete(l.locks, k)
			}
		}
		l.mu.Unlock()
	}
}

// Held returns the number of keys currently tracked. Used by tests.
func (l *AccountLocker) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
