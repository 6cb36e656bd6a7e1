package service

import "sync"

// projectLocks serializes wizard transitions per project id within one
// process. Entries are dropped as soon as the last holder releases them.
type projectLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newProjectLocks() *projectLocks {
	return &projectLocks{entries: make(map[string]*lockEntry)}
}

func (l *projectLocks) lock(id string) {
	l.mu.Lock()
	entry, ok := l.entries[id]
	if !ok {
		entry = &lockEntry{}
		l.entries[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
}

func (l *projectLocks) unlock(id string) {
	l.mu.Lock()
	entry, ok := l.entries[id]
	if ok {
		entry.refs--
		if entry.refs <= 0 {
			delete(l.entries, id)
		}
	}
	l.mu.Unlock()

	if ok {
		entry.mu.Unlock()
	}
}
