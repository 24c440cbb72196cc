package scoring

import "sync"

// MatchLocker serializes scoring commands per match. Commands for the same
// match run one at a time in arrival order; commands for different matches
// do not contend. Entries are refcounted and removed as soon as the last
// holder releases, so idle matches cost nothing.
type MatchLocker struct {
	mu    sync.Mutex
	locks map[string]*matchLock
}

type matchLock struct {
	mu   sync.Mutex
	refs int
}

func NewMatchLocker() *MatchLocker {
	return &MatchLocker{
		locks: make(map[string]*matchLock),
	}
}

// Acquire blocks until the caller holds the lock for matchID and returns
// the release function. The release function must be called exactly once.
func (l *MatchLocker) Acquire(matchID string) func() {
	l.mu.Lock()
	entry, ok := l.locks[matchID]
	if !ok {
		entry = &matchLock{}
		l.locks[matchID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, matchID)
		}
		l.mu.Unlock()
	}
}

// Len reports how many matches currently have an active or queued command.
func (l *MatchLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
