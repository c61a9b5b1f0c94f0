// Package conversation provides per-conversation serialization. Requests for
// the same conversation id run one at a time so history reads and appends
// interleave cleanly; requests for different conversations never contend.
package conversation

import "sync"

// Locker hands out one mutex per conversation id. Mutexes are created on
// first use and kept for the process lifetime.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLocker() *Locker {
	return &Locker{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for a conversation id and returns its unlock func.
func (l *Locker) Lock(id string) func() {
	l.mu.Lock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
