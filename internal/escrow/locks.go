package escrow

import "sync"

// lockTable hands out one mutex per fund id so that operations on the
// same campaign never interleave their effects, while operations on
// different campaigns proceed independently. Locks are created lazily
// and kept for the life of the process (funds are never deleted).
type lockTable struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[int64]*sync.Mutex)}
}

// get returns the mutex for a fund id, creating it on first use.
func (t *lockTable) get(id int64) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.locks[id]
	if !ok {
		l = &sync.Mutex{}
		t.locks[id] = l
	}
	return l
}
