package app

import (
	"sync"

	"github.com/parleyhq/parley/internal/domain"
)

// roomLocks serializes transitions per room id. Entries are reference
// counted so the map does not grow with every room ever seen.
type roomLocks struct {
	mu    sync.Mutex
	locks map[domain.RoomID]*roomLock
}

type roomLock struct {
	sync.Mutex
	refs int
}

func newRoomLocks() *roomLocks {
	return &roomLocks{locks: make(map[domain.RoomID]*roomLock)}
}

func (l *roomLocks) Acquire(id domain.RoomID) *roomLock {
	l.mu.Lock()
	rl, ok := l.locks[id]
	if !ok {
		rl = &roomLock{}
		l.locks[id] = rl
	}
	rl.refs++
	l.mu.Unlock()

	rl.Lock()
	return rl
}

func (l *roomLocks) Release(id domain.RoomID, rl *roomLock) {
	rl.Unlock()

	l.mu.Lock()
	rl.refs--
	if rl.refs == 0 {
		delete(l.locks, id)
	}
	l.mu.Unlock()
}
