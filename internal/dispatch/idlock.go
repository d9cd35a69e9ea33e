package dispatch

import "sync"

// idLockStripes is a power of two so the modulo reduces to a mask.
const idLockStripes = 64

// idLocks serializes the "persist, then mirror" two-step per group id.
// True cross-store atomicity is out of scope; holding one of these
// locks across both steps shrinks the window in which a concurrent
// reader can observe the store and the collection disagreeing about an
// id. Striping keeps the footprint fixed while distinct ids rarely
// contend.
type idLocks struct {
	stripes [idLockStripes]sync.Mutex
}

func newIDLocks() *idLocks {
	return &idLocks{}
}

func (l *idLocks) lock(id int) *sync.Mutex {
	m := &l.stripes[uint(id)&(idLockStripes-1)]
	m.Lock()
	return m
}
