package alder

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/petermattis/goid"
)

// currentGoroutineID returns the id of the calling goroutine. goid.Get is a
// few nanoseconds when its assembly fast path knows the running runtime's g
// layout, but it reports 0 on runtime releases newer than the ones it was
// built for. In that case the id is read from the header line of the
// goroutine's stack trace ("goroutine 123 [running]:"), whose format is
// stable across releases. The returned id is always positive; the runtime
// numbers goroutines from 1.
func currentGoroutineID() int64 {
	if id := goid.Get(); id > 0 {
		return id
	}
	return goroutineIDFromStack()
}

func goroutineIDFromStack() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	header := bytes.TrimPrefix(buf[:n], []byte("goroutine "))
	if i := bytes.IndexByte(header, ' '); i > 0 {
		if id, err := strconv.ParseInt(string(header[:i]), 10, 64); err == nil && id > 0 {
			return id
		}
	}
	panic("alder: cannot determine goroutine id")
}

// creationLock serializes all object creation in a registry while letting a
// factory that is already inside the lock create nested objects on the same
// goroutine. Without reentrancy, a factory for "a" that needs "b" would
// deadlock against its own creation.
//
// Reentrancy only spans synchronous calls: a factory that spawns goroutines
// and resolves from them is treated as an ordinary concurrent caller.
type creationLock struct {
	mu    sync.Mutex
	owner atomic.Int64 // goroutine id of the holder, 0 when unheld
	depth int          // nesting depth, guarded by mu
}

func (l *creationLock) lock() {
	gid := currentGoroutineID()
	if l.owner.Load() == gid {
		l.depth++
		return
	}
	l.mu.Lock()
	l.owner.Store(gid)
	l.depth = 1
}

func (l *creationLock) unlock() {
	if l.owner.Load() != currentGoroutineID() {
		panic("alder: creationLock unlocked by non-owner")
	}
	l.depth--
	if l.depth == 0 {
		l.owner.Store(0)
		l.mu.Unlock()
	}
}
