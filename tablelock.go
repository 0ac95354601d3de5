package qht

import (
	"sync"
	"time"

	"go.uber.org/atomic"
)

// tableLock serializes structural operations (resize, reset, growth) and the
// slow path of writers that raced with one. Unless raw is set it keeps
// contention counters, so that a profiling harness can see how long writers
// wait behind a resize.
type tableLock struct {
	mu  sync.Mutex
	raw bool

	acquired  atomic.Uint64
	contended atomic.Uint64
	waited    atomic.Duration
}

// LockStats describes the contention of a table lock. All fields are zero
// for tables created with ModeRawMutexes.
type LockStats struct {
	// Acquired is the number of times the lock was taken.
	Acquired uint64
	// Contended is the number of acquisitions that had to wait.
	Contended uint64
	// Waited is the total time spent waiting in contended acquisitions.
	Waited time.Duration
}

func (l *tableLock) lock() {
	if l.raw {
		l.mu.Lock()
		return
	}
	if l.mu.TryLock() {
		l.acquired.Inc()
		return
	}
	start := time.Now()
	l.mu.Lock()
	l.acquired.Inc()
	l.contended.Inc()
	l.waited.Add(time.Since(start))
}

func (l *tableLock) tryLock() bool {
	if !l.mu.TryLock() {
		return false
	}
	if !l.raw {
		l.acquired.Inc()
	}
	return true
}

func (l *tableLock) unlock() {
	l.mu.Unlock()
}

func (l *tableLock) stats() LockStats {
	return LockStats{
		Acquired:  l.acquired.Load(),
		Contended: l.contended.Load(),
		Waited:    l.waited.Load(),
	}
}
