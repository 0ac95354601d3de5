package qht

import (
	"runtime"
	"sync/atomic"
	"time"
	"unsafe"
)

// spinLock is a test-and-test-and-set lock. Chain locks are held for a few
// stores at a time, so spinning beats parking the goroutine.
//
// Partially references:
// [https://github.com/facebook/folly/blob/main/folly/synchronization/PicoSpinLock.h]
type spinLock struct {
	v uint32
}

// lock acquires the lock. The uncontended case can be inlined.
func (l *spinLock) lock() {
	if atomic.CompareAndSwapUint32(&l.v, 0, 1) {
		return
	}
	l.slowLock()
}

func (l *spinLock) slowLock() {
	spins := 0
	for !l.tryLock() {
		delay(&spins)
	}
}

func (l *spinLock) tryLock() bool {
	return atomic.LoadUint32(&l.v) == 0 && atomic.CompareAndSwapUint32(&l.v, 0, 1)
}

func (l *spinLock) unlock() {
	atomic.StoreUint32(&l.v, 0)
}

// stripeLock is a spinLock alone on its cache line.
type stripeLock struct {
	//lint:ignore U1000 prevents false sharing
	pad [(CacheLineSize - unsafe.Sizeof(spinLock{})%CacheLineSize) % CacheLineSize]byte
	spinLock
}

const (
	// maxSpins bounds busy-waiting before yielding the processor.
	maxSpins = 64
	// maxYields bounds yielding before sleeping; a resize holding every
	// chain lock of a large map can take a while.
	maxYields = 16
)

func delay(spins *int) {
	const yieldSleep = 50 * time.Microsecond
	*spins++
	switch {
	case *spins <= maxSpins:
		procyield()
	case *spins <= maxSpins+maxYields:
		runtime.Gosched()
	default:
		time.Sleep(yieldSleep)
	}
}

// procyield burns a few cycles without touching the lock word.
//
//go:noinline
func procyield() {
	for i := 0; i < 30; i++ {
	}
}
