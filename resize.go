package qht

import "unsafe"

// Resize changes the number of head buckets to fit nElems elements. It
// reports whether the table was resized, which does not happen when the
// bucket count would stay the same.
//
// Writers wait for the resize to finish; lookups keep running against the
// old map until the new one is published.
func (t *Table[T]) Resize(nElems int) bool {
	nBuckets := elemsToBuckets(nElems)

	t.lock.lock()
	defer t.lock.unlock()
	old := len(t.m.Load().buckets)
	if nBuckets == old {
		return false
	}
	log.Debugf("resize: %d -> %d head buckets", old, nBuckets)
	t.doResizeReset(newQhtMap(nBuckets, t.lockStripes), false)
	return true
}

// Reset removes every entry. The bucket count and any overflow buckets are
// kept.
func (t *Table[T]) Reset() {
	t.lock.lock()
	defer t.lock.unlock()
	t.doResizeReset(nil, true)
}

// ResetSize removes every entry and, if nElems calls for a different bucket
// count, switches to a new empty map of that size. It reports whether the
// map was replaced.
func (t *Table[T]) ResetSize(nElems int) bool {
	nBuckets := elemsToBuckets(nElems)

	t.lock.lock()
	defer t.lock.unlock()
	var newMap *qhtMap
	if old := len(t.m.Load().buckets); nBuckets != old {
		log.Debugf("reset: %d -> %d head buckets", old, nBuckets)
		newMap = newQhtMap(nBuckets, t.lockStripes)
	}
	t.doResizeReset(newMap, true)
	return newMap != nil
}

// growMaybe doubles the bucket count if the current map still needs it.
// It gives up if the table lock is taken: that is most likely a resize
// already in progress.
//
//go:noinline
func (t *Table[T]) growMaybe() {
	if !t.lock.tryLock() {
		return
	}
	defer t.lock.unlock()
	m := t.m.Load()
	// another goroutine might have just performed the resize we were after
	if !m.needsResize() {
		return
	}
	log.Debugf("grow: %d -> %d head buckets (%d overflow buckets, threshold %d)",
		len(m.buckets), len(m.buckets)*2, m.added.Load(), m.threshold)
	t.doResizeReset(newQhtMap(len(m.buckets)*2, t.lockStripes), false)
}

// doResizeReset locks every chain of the current map, optionally empties it,
// and if newMap is not nil copies the remaining entries into newMap and
// publishes it. Call with the table lock held.
func (t *Table[T]) doResizeReset(newMap *qhtMap, reset bool) {
	old := t.m.Load()
	old.lockAll()

	if reset {
		old.resetAllLocked()
	}
	if newMap == nil {
		old.unlockAll()
		return
	}

	if len(newMap.buckets) == len(old.buckets) {
		panic("qht: resize to the same number of buckets")
	}
	old.visitAllLocked(func(p unsafe.Pointer, hash uint32) bool {
		// no need to lock newMap's chains: nobody has seen it yet
		t.insertLocked(newMap, &newMap.buckets[newMap.bucketIndex(hash)], p, hash, false)
		return true
	})
	newMap.debugCheckAll()

	t.m.Store(newMap)
	old.unlockAll()
	old.retire()
}
