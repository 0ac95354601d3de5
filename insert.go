package qht

import (
	"sync/atomic"
	"unsafe"
)

// Insert adds p under hash. If the chain already holds a value with the same
// hash that is p itself or matches p according to the table's CmpFunc, the
// table is left unchanged and that value is returned with inserted false.
//
// p must not be nil, and a pointer must always be inserted with the same
// hash.
func (t *Table[T]) Insert(p *T, hash uint32) (existing *T, inserted bool) {
	if debugAssert && p == nil {
		panic("qht: nil pointers are not supported")
	}

	m, idx := t.bucketLockNoStale(hash)
	head := &m.buckets[idx]
	prev, needsResize := t.insertLocked(m, head, ptrOf(p), hash, true)
	debugCheckChain(head)
	m.unlockBucket(idx)

	if needsResize && t.mode&ModeAutoResize != 0 {
		t.growMaybe()
	}
	if prev == nil {
		return nil, true
	}
	return (*T)(prev), false
}

// bucketLockNoStale locks the chain for hash and returns its map and head
// bucket index, making sure the map is still the current one. Callers
// cannot hold the table lock.
func (t *Table[T]) bucketLockNoStale(hash uint32) (*qhtMap, int) {
	m := t.m.Load()
	idx := m.bucketIndex(hash)
	m.lockBucket(idx)
	if m == t.m.Load() {
		return m, idx
	}
	m.unlockBucket(idx)

	// we raced with a resize; the table lock is held for its whole duration
	t.lock.lock()
	m = t.m.Load()
	idx = m.bucketIndex(hash)
	m.lockBucket(idx)
	t.lock.unlock()
	if debugAssert && m.retired.Load() {
		panic("qht: locked a chain of a retired map")
	}
	return m, idx
}

// insertLocked stores p in the first free slot of the chain rooted at head,
// appending an overflow bucket if the chain is full. Call with the chain
// lock held, or on a map no other goroutine can see.
//
// With growCheck set, needsResize reports whether the map crossed its
// overflow threshold. Resizes copy entries with growCheck unset so that they
// never schedule another resize.
func (t *Table[T]) insertLocked(
	m *qhtMap,
	head *bucket,
	p unsafe.Pointer,
	hash uint32,
	growCheck bool,
) (existing unsafe.Pointer, needsResize bool) {
	var (
		b     = head
		prev  *bucket
		added *bucket
		i     int
	)

findLoop:
	for b != nil {
		for i = 0; i < bucketEntries; i++ {
			q := b.pointers[i]
			if q == nil {
				break findLoop
			}
			if b.hashes[i] == hash && (q == p || t.cmp((*T)(q), (*T)(p))) {
				return q, false
			}
		}
		prev = b
		b = (*bucket)(b.next)
	}

	if b == nil {
		added = &bucket{}
		b, i = added, 0
		if m.added.Add(1) > m.threshold && growCheck {
			needsResize = true
		}
	}

	// found an empty slot: publish under the chain's write section
	head.seq.writeBegin()
	if added != nil {
		atomic.StorePointer(&prev.next, unsafe.Pointer(added))
	}
	atomic.StoreUint32(&b.hashes[i], hash)
	atomic.StorePointer(&b.pointers[i], p)
	head.seq.writeEnd()
	return nil, needsResize
}
