package qht

import (
	"math/bits"
	"sync/atomic"
	"unsafe"
)

// addedBucketsThresholdDiv triggers a resize when more than
// nBuckets/addedBucketsThresholdDiv overflow buckets have been added.
const addedBucketsThresholdDiv = 8

// qhtMap is one generation of the table: an array of head buckets whose
// length never changes once the map is created. The table grows by
// publishing a new map, never by mutating an old one.
type qhtMap struct {
	//lint:ignore U1000 prevents false sharing
	pad [(CacheLineSize - unsafe.Sizeof(struct {
		buckets   []bucket
		mask      uint32
		added     atomic.Int64
		threshold int64
		stripes   []stripeLock
		retired   atomic.Bool
	}{})%CacheLineSize) % CacheLineSize]byte

	buckets []bucket
	mask    uint32
	// number of overflow buckets added since the map was created
	added     atomic.Int64
	threshold int64
	// shared chain locks; nil when every head bucket uses its own lock
	stripes []stripeLock
	retired atomic.Bool
}

func newQhtMap(nBuckets, lockStripes int) *qhtMap {
	threshold := int64(nBuckets / addedBucketsThresholdDiv)
	// let tiny tables add at least one overflow bucket
	if threshold == 0 {
		threshold = 1
	}
	m := &qhtMap{
		buckets:   make([]bucket, nBuckets),
		mask:      uint32(nBuckets - 1),
		threshold: threshold,
	}
	if lockStripes > 0 {
		m.stripes = make([]stripeLock, lockStripes)
	}
	return m
}

// elemsToBuckets converts an element count into a head bucket count.
func elemsToBuckets(nElems int) int {
	return nextPowOf2(nElems / bucketEntries)
}

// nextPowOf2 calculates the smallest power of 2 that is greater than or equal to n.
// Compatible with both 32-bit and 64-bit systems.
func nextPowOf2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << (bits.UintSize - bits.LeadingZeros(uint(n-1)))
}

//go:nosplit
func (m *qhtMap) bucketIndex(hash uint32) int {
	return int(hash & m.mask)
}

// chainLock returns the lock protecting the chain rooted at buckets[idx].
func (m *qhtMap) chainLock(idx int) *spinLock {
	if m.stripes != nil {
		return &m.stripes[idx&(len(m.stripes)-1)].spinLock
	}
	return &m.buckets[idx].lock
}

func (m *qhtMap) lockBucket(idx int) {
	m.chainLock(idx).lock()
}

func (m *qhtMap) unlockBucket(idx int) {
	m.chainLock(idx).unlock()
}

// lockedChains returns how many distinct locks guard the map's chains.
// With stripes, the first min(stripes, buckets) indices cover every lock
// exactly once.
func (m *qhtMap) lockedChains() int {
	if m.stripes != nil {
		return min(len(m.stripes), len(m.buckets))
	}
	return len(m.buckets)
}

// lockAll acquires every chain lock of the map, in index order.
func (m *qhtMap) lockAll() {
	for i, n := 0, m.lockedChains(); i < n; i++ {
		m.lockBucket(i)
	}
}

func (m *qhtMap) unlockAll() {
	for i, n := 0, m.lockedChains(); i < n; i++ {
		m.unlockBucket(i)
	}
}

func (m *qhtMap) needsResize() bool {
	return m.added.Load() > m.threshold
}

// call with all chain locks held
func (m *qhtMap) resetAllLocked() {
	for i := range m.buckets {
		resetLocked(&m.buckets[i])
	}
	m.debugCheckAll()
}

// call with all chain locks held
func (m *qhtMap) visitAllLocked(fn func(p unsafe.Pointer, hash uint32) bool) {
	for i := range m.buckets {
		if !visitLocked(&m.buckets[i], fn) {
			return
		}
	}
}

// call with all chain locks held
func (m *qhtMap) removeIfAllLocked(fn func(p unsafe.Pointer, hash uint32) bool) {
	for i := range m.buckets {
		removeIfLocked(&m.buckets[i], fn)
	}
}

// retire marks a map that has been replaced. A retired map is still read by
// lookups that loaded it before the replacement and is reclaimed by the
// garbage collector once the last of them returns.
func (m *qhtMap) retire() {
	m.retired.Store(true)
}

// destroy unlinks every overflow chain. Only for maps nobody can reach.
func (m *qhtMap) destroy() {
	for i := range m.buckets {
		b := &m.buckets[i]
		for next := (*bucket)(b.next); next != nil; {
			b.next = nil
			b, next = next, (*bucket)(next.next)
		}
	}
	m.buckets = nil
	m.retire()
}

func (m *qhtMap) debugCheckAll() {
	if !debugAssert {
		return
	}
	for i := range m.buckets {
		debugCheckChain(&m.buckets[i])
	}
}
