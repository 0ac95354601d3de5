package qht

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// bucketEntries is the number of hash/pointer slots per bucket, computed so
// that a bucket (lock, sequence, slots and next link) fits a cache line:
// 4 on 64-bit platforms and 6 on 32-bit ones with 64-byte lines.
const bucketEntries = int((CacheLineSize - 2*unsafe.Sizeof(uint32(0)) - unsafe.Sizeof(unsafe.Pointer(nil))) /
	(unsafe.Sizeof(uint32(0)) + unsafe.Sizeof(unsafe.Pointer(nil))))

// bucket is a cache-line-sized group of slots. Head buckets live in the map's
// bucket array; overflow buckets are chained through next. The lock and seq
// fields of a head bucket protect its whole chain and are unused in overflow
// buckets.
//
// A slot is empty when its pointer is nil. Occupied slots of a chain are
// contiguous from the head: nothing follows the first empty slot.
//
// Fields read by lookups are accessed atomically (hashes may be read
// relaxed, see loadHash); writers hold the chain lock and can read plainly.
type bucket struct {
	// first: a zero-size trailing field would grow the struct
	//
	//lint:ignore U1000 prevents false sharing
	pad [(CacheLineSize - unsafe.Sizeof(struct {
		lock     spinLock
		seq      seqLock
		hashes   [bucketEntries]uint32
		pointers [bucketEntries]unsafe.Pointer
		next     unsafe.Pointer
	}{})%CacheLineSize) % CacheLineSize]byte

	lock     spinLock
	seq      seqLock
	hashes   [bucketEntries]uint32
	pointers [bucketEntries]unsafe.Pointer
	next     unsafe.Pointer // *bucket
}

//go:nosplit
func (b *bucket) loadNext() *bucket {
	return (*bucket)(atomic.LoadPointer(&b.next))
}

// entryIsLast reports whether pos is the last occupied slot of the chain.
// Call with the chain lock held and b.pointers[pos] occupied.
func (b *bucket) entryIsLast(pos int) bool {
	if pos == bucketEntries-1 {
		next := (*bucket)(b.next)
		return next == nil || next.pointers[0] == nil
	}
	return b.pointers[pos+1] == nil
}

// clearEntry empties slot i. The pointer goes first so that a reader never
// pairs a live pointer with the zeroed hash.
func (b *bucket) clearEntry(i int) {
	atomic.StorePointer(&b.pointers[i], nil)
	atomic.StoreUint32(&b.hashes[i], 0)
}

// moveEntry moves from[j] into to[i] and empties from[j].
func moveEntry(to *bucket, i int, from *bucket, j int) {
	if debugAssert {
		if to == from && i == j {
			panic("qht: entry moved onto itself")
		}
		if to.pointers[i] == nil || from.pointers[j] == nil {
			panic("qht: entry moved from or to an empty slot")
		}
	}
	atomic.StoreUint32(&to.hashes[i], from.hashes[j])
	atomic.StorePointer(&to.pointers[i], from.pointers[j])
	from.clearEntry(j)
}

// removeEntry empties orig.pointers[pos] by moving the chain's last occupied
// slot into it, keeping the chain gap-free. Call inside a write section of
// the chain's seqLock.
func removeEntry(orig *bucket, pos int) {
	if orig.entryIsLast(pos) {
		orig.clearEntry(pos)
		return
	}
	var prev *bucket
	for b := orig; b != nil; b = (*bucket)(b.next) {
		for i := 0; i < bucketEntries; i++ {
			if b.pointers[i] != nil {
				continue
			}
			if i > 0 {
				moveEntry(orig, pos, b, i-1)
				return
			}
			if debugAssert && prev == nil {
				panic("qht: gap at the start of an overflow bucket")
			}
			moveEntry(orig, pos, prev, bucketEntries-1)
			return
		}
		prev = b
	}
	// the chain is full: the last slot of the last bucket moves
	moveEntry(orig, pos, prev, bucketEntries-1)
}

// removeLocked removes p from the chain rooted at head.
func removeLocked(head *bucket, p unsafe.Pointer, hash uint32) bool {
	for b := head; b != nil; b = (*bucket)(b.next) {
		for i := 0; i < bucketEntries; i++ {
			q := b.pointers[i]
			if q == nil {
				return false
			}
			if q == p {
				if debugAssert && b.hashes[i] != hash {
					panic(fmt.Sprintf("qht: pointer %p stored with hash %#x, removed with %#x",
						p, b.hashes[i], hash))
				}
				head.seq.writeBegin()
				removeEntry(b, i)
				head.seq.writeEnd()
				return true
			}
		}
	}
	return false
}

// resetLocked empties the chain rooted at head. Overflow buckets stay linked
// and are reused by later insertions.
func resetLocked(head *bucket) {
	head.seq.writeBegin()
	for b := head; b != nil; b = (*bucket)(b.next) {
		for i := 0; i < bucketEntries; i++ {
			if b.pointers[i] == nil {
				head.seq.writeEnd()
				return
			}
			b.clearEntry(i)
		}
	}
	head.seq.writeEnd()
}

// visitLocked calls fn for every entry of the chain, stopping early when fn
// returns false. It reports whether the visit ran to completion.
func visitLocked(head *bucket, fn func(p unsafe.Pointer, hash uint32) bool) bool {
	for b := head; b != nil; b = (*bucket)(b.next) {
		for i := 0; i < bucketEntries; i++ {
			if b.pointers[i] == nil {
				return true
			}
			if !fn(b.pointers[i], b.hashes[i]) {
				return false
			}
		}
	}
	return true
}

// removeIfLocked removes every entry of the chain for which fn returns true.
func removeIfLocked(head *bucket, fn func(p unsafe.Pointer, hash uint32) bool) {
	for b := head; b != nil; b = (*bucket)(b.next) {
		for i := 0; i < bucketEntries; i++ {
			if b.pointers[i] == nil {
				return
			}
			if fn(b.pointers[i], b.hashes[i]) {
				head.seq.writeBegin()
				removeEntry(b, i)
				head.seq.writeEnd()
				debugCheckChain(head)
				// reevaluate i, the last entry of the chain just moved into it
				i--
			}
		}
	}
}

// debugCheckChain panics if the chain has an occupied slot after an empty one.
// It compiles to nothing unless built with the qht_debug tag.
func debugCheckChain(head *bucket) {
	if !debugAssert {
		return
	}
	seenEmpty := false
	for b := head; b != nil; b = (*bucket)(b.next) {
		for i := 0; i < bucketEntries; i++ {
			if b.pointers[i] == nil {
				seenEmpty = true
				continue
			}
			if seenEmpty {
				panic(fmt.Sprintf("qht: corrupt chain: b: %p, pos: %d, hash: %#x, p: %p",
					b, i, b.hashes[i], b.pointers[i]))
			}
		}
	}
}
