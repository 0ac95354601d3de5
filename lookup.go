package qht

import "sync/atomic"

// Lookup returns the value stored under hash for which the table's CmpFunc
// returns true when called with userp, or nil if there is none.
// It never blocks.
func (t *Table[T]) Lookup(userp *T, hash uint32) *T {
	return t.LookupCustom(userp, hash, t.cmp)
}

// LookupCustom is like Lookup but matches with fn instead of the table's
// CmpFunc.
func (t *Table[T]) LookupCustom(userp *T, hash uint32, fn CmpFunc[T]) *T {
	m := t.m.Load()
	b := &m.buckets[m.bucketIndex(hash)]

	version := b.seq.readBegin()
	ret := doLookup(b, fn, userp, hash)
	if !b.seq.readRetry(version) {
		return ret
	}
	return lookupSlowPath(b, fn, userp, hash)
}

//go:noinline
func lookupSlowPath[T any](b *bucket, fn CmpFunc[T], userp *T, hash uint32) *T {
	for {
		version := b.seq.readBegin()
		ret := doLookup(b, fn, userp, hash)
		if !b.seq.readRetry(version) {
			return ret
		}
	}
}

// doLookup scans the whole chain. The pointer is loaded atomically because
// fn dereferences it before the caller's sequence check; a stale pointer is
// still a live object, it is only the match that may be wrong, and the
// retry takes care of that.
func doLookup[T any](head *bucket, fn CmpFunc[T], userp *T, hash uint32) *T {
	for b := head; b != nil; b = b.loadNext() {
		for i := 0; i < bucketEntries; i++ {
			if loadHash(&b.hashes[i]) != hash {
				continue
			}
			if p := (*T)(atomic.LoadPointer(&b.pointers[i])); p != nil && fn(p, userp) {
				return p
			}
		}
	}
	return nil
}
