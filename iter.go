package qht

import "unsafe"

// Range calls fn for every entry, in bucket order and then chain order,
// until fn returns false. All chains are locked for the duration: writers
// wait, lookups do not. fn must not call Insert, Remove or any operation
// that locks the table.
func (t *Table[T]) Range(fn func(p *T, hash uint32) bool) {
	m := t.lockAllNoStale()
	defer m.unlockAll()
	m.visitAllLocked(func(p unsafe.Pointer, hash uint32) bool {
		return fn((*T)(p), hash)
	})
}

// All returns an iterator function for use with range-over-func.
// It provides the same functionality as Range but in iterator form.
//
//go:nosplit
func (t *Table[T]) All() func(yield func(*T, uint32) bool) { return t.Range }

// RangeRemove calls fn for every entry and removes those for which fn
// returns true. Locking is as for Range.
func (t *Table[T]) RangeRemove(fn func(p *T, hash uint32) bool) {
	m := t.lockAllNoStale()
	defer m.unlockAll()
	m.removeIfAllLocked(func(p unsafe.Pointer, hash uint32) bool {
		return fn((*T)(p), hash)
	})
}

// lockAllNoStale locks every chain of the current map and returns it,
// retrying under the table lock if a resize replaced the map meanwhile.
// Pairs with unlockAll. Callers cannot hold the table lock.
func (t *Table[T]) lockAllNoStale() *qhtMap {
	m := t.m.Load()
	m.lockAll()
	if m == t.m.Load() {
		return m
	}
	m.unlockAll()

	t.lock.lock()
	m = t.m.Load()
	m.lockAll()
	t.lock.unlock()
	return m
}
