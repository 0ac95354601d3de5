package qht

// Remove removes p, previously inserted under hash. It reports whether p
// was found.
func (t *Table[T]) Remove(p *T, hash uint32) bool {
	if debugAssert && p == nil {
		panic("qht: nil pointers are not supported")
	}

	m, idx := t.bucketLockNoStale(hash)
	head := &m.buckets[idx]
	ret := removeLocked(head, ptrOf(p), hash)
	debugCheckChain(head)
	m.unlockBucket(idx)
	return ret
}
