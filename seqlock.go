package qht

import "sync/atomic"

// seqLock is the optimistic version counter of a chain. The sequence is
// even when the chain is stable and odd while a writer is modifying it.
// Writers must hold the chain lock.
type seqLock struct {
	sequence uint32
}

//go:nosplit
func (s *seqLock) writeBegin() {
	atomic.StoreUint32(&s.sequence, s.sequence+1)
}

//go:nosplit
func (s *seqLock) writeEnd() {
	atomic.StoreUint32(&s.sequence, s.sequence+1)
}

// readBegin returns the current sequence with the low bit cleared, so a read
// that starts while a write is in progress always fails readRetry.
//
//go:nosplit
func (s *seqLock) readBegin() uint32 {
	return atomic.LoadUint32(&s.sequence) &^ 1
}

//go:nosplit
func (s *seqLock) readRetry(start uint32) bool {
	return atomic.LoadUint32(&s.sequence) != start
}
