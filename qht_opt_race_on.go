//go:build race

package qht

import "sync/atomic"

// Under race detector, disable TSO optimizations and use conservative
// atomic loads.
const isTSO = false

// Race-enabled runs use shared chain locks, so the striped paths get
// checked by the detector too.
const defaultLockStripes = 16

// Conservative: atomic load to satisfy race detector
//
//go:nosplit
func loadHash(addr *uint32) uint32 {
	return atomic.LoadUint32(addr)
}
