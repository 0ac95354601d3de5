//go:build !race

package qht

import (
	"runtime"
	"sync/atomic"
)

// Detect TSO architectures; on TSO, plain 32-bit loads are never torn and
// never reordered with other loads.
const isTSO = runtime.GOARCH == "amd64" ||
	runtime.GOARCH == "386" ||
	runtime.GOARCH == "s390x"

// defaultLockStripes of zero gives every chain its own lock.
const defaultLockStripes = 0

// loadHash reads a slot hash on the lookup path. The result is only
// trusted after the chain's sequence check, so a relaxed read is enough.
//
//go:nosplit
func loadHash(addr *uint32) uint32 {
	//goland:noinspection ALL
	if isTSO {
		return *addr
	} else {
		return atomic.LoadUint32(addr)
	}
}
