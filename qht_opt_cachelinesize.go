//go:build !qht_opt_cachelinesize_64 && !qht_opt_cachelinesize_128

package qht

import (
	"unsafe"

	"golang.org/x/sys/cpu"
)

// CacheLineSize is used in bucket padding to prevent false sharing.
// It's automatically calculated using the `golang.org/x/sys` package.
const CacheLineSize = unsafe.Sizeof(cpu.CacheLinePad{})
