//go:build qht_opt_cachelinesize_64

package qht

const CacheLineSize uintptr = 64
