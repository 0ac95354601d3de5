//go:build qht_opt_cachelinesize_128

package qht

const CacheLineSize uintptr = 128
