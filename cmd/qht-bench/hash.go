package main

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/dolthub/maphash"
)

type hashFunc func(k uint64) uint32

// newHashFunc returns a 32-bit hash for the bench keys. xxhash is stable
// across runs; maphash uses the runtime's seeded hasher, so bucket layouts
// differ from run to run.
func newHashFunc(name string) hashFunc {
	switch name {
	case "maphash":
		h := maphash.NewHasher[uint64]()
		return func(k uint64) uint32 {
			return fold(h.Hash(k))
		}
	default:
		return func(k uint64) uint32 {
			var buf [8]byte
			binary.LittleEndian.PutUint64(buf[:], k)
			return fold(xxhash.Sum64(buf[:]))
		}
	}
}

func fold(h uint64) uint32 {
	return uint32(h) ^ uint32(h>>32)
}
