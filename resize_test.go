package qht

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(tbl *Table[item]) map[*item]uint32 {
	seen := make(map[*item]uint32)
	tbl.Range(func(p *item, hash uint32) bool {
		seen[p] = hash
		return true
	})
	return seen
}

func TestResizePreservesEntries(t *testing.T) {
	items := newItems(2000, hashOf)
	for _, nElems := range []int{0, 1, bucketEntries * 3, 512, 4096, 1 << 16} {
		tbl := New[item](itemEqual, 64, 0)
		for i := range items {
			tbl.Insert(&items[i], items[i].hash)
		}
		before := collect(tbl)
		require.Len(t, before, len(items))

		resized := tbl.Resize(nElems)
		assert.Equal(t, elemsToBuckets(nElems), tbl.Buckets())
		assert.Equal(t, elemsToBuckets(nElems) != elemsToBuckets(64), resized)

		require.Equal(t, before, collect(tbl), "resize to %d elements", nElems)
		for i := range items {
			require.Same(t, &items[i], tbl.Lookup(&items[i], items[i].hash))
		}
	}
}

func TestResizeSameSize(t *testing.T) {
	tbl := New[item](itemEqual, 64, 0)
	m := tbl.m.Load()
	require.False(t, tbl.Resize(64))
	require.Same(t, m, tbl.m.Load())
	require.False(t, m.retired.Load())
}

func TestResizeRetiresOldMap(t *testing.T) {
	tbl := New[item](itemEqual, 64, 0)
	items := newItems(100, hashOf)
	for i := range items {
		tbl.Insert(&items[i], items[i].hash)
	}
	old := tbl.m.Load()
	require.True(t, tbl.Resize(1024))
	require.True(t, old.retired.Load())
	require.NotSame(t, old, tbl.m.Load())

	// the retired map still answers lookups that loaded it earlier
	version := old.buckets[old.bucketIndex(items[0].hash)].seq.readBegin()
	got := doLookup(&old.buckets[old.bucketIndex(items[0].hash)], itemEqual, &items[0], items[0].hash)
	require.Same(t, &items[0], got)
	require.False(t, old.buckets[old.bucketIndex(items[0].hash)].seq.readRetry(version))
}

// sameChain returns n items whose hashes all select head bucket 0 of a
// table with nBuckets head buckets.
func sameChain(n, nBuckets int) []item {
	return newItems(n, func(i int) uint32 { return uint32((i + 1) * nBuckets) })
}

func TestAutoResize(t *testing.T) {
	tbl := New[item](itemEqual, 4*bucketEntries, ModeAutoResize)
	require.Equal(t, 4, tbl.Buckets())
	require.Equal(t, int64(1), tbl.m.Load().threshold)

	// the head bucket plus one overflow bucket: at the threshold
	items := sameChain(3*bucketEntries, 4)
	for i := 0; i < 2*bucketEntries; i++ {
		tbl.Insert(&items[i], items[i].hash)
	}
	require.Equal(t, 4, tbl.Buckets())
	require.Equal(t, int64(1), tbl.m.Load().added.Load())

	// a second overflow bucket crosses it
	tbl.Insert(&items[2*bucketEntries], items[2*bucketEntries].hash)
	require.Equal(t, 8, tbl.Buckets())

	for i := 2*bucketEntries + 1; i < len(items); i++ {
		tbl.Insert(&items[i], items[i].hash)
	}
	require.Len(t, collect(tbl), len(items))
	for i := range items {
		require.Same(t, &items[i], tbl.Lookup(&items[i], items[i].hash))
	}
}

func TestNoAutoResize(t *testing.T) {
	tbl := New[item](itemEqual, 4*bucketEntries, 0)
	items := sameChain(10*bucketEntries, 4)
	for i := range items {
		tbl.Insert(&items[i], items[i].hash)
	}
	require.Equal(t, 4, tbl.Buckets())
	require.Equal(t, int64(9), tbl.m.Load().added.Load())
	require.True(t, tbl.m.Load().needsResize())
}

func TestAutoResizeSkippedWhileLocked(t *testing.T) {
	tbl := New[item](itemEqual, 4*bucketEntries, ModeAutoResize)
	items := sameChain(3*bucketEntries, 4)

	tbl.lock.lock()
	for i := range items {
		tbl.Insert(&items[i], items[i].hash)
	}
	tbl.lock.unlock()
	require.Equal(t, 4, tbl.Buckets())

	// the next overflow bucket tries again
	more := sameChain(4*bucketEntries, 4)[3*bucketEntries:]
	tbl.Insert(&more[0], more[0].hash)
	require.Equal(t, 8, tbl.Buckets())
}

func TestReset(t *testing.T) {
	tbl := New[item](itemEqual, 16, ModeAutoResize)
	items := newItems(500, hashOf)
	for i := range items {
		tbl.Insert(&items[i], items[i].hash)
	}
	buckets := tbl.Buckets()
	m := tbl.m.Load()

	tbl.Reset()
	require.Same(t, m, tbl.m.Load())
	require.Equal(t, buckets, tbl.Buckets())
	require.Zero(t, countEntries(tbl))
	for i := range items {
		require.Nil(t, tbl.Lookup(&items[i], items[i].hash))
	}

	// still usable
	for i := range items {
		_, inserted := tbl.Insert(&items[i], items[i].hash)
		require.True(t, inserted)
	}
	require.Equal(t, len(items), countEntries(tbl))
}

func TestResetSize(t *testing.T) {
	tbl := New[item](itemEqual, 64, 0)
	items := newItems(200, hashOf)
	for i := range items {
		tbl.Insert(&items[i], items[i].hash)
	}

	require.False(t, tbl.ResetSize(64))
	require.Equal(t, elemsToBuckets(64), tbl.Buckets())
	require.Zero(t, countEntries(tbl))

	for i := range items {
		tbl.Insert(&items[i], items[i].hash)
	}
	old := tbl.m.Load()
	require.True(t, tbl.ResetSize(1024))
	require.Equal(t, elemsToBuckets(1024), tbl.Buckets())
	require.True(t, old.retired.Load())
	require.Zero(t, countEntries(tbl))
}
