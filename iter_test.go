package qht

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRange(t *testing.T) {
	tbl := New[item](itemEqual, 64, 0)
	tbl.Range(func(*item, uint32) bool {
		t.Fatal("visited an empty table")
		return true
	})

	items := newItems(300, hashOf)
	for i := range items {
		tbl.Insert(&items[i], items[i].hash)
	}
	seen := make(map[uint64]int)
	tbl.Range(func(p *item, hash uint32) bool {
		require.Equal(t, p.hash, hash)
		seen[p.key]++
		return true
	})
	require.Len(t, seen, len(items))
	for k, n := range seen {
		require.Equal(t, 1, n, "key %d", k)
	}
}

func TestRangeOrder(t *testing.T) {
	// one head bucket: visit order is insertion order along the chain
	tbl := New[item](itemEqual, 0, 0)
	items := newItems(3*bucketEntries+1, hashOf)
	for i := range items {
		tbl.Insert(&items[i], items[i].hash)
	}
	var keys []uint64
	tbl.Range(func(p *item, _ uint32) bool {
		keys = append(keys, p.key)
		return true
	})
	for i := range keys {
		require.Equal(t, uint64(i), keys[i])
	}
}

func TestRangeStop(t *testing.T) {
	tbl := New[item](itemEqual, 64, 0)
	items := newItems(100, hashOf)
	for i := range items {
		tbl.Insert(&items[i], items[i].hash)
	}
	n := 0
	tbl.Range(func(*item, uint32) bool {
		n++
		return n < 10
	})
	require.Equal(t, 10, n)

	// locks were released
	require.True(t, tbl.Remove(&items[0], items[0].hash))
}

func TestRangeUnlocksOnPanic(t *testing.T) {
	tbl := New[item](itemEqual, 64, 0)
	items := newItems(10, hashOf)
	for i := range items {
		tbl.Insert(&items[i], items[i].hash)
	}
	require.Panics(t, func() {
		tbl.Range(func(*item, uint32) bool { panic("boom") })
	})
	require.True(t, tbl.Remove(&items[0], items[0].hash))
	require.True(t, tbl.Resize(1024))
}

func TestRangeRemove(t *testing.T) {
	tbl := New[item](itemEqual, 16, 0)
	items := newItems(1000, hashOf)
	for i := range items {
		tbl.Insert(&items[i], items[i].hash)
	}

	visited := 0
	tbl.RangeRemove(func(p *item, _ uint32) bool {
		visited++
		return p.key%3 == 0
	})
	require.Equal(t, len(items), visited)

	for i := range items {
		got := tbl.Lookup(&items[i], items[i].hash)
		if i%3 == 0 {
			require.Nil(t, got, "key %d", i)
		} else {
			require.Same(t, &items[i], got, "key %d", i)
		}
	}
	m := tbl.m.Load()
	for i := range m.buckets {
		require.Zero(t, emptyGaps(&m.buckets[i]), "chain %d", i)
	}

	tbl.RangeRemove(func(*item, uint32) bool { return true })
	require.Zero(t, countEntries(tbl))
}

func TestRangeRemoveSingleChain(t *testing.T) {
	// every entry lands in the one chain, so removals keep moving the tail
	// into the slot under the cursor
	tbl := New[item](itemEqual, 0, 0)
	items := newItems(5*bucketEntries+2, hashOf)
	for i := range items {
		tbl.Insert(&items[i], items[i].hash)
	}
	visited := make(map[uint64]bool)
	tbl.RangeRemove(func(p *item, _ uint32) bool {
		require.False(t, visited[p.key], "key %d visited twice", p.key)
		visited[p.key] = true
		return p.key%2 == 1
	})
	require.Len(t, visited, len(items))

	var keys []uint64
	tbl.Range(func(p *item, _ uint32) bool {
		keys = append(keys, p.key)
		return true
	})
	require.Len(t, keys, (len(items)+1)/2)
	for _, k := range keys {
		require.Zero(t, k%2)
	}
	require.Zero(t, emptyGaps(&tbl.m.Load().buckets[0]))
}

// emptyGaps counts occupied slots that follow an empty one.
func emptyGaps(head *bucket) int {
	gaps, seenEmpty := 0, false
	for _, k := range chainOf(head) {
		switch {
		case k < 0:
			seenEmpty = true
		case seenEmpty:
			gaps++
		}
	}
	return gaps
}
