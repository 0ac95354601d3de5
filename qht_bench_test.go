package qht

import (
	"strconv"
	"sync"
	"testing"

	"github.com/cespare/xxhash/v2"
)

type strItem struct {
	s    string
	hash uint32
}

func strItemEqual(a, b *strItem) bool {
	return a.s == b.s
}

const (
	benchSmall = 100
	benchMid   = 10_000
	benchLarge = 1_000_000
)

var (
	benchDataOnce sync.Once
	benchData     []strItem
)

func benchItems(n int) []strItem {
	benchDataOnce.Do(func() {
		benchData = make([]strItem, benchLarge)
		for i := range benchData {
			s := "key-" + strconv.Itoa(i)
			h := xxhash.Sum64String(s)
			benchData[i] = strItem{s: s, hash: uint32(h) ^ uint32(h>>32)}
		}
	})
	return benchData[:n]
}

func BenchmarkLookupSmall(b *testing.B) {
	benchmarkLookup(b, benchItems(benchSmall))
}

func BenchmarkLookup(b *testing.B) {
	benchmarkLookup(b, benchItems(benchMid))
}

func BenchmarkLookupLarge(b *testing.B) {
	benchmarkLookup(b, benchItems(benchLarge))
}

func benchmarkLookup(b *testing.B, data []strItem) {
	b.ReportAllocs()
	tbl := New[strItem](strItemEqual, len(data), ModeAutoResize)
	for i := range data {
		tbl.Insert(&data[i], data[i].hash)
	}
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			_ = tbl.Lookup(&data[i], data[i].hash)
			i++
			if i >= len(data) {
				i = 0
			}
		}
	})
}

func BenchmarkInsertRemove(b *testing.B) {
	benchmarkInsertRemove(b, benchItems(benchMid))
}

func BenchmarkInsertRemoveLarge(b *testing.B) {
	benchmarkInsertRemove(b, benchItems(benchLarge))
}

func benchmarkInsertRemove(b *testing.B, data []strItem) {
	b.ReportAllocs()
	tbl := New[strItem](strItemEqual, len(data), ModeAutoResize)
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			if _, ok := tbl.Insert(&data[i], data[i].hash); !ok {
				tbl.Remove(&data[i], data[i].hash)
			}
			i++
			if i >= len(data) {
				i = 0
			}
		}
	})
}

func BenchmarkMixed(b *testing.B) {
	data := benchItems(benchMid)
	b.ReportAllocs()
	tbl := New[strItem](strItemEqual, len(data), ModeAutoResize)
	for i := 0; i < len(data); i += 2 {
		tbl.Insert(&data[i], data[i].hash)
	}
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			// one update per 16 lookups
			if i%16 == 0 {
				if !tbl.Remove(&data[i], data[i].hash) {
					tbl.Insert(&data[i], data[i].hash)
				}
			} else {
				_ = tbl.Lookup(&data[i], data[i].hash)
			}
			i++
			if i >= len(data) {
				i = 0
			}
		}
	})
}

func BenchmarkGrowth(b *testing.B) {
	data := benchItems(benchMid)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		tbl := New[strItem](strItemEqual, 0, ModeAutoResize)
		for j := range data {
			tbl.Insert(&data[j], data[j].hash)
		}
	}
}
