package qht

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/llxisdsh/qht/internal/qdist"
)

// Stats is a sample of the shape of a Table.
type Stats struct {
	// HeadBuckets is the number of head buckets of the map.
	HeadBuckets int
	// UsedHeadBuckets is the number of non-empty chains.
	UsedHeadBuckets int
	// Entries is the number of stored values.
	Entries int
	// Chain is the distribution of chain lengths, in buckets, over the
	// non-empty chains.
	Chain *qdist.Dist
	// Occupancy is the distribution of the fraction of occupied slots
	// per chain, empty chains included.
	Occupancy *qdist.Dist
	// Lock reports contention on the table lock.
	Lock LockStats
}

// Stats samples the table without locking it. Each chain is read
// consistently, but chains are not read at the same instant, so under
// concurrent writes the totals are approximate.
func (t *Table[T]) Stats() *Stats {
	s := &Stats{
		Chain:     qdist.New(),
		Occupancy: qdist.New(),
		Lock:      t.lock.stats(),
	}
	m := t.m.Load()
	// bail out if the table has been destroyed
	if m == nil {
		return s
	}
	s.HeadBuckets = len(m.buckets)

	for i := range m.buckets {
		head := &m.buckets[i]
		var buckets, entries int
		for {
			version := head.seq.readBegin()
			buckets, entries = chainSize(head)
			if !head.seq.readRetry(version) {
				break
			}
		}

		if entries == 0 {
			s.Occupancy.Inc(0)
			continue
		}
		s.Chain.Inc(float64(buckets))
		s.Occupancy.Inc(float64(entries) / float64(bucketEntries) / float64(buckets))
		s.UsedHeadBuckets++
		s.Entries += entries
	}
	return s
}

func chainSize(head *bucket) (buckets, entries int) {
	for b := head; b != nil; b = b.loadNext() {
		for j := 0; j < bucketEntries; j++ {
			if atomic.LoadPointer(&b.pointers[j]) == nil {
				break
			}
			entries++
		}
		buckets++
	}
	return buckets, entries
}

// String returns a human readable summary including histograms of both
// distributions.
func (s *Stats) String() string {
	var sb strings.Builder
	sb.WriteString("Stats{\n")
	sb.WriteString(fmt.Sprintf("HeadBuckets:     %d\n", s.HeadBuckets))
	if s.HeadBuckets > 0 {
		sb.WriteString(fmt.Sprintf("UsedHeadBuckets: %d (%.2f%%)\n",
			s.UsedHeadBuckets, float64(s.UsedHeadBuckets)*100/float64(s.HeadBuckets)))
	}
	sb.WriteString(fmt.Sprintf("Entries:         %d\n", s.Entries))
	if s.Chain.SampleCount() > 0 {
		sb.WriteString(fmt.Sprintf("Chain:           avg %.2f buckets, %s\n",
			s.Chain.Avg(), s.Chain.Histogram(10, true)))
	}
	if s.Occupancy.SampleCount() > 0 {
		sb.WriteString(fmt.Sprintf("Occupancy:       avg %.2f%%, %s\n",
			s.Occupancy.Avg()*100, s.Occupancy.Histogram(10, true)))
	}
	sb.WriteString(fmt.Sprintf("Lock:            %d acquired, %d contended, %s waited\n",
		s.Lock.Acquired, s.Lock.Contended, s.Lock.Waited))
	sb.WriteString("}\n")
	return sb.String()
}
