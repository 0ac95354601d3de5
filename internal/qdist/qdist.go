// Package qdist records a distribution of float64 samples and renders it as
// a compact histogram.
package qdist

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"
)

// Entry is one distinct sample value and how many times it was seen.
type Entry struct {
	X     float64
	Count uint64
}

// Dist is a set of Entry values sorted by X. The zero value is an empty
// distribution. A Dist is not safe for concurrent use.
type Dist struct {
	entries []Entry
}

func New() *Dist {
	return &Dist{}
}

// Inc records one sample of x.
func (d *Dist) Inc(x float64) {
	d.Add(x, 1)
}

// Add records count samples of x.
func (d *Dist) Add(x float64, count uint64) {
	i, found := slices.BinarySearchFunc(d.entries, x, func(e Entry, x float64) int {
		return cmp.Compare(e.X, x)
	})
	if found {
		d.entries[i].Count += count
		return
	}
	d.entries = slices.Insert(d.entries, i, Entry{X: x, Count: count})
}

// Entries returns a copy of the entries, sorted by X.
func (d *Dist) Entries() []Entry {
	return slices.Clone(d.entries)
}

// UniqueEntries returns the number of distinct sample values.
func (d *Dist) UniqueEntries() int {
	return len(d.entries)
}

// SampleCount returns the total number of samples.
func (d *Dist) SampleCount() uint64 {
	var n uint64
	for _, e := range d.entries {
		n += e.Count
	}
	return n
}

// Avg returns the mean of all samples, or NaN for an empty distribution.
func (d *Dist) Avg() float64 {
	count := d.SampleCount()
	if count == 0 {
		return math.NaN()
	}
	var sum float64
	for _, e := range d.entries {
		sum += e.X * float64(e.Count)
	}
	return sum / float64(count)
}

// XMin returns the smallest sample, or NaN for an empty distribution.
func (d *Dist) XMin() float64 {
	if len(d.entries) == 0 {
		return math.NaN()
	}
	return d.entries[0].X
}

// XMax returns the largest sample, or NaN for an empty distribution.
func (d *Dist) XMax() float64 {
	if len(d.entries) == 0 {
		return math.NaN()
	}
	return d.entries[len(d.entries)-1].X
}

// Bin returns a copy of d regrouped into n equal-width bins spanning
// [XMin, XMax]. Each bin is keyed by its left edge; empty bins are kept so
// that the bins are evenly spaced. With n <= 0, or when d has at most one
// entry, the copy is not regrouped.
func (d *Dist) Bin(n int) *Dist {
	out := &Dist{}
	if n <= 0 || len(d.entries) <= 1 {
		out.entries = slices.Clone(d.entries)
		return out
	}

	xmin, xmax := d.XMin(), d.XMax()
	step := (xmax - xmin) / float64(n)
	out.entries = make([]Entry, n)
	for i := range out.entries {
		out.entries[i].X = xmin + float64(i)*step
	}
	for _, e := range d.entries {
		j := int((e.X - xmin) / step)
		// xmax belongs to the last bin
		if j >= n {
			j = n - 1
		}
		out.entries[j].Count += e.Count
	}
	return out
}

var bars = []rune("▁▂▃▄▅▆▇█")

// Histogram renders d, binned into at most n bins (all entries when n <= 0),
// as one bar per bin. With border set, the bars are framed by the sample
// range, as in "1.0|▁▅█|4.0".
func (d *Dist) Histogram(n int, border bool) string {
	if len(d.entries) == 0 {
		return "(empty)"
	}
	binned := d
	if n > 0 && n < len(d.entries) {
		binned = d.Bin(n)
	}

	var peak uint64
	for _, e := range binned.entries {
		if e.Count > peak {
			peak = e.Count
		}
	}
	var sb strings.Builder
	if border {
		sb.WriteString(fmt.Sprintf("%.1f|", d.XMin()))
	}
	for _, e := range binned.entries {
		if e.Count == 0 {
			sb.WriteRune(' ')
			continue
		}
		// nonzero counts always get at least the lowest bar
		idx := int((e.Count*uint64(len(bars)) - 1) / peak)
		sb.WriteRune(bars[min(idx, len(bars)-1)])
	}
	if border {
		sb.WriteString(fmt.Sprintf("|%.1f", d.XMax()))
	}
	return sb.String()
}

// PrPlain renders d, binned like Histogram, as "x:count" pairs.
func (d *Dist) PrPlain(n int) string {
	binned := d
	if n > 0 && n < len(d.entries) {
		binned = d.Bin(n)
	}
	parts := make([]string, 0, len(binned.entries))
	for _, e := range binned.entries {
		parts = append(parts, fmt.Sprintf("%g:%d", e.X, e.Count))
	}
	return strings.Join(parts, " ")
}
