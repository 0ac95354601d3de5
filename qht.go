package qht

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	logging "github.com/op/go-logging"
)

var log = logging.MustGetLogger("qht")

// Structural events are logged at DEBUG; stay quiet unless the program
// installs its own backend or raises the level of the "qht" module.
func init() {
	logging.SetLevel(logging.WARNING, "qht")
}

// Mode selects optional Table behavior at creation time.
type Mode uint

const (
	// ModeAutoResize doubles the number of head buckets once the number of
	// overflow buckets added to the current map exceeds its threshold.
	ModeAutoResize Mode = 1 << iota
	// ModeRawMutexes makes the table lock a plain mutex. Without it, the
	// table lock records acquisitions, contention and wait time, reported
	// by Stats.
	ModeRawMutexes
)

// CmpFunc reports whether a and b match exactly. The table calls it with a
// stored value as a, and with either the value being inserted or the
// lookup argument as b.
type CmpFunc[T any] func(a, b *T) bool

// Config defines configurable Table options.
type Config struct {
	lockStripes int
}

// WithLockStripes configures the table to share n spinlocks among all head
// buckets instead of giving each chain its own lock. n is rounded up to a
// power of two; zero or negative values select one lock per chain.
//
// Tools that track every held lock (race detectors, lock profilers) can
// cope with the table-wide operations this way, since those acquire at
// most n locks instead of one per head bucket.
func WithLockStripes(n int) func(*Config) {
	return func(c *Config) {
		c.lockStripes = n
	}
}

// Table is a concurrent hash table of non-nil *T values keyed by a 32-bit
// hash and an exact-match comparator. It is designed for read-mostly
// workloads:
//   - Lookups never lock and never write to shared memory. A lookup that
//     races with a writer on the same chain retries via the chain's
//     sequence counter.
//   - Insertions and removals lock only the chain they touch, so writers
//     to different chains run in parallel.
//   - Resize, Reset, ResetSize, Range and RangeRemove lock every chain.
//     They are serialized with writers but not with lookups.
//
// The table stores pointers, not copies: a value's identity is its address,
// and Remove matches by identity. It is the caller's responsibility not to
// insert the same pointer under two different hashes, and not to mutate
// the fields a CmpFunc looks at while the value is in the table.
//
// A Table must not be copied after first use.
type Table[T any] struct {
	_           noCopy
	m           atomic.Pointer[qhtMap]
	lock        tableLock
	cmp         CmpFunc[T]
	mode        Mode
	lockStripes int
}

// New creates a Table sized for nElems elements.
//
// Parameters:
//   - cmp: exact-match comparator, must not be nil
//   - nElems: expected number of elements, converted to a power-of-two
//     number of head buckets
//   - mode: ModeAutoResize, ModeRawMutexes or zero
//   - WithLockStripes option for striped chain locks
func New[T any](
	cmp CmpFunc[T],
	nElems int,
	mode Mode,
	options ...func(*Config),
) *Table[T] {
	t := &Table[T]{}
	t.Init(cmp, nElems, mode, options...)
	return t
}

// Init initializes a zero Table in place. See New.
//
// Notes:
//   - This function is not thread-safe and can only be used before the
//     Table is utilized.
func (t *Table[T]) Init(
	cmp CmpFunc[T],
	nElems int,
	mode Mode,
	options ...func(*Config),
) {
	if cmp == nil {
		panic("qht: nil CmpFunc")
	}
	c := &Config{lockStripes: defaultLockStripes}
	for _, o := range options {
		o(c)
	}

	t.cmp = cmp
	t.mode = mode
	t.lock.raw = mode&ModeRawMutexes != 0
	if c.lockStripes > 0 {
		t.lockStripes = nextPowOf2(c.lockStripes)
	}
	t.m.Store(newQhtMap(elemsToBuckets(nElems), t.lockStripes))
}

// Destroy tears down the current map. Call it only when no reader or writer
// can still use the table; it is not synchronized with other operations.
func (t *Table[T]) Destroy() {
	if m := t.m.Load(); m != nil {
		m.destroy()
	}
	t.m.Store(nil)
}

// Buckets returns the number of head buckets of the current map, or zero
// once the table has been destroyed.
func (t *Table[T]) Buckets() int {
	m := t.m.Load()
	if m == nil {
		return 0
	}
	return len(m.buckets)
}

func (t *Table[T]) String() string {
	m := t.m.Load()
	if m == nil {
		return "qht.Table{destroyed}"
	}
	return fmt.Sprintf("qht.Table{buckets: %d, added: %d/%d}",
		len(m.buckets), m.added.Load(), m.threshold)
}

// noCopy may be added to structs which must not be copied
// after the first use. See go vet's copylocks checker.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

//go:nosplit
func ptrOf[T any](p *T) unsafe.Pointer {
	return unsafe.Pointer(p)
}
