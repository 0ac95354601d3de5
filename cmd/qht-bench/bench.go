package main

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/llxisdsh/qht"
)

type key struct {
	val  uint64
	hash uint32
}

func keyEqual(a, b *key) bool {
	return a.val == b.val
}

type bench struct {
	cfg  *benchConfig
	tbl  *qht.Table[key]
	keys []key

	lookups     atomic.Uint64
	hits        atomic.Uint64
	inserts     atomic.Uint64
	insertsDone atomic.Uint64
	removes     atomic.Uint64
	removesDone atomic.Uint64
	resizes     atomic.Uint64
	resizesDone atomic.Uint64
}

type result struct {
	elapsed time.Duration

	lookups, hits        uint64
	inserts, insertsDone uint64
	removes, removesDone uint64
	resizes, resizesDone uint64
}

func newBench(cfg *benchConfig) *bench {
	var mode qht.Mode
	if cfg.autoResize {
		mode |= qht.ModeAutoResize
	}
	var options []func(*qht.Config)
	if cfg.stripes > 0 {
		options = append(options, qht.WithLockStripes(cfg.stripes))
	}

	b := &bench{
		cfg:  cfg,
		tbl:  qht.New[key](keyEqual, cfg.initSize, mode, options...),
		keys: make([]key, max(cfg.initRange, cfg.lookupRange)),
	}
	hash := newHashFunc(cfg.hash)
	for i := range b.keys {
		b.keys[i] = key{val: uint64(i), hash: hash(uint64(i))}
	}
	return b
}

// populate inserts initSize distinct keys picked from the initial range.
func (b *bench) populate(r *rand.Rand) {
	for _, i := range r.Perm(b.cfg.initRange)[:b.cfg.initSize] {
		k := &b.keys[i]
		b.tbl.Insert(k, k.hash)
	}
}

func (b *bench) run(ctx context.Context) (*result, *qht.Table[key]) {
	b.populate(rand.New(rand.NewPCG(b.cfg.seed, 0)))

	ctx, cancel := context.WithTimeout(ctx, b.cfg.duration)
	defer cancel()

	var wg sync.WaitGroup
	start := time.Now()
	for i := 0; i < b.cfg.workers; i++ {
		wg.Add(1)
		go func(r *rand.Rand) {
			defer wg.Done()
			b.rwWorker(ctx, r)
		}(rand.New(rand.NewPCG(b.cfg.seed, uint64(i)+1)))
	}
	for i := 0; i < b.cfg.resizers; i++ {
		wg.Add(1)
		go func(r *rand.Rand) {
			defer wg.Done()
			b.resizeWorker(ctx, r)
		}(rand.New(rand.NewPCG(b.cfg.seed, uint64(b.cfg.workers+i)+1)))
	}
	wg.Wait()

	return &result{
		elapsed:     time.Since(start),
		lookups:     b.lookups.Load(),
		hits:        b.hits.Load(),
		inserts:     b.inserts.Load(),
		insertsDone: b.insertsDone.Load(),
		removes:     b.removes.Load(),
		removesDone: b.removesDone.Load(),
		resizes:     b.resizes.Load(),
		resizesDone: b.resizesDone.Load(),
	}, b.tbl
}

// rwWorker looks up random keys; with probability updateRate it instead
// removes the key if present and inserts it otherwise.
func (b *bench) rwWorker(ctx context.Context, r *rand.Rand) {
	const checkEvery = 256
	var lookups, hits, inserts, insertsDone, removes, removesDone uint64
	defer func() {
		b.lookups.Add(lookups)
		b.hits.Add(hits)
		b.inserts.Add(inserts)
		b.insertsDone.Add(insertsDone)
		b.removes.Add(removes)
		b.removesDone.Add(removesDone)
	}()

	for n := 0; ; n++ {
		if n%checkEvery == 0 && ctx.Err() != nil {
			return
		}
		k := &b.keys[r.IntN(b.cfg.lookupRange)]
		if b.cfg.updateRate > 0 && r.Float64() < b.cfg.updateRate {
			if b.tbl.Lookup(k, k.hash) != nil {
				removes++
				if b.tbl.Remove(k, k.hash) {
					removesDone++
				}
			} else {
				inserts++
				if _, ok := b.tbl.Insert(k, k.hash); ok {
					insertsDone++
				}
			}
			continue
		}
		lookups++
		if b.tbl.Lookup(k, k.hash) != nil {
			hits++
		}
	}
}

func (b *bench) resizeWorker(ctx context.Context, r *rand.Rand) {
	ticker := time.NewTicker(b.cfg.resizeDelay)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if r.Float64() >= b.cfg.resizeRate {
			continue
		}
		size := b.cfg.resizeMin + r.IntN(b.cfg.resizeMax-b.cfg.resizeMin+1)
		b.resizes.Inc()
		if b.tbl.Resize(size) {
			b.resizesDone.Inc()
			log.Debugf("resized to %d head buckets", b.tbl.Buckets())
		}
	}
}

func (r *result) print(w io.Writer, cfg *benchConfig) {
	secs := r.elapsed.Seconds()
	ops := r.lookups + r.inserts + r.removes
	fmt.Fprintf(w, "Parameters:\n")
	fmt.Fprintf(w, " duration:          %s\n", cfg.duration)
	fmt.Fprintf(w, " rw workers:        %d\n", cfg.workers)
	fmt.Fprintf(w, " update rate:       %.2f%%\n", cfg.updateRate*100)
	fmt.Fprintf(w, " initial size:      %d\n", cfg.initSize)
	fmt.Fprintf(w, " initial range:     %d\n", cfg.initRange)
	fmt.Fprintf(w, " lookup range:      %d\n", cfg.lookupRange)
	fmt.Fprintf(w, " auto resize:       %t\n", cfg.autoResize)
	fmt.Fprintf(w, " resize workers:    %d\n", cfg.resizers)
	if cfg.resizers > 0 {
		fmt.Fprintf(w, " resize range:      [%d, %d]\n", cfg.resizeMin, cfg.resizeMax)
		fmt.Fprintf(w, " resize delay:      %s\n", cfg.resizeDelay)
	}
	fmt.Fprintf(w, " hash:              %s\n", cfg.hash)
	fmt.Fprintf(w, "Results:\n")
	fmt.Fprintf(w, " lookups:           %d (%.2f%% hits)\n", r.lookups, pct(r.hits, r.lookups))
	fmt.Fprintf(w, " inserts:           %d (%.2f%% done)\n", r.inserts, pct(r.insertsDone, r.inserts))
	fmt.Fprintf(w, " removes:           %d (%.2f%% done)\n", r.removes, pct(r.removesDone, r.removes))
	if cfg.resizers > 0 {
		fmt.Fprintf(w, " resizes:           %d (%.2f%% done)\n", r.resizes, pct(r.resizesDone, r.resizes))
	}
	fmt.Fprintf(w, " throughput:        %.2f MT/s\n", float64(ops)/secs/1e6)
	fmt.Fprintf(w, " throughput/worker: %.2f MT/s/worker\n", float64(ops)/secs/1e6/float64(cfg.workers))
}

func pct(part, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) * 100 / float64(total)
}
