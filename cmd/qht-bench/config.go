package main

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// Options are the command line flags.
type Options struct {
	Duration    time.Duration `short:"d" long:"duration" description:"duration of the run" default:"1s"`
	Workers     int           `short:"n" long:"workers" description:"number of lookup/update workers" default:"1"`
	UpdateRate  float64       `short:"u" long:"update-rate" description:"percentage of operations that are updates (0-100)" default:"0"`
	InitSize    int           `short:"k" long:"init-size" description:"number of keys inserted before the run" default:"1"`
	InitRange   int           `short:"K" long:"init-range" description:"range of the initial keys, at least init-size" default:"0"`
	LookupRange int           `short:"l" long:"lookup-range" description:"range of the keys looked up and updated, defaults to init-range" default:"0"`
	Resizers    int           `short:"r" long:"resizers" description:"number of resize workers" default:"0"`
	ResizeRate  float64       `long:"resize-rate" description:"percentage of resize worker wakeups that resize (0-100)" default:"100"`
	ResizeDelay time.Duration `short:"D" long:"resize-delay" description:"delay between resize worker wakeups" default:"1ms"`
	ResizeMin   int           `short:"s" long:"resize-min" description:"smallest element count to resize to" default:"0"`
	ResizeMax   int           `short:"S" long:"resize-max" description:"largest element count to resize to, defaults to init-range" default:"0"`
	AutoResize  bool          `short:"R" long:"auto-resize" description:"let the table grow on its own"`
	Stripes     int           `long:"lock-stripes" description:"share this many chain locks instead of one per chain" default:"0"`
	Hash        string        `long:"hash" description:"key hash function" choice:"xxhash" choice:"maphash" default:"xxhash"`
	Seed        uint64        `long:"seed" description:"seed for the workers' random number generators" default:"1"`
	Stats       bool          `long:"stats" description:"print table statistics at the end"`
	LogLevel    string        `long:"loglevel" description:"set the logging level [debug, info, notice, warning, error, critical]" default:"info"`
}

// benchConfig is the validated form of Options.
type benchConfig struct {
	duration    time.Duration
	workers     int
	updateRate  float64
	initSize    int
	initRange   int
	lookupRange int
	resizers    int
	resizeRate  float64
	resizeDelay time.Duration
	resizeMin   int
	resizeMax   int
	autoResize  bool
	stripes     int
	hash        string
	seed        uint64
}

var errNotPositive = errors.New("must be positive")

func (o *Options) config() (*benchConfig, error) {
	c := &benchConfig{
		duration:    o.Duration,
		workers:     o.Workers,
		updateRate:  o.UpdateRate / 100,
		initSize:    o.InitSize,
		initRange:   o.InitRange,
		lookupRange: o.LookupRange,
		resizers:    o.Resizers,
		resizeRate:  o.ResizeRate / 100,
		resizeDelay: o.ResizeDelay,
		resizeMin:   o.ResizeMin,
		resizeMax:   o.ResizeMax,
		autoResize:  o.AutoResize,
		stripes:     o.Stripes,
		hash:        o.Hash,
		seed:        o.Seed,
	}
	if c.initRange == 0 {
		c.initRange = c.initSize
	}
	if c.lookupRange == 0 {
		c.lookupRange = c.initRange
	}
	if c.resizeMax == 0 {
		c.resizeMax = c.initRange
	}
	return c, c.validate()
}

func (c *benchConfig) validate() error {
	var err error
	if c.duration <= 0 {
		err = multierr.Append(err, fmt.Errorf("duration: %w", errNotPositive))
	}
	if c.workers < 1 {
		err = multierr.Append(err, fmt.Errorf("workers: %w", errNotPositive))
	}
	if c.initSize < 1 {
		err = multierr.Append(err, fmt.Errorf("init-size: %w", errNotPositive))
	}
	if c.updateRate < 0 || c.updateRate > 1 {
		err = multierr.Append(err, fmt.Errorf("update-rate %.2f is not a percentage", c.updateRate*100))
	}
	if c.resizeRate < 0 || c.resizeRate > 1 {
		err = multierr.Append(err, fmt.Errorf("resize-rate %.2f is not a percentage", c.resizeRate*100))
	}
	if c.initRange < c.initSize {
		err = multierr.Append(err, fmt.Errorf("init-range %d is smaller than init-size %d", c.initRange, c.initSize))
	}
	if c.resizers < 0 {
		err = multierr.Append(err, errors.New("resizers cannot be negative"))
	}
	if c.resizers > 0 {
		if c.resizeDelay <= 0 {
			err = multierr.Append(err, fmt.Errorf("resize-delay: %w", errNotPositive))
		}
		if c.resizeMin < 0 || c.resizeMax < c.resizeMin {
			err = multierr.Append(err, fmt.Errorf("bad resize range [%d, %d]", c.resizeMin, c.resizeMax))
		}
	}
	return err
}
