// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package ioruntime

import "runtime"

const (
	// LocalQueueCapacity is the fixed capacity of every Worker's
	// LocalQueue.
	LocalQueueCapacity = 256

	// FixedFilesNum is the maximum number of file descriptors
	// WithFixedFiles registers in each Poller's io_uring fixed-file table.
	FixedFilesNum = 10

	// defaultCheckIOInterval and defaultCheckGlobalInterval are both 61, a
	// prime; with these defaults the two periodic checks fire on the same
	// ticks.
	defaultCheckIOInterval     = 61
	defaultCheckGlobalInterval = 61
	defaultRingEntries         = 1024
)

// config holds resolved Runtime construction options.
type config struct {
	numWorkers         int
	checkIOInterval    uint32
	checkGlobalInterval uint32
	ringEntries        uint32
	ioUringFlags       uint32
	fixedFiles         []int
	logger             Logger
	metricsEnabled     bool
}

// Option configures a Runtime instance.
type Option interface {
	apply(*config) error
}

// optionFunc implements Option.
type optionFunc func(*config) error

func (f optionFunc) apply(c *config) error { return f(c) }

// WithNumWorkers sets the number of worker threads. Default is
// runtime.GOMAXPROCS(0).
func WithNumWorkers(n int) Option {
	return optionFunc(func(c *config) error {
		if n > 0 {
			c.numWorkers = n
		}
		return nil
	})
}

// WithCheckIOInterval sets the number of ticks between forced,
// non-blocking completion drains.
func WithCheckIOInterval(ticks uint32) Option {
	return optionFunc(func(c *config) error {
		if ticks > 0 {
			c.checkIOInterval = ticks
		}
		return nil
	})
}

// WithCheckGlobalInterval sets the number of ticks between global-queue
// pulls.
func WithCheckGlobalInterval(ticks uint32) Option {
	return optionFunc(func(c *config) error {
		if ticks > 0 {
			c.checkGlobalInterval = ticks
		}
		return nil
	})
}

// WithRingEntries sets the capacity of each Poller's submission and
// completion rings.
func WithRingEntries(entries uint32) Option {
	return optionFunc(func(c *config) error {
		if entries > 0 {
			c.ringEntries = entries
		}
		return nil
	})
}

// WithIOUringFlags sets the raw kernel flags passed at ring setup, e.g.
// IORING_SETUP_SQPOLL.
func WithIOUringFlags(flags uint32) Option {
	return optionFunc(func(c *config) error {
		c.ioUringFlags = flags
		return nil
	})
}

// WithFixedFiles pre-registers the given file descriptors with each
// worker's ring, up to FixedFilesNum entries.
func WithFixedFiles(fds []int) Option {
	return optionFunc(func(c *config) error {
		if len(fds) > FixedFilesNum {
			fds = fds[:FixedFilesNum]
		}
		c.fixedFiles = append([]int(nil), fds...)
		return nil
	})
}

// WithLogger attaches a structured logger. When absent, a no-op logger
// is used.
func WithLogger(logger Logger) Option {
	return optionFunc(func(c *config) error {
		if logger != nil {
			c.logger = logger
		}
		return nil
	})
}

// WithMetrics enables per-worker latency and queue-depth metrics
// collection, retrievable via Runtime.Metrics.
func WithMetrics(enabled bool) Option {
	return optionFunc(func(c *config) error {
		c.metricsEnabled = enabled
		return nil
	})
}

// resolveOptions applies Option instances over the default config.
func resolveOptions(opts []Option) (*config, error) {
	c := &config{
		numWorkers:          runtime.GOMAXPROCS(0),
		checkIOInterval:     defaultCheckIOInterval,
		checkGlobalInterval: defaultCheckGlobalInterval,
		ringEntries:         defaultRingEntries,
		logger:              NoOpLogger{},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.apply(c); err != nil {
			return nil, err
		}
	}
	if c.numWorkers < 1 {
		c.numWorkers = 1
	}
	return c, nil
}
