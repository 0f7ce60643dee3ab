// Package worker delivers queued emails through a Mailer.
package worker

import (
	"time"

	"github.com/okian/prebook/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name used in logs.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithRetries sets how many times a failed delivery is retried and the
// delay before the first retry. The delay doubles on each attempt.
func WithRetries(n int, backoff time.Duration) Option {
	return func(w *InMemoryWorker) {
		if n >= 0 {
			w.retries = n
		}
		if backoff > 0 {
			w.backoff = backoff
		}
	}
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithWorkerOptions passes opts to every worker the pool creates.
func WithWorkerOptions(opts ...Option) PoolOption {
	return func(p *Pool) {
		p.workerOpts = append(p.workerOpts, opts...)
	}
}

// WithMetricsInterval sets how often the pool publishes throughput gauges.
func WithMetricsInterval(d time.Duration) PoolOption {
	return func(p *Pool) {
		if d > 0 {
			p.metricsInterval = d
		}
	}
}
