package repository

import "time"

// Option applies a configuration option to the DB.
type Option func(*DB)

// WithMetricsUpdateInterval sets the interval for background gauge updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(d *DB) {
		if interval > 0 {
			d.metricsUpdateInterval = interval
		}
	}
}

// WithClock overrides the time source used for created/updated stamps.
func WithClock(now func() time.Time) Option {
	return func(d *DB) {
		if now != nil {
			d.now = now
		}
	}
}
