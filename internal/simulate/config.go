// Package simulate drives a running pre-booking server with random orders
// and checks that each one can be looked up again.
package simulate

import "time"

// Config holds the load generator settings.
type Config struct {
	BaseURL string        // Base URL of the service
	Orders  int           // Number of orders to submit
	Workers int           // Concurrent submitters
	Timeout time.Duration // Per-request timeout
	Seed    uint64        // Zero picks a time-based seed
}

// Stats summarises a run.
type Stats struct {
	Plans       int
	Submitted   int64
	Created     int64
	Duplicate   int64
	Rejected    int64
	RateLimited int64
	Failed      int64
	LookedUp    int64
	Missing     int64
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
}

const (
	defaultWorkers = 8
	defaultTimeout = 10 * time.Second
)

func (c *Config) normalise() {
	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.Seed == 0 {
		c.Seed = uint64(time.Now().UnixNano())
	}
}
