package simulate

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/prebook/pkg/logger"
)

// ErrNoPlans is returned when the server lists no active plans to order.
var ErrNoPlans = errors.New("simulate: no active plans")

// Run checks the server, submits cfg.Orders random orders and looks each
// created one up by order number.
func Run(ctx context.Context, cfg Config) (Stats, error) {
	cfg.normalise()
	stats := Stats{StartTime: time.Now()}
	log := logger.Named("simulate")

	log.Info(ctx, "starting pre-booking simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("orders", cfg.Orders),
		logger.Int("workers", cfg.Workers),
		logger.String("timeout", cfg.Timeout.String()))

	c := newClient(cfg.BaseURL, cfg.Timeout)
	if err := c.health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}
	plans, err := c.plans(ctx)
	if err != nil {
		return stats, fmt.Errorf("fetch plans: %w", err)
	}
	if len(plans) == 0 {
		return stats, ErrNoPlans
	}
	stats.Plans = len(plans)
	gen := newGenerator(cfg.Seed, plans)

	numbers := make([]string, cfg.Orders)
	var submitted, created, duplicate, rejected, limited, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i := 0; i < cfg.Orders; i++ {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			number, res := c.submit(gctx, gen.Order(i))
			submitted.Add(1)
			switch res {
			case outcomeCreated:
				created.Add(1)
				numbers[i] = number
			case outcomeDuplicate:
				duplicate.Add(1)
			case outcomeRejected:
				rejected.Add(1)
			case outcomeRateLimited:
				limited.Add(1)
			default:
				failed.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	var looked, missing atomic.Int64
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, n := range numbers {
		if n == "" {
			continue
		}
		g.Go(func() error {
			ok, err := c.lookup(gctx, n)
			if err != nil {
				log.Warn(gctx, "order lookup failed", logger.String("orderNumber", n), logger.Error(err))
				missing.Add(1)
				return nil
			}
			looked.Add(1)
			if !ok {
				missing.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	stats.Submitted = submitted.Load()
	stats.Created = created.Load()
	stats.Duplicate = duplicate.Load()
	stats.Rejected = rejected.Load()
	stats.RateLimited = limited.Load()
	stats.Failed = failed.Load()
	stats.LookedUp = looked.Load()
	stats.Missing = missing.Load()
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}
	log.Info(ctx, "simulation finished",
		logger.Int64("submitted", stats.Submitted),
		logger.Int64("created", stats.Created),
		logger.Int64("duplicate", stats.Duplicate),
		logger.Int64("rejected", stats.Rejected),
		logger.Int64("rateLimited", stats.RateLimited),
		logger.Int64("failed", stats.Failed),
		logger.Int64("lookedUp", stats.LookedUp),
		logger.Int64("missing", stats.Missing),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("ordersPerSecond", perSecond))
	return stats, nil
}
