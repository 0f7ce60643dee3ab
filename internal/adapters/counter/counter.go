// Package counter keeps the public pre-booking tally. The number is
// decorative: it starts at a configured value and creeps towards a target.
package counter

import (
	"context"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/okian/prebook/internal/domain/money"
	"github.com/okian/prebook/internal/domain/types"
	"github.com/okian/prebook/pkg/logger"
	"github.com/okian/prebook/pkg/metrics"
)

// Store holds the current count.
type Store interface {
	// Value returns the current count.
	Value(ctx context.Context) (int64, error)
	// Add increases the count by n without passing limit and returns the new value.
	Add(ctx context.Context, n, limit int64) (int64, error)
}

// Memory is a process-local Store.
type Memory struct {
	n atomic.Int64
}

// NewMemory returns a Store starting at initial.
func NewMemory(initial int64) *Memory {
	m := &Memory{}
	m.n.Store(initial)
	return m
}

// Value returns the current count.
func (m *Memory) Value(context.Context) (int64, error) { return m.n.Load(), nil }

// Add increases the count by n, capped at limit.
func (m *Memory) Add(_ context.Context, n, limit int64) (int64, error) {
	for {
		cur := m.n.Load()
		next := min(cur+n, limit)
		if next < cur {
			next = cur
		}
		if m.n.CompareAndSwap(cur, next) {
			return next, nil
		}
	}
}

// Ticker grows a Store by 1..3 every interval until the target.
type Ticker struct {
	store    Store
	target   int64
	interval time.Duration
	log      logger.Logger
}

// NewTicker returns a Ticker over store.
func NewTicker(store Store, target int64, interval time.Duration, log logger.Logger) *Ticker {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Ticker{store: store, target: target, interval: interval, log: log}
}

// Run ticks until ctx is cancelled.
func (t *Ticker) Run(ctx context.Context) {
	tk := time.NewTicker(t.interval)
	defer tk.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tk.C:
			if _, err := t.Step(ctx); err != nil && ctx.Err() == nil {
				t.log.Warn(ctx, "pre-booking counter tick failed", logger.Error(err))
			}
		}
	}
}

// Step performs one increment.
func (t *Ticker) Step(ctx context.Context) (int64, error) {
	n, err := t.store.Add(ctx, 1+rand.Int64N(3), t.target)
	if err != nil {
		metrics.RecordErrorByComponent("counter", "increment")
		return 0, err
	}
	metrics.UpdatePrebookingCount(n)
	return n, nil
}

// Snapshot renders the public counter view.
func (t *Ticker) Snapshot(ctx context.Context) (types.Prebookings, error) {
	n, err := t.store.Value(ctx)
	if err != nil {
		return types.Prebookings{}, err
	}
	return View(n, t.target), nil
}

// View builds the counter payload for n out of target.
func View(n, target int64) types.Prebookings {
	p := types.Prebookings{Count: n, Formatted: money.FormatIndian(n), Target: target}
	if target > 0 {
		p.Progress = money.Round2(float64(n) / float64(target) * 100)
	}
	return p
}
