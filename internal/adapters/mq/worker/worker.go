package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/prebook/internal/domain/model"
	"github.com/okian/prebook/pkg/logger"
	"github.com/okian/prebook/pkg/metrics"
)

const (
	defaultWorkerCount    = 4
	defaultRetries        = 2
	defaultBackoff        = 100 * time.Millisecond
	metricsUpdateInterval = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Mailer delivers a rendered email.
type Mailer interface {
	Send(ctx context.Context, e model.Email) error
}

// Queue is where workers read pending emails from.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Email
}

// Worker delivers emails until stopped.
type Worker interface {
	// Run blocks until ctx is cancelled, Shutdown is called or the queue is drained and closed.
	Run(ctx context.Context)

	// Shutdown stops the worker without draining.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue   Queue
	mailer  Mailer
	name    string
	retries int
	backoff time.Duration

	// delivered is bumped after every successful send; the pool reads it for throughput.
	delivered *atomic.Int64

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker reading from q and sending through m.
func NewInMemoryWorker(q Queue, m Mailer, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		mailer:    m,
		name:      "worker",
		retries:   defaultRetries,
		backoff:   defaultBackoff,
		delivered: &atomic.Int64{},
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Named(w.name)
	}
	return w
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

// Run starts the delivery loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	messages := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case e, ok := <-messages:
			if !ok {
				return
			}
			if err := w.deliver(ctx, e); err != nil {
				w.logger.Error(ctx, "email delivery failed",
					logger.String("id", e.ID),
					logger.String("to", e.To),
					logger.Error(err))
			}
		}
	}
}

// Shutdown signals the worker to stop and waits for it.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// deliver sends e, retrying with exponential backoff.
func (w *InMemoryWorker) deliver(ctx context.Context, e model.Email) error { //nolint:gocritic // hugeParam
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	delay := w.backoff
	var err error
	for attempt := 0; attempt <= w.retries; attempt++ {
		if attempt > 0 {
			metrics.RecordWorkerRetry()
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
		}
		if err = w.mailer.Send(ctx, e); err == nil {
			metrics.RecordEmailSent()
			w.delivered.Add(1)
			return nil
		}
		w.logger.Warn(ctx, "email send attempt failed",
			logger.String("id", e.ID),
			logger.Int("attempt", attempt+1),
			logger.Error(err))
	}

	metrics.RecordEmailFailed()
	metrics.RecordWorkerError()
	metrics.RecordErrorByComponent("worker", "delivery_error")
	metrics.RecordErrorByType("delivery_error", "medium")
	return fmt.Errorf("deliver %s after %d attempts: %w", e.ID, w.retries+1, err)
}

// Pool runs a fixed number of workers over one queue.
type Pool struct {
	workers    []*InMemoryWorker
	queue      Queue
	workerOpts []Option

	delivered       atomic.Int64
	metricsInterval time.Duration
	lastDelivered   int64
	lastTick        time.Time

	cancel  context.CancelFunc
	stopped chan struct{}
	once    sync.Once

	logger logger.Logger
}

// NewPool creates workerCount workers. Non-positive counts use a default of four.
func NewPool(workerCount int, q Queue, m Mailer, opts ...PoolOption) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}
	p := &Pool{
		workers:         make([]*InMemoryWorker, workerCount),
		queue:           q,
		metricsInterval: metricsUpdateInterval,
		stopped:         make(chan struct{}),
		logger:          logger.Named("worker-pool"),
	}
	for _, opt := range opts {
		opt(p)
	}
	for i := range p.workers {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, p.workerOpts...)
		w := NewInMemoryWorker(q, m, wopts...)
		w.delivered = &p.delivered
		p.workers[i] = w
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	metrics.UpdateWorkerMessagesPerSecond(0)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Delivered returns the number of emails sent since start.
func (p *Pool) Delivered() int64 { return p.delivered.Load() }

// Start launches every worker and the metrics updater.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.lastTick = time.Now()

	var wg sync.WaitGroup
	for _, w := range p.workers {
		wg.Add(1)
		go func(w *InMemoryWorker) {
			defer wg.Done()
			w.Run(ctx)
		}(w)
	}
	metrics.UpdateWorkerActiveCount(len(p.workers))

	wg.Add(1)
	go func() {
		defer wg.Done()
		p.runMetricsUpdater(ctx)
	}()

	go func() {
		wg.Wait()
		metrics.UpdateWorkerActiveCount(0)
		close(p.stopped)
	}()
}

func (p *Pool) runMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(p.metricsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.updateMetrics()
		}
	}
}

func (p *Pool) updateMetrics() {
	now := time.Now()
	total := p.delivered.Load()
	if elapsed := now.Sub(p.lastTick).Seconds(); elapsed > 0 {
		metrics.UpdateWorkerMessagesPerSecond(float64(total-p.lastDelivered) / elapsed)
	}
	p.lastDelivered = total
	p.lastTick = now
}

// Stop cancels every worker immediately, abandoning anything still queued.
func (p *Pool) Stop() {
	if p.cancel == nil {
		return
	}
	p.once.Do(p.cancel)
	<-p.stopped
}

// Shutdown closes the queue, lets workers drain what is left and waits for
// them until ctx (capped at thirty seconds) ends. Workers still running at
// the deadline are cancelled.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	if p.cancel == nil {
		return nil
	}

	// The metrics updater only stops on cancel; workers stop when the queue drains.
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for _, w := range p.workers {
			<-w.Done()
		}
	}()

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var err error
	select {
	case <-drained:
	case <-shutdownCtx.Done():
		p.logger.Warn(ctx, "worker pool drain timed out", logger.Int64("delivered", p.delivered.Load()))
		err = fmt.Errorf("drain: %w", shutdownCtx.Err())
	}
	p.once.Do(p.cancel)
	<-p.stopped
	return err
}
