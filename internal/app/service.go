// Package service provides the business façade that implements the
// dependencies required by the HTTP API and the CLI.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/okian/prebook/internal/adapters/counter"
	"github.com/okian/prebook/internal/adapters/geo"
	"github.com/okian/prebook/internal/adapters/mailer"
	emailqueue "github.com/okian/prebook/internal/adapters/mq/queue"
	workerpool "github.com/okian/prebook/internal/adapters/mq/worker"
	"github.com/okian/prebook/internal/adapters/repository"
	"github.com/okian/prebook/internal/domain/auth"
	"github.com/okian/prebook/internal/domain/dedupe"
	"github.com/okian/prebook/pkg/logger"
	"github.com/okian/prebook/pkg/metrics"
)

const (
	defaultWorkerCount  = 4
	defaultQueueSize    = 1000
	defaultDedupeSize   = 10000
	defaultEmailFrom    = "orders@starlink-india.com"
	defaultPrebookStart = 113928
	defaultPrebookEnd   = 200000
	defaultTickInterval = 5 * time.Second
	stopTimeout         = 30 * time.Second
)

// Stores groups the persistence dependencies.
type Stores struct {
	Orders    repository.OrderStore
	Plans     repository.PlanStore
	Templates repository.TemplateStore
	Admins    repository.AdminStore
}

// Service implements the API dependencies for the pre-booking site.
type Service struct {
	mu sync.RWMutex

	orders    repository.OrderStore
	plans     repository.PlanStore
	templates repository.TemplateStore
	admins    repository.AdminStore

	deduper    dedupe.Deduper
	emailQueue *emailqueue.InMemoryQueue
	workerPool *workerpool.Pool
	mailer     workerpool.Mailer
	tokens     *auth.TokenIssuer
	geo        *geo.Client
	counter    counter.Store
	ticker     *counter.Ticker

	workerCount     int
	queueSize       int
	dedupeSize      int
	emailFrom       string
	prebookTarget   int64
	prebookInterval time.Duration
	now             func() time.Time

	started    bool
	stopTicker context.CancelFunc
	tickerDone chan struct{}

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of email delivery workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the outbound email queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many Idempotency-Key values are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMailer replaces the console mailer.
func WithMailer(m workerpool.Mailer) Option {
	return func(s *Service) {
		if m != nil {
			s.mailer = m
		}
	}
}

// WithEmailFrom sets the sender address.
func WithEmailFrom(from string) Option {
	return func(s *Service) {
		if from != "" {
			s.emailFrom = from
		}
	}
}

// WithTokenIssuer sets the bearer token issuer.
func WithTokenIssuer(t *auth.TokenIssuer) Option {
	return func(s *Service) {
		if t != nil {
			s.tokens = t
		}
	}
}

// WithGeo sets the geolocation client.
func WithGeo(c *geo.Client) Option {
	return func(s *Service) {
		if c != nil {
			s.geo = c
		}
	}
}

// WithCounter sets the pre-booking counter store, its cap and tick interval.
func WithCounter(store counter.Store, target int64, interval time.Duration) Option {
	return func(s *Service) {
		if store != nil {
			s.counter = store
		}
		if target > 0 {
			s.prebookTarget = target
		}
		if interval > 0 {
			s.prebookInterval = interval
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a Service over the given stores.
func New(stores Stores, opts ...Option) *Service {
	s := &Service{
		orders:          stores.Orders,
		plans:           stores.Plans,
		templates:       stores.Templates,
		admins:          stores.Admins,
		workerCount:     defaultWorkerCount,
		queueSize:       defaultQueueSize,
		dedupeSize:      defaultDedupeSize,
		emailFrom:       defaultEmailFrom,
		prebookTarget:   defaultPrebookEnd,
		prebookInterval: defaultTickInterval,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Named("service")
	}
	if s.mailer == nil {
		s.mailer = mailer.NewLogMailer(s.logger.Named("mailer"))
	}
	if s.tokens == nil {
		s.tokens = auth.NewTokenIssuer("change-me-in-production", 24*time.Hour)
	}
	if s.geo == nil {
		s.geo = geo.New(geo.WithLogger(s.logger.Named("geo")))
	}
	if s.counter == nil {
		s.counter = counter.NewMemory(defaultPrebookStart)
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.emailQueue = emailqueue.NewInMemoryQueue(emailqueue.WithCapacity(s.queueSize))
	s.ticker = counter.NewTicker(s.counter, s.prebookTarget, s.prebookInterval, s.logger.Named("counter"))
	return s
}

// Start ensures the default templates exist and starts the email workers
// and the pre-booking counter.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting pre-booking service...")

	if err := s.EnsureDefaultTemplates(ctx); err != nil {
		return err
	}

	// Background work outlives the caller's context; Stop ends it after draining.
	bg := context.WithoutCancel(ctx)
	s.workerPool = workerpool.NewPool(s.workerCount, s.emailQueue, s.mailer)
	s.workerPool.Start(bg)

	tctx, cancel := context.WithCancel(bg)
	s.stopTicker = cancel
	s.tickerDone = make(chan struct{})
	go func() {
		defer close(s.tickerDone)
		s.ticker.Run(tctx)
	}()

	s.started = true
	s.logger.Info(ctx, "pre-booking service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop drains pending emails and stops background work.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	s.logger.Info(ctx, "stopping pre-booking service...")

	s.stopTicker()
	<-s.tickerDone

	if err := s.workerPool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "email workers did not drain", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "pre-booking service stopped")
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":          s.started,
		"workerCount":      s.workerCount,
		"emailQueueSize":   s.queueSize,
		"idempotencyKeys":  s.deduper.Size(),
		"prebookingTarget": s.prebookTarget,
	}
	queueLen := s.emailQueue.Len(ctx)
	stats["emailQueueLength"] = queueLen
	metrics.UpdateQueueSize(queueLen)

	if n, err := s.counter.Value(ctx); err == nil {
		stats["prebookings"] = n
	}
	if s.started {
		stats["emailsDelivered"] = s.workerPool.Delivered()
	}
	if n, err := s.orders.Count(ctx); err == nil {
		stats["totalOrders"] = n
		metrics.UpdateTotalOrders(int(n))
	}
	return stats
}
