package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/okian/prebook/pkg/logger"
	"github.com/okian/prebook/pkg/metrics"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Timestamps are stored as fixed-width UTC text so range filters compare lexically.
const timeLayout = "2006-01-02T15:04:05.000Z"

const defaultMetricsUpdateInterval = 30 * time.Second

// DB wraps a *sql.DB and hands out the typed stores.
type DB struct {
	sql    *sql.DB
	driver string
	now    func() time.Time

	metricsUpdateInterval time.Duration
	cancel                context.CancelFunc
	done                  chan struct{}
}

// Open connects to dsn using driver and pings it.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*DB, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("open %q: %w", driver, ErrInvalidDriver)
	}
	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// A single connection keeps ":memory:" databases alive and serialises writers.
		conn.SetMaxOpenConns(1)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return New(conn, driver, opts...)
}

// New wraps an existing connection pool.
func New(conn *sql.DB, driver string, opts ...Option) (*DB, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("new %q: %w", driver, ErrInvalidDriver)
	}
	d := &DB{
		sql:                   conn,
		driver:                driver,
		now:                   time.Now,
		metricsUpdateInterval: defaultMetricsUpdateInterval,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// SQL exposes the underlying pool.
func (d *DB) SQL() *sql.DB { return d.sql }

// Driver returns the driver name.
func (d *DB) Driver() string { return d.driver }

// Orders returns the order store.
func (d *DB) Orders() OrderStore { return &orderStore{db: d} }

// Plans returns the plan store.
func (d *DB) Plans() PlanStore { return &planStore{db: d} }

// Templates returns the email template store.
func (d *DB) Templates() TemplateStore { return &templateStore{db: d} }

// Admins returns the admin user store.
func (d *DB) Admins() AdminStore { return &adminStore{db: d} }

// StartMetricsUpdater periodically publishes row-count gauges until ctx ends or Close is called.
func (d *DB) StartMetricsUpdater(ctx context.Context) {
	if d.cancel != nil {
		return
	}
	ctx, d.cancel = context.WithCancel(ctx)
	d.done = make(chan struct{})
	go func() {
		defer close(d.done)
		ticker := time.NewTicker(d.metricsUpdateInterval)
		defer ticker.Stop()
		d.updateMetrics(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				d.updateMetrics(ctx)
			}
		}
	}()
}

func (d *DB) updateMetrics(ctx context.Context) {
	var orders, plans int
	if err := d.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders").Scan(&orders); err != nil {
		if ctx.Err() == nil {
			logger.Get().Warn(ctx, "count orders for metrics", logger.Error(err))
		}
		return
	}
	if err := d.sql.QueryRowContext(ctx, d.rebind("SELECT COUNT(*) FROM plans WHERE is_active = ?"), 1).Scan(&plans); err != nil {
		return
	}
	metrics.UpdateTotalOrders(orders)
	metrics.UpdateActivePlans(plans)
}

// Close stops the metrics updater and closes the pool.
func (d *DB) Close() error {
	if d.cancel != nil {
		d.cancel()
		<-d.done
	}
	return d.sql.Close()
}

// rebind turns ? placeholders into $n for postgres.
func (d *DB) rebind(query string) string {
	if d.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (d *DB) stamp() string { return formatTime(d.now()) }

// observe records the latency of a store operation.
func observe(op string, start time.Time) {
	metrics.RecordRepositoryQueryLatency(op, float64(time.Since(start).Microseconds())/1000)
}

// translate maps driver errors onto the package sentinels.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if isUniqueViolation(err) {
		metrics.RecordErrorByComponent("repository", "duplicate")
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	}
	metrics.RecordErrorByComponent("repository", "query")
	return fmt.Errorf("%s: %w", op, err)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			return strings.Contains(liteErr.Error(), "UNIQUE")
		}
	}
	return false
}

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		// Rows written by other tools may carry full RFC3339.
		return time.Parse(time.RFC3339Nano, s)
	}
	return t, nil
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
