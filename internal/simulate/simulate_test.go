package simulate_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/prebook/internal/adapters/http/api"
	"github.com/okian/prebook/internal/adapters/repository"
	service "github.com/okian/prebook/internal/app"
	"github.com/okian/prebook/internal/simulate"
	"github.com/okian/prebook/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func newServer(t *testing.T, opts ...api.Option) *httptest.Server {
	t.Helper()
	ctx := context.Background()
	db, err := repository.Open(ctx, repository.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := db.Seed(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}
	svc := service.New(service.Stores{
		Orders:    db.Orders(),
		Plans:     db.Plans(),
		Templates: db.Templates(),
		Admins:    db.Admins(),
	}, service.WithWorkerCount(1), service.WithLogger(logger.NewNop()))
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc, opts...).Register(ctx, mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		svc.Stop()
		_ = db.Close()
	})
	return srv
}

func TestRunAgainstServer(t *testing.T) {
	Convey("Given a running pre-booking server", t, func() {
		srv := newServer(t)

		Convey("Every submitted order is created and found again", func() {
			stats, err := simulate.Run(context.Background(), simulate.Config{
				BaseURL: srv.URL,
				Orders:  12,
				Workers: 4,
				Timeout: 5 * time.Second,
				Seed:    7,
			})
			So(err, ShouldBeNil)
			So(stats.Plans, ShouldBeGreaterThan, 0)
			So(stats.Submitted, ShouldEqual, int64(12))
			So(stats.Created, ShouldEqual, int64(12))
			So(stats.Failed, ShouldEqual, int64(0))
			So(stats.LookedUp, ShouldEqual, int64(12))
			So(stats.Missing, ShouldEqual, int64(0))
		})
	})

	Convey("Given a server that throttles submissions", t, func() {
		srv := newServer(t, api.WithRateLimit(0.001, 1))

		Convey("Throttled orders are counted separately", func() {
			stats, err := simulate.Run(context.Background(), simulate.Config{
				BaseURL: srv.URL,
				Orders:  3,
				Workers: 1,
				Seed:    1,
			})
			So(err, ShouldBeNil)
			So(stats.Created, ShouldEqual, int64(1))
			So(stats.RateLimited, ShouldEqual, int64(2))
			So(stats.LookedUp, ShouldEqual, int64(1))
		})
	})
}

func TestRunFailures(t *testing.T) {
	Convey("An unhealthy server stops the run", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := simulate.Run(context.Background(), simulate.Config{BaseURL: srv.URL, Orders: 1})
		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldContainSubstring, "health check")
	})

	Convey("A server without plans reports ErrNoPlans", t, func() {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		mux.HandleFunc("GET /api/plans", func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode([]any{})
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		_, err := simulate.Run(context.Background(), simulate.Config{BaseURL: srv.URL, Orders: 1})
		So(errors.Is(err, simulate.ErrNoPlans), ShouldBeTrue)
	})
}
