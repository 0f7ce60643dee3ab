package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/okian/prebook/internal/adapters/counter"
	"github.com/okian/prebook/internal/adapters/filestore"
	"github.com/okian/prebook/internal/adapters/geo"
	"github.com/okian/prebook/internal/adapters/http/api"
	"github.com/okian/prebook/internal/adapters/http/site"
	"github.com/okian/prebook/internal/adapters/http/swagger"
	"github.com/okian/prebook/internal/adapters/mailer"
	"github.com/okian/prebook/internal/adapters/repository"
	service "github.com/okian/prebook/internal/app"
	"github.com/okian/prebook/internal/domain/auth"
	"github.com/okian/prebook/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context(), nil)
		},
	}
}

// serve runs until SIGINT/SIGTERM or ctx ends. A nil ln listens on cfg.Addr.
func (a *app) serve(ctx context.Context, ln net.Listener) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer a.closeStore(ctx, db)

	if a.cfg.SeedOnStart {
		res, err := db.Seed(ctx)
		if err != nil {
			return fmt.Errorf("seed store: %w", err)
		}
		a.log.Info(ctx, "seeded defaults",
			logger.Int("admins", res.Admins), logger.Int("plans", res.Plans), logger.Int("templates", res.Templates))
	}

	svc, closeCounter, err := a.buildService(ctx, db)
	if err != nil {
		return err
	}
	defer closeCounter()
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	db.StartMetricsUpdater(ctx)

	if ln == nil {
		ln, err = net.Listen("tcp", a.cfg.Addr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", a.cfg.Addr, err)
		}
	}
	srv := &http.Server{
		Handler:           a.handler(ctx, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		startSystemMetricsUpdater(gctx)
		return nil
	})
	g.Go(func() error {
		startServiceMetricsUpdater(gctx, svc)
		return nil
	})
	g.Go(func() error {
		a.log.Info(gctx, "starting HTTP server", logger.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.log.Info(gctx, "shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.log.Error(gctx, "server shutdown failed", logger.Error(err))
			return err
		}
		return nil
	})

	err = g.Wait()
	a.log.Info(ctx, "server stopped")
	return err
}

// handler mounts the API, docs and marketing site on one mux.
func (a *app) handler(ctx context.Context, svc *service.Service) http.Handler {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	// Validate has already parsed the list.
	trusted, _ := a.cfg.TrustedProxyPrefixes()
	api.NewServer(svc,
		api.WithRateLimit(a.cfg.RateLimitRPS, a.cfg.RateLimitBurst),
		api.WithTrustedProxies(trusted),
		api.WithLogger(a.log.Named("api")),
	).Register(ctx, mux)
	site.Register(ctx, mux)
	return mux
}

// buildService assembles the service from config. The returned func releases
// the counter backend.
func (a *app) buildService(ctx context.Context, db *repository.DB) (*service.Service, func(), error) {
	store, closeCounter, err := a.buildCounter(ctx)
	if err != nil {
		return nil, nil, err
	}

	var m mailer.Mailer = mailer.NewLogMailer(a.log.Named("mailer"))
	if a.cfg.EmailOutbox {
		m = mailer.Multi{m, mailer.NewOutboxMailer(filestore.New(a.cfg.DataDir))}
	}

	svc := service.New(service.Stores{
		Orders:    db.Orders(),
		Plans:     db.Plans(),
		Templates: db.Templates(),
		Admins:    db.Admins(),
	},
		service.WithLogger(a.log.Named("service")),
		service.WithWorkerCount(a.cfg.EmailWorkerCount),
		service.WithQueueSize(a.cfg.EmailQueueSize),
		service.WithDedupeSize(a.cfg.IdempotencySize),
		service.WithMailer(m),
		service.WithEmailFrom(a.cfg.EmailFrom),
		service.WithTokenIssuer(auth.NewTokenIssuer(a.cfg.JWTSecret, a.cfg.TokenTTL())),
		service.WithGeo(geo.New(
			geo.WithBaseURL(a.cfg.GeoURL),
			geo.WithAllowedCountry(a.cfg.GeoAllowedCountry),
			geo.WithTimeout(a.cfg.GeoTimeout()),
			geo.WithLogger(a.log.Named("geo")),
		)),
		service.WithCounter(store, a.cfg.PrebookingTarget, a.cfg.PrebookingInterval()),
	)
	return svc, closeCounter, nil
}

// buildCounter returns the redis-backed counter when redis_addr is set and
// an in-memory one otherwise.
func (a *app) buildCounter(ctx context.Context) (counter.Store, func(), error) {
	if a.cfg.RedisAddr == "" {
		return counter.NewMemory(a.cfg.PrebookingInitial), func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     a.cfg.RedisAddr,
		Password: a.cfg.RedisPassword,
		DB:       a.cfg.RedisDB,
	})
	store, err := counter.NewRedis(ctx, client, "", a.cfg.PrebookingInitial)
	if err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis counter %s: %w", a.cfg.RedisAddr, err)
	}
	a.log.Info(ctx, "pre-booking counter in redis", logger.String("addr", a.cfg.RedisAddr))
	return store, func() { _ = client.Close() }, nil
}
