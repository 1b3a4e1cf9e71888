package app

import (
	"compress/gzip"
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	"github.com/xenking/kart-storefront/internal/backend"
	"github.com/xenking/kart-storefront/internal/domain/account"
	"github.com/xenking/kart-storefront/internal/domain/cart"
	"github.com/xenking/kart-storefront/internal/handler"
	"github.com/xenking/kart-storefront/internal/session"
	"github.com/xenking/kart-storefront/internal/storage/memory"
	"github.com/xenking/kart-storefront/internal/storage/postgres"
	"github.com/xenking/kart-storefront/internal/workspace"
	"github.com/xenking/kart-storefront/pkg/health"
	"github.com/xenking/kart-storefront/pkg/httpmiddleware"
)

const serviceName = "storefront"

// stores are the persistence backends selected by configuration.
type stores struct {
	sessions session.Store
	carts    cart.Repository
	close    func()
}

// openStores uses PostgreSQL when a database URL is configured and process
// memory otherwise.
func openStores(ctx context.Context, lg *zap.Logger, cfg *Config, hs *health.Health) (*stores, error) {
	if cfg.DatabaseURL == "" {
		lg.Info("Using in-memory session and cart storage")
		return &stores{
			sessions: memory.NewSessionStore(),
			carts:    memory.NewCartRepository(),
			close:    func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "create db pool")
	}
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "run migrations")
	}
	hs.Add(health.Check{
		Name:    "postgres",
		Kind:    health.Readiness,
		Timeout: 5 * time.Second,
		Func:    health.PingCheck("postgres", pool),
	})

	lg.Info("Using PostgreSQL session and cart storage")
	return &stores{
		sessions: postgres.NewSessionRepository(pool),
		carts:    postgres.NewCartRepository(pool),
		close:    pool.Close,
	}, nil
}

// service is the assembled HTTP handler and the resources behind it.
type service struct {
	handler http.Handler
	health  *health.Health
	close   func()
}

// newService creates all dependencies and wires the HTTP handler. Background
// work is tied to ctx.
func newService(ctx context.Context, lg *zap.Logger, tel httpmiddleware.TelemetryProvider, cfg *Config) (*service, error) {
	healthSvc := health.New()

	st, err := openStores(ctx, lg, cfg, healthSvc)
	if err != nil {
		return nil, err
	}

	client, err := backend.New(backend.Config{
		BaseURL:        cfg.BackendURL,
		Timeout:        cfg.RequestTimeout,
		TracerProvider: tel.TracerProvider(),
		MeterProvider:  tel.MeterProvider(),
	})
	if err != nil {
		st.close()
		return nil, errors.Wrap(err, "create backend client")
	}

	healthSvc.Add(health.Check{
		Name:    "backend",
		Kind:    health.Readiness,
		Timeout: 5 * time.Second,
		Func:    health.PingCheck("backend", client),
	})
	healthSvc.Add(health.Check{
		Name: "goroutines",
		Kind: health.Liveness,
		Func: health.GoroutineCountCheck(10000),
	})

	// Domain services.
	accounts := account.NewService(client)
	carts := cart.NewService(st.carts)
	workspaces := workspace.NewRegistry(workspace.Deps{
		Products:   client,
		Categories: client,
		Signer:     client,
		SellerID:   cfg.SellerID,
	}, cfg.Session.IdleTTL, workspace.WithMaxWorkspaces(cfg.Session.MaxWorkspaces))
	workspaces.StartCleanup(ctx)

	h := handler.NewHandler(
		handler.HandlerConfig{MaxImageBytes: cfg.MaxImageBytes},
		accounts,
		carts,
		workspaces,
	)

	// Probes bypass the session middleware; API routes get a session.
	api := http.NewServeMux()
	h.Register(api)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", session.Middleware(st.sessions, session.CookieConfig{
		Name:   cfg.Session.CookieName,
		Secure: cfg.Session.Secure,
		MaxAge: cfg.Session.IdleTTL,
	})(api))

	return &service{
		handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
				Rate:  cfg.RateLimit.Rate,
				Burst: cfg.RateLimit.Burst,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(lg),
			httpmiddleware.Instrument(serviceName, tel),
			httpmiddleware.LogRequests(),
			httpmiddleware.Gzip(gzip.DefaultCompression),
		),
		health: healthSvc,
		close:  st.close,
	}, nil
}

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("backend", cfg.BackendURL),
	)

	svc, err := newService(ctx, lg, m, cfg)
	if err != nil {
		return err
	}
	defer svc.close()

	healthSvc := svc.health
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       15 * time.Second,
		// Backend calls may take up to RequestTimeout, plus encoding.
		WriteTimeout:   cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
		Addr:           cfg.Addr,
		Handler:        svc.handler,
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
