package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"perfreview/internal/domain/assessment"
	"perfreview/internal/domain/audit"
	"perfreview/internal/domain/auth"
	"perfreview/internal/domain/directory"
	"perfreview/internal/platform/config"
	"perfreview/internal/platform/db"
	"perfreview/internal/platform/metrics"
	assessmenthandler "perfreview/internal/transport/http/handlers/assessment"
	audithandler "perfreview/internal/transport/http/handlers/audit"
	authhandler "perfreview/internal/transport/http/handlers/auth"
	directoryhandler "perfreview/internal/transport/http/handlers/directory"
	"perfreview/internal/transport/http/middleware"
)

type App struct {
	Config      config.Config
	DB          *pgxpool.Pool
	Router      http.Handler
	Metrics     *metrics.Collector
	Auth        *auth.Service
	Directory   *directory.Service
	Assessments *assessment.Service
	Audit       *audit.Service
}

type stores struct {
	directory  directory.StoreAPI
	auth       auth.StoreAPI
	assessment assessment.Store
	audit      audit.StoreAPI
}

// New wires stores, services and the router for the configured driver.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	app := &App{Config: cfg, Metrics: metrics.New()}

	var st stores
	var err error
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		st, err = memoryStores(ctx, cfg)
	default:
		st, err = app.postgresStores(ctx, cfg)
	}
	if err != nil {
		app.Close()
		return nil, err
	}

	var observer assessment.Observer
	if cfg.MetricsEnabled {
		observer = app.Metrics
	}
	app.Directory = directory.NewService(st.directory)
	app.Auth = auth.NewService(st.auth, app.Directory, cfg.JWTSecret, cfg.TokenTTL)
	app.Assessments = assessment.NewService(st.assessment, app.Directory, cfg.SubmitMaxRetries, observer)
	app.Audit = audit.New(st.audit)
	app.Router = app.routes()
	return app, nil
}

func (a *App) postgresStores(ctx context.Context, cfg config.Config) (stores, error) {
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return stores{}, fmt.Errorf("db connect failed: %w", err)
	}
	a.DB = pool

	if cfg.RunMigrations {
		if _, err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
			return stores{}, fmt.Errorf("migrations failed: %w", err)
		}
	}
	if cfg.RunSeed && cfg.SeedFile != "" {
		seed, err := db.LoadSeed(cfg.SeedFile)
		if err != nil {
			return stores{}, err
		}
		if err := db.Seed(ctx, pool, seed); err != nil {
			return stores{}, fmt.Errorf("seed failed: %w", err)
		}
	}
	return stores{
		directory:  directory.NewStore(pool),
		auth:       auth.NewStore(pool),
		assessment: assessment.NewPGStore(pool),
		audit:      audit.NewStore(pool),
	}, nil
}

func memoryStores(ctx context.Context, cfg config.Config) (stores, error) {
	var seed db.SeedFile
	if cfg.SeedFile != "" {
		loaded, err := db.LoadSeed(cfg.SeedFile)
		if err != nil {
			return stores{}, err
		}
		seed = loaded
	} else {
		slog.Warn("memory store started without SEED_FILE, directory is empty")
	}

	org, err := seed.Organisation()
	if err != nil {
		return stores{}, err
	}
	authStore := auth.NewMemoryStore()
	if err := db.SeedCredentials(ctx, authStore, seed); err != nil {
		return stores{}, err
	}
	return stores{
		directory:  directory.NewMemoryStore(org),
		auth:       authStore,
		assessment: assessment.NewMemoryStore(),
		audit:      audit.NewMemoryStore(),
	}, nil
}

func (a *App) routes() http.Handler {
	cfg := a.Config
	var recorder middleware.RequestRecorder
	if cfg.MetricsEnabled {
		recorder = a.Metrics
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(recorder))
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(a.Auth, cfg.AuthCookieName))
	router.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
	router.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := errors.Join(a.Directory.Ping(ctx), a.Assessments.Ping(ctx)); err != nil {
			slog.Warn("readiness check failed", "err", err)
			http.Error(w, "store not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Method(http.MethodGet, "/metrics", a.Metrics.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		authhandler.NewHandler(a.Auth, cfg.AuthCookieName, cfg.IsProduction()).RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			assessmenthandler.NewHandler(a.Assessments, a.Audit).RegisterRoutes(r)
			directoryhandler.NewHandler(a.Directory, a.Audit).RegisterRoutes(r)
			audithandler.NewHandler(a.Audit).RegisterRoutes(r)
		})
	})

	return router
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server listening", "addr", a.Config.Addr, "storeDriver", a.Config.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.ShutdownTimeout)
		defer cancel()
		slog.Info("server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}
