package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"ReviewQueue/internal/catalog"
	"ReviewQueue/internal/config"
	"ReviewQueue/internal/decision"
	"ReviewQueue/internal/domain"
	"ReviewQueue/internal/infrastructure/metrics"
	"ReviewQueue/internal/infrastructure/sessioncache"
	"ReviewQueue/internal/infrastructure/storage"
	"ReviewQueue/internal/logging"
	"ReviewQueue/internal/permission"
	"ReviewQueue/internal/picklist"
	"ReviewQueue/internal/planner"
	"ReviewQueue/internal/ports"
	"ReviewQueue/internal/render"
	"ReviewQueue/internal/session"
	"ReviewQueue/internal/trace"
	"ReviewQueue/internal/transport/httpapi"
	"ReviewQueue/internal/usecase"
)

// Repository is everything the review queue reads from and writes to the database.
type Repository interface {
	ports.TopicStore
	ports.ArticleLoader
	ports.StateWriter
	ports.UserStore
	ports.ReferenceStore
}

// Components are the loaded dependencies the HTTP handler is built from.
type Components struct {
	Repository Repository
	Params     ports.ParameterStore
	QueryDB    planner.DB
	States     *catalog.Catalog
	Types      domain.TypeHierarchy
	Registry   *prometheus.Registry
}

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg    config.Config
	logger *slog.Logger
	pool   *pgxpool.Pool
	redis  *redis.Client
	server *http.Server
}

// New connects the stores, loads the state catalog and builds the HTTP server.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwtSecret is required")
	}

	pool, err := storage.Open(ctx, cfg.Database.DSN, cfg.Database.MaxConns)
	if err != nil {
		return nil, err
	}
	a := &Application{cfg: cfg, logger: baseLogger, pool: pool}

	repo := storage.NewPostgresRepository(pool)
	states, err := catalog.Load(ctx, repo)
	if err != nil {
		a.Close()
		return nil, err
	}
	types, err := repo.TypeHierarchy(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	var params ports.ParameterStore = repo
	if cfg.Session.Backend == config.BackendRedis {
		client, err := sessioncache.Dial(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.redis = client
		params = sessioncache.NewRedisStore(client, cfg.Redis.Prefix)
	}
	baseLogger.Info("review queue stores ready",
		"states", len(states.States()),
		"publication_types", len(types),
		"session_backend", cfg.Session.Backend,
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	handler := NewHandler(cfg, baseLogger, Components{
		Repository: repo,
		Params:     params,
		QueryDB:    pool,
		States:     states,
		Types:      types,
		Registry:   registry,
	})
	a.server = &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
	}
	return a, nil
}

// NewHandler builds the review core and its HTTP handler from loaded components.
func NewHandler(cfg config.Config, baseLogger *slog.Logger, c Components) *httpapi.Handler {
	observers := trace.Observers{trace.NewLogObserver(baseLogger.With("component", "trace"))}
	var gatherer prometheus.Gatherer
	if cfg.Metrics.Enabled && c.Registry != nil {
		observers = append(observers, metrics.NewObserver(c.Registry))
		gatherer = c.Registry
	}

	gate := permission.NewGate(nil)
	sorts := planner.NewRegistry()
	queue := usecase.NewReviewQueue(usecase.ReviewQueueDeps{
		Sessions:  session.NewStore(c.Params, observers),
		Users:     c.Repository,
		Reference: c.Repository,
		Topics:    c.Repository,
		Articles:  c.Repository,
		Gate:      gate,
		Picklists: picklist.NewBuilder(c.Repository, c.States),
		Finder:    planner.NewRunner(c.QueryDB, c.States, sorts, observers),
		Renderer: render.NewRenderer(gate, c.Types, render.Config{
			FullTextBaseURL: cfg.Review.FullTextBaseURL,
			PubMedBaseURL:   cfg.Review.PubMedBaseURL,
		}),
		Decisions: decision.NewEngine(decision.Deps{
			States:   c.States,
			Gate:     gate,
			Topics:   c.Repository,
			Writer:   c.Repository,
			Observer: observers,
		}),
		DefaultPageSize: cfg.Review.DefaultPageSize,
	})

	return httpapi.NewHandler(httpapi.HandlerDeps{
		Queue:     queue,
		Users:     c.Repository,
		JWTSecret: []byte(cfg.Auth.JWTSecret),
		Gatherer:  gatherer,
		Logger:    baseLogger,
	})
}

// Run serves HTTP until ctx is cancelled, then shuts the server down gracefully.
func (a *Application) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("http server listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		timeout := a.cfg.HTTP.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		a.logger.Info("http server shutting down")
		return a.server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Close releases the database pool and the Redis client.
func (a *Application) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
