// Package server builds the application's dependency graph and runs the HTTP service.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/brandprobe/internal/api"
	"github.com/JakeFAU/brandprobe/internal/brand"
	"github.com/JakeFAU/brandprobe/internal/cache/memory"
	pgcache "github.com/JakeFAU/brandprobe/internal/cache/postgres"
	rediscache "github.com/JakeFAU/brandprobe/internal/cache/redis"
	"github.com/JakeFAU/brandprobe/internal/clock/system"
	"github.com/JakeFAU/brandprobe/internal/config"
	"github.com/JakeFAU/brandprobe/internal/dispatcher"
	"github.com/JakeFAU/brandprobe/internal/extractor"
	collyfetcher "github.com/JakeFAU/brandprobe/internal/fetcher/colly"
	headlessfetcher "github.com/JakeFAU/brandprobe/internal/fetcher/headless"
	"github.com/JakeFAU/brandprobe/internal/hash/sha256"
	"github.com/JakeFAU/brandprobe/internal/headless/detector"
	"github.com/JakeFAU/brandprobe/internal/id/uuid"
	"github.com/JakeFAU/brandprobe/internal/metrics"
	"github.com/JakeFAU/brandprobe/internal/policy/ratelimit"
	"github.com/JakeFAU/brandprobe/internal/probe"
	memorypublisher "github.com/JakeFAU/brandprobe/internal/publisher/memory"
	gcppublisher "github.com/JakeFAU/brandprobe/internal/publisher/pubsub"
	queueMemory "github.com/JakeFAU/brandprobe/internal/queue/memory"
	gcsstorage "github.com/JakeFAU/brandprobe/internal/storage/gcs"
	localstorage "github.com/JakeFAU/brandprobe/internal/storage/local"
	memoryStorage "github.com/JakeFAU/brandprobe/internal/storage/memory"
	"github.com/JakeFAU/brandprobe/internal/wizard"
	"github.com/JakeFAU/brandprobe/internal/worker"
)

// App contains the application's dependencies.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	clock     brand.Clock
	extractor *extractor.Service
	apiServer *api.Server
	dispatch  *dispatcher.Dispatcher
	wizard    *wizard.Manager
	queue     *queueMemory.Queue
	readiness map[string]api.ReadinessCheck
	closers   []closer
}

type closer struct {
	name string
	fn   func() error
}

// Build creates the application's dependencies.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	app := &App{
		cfg:       cfg,
		logger:    logger,
		clock:     system.New(),
		readiness: map[string]api.ReadinessCheck{},
	}
	logger.Info("building application dependencies",
		zap.Int("server_port", cfg.Server.Port),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.Bool("headless", cfg.Headless.Enabled),
	)

	if err := app.build(ctx); err != nil {
		app.closeInfrastructure()
		return nil, err
	}
	return app, nil
}

func (a *App) build(ctx context.Context) error {
	cache, err := setupCache(ctx, a)
	if err != nil {
		return err
	}
	blobs, err := setupStorage(ctx, a)
	if err != nil {
		return err
	}
	publisher, err := setupPublisher(ctx, a)
	if err != nil {
		return err
	}
	known, err := setupKnownBrands(a)
	if err != nil {
		return err
	}

	deps := extractor.Deps{
		Cache:       cache,
		KnownBrands: known,
		Blobs:       blobs,
		Hasher:      sha256.New(),
		Publisher:   publisher,
		Clock:       a.clock,
	}
	setupFetchers(a, &deps)

	a.extractor, err = extractor.NewService(extractorOptions(a.cfg), deps, a.logger.Named("extractor"))
	if err != nil {
		return fmt.Errorf("extractor init failed: %w", err)
	}

	ids := uuid.New()
	a.wizard, err = wizard.NewManager(wizard.Config{
		TTL:             a.cfg.SessionTTL(),
		Topic:           a.cfg.PubSub.TopicName,
		MaxAlternatives: a.extractor.Options().MaxAlternatives,
	}, wizard.Deps{
		Extractor: a.extractor,
		IDs:       ids,
		Clock:     a.clock,
		Publisher: publisher,
		Cache:     cache,
	}, a.logger.Named("wizard"))
	if err != nil {
		return fmt.Errorf("wizard init failed: %w", err)
	}

	jobStore := memoryStorage.NewJobStore(a.clock)
	a.queue = queueMemory.NewQueue(a.cfg.Jobs.QueueDepth)
	a.dispatch = setupDispatcher(a, jobStore)

	a.apiServer = api.NewServer(api.Deps{
		Extractor:  a.extractor,
		JobStore:   jobStore,
		Dispatcher: a.dispatch,
		Wizard:     a.wizard,
		IDs:        ids,
		Clock:      a.clock,
		Readiness:  a.readiness,
	}, api.Options{
		AuthEnabled:    a.cfg.Auth.Enabled,
		APIKey:         a.cfg.Auth.APIKey,
		RequestTimeout: a.cfg.RequestTimeout(),
		MaxJobURLs:     a.cfg.Jobs.MaxURLs,
	}, a.logger.Named("api"))
	return nil
}

// Extractor exposes the extraction service for one-shot commands.
func (a *App) Extractor() *extractor.Service {
	return a.extractor
}

// Handler returns the HTTP handler.
func (a *App) Handler() http.Handler {
	return a.apiServer.Handler()
}

// Run starts the application and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("application started")
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		a.logger.Info("dispatcher started", zap.Int("workers", a.cfg.Jobs.Concurrency))
		a.dispatch.Run(ctx)
	}()
	go a.wizard.Run(ctx, time.Minute)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			errCh <- err
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	select {
	case <-done:
	case <-shutdownCtx.Done():
		a.logger.Warn("workers did not stop before shutdown deadline")
	}

	a.Close()
	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	default:
		return nil
	}
}

// Close releases infrastructure clients.
func (a *App) Close() {
	if a.queue != nil {
		a.queue.Close()
	}
	a.closeInfrastructure()
	a.logger.Info("shutdown complete")
}

func (a *App) closeInfrastructure() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(); err != nil {
			a.logger.Warn("close failed", zap.String("component", c.name), zap.Error(err))
		}
	}
	a.closers = nil
}

func (a *App) onClose(name string, fn func() error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

func setupCache(ctx context.Context, app *App) (brand.Cache, error) {
	ttl := app.cfg.CacheTTL()
	switch app.cfg.Cache.Backend {
	case config.BackendPostgres:
		app.logger.Info("using postgres cache", zap.String("table", app.cfg.DB.Table))
		cache, err := pgcache.New(ctx, pgcache.Config{
			DSN:      app.cfg.DB.DSN,
			Table:    app.cfg.DB.Table,
			MaxConns: int32(app.cfg.DB.MaxConns), //nolint:gosec // bounded by config validation
			MinConns: int32(app.cfg.DB.MinConns), //nolint:gosec // bounded by config validation
			TTL:      ttl,
		}, app.clock)
		if err != nil {
			return nil, fmt.Errorf("postgres cache init failed: %w", err)
		}
		app.onClose("postgres", func() error { cache.Close(); return nil })
		if err := cache.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("postgres schema init failed: %w", err)
		}
		app.readiness["postgres"] = cache.Ping
		return cache, nil
	case config.BackendRedis:
		app.logger.Info("using redis cache", zap.String("prefix", app.cfg.Redis.Prefix))
		cache, err := rediscache.New(ctx, app.cfg.Redis.URL, app.cfg.Redis.Prefix, ttl, app.clock)
		if err != nil {
			return nil, fmt.Errorf("redis cache init failed: %w", err)
		}
		app.onClose("redis", cache.Close)
		app.readiness["redis"] = cache.Ping
		return cache, nil
	default:
		app.logger.Info("using in-memory cache")
		return memory.New(ttl, app.clock), nil
	}
}

func setupStorage(ctx context.Context, app *App) (brand.BlobStore, error) {
	switch app.cfg.Storage.Backend {
	case config.StorageGCS:
		app.logger.Info("using GCS snapshot storage", zap.String("bucket", app.cfg.Storage.GCSBucket))
		store, err := gcsstorage.Open(ctx, gcsstorage.Config{Bucket: app.cfg.Storage.GCSBucket})
		if err != nil {
			return nil, fmt.Errorf("gcs blob store init failed: %w", err)
		}
		app.onClose("gcs", store.Close)
		return store, nil
	case config.StorageLocal:
		app.logger.Info("using local snapshot storage", zap.String("path", app.cfg.Storage.LocalDir))
		store, err := localstorage.New(localstorage.Config{BaseDir: app.cfg.Storage.LocalDir})
		if err != nil {
			return nil, fmt.Errorf("local blob store init failed: %w", err)
		}
		return store, nil
	case config.StorageMemory:
		app.logger.Info("using in-memory snapshot storage")
		return memoryStorage.NewBlobStore(), nil
	default:
		app.logger.Info("snapshot storage disabled")
		return nil, nil
	}
}

func setupPublisher(ctx context.Context, app *App) (brand.Publisher, error) {
	if app.cfg.PubSub.TopicName == "" || app.cfg.PubSub.ProjectID == "" {
		app.logger.Warn("No Pub/Sub topic configured, using in-memory publisher")
		return memorypublisher.New(), nil
	}
	pub, err := gcppublisher.Open(ctx, app.cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub publisher init failed: %w", err)
	}
	app.onClose("pubsub", pub.Close)
	app.logger.Info("Pub/Sub publisher initialized",
		zap.String("project", app.cfg.PubSub.ProjectID),
		zap.String("topic", app.cfg.PubSub.TopicName),
	)
	return pub, nil
}

func setupKnownBrands(app *App) (*brand.KnownBrands, error) {
	entries := brand.DefaultKnownBrands()
	if path := app.cfg.Extractor.KnownBrandsFile; path != "" {
		extra, err := brand.LoadKnownBrands(path)
		if err != nil {
			return nil, err
		}
		entries = brand.MergeKnownBrands(entries, extra)
		app.logger.Info("known brands loaded", zap.String("path", path), zap.Int("count", len(extra)))
	}
	return brand.NewKnownBrands(entries), nil
}

func setupFetchers(app *App, deps *extractor.Deps) {
	cfg := app.cfg
	deps.Fetcher = collyfetcher.New(collyfetcher.Config{
		UserAgent:     cfg.HTTP.UserAgent,
		RespectRobots: cfg.HTTP.RespectRobots,
		Timeout:       cfg.FetchTimeout(),
		MaxBodyBytes:  cfg.HTTP.MaxBodyBytes,
	})

	var limiter *ratelimit.Limiter
	if cfg.Probe.RPSPerHost > 0 {
		limiter = ratelimit.New(ratelimit.Config{
			DefaultRPS:   cfg.Probe.RPSPerHost,
			DefaultBurst: cfg.Probe.Burst,
		})
	}
	deps.Prober = probe.New(probe.Options{
		Timeout:   cfg.ProbeTimeout(),
		UserAgent: cfg.HTTP.UserAgent,
		Limiter:   limiter,
	}, app.logger.Named("probe"))
	app.logger.Info("probe configured",
		zap.Duration("timeout", cfg.ProbeTimeout()),
		zap.Float64("rps_per_host", cfg.Probe.RPSPerHost),
	)

	if !cfg.Headless.Enabled {
		return
	}
	headless, err := headlessfetcher.NewChromedp(headlessfetcher.Config{
		MaxParallel:       cfg.Headless.MaxParallel,
		UserAgent:         cfg.HTTP.UserAgent,
		NavigationTimeout: time.Duration(cfg.Headless.NavTimeoutSeconds) * time.Second,
		ExecPath:          cfg.Headless.ExecPath,
	})
	if err != nil {
		app.logger.Warn("headless fetcher init failed", zap.Error(err))
		return
	}
	app.onClose("headless", func() error { headless.Close(); return nil })
	deps.Headless = headless
	deps.Detector = detector.NewHeuristic(cfg.Headless.PromotionThreshold)
	app.logger.Info("using headless fetcher", zap.Int("max_parallel", cfg.Headless.MaxParallel))
}

func extractorOptions(cfg config.Config) extractor.Options {
	return extractor.Options{
		DefaultColor:     cfg.Extractor.DefaultColor,
		PlaceholderLogo:  cfg.Extractor.PlaceholderLogo,
		FaviconService:   cfg.Extractor.FaviconService,
		LogoServices:     cfg.Extractor.LogoServices,
		IconPaths:        cfg.Extractor.IconPaths,
		CSSColorPatterns: cfg.Extractor.CSSColorPatterns,
		MaxAlternatives:  cfg.Extractor.MaxAlternatives,
		SnapshotPrefix:   cfg.Storage.Prefix,
		EventTopic:       cfg.PubSub.TopicName,
	}
}

func setupDispatcher(app *App, jobStore brand.JobStore) *dispatcher.Dispatcher {
	workerCfg := worker.Config{
		URLTimeout:   app.cfg.URLTimeout(),
		MaxAttempts:  app.cfg.Jobs.MaxAttempts,
		RetryBackoff: time.Second,
	}
	app.logger.Info("worker config",
		zap.Int("concurrency", app.cfg.Jobs.Concurrency),
		zap.Duration("url_timeout", workerCfg.URLTimeout),
		zap.Int("max_attempts", workerCfg.MaxAttempts),
	)
	workers := make([]*worker.Worker, 0, app.cfg.Jobs.Concurrency)
	for i := 0; i < app.cfg.Jobs.Concurrency; i++ {
		workers = append(workers, worker.New(
			app.queue,
			jobStore,
			app.extractor,
			app.clock,
			workerCfg,
			app.logger.Named("worker").With(zap.Int("index", i)),
		))
	}
	return dispatcher.New(app.queue, workers)
}
