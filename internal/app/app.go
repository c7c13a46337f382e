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
	"github.com/redis/go-redis/v9"

	"github.com/proyectos-la/digital-world/internal/config"
	"github.com/proyectos-la/digital-world/internal/event"
	handler "github.com/proyectos-la/digital-world/internal/handler/http"
	"github.com/proyectos-la/digital-world/internal/repository/postgres"
	redisrepo "github.com/proyectos-la/digital-world/internal/repository/redis"
	"github.com/proyectos-la/digital-world/internal/service"
	"github.com/proyectos-la/digital-world/internal/storage"
	"github.com/proyectos-la/digital-world/migrations"
	"github.com/proyectos-la/digital-world/pkg/auth"
	"github.com/proyectos-la/digital-world/pkg/database"
	"github.com/proyectos-la/digital-world/pkg/health"
	"github.com/proyectos-la/digital-world/pkg/httpclient"
	pkgkafka "github.com/proyectos-la/digital-world/pkg/kafka"
	"github.com/proyectos-la/digital-world/pkg/middleware"
	"github.com/proyectos-la/digital-world/pkg/tracing"
)

const (
	serviceName    = "digital-world"
	idempotencyTTL = 24 * time.Hour

	// Room for the multipart envelope and the product JSON next to the images.
	uploadOverhead = 1 << 20
)

// App wires together all dependencies and runs the storefront.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	rdb            *redis.Client
	producer       *pkgkafka.Producer
	dlq            *pkgkafka.DLQProducer
	consumers      []*pkgkafka.Consumer
	httpServer     *http.Server
	stopBackground context.CancelFunc
	shutdownTracer func(context.Context) error
}

// NewApp connects to every backing service and builds the HTTP server.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	ok := false
	defer func() {
		if !ok {
			a.closeClients()
		}
	}()

	shutdownTracer, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName: serviceName,
		Environment: cfg.Environment,
		Endpoint:    cfg.OTELEndpoint,
		SampleRate:  cfg.OTELSampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.shutdownTracer = shutdownTracer

	database.SetSlowQueryLogging(cfg.DBSlowQueryThreshold, logger)
	pool, err := database.NewPostgresPool(ctx, database.PostgresConfig{
		URL:             cfg.DatabaseURL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: cfg.DBMaxConnLifetime,
		MaxConnIdleTime: cfg.DBMaxConnIdleTime,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, serviceName); err != nil {
		return nil, fmt.Errorf("register pool metrics: %w", err)
	}
	if cfg.RunMigrationsOnStartup {
		if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
			return nil, err
		}
	}

	rdb, err := database.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.rdb = rdb
	logger.Info("connected to redis")

	a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
	a.dlq = pkgkafka.NewDLQProducer(cfg.KafkaBrokers, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	store, media := newStorage(cfg, logger)

	products := postgres.NewProductRepository(pool)
	images := postgres.NewImageRepository(pool)
	categories := postgres.NewCategoryRepository(pool)
	brands := postgres.NewBrandRepository(pool)
	orders := postgres.NewOrderRepository(pool)
	comments := postgres.NewCommentRepository(pool)
	carts := redisrepo.NewCartRepository(rdb, cfg.CartTTL)
	cache := redisrepo.NewProductCache(rdb, cfg.ProductCacheTTL)
	events := event.NewProducer(a.producer, logger)

	productService := service.NewProductService(service.ProductDeps{
		Products:   products,
		Images:     images,
		Categories: categories,
		Brands:     brands,
		Cache:      cache,
		Storage:    store,
		Optimizer:  storage.NewOptimizer(cfg.ImageMaxKB, cfg.ImageMaxUploadMB),
		Events:     events,
	}, logger)
	catalogService := service.NewCatalogService(products, images, categories, brands, cfg.RelatedPriceWindow, logger)
	orderService := service.NewOrderService(orders, products, cache, carts, events, logger)

	a.consumers = append(a.consumers, event.NewMediaCleanupConsumer(
		event.MediaCleanupConfig{Brokers: cfg.KafkaBrokers, GroupID: cfg.KafkaGroupID},
		event.NewMediaCleanupHandler(store, logger),
		redisrepo.NewIdempotencyStore(rdb, idempotencyTTL),
		a.dlq,
		logger,
	))

	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.Register("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	healthHandler.Register("kafka", func(ctx context.Context) error {
		return pkgkafka.PingBrokers(ctx, cfg.KafkaBrokers)
	})

	background, stop := context.WithCancel(context.Background())
	a.stopBackground = stop

	deps := handler.RouterDeps{
		Catalog:        catalogService,
		Products:       productService,
		Categories:     service.NewCategoryService(categories, logger),
		Brands:         service.NewBrandService(brands, logger),
		Orders:         orderService,
		Comments:       service.NewCommentService(comments, products, cache, events, logger),
		Carts:          service.NewCartService(carts, products, cache, logger),
		Health:         healthHandler,
		ValidateToken:  auth.NewJWTVerifier(cfg.JWTSecret).TokenValidator(),
		CORS:           middleware.CORSConfig{AllowedOrigins: cfg.CORSAllowedOrigins},
		RateLimiter:    middleware.RateLimit(background, cfg.RateLimitRPS, cfg.RateLimitBurst, logger),
		MaxUploadBytes: int64(cfg.ImageMaxUploadMB)<<20 + uploadOverhead,
	}
	if media != nil {
		deps.Media = media
	}
	if cfg.PprofEnabled {
		deps.PprofCIDRs = cfg.PprofAllowedCIDRs
	}

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      handler.NewRouter(deps, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ok = true
	return a, nil
}

// newStorage picks the image backend. The in-memory store is also returned
// as a media source so the router can serve its objects.
func newStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, *storage.MemoryStorage) {
	if cfg.ImageStorage == config.StorageCDN {
		client := httpclient.NewCircuitBreakerClient(
			httpclient.New(httpclient.DefaultConfig()),
			httpclient.DefaultCircuitBreakerConfig("image-cdn"),
			logger,
		)
		logger.Info("image storage: cdn", slog.String("base_url", cfg.CDNBaseURL))
		return storage.NewCDNStorage(client, storage.CDNConfig{
			BaseURL:   cfg.CDNBaseURL,
			APIKey:    cfg.CDNAPIKey,
			PublicURL: cfg.CDNPublicURL,
		}), nil
	}

	logger.Warn("image storage: memory, uploads are lost on restart")
	mem := storage.NewMemoryStorage(cfg.CDNPublicURL)
	return mem, mem
}

// Run starts the consumers and the HTTP server and blocks until the context
// is canceled or the server fails.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	for _, c := range a.consumers {
		go func(c *pkgkafka.Consumer) {
			if err := c.Start(ctx); err != nil {
				a.logger.Error("consumer stopped", slog.String("error", err.Error()))
			}
		}(c)
	}

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-errCh:
	}

	return errors.Join(runErr, a.Shutdown())
}

// Shutdown drains HTTP traffic, then closes consumers and clients.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("http server shutdown: %w", err))
	}
	for _, c := range a.consumers {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("consumer close: %w", err))
		}
	}
	errs = append(errs, a.closeClients()...)
	if a.shutdownTracer != nil {
		if err := a.shutdownTracer(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

func (a *App) closeClients() []error {
	var errs []error
	if a.stopBackground != nil {
		a.stopBackground()
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("kafka producer close: %w", err))
		}
	}
	if a.dlq != nil {
		if err := a.dlq.Close(); err != nil {
			errs = append(errs, fmt.Errorf("dlq producer close: %w", err))
		}
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	return errs
}
