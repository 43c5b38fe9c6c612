package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"

	"portfolio-api/internal/cache"
	"portfolio-api/internal/config"
	"portfolio-api/internal/handlers"
	"portfolio-api/internal/kv"
	"portfolio-api/internal/logging"
	"portfolio-api/internal/metrics"
	"portfolio-api/internal/repository"
	"portfolio-api/internal/service"
)

type Config struct {
	ServiceName    string
	ServiceVersion string
	Addr           string
	APIKey         string
	LinkCacheTTL   time.Duration
	Logger         *logging.ContextLogger
	TracerProvider trace.TracerProvider
	GinMode        string
	Store          kv.Store         // defaults to an in-memory store
	Metrics        *metrics.Metrics // defaults to a fresh registry
}

type Application struct {
	server        *http.Server
	config        *Config
	router        *gin.Engine
	store         kv.Store
	cache         *cache.InMemoryCache
	metrics       *metrics.Metrics
	subscribers   *service.SubscriberService
	links         *service.LinkService
	subscriberAPI *handlers.SubscriberHandler
	linkAPI       *handlers.LinkHandler
}

// OpenStore connects to the configured storage backend.
func OpenStore(ctx context.Context, cfg config.StorageConfig) (kv.Store, error) {
	switch cfg.Backend {
	case kv.BackendMemory:
		return kv.NewMemoryStore(), nil
	case kv.BackendRedis:
		store, err := kv.OpenRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return store, nil
	case kv.BackendDapr:
		store, err := kv.OpenDapr(cfg.Dapr.Address, cfg.Dapr.StoreName)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func Build(cfg *Config) *Application {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	store := cfg.Store
	if store == nil {
		store = kv.NewMemoryStore()
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.New()
	}
	ttl := cfg.LinkCacheTTL
	if ttl <= 0 {
		ttl = config.DefaultLinkCacheTTL
	}

	linkCache := cache.NewInMemoryCache(ttl)
	subscriberService := service.NewSubscriberService(repository.NewKVSubscriberRepository(store), m, cfg.Logger)
	linkService := service.NewLinkService(repository.NewKVLinkRepository(store), linkCache, ttl, m, cfg.Logger)
	subscriberHandler := handlers.NewSubscriberHandler(subscriberService, cfg.Logger)
	linkHandler := handlers.NewLinkHandler(linkService, cfg.Logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName, otelgin.WithTracerProvider(cfg.TracerProvider)))

	router.Use(func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		cfg.Logger.WithTracing(c.Request.Context()).WithFields(map[string]interface{}{
			"method":     method,
			"path":       path,
			"status":     status,
			"latency_ms": latency.Milliseconds(),
			"user_agent": c.Request.UserAgent(),
		}).Info("HTTP request completed")
	})

	admin := handlers.RequireAPIKey(cfg.APIKey, cfg.Logger)

	api := router.Group("/api")
	{
		subscribers := api.Group("/subscribers")
		{
			subscribers.POST("", subscriberHandler.CreateSubscriber)
			subscribers.GET("", admin, subscriberHandler.GetAllSubscribers)
			subscribers.DELETE("", admin, subscriberHandler.DeleteSubscriber)
		}

		links := api.Group("/links", admin)
		{
			links.POST("", linkHandler.CreateLink)
			links.GET("", linkHandler.ListLinks)
			links.POST("/:slug/revoke", linkHandler.RevokeLink)
			links.DELETE("/:slug", linkHandler.DeleteLink)
		}
	}

	router.GET("/s/:slug", linkHandler.Redirect)
	router.GET("/metrics", gin.WrapH(m.Handler()))

	router.GET("/health", func(c *gin.Context) {
		status, code := "healthy", http.StatusOK
		if err := store.Ping(c.Request.Context()); err != nil {
			status, code = "unhealthy", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":    status,
			"timestamp": time.Now().UTC(),
			"service":   cfg.ServiceName,
			"version":   cfg.ServiceVersion,
			"storage":   store.Backend(),
		})
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Application{
		server:        server,
		config:        cfg,
		router:        router,
		store:         store,
		cache:         linkCache,
		metrics:       m,
		subscribers:   subscriberService,
		links:         linkService,
		subscriberAPI: subscriberHandler,
		linkAPI:       linkHandler,
	}
}

func (app *Application) Run() error {
	app.config.Logger.Info("Starting server on " + app.config.Addr)
	if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains HTTP traffic, then stops the cache sweep and closes the store.
func (app *Application) Shutdown(ctx context.Context) error {
	app.config.Logger.Info("Shutting down server...")
	err := app.server.Shutdown(ctx)
	app.cache.Close()
	return errors.Join(err, app.store.Close())
}

func (app *Application) GetStore() kv.Store {
	return app.store
}

func (app *Application) GetCache() *cache.InMemoryCache {
	return app.cache
}

func (app *Application) GetMetrics() *metrics.Metrics {
	return app.metrics
}

func (app *Application) GetSubscriberService() *service.SubscriberService {
	return app.subscribers
}

func (app *Application) GetLinkService() *service.LinkService {
	return app.links
}

func (app *Application) GetRouter() *gin.Engine {
	return app.router
}
