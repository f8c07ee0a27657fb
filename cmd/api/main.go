package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jmiseikis/site-api/config"
	"github.com/jmiseikis/site-api/internal/cache"
	"github.com/jmiseikis/site-api/internal/handlers"
	"github.com/jmiseikis/site-api/internal/middleware"
	"github.com/jmiseikis/site-api/internal/ratelimit"
	"github.com/jmiseikis/site-api/internal/services"
	"github.com/jmiseikis/site-api/pkg/httpclient"
	"github.com/jmiseikis/site-api/pkg/logger"
	"github.com/jmiseikis/site-api/pkg/metrics"
	"github.com/jmiseikis/site-api/pkg/profiling"
	"github.com/jmiseikis/site-api/pkg/resend"
	"github.com/jmiseikis/site-api/pkg/sheets"
	"github.com/jmiseikis/site-api/pkg/tracing"
	"github.com/jmiseikis/site-api/pkg/turnstile"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const (
	contactBodyLimit = 64 * 1024
	warmupTimeout    = 30 * time.Second
)

// registerRoutes wires every public endpoint onto the router
func registerRoutes(
	router *gin.Engine,
	throttle *middleware.Throttle,
	contactHandler *handlers.ContactHandler,
	directoryHandler *handlers.DirectoryHandler,
	healthHandler *handlers.HealthHandler,
) {
	api := router.Group("/api")
	// Operational endpoints (not versioned)
	api.GET("/healthcheck", throttle.Middleware(), healthHandler.Healthcheck)
	api.GET("/metrics", throttle.Middleware(), gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	v1 := router.Group("/api/v1")

	// The contact endpoint is limited by its own fixed window, not the throttle
	v1.OPTIONS("/contact", contactHandler.Preflight)
	v1.POST("/contact", middleware.BodySizeLimitMiddleware(contactBodyLimit), contactHandler.Submit)

	directory := v1.Group("/directory", throttle.Middleware())
	directory.GET("/events", directoryHandler.ListEvents)
	directory.GET("/events/:slug/ics", directoryHandler.EventICS)
	directory.GET("/vcs", directoryHandler.ListFunds)
}

// newRateLimitStore builds the configured store. The returned close func is never nil.
func newRateLimitStore(cfg *config.Config) (ratelimit.Store, func(), error) {
	if cfg.RateLimit.Store != config.RateLimitStoreRedis {
		return ratelimit.NewMemoryStore(), func() {}, nil
	}

	client, err := ratelimit.NewRedisClient(cfg.Redis.URL)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if pingErr := client.Ping(ctx).Err(); pingErr != nil {
		// keep serving; the healthcheck reports the store as unreachable
		logger.Warn("Redis is not reachable at startup", zap.Error(pingErr))
	}

	return ratelimit.NewRedisStore(client, ""), closeRedis(client), nil
}

func closeRedis(client *redis.Client) func() {
	return func() {
		if err := client.Close(); err != nil {
			logger.Error("Failed to close Redis client", zap.Error(err))
		}
	}
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	err = logger.Initialize(logger.Config{
		Level:       cfg.Logging.Level,
		LogDir:      cfg.Logging.Dir,
		Environment: cfg.Server.AppEnv,
		ServiceName: cfg.Observability.ServiceName,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting site API",
		zap.String("version", cfg.Observability.ServiceVersion),
		zap.String("environment", cfg.Server.AppEnv),
		zap.String("rate_limit_store", cfg.RateLimit.Store),
	)

	// Secrets are optional at startup; the contact endpoint fails closed without them
	if cfg.Turnstile.SecretKey == "" {
		logger.Warn("TURNSTILE_SECRET_KEY is not set; every contact submission will fail verification")
	}
	if cfg.Resend.APIKey == "" {
		logger.Warn("RESEND_API_KEY is not set; contact submissions cannot be delivered")
	}

	// Initialize distributed tracing
	tracerShutdown, err := tracing.InitTracer(tracing.Config{
		ServiceName:       cfg.Observability.ServiceName,
		ServiceNamespace:  cfg.Observability.ServiceNamespace,
		ServiceVersion:    cfg.Observability.ServiceVersion,
		ServiceInstanceID: cfg.Observability.ServiceInstanceID,
		Environment:       cfg.Server.AppEnv,
		Endpoint:          cfg.Observability.AlloyEndpoint,
	})
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tracerShutdown(ctx); shutdownErr != nil {
			logger.Error("Failed to shutdown tracer", zap.Error(shutdownErr))
		}
	}()

	// Continuous profiling (opt-in)
	stopProfiler, err := profiling.InitProfiler(cfg.Profiling, cfg.Observability, cfg.Server.AppEnv)
	if err != nil {
		logger.Fatal("Failed to initialize profiler", zap.Error(err))
	}
	defer stopProfiler()

	// Metrics
	metrics.Init(cfg.Observability.ServiceName)
	stopMetrics := make(chan struct{})
	defer close(stopMetrics)
	metrics.RecordInfrastructureMetrics(stopMetrics)

	// Rate limit store
	store, closeStore, err := newRateLimitStore(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize rate limit store", zap.Error(err))
	}
	defer closeStore()

	// Outbound clients
	httpClient := httpclient.NewStandardClient()
	verifier := turnstile.NewVerifier(cfg.Turnstile.SecretKey, cfg.Turnstile.VerifyURL, httpClient)
	mailer := resend.NewClient(cfg.Resend.APIKey, cfg.Resend.APIURL, httpClient)
	sheetsClient := sheets.NewClient(cfg.Directory.SheetsBaseURL, httpClient)

	// Directory cache, warmed in the background so startup never waits on Google
	directoryCache := cache.NewDirectoryCache(sheetsClient,
		cfg.Directory.EventsSheetID, cfg.Directory.VCsSheetID, cfg.Directory.CacheTTLSeconds)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), warmupTimeout)
		defer cancel()
		directoryCache.Warm(ctx)
	}()

	// Services
	limiter := ratelimit.NewLimiter(store, ratelimit.Policy{
		Limit:  cfg.RateLimit.MaxSubmissions,
		Window: cfg.RateLimit.Window,
	})
	contactService := services.NewContactService(limiter, verifier, mailer, cfg.Contact)
	directoryService := services.NewDirectoryService(directoryCache)

	// Handlers
	contactHandler := handlers.NewContactHandler(contactService)
	directoryHandler := handlers.NewDirectoryHandler(directoryService)
	healthHandler := handlers.NewHealthHandler(limiter.Ping, directoryCache.IsReady)

	// Set up Gin router
	gin.SetMode(cfg.Server.GinMode)
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.Observability.ServiceName))
	router.Use(middleware.ObservabilityMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"authorization", "x-client-info", "apikey", "content-type", "traceparent", "tracestate"},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if cfg.AllowsAllOrigins() {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.Server.AllowedOrigins
		if cfg.IsDevelopment() {
			corsConfig.AllowOrigins = append(corsConfig.AllowOrigins, "http://localhost:5173", "http://localhost:8080")
		}
	}
	router.Use(cors.New(corsConfig))

	// 50 req/sec per client, burst of 100
	throttle := middleware.NewThrottle(50, 100)
	defer throttle.Stop()

	registerRoutes(router, throttle, contactHandler, directoryHandler, healthHandler)

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Info("Server started", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
