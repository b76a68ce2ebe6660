package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	echoapi "go.pilab.hu/consentproxy/api/echo"
	"go.pilab.hu/consentproxy/cache"
	redisstore "go.pilab.hu/consentproxy/cache/redis"
	"go.pilab.hu/consentproxy/config"
	"go.pilab.hu/consentproxy/domain"
	"go.pilab.hu/consentproxy/internal/metrics"
	applog "go.pilab.hu/consentproxy/log"
	"go.pilab.hu/consentproxy/mongodb"
	"go.pilab.hu/consentproxy/services"
	"go.pilab.hu/consentproxy/tracing"
)

var (
	appLogger      applog.Logger
	tracerProvider *sdktrace.TracerProvider
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr).With().Timestamp().Logger()
		bootLogger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logLevel, parseErr := zerolog.ParseLevel(cfg.LogLevel)
	if parseErr != nil {
		logLevel = zerolog.InfoLevel
	}
	appLogger = applog.NewZerologAdapter(logLevel, cfg.LogPretty)

	ctx := context.Background()
	appLogger.Info(ctx, "Starting consent proxy", map[string]interface{}{
		"http_port":          cfg.HTTPPort,
		"base_url":           cfg.BaseURL,
		"flow_store_backend": cfg.FlowStoreBackend,
		"preference_backend": cfg.PreferenceBackend,
	})

	tp, err := tracing.InitTracerProvider(cfg.OtelServiceName)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize tracer provider", err)
	}
	tracerProvider = tp

	metrics.Register(prometheus.DefaultRegisterer)

	// Flow stores: transactions and proxy codes share a backend.
	var (
		transactions domain.TransactionRepository
		proxyCodes   domain.ProxyCodeRepository
	)
	switch cfg.FlowStoreBackend {
	case "redis":
		rdb := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			appLogger.Fatal(ctx, "Failed to connect to Redis", err)
		}
		transactions = redisstore.NewTransactionStore(rdb, cfg.RedisKeyPrefix)
		proxyCodes = redisstore.NewProxyCodeStore(rdb, cfg.RedisKeyPrefix)
	default:
		transactions = cache.NewTransactionStore(cfg.TransactionTTL())
		proxyCodes = cache.NewProxyCodeStore(cfg.ProxyCodeTTL())
	}

	var preferences domain.PreferenceRepository
	switch cfg.PreferenceBackend {
	case "mongodb":
		if err := mongodb.InitMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName); err != nil {
			appLogger.Fatal(ctx, "Failed to initialize MongoDB connection", err)
		}
		defer mongodb.CloseMongoDB(ctx)
		preferences = mongodb.NewPreferenceRepository(mongodb.GetDB())
	default:
		preferences = cache.NewPreferenceStore()
	}

	accessTokens := cache.NewAccessTokenStore(time.Hour)

	exchanger := services.NewGoogleExchanger(
		cfg.UpstreamClientID,
		cfg.UpstreamClientSecret,
		cfg.ExchangeTimeout(),
	)
	extractor := services.NewClaimsExtractor()
	registry := domain.DefaultCapabilityRegistry()
	callbackURL := cfg.BaseURL + echoapi.CallbackPath

	authorizeSvc := services.NewAuthorizeService(
		transactions, exchanger, callbackURL, cfg.TransactionTTL(), cfg.ForwardPKCE, appLogger)
	callbackSvc := services.NewCallbackService(
		transactions, exchanger, extractor, callbackURL, echoapi.ConsentPath, cfg.ConsentTTL(), appLogger)
	issuer := services.NewCodeIssuer(proxyCodes, cfg.ProxyCodeTTL())
	consentSvc := services.NewConsentService(transactions, preferences, registry, issuer, appLogger)
	tokenSvc := services.NewTokenService(proxyCodes, accessTokens, extractor, appLogger)
	enforcementSvc := services.NewEnforcementService(preferences, registry)

	oauthAPI := echoapi.NewConsentProxyAPI(
		authorizeSvc, callbackSvc, consentSvc, tokenSvc, enforcementSvc, accessTokens)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(requestLogger(appLogger))
	oauthAPI.RegisterRoutes(e)

	go func() {
		if err := e.Start(":" + cfg.HTTPPort); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal(ctx, "HTTP server failed", err)
		}
	}()

	waitForShutdown(ctx, e, cfg.ShutdownTimeout())
}

// requestLogger assigns each request an id and logs it through the
// application logger.
func requestLogger(logger applog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Request().Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)

			start := time.Now()
			err := next(c)

			fields := map[string]interface{}{
				"request_id": requestID,
				"method":     c.Request().Method,
				"path":       c.Request().URL.Path,
				"status":     c.Response().Status,
				"latency":    time.Since(start).String(),
				"ip":         c.RealIP(),
			}
			if err != nil {
				logger.Error(c.Request().Context(), "HTTP request failed", err, fields)
			} else {
				logger.Info(c.Request().Context(), "HTTP request", fields)
			}
			return err
		}
	}
}

// waitForShutdown blocks until SIGINT/SIGTERM, then shuts the server down
// gracefully. A force-exit timer bounds the drain; a second signal exits
// immediately.
func waitForShutdown(ctx context.Context, e *echo.Echo, timeout time.Duration) {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	appLogger.Info(ctx, "Shutdown initiated", map[string]interface{}{
		"signal":  sig.String(),
		"timeout": timeout.String(),
	})

	forceTimer := time.AfterFunc(timeout, func() {
		appLogger.Error(ctx, "Graceful shutdown did not complete in time, forcing exit", nil)
		os.Exit(1)
	})
	defer forceTimer.Stop()

	go func() {
		<-sigCh
		appLogger.Warn(ctx, "Second shutdown signal received, forcing immediate exit")
		os.Exit(1)
	}()

	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(ctx, "HTTP server shutdown error", err)
	}

	if tracerProvider != nil {
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			appLogger.Error(ctx, "Tracer provider shutdown error", err)
		}
	}

	appLogger.Info(ctx, "Server shutdown complete")
}
