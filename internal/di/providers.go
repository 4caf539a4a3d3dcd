package di

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/fieldserve/pingate/internal/app"
	"github.com/fieldserve/pingate/internal/config"
	"github.com/fieldserve/pingate/internal/database"
	"github.com/fieldserve/pingate/internal/http/handler"
	"github.com/fieldserve/pingate/internal/http/middleware"
	"github.com/fieldserve/pingate/internal/http/router"
	"github.com/fieldserve/pingate/internal/observability"
	"github.com/fieldserve/pingate/internal/repository"
	"github.com/fieldserve/pingate/internal/security"
	"github.com/fieldserve/pingate/internal/service"
)

var ConfigSet = wire.NewSet(config.Load)

var ObservabilitySet = wire.NewSet(provideLogger)

var RuntimeInfraSet = wire.NewSet(provideOpenDB, provideRedis)

var RepositorySet = wire.NewSet(
	repository.NewSessionRepository,
	repository.NewPinAttemptRepository,
)

var SecuritySet = wire.NewSet(provideJWTManager, provideCookieManager)

var ServiceSet = wire.NewSet(provideLockoutStore, providePinService, provideSessionJanitor)

var HTTPSet = wire.NewSet(
	providePinHandler,
	providePinRateLimiter,
	provideRouterDependencies,
	router.New,
	provideHTTPServer,
)

var AppSet = wire.NewSet(app.New)

func provideLogger(cfg *config.Config) *slog.Logger {
	return observability.NewLogger(cfg.Env, cfg.LogLevel)
}

func provideOpenDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

// provideRedis returns nil when no address is configured; dependents fall
// back to their in-process implementations.
func provideRedis(cfg *config.Config) redis.UniversalClient {
	if cfg.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
}

func provideJWTManager(cfg *config.Config) *security.JWTManager {
	return security.NewJWTManager(cfg.SessionIssuer, cfg.SessionAudience, cfg.SessionTokenSecret)
}

func provideCookieManager(cfg *config.Config) *security.CookieManager {
	return security.NewCookieManager(cfg.CookieDomain, cfg.CookieSecure, cfg.CookieSameSite)
}

func provideLockoutStore(cfg *config.Config, client redis.UniversalClient) service.LockoutStore {
	if client == nil {
		return service.NewLocalLockoutStore()
	}
	return service.NewRedisLockoutStore(client, "pin_lockout")
}

func providePinService(
	cfg *config.Config,
	lockouts service.LockoutStore,
	sessions repository.SessionRepository,
	attempts repository.PinAttemptRepository,
	jwtMgr *security.JWTManager,
	logger *slog.Logger,
) *service.PinService {
	policy := service.LockoutPolicy{
		AttemptCeiling:  cfg.AttemptCeiling,
		FailureWindow:   cfg.FailureWindow,
		LockoutDuration: cfg.LockoutDuration,
	}
	return service.NewPinService(
		cfg.PinHash,
		policy,
		lockouts,
		sessions,
		attempts,
		jwtMgr,
		cfg.TokenPepper,
		cfg.SessionTTL,
		logger,
	)
}

func provideSessionJanitor(sessions repository.SessionRepository, logger *slog.Logger) *service.SessionJanitor {
	return service.NewSessionJanitor(sessions, time.Hour, logger)
}

func providePinHandler(svc *service.PinService, cookies *security.CookieManager, cfg *config.Config) *handler.PinHandler {
	return handler.NewPinHandler(svc, cookies, cfg.SessionTTL)
}

func providePinRateLimiter(cfg *config.Config, client redis.UniversalClient, jwtMgr *security.JWTManager) *middleware.RateLimiter {
	var limiter middleware.Limiter
	if client != nil {
		limiter = middleware.NewRedisFixedWindowLimiter(client, "pin_rl")
	} else {
		limiter = middleware.NewLocalFixedWindowLimiter()
	}
	mode := middleware.FailClosed
	if cfg.RateLimitFailMode == string(middleware.FailOpen) {
		mode = middleware.FailOpen
	}
	bypass := middleware.NewRequestBypassEvaluator(middleware.RequestBypassConfig{
		EnableInternalProbeBypass: cfg.RateLimitBypassProbes,
		TrustedCIDRs:              cfg.RateLimitTrustedCIDRs,
	})
	return middleware.NewRateLimiterWith(
		limiter,
		cfg.PinRateLimitPerMin,
		time.Minute,
		mode,
		"pin",
		middleware.ClientKeyOrIPKeyFunc(jwtMgr),
		bypass,
	)
}

func provideRouterDependencies(
	logger *slog.Logger,
	pinHandler *handler.PinHandler,
	pinRateLimiter *middleware.RateLimiter,
	db *gorm.DB,
	client redis.UniversalClient,
) router.Dependencies {
	return router.Dependencies{
		Logger:         logger,
		PinHandler:     pinHandler,
		PinRateLimiter: pinRateLimiter,
		Ready:          readyCheck(db, client),
	}
}

func readyCheck(db *gorm.DB, client redis.UniversalClient) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if db != nil {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			if err := sqlDB.PingContext(ctx); err != nil {
				return err
			}
		}
		if client != nil {
			if err := client.Ping(ctx).Err(); err != nil {
				return err
			}
		}
		return nil
	}
}

func provideHTTPServer(cfg *config.Config, r chi.Router) *http.Server {
	return &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// MigrationRunner opens the database and applies the schema, used by the
// api binary's migrate argument.
type MigrationRunner struct {
	db *gorm.DB
}

func NewMigrationRunner(db *gorm.DB) *MigrationRunner {
	return &MigrationRunner{db: db}
}

func (m *MigrationRunner) Run() error {
	return database.Migrate(m.db)
}
