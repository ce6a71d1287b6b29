package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/suteetoe/notes-service/internal/handler"
	"github.com/suteetoe/notes-service/internal/middleware"
	"github.com/suteetoe/notes-service/internal/model"
	"github.com/suteetoe/notes-service/internal/policy"
	"github.com/suteetoe/notes-service/internal/quota"
	"github.com/suteetoe/notes-service/internal/seed"
	"github.com/suteetoe/notes-service/internal/service"
	"github.com/suteetoe/notes-service/internal/store"
	"github.com/suteetoe/notes-service/pkg/config"
	"github.com/suteetoe/notes-service/pkg/database"
	"github.com/suteetoe/notes-service/pkg/jwtutil"
	"github.com/suteetoe/notes-service/pkg/lock"
	"github.com/suteetoe/notes-service/pkg/logger"
	"github.com/suteetoe/notes-service/pkg/password"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Module wires the whole service from environment configuration
var Module = fx.Options(
	fx.Provide(config.Load),
	fx.Provide(NewLogger),
	fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
		return &fxevent.ZapLogger{Logger: log.Named("fx")}
	}),
	Providers,
)

// Providers builds every component from a supplied *config.Config and *zap.Logger
var Providers = fx.Options(
	fx.Provide(
		NewDatabase,
		NewRedisClient,
		NewLocker,
		NewJWT,
		NewHasher,
		NewPlans,
		policy.NewDefault,
		store.New,
		NewEnforcer,
		service.NewAuthService,
		service.NewNoteService,
		NewUserService,
		service.NewTenantService,
		NewGuard,
		handler.NewAuthHandler,
		handler.NewNoteHandler,
		handler.NewUserHandler,
		handler.NewTenantHandler,
		NewHealthHandler,
		seed.New,
		New,
	),
	fx.Invoke(SeedOnStart),
)

// NewLogger builds the service logger from configuration
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	log, err := logger.New(logger.LogConfig{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		ServiceName: cfg.ServiceName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	log.Info("Configuration loaded", cfg.LogConfig()...)
	if cfg.JWT.InsecureDefault {
		log.Warn("JWT_SECRET is not set, using the development signing key")
	}
	return log, nil
}

// NewDatabase opens the database, runs migrations and closes the pool on stop
func NewDatabase(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	db, err := database.Open(&cfg.DB)
	if err != nil {
		return nil, err
	}
	if err := database.MigrateModels(db, model.Models()...); err != nil {
		_ = database.Close(db)
		return nil, err
	}
	log.Info("Database connected", zap.String("driver", cfg.DB.Driver))

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return database.Close(db)
		},
	})
	return db, nil
}

// NewRedisClient connects to redis when REDIS_ADDR is set and returns nil otherwise
func NewRedisClient(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) *redis.Client {
	if cfg.Redis.Addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis ping: %w", err)
			}
			log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return client
}

// NewLocker picks the distributed lock when redis is configured
func NewLocker(cfg *config.Config, client *redis.Client) lock.Locker {
	if client == nil {
		return lock.NewLocal()
	}
	return lock.NewRedis(client, cfg.Redis.LockTTL)
}

// NewJWT builds the token service from the JWT settings
func NewJWT(cfg *config.Config) (*jwtutil.JWTUtil, error) {
	return jwtutil.NewJWTUtil(jwtutil.JWTConfig{
		SigningKey: cfg.JWT.SigningKey,
		Issuer:     cfg.JWT.Issuer,
	})
}

// NewHasher returns a bcrypt hasher at the default cost
func NewHasher() *password.Hasher {
	return password.NewHasher(0)
}

// NewPlans reads plan limits from PLANS_FILE, or uses the built-in limits
func NewPlans(cfg *config.Config) (*config.Plans, error) {
	if cfg.Quota.PlansFile == "" {
		return config.DefaultPlans(), nil
	}
	return config.LoadPlans(cfg.Quota.PlansFile)
}

// NewEnforcer gates note creation on plan limits, counting through the store
func NewEnforcer(s *store.Store, plans *config.Plans, locker lock.Locker, log *zap.Logger) *quota.Enforcer {
	return quota.NewEnforcer(s, plans, locker, log)
}

// NewUserService creates the user service with the invite default password
func NewUserService(cfg *config.Config, s *store.Store, hasher *password.Hasher, log *zap.Logger) *service.UserService {
	return service.NewUserService(s, hasher, cfg.Seed.InviteDefaultPassword, log)
}

// NewGuard authenticates through the auth service and authorizes with the policy
func NewGuard(auth *service.AuthService, p *policy.Policy) *middleware.Guard {
	return middleware.NewGuard(auth, p)
}

// NewHealthHandler reports service metadata and pings the store
func NewHealthHandler(cfg *config.Config, s *store.Store) *handler.HealthHandler {
	return handler.NewHealthHandler(s, cfg.ServiceName, cfg.Server.Env, cfg.Server.Version, cfg.DB.Driver)
}

// SeedOnStart provisions the demo tenants when SEED_ON_START is set
func SeedOnStart(lc fx.Lifecycle, cfg *config.Config, seeder *seed.Seeder) {
	if !cfg.Seed.OnStart {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			_, err := seeder.Run(ctx, seed.Demo, cfg.Seed.Password)
			return err
		},
	})
}

// Run starts the HTTP server and shuts it down gracefully on stop
func Run(lc fx.Lifecycle, cfg *config.Config, e *echo.Echo, log *zap.Logger) {
	addr := ":" + cfg.Server.Port

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("Starting server", zap.String("addr", addr))
				if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("Failed to start server", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server")
			shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
			defer cancel()
			return e.Shutdown(shutdownCtx)
		},
	})
}
