package server

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/suteetoe/notes-service/internal/apperror"
	"github.com/suteetoe/notes-service/internal/handler"
	"github.com/suteetoe/notes-service/internal/middleware"
	"github.com/suteetoe/notes-service/internal/policy"
	"github.com/suteetoe/notes-service/internal/validate"
	"github.com/suteetoe/notes-service/pkg/config"
	"github.com/suteetoe/notes-service/pkg/logger"
	"github.com/suteetoe/notes-service/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Handlers groups every HTTP handler
type Handlers struct {
	fx.In

	Auth    *handler.AuthHandler
	Notes   *handler.NoteHandler
	Users   *handler.UserHandler
	Tenants *handler.TenantHandler
	Health  *handler.HealthHandler
}

// New builds the echo instance with the middleware stack and all routes
func New(cfg *config.Config, log *zap.Logger, guard *middleware.Guard, h Handlers) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperror.NewHTTPErrorHandler(cfg.IsProduction())
	e.Validator = validate.New()
	e.IPExtractor = ipExtractor(cfg.Server)

	e.Use(echomw.Recover())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(prometheus.MetricsMiddleware())
	e.Use(echomw.Secure())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization, logger.RequestIDKey},
		ExposeHeaders:    []string{logger.RequestIDKey},
		AllowCredentials: true,
	}))
	e.Use(echomw.BodyLimit(cfg.Server.BodyLimit))
	if perMinute := cfg.Server.RateLimitPerMinute; perMinute > 0 {
		e.Use(echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
			Skipper: func(c echo.Context) bool {
				path := c.Request().URL.Path
				return path == "/metrics" || strings.HasPrefix(path, "/health")
			},
			Store: echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(float64(perMinute) / 60),
				Burst:     perMinute,
				ExpiresIn: 3 * time.Minute,
			}),
		}))
	}

	registerRoutes(e, guard, h)
	return e
}

// ipExtractor keys clients on the socket peer unless proxies are trusted,
// in which case X-Forwarded-For is read only through those proxies
func ipExtractor(cfg config.ServerConfig) echo.IPExtractor {
	ranges, err := cfg.TrustedProxyRanges()
	if err != nil || len(ranges) == 0 {
		return echo.ExtractIPDirect()
	}

	options := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, ipRange := range ranges {
		options = append(options, echo.TrustIPRange(ipRange))
	}
	return echo.ExtractIPFromXFFHeader(options...)
}

func registerRoutes(e *echo.Echo, guard *middleware.Guard, h Handlers) {
	authorize := guard.Authorize

	// Public
	e.GET("/", h.Health.Hello)
	e.GET("/health", h.Health.HealthCheck)
	e.GET("/health/detailed", h.Health.DetailedHealthCheck)
	e.GET("/metrics", handler.MetricsHandler)

	auth := e.Group("/auth")
	auth.POST("/login", h.Auth.Login)
	auth.POST("/logout", h.Auth.Logout)
	auth.GET("/profile", h.Auth.Profile, guard.Authenticate, authorize(policy.ActionProfileRead))
	auth.GET("/verify", h.Auth.Verify, guard.Authenticate, authorize(policy.ActionProfileRead))

	notes := e.Group("/notes", guard.Authenticate)
	notes.POST("", h.Notes.Create, authorize(policy.ActionNoteCreate))
	notes.GET("", h.Notes.List, authorize(policy.ActionNoteList))
	notes.GET("/:id", h.Notes.Get, authorize(policy.ActionNoteRead))
	notes.PUT("/:id", h.Notes.Update, authorize(policy.ActionNoteUpdate))
	notes.DELETE("/:id", h.Notes.Delete, authorize(policy.ActionNoteDelete))

	tenants := e.Group("/tenants", guard.Authenticate)
	tenants.GET("/:slug", h.Tenants.Get, authorize(policy.ActionTenantRead))
	tenants.POST("/:slug/upgrade", h.Tenants.Upgrade, authorize(policy.ActionTenantUpgrade))
	tenants.GET("/:slug/stats", h.Tenants.Stats, authorize(policy.ActionTenantStats))

	users := e.Group("/users", guard.Authenticate)
	users.POST("/invite", h.Users.Invite, authorize(policy.ActionUserInvite))
	users.GET("", h.Users.List, authorize(policy.ActionUserList))
	users.PUT("/:id/role", h.Users.UpdateRole, authorize(policy.ActionUserUpdateRole))
	users.DELETE("/:id", h.Users.Remove, authorize(policy.ActionUserRemove))
}
