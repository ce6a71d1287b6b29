package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/notes-service/internal/apperror"
	"github.com/suteetoe/notes-service/internal/model"
	"github.com/suteetoe/notes-service/internal/policy"
	"github.com/suteetoe/notes-service/pkg/logger"
	"github.com/suteetoe/notes-service/prometheus"
	"go.uber.org/zap"
)

const identityKey = "identity"

type identityContextKey struct{}

// Authenticator resolves a bearer token into a live identity
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (model.Identity, error)
}

// Guard authenticates requests and applies the policy table
type Guard struct {
	auth   Authenticator
	policy *policy.Policy
}

// NewGuard creates an authorization guard
func NewGuard(auth Authenticator, p *policy.Policy) *Guard {
	return &Guard{auth: auth, policy: p}
}

// Authenticate requires a valid bearer token whose user and tenant still
// exist, and attaches the resolved identity to the request
func (g *Guard) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		token, err := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			prometheus.RecordAuthError(string(apperror.KindMissingCredential))
			log.Debug("Missing bearer token")
			return err
		}

		identity, err := g.auth.Authenticate(c.Request().Context(), token)
		if err != nil {
			if appErr, ok := apperror.As(err); ok {
				prometheus.RecordAuthError(string(appErr.Kind))
			}
			log.Info("Rejected token", zap.Error(err))
			return err
		}

		c.Set(identityKey, identity)
		c.SetRequest(c.Request().WithContext(WithIdentity(c.Request().Context(), identity)))
		logger.WithFields(c,
			zap.String("user_id", identity.ID.String()),
			zap.String("tenant_id", identity.TenantID.String()),
			zap.String("role", identity.Role))

		return next(c)
	}
}

// Authorize applies the policy rule for action. Slug scoped actions compare
// the :slug path parameter with the caller's tenant.
func (g *Guard) Authorize(action policy.Action) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, ok := IdentityFrom(c)
			if !ok {
				return apperror.New(apperror.KindMissingCredential, "authentication required")
			}

			if err := g.policy.Decide(identity, action, c.Param("slug")); err != nil {
				logger.FromContext(c).Warn("Access denied",
					zap.String("action", string(action)),
					zap.Error(err))
				return err
			}
			return next(c)
		}
	}
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", apperror.New(apperror.KindMissingCredential, "access token required")
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", apperror.New(apperror.KindMissingCredential, "invalid authorization format, expected Bearer token")
	}
	return parts[1], nil
}

// IdentityFrom returns the identity attached by Authenticate
func IdentityFrom(c echo.Context) (model.Identity, bool) {
	identity, ok := c.Get(identityKey).(model.Identity)
	return identity, ok
}

// WithIdentity stores identity in ctx
func WithIdentity(ctx context.Context, identity model.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// IdentityFromContext returns the identity stored by WithIdentity
func IdentityFromContext(ctx context.Context) (model.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey{}).(model.Identity)
	return identity, ok
}
