package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/suteetoe/notes-service/internal/apperror"
	"github.com/suteetoe/notes-service/internal/model"
	"github.com/suteetoe/notes-service/internal/store"
	"github.com/suteetoe/notes-service/pkg/jwtutil"
	"github.com/suteetoe/notes-service/pkg/password"
	"github.com/suteetoe/notes-service/prometheus"
	"go.uber.org/zap"
)

// LoginResult is a session token and the identity it was issued for
type LoginResult struct {
	Token    string
	Identity model.Identity
}

// AuthService logs users in and resolves tokens into live identities
type AuthService struct {
	store  *store.Store
	jwt    *jwtutil.JWTUtil
	hasher *password.Hasher
	log    *zap.Logger
}

// NewAuthService creates an auth service
func NewAuthService(s *store.Store, jwt *jwtutil.JWTUtil, hasher *password.Hasher, log *zap.Logger) *AuthService {
	return &AuthService{store: s, jwt: jwt, hasher: hasher, log: log.Named("auth")}
}

var errBadCredentials = apperror.New(apperror.KindInvalidCredentials, "invalid email or password")

// Login checks credentials and issues a token. The same address may exist
// in several tenants; only accounts whose password matches are considered,
// and tenantSlug is required when more than one of them does.
func (s *AuthService) Login(ctx context.Context, email, plaintext, tenantSlug string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	tenantSlug = strings.ToLower(strings.TrimSpace(tenantSlug))

	candidates, err := s.candidates(ctx, email, tenantSlug)
	if err != nil {
		prometheus.RecordAuthAttempt(false)
		return nil, err
	}

	var matched []*model.User
	for i := range candidates {
		if s.hasher.Verify(candidates[i].PasswordHash, plaintext) {
			matched = append(matched, &candidates[i])
		}
	}

	switch len(matched) {
	case 0:
		prometheus.RecordAuthAttempt(false)
		prometheus.RecordAuthError(string(apperror.KindInvalidCredentials))
		s.log.Info("Login rejected", zap.Int("candidates", len(candidates)))
		return nil, errBadCredentials
	case 1:
	default:
		prometheus.RecordAuthAttempt(false)
		return nil, apperror.InvalidField("tenant", "tenant is required for this account")
	}

	user := matched[0]
	tenant, err := s.store.GetTenant(ctx, user.TenantID)
	if errors.Is(err, store.ErrNotFound) {
		prometheus.RecordAuthAttempt(false)
		return nil, errBadCredentials
	} else if err != nil {
		return nil, err
	}

	token, err := s.jwt.GenerateToken(jwtutil.Subject{
		UserID:   user.ID.String(),
		Email:    user.Email,
		Role:     user.Role,
		TenantID: tenant.ID.String(),
	})
	if err != nil {
		return nil, err
	}

	prometheus.RecordAuthAttempt(true)
	s.log.Info("User logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("tenant_id", tenant.ID.String()))

	return &LoginResult{Token: token, Identity: model.NewIdentity(user, tenant)}, nil
}

// candidates lists the accounts an email may log in as, narrowed to one
// tenant when tenantSlug is set
func (s *AuthService) candidates(ctx context.Context, email, tenantSlug string) ([]model.User, error) {
	if tenantSlug == "" {
		return s.store.FindUsersByEmail(ctx, email)
	}

	tenant, err := s.store.GetTenantBySlug(ctx, tenantSlug)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	user, err := s.store.GetTenantUserByEmail(ctx, tenant.ID, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return []model.User{*user}, nil
}

// Authenticate verifies token and re-loads its user and tenant, so a removed
// user is rejected immediately. The identity reflects live records, not claims.
func (s *AuthService) Authenticate(ctx context.Context, token string) (model.Identity, error) {
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		if errors.Is(err, jwtutil.ErrExpiredToken) {
			return model.Identity{}, apperror.Wrap(apperror.KindExpiredToken, "token has expired", err)
		}
		return model.Identity{}, apperror.Wrap(apperror.KindInvalidToken, "invalid token", err)
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return model.Identity{}, apperror.Wrap(apperror.KindInvalidToken, "invalid token", err)
	}

	user, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return model.Identity{}, apperror.New(apperror.KindInvalidToken, "user no longer exists")
	} else if err != nil {
		return model.Identity{}, err
	}
	if user.TenantID.String() != claims.TenantID {
		return model.Identity{}, apperror.New(apperror.KindInvalidToken, "invalid token")
	}

	tenant, err := s.store.GetTenant(ctx, user.TenantID)
	if errors.Is(err, store.ErrNotFound) {
		return model.Identity{}, apperror.New(apperror.KindInvalidToken, "tenant no longer exists")
	} else if err != nil {
		return model.Identity{}, err
	}

	return model.NewIdentity(user, tenant), nil
}
