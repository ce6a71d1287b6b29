package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/suteetoe/notes-service/internal/apperror"
	"github.com/suteetoe/notes-service/internal/model"
	"github.com/suteetoe/notes-service/internal/store"
	"github.com/suteetoe/notes-service/pkg/password"
	"github.com/suteetoe/notes-service/prometheus"
	"go.uber.org/zap"
)

// UserService lets tenant admins manage their users
type UserService struct {
	store           *store.Store
	hasher          *password.Hasher
	defaultPassword string
	log             *zap.Logger
}

// NewUserService creates a user service. Invited users start with defaultPassword.
func NewUserService(s *store.Store, hasher *password.Hasher, defaultPassword string, log *zap.Logger) *UserService {
	return &UserService{store: s, hasher: hasher, defaultPassword: defaultPassword, log: log.Named("users")}
}

func errAlreadyExists() error {
	return apperror.New(apperror.KindAlreadyExists, "a user with this email already exists in your tenant")
}

// Invite creates a user in the caller's tenant. role defaults to member.
func (s *UserService) Invite(ctx context.Context, caller model.Identity, email, role string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if role == "" {
		role = model.RoleMember
	}
	if !model.IsValidRole(role) {
		return nil, apperror.InvalidField("role", "role must be either admin or member")
	}

	_, err := s.store.GetTenantUserByEmail(ctx, caller.TenantID, email)
	if err == nil {
		return nil, errAlreadyExists()
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(s.defaultPassword)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		TenantID:     caller.TenantID,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, errAlreadyExists()
		}
		return nil, err
	}

	prometheus.RecordUserOperation("invite")
	s.log.Info("User invited",
		zap.String("user_id", user.ID.String()),
		zap.String("tenant_id", caller.TenantID.String()),
		zap.String("role", role))
	return user, nil
}

// List pages through the caller's tenant users, newest first
func (s *UserService) List(ctx context.Context, caller model.Identity, req PageRequest) ([]model.User, Pagination, error) {
	req = req.normalize(DefaultUsersPageSize)

	users, total, err := s.store.ListUsers(ctx, caller.TenantID, req.window())
	if err != nil {
		return nil, Pagination{}, err
	}
	return users, req.result(total), nil
}

// UpdateRole changes the role of another user in the caller's tenant
func (s *UserService) UpdateRole(ctx context.Context, caller model.Identity, id uuid.UUID, role string) (*model.User, error) {
	if id == caller.ID {
		return nil, apperror.New(apperror.KindSelfActionForbidden, "you cannot change your own role")
	}
	if !model.IsValidRole(role) {
		return nil, apperror.InvalidField("role", "role must be either admin or member")
	}

	user, err := s.store.UpdateUserRole(ctx, caller.TenantID, id, role)
	if err != nil {
		return nil, notFound(err, "user", "update user role")
	}

	prometheus.RecordUserOperation("update_role")
	s.log.Info("User role updated",
		zap.String("user_id", id.String()),
		zap.String("tenant_id", caller.TenantID.String()),
		zap.String("role", role))
	return user, nil
}

// Remove deletes another user of the caller's tenant. Their notes remain.
func (s *UserService) Remove(ctx context.Context, caller model.Identity, id uuid.UUID) error {
	if id == caller.ID {
		return apperror.New(apperror.KindSelfActionForbidden, "you cannot remove your own account")
	}

	if err := s.store.DeleteUser(ctx, caller.TenantID, id); err != nil {
		return notFound(err, "user", "remove user")
	}

	prometheus.RecordUserOperation("remove")
	s.log.Info("User removed", zap.String("user_id", id.String()), zap.String("tenant_id", caller.TenantID.String()))
	return nil
}
