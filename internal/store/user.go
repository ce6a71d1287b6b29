package store

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/suteetoe/notes-service/internal/model"
	"gorm.io/gorm"
)

// RoleCounts breaks a tenant's users down by role
type RoleCounts struct {
	Total   int64
	Admins  int64
	Members int64
}

// GetUser loads a user by id regardless of tenant. Only the authorization
// guard uses it, to re-validate a token subject.
func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	defer track("user_get")()

	var user model.User
	if err := s.conn(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translate("get user", err)
	}
	return &user, nil
}

// FindUsersByEmail returns every account registered under email, across tenants, for login
func (s *Store) FindUsersByEmail(ctx context.Context, email string) ([]model.User, error) {
	defer track("user_find_by_email")()

	var users []model.User
	err := s.conn(ctx).
		Where("email = ?", strings.ToLower(email)).
		Order("created_at ASC").
		Find(&users).Error
	if err != nil {
		return nil, translate("find users by email", err)
	}
	return users, nil
}

// GetTenantUserByEmail loads a user of tenantID by email
func (s *Store) GetTenantUserByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*model.User, error) {
	defer track("user_get_by_email")()

	var user model.User
	err := s.conn(ctx).
		Where("tenant_id = ? AND email = ?", tenantID, strings.ToLower(email)).
		First(&user).Error
	if err != nil {
		return nil, translate("get tenant user by email", err)
	}
	return &user, nil
}

// CreateUser inserts a user; the password must already be hashed
func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	defer track("user_create")()

	user.Email = strings.ToLower(user.Email)
	return translate("create user", s.conn(ctx).Create(user).Error)
}

// ListUsers pages through a tenant's users, newest first
func (s *Store) ListUsers(ctx context.Context, tenantID uuid.UUID, page Page) ([]model.User, int64, error) {
	defer track("user_list")()

	var total int64
	if err := s.conn(ctx).Model(&model.User{}).Where("tenant_id = ?", tenantID).Count(&total).Error; err != nil {
		return nil, 0, translate("count users", err)
	}

	users := []model.User{}
	err := s.conn(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").Order("id").
		Offset(page.Offset).Limit(page.Limit).
		Find(&users).Error
	if err != nil {
		return nil, 0, translate("list users", err)
	}
	return users, total, nil
}

// UpdateUserRole sets the role of a user inside tenantID and returns the updated row
func (s *Store) UpdateUserRole(ctx context.Context, tenantID, id uuid.UUID, role string) (*model.User, error) {
	defer track("user_update_role")()

	var user model.User
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.User{}).
			Where("id = ? AND tenant_id = ?", id, tenantID).
			Update("role", role)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("id = ? AND tenant_id = ?", id, tenantID).First(&user).Error
	})
	if err != nil {
		return nil, translate("update user role", err)
	}
	return &user, nil
}

// DeleteUser removes a user inside tenantID. Their notes stay with the tenant.
func (s *Store) DeleteUser(ctx context.Context, tenantID, id uuid.UUID) error {
	defer track("user_delete")()

	result := s.conn(ctx).Where("id = ? AND tenant_id = ?", id, tenantID).Delete(&model.User{})
	if result.Error != nil {
		return translate("delete user", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountUsers returns the number of users in a tenant
func (s *Store) CountUsers(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	defer track("user_count")()

	var count int64
	if err := s.conn(ctx).Model(&model.User{}).Where("tenant_id = ?", tenantID).Count(&count).Error; err != nil {
		return 0, translate("count users", err)
	}
	return count, nil
}

// CountUsersByRole aggregates a tenant's users per role
func (s *Store) CountUsersByRole(ctx context.Context, tenantID uuid.UUID) (RoleCounts, error) {
	defer track("user_count_by_role")()

	var rows []struct {
		Role  string
		Count int64
	}
	err := s.conn(ctx).Model(&model.User{}).
		Select("role, COUNT(*) AS count").
		Where("tenant_id = ?", tenantID).
		Group("role").
		Scan(&rows).Error
	if err != nil {
		return RoleCounts{}, translate("count users by role", err)
	}

	var counts RoleCounts
	for _, row := range rows {
		counts.Total += row.Count
		switch row.Role {
		case model.RoleAdmin:
			counts.Admins = row.Count
		case model.RoleMember:
			counts.Members = row.Count
		}
	}
	return counts, nil
}
