package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/suteetoe/notes-service/internal/model"
)

// GetTenant loads a tenant by id
func (s *Store) GetTenant(ctx context.Context, id uuid.UUID) (*model.Tenant, error) {
	defer track("tenant_get")()

	var tenant model.Tenant
	if err := s.conn(ctx).Where("id = ?", id).First(&tenant).Error; err != nil {
		return nil, translate("get tenant", err)
	}
	return &tenant, nil
}

// GetTenantBySlug loads a tenant by its unique slug
func (s *Store) GetTenantBySlug(ctx context.Context, slug string) (*model.Tenant, error) {
	defer track("tenant_get_by_slug")()

	var tenant model.Tenant
	if err := s.conn(ctx).Where("slug = ?", slug).First(&tenant).Error; err != nil {
		return nil, translate("get tenant by slug", err)
	}
	return &tenant, nil
}

// CreateTenant inserts a tenant; a taken slug yields ErrDuplicate
func (s *Store) CreateTenant(ctx context.Context, tenant *model.Tenant) error {
	defer track("tenant_create")()
	return translate("create tenant", s.conn(ctx).Create(tenant).Error)
}

// ChangePlan moves a tenant from one plan to another in a single conditional
// update. It reports false when the tenant was not on from.
func (s *Store) ChangePlan(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	defer track("tenant_change_plan")()

	result := s.conn(ctx).Model(&model.Tenant{}).
		Where("id = ? AND subscription_plan = ?", id, from).
		Update("subscription_plan", to)
	if result.Error != nil {
		return false, translate("change plan", result.Error)
	}
	return result.RowsAffected == 1, nil
}
