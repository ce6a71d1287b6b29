package model

import "github.com/google/uuid"

// Identity is the caller resolved by the authorization guard from live records
type Identity struct {
	ID               uuid.UUID `json:"id"`
	Email            string    `json:"email"`
	Role             string    `json:"role"`
	TenantID         uuid.UUID `json:"tenant_id"`
	TenantSlug       string    `json:"tenant_slug"`
	TenantName       string    `json:"tenant_name"`
	SubscriptionPlan string    `json:"subscription_plan"`
}

// NewIdentity builds an identity from a user and its owning tenant
func NewIdentity(user *User, tenant *Tenant) Identity {
	return Identity{
		ID:               user.ID,
		Email:            user.Email,
		Role:             user.Role,
		TenantID:         tenant.ID,
		TenantSlug:       tenant.Slug,
		TenantName:       tenant.Name,
		SubscriptionPlan: tenant.SubscriptionPlan,
	}
}

// Models lists every persisted type for migrations
func Models() []interface{} {
	return []interface{}{&Tenant{}, &User{}, &Note{}}
}
