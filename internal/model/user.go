package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Roles within a tenant
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// User belongs to exactly one tenant. Email is unique within that tenant.
type User struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID     uuid.UUID `json:"tenant_id" gorm:"type:uuid;not null;uniqueIndex:idx_users_tenant_email,priority:1"`
	Email        string    `json:"email" gorm:"type:varchar(255);not null;index;uniqueIndex:idx_users_tenant_email,priority:2"`
	PasswordHash string    `json:"-" gorm:"type:varchar(100);not null"` // Never expose the hash
	Role         string    `json:"role" gorm:"type:varchar(20);not null;default:'member'"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// BeforeCreate assigns an id when the caller did not
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// IsValidRole reports whether role is a known tenant role
func IsValidRole(role string) bool {
	return role == RoleAdmin || role == RoleMember
}
