package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Subscription plans
const (
	PlanFree = "free"
	PlanPro  = "pro"
)

// Tenant is an isolated organization owning users and notes
type Tenant struct {
	ID               uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Slug             string    `json:"slug" gorm:"type:varchar(50);uniqueIndex;not null"`
	Name             string    `json:"name" gorm:"type:varchar(100);not null"`
	SubscriptionPlan string    `json:"subscription_plan" gorm:"type:varchar(20);not null;default:'free'"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// BeforeCreate assigns an id when the caller did not
func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.SubscriptionPlan == "" {
		t.SubscriptionPlan = PlanFree
	}
	return nil
}

// IsValidPlan reports whether plan is a known subscription plan
func IsValidPlan(plan string) bool {
	return plan == PlanFree || plan == PlanPro
}
