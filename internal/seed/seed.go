package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/suteetoe/notes-service/internal/model"
	"github.com/suteetoe/notes-service/internal/store"
	"github.com/suteetoe/notes-service/pkg/password"
	"go.uber.org/zap"
)

// Account is a seeded user
type Account struct {
	Email string
	Role  string
}

// Tenant is a seeded tenant and its users
type Tenant struct {
	Slug     string
	Name     string
	Plan     string
	Accounts []Account
}

// Demo is the demo data set
var Demo = []Tenant{
	{
		Slug: "acme",
		Name: "Acme Corporation",
		Plan: model.PlanFree,
		Accounts: []Account{
			{Email: "admin@acme.test", Role: model.RoleAdmin},
			{Email: "user@acme.test", Role: model.RoleMember},
		},
	},
	{
		Slug: "globex",
		Name: "Globex Corporation",
		Plan: model.PlanFree,
		Accounts: []Account{
			{Email: "admin@globex.test", Role: model.RoleAdmin},
			{Email: "user@globex.test", Role: model.RoleMember},
		},
	},
}

// Result counts what a run inserted
type Result struct {
	Tenants int
	Users   int
}

// Seeder provisions tenants and users that are missing. Existing rows are
// left untouched, so running it twice is harmless.
type Seeder struct {
	store  *store.Store
	hasher *password.Hasher
	log    *zap.Logger
}

// New creates a seeder
func New(s *store.Store, hasher *password.Hasher, log *zap.Logger) *Seeder {
	return &Seeder{store: s, hasher: hasher, log: log.Named("seed")}
}

// Run inserts tenants with every account sharing plaintext as password
func (s *Seeder) Run(ctx context.Context, tenants []Tenant, plaintext string) (Result, error) {
	hash, err := s.hasher.Hash(plaintext)
	if err != nil {
		return Result{}, fmt.Errorf("hash seed password: %w", err)
	}

	var result Result
	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		for _, t := range tenants {
			tenant, created, err := ensureTenant(ctx, tx, t)
			if err != nil {
				return err
			}
			if created {
				result.Tenants++
			}

			for _, account := range t.Accounts {
				_, err := tx.GetTenantUserByEmail(ctx, tenant.ID, account.Email)
				if err == nil {
					continue
				}
				if !errors.Is(err, store.ErrNotFound) {
					return err
				}
				user := &model.User{
					TenantID:     tenant.ID,
					Email:        account.Email,
					PasswordHash: hash,
					Role:         account.Role,
				}
				if err := tx.CreateUser(ctx, user); err != nil {
					return err
				}
				result.Users++
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	s.log.Info("Seed complete", zap.Int("tenants_created", result.Tenants), zap.Int("users_created", result.Users))
	return result, nil
}

func ensureTenant(ctx context.Context, tx *store.Store, t Tenant) (*model.Tenant, bool, error) {
	existing, err := tx.GetTenantBySlug(ctx, t.Slug)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, err
	}

	tenant := &model.Tenant{Slug: t.Slug, Name: t.Name, SubscriptionPlan: t.Plan}
	if err := tx.CreateTenant(ctx, tenant); err != nil {
		return nil, false, err
	}
	return tenant, true, nil
}
