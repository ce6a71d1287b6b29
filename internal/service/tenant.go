package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/suteetoe/notes-service/internal/apperror"
	"github.com/suteetoe/notes-service/internal/model"
	"github.com/suteetoe/notes-service/internal/quota"
	"github.com/suteetoe/notes-service/internal/store"
	"github.com/suteetoe/notes-service/pkg/password"
	"github.com/suteetoe/notes-service/prometheus"
	"go.uber.org/zap"
)

// Slug length bounds
const (
	SlugMinLength = 2
	SlugMaxLength = 50

	recentNotesLimit = 5
)

// TenantUsage is the summary shown alongside a tenant
type TenantUsage struct {
	UserCount int64 `json:"user_count"`
	NoteCount int64 `json:"note_count"`
	// NoteLimit is nil for unlimited plans
	NoteLimit *int `json:"note_limit"`
}

// TenantDetails is a tenant with its usage
type TenantDetails struct {
	Tenant *model.Tenant
	Usage  TenantUsage
}

// TenantStats is the admin dashboard breakdown
type TenantStats struct {
	TotalUsers     int64 `json:"total_users"`
	AdminUsers     int64 `json:"admin_users"`
	MemberUsers    int64 `json:"member_users"`
	TotalNotes     int64 `json:"total_notes"`
	NotesToday     int64 `json:"notes_today"`
	NotesThisWeek  int64 `json:"notes_this_week"`
	NotesThisMonth int64 `json:"notes_this_month"`
}

// CreateTenantInput provisions a tenant with its first admin
type CreateTenantInput struct {
	Name          string
	Slug          string
	Plan          string
	AdminEmail    string
	AdminPassword string
}

// TenantService reads and upgrades the caller's own tenant
type TenantService struct {
	store  *store.Store
	quota  *quota.Enforcer
	hasher *password.Hasher
	log    *zap.Logger
	now    func() time.Time
}

// NewTenantService creates a tenant service
func NewTenantService(s *store.Store, enforcer *quota.Enforcer, hasher *password.Hasher, log *zap.Logger) *TenantService {
	return &TenantService{store: s, quota: enforcer, hasher: hasher, log: log.Named("tenants"), now: time.Now}
}

// own loads the caller's tenant and confirms it is the one addressed by slug.
// The guard already rejected foreign slugs; this covers a slug renamed since.
func (s *TenantService) own(ctx context.Context, caller model.Identity, slug string) (*model.Tenant, error) {
	tenant, err := s.store.GetTenant(ctx, caller.TenantID)
	if err != nil {
		return nil, notFound(err, "tenant", "get tenant")
	}
	if tenant.Slug != slug {
		return nil, apperror.NotFound("tenant")
	}
	return tenant, nil
}

// Get returns the caller's tenant with user and note counts
func (s *TenantService) Get(ctx context.Context, caller model.Identity, slug string) (*TenantDetails, error) {
	tenant, err := s.own(ctx, caller, slug)
	if err != nil {
		return nil, err
	}

	users, err := s.store.CountUsers(ctx, tenant.ID)
	if err != nil {
		return nil, err
	}
	notes, err := s.store.CountNotes(ctx, tenant.ID)
	if err != nil {
		return nil, err
	}

	usage := TenantUsage{UserCount: users, NoteCount: notes}
	if limit, limited := s.quota.Limit(tenant.SubscriptionPlan); limited {
		usage.NoteLimit = &limit
	}
	return &TenantDetails{Tenant: tenant, Usage: usage}, nil
}

// Upgrade moves the caller's tenant from free to pro exactly once
func (s *TenantService) Upgrade(ctx context.Context, caller model.Identity, slug string) (*model.Tenant, error) {
	tenant, err := s.own(ctx, caller, slug)
	if err != nil {
		return nil, err
	}
	if tenant.SubscriptionPlan == model.PlanPro {
		return nil, apperror.New(apperror.KindAlreadyUpgraded, "this tenant is already on the Pro plan")
	}

	changed, err := s.store.ChangePlan(ctx, tenant.ID, model.PlanFree, model.PlanPro)
	if err != nil {
		return nil, err
	}
	if !changed {
		// Lost a race with a concurrent upgrade
		return nil, apperror.New(apperror.KindAlreadyUpgraded, "this tenant is already on the Pro plan")
	}

	upgraded, err := s.store.GetTenant(ctx, tenant.ID)
	if err != nil {
		return nil, notFound(err, "tenant", "reload tenant")
	}

	prometheus.RecordTenantUpgrade()
	s.log.Info("Tenant upgraded", zap.String("tenant_id", tenant.ID.String()), zap.String("slug", tenant.Slug))
	return upgraded, nil
}

// Stats breaks down the caller's tenant users and notes and lists the newest notes
func (s *TenantService) Stats(ctx context.Context, caller model.Identity, slug string) (*TenantStats, []model.Note, error) {
	tenant, err := s.own(ctx, caller, slug)
	if err != nil {
		return nil, nil, err
	}

	roles, err := s.store.CountUsersByRole(ctx, tenant.ID)
	if err != nil {
		return nil, nil, err
	}

	stats := &TenantStats{
		TotalUsers:  roles.Total,
		AdminUsers:  roles.Admins,
		MemberUsers: roles.Members,
	}

	if stats.TotalNotes, err = s.store.CountNotes(ctx, tenant.ID); err != nil {
		return nil, nil, err
	}

	now := s.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	windows := []struct {
		since time.Time
		into  *int64
	}{
		{midnight, &stats.NotesToday},
		{now.Add(-7 * 24 * time.Hour), &stats.NotesThisWeek},
		{now.Add(-30 * 24 * time.Hour), &stats.NotesThisMonth},
	}
	for _, w := range windows {
		if *w.into, err = s.store.CountNotesSince(ctx, tenant.ID, w.since); err != nil {
			return nil, nil, err
		}
	}

	recent, err := s.store.RecentNotes(ctx, tenant.ID, recentNotesLimit)
	if err != nil {
		return nil, nil, err
	}
	return stats, recent, nil
}

// ValidateSlug checks the tenant slug format: lowercase letters, digits and hyphens
func ValidateSlug(value string) error {
	if len(value) < SlugMinLength || len(value) > SlugMaxLength {
		return apperror.InvalidField("slug", fmt.Sprintf("slug must be between %d and %d characters", SlugMinLength, SlugMaxLength))
	}
	if !slug.IsSlug(value) {
		return apperror.InvalidField("slug", "slug may only contain lowercase letters, digits and hyphens")
	}
	return nil
}

// Create provisions a tenant and its first admin in one transaction. An
// empty slug is derived from the name.
func (s *TenantService) Create(ctx context.Context, in CreateTenantInput) (*model.Tenant, *model.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, nil, apperror.InvalidField("name", "name is required")
	}
	if in.Slug == "" {
		in.Slug = slug.Make(in.Name)
	}
	if err := ValidateSlug(in.Slug); err != nil {
		return nil, nil, err
	}
	if in.Plan == "" {
		in.Plan = model.PlanFree
	}
	if !model.IsValidPlan(in.Plan) {
		return nil, nil, apperror.InvalidField("plan", "plan must be either free or pro")
	}
	in.AdminEmail = strings.ToLower(strings.TrimSpace(in.AdminEmail))
	if in.AdminEmail == "" {
		return nil, nil, apperror.InvalidField("admin_email", "admin_email is required")
	}

	hash, err := s.hasher.Hash(in.AdminPassword)
	if err != nil {
		if errors.Is(err, password.ErrTooShort) {
			return nil, nil, apperror.InvalidField("admin_password", err.Error())
		}
		return nil, nil, err
	}

	tenant := &model.Tenant{Slug: in.Slug, Name: in.Name, SubscriptionPlan: in.Plan}
	admin := &model.User{Email: in.AdminEmail, PasswordHash: hash, Role: model.RoleAdmin}

	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.CreateTenant(ctx, tenant); err != nil {
			return err
		}
		admin.TenantID = tenant.ID
		return tx.CreateUser(ctx, admin)
	})
	if errors.Is(err, store.ErrDuplicate) {
		return nil, nil, apperror.Wrap(apperror.KindAlreadyExists, fmt.Sprintf("tenant %q already exists", in.Slug), err)
	} else if err != nil {
		return nil, nil, err
	}

	s.log.Info("Tenant created", zap.String("tenant_id", tenant.ID.String()), zap.String("slug", tenant.Slug))
	return tenant, admin, nil
}
