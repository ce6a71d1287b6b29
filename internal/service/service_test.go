package service

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/notes-service/internal/apperror"
	"github.com/suteetoe/notes-service/internal/model"
	"github.com/suteetoe/notes-service/internal/quota"
	"github.com/suteetoe/notes-service/internal/store"
	"github.com/suteetoe/notes-service/internal/store/storetest"
	"github.com/suteetoe/notes-service/pkg/config"
	"github.com/suteetoe/notes-service/pkg/jwtutil"
	"github.com/suteetoe/notes-service/pkg/lock"
	"github.com/suteetoe/notes-service/pkg/password"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type harness struct {
	store   *store.Store
	jwt     *jwtutil.JWTUtil
	auth    *AuthService
	notes   *NoteService
	users   *UserService
	tenants *TenantService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := zap.NewNop()
	s := storetest.New(t)
	hasher := password.NewHasher(bcrypt.MinCost)
	jwt, err := jwtutil.NewJWTUtil(jwtutil.JWTConfig{SigningKey: "test", Issuer: "notes-service"})
	require.NoError(t, err)
	enforcer := quota.NewEnforcer(s, config.DefaultPlans(), lock.NewLocal(), log)

	return &harness{
		store:   s,
		jwt:     jwt,
		auth:    NewAuthService(s, jwt, hasher, log),
		notes:   NewNoteService(s, enforcer, log),
		users:   NewUserService(s, hasher, "password", log),
		tenants: NewTenantService(s, enforcer, hasher, log),
	}
}

// provision creates a tenant with an admin and returns the admin's identity
func (h *harness) provision(t *testing.T, slug string) model.Identity {
	t.Helper()
	tenant, admin, err := h.tenants.Create(context.Background(), CreateTenantInput{
		Name:          slug + " inc",
		Slug:          slug,
		AdminEmail:    "admin@" + slug + ".test",
		AdminPassword: "password",
	})
	require.NoError(t, err)
	return model.NewIdentity(admin, tenant)
}

func (h *harness) reload(t *testing.T, who model.Identity) model.Identity {
	t.Helper()
	user, err := h.store.GetUser(context.Background(), who.ID)
	require.NoError(t, err)
	tenant, err := h.store.GetTenant(context.Background(), who.TenantID)
	require.NoError(t, err)
	return model.NewIdentity(user, tenant)
}

func assertKind(t *testing.T, err error, kind apperror.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, kind), "want %s, got %v", kind, err)
}

func TestLoginAndAuthenticate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin := h.provision(t, "acme")

	result, err := h.auth.Login(ctx, " ADMIN@acme.test ", "password", "")
	require.NoError(t, err)
	assert.Equal(t, admin, result.Identity)

	claims, err := h.jwt.ValidateToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, admin.ID.String(), claims.UserID)
	assert.Equal(t, admin.TenantID.String(), claims.TenantID)
	assert.Equal(t, model.RoleAdmin, claims.Role)
	assert.Equal(t, "admin@acme.test", claims.Email)

	identity, err := h.auth.Authenticate(ctx, result.Token)
	require.NoError(t, err)
	assert.Equal(t, admin, identity)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.provision(t, "acme")

	_, err := h.auth.Login(ctx, "admin@acme.test", "wrong-password", "")
	assertKind(t, err, apperror.KindInvalidCredentials)

	_, err = h.auth.Login(ctx, "nobody@acme.test", "password", "")
	assertKind(t, err, apperror.KindInvalidCredentials)

	_, err = h.auth.Login(ctx, "admin@acme.test", "password", "globex")
	assertKind(t, err, apperror.KindInvalidCredentials)
}

func TestLoginDisambiguatesSharedEmail(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	acme := h.provision(t, "acme")
	globex := h.provision(t, "globex")

	_, err := h.users.Invite(ctx, globex, "admin@acme.test", model.RoleMember)
	require.NoError(t, err)

	_, err = h.auth.Login(ctx, "admin@acme.test", "password", "")
	assertKind(t, err, apperror.KindValidation)

	result, err := h.auth.Login(ctx, "admin@acme.test", "password", "acme")
	require.NoError(t, err)
	assert.Equal(t, acme.ID, result.Identity.ID)

	result, err = h.auth.Login(ctx, "admin@acme.test", "password", "globex")
	require.NoError(t, err)
	assert.Equal(t, globex.TenantID, result.Identity.TenantID)
	assert.Equal(t, model.RoleMember, result.Identity.Role)
}

func TestLoginIgnoresSharedEmailWithOtherPassword(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	acme := h.provision(t, "acme")
	globex := h.provision(t, "globex")

	invites := NewUserService(h.store, password.NewHasher(bcrypt.MinCost), "welcome1", zap.NewNop())
	_, err := invites.Invite(ctx, globex, "admin@acme.test", model.RoleMember)
	require.NoError(t, err)

	result, err := h.auth.Login(ctx, "admin@acme.test", "password", "")
	require.NoError(t, err)
	assert.Equal(t, acme.ID, result.Identity.ID)
	assert.Equal(t, "acme", result.Identity.TenantSlug)

	result, err = h.auth.Login(ctx, "admin@acme.test", "welcome1", "")
	require.NoError(t, err)
	assert.Equal(t, globex.TenantID, result.Identity.TenantID)

	_, err = h.auth.Login(ctx, "admin@acme.test", "wrong-password", "")
	assertKind(t, err, apperror.KindInvalidCredentials)
}

func TestAuthenticateRejectsRemovedUser(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin := h.provision(t, "acme")

	member, err := h.users.Invite(ctx, admin, "user@acme.test", "")
	require.NoError(t, err)
	result, err := h.auth.Login(ctx, "user@acme.test", "password", "")
	require.NoError(t, err)

	require.NoError(t, h.users.Remove(ctx, admin, member.ID))

	_, err = h.auth.Authenticate(ctx, result.Token)
	assertKind(t, err, apperror.KindInvalidToken)
}

func TestAuthenticateTokenErrors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin := h.provision(t, "acme")

	_, err := h.auth.Authenticate(ctx, "garbage")
	assertKind(t, err, apperror.KindInvalidToken)

	expired, err := h.jwt.WithClock(func() time.Time { return time.Now().Add(-48 * time.Hour) }).GenerateToken(jwtutil.Subject{
		UserID: admin.ID.String(), TenantID: admin.TenantID.String(),
	})
	require.NoError(t, err)
	_, err = h.auth.Authenticate(ctx, expired)
	assertKind(t, err, apperror.KindExpiredToken)

	ghost, err := h.jwt.GenerateToken(jwtutil.Subject{UserID: uuid.NewString(), TenantID: admin.TenantID.String()})
	require.NoError(t, err)
	_, err = h.auth.Authenticate(ctx, ghost)
	assertKind(t, err, apperror.KindInvalidToken)
}

func TestNoteQuotaAndUpgrade(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin := h.provision(t, "acme")

	for _, title := range []string{"A", "B", "C"} {
		_, err := h.notes.Create(ctx, admin, NoteInput{Title: title})
		require.NoError(t, err)
	}

	_, err := h.notes.Create(ctx, admin, NoteInput{Title: "D"})
	assertKind(t, err, apperror.KindQuotaExceeded)

	_, err = h.tenants.Upgrade(ctx, admin, "acme")
	require.NoError(t, err)

	admin = h.reload(t, admin)
	assert.Equal(t, model.PlanPro, admin.SubscriptionPlan)

	note, err := h.notes.Create(ctx, admin, NoteInput{Title: " D "})
	require.NoError(t, err)
	assert.Equal(t, "D", note.Title)
	assert.Equal(t, "admin@acme.test", note.AuthorEmail())
}

func TestNotesAreIsolatedBetweenTenants(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	acme := h.provision(t, "acme")
	globex := h.provision(t, "globex")

	note, err := h.notes.Create(ctx, acme, NoteInput{Title: "secret"})
	require.NoError(t, err)

	_, err = h.notes.Get(ctx, globex, note.ID)
	assertKind(t, err, apperror.KindNotFound)
	_, err = h.notes.Update(ctx, globex, note.ID, NoteInput{Title: "x"})
	assertKind(t, err, apperror.KindNotFound)
	assertKind(t, h.notes.Delete(ctx, globex, note.ID), apperror.KindNotFound)

	notes, page, err := h.notes.List(ctx, globex, PageRequest{})
	require.NoError(t, err)
	assert.Empty(t, notes)
	assert.Equal(t, Pagination{Page: 1, Limit: DefaultNotesPageSize}, page)

	got, err := h.notes.Get(ctx, acme, note.ID)
	require.NoError(t, err)
	assert.Equal(t, "secret", got.Title)
}

func TestNoteDeleteThenGet(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin := h.provision(t, "acme")

	note, err := h.notes.Create(ctx, admin, NoteInput{Title: "A", Content: "body"})
	require.NoError(t, err)

	first, err := h.notes.Get(ctx, admin, note.ID)
	require.NoError(t, err)
	second, err := h.notes.Get(ctx, admin, note.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Title, second.Title)
	assert.Equal(t, first.Content, second.Content)
	assert.True(t, first.UpdatedAt.Equal(second.UpdatedAt))

	require.NoError(t, h.notes.Delete(ctx, admin, note.ID))
	_, err = h.notes.Get(ctx, admin, note.ID)
	assertKind(t, err, apperror.KindNotFound)
}

func TestPagination(t *testing.T) {
	assert.Equal(t, PageRequest{Page: 1, Limit: 50}, PageRequest{Page: 0, Limit: 0}.normalize(50))
	assert.Equal(t, PageRequest{Page: 3, Limit: 100}, PageRequest{Page: 3, Limit: 500}.normalize(50))

	req := PageRequest{Page: 2, Limit: 20}
	assert.Equal(t, store.Page{Offset: 20, Limit: 20}, req.window())

	huge := PageRequest{Page: math.MaxInt, Limit: 500}.normalize(50)
	assert.Equal(t, MaxPage, huge.Page)
	window := huge.window()
	assert.Positive(t, window.Offset)
	assert.LessOrEqual(t, window.Offset, math.MaxInt32)
	assert.Equal(t, Pagination{Page: 2, Limit: 20, Total: 41, Pages: 3}, req.result(41))
	assert.Equal(t, int64(0), req.result(0).Pages)
}

func TestInviteAndRoleManagement(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin := h.provision(t, "acme")

	member, err := h.users.Invite(ctx, admin, "User@Acme.test", "")
	require.NoError(t, err)
	assert.Equal(t, "user@acme.test", member.Email)
	assert.Equal(t, model.RoleMember, member.Role)

	_, err = h.users.Invite(ctx, admin, "user@acme.test", model.RoleAdmin)
	assertKind(t, err, apperror.KindAlreadyExists)

	promoted, err := h.users.UpdateRole(ctx, admin, member.ID, model.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, promoted.Role)

	_, err = h.users.UpdateRole(ctx, admin, member.ID, "owner")
	assertKind(t, err, apperror.KindValidation)

	users, page, err := h.users.List(ctx, admin, PageRequest{Page: 1})
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, DefaultUsersPageSize, page.Limit)
}

func TestSelfActionsAreForbidden(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin := h.provision(t, "acme")

	for _, role := range []string{model.RoleAdmin, model.RoleMember, "bogus", ""} {
		_, err := h.users.UpdateRole(ctx, admin, admin.ID, role)
		assertKind(t, err, apperror.KindSelfActionForbidden)
	}
	assertKind(t, h.users.Remove(ctx, admin, admin.ID), apperror.KindSelfActionForbidden)
}

func TestUserManagementIsTenantScoped(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	acme := h.provision(t, "acme")
	globex := h.provision(t, "globex")

	_, err := h.users.UpdateRole(ctx, acme, globex.ID, model.RoleMember)
	assertKind(t, err, apperror.KindNotFound)
	assertKind(t, h.users.Remove(ctx, acme, globex.ID), apperror.KindNotFound)
}

func TestUpgradeTwice(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin := h.provision(t, "acme")

	tenant, err := h.tenants.Upgrade(ctx, admin, "acme")
	require.NoError(t, err)
	assert.Equal(t, model.PlanPro, tenant.SubscriptionPlan)

	_, err = h.tenants.Upgrade(ctx, admin, "acme")
	assertKind(t, err, apperror.KindAlreadyUpgraded)

	details, err := h.tenants.Get(ctx, admin, "acme")
	require.NoError(t, err)
	assert.Equal(t, model.PlanPro, details.Tenant.SubscriptionPlan)
	assert.Nil(t, details.Usage.NoteLimit)
}

func TestTenantGetAndStats(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin := h.provision(t, "acme")

	_, err := h.users.Invite(ctx, admin, "user@acme.test", model.RoleMember)
	require.NoError(t, err)
	for _, title := range []string{"A", "B"} {
		_, err := h.notes.Create(ctx, admin, NoteInput{Title: title})
		require.NoError(t, err)
	}

	details, err := h.tenants.Get(ctx, admin, "acme")
	require.NoError(t, err)
	assert.Equal(t, int64(2), details.Usage.UserCount)
	assert.Equal(t, int64(2), details.Usage.NoteCount)
	require.NotNil(t, details.Usage.NoteLimit)
	assert.Equal(t, 3, *details.Usage.NoteLimit)

	stats, recent, err := h.tenants.Stats(ctx, admin, "acme")
	require.NoError(t, err)
	assert.Equal(t, &TenantStats{
		TotalUsers: 2, AdminUsers: 1, MemberUsers: 1,
		TotalNotes: 2, NotesToday: 2, NotesThisWeek: 2, NotesThisMonth: 2,
	}, stats)
	require.Len(t, recent, 2)
	assert.Equal(t, "B", recent[0].Title)

	_, err = h.tenants.Get(ctx, admin, "globex")
	assertKind(t, err, apperror.KindNotFound)
}

func TestCreateTenantValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tenant, admin, err := h.tenants.Create(ctx, CreateTenantInput{
		Name: "Initech Corp", AdminEmail: "boss@initech.test", AdminPassword: "password",
	})
	require.NoError(t, err)
	assert.Equal(t, "initech-corp", tenant.Slug)
	assert.Equal(t, model.PlanFree, tenant.SubscriptionPlan)
	assert.Equal(t, model.RoleAdmin, admin.Role)
	assert.Equal(t, tenant.ID, admin.TenantID)

	_, _, err = h.tenants.Create(ctx, CreateTenantInput{
		Name: "Initech", Slug: "initech-corp", AdminEmail: "x@initech.test", AdminPassword: "password",
	})
	assertKind(t, err, apperror.KindAlreadyExists)

	_, _, err = h.tenants.Create(ctx, CreateTenantInput{Name: "Bad", Slug: "Bad_Slug", AdminEmail: "a@b.test", AdminPassword: "password"})
	assertKind(t, err, apperror.KindValidation)

	_, _, err = h.tenants.Create(ctx, CreateTenantInput{Name: "Short", Slug: "x", AdminEmail: "a@b.test", AdminPassword: "password"})
	assertKind(t, err, apperror.KindValidation)

	_, _, err = h.tenants.Create(ctx, CreateTenantInput{Name: "Weak", AdminEmail: "a@b.test", AdminPassword: "123"})
	assertKind(t, err, apperror.KindValidation)

	_, _, err = h.tenants.Create(ctx, CreateTenantInput{Name: "Plan", AdminEmail: "a@b.test", AdminPassword: "password", Plan: "gold"})
	assertKind(t, err, apperror.KindValidation)
}

func TestParseID(t *testing.T) {
	_, err := ParseID("not-a-uuid", "note")
	assertKind(t, err, apperror.KindInvalidIdentifier)

	_, err = ParseID(uuid.Nil.String(), "note")
	assertKind(t, err, apperror.KindInvalidIdentifier)

	id := uuid.New()
	parsed, err := ParseID(id.String(), "note")
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}
