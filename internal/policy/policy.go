package policy

import (
	_ "embed"
	"fmt"

	"github.com/casbin/casbin/v2"
	casbinmodel "github.com/casbin/casbin/v2/model"
	"github.com/suteetoe/notes-service/internal/apperror"
	"github.com/suteetoe/notes-service/internal/model"
)

//go:embed model.conf
var modelText string

// Action names a guarded operation
type Action string

const (
	ActionProfileRead Action = "profile.read"

	ActionNoteCreate Action = "note.create"
	ActionNoteList   Action = "note.list"
	ActionNoteRead   Action = "note.read"
	ActionNoteUpdate Action = "note.update"
	ActionNoteDelete Action = "note.delete"

	ActionTenantRead    Action = "tenant.read"
	ActionTenantUpgrade Action = "tenant.upgrade"
	ActionTenantStats   Action = "tenant.stats"

	ActionUserInvite     Action = "user.invite"
	ActionUserList       Action = "user.list"
	ActionUserUpdateRole Action = "user.update_role"
	ActionUserRemove     Action = "user.remove"
)

// Scope says how the caller's tenant relates to the addressed resource
type Scope int

const (
	// ScopeTenant resources are filtered by the caller's tenant id in every query
	ScopeTenant Scope = iota
	// ScopeTenantSlug resources are addressed by slug, which must be the caller's own
	ScopeTenantSlug
)

// Rule is one row of the policy table
type Rule struct {
	Action Action
	Roles  []string
	Scope  Scope
}

var everyone = []string{model.RoleMember, model.RoleAdmin}
var adminsOnly = []string{model.RoleAdmin}

// Rules is the complete policy table
var Rules = []Rule{
	{ActionProfileRead, everyone, ScopeTenant},

	{ActionNoteCreate, everyone, ScopeTenant},
	{ActionNoteList, everyone, ScopeTenant},
	{ActionNoteRead, everyone, ScopeTenant},
	{ActionNoteUpdate, everyone, ScopeTenant},
	{ActionNoteDelete, everyone, ScopeTenant},

	{ActionTenantRead, everyone, ScopeTenantSlug},
	{ActionTenantUpgrade, adminsOnly, ScopeTenantSlug},
	{ActionTenantStats, adminsOnly, ScopeTenantSlug},

	{ActionUserInvite, adminsOnly, ScopeTenant},
	{ActionUserList, adminsOnly, ScopeTenant},
	{ActionUserUpdateRole, adminsOnly, ScopeTenant},
	{ActionUserRemove, adminsOnly, ScopeTenant},
}

// Policy evaluates the rule table. Role grants live in a casbin enforcer,
// scopes are checked here.
type Policy struct {
	enforcer *casbin.SyncedEnforcer
	scopes   map[Action]Scope
}

// New loads rules into a fresh enforcer
func New(rules []Rule) (*Policy, error) {
	m, err := casbinmodel.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("load policy model: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}

	scopes := make(map[Action]Scope, len(rules))
	var grants [][]string
	for _, rule := range rules {
		if _, dup := scopes[rule.Action]; dup {
			return nil, fmt.Errorf("duplicate policy rule for %s", rule.Action)
		}
		scopes[rule.Action] = rule.Scope
		for _, role := range rule.Roles {
			grants = append(grants, []string{role, string(rule.Action)})
		}
	}
	if len(grants) > 0 {
		if _, err := enforcer.AddPolicies(grants); err != nil {
			return nil, fmt.Errorf("add policies: %w", err)
		}
	}

	return &Policy{enforcer: enforcer, scopes: scopes}, nil
}

// NewDefault loads the built-in rule table
func NewDefault() (*Policy, error) {
	return New(Rules)
}

// Decide checks the caller's role for action, then for slug scoped actions
// that slug is the caller's own tenant. Unknown actions are denied.
func (p *Policy) Decide(identity model.Identity, action Action, slug string) error {
	scope, known := p.scopes[action]
	if !known {
		return apperror.New(apperror.KindInsufficientRole, "access denied")
	}

	allowed, err := p.enforcer.Enforce(identity.Role, string(action))
	if err != nil {
		return apperror.Internal(fmt.Errorf("enforce %s: %w", action, err))
	}
	if !allowed {
		return apperror.New(apperror.KindInsufficientRole, "insufficient permissions")
	}

	if scope == ScopeTenantSlug && slug != identity.TenantSlug {
		return apperror.New(apperror.KindTenantMismatch, "you can only access your own tenant")
	}
	return nil
}
