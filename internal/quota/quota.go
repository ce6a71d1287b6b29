package quota

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/suteetoe/notes-service/internal/apperror"
	"github.com/suteetoe/notes-service/pkg/config"
	"github.com/suteetoe/notes-service/pkg/lock"
	"github.com/suteetoe/notes-service/prometheus"
	"go.uber.org/zap"
)

// Counter reports how many notes a tenant holds
type Counter interface {
	CountNotes(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

// Enforcer gates note creation on the tenant's plan limit. For limited
// plans count and create run under a per-tenant lock, so the limit is a
// hard cap rather than a best-effort check.
type Enforcer struct {
	counter Counter
	plans   *config.Plans
	locker  lock.Locker
	log     *zap.Logger
}

// NewEnforcer creates a quota enforcer
func NewEnforcer(counter Counter, plans *config.Plans, locker lock.Locker, log *zap.Logger) *Enforcer {
	return &Enforcer{
		counter: counter,
		plans:   plans,
		locker:  locker,
		log:     log.Named("quota"),
	}
}

// Limit returns the note limit of plan and whether it applies
func (e *Enforcer) Limit(plan string) (int, bool) {
	return e.plans.NoteLimit(plan)
}

// Create runs create when tenantID still has room on plan, or fails with
// quota_exceeded. plan must come from the live tenant record.
func (e *Enforcer) Create(ctx context.Context, tenantID uuid.UUID, plan string, create func(ctx context.Context) error) error {
	limit, limited := e.plans.NoteLimit(plan)
	if !limited {
		return create(ctx)
	}

	unlock, err := e.locker.Lock(ctx, lockKey(tenantID))
	if err != nil {
		return fmt.Errorf("acquire quota lock: %w", err)
	}
	defer unlock()

	count, err := e.counter.CountNotes(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("count notes: %w", err)
	}

	if count >= int64(limit) {
		prometheus.RecordQuotaRejection(plan)
		e.log.Info("Note limit reached",
			zap.String("tenant_id", tenantID.String()),
			zap.String("plan", plan),
			zap.Int64("count", count),
			zap.Int("limit", limit))
		return apperror.QuotaExceeded(limitMessage(plan, limit))
	}

	return create(ctx)
}

func lockKey(tenantID uuid.UUID) string {
	return "quota:notes:" + tenantID.String()
}

func limitMessage(plan string, limit int) string {
	name := plan
	if name != "" {
		name = strings.ToUpper(name[:1]) + name[1:]
	}
	return fmt.Sprintf("%s plan is limited to %d notes. Please upgrade to Pro for unlimited notes.", name, limit)
}
