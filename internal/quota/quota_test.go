package quota

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/notes-service/internal/apperror"
	"github.com/suteetoe/notes-service/pkg/config"
	"github.com/suteetoe/notes-service/pkg/lock"
	"go.uber.org/zap"
)

// memoryNotes is a slow counter that widens the count-then-create window
type memoryNotes struct {
	count int64
	delay time.Duration
}

func (m *memoryNotes) CountNotes(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	n := atomic.LoadInt64(&m.count)
	time.Sleep(m.delay)
	return n, nil
}

func (m *memoryNotes) create(ctx context.Context) error {
	atomic.AddInt64(&m.count, 1)
	return nil
}

func newEnforcer(notes *memoryNotes) *Enforcer {
	return NewEnforcer(notes, config.DefaultPlans(), lock.NewLocal(), zap.NewNop())
}

func TestFreePlanStopsAtLimit(t *testing.T) {
	notes := &memoryNotes{}
	e := newEnforcer(notes)
	tenant := uuid.New()

	for i := 0; i < 3; i++ {
		require.NoError(t, e.Create(context.Background(), tenant, "free", notes.create))
	}

	err := e.Create(context.Background(), tenant, "free", notes.create)
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.KindQuotaExceeded, appErr.Kind)
	assert.True(t, appErr.LimitReached)
	assert.Equal(t, "Free plan is limited to 3 notes. Please upgrade to Pro for unlimited notes.", appErr.Message)
	assert.Equal(t, int64(3), notes.count)
}

func TestProPlanIsUnlimited(t *testing.T) {
	notes := &memoryNotes{}
	e := newEnforcer(notes)
	tenant := uuid.New()

	for i := 0; i < 25; i++ {
		require.NoError(t, e.Create(context.Background(), tenant, "pro", notes.create))
	}
	assert.Equal(t, int64(25), notes.count)
}

func TestUpgradeLiftsLimit(t *testing.T) {
	notes := &memoryNotes{count: 3}
	e := newEnforcer(notes)
	tenant := uuid.New()

	assert.True(t, apperror.IsKind(e.Create(context.Background(), tenant, "free", notes.create), apperror.KindQuotaExceeded))
	assert.NoError(t, e.Create(context.Background(), tenant, "pro", notes.create))
}

func TestConcurrentCreatorsNeverExceedLimit(t *testing.T) {
	notes := &memoryNotes{count: 2, delay: 5 * time.Millisecond}
	e := newEnforcer(notes)
	tenant := uuid.New()

	var (
		wg       sync.WaitGroup
		accepted int64
		rejected int64
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := e.Create(context.Background(), tenant, "free", notes.create)
			switch {
			case err == nil:
				atomic.AddInt64(&accepted, 1)
			case apperror.IsKind(err, apperror.KindQuotaExceeded):
				atomic.AddInt64(&rejected, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), accepted)
	assert.Equal(t, int64(9), rejected)
	assert.Equal(t, int64(3), notes.count)
}

func TestCreateErrorsPropagate(t *testing.T) {
	e := newEnforcer(&memoryNotes{})
	boom := errors.New("insert failed")

	err := e.Create(context.Background(), uuid.New(), "free", func(ctx context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestCancelledContextWhileWaiting(t *testing.T) {
	locker := lock.NewLocal()
	e := NewEnforcer(&memoryNotes{}, config.DefaultPlans(), locker, zap.NewNop())
	tenant := uuid.New()

	unlock, err := locker.Lock(context.Background(), lockKey(tenant))
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err = e.Create(ctx, tenant, "free", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
