package grouping

import (
	"context"
	"fmt"
	"time"

	"github.com/yungbote/burstreply-backend/internal/ephemeral"
	"github.com/yungbote/burstreply-backend/internal/observability"
)

// ScheduleLock guards "a job is already scheduled for this burst".
type ScheduleLock struct {
	store ephemeral.Store
	ttl   time.Duration
}

func NewScheduleLock(store ephemeral.Store, cfg Config) *ScheduleLock {
	return &ScheduleLock{store: store, ttl: cfg.LockTTL}
}

func (l *ScheduleLock) TryAcquire(ctx context.Context, conversationID string) (bool, error) {
	ok, err := l.store.SetNX(ctx, lockKey(conversationID), []byte("1"), l.ttl)
	if err != nil {
		return false, fmt.Errorf("acquire schedule lock %s: %w", conversationID, err)
	}
	observability.Current().IncLockAcquire(ok)
	return ok, nil
}

// Release drops the lock early, used when the job it guards could not be scheduled.
func (l *ScheduleLock) Release(ctx context.Context, conversationID string) error {
	return l.store.Delete(ctx, lockKey(conversationID))
}
