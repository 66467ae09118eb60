package interfaces

import (
	"context"
	"time"

	"github.com/secmon-lab/threadsync/pkg/domain/model"
)

// IssueLocker provides a short-lived advisory lock per issue so overlapping runs never write the same sync comment
type IssueLocker interface {
	// TryLock acquires the lock for key without blocking.
	// acquired is false when another holder owns an unexpired lock; release must be called only when acquired.
	TryLock(ctx context.Context, key model.IssueKey, ttl time.Duration) (release func(context.Context) error, acquired bool, err error)
}
