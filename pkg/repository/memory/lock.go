package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/secmon-lab/threadsync/pkg/domain/interfaces"
	"github.com/secmon-lab/threadsync/pkg/domain/model"
)

type lockEntry struct {
	holder    string
	expiresAt time.Time
}

type issueLocker struct {
	mu    sync.Mutex
	locks map[string]lockEntry
	now   func() time.Time
}

var _ interfaces.IssueLocker = &issueLocker{}

func newIssueLocker() *issueLocker {
	return &issueLocker{
		locks: make(map[string]lockEntry),
		now:   time.Now,
	}
}

func (l *issueLocker) TryLock(ctx context.Context, key model.IssueKey, ttl time.Duration) (func(context.Context) error, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := key.DocID()
	now := l.now()
	if entry, ok := l.locks[id]; ok && now.Before(entry.expiresAt) {
		return nil, false, nil
	}

	holder := uuid.NewString()
	l.locks[id] = lockEntry{holder: holder, expiresAt: now.Add(ttl)}

	release := func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()

		if entry, ok := l.locks[id]; ok && entry.holder == holder {
			delete(l.locks, id)
		}
		return nil
	}
	return release, true, nil
}
