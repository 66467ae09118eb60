package interfaces

import (
	"context"

	"github.com/secmon-lab/threadsync/pkg/domain/model"
	"github.com/secmon-lab/threadsync/pkg/domain/model/tracker"
)

// TrackerStore persists the sync state of each issue
type TrackerStore interface {
	// Get returns the stored state, or nil when the issue was never synced.
	// A state whose payload could not be decoded is returned with a nil Data and the comment id it was found in.
	Get(ctx context.Context, key model.IssueKey) (*tracker.State, error)

	// Put stores the state after the sync comment has been written
	Put(ctx context.Context, key model.IssueKey, state *tracker.State) error
}
