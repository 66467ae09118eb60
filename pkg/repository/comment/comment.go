// Package comment implements TrackerStore on top of the issue comments themselves.
// The sync comment is the only storage, so Put has nothing to do once the comment has been written.
package comment

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/threadsync/pkg/domain/interfaces"
	"github.com/secmon-lab/threadsync/pkg/domain/model"
	"github.com/secmon-lab/threadsync/pkg/domain/model/tracker"
	"github.com/secmon-lab/threadsync/pkg/service/github"
	"github.com/secmon-lab/threadsync/pkg/utils/logging"
)

type Store struct {
	github github.Service
}

var _ interfaces.TrackerStore = &Store{}

func New(gh github.Service) *Store {
	return &Store{github: gh}
}

// Get scans the issue comments for the canonical sync comment and decodes its payload
func (s *Store) Get(ctx context.Context, key model.IssueKey) (*tracker.State, error) {
	comments, err := s.github.ListComments(ctx, key.Owner, key.Repo, key.Number)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list comments for sync tracker", goerr.V("issue", key.String()))
	}

	found := tracker.FindComment(comments)
	if found == nil {
		return nil, nil
	}

	state := &tracker.State{CommentID: found.ID}
	data, err := tracker.Parse(found.Body)
	if err != nil {
		if !errors.Is(err, tracker.ErrMalformed) {
			return nil, goerr.Wrap(err, "failed to parse sync tracker", goerr.V("issue", key.String()))
		}
		logging.From(ctx).Warn("sync tracker is malformed, starting over",
			"issue", key.String(),
			"comment_id", found.ID,
			"error", err,
		)
		return state, nil
	}

	state.Data = data
	return state, nil
}

// Put is a no-op; the rendered comment already carries the state
func (s *Store) Put(ctx context.Context, key model.IssueKey, state *tracker.State) error {
	return nil
}
