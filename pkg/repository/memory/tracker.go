package memory

import (
	"context"
	"sync"

	"github.com/secmon-lab/threadsync/pkg/domain/interfaces"
	"github.com/secmon-lab/threadsync/pkg/domain/model"
	"github.com/secmon-lab/threadsync/pkg/domain/model/tracker"
)

type trackerStore struct {
	mu     sync.RWMutex
	states map[string]*tracker.State
}

var _ interfaces.TrackerStore = &trackerStore{}

func newTrackerStore() *trackerStore {
	return &trackerStore{
		states: make(map[string]*tracker.State),
	}
}

func (s *trackerStore) Get(ctx context.Context, key model.IssueKey) (*tracker.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[key.DocID()]
	if !ok {
		return nil, nil
	}
	return copyState(state), nil
}

func (s *trackerStore) Put(ctx context.Context, key model.IssueKey, state *tracker.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[key.DocID()] = copyState(state)
	return nil
}

// copyState returns a deep copy so callers never share the stored slices
func copyState(s *tracker.State) *tracker.State {
	if s == nil {
		return nil
	}
	out := &tracker.State{CommentID: s.CommentID}
	if s.Data == nil {
		return out
	}

	data := *s.Data
	if s.Data.LastAuthorIsTeamMember != nil {
		v := *s.Data.LastAuthorIsTeamMember
		data.LastAuthorIsTeamMember = &v
	}
	data.Messages = make([]tracker.SyncedMessage, len(s.Data.Messages))
	copy(data.Messages, s.Data.Messages)
	out.Data = &data
	return out
}
