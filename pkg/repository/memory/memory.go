package memory

import (
	"github.com/secmon-lab/threadsync/pkg/domain/interfaces"
)

type Memory struct {
	tracker *trackerStore
	locker  *issueLocker
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		tracker: newTrackerStore(),
		locker:  newIssueLocker(),
	}
}

func (m *Memory) Tracker() interfaces.TrackerStore {
	return m.tracker
}

func (m *Memory) Locker() interfaces.IssueLocker {
	return m.locker
}
