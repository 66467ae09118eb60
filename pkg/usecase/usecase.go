package usecase

import (
	"slices"
	"time"

	"github.com/secmon-lab/threadsync/pkg/domain/interfaces"
	"github.com/secmon-lab/threadsync/pkg/domain/model"
	"github.com/secmon-lab/threadsync/pkg/domain/types"
	"github.com/secmon-lab/threadsync/pkg/repository/comment"
	"github.com/secmon-lab/threadsync/pkg/service/discord"
	"github.com/secmon-lab/threadsync/pkg/service/github"
)

const (
	DefaultConcurrency  = 10
	DefaultIssueTimeout = 2 * time.Minute
	DefaultLockTTL      = 5 * time.Minute

	// recentMessageLimit bounds the lookup of the latest author when nothing new arrived
	recentMessageLimit = 50
)

type UseCases struct {
	github     github.Service
	discord    discord.Service
	trackers   interfaces.TrackerStore
	locker     interfaces.IssueLocker
	classifier interfaces.MemberClassifier
	roster     interfaces.TeamRoster

	syncMode      types.SyncMode
	concurrency   int
	issueTimeout  time.Duration
	lockTTL       time.Duration
	statusLabels  []string
	followUpLabel string
	now           func() time.Time
}

type Option func(*UseCases)

// WithTrackerStore replaces the default comment-scanning tracker store
func WithTrackerStore(store interfaces.TrackerStore) Option {
	return func(uc *UseCases) {
		uc.trackers = store
	}
}

// WithLocker enables the per-issue advisory lock
func WithLocker(locker interfaces.IssueLocker, ttl time.Duration) Option {
	return func(uc *UseCases) {
		uc.locker = locker
		if ttl > 0 {
			uc.lockTTL = ttl
		}
	}
}

func WithClassifier(classifier interfaces.MemberClassifier) Option {
	return func(uc *UseCases) {
		uc.classifier = classifier
	}
}

func WithRoster(roster interfaces.TeamRoster) Option {
	return func(uc *UseCases) {
		uc.roster = roster
	}
}

func WithSyncMode(mode types.SyncMode) Option {
	return func(uc *UseCases) {
		uc.syncMode = mode.Normalize()
	}
}

func WithConcurrency(n int) Option {
	return func(uc *UseCases) {
		if n > 0 {
			uc.concurrency = n
		}
	}
}

func WithIssueTimeout(d time.Duration) Option {
	return func(uc *UseCases) {
		if d > 0 {
			uc.issueTimeout = d
		}
	}
}

// WithStatusLabels sets the labels selecting the working set
func WithStatusLabels(labels ...string) Option {
	return func(uc *UseCases) {
		if len(labels) > 0 {
			uc.statusLabels = slices.Clone(labels)
		}
	}
}

func WithFollowUpLabel(label string) Option {
	return func(uc *UseCases) {
		if label != "" {
			uc.followUpLabel = label
		}
	}
}

// WithClock replaces the clock used for rendering
func WithClock(now func() time.Time) Option {
	return func(uc *UseCases) {
		uc.now = now
	}
}

func New(gh github.Service, dc discord.Service, opts ...Option) *UseCases {
	uc := &UseCases{
		github:        gh,
		discord:       dc,
		classifier:    model.NewRoleNameClassifier(model.DefaultTeamRoleNames...),
		roster:        model.NewRoster(),
		syncMode:      types.SyncModeDigest,
		concurrency:   DefaultConcurrency,
		issueTimeout:  DefaultIssueTimeout,
		lockTTL:       DefaultLockTTL,
		statusLabels:  types.DefaultStatusLabels(),
		followUpLabel: types.LabelNeedsFollowUp,
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	if uc.trackers == nil {
		uc.trackers = comment.New(gh)
	}

	return uc
}
