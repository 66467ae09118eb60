package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/threadsync/pkg/domain/interfaces"
)

const (
	syncTrackersCollection = "sync_trackers"
	issueLocksCollection   = "issue_locks"
)

type Firestore struct {
	client  *firestore.Client
	tracker *trackerRepository
	locker  *lockRepository
}

var _ interfaces.Repository = &Firestore{}

type Option func(*Firestore)

func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.tracker.collectionPrefix = prefix
		f.locker.collectionPrefix = prefix
	}
}

func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID),
			goerr.V("databaseID", databaseID),
		)
	}

	f := &Firestore{
		client:  client,
		tracker: newTrackerRepository(client),
		locker:  newLockRepository(client),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

func (f *Firestore) Tracker() interfaces.TrackerStore {
	return f.tracker
}

func (f *Firestore) Locker() interfaces.IssueLocker {
	return f.locker
}

// ListTrackers returns stored trackers of owner/repo, newest write first. A limit of zero lists all.
func (f *Firestore) ListTrackers(ctx context.Context, owner, repo string, limit int) ([]*TrackerRecord, error) {
	return f.tracker.List(ctx, owner, repo, limit)
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func collectionName(prefix, name string) string {
	if prefix != "" {
		return prefix + "_" + name
	}
	return name
}

// SyncTrackersCollection returns the tracker collection name under prefix
func SyncTrackersCollection(prefix string) string {
	return collectionName(prefix, syncTrackersCollection)
}

// IssueLocksCollection returns the lock collection name under prefix
func IssueLocksCollection(prefix string) string {
	return collectionName(prefix, issueLocksCollection)
}
