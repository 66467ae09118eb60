package repository_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/threadsync/pkg/domain/interfaces"
	"github.com/secmon-lab/threadsync/pkg/domain/model"
	"github.com/secmon-lab/threadsync/pkg/domain/model/tracker"
	"github.com/secmon-lab/threadsync/pkg/repository/firestore"
	"github.com/secmon-lab/threadsync/pkg/repository/memory"
)

func newIssueKey() model.IssueKey {
	return model.IssueKey{
		Owner:  "secmon-lab",
		Repo:   "threadsync",
		Number: int(time.Now().UnixNano() % 1_000_000_000),
	}
}

func runTrackerRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("Get returns nil for never synced issue", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		state, err := repo.Tracker().Get(ctx, newIssueKey())
		gt.NoError(t, err).Required()
		gt.Value(t, state).Nil()
	})

	t.Run("Put then Get round-trips state", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		key := newIssueKey()

		ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		yes := true
		data := tracker.NewData([]tracker.SyncedMessage{
			{ID: "100", Author: "alice", Content: "hello", Timestamp: ts, MessageURL: "https://discord.com/channels/1/2/100"},
			{ID: "101", Author: "bob", Content: "world", Timestamp: ts.Add(time.Minute), MessageURL: "https://discord.com/channels/1/2/101"},
		}, &yes, ts.Add(time.Hour))

		gt.NoError(t, repo.Tracker().Put(ctx, key, &tracker.State{CommentID: 555, Data: data})).Required()

		got, err := repo.Tracker().Get(ctx, key)
		gt.NoError(t, err).Required()
		gt.Value(t, got).NotNil()
		gt.Value(t, got.CommentID).Equal(int64(555))
		gt.Value(t, got.Data.Version).Equal(tracker.CurrentVersion)
		gt.Value(t, got.Data.LastMessageID).Equal("101")
		gt.Bool(t, got.Data.LastTimestamp.Equal(ts.Add(time.Minute))).True()
		gt.Value(t, got.Data.LastAuthorIsTeamMember).NotNil()
		gt.Bool(t, *got.Data.LastAuthorIsTeamMember).True()
		gt.Array(t, got.Data.Messages).Length(2)
		gt.Value(t, got.Data.Messages[0].Author).Equal("alice")
		gt.Value(t, got.Data.Messages[1].MessageURL).Equal("https://discord.com/channels/1/2/101")
	})

	t.Run("Put overwrites previous state", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		key := newIssueKey()
		ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

		first := tracker.NewData([]tracker.SyncedMessage{{ID: "1", Author: "a", Content: "x", Timestamp: ts}}, nil, ts)
		gt.NoError(t, repo.Tracker().Put(ctx, key, &tracker.State{CommentID: 1, Data: first})).Required()

		second := tracker.NewData(append(first.Messages, tracker.SyncedMessage{ID: "2", Author: "b", Content: "y", Timestamp: ts.Add(time.Second)}), nil, ts)
		gt.NoError(t, repo.Tracker().Put(ctx, key, &tracker.State{CommentID: 1, Data: second})).Required()

		got, err := repo.Tracker().Get(ctx, key)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Data.LastMessageID).Equal("2")
		gt.Array(t, got.Data.Messages).Length(2)
		gt.Value(t, got.Data.LastAuthorIsTeamMember).Nil()
	})

	t.Run("issues are stored independently", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		key1 := newIssueKey()
		key2 := key1
		key2.Number++

		ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		data := tracker.NewData([]tracker.SyncedMessage{{ID: "9", Author: "a", Content: "x", Timestamp: ts}}, nil, ts)
		gt.NoError(t, repo.Tracker().Put(ctx, key1, &tracker.State{CommentID: 9, Data: data})).Required()

		got, err := repo.Tracker().Get(ctx, key2)
		gt.NoError(t, err).Required()
		gt.Value(t, got).Nil()
	})
}

func runLockRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("second TryLock fails while held", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		key := newIssueKey()

		release, acquired, err := repo.Locker().TryLock(ctx, key, time.Minute)
		gt.NoError(t, err).Required()
		gt.Bool(t, acquired).True()

		_, acquired2, err := repo.Locker().TryLock(ctx, key, time.Minute)
		gt.NoError(t, err).Required()
		gt.Bool(t, acquired2).False()

		gt.NoError(t, release(ctx)).Required()

		release3, acquired3, err := repo.Locker().TryLock(ctx, key, time.Minute)
		gt.NoError(t, err).Required()
		gt.Bool(t, acquired3).True()
		gt.NoError(t, release3(ctx))
	})

	t.Run("locks are per issue", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		key1 := newIssueKey()
		key2 := key1
		key2.Number++

		release1, acquired1, err := repo.Locker().TryLock(ctx, key1, time.Minute)
		gt.NoError(t, err).Required()
		gt.Bool(t, acquired1).True()

		release2, acquired2, err := repo.Locker().TryLock(ctx, key2, time.Minute)
		gt.NoError(t, err).Required()
		gt.Bool(t, acquired2).True()

		gt.NoError(t, release1(ctx))
		gt.NoError(t, release2(ctx))
	})

	t.Run("expired lock can be taken over", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		key := newIssueKey()

		_, acquired, err := repo.Locker().TryLock(ctx, key, time.Millisecond)
		gt.NoError(t, err).Required()
		gt.Bool(t, acquired).True()

		time.Sleep(20 * time.Millisecond)

		release, acquired2, err := repo.Locker().TryLock(ctx, key, time.Minute)
		gt.NoError(t, err).Required()
		gt.Bool(t, acquired2).True()
		gt.NoError(t, release(ctx))
	})
}

func TestTrackerRepository_Memory(t *testing.T) {
	runTrackerRepositoryTest(t, func(t *testing.T) interfaces.Repository {
		return memory.New()
	})
}

func TestTrackerRepository_Firestore(t *testing.T) {
	runTrackerRepositoryTest(t, newFirestoreRepository)
}

func TestLockRepository_Memory(t *testing.T) {
	runLockRepositoryTest(t, func(t *testing.T) interfaces.Repository {
		return memory.New()
	})
}

func TestLockRepository_Firestore(t *testing.T) {
	runLockRepositoryTest(t, newFirestoreRepository)
}

func newFirestoreRepository(t *testing.T) interfaces.Repository {
	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	if projectID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID not set")
	}
	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")

	repo, err := firestore.New(context.Background(), projectID, databaseID,
		firestore.WithCollectionPrefix(fmt.Sprintf("test_%d", time.Now().UnixNano())),
	)
	gt.NoError(t, err).Required()
	t.Cleanup(func() {
		_ = repo.Close()
	})
	return repo
}

func TestFirestore_ListTrackers(t *testing.T) {
	repo := newFirestoreRepository(t).(*firestore.Firestore)
	ctx := context.Background()

	owner := fmt.Sprintf("owner-%d", time.Now().UnixNano())
	for i := 1; i <= 3; i++ {
		key := model.IssueKey{Owner: owner, Repo: "threadsync", Number: i}
		gt.NoError(t, repo.Tracker().Put(ctx, key, &tracker.State{
			CommentID: int64(100 + i),
			Data:      &tracker.SyncTrackerData{Version: tracker.CurrentVersion, LastMessageID: fmt.Sprintf("%d", i)},
		})).Required()
	}
	other := model.IssueKey{Owner: owner, Repo: "other", Number: 1}
	gt.NoError(t, repo.Tracker().Put(ctx, other, &tracker.State{
		CommentID: 1,
		Data:      &tracker.SyncTrackerData{Version: tracker.CurrentVersion},
	})).Required()

	records, err := repo.ListTrackers(ctx, owner, "threadsync", 0)
	gt.NoError(t, err).Required()
	gt.Array(t, records).Length(3)
	gt.Value(t, records[0].Key.Number).Equal(3)
	gt.Value(t, records[0].State.CommentID).Equal(int64(103))

	limited, err := repo.ListTrackers(ctx, owner, "threadsync", 2)
	gt.NoError(t, err).Required()
	gt.Array(t, limited).Length(2)
}
