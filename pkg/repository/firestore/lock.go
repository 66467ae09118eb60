package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/threadsync/pkg/domain/interfaces"
	"github.com/secmon-lab/threadsync/pkg/domain/model"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type lockRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

var _ interfaces.IssueLocker = &lockRepository{}

func newLockRepository(client *firestore.Client) *lockRepository {
	return &lockRepository{
		client: client,
	}
}

// issueLockDoc is the Firestore persistence model. expires_at carries the TTL policy.
type issueLockDoc struct {
	Holder     string    `firestore:"holder"`
	AcquiredAt time.Time `firestore:"acquired_at"`
	ExpiresAt  time.Time `firestore:"expires_at"`
}

func (r *lockRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(collectionName(r.collectionPrefix, issueLocksCollection))
}

func (r *lockRepository) TryLock(ctx context.Context, key model.IssueKey, ttl time.Duration) (func(context.Context) error, bool, error) {
	ref := r.collection().Doc(key.DocID())
	now := time.Now().UTC()
	lock := &issueLockDoc{
		Holder:     uuid.NewString(),
		AcquiredAt: now,
		ExpiresAt:  now.Add(ttl),
	}

	_, err := ref.Create(ctx, lock)
	if err != nil {
		if status.Code(err) != codes.AlreadyExists {
			return nil, false, goerr.Wrap(err, "failed to create issue lock", goerr.V("issue", key.String()))
		}

		acquired, err := r.takeOverExpired(ctx, ref, lock)
		if err != nil {
			return nil, false, goerr.Wrap(err, "failed to take over issue lock", goerr.V("issue", key.String()))
		}
		if !acquired {
			return nil, false, nil
		}
	}

	release := func(ctx context.Context) error {
		return r.release(ctx, ref, lock.Holder)
	}
	return release, true, nil
}

// takeOverExpired replaces a lock whose TTL passed but which Firestore has not purged yet
func (r *lockRepository) takeOverExpired(ctx context.Context, ref *firestore.DocumentRef, lock *issueLockDoc) (bool, error) {
	acquired := false
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		acquired = false

		snap, err := tx.Get(ref)
		if err != nil && status.Code(err) != codes.NotFound {
			return goerr.Wrap(err, "failed to get issue lock")
		}

		if err == nil {
			var current issueLockDoc
			if err := snap.DataTo(&current); err != nil {
				return goerr.Wrap(err, "failed to decode issue lock")
			}
			if lock.AcquiredAt.Before(current.ExpiresAt) {
				return nil
			}
		}

		acquired = true
		return tx.Set(ref, lock)
	})
	if err != nil {
		return false, err
	}
	return acquired, nil
}

func (r *lockRepository) release(ctx context.Context, ref *firestore.DocumentRef, holder string) error {
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return nil
			}
			return goerr.Wrap(err, "failed to get issue lock")
		}

		var current issueLockDoc
		if err := snap.DataTo(&current); err != nil {
			return goerr.Wrap(err, "failed to decode issue lock")
		}
		if current.Holder != holder {
			return nil
		}
		return tx.Delete(ref)
	})
	if err != nil {
		return goerr.Wrap(err, "failed to release issue lock")
	}
	return nil
}
