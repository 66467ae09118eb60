package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/threadsync/pkg/domain/interfaces"
	"github.com/secmon-lab/threadsync/pkg/domain/model"
	"github.com/secmon-lab/threadsync/pkg/domain/model/tracker"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type trackerRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

var _ interfaces.TrackerStore = &trackerRepository{}

func newTrackerRepository(client *firestore.Client) *trackerRepository {
	return &trackerRepository{
		client: client,
	}
}

// syncTrackerDoc is the Firestore persistence model
type syncTrackerDoc struct {
	Owner                  string             `firestore:"owner"`
	Repo                   string             `firestore:"repo"`
	IssueNumber            int                `firestore:"issue_number"`
	CommentID              int64              `firestore:"comment_id"`
	Version                int                `firestore:"version"`
	LastMessageID          string             `firestore:"last_message_id"`
	LastTimestamp          time.Time          `firestore:"last_timestamp"`
	LastAuthorIsTeamMember *bool              `firestore:"last_author_is_team_member"`
	Messages               []syncedMessageDoc `firestore:"messages"`
	UpdatedAt              time.Time          `firestore:"updated_at"`
}

type syncedMessageDoc struct {
	ID         string    `firestore:"id"`
	Author     string    `firestore:"author"`
	Content    string    `firestore:"content"`
	Timestamp  time.Time `firestore:"timestamp"`
	MessageURL string    `firestore:"message_url"`
}

func (r *trackerRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(collectionName(r.collectionPrefix, syncTrackersCollection))
}

func (r *trackerRepository) Get(ctx context.Context, key model.IssueKey) (*tracker.State, error) {
	snap, err := r.collection().Doc(key.DocID()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get sync tracker", goerr.V("issue", key.String()))
	}

	var doc syncTrackerDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode sync tracker", goerr.V("issue", key.String()))
	}

	return toState(&doc), nil
}

func (r *trackerRepository) Put(ctx context.Context, key model.IssueKey, state *tracker.State) error {
	if state == nil || state.Data == nil {
		return goerr.New("sync tracker state is empty", goerr.V("issue", key.String()))
	}

	doc := fromState(key, state)
	doc.UpdatedAt = time.Now().UTC()

	if _, err := r.collection().Doc(key.DocID()).Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to put sync tracker", goerr.V("issue", key.String()))
	}
	return nil
}

func fromState(key model.IssueKey, state *tracker.State) *syncTrackerDoc {
	messages := make([]syncedMessageDoc, 0, len(state.Data.Messages))
	for _, m := range state.Data.Messages {
		messages = append(messages, syncedMessageDoc(m))
	}

	return &syncTrackerDoc{
		Owner:                  key.Owner,
		Repo:                   key.Repo,
		IssueNumber:            key.Number,
		CommentID:              state.CommentID,
		Version:                tracker.CurrentVersion,
		LastMessageID:          state.Data.LastMessageID,
		LastTimestamp:          state.Data.LastTimestamp,
		LastAuthorIsTeamMember: state.Data.LastAuthorIsTeamMember,
		Messages:               messages,
	}
}

func toState(doc *syncTrackerDoc) *tracker.State {
	messages := make([]tracker.SyncedMessage, 0, len(doc.Messages))
	for _, m := range doc.Messages {
		messages = append(messages, tracker.SyncedMessage{
			ID:         m.ID,
			Author:     m.Author,
			Content:    m.Content,
			Timestamp:  m.Timestamp.UTC(),
			MessageURL: m.MessageURL,
		})
	}

	return &tracker.State{
		CommentID: doc.CommentID,
		Data: &tracker.SyncTrackerData{
			Version:                tracker.CurrentVersion,
			LastMessageID:          doc.LastMessageID,
			LastTimestamp:          doc.LastTimestamp.UTC(),
			LastAuthorIsTeamMember: doc.LastAuthorIsTeamMember,
			Messages:               messages,
		},
	}
}

// TrackerRecord is a stored tracker with its issue and write time
type TrackerRecord struct {
	Key       model.IssueKey
	State     *tracker.State
	UpdatedAt time.Time
}

// List returns trackers of one repository, most recently written first
func (r *trackerRepository) List(ctx context.Context, owner, repo string, limit int) ([]*TrackerRecord, error) {
	q := r.collection().
		Where("owner", "==", owner).
		Where("repo", "==", repo).
		OrderBy("updated_at", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list sync trackers", goerr.V("owner", owner), goerr.V("repo", repo))
	}

	records := make([]*TrackerRecord, 0, len(snaps))
	for _, snap := range snaps {
		var doc syncTrackerDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode sync tracker", goerr.V("doc_id", snap.Ref.ID))
		}
		records = append(records, &TrackerRecord{
			Key:       model.IssueKey{Owner: doc.Owner, Repo: doc.Repo, Number: doc.IssueNumber},
			State:     toState(&doc),
			UpdatedAt: doc.UpdatedAt.UTC(),
		})
	}
	return records, nil
}
