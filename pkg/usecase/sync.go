package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/threadsync/pkg/domain/model"
	"github.com/secmon-lab/threadsync/pkg/domain/model/tracker"
	"github.com/secmon-lab/threadsync/pkg/domain/types"
	"github.com/secmon-lab/threadsync/pkg/service/discord"
	"github.com/secmon-lab/threadsync/pkg/utils/errutil"
	"github.com/secmon-lab/threadsync/pkg/utils/logging"
)

// SyncIssue mirrors the Discord thread linked from the issue body into the issue.
// It never returns an error: failures are reported in SyncResult.Error.
func (uc *UseCases) SyncIssue(ctx context.Context, issue *model.Issue) *model.SyncResult {
	result := &model.SyncResult{IssueNumber: issue.Number}

	threadID, ok := tracker.ExtractThreadID(issue.Body)
	if !ok {
		logging.From(ctx).Debug("issue has no Discord thread link")
		return result
	}
	result.HasThread = true
	result.ThreadID = threadID

	var err error
	switch uc.syncMode {
	case types.SyncModeRelay:
		err = uc.relayThread(ctx, issue, threadID, result)
	default:
		err = uc.digestThread(ctx, issue, threadID, result)
	}

	if err != nil {
		_ = errutil.Handle(ctx, err, "failed to sync Discord thread")
		result.Error = err.Error()
	}
	return result
}

// digestThread keeps a single sync comment holding every message of the thread
func (uc *UseCases) digestThread(ctx context.Context, issue *model.Issue, threadID string, result *model.SyncResult) error {
	key := issue.Key()

	thread, err := uc.discord.GetThread(ctx, threadID)
	if err != nil {
		return goerr.Wrap(err, "failed to resolve Discord thread", goerr.V(IssueKey, key.String()), goerr.V(ThreadIDKey, threadID))
	}

	state, err := uc.trackers.Get(ctx, key)
	if err != nil {
		return goerr.Wrap(err, "failed to load sync tracker", goerr.V(IssueKey, key.String()))
	}

	var (
		commentID int64
		prior     *tracker.SyncTrackerData
	)
	if state != nil {
		commentID = state.CommentID
		prior = state.Data
	}

	after := "0"
	if prior.HasCursor() {
		after = prior.LastMessageID
	}

	fetched, err := uc.discord.FetchMessagesAfter(ctx, thread, after)
	if err != nil {
		return goerr.Wrap(err, "failed to fetch Discord messages", goerr.V(IssueKey, key.String()), goerr.V(ThreadIDKey, threadID))
	}
	fresh := newEligibleMessages(fetched, after, isDigestEligible)

	var messages []tracker.SyncedMessage
	if prior != nil {
		messages = append(messages, prior.Messages...)
	}
	for _, msg := range fresh {
		messages = append(messages, tracker.NewSyncedMessage(msg))
	}

	var priorFact *bool
	if prior != nil {
		priorFact = prior.LastAuthorIsTeamMember
	}
	fact, err := uc.lastAuthorFact(ctx, thread, fresh, priorFact, isDigestEligible)
	if err != nil {
		return goerr.Wrap(err, "failed to classify last Discord author", goerr.V(IssueKey, key.String()), goerr.V(ThreadIDKey, threadID))
	}
	result.LastAuthorIsTeamMember = fact

	if len(messages) == 0 {
		logging.From(ctx).Debug("Discord thread has no eligible messages yet", "thread_id", threadID)
		return nil
	}

	now := uc.now()
	body, err := tracker.RenderSyncComment(thread.URL(), messages, fact, now)
	if err != nil {
		return goerr.Wrap(err, "failed to render sync comment", goerr.V(IssueKey, key.String()))
	}

	commentID, err = uc.writeComment(ctx, issue, commentID, body)
	if err != nil {
		return err
	}

	if err := uc.trackers.Put(ctx, key, &tracker.State{
		CommentID: commentID,
		Data:      tracker.NewData(messages, fact, now),
	}); err != nil {
		return goerr.Wrap(err, "failed to store sync tracker", goerr.V(IssueKey, key.String()), goerr.V(CommentIDKey, commentID))
	}

	result.MessagesSynced = len(fresh)
	logging.From(ctx).Info("Discord thread synced",
		"thread_id", threadID,
		"comment_id", commentID,
		"new_messages", len(fresh),
		"total_messages", len(messages),
	)
	return nil
}

// relayThread posts one comment per new message and keeps a compact state comment for the cursor
func (uc *UseCases) relayThread(ctx context.Context, issue *model.Issue, threadID string, result *model.SyncResult) error {
	key := issue.Key()

	thread, err := uc.discord.GetThread(ctx, threadID)
	if err != nil {
		return goerr.Wrap(err, "failed to resolve Discord thread", goerr.V(IssueKey, key.String()), goerr.V(ThreadIDKey, threadID))
	}

	state, err := uc.trackers.Get(ctx, key)
	if err != nil {
		return goerr.Wrap(err, "failed to load sync tracker", goerr.V(IssueKey, key.String()))
	}

	var (
		commentID int64
		prior     *tracker.SyncTrackerData
	)
	if state != nil {
		commentID = state.CommentID
		prior = state.Data
	}

	// without a cursor, only messages newer than the last issue activity are relayed
	after := model.SnowflakeFromTime(issue.UpdatedAt)
	if prior.HasCursor() {
		after = prior.LastMessageID
	}

	fetched, err := uc.discord.FetchMessagesAfter(ctx, thread, after)
	if err != nil {
		return goerr.Wrap(err, "failed to fetch Discord messages", goerr.V(IssueKey, key.String()), goerr.V(ThreadIDKey, threadID))
	}
	fresh := newEligibleMessages(fetched, after, isRelayEligible)

	var priorFact *bool
	var messages []tracker.SyncedMessage
	if prior != nil {
		priorFact = prior.LastAuthorIsTeamMember
		messages = append(messages, prior.Messages...)
	}

	var relayErr error
	posted := 0
	for _, msg := range fresh {
		synced := tracker.NewSyncedMessage(msg)
		if _, err := uc.github.CreateComment(ctx, key.Owner, key.Repo, key.Number, tracker.RenderRelayComment(synced)); err != nil {
			relayErr = goerr.Wrap(ErrRelayInterrupted, "failed to relay Discord message",
				goerr.V(IssueKey, key.String()),
				goerr.V("message_id", msg.ID),
				goerr.V("posted", posted),
				goerr.V("cause", err.Error()),
			)
			break
		}
		messages = append(messages, synced)
		posted++
	}

	// relayed comments already exist, so the state is stored even without a fact
	fact, factErr := uc.lastAuthorFact(ctx, thread, fresh[:posted], priorFact, isRelayEligible)
	if factErr != nil {
		factErr = goerr.Wrap(factErr, "failed to classify last Discord author", goerr.V(IssueKey, key.String()), goerr.V(ThreadIDKey, threadID))
		if relayErr == nil {
			relayErr = factErr
		}
	}
	result.LastAuthorIsTeamMember = fact
	result.MessagesSynced = posted

	if len(messages) == 0 {
		return relayErr
	}

	now := uc.now()
	data := tracker.NewData(messages, fact, now)
	body, err := tracker.RenderStateComment(thread.URL(), data, now)
	if err != nil {
		return goerr.Wrap(err, "failed to render state comment", goerr.V(IssueKey, key.String()))
	}

	commentID, err = uc.writeComment(ctx, issue, commentID, body)
	if err != nil {
		return err
	}

	if err := uc.trackers.Put(ctx, key, &tracker.State{CommentID: commentID, Data: data}); err != nil {
		return goerr.Wrap(err, "failed to store sync tracker", goerr.V(IssueKey, key.String()), goerr.V(CommentIDKey, commentID))
	}

	logging.From(ctx).Info("Discord messages relayed",
		"thread_id", threadID,
		"comment_id", commentID,
		"relayed", posted,
	)
	return relayErr
}

// writeComment updates the sync comment, or creates it when none exists yet
func (uc *UseCases) writeComment(ctx context.Context, issue *model.Issue, commentID int64, body string) (int64, error) {
	key := issue.Key()

	if commentID != 0 {
		if err := uc.github.UpdateComment(ctx, key.Owner, key.Repo, commentID, body); err != nil {
			return 0, goerr.Wrap(err, "failed to update sync comment", goerr.V(IssueKey, key.String()), goerr.V(CommentIDKey, commentID))
		}
		return commentID, nil
	}

	created, err := uc.github.CreateComment(ctx, key.Owner, key.Repo, key.Number, body)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to create sync comment", goerr.V(IssueKey, key.String()))
	}
	return created.ID, nil
}

// lastAuthorFact classifies the author of the newest message.
// Without new messages the newest eligible message of the live thread is used, then the persisted fact.
// The persisted fact is never reused once new messages arrived, so a failed lookup for them is an error.
func (uc *UseCases) lastAuthorFact(ctx context.Context, thread *model.DiscordThread, fresh []*model.DiscordMessage, prior *bool, eligible func(*model.DiscordMessage) bool) (*bool, error) {
	var last *model.DiscordMessage
	if n := len(fresh); n > 0 {
		last = fresh[n-1]
	} else {
		recent, err := uc.discord.FetchRecentMessages(ctx, thread, recentMessageLimit)
		if err != nil {
			logging.From(ctx).Warn("failed to fetch recent Discord messages, keeping previous membership fact",
				"thread_id", thread.ID,
				"error", err,
			)
			return prior, nil
		}
		for i := len(recent) - 1; i >= 0; i-- {
			if eligible(recent[i]) {
				last = recent[i]
				break
			}
		}
	}

	if last == nil {
		return prior, nil
	}

	member, err := uc.discord.GetGuildMember(ctx, thread.GuildID, last.AuthorID)
	if err != nil {
		if errors.Is(err, discord.ErrMemberNotFound) {
			return boolPtr(false), nil
		}
		if len(fresh) > 0 {
			return nil, goerr.Wrap(err, "failed to resolve Discord member",
				goerr.V("guild_id", thread.GuildID),
				goerr.V("user_id", last.AuthorID),
			)
		}
		logging.From(ctx).Warn("failed to resolve Discord member, keeping previous membership fact",
			"guild_id", thread.GuildID,
			"user_id", last.AuthorID,
			"error", err,
		)
		return prior, nil
	}

	return boolPtr(uc.classifier.IsTeamMember(member)), nil
}

// newEligibleMessages keeps messages strictly after the cursor that pass eligible, in chronological order
func newEligibleMessages(fetched []*model.DiscordMessage, after string, eligible func(*model.DiscordMessage) bool) []*model.DiscordMessage {
	var out []*model.DiscordMessage
	for _, msg := range fetched {
		if msg == nil || model.CompareSnowflake(msg.ID, after) <= 0 {
			continue
		}
		if eligible(msg) {
			out = append(out, msg)
		}
	}
	model.SortDiscordMessages(out)
	return out
}

func isDigestEligible(msg *model.DiscordMessage) bool {
	return strings.TrimSpace(msg.Content) != "" && !msg.AuthorBot
}

// isRelayEligible additionally drops messages the bridge itself echoed into Discord
func isRelayEligible(msg *model.DiscordMessage) bool {
	if !isDigestEligible(msg) || msg.WebhookID != "" {
		return false
	}
	return !strings.HasPrefix(strings.TrimSpace(msg.Content), tracker.EchoPrefix)
}

func boolPtr(v bool) *bool {
	return &v
}
