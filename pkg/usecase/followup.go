package usecase

import (
	"context"
	"slices"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/threadsync/pkg/domain/interfaces"
	"github.com/secmon-lab/threadsync/pkg/domain/model"
	"github.com/secmon-lab/threadsync/pkg/domain/model/tracker"
	"github.com/secmon-lab/threadsync/pkg/domain/types"
	"github.com/secmon-lab/threadsync/pkg/utils/errutil"
	"github.com/secmon-lab/threadsync/pkg/utils/logging"
)

// DecideFollowUp evaluates both signals over already-fetched data.
// Comments written by the sync step never count as the last human comment, and
// lastAuthorIsTeamMember only counts when explicitly false.
func DecideFollowUp(comments []*model.Comment, roster interfaces.TeamRoster, lastAuthorIsTeamMember *bool) types.LabelReason {
	githubSignal := false
	for i := len(comments) - 1; i >= 0; i-- {
		c := comments[i]
		if c == nil || c.IsBotAuthored() || tracker.IsGenerated(c.Body) {
			continue
		}
		githubSignal = !roster.IsKnownTeamLogin(c.Author)
		break
	}

	trackerSignal := lastAuthorIsTeamMember != nil && !*lastAuthorIsTeamMember

	return types.NewLabelReason(githubSignal, trackerSignal)
}

// FollowUp decides whether the issue needs a teammate and adds the follow-up label if so.
// sync is the result of SyncIssue for the same issue, or nil when the sync step did not run.
func (uc *UseCases) FollowUp(ctx context.Context, issue *model.Issue, sync *model.SyncResult) *model.FollowUpResult {
	result := &model.FollowUpResult{
		IssueNumber: issue.Number,
		LabelReason: types.LabelReasonNone,
	}
	key := issue.Key()

	comments, err := uc.github.ListComments(ctx, key.Owner, key.Repo, key.Number)
	if err != nil {
		err = goerr.Wrap(err, "failed to list comments for follow-up", goerr.V(IssueKey, key.String()))
		_ = errutil.Handle(ctx, err, "failed to decide follow-up")
		result.Error = err.Error()
		return result
	}

	fact := membershipFact(ctx, comments, sync)
	reason := DecideFollowUp(comments, uc.roster, fact)
	result.LabelReason = reason
	if reason == types.LabelReasonNone {
		return result
	}
	result.NeedsFollowUp = true

	if issue.HasLabel(uc.followUpLabel) {
		logging.From(ctx).Debug("follow-up label already present", "label", uc.followUpLabel)
		return result
	}

	if !uc.inWorkingSet(issue) {
		logging.From(ctx).Debug("issue is closed or has no status label, not labeling",
			"state", issue.State,
			"labels", issue.Labels,
		)
		return result
	}

	if err := uc.github.AddLabels(ctx, key.Owner, key.Repo, key.Number, []string{uc.followUpLabel}); err != nil {
		err = goerr.Wrap(err, "failed to add follow-up label", goerr.V(IssueKey, key.String()), goerr.V("label", uc.followUpLabel))
		_ = errutil.Handle(ctx, err, "failed to apply follow-up label")
		result.Error = err.Error()
		return result
	}

	result.LabelAdded = true
	logging.From(ctx).Info("follow-up label added",
		"label", uc.followUpLabel,
		"reason", reason,
	)
	return result
}

// inWorkingSet reports whether the issue is open and carries one of the status labels
func (uc *UseCases) inWorkingSet(issue *model.Issue) bool {
	if !strings.EqualFold(issue.State, "open") {
		return false
	}
	return slices.ContainsFunc(uc.statusLabels, issue.HasLabel)
}

// membershipFact prefers the fact computed by this run's sync, then the one persisted in the sync comment
func membershipFact(ctx context.Context, comments []*model.Comment, sync *model.SyncResult) *bool {
	if sync != nil && sync.HasThread {
		return sync.LastAuthorIsTeamMember
	}

	found := tracker.FindComment(comments)
	if found == nil {
		return nil
	}
	data, err := tracker.Parse(found.Body)
	if err != nil {
		logging.From(ctx).Debug("ignoring unreadable sync tracker for follow-up", "error", err)
		return nil
	}
	return data.LastAuthorIsTeamMember
}
