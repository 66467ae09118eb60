package usecase

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/threadsync/pkg/domain/model"
	"github.com/secmon-lab/threadsync/pkg/utils/errutil"
	"github.com/secmon-lab/threadsync/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

// RunBatch syncs every open issue carrying one of the status labels.
// An error is returned only when the working set cannot be listed; per-issue failures are counted in the result.
func (uc *UseCases) RunBatch(ctx context.Context, owner, repo string) (*model.BatchResult, error) {
	runID := newRunID()
	logger := logging.From(ctx).With("run_id", runID, "owner", owner, "repo", repo)
	ctx = logging.With(ctx, logger)

	issues, err := uc.listWorkingSet(ctx, owner, repo)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list issues to sync", goerr.V(RunIDKey, runID))
	}
	logger.Info("batch sync started", "issues", len(issues), "concurrency", uc.concurrency)

	outcomes := make([]*model.IssueOutcome, len(issues))
	var eg errgroup.Group
	eg.SetLimit(uc.concurrency)

	for i, issue := range issues {
		eg.Go(func() error {
			outcomes[i] = uc.ProcessIssue(ctx, issue)
			return nil
		})
	}
	_ = eg.Wait()

	result := &model.BatchResult{RunID: runID, Issues: outcomes}
	result.Aggregate()

	logger.Info("batch sync finished",
		"processed", result.Processed,
		"with_thread", result.WithThread,
		"messages_synced", result.MessagesSynced,
		"skipped", result.Skipped,
		"locked", result.Locked,
		"labels_added", result.LabelsAdded,
		"errors", result.Errors,
	)
	return result, nil
}

// RunIssue runs the pipeline for a single issue fetched by number
func (uc *UseCases) RunIssue(ctx context.Context, owner, repo string, number int) (*model.BatchResult, error) {
	runID := newRunID()
	ctx = logging.With(ctx, logging.From(ctx).With("run_id", runID, "owner", owner, "repo", repo))

	issue, err := uc.github.GetIssue(ctx, owner, repo, number)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get issue", goerr.V(RunIDKey, runID), goerr.V("issue_number", number))
	}

	result := &model.BatchResult{
		RunID:  runID,
		Issues: []*model.IssueOutcome{uc.ProcessIssue(ctx, issue)},
	}
	result.Aggregate()
	return result, nil
}

// ProcessIssue runs sync then follow-up for one issue under the per-issue timeout and lock.
// Follow-up is skipped when the sync failed so it never acts on a stale membership fact.
func (uc *UseCases) ProcessIssue(ctx context.Context, issue *model.Issue) *model.IssueOutcome {
	outcome := &model.IssueOutcome{IssueNumber: issue.Number}

	ctx, cancel := context.WithTimeout(ctx, uc.issueTimeout)
	defer cancel()
	ctx = logging.With(ctx, logging.From(ctx).With("issue_number", issue.Number))

	if uc.locker != nil {
		release, acquired, err := uc.locker.TryLock(ctx, issue.Key(), uc.lockTTL)
		if err != nil {
			err = goerr.Wrap(err, "failed to acquire issue lock", goerr.V(IssueKey, issue.Key().String()))
			_ = errutil.Handle(ctx, err, "failed to lock issue")
			outcome.Sync = &model.SyncResult{IssueNumber: issue.Number, Error: err.Error()}
			return outcome
		}
		if !acquired {
			logging.From(ctx).Info("issue is locked by another run, skipping")
			outcome.Locked = true
			return outcome
		}
		defer func() {
			// release on a fresh context so a timed-out pipeline still frees the lock
			if err := release(context.WithoutCancel(ctx)); err != nil {
				_ = errutil.Handle(ctx, err, "failed to release issue lock")
			}
		}()
	}

	outcome.Sync = uc.SyncIssue(ctx, issue)
	if outcome.Sync.Failed() {
		return outcome
	}

	outcome.FollowUp = uc.FollowUp(ctx, issue, outcome.Sync)
	return outcome
}

// listWorkingSet lists open issues per status label and de-duplicates them by number
func (uc *UseCases) listWorkingSet(ctx context.Context, owner, repo string) ([]*model.Issue, error) {
	seen := make(map[int]*model.Issue)

	for _, label := range uc.statusLabels {
		for issue, err := range uc.github.ListOpenIssuesByLabel(ctx, owner, repo, label) {
			if err != nil {
				return nil, goerr.Wrap(err, "failed to list issues by label", goerr.V("label", label))
			}
			if _, ok := seen[issue.Number]; !ok {
				seen[issue.Number] = issue
			}
		}
	}

	issues := make([]*model.Issue, 0, len(seen))
	for _, issue := range seen {
		issues = append(issues, issue)
	}
	sort.Slice(issues, func(i, j int) bool {
		return issues[i].Number < issues[j].Number
	})
	return issues, nil
}

func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
