package github

import (
	"context"
	"iter"

	"github.com/secmon-lab/threadsync/pkg/domain/model"
)

// Service provides the GitHub capabilities used by the sync workflow
type Service interface {
	// ListOpenIssuesByLabel returns open issues (excluding PRs) carrying label, paged through GraphQL search
	ListOpenIssuesByLabel(ctx context.Context, owner, repo, label string) iter.Seq2[*model.Issue, error]

	// GetIssue fetches a single issue
	GetIssue(ctx context.Context, owner, repo string, number int) (*model.Issue, error)

	// ListComments returns every comment of an issue in creation order
	ListComments(ctx context.Context, owner, repo string, number int) ([]*model.Comment, error)

	// CreateComment posts a new comment and returns it
	CreateComment(ctx context.Context, owner, repo string, number int, body string) (*model.Comment, error)

	// UpdateComment replaces the body of an existing comment
	UpdateComment(ctx context.Context, owner, repo string, commentID int64, body string) error

	// AddLabels adds labels to an issue. Adding a label the issue already has is a no-op on GitHub's side.
	AddLabels(ctx context.Context, owner, repo string, number int, labels []string) error
}
