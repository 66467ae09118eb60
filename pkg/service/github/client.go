package github

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"os"
	"time"

	"github.com/bradleyfalzon/ghinstallation/v2"
	gh "github.com/google/go-github/v80/github"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/threadsync/pkg/domain/model"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"
)

const (
	searchPageSize   = 50
	commentsPageSize = 100
)

type client struct {
	gql  *githubv4.Client
	rest *gh.Client
}

// New creates a GitHub Service using GitHub App authentication.
// privateKey can be a PEM string or a file path to a PEM file.
func New(appID, installationID int64, privateKey string) (Service, error) {
	var key []byte

	// #nosec G304 -- path comes from CLI flag, not user input
	if data, err := os.ReadFile(privateKey); err == nil {
		key = data
	} else {
		key = []byte(privateKey)
	}

	tr, err := ghinstallation.New(http.DefaultTransport, appID, installationID, key)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create GitHub App transport")
	}

	return NewWithHTTPClient(&http.Client{Transport: tr, Timeout: 30 * time.Second}), nil
}

// NewWithToken creates a GitHub Service authenticated with a personal access or Actions token
func NewWithToken(ctx context.Context, token string) (Service, error) {
	if token == "" {
		return nil, goerr.New("GitHub token is required")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return NewWithHTTPClient(oauth2.NewClient(ctx, ts)), nil
}

// NewWithHTTPClient creates a GitHub Service on top of an already authenticated HTTP client
func NewWithHTTPClient(httpClient *http.Client) Service {
	return &client{
		gql:  githubv4.NewClient(httpClient),
		rest: gh.NewClient(httpClient),
	}
}

// ListOpenIssuesByLabel searches open issues carrying label
func (c *client) ListOpenIssuesByLabel(ctx context.Context, owner, repo, label string) iter.Seq2[*model.Issue, error] {
	return func(yield func(*model.Issue, error) bool) {
		query := fmt.Sprintf(`repo:%s/%s is:issue is:open label:"%s" sort:updated-asc`, owner, repo, label)
		var cursor *githubv4.String

		for {
			var q searchIssueQuery
			variables := map[string]interface{}{
				"query":  githubv4.String(query),
				"first":  githubv4.Int(searchPageSize),
				"cursor": cursor,
			}

			if err := c.gql.Query(ctx, &q, variables); err != nil {
				yield(nil, goerr.Wrap(err, "failed to search issues by label",
					goerr.V("owner", owner), goerr.V("repo", repo), goerr.V("label", label)))
				return
			}

			for _, edge := range q.Search.Edges {
				issue := edge.Node.Issue
				if issue.Number == 0 {
					// search may return pull requests, which do not match the fragment
					continue
				}
				if !yield(convertIssueFragment(issue, owner, repo), nil) {
					return
				}
			}

			if !q.Search.PageInfo.HasNextPage {
				return
			}
			cursor = &q.Search.PageInfo.EndCursor
		}
	}
}

// GetIssue fetches a single issue through the REST API
func (c *client) GetIssue(ctx context.Context, owner, repo string, number int) (*model.Issue, error) {
	issue, _, err := c.rest.Issues.Get(ctx, owner, repo, number)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get issue",
			goerr.V("owner", owner), goerr.V("repo", repo), goerr.V("issue_number", number))
	}
	return convertIssue(issue, owner, repo), nil
}

// ListComments pages through every comment of an issue
func (c *client) ListComments(ctx context.Context, owner, repo string, number int) ([]*model.Comment, error) {
	opts := &gh.IssueListCommentsOptions{
		Sort:        gh.Ptr("created"),
		Direction:   gh.Ptr("asc"),
		ListOptions: gh.ListOptions{PerPage: commentsPageSize},
	}

	var comments []*model.Comment
	for {
		page, resp, err := c.rest.Issues.ListComments(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list issue comments",
				goerr.V("owner", owner), goerr.V("repo", repo), goerr.V("issue_number", number))
		}

		for _, ic := range page {
			comments = append(comments, convertComment(ic))
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return comments, nil
}

// CreateComment posts a new comment on an issue
func (c *client) CreateComment(ctx context.Context, owner, repo string, number int, body string) (*model.Comment, error) {
	created, _, err := c.rest.Issues.CreateComment(ctx, owner, repo, number, &gh.IssueComment{Body: gh.Ptr(body)})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create issue comment",
			goerr.V("owner", owner), goerr.V("repo", repo), goerr.V("issue_number", number))
	}
	return convertComment(created), nil
}

// UpdateComment replaces the body of a comment
func (c *client) UpdateComment(ctx context.Context, owner, repo string, commentID int64, body string) error {
	if _, _, err := c.rest.Issues.EditComment(ctx, owner, repo, commentID, &gh.IssueComment{Body: gh.Ptr(body)}); err != nil {
		return goerr.Wrap(err, "failed to update issue comment",
			goerr.V("owner", owner), goerr.V("repo", repo), goerr.V("comment_id", commentID))
	}
	return nil
}

// AddLabels adds labels to an issue
func (c *client) AddLabels(ctx context.Context, owner, repo string, number int, labels []string) error {
	if len(labels) == 0 {
		return nil
	}
	if _, _, err := c.rest.Issues.AddLabelsToIssue(ctx, owner, repo, number, labels); err != nil {
		return goerr.Wrap(err, "failed to add labels",
			goerr.V("owner", owner), goerr.V("repo", repo), goerr.V("issue_number", number), goerr.V("labels", labels))
	}
	return nil
}

// GraphQL query types

type searchIssueQuery struct {
	Search struct {
		Edges []struct {
			Node struct {
				Issue issueFragment `graphql:"... on Issue"`
			}
		}
		PageInfo pageInfo
	} `graphql:"search(query: $query, type: ISSUE, first: $first, after: $cursor)"`
}

type issueFragment struct {
	Number    githubv4.Int
	Title     githubv4.String
	Body      githubv4.String
	State     githubv4.String
	URL       githubv4.String
	UpdatedAt githubv4.DateTime
	Labels    struct {
		Nodes []struct {
			Name githubv4.String
		}
	} `graphql:"labels(first: 50)"`
}

type pageInfo struct {
	HasNextPage bool
	EndCursor   githubv4.String
}

// Conversion helpers

func convertIssueFragment(issue issueFragment, owner, repo string) *model.Issue {
	labels := make([]string, 0, len(issue.Labels.Nodes))
	for _, l := range issue.Labels.Nodes {
		labels = append(labels, string(l.Name))
	}

	return &model.Issue{
		Owner:     owner,
		Repo:      repo,
		Number:    int(issue.Number),
		Title:     string(issue.Title),
		Body:      string(issue.Body),
		URL:       string(issue.URL),
		State:     string(issue.State),
		Labels:    labels,
		UpdatedAt: issue.UpdatedAt.Time,
	}
}

func convertIssue(issue *gh.Issue, owner, repo string) *model.Issue {
	labels := make([]string, 0, len(issue.Labels))
	for _, l := range issue.Labels {
		labels = append(labels, l.GetName())
	}

	return &model.Issue{
		Owner:     owner,
		Repo:      repo,
		Number:    issue.GetNumber(),
		Title:     issue.GetTitle(),
		Body:      issue.GetBody(),
		URL:       issue.GetHTMLURL(),
		State:     issue.GetState(),
		Labels:    labels,
		UpdatedAt: issue.GetUpdatedAt().Time,
	}
}

func convertComment(ic *gh.IssueComment) *model.Comment {
	user := ic.GetUser()
	return &model.Comment{
		ID:        ic.GetID(),
		Author:    user.GetLogin(),
		IsBot:     user.GetType() == "Bot",
		Body:      ic.GetBody(),
		CreatedAt: ic.GetCreatedAt().Time,
		UpdatedAt: ic.GetUpdatedAt().Time,
	}
}
