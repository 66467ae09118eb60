package model

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// IssueKey identifies a GitHub issue
type IssueKey struct {
	Owner  string
	Repo   string
	Number int
}

func (k IssueKey) String() string {
	return fmt.Sprintf("%s/%s#%d", k.Owner, k.Repo, k.Number)
}

// DocID returns a storage-safe identifier for the issue
func (k IssueKey) DocID() string {
	return fmt.Sprintf("%s__%s__%d", k.Owner, k.Repo, k.Number)
}

// Issue is the subset of a GitHub issue read by the sync workflow
type Issue struct {
	Owner     string
	Repo      string
	Number    int
	Title     string
	Body      string
	URL       string
	State     string
	Labels    []string
	UpdatedAt time.Time
}

// Key returns the IssueKey of the issue
func (i *Issue) Key() IssueKey {
	return IssueKey{Owner: i.Owner, Repo: i.Repo, Number: i.Number}
}

// HasLabel reports whether the issue carries label (case-insensitive)
func (i *Issue) HasLabel(label string) bool {
	return slices.ContainsFunc(i.Labels, func(l string) bool {
		return strings.EqualFold(l, label)
	})
}

// Comment is a GitHub issue comment
type Comment struct {
	ID        int64
	Author    string
	IsBot     bool
	Body      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsBotAuthored reports whether the comment was written by a bot account.
// GitHub Apps post as "<name>[bot]" even when the user type is not reported.
func (c *Comment) IsBotAuthored() bool {
	return c.IsBot || strings.HasSuffix(c.Author, "[bot]")
}
