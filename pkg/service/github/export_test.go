package github

import gh "github.com/google/go-github/v80/github"

// ConvertIssue is exported for testing
var ConvertIssue = convertIssue

// ConvertComment is exported for testing
var ConvertComment = convertComment

// ConvertIssueFragment is exported for testing
var ConvertIssueFragment = convertIssueFragment

// IssueFragment is exported for testing
type IssueFragment = issueFragment

// RESTIssue is exported for testing
type RESTIssue = gh.Issue
