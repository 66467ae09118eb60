package usecase

import "errors"

// Sentinel errors for use case layer
var (
	// ErrRelayInterrupted is returned when relay mode stopped before posting every new message
	ErrRelayInterrupted = errors.New("relay stopped before all messages were posted")
)

// Context keys for error values
const (
	IssueKey     = "issue"
	ThreadIDKey  = "thread_id"
	CommentIDKey = "comment_id"
	RunIDKey     = "run_id"
)
