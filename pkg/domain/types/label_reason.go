package types

// LabelReason records which signal caused the follow-up label to be applied
type LabelReason string

const (
	LabelReasonGitHubComment LabelReason = "github_comment"
	LabelReasonSyncTracker   LabelReason = "sync_tracker"
	LabelReasonBoth          LabelReason = "both"
	LabelReasonNone          LabelReason = "none"
)

// NewLabelReason combines the two follow-up signals into a reason
func NewLabelReason(githubComment, syncTracker bool) LabelReason {
	switch {
	case githubComment && syncTracker:
		return LabelReasonBoth
	case githubComment:
		return LabelReasonGitHubComment
	case syncTracker:
		return LabelReasonSyncTracker
	default:
		return LabelReasonNone
	}
}

// IsValid checks if the reason is one of the known values
func (r LabelReason) IsValid() bool {
	switch r {
	case LabelReasonGitHubComment,
		LabelReasonSyncTracker,
		LabelReasonBoth,
		LabelReasonNone:
		return true
	default:
		return false
	}
}

func (r LabelReason) String() string {
	return string(r)
}
