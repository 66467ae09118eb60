package types

// Status labels read and written by the sync workflow
const (
	LabelWaitingForAuthor  = "status: waiting for author"
	LabelNeedsReproduction = "status: needs reproduction"
	LabelNeedsFollowUp     = "status: needs follow up"
	LabelNeedsTriage       = "status: needs triage"
)

// DefaultStatusLabels returns the labels selecting the batch working set
func DefaultStatusLabels() []string {
	return []string{
		LabelWaitingForAuthor,
		LabelNeedsReproduction,
	}
}
