package model

import "github.com/secmon-lab/threadsync/pkg/domain/types"

// SyncResult is the outcome of syncing one issue's Discord thread
type SyncResult struct {
	IssueNumber            int    `json:"issueNumber"`
	HasThread              bool   `json:"hasThread"`
	MessagesSynced         int    `json:"messagesSynced"`
	ThreadID               string `json:"threadId,omitempty"`
	LastAuthorIsTeamMember *bool  `json:"lastAuthorIsTeamMember"`
	Error                  string `json:"error,omitempty"`
}

// Failed reports whether the sync ended with an error
func (r *SyncResult) Failed() bool {
	return r.Error != ""
}

// FollowUpResult is the outcome of the follow-up decision for one issue
type FollowUpResult struct {
	IssueNumber   int               `json:"issueNumber"`
	NeedsFollowUp bool              `json:"needsFollowUp"`
	LabelAdded    bool              `json:"labelAdded"`
	LabelReason   types.LabelReason `json:"labelReason"`
	Error         string            `json:"error,omitempty"`
}

// IssueOutcome collects the per-issue results of one batch run
type IssueOutcome struct {
	IssueNumber int             `json:"issueNumber"`
	Locked      bool            `json:"locked,omitempty"`
	Sync        *SyncResult     `json:"sync,omitempty"`
	FollowUp    *FollowUpResult `json:"followUp,omitempty"`
}

// Failed reports whether any step of the issue pipeline failed
func (o *IssueOutcome) Failed() bool {
	if o.Sync != nil && o.Sync.Failed() {
		return true
	}
	return o.FollowUp != nil && o.FollowUp.Error != ""
}

// BatchResult aggregates a batch run
type BatchResult struct {
	RunID          string          `json:"runId"`
	Processed      int             `json:"processed"`
	WithThread     int             `json:"withThread"`
	MessagesSynced int             `json:"messagesSynced"`
	Skipped        int             `json:"skipped"`
	Locked         int             `json:"locked"`
	LabelsAdded    int             `json:"labelsAdded"`
	Errors         int             `json:"errors"`
	Success        bool            `json:"success"`
	Issues         []*IssueOutcome `json:"issues"`
}

// Aggregate computes the counters from the per-issue outcomes
func (r *BatchResult) Aggregate() {
	r.Processed = len(r.Issues)
	r.WithThread, r.MessagesSynced, r.Skipped, r.Locked, r.LabelsAdded, r.Errors = 0, 0, 0, 0, 0, 0

	for _, o := range r.Issues {
		switch {
		case o.Locked:
			r.Locked++
		case o.Sync != nil && o.Sync.HasThread:
			r.WithThread++
			r.MessagesSynced += o.Sync.MessagesSynced
		case o.Sync != nil && !o.Sync.Failed():
			r.Skipped++
		}
		if o.FollowUp != nil && o.FollowUp.LabelAdded {
			r.LabelsAdded++
		}
		if o.Failed() {
			r.Errors++
		}
	}

	r.Success = r.Errors == 0
}
