package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/threadsync/pkg/domain/model"
	"github.com/urfave/cli/v3"
)

var errBatchFailed = goerr.New("one or more issues failed to sync")

func cmdSync() *cli.Command {
	var cfg appConfig
	var issueNumber int

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "issue",
			Usage:       "Process only this issue number instead of the labeled working set",
			Destination: &issueNumber,
		},
	}
	flags = append(flags, cfg.Flags()...)

	return &cli.Command{
		Name:  "sync",
		Usage: "Run one batch: mirror Discord threads and apply follow-up labels",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			a, err := cfg.build(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			var result *model.BatchResult
			if issueNumber > 0 {
				result, err = a.uc.RunIssue(ctx, a.owner, a.repo, issueNumber)
			} else {
				result, err = a.uc.RunBatch(ctx, a.owner, a.repo)
			}
			if err != nil {
				return err
			}

			printSummary(os.Stdout, a.owner+"/"+a.repo, result)
			if !result.Success {
				return goerr.Wrap(errBatchFailed, "sync finished with errors",
					goerr.V("run_id", result.RunID), goerr.V("errors", result.Errors))
			}
			return nil
		},
	}
}

func printSummary(w io.Writer, target string, result *model.BatchResult) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)
	faint := color.New(color.Faint)

	_, _ = bold.Fprintf(w, "threadsync %s (run %s)\n", target, result.RunID)

	for _, o := range result.Issues {
		switch {
		case o.Locked:
			_, _ = yellow.Fprintf(w, "  #%d locked by another run\n", o.IssueNumber)
		case o.Failed():
			_, _ = red.Fprintf(w, "  #%d failed: %s\n", o.IssueNumber, outcomeError(o))
		case o.Sync != nil && !o.Sync.HasThread:
			_, _ = faint.Fprintf(w, "  #%d no Discord thread\n", o.IssueNumber)
		default:
			line := fmt.Sprintf("  #%d synced %d message(s)", o.IssueNumber, o.Sync.MessagesSynced)
			if o.FollowUp != nil && o.FollowUp.LabelAdded {
				line += fmt.Sprintf(", follow-up labeled (%s)", o.FollowUp.LabelReason)
			}
			_, _ = green.Fprintln(w, line)
		}
	}

	status := green
	if !result.Success {
		status = red
	}
	_, _ = status.Fprintf(w,
		"processed=%d with_thread=%d messages=%d skipped=%d locked=%d labels_added=%d errors=%d\n",
		result.Processed, result.WithThread, result.MessagesSynced, result.Skipped,
		result.Locked, result.LabelsAdded, result.Errors,
	)
}

func outcomeError(o *model.IssueOutcome) string {
	if o.Sync != nil && o.Sync.Error != "" {
		return o.Sync.Error
	}
	if o.FollowUp != nil {
		return o.FollowUp.Error
	}
	return ""
}
