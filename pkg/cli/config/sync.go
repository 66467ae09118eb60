package config

import (
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/threadsync/pkg/domain/types"
	"github.com/secmon-lab/threadsync/pkg/usecase"
	"github.com/urfave/cli/v3"
)

// Sync holds the target repository and batch tuning
type Sync struct {
	repo          string
	mode          string
	concurrency   int
	issueTimeout  time.Duration
	statusLabels  []string
	followUpLabel string
}

func (x *Sync) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "repo",
			Usage:       "Target GitHub repository in owner/name form",
			Category:    "Sync",
			Sources:     cli.EnvVars("THREADSYNC_REPO", "GITHUB_REPOSITORY"),
			Destination: &x.repo,
		},
		&cli.StringFlag{
			Name:        "sync-mode",
			Usage:       "How messages are mirrored (digest or relay)",
			Category:    "Sync",
			Value:       string(types.SyncModeDigest),
			Sources:     cli.EnvVars("THREADSYNC_SYNC_MODE"),
			Destination: &x.mode,
		},
		&cli.IntFlag{
			Name:        "concurrency",
			Usage:       "Maximum issues processed in parallel",
			Category:    "Sync",
			Value:       usecase.DefaultConcurrency,
			Sources:     cli.EnvVars("THREADSYNC_CONCURRENCY"),
			Destination: &x.concurrency,
		},
		&cli.DurationFlag{
			Name:        "issue-timeout",
			Usage:       "Deadline for processing a single issue",
			Category:    "Sync",
			Value:       usecase.DefaultIssueTimeout,
			Sources:     cli.EnvVars("THREADSYNC_ISSUE_TIMEOUT"),
			Destination: &x.issueTimeout,
		},
		&cli.StringSliceFlag{
			Name:        "status-label",
			Usage:       "Status label selecting issues for the batch (repeatable)",
			Category:    "Sync",
			Value:       types.DefaultStatusLabels(),
			Sources:     cli.EnvVars("THREADSYNC_STATUS_LABEL"),
			Destination: &x.statusLabels,
		},
		&cli.StringFlag{
			Name:        "follow-up-label",
			Usage:       "Label applied when the last response came from outside the team",
			Category:    "Sync",
			Value:       types.LabelNeedsFollowUp,
			Sources:     cli.EnvVars("THREADSYNC_FOLLOW_UP_LABEL"),
			Destination: &x.followUpLabel,
		},
	}
}

func (x Sync) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("repo", x.repo),
		slog.String("mode", x.mode),
		slog.Int("concurrency", x.concurrency),
		slog.Duration("issue_timeout", x.issueTimeout),
		slog.Any("status_labels", x.statusLabels),
		slog.String("follow_up_label", x.followUpLabel),
	)
}

// Repo splits the target repository into owner and name
func (x *Sync) Repo() (string, string, error) {
	owner, name, ok := strings.Cut(x.repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", goerr.Wrap(ErrMissingRepo, "repo must be owner/name", goerr.V("repo", x.repo))
	}
	return owner, name, nil
}

// Mode returns the validated sync mode
func (x *Sync) Mode() (types.SyncMode, error) {
	mode, err := types.ParseSyncMode(strings.ToLower(strings.TrimSpace(x.mode)))
	if err != nil {
		return "", goerr.Wrap(ErrInvalidConfig, err.Error(),
			goerr.V("mode", x.mode), goerr.V("valid", types.AllSyncModes()))
	}
	return mode, nil
}

// UseCaseOptions converts the flags into usecase options
func (x *Sync) UseCaseOptions() ([]usecase.Option, error) {
	mode, err := x.Mode()
	if err != nil {
		return nil, err
	}

	if x.concurrency < 1 {
		return nil, goerr.Wrap(ErrInvalidConfig, "concurrency must be positive", goerr.V("concurrency", x.concurrency))
	}
	if x.issueTimeout <= 0 {
		return nil, goerr.Wrap(ErrInvalidConfig, "issue-timeout must be positive", goerr.V("issue_timeout", x.issueTimeout))
	}
	if strings.TrimSpace(x.followUpLabel) == "" {
		return nil, goerr.Wrap(ErrInvalidConfig, "follow-up-label must not be empty")
	}

	labels := slices.DeleteFunc(slices.Clone(x.statusLabels), func(s string) bool {
		return strings.TrimSpace(s) == ""
	})
	if len(labels) == 0 {
		return nil, goerr.Wrap(ErrInvalidConfig, "at least one status-label is required")
	}

	return []usecase.Option{
		usecase.WithSyncMode(mode),
		usecase.WithConcurrency(x.concurrency),
		usecase.WithIssueTimeout(x.issueTimeout),
		usecase.WithStatusLabels(labels...),
		usecase.WithFollowUpLabel(x.followUpLabel),
	}, nil
}
