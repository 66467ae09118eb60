package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/threadsync/pkg/service/github"
	"github.com/urfave/cli/v3"
)

// GitHub holds configuration for GitHub access, either as a GitHub App or with a token
type GitHub struct {
	appID          int
	installationID int
	privateKey     string
	token          string
}

// Flags returns CLI flags for GitHub configuration
func (g *GitHub) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:        "github-app-id",
			Usage:       "GitHub App ID",
			Category:    "GitHub",
			Sources:     cli.EnvVars("THREADSYNC_GITHUB_APP_ID"),
			Destination: &g.appID,
		},
		&cli.IntFlag{
			Name:        "github-app-installation-id",
			Usage:       "GitHub App Installation ID",
			Category:    "GitHub",
			Sources:     cli.EnvVars("THREADSYNC_GITHUB_APP_INSTALLATION_ID"),
			Destination: &g.installationID,
		},
		&cli.StringFlag{
			Name:        "github-app-private-key",
			Usage:       "GitHub App Private Key (PEM string or file path)",
			Category:    "GitHub",
			Sources:     cli.EnvVars("THREADSYNC_GITHUB_APP_PRIVATE_KEY"),
			Destination: &g.privateKey,
		},
		&cli.StringFlag{
			Name:        "github-token",
			Usage:       "GitHub token, used when GitHub App flags are not set",
			Category:    "GitHub",
			Sources:     cli.EnvVars("THREADSYNC_GITHUB_TOKEN", "GITHUB_TOKEN"),
			Destination: &g.token,
		},
	}
}

func (g GitHub) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("app_id", g.appID),
		slog.Int("installation_id", g.installationID),
		slog.Int("private_key.len", len(g.privateKey)),
		slog.Int("token.len", len(g.token)),
	)
}

// IsAppConfigured returns true if all GitHub App flags are set
func (g *GitHub) IsAppConfigured() bool {
	return g.appID != 0 && g.installationID != 0 && g.privateKey != ""
}

// Configure creates a GitHub Service. GitHub App authentication takes precedence over the token.
func (g *GitHub) Configure(ctx context.Context) (github.Service, error) {
	if g.IsAppConfigured() {
		svc, err := github.New(int64(g.appID), int64(g.installationID), g.privateKey)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create GitHub service")
		}
		return svc, nil
	}

	if g.token != "" {
		svc, err := github.NewWithToken(ctx, g.token)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create GitHub service")
		}
		return svc, nil
	}

	return nil, ErrMissingGitHub
}
