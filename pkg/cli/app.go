package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/threadsync/pkg/cli/config"
	"github.com/secmon-lab/threadsync/pkg/usecase"
	"github.com/secmon-lab/threadsync/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// appConfig groups the flag sets shared by commands running the sync pipeline
type appConfig struct {
	github  config.GitHub
	discord config.Discord
	team    config.Team
	repo    config.Repository
	sync    config.Sync
	sentry  config.Sentry
}

func (x *appConfig) Flags() []cli.Flag {
	var flags []cli.Flag
	flags = append(flags, x.github.Flags()...)
	flags = append(flags, x.discord.Flags()...)
	flags = append(flags, x.team.Flags()...)
	flags = append(flags, x.repo.Flags()...)
	flags = append(flags, x.sync.Flags()...)
	flags = append(flags, x.sentry.Flags()...)
	return flags
}

// app is a configured pipeline ready to run against owner/repo
type app struct {
	uc    *usecase.UseCases
	owner string
	repo  string
	close func()
}

// build validates every flag group and wires the use cases. The caller must call close.
func (x *appConfig) build(ctx context.Context) (*app, error) {
	owner, repo, err := x.sync.Repo()
	if err != nil {
		return nil, err
	}
	syncOpts, err := x.sync.UseCaseOptions()
	if err != nil {
		return nil, err
	}

	flush, err := x.sentry.Configure()
	if err != nil {
		return nil, err
	}

	gh, err := x.github.Configure(ctx)
	if err != nil {
		flush()
		return nil, err
	}

	dc, err := x.discord.Configure()
	if err != nil {
		flush()
		return nil, err
	}

	classifier, err := x.discord.Classifier()
	if err != nil {
		flush()
		return nil, err
	}

	roster, err := x.team.Configure()
	if err != nil {
		flush()
		return nil, err
	}

	storage, err := x.repo.Configure(ctx, gh)
	if err != nil {
		flush()
		return nil, goerr.Wrap(err, "failed to initialize repository")
	}

	logging.Default().Info("Configuration loaded",
		"github", x.github,
		"discord", x.discord,
		"team", x.team,
		"roster_size", roster.Len(),
		"repository", x.repo,
		"sync", x.sync,
		"sentry", x.sentry,
	)

	opts := []usecase.Option{
		usecase.WithClassifier(classifier),
		usecase.WithRoster(roster),
	}
	opts = append(opts, syncOpts...)
	opts = append(opts, storage.UseCaseOptions()...)

	return &app{
		uc:    usecase.New(gh, dc, opts...),
		owner: owner,
		repo:  repo,
		close: func() {
			if err := storage.Close(); err != nil {
				logging.Default().Error("failed to close repository", "error", err.Error())
			}
			flush()
		},
	}, nil
}
