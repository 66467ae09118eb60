package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/threadsync/pkg/domain/interfaces"
	"github.com/secmon-lab/threadsync/pkg/domain/model"
	"github.com/secmon-lab/threadsync/pkg/service/discord"
	"github.com/urfave/cli/v3"
)

type Discord struct {
	botToken     string
	roleNames    []string
	roleIDs      []string
	pageSize     int
	maxPages     int
	roleCacheTTL time.Duration
}

func (x *Discord) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "discord-bot-token",
			Usage:       "Discord bot token",
			Category:    "Discord",
			Sources:     cli.EnvVars("THREADSYNC_DISCORD_BOT_TOKEN"),
			Destination: &x.botToken,
		},
		&cli.StringSliceFlag{
			Name:        "discord-team-role",
			Usage:       "Discord role name marking internal staff (repeatable)",
			Category:    "Discord",
			Value:       model.DefaultTeamRoleNames,
			Sources:     cli.EnvVars("THREADSYNC_DISCORD_TEAM_ROLE"),
			Destination: &x.roleNames,
		},
		&cli.StringSliceFlag{
			Name:        "discord-team-role-id",
			Usage:       "Discord role ID marking internal staff (repeatable); replaces role name matching when set",
			Category:    "Discord",
			Sources:     cli.EnvVars("THREADSYNC_DISCORD_TEAM_ROLE_ID"),
			Destination: &x.roleIDs,
		},
		&cli.IntFlag{
			Name:        "discord-page-size",
			Usage:       "Messages requested per Discord API page (1-100)",
			Category:    "Discord",
			Value:       discord.DefaultPageSize,
			Sources:     cli.EnvVars("THREADSYNC_DISCORD_PAGE_SIZE"),
			Destination: &x.pageSize,
		},
		&cli.IntFlag{
			Name:        "discord-max-pages",
			Usage:       "Upper bound of pages fetched per thread in one run",
			Category:    "Discord",
			Value:       discord.DefaultMaxPages,
			Sources:     cli.EnvVars("THREADSYNC_DISCORD_MAX_PAGES"),
			Destination: &x.maxPages,
		},
		&cli.DurationFlag{
			Name:        "discord-role-cache-ttl",
			Usage:       "TTL of the guild role name cache",
			Category:    "Discord",
			Value:       discord.DefaultCacheTTL,
			Sources:     cli.EnvVars("THREADSYNC_DISCORD_ROLE_CACHE_TTL"),
			Destination: &x.roleCacheTTL,
		},
	}
}

func (x Discord) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("bot-token.len", len(x.botToken)),
		slog.Any("team_roles", x.roleNames),
		slog.Any("team_role_ids", x.roleIDs),
		slog.Int("page_size", x.pageSize),
		slog.Int("max_pages", x.maxPages),
	)
}

// Configure creates the Discord Service
func (x *Discord) Configure() (discord.Service, error) {
	if x.botToken == "" {
		return nil, ErrMissingDiscord
	}

	if x.pageSize < 1 || x.pageSize > discord.DefaultPageSize {
		return nil, goerr.Wrap(ErrInvalidConfig, "discord-page-size must be between 1 and 100", goerr.V("page_size", x.pageSize))
	}

	svc, err := discord.New(x.botToken,
		discord.WithPageSize(x.pageSize),
		discord.WithMaxPages(x.maxPages),
		discord.WithCacheTTL(x.roleCacheTTL),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Discord service")
	}
	return svc, nil
}

// Classifier returns the team membership strategy: role ids when given, role names otherwise
func (x *Discord) Classifier() (interfaces.MemberClassifier, error) {
	if len(x.roleIDs) > 0 {
		return model.NewRoleIDClassifier(x.roleIDs...), nil
	}

	names := make([]string, 0, len(x.roleNames))
	for _, name := range x.roleNames {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, ErrInvalidRoleName
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		names = model.DefaultTeamRoleNames
	}
	return model.NewRoleNameClassifier(names...), nil
}
