package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/secmon-lab/threadsync/pkg/domain/model"
	"github.com/urfave/cli/v3"
)

// Team holds the GitHub logins of internal staff
type Team struct {
	rosterPath string
	logins     []string
}

// rosterFile is the TOML layout of the roster file
type rosterFile struct {
	Members []rosterMember `toml:"member"`
}

type rosterMember struct {
	Login string `toml:"login"`
	Role  string `toml:"role"`
}

func (x *Team) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "team-roster",
			Usage:       "Path to TOML roster of team GitHub logins ([[member]] login/role)",
			Category:    "Team",
			Sources:     cli.EnvVars("THREADSYNC_TEAM_ROSTER"),
			Destination: &x.rosterPath,
		},
		&cli.StringSliceFlag{
			Name:        "team-login",
			Usage:       "GitHub login of a team member (repeatable)",
			Category:    "Team",
			Sources:     cli.EnvVars("THREADSYNC_TEAM_LOGIN"),
			Destination: &x.logins,
		},
	}
}

func (x Team) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("roster", x.rosterPath),
		slog.Int("logins", len(x.logins)),
	)
}

// Configure builds the roster from the file and the login flags
func (x *Team) Configure() (*model.Roster, error) {
	var entries []model.RosterEntry

	if x.rosterPath != "" {
		loaded, err := LoadRoster(x.rosterPath)
		if err != nil {
			return nil, err
		}
		entries = append(entries, loaded...)
	}

	for _, login := range x.logins {
		entries = append(entries, model.RosterEntry{Login: login, Role: model.RosterRoleMember})
	}

	return model.NewRoster(entries...), nil
}

// LoadRoster reads roster entries from a TOML file
func LoadRoster(path string) ([]model.RosterEntry, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(ErrRosterNotFound, "failed to read team roster", goerr.V(RosterPathKey, path))
		}
		return nil, goerr.Wrap(err, "failed to read team roster", goerr.V(RosterPathKey, path))
	}

	var file rosterFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, goerr.Wrap(err, "failed to parse team roster", goerr.V(RosterPathKey, path))
	}

	entries := make([]model.RosterEntry, 0, len(file.Members))
	for i, m := range file.Members {
		if m.Login == "" {
			return nil, goerr.Wrap(ErrInvalidConfig, "roster member login is required",
				goerr.V(RosterPathKey, path), goerr.V("index", i))
		}

		role := model.RosterRole(m.Role)
		switch role {
		case "":
			role = model.RosterRoleMember
		case model.RosterRoleOwner, model.RosterRoleMember:
		default:
			return nil, goerr.Wrap(ErrInvalidConfig, "invalid roster role",
				goerr.V(RosterPathKey, path), goerr.V("login", m.Login), goerr.V("role", m.Role))
		}

		entries = append(entries, model.RosterEntry{Login: m.Login, Role: role})
	}

	return entries, nil
}
