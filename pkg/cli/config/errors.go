package config

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for configuration validation
var (
	ErrInvalidConfig   = goerr.New("invalid configuration")
	ErrMissingGitHub   = goerr.New("GitHub credentials are required: set a GitHub App or a token")
	ErrMissingDiscord  = goerr.New("Discord bot token is required")
	ErrMissingRepo     = goerr.New("owner and repo are required")
	ErrInvalidBackend  = goerr.New("invalid storage backend")
	ErrRosterNotFound  = goerr.New("team roster file not found")
	ErrInvalidRoleName = goerr.New("team role name must not be empty")
)

// Context keys for error values
const (
	BackendKey    = "backend"
	RosterPathKey = "roster_path"
)
