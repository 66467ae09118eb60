package config

import "time"

func NewSyncForTest(repo, mode string, concurrency int, issueTimeout time.Duration, statusLabels []string, followUpLabel string) *Sync {
	return &Sync{
		repo:          repo,
		mode:          mode,
		concurrency:   concurrency,
		issueTimeout:  issueTimeout,
		statusLabels:  statusLabels,
		followUpLabel: followUpLabel,
	}
}

func NewRepositoryForTest(trackerBackend, lockBackend string, lockTTL time.Duration, projectID string) *Repository {
	return &Repository{
		trackerBackend: trackerBackend,
		lockBackend:    lockBackend,
		lockTTL:        lockTTL,
		projectID:      projectID,
	}
}

func NewTeamForTest(rosterPath string, logins ...string) *Team {
	return &Team{rosterPath: rosterPath, logins: logins}
}

func NewDiscordForTest(botToken string, pageSize int, roleNames, roleIDs []string) *Discord {
	return &Discord{
		botToken:  botToken,
		pageSize:  pageSize,
		maxPages:  10,
		roleNames: roleNames,
		roleIDs:   roleIDs,
	}
}

func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{level: level, format: format, output: output}
}

func NewGitHubForTest(appID, installationID int, privateKey, token string) *GitHub {
	return &GitHub{appID: appID, installationID: installationID, privateKey: privateKey, token: token}
}
