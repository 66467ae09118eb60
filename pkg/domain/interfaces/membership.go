package interfaces

import "github.com/secmon-lab/threadsync/pkg/domain/model"

// MemberClassifier decides whether a Discord guild member is internal staff
type MemberClassifier interface {
	IsTeamMember(member *model.GuildMember) bool
}

// TeamRoster decides whether a GitHub login is internal staff
type TeamRoster interface {
	IsKnownTeamLogin(login string) bool
}

var (
	_ MemberClassifier = &model.RoleNameClassifier{}
	_ MemberClassifier = &model.RoleIDClassifier{}
	_ TeamRoster       = &model.Roster{}
)
