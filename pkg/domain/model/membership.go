package model

import (
	"slices"
	"strings"
)

// DefaultTeamRoleNames are the Discord role names treated as internal staff
var DefaultTeamRoleNames = []string{"Admin", "Mastra Team"}

// RoleNameClassifier classifies a guild member by the display names of its roles.
// Role names are compared exactly; a renamed role stops matching.
type RoleNameClassifier struct {
	names []string
}

// NewRoleNameClassifier creates a classifier matching any of names
func NewRoleNameClassifier(names ...string) *RoleNameClassifier {
	return &RoleNameClassifier{names: slices.Clone(names)}
}

// IsTeamMember reports whether member holds one of the configured roles
func (c *RoleNameClassifier) IsTeamMember(member *GuildMember) bool {
	if member == nil {
		return false
	}
	for _, name := range member.RoleNames {
		if slices.Contains(c.names, name) {
			return true
		}
	}
	return false
}

// RoleIDClassifier classifies a guild member by stable role ids
type RoleIDClassifier struct {
	ids []string
}

// NewRoleIDClassifier creates a classifier matching any of ids
func NewRoleIDClassifier(ids ...string) *RoleIDClassifier {
	trimmed := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			trimmed = append(trimmed, id)
		}
	}
	return &RoleIDClassifier{ids: trimmed}
}

// IsTeamMember reports whether member holds one of the configured role ids
func (c *RoleIDClassifier) IsTeamMember(member *GuildMember) bool {
	if member == nil {
		return false
	}
	for _, id := range member.RoleIDs {
		if slices.Contains(c.ids, id) {
			return true
		}
	}
	return false
}
