package model

import "strings"

// RosterRole is the role of a login inside the team roster. Only used for display.
type RosterRole string

const (
	RosterRoleOwner  RosterRole = "owner"
	RosterRoleMember RosterRole = "member"
)

// RosterEntry is one entry of the static team roster
type RosterEntry struct {
	Login string
	Role  RosterRole
}

// Roster is the static set of GitHub logins treated as internal team members
type Roster struct {
	entries map[string]RosterEntry
}

// NewRoster builds a roster. Logins are matched case-insensitively, as GitHub does.
func NewRoster(entries ...RosterEntry) *Roster {
	r := &Roster{entries: make(map[string]RosterEntry, len(entries))}
	for _, e := range entries {
		if e.Login == "" {
			continue
		}
		if e.Role == "" {
			e.Role = RosterRoleMember
		}
		r.entries[strings.ToLower(e.Login)] = e
	}
	return r
}

// IsKnownTeamLogin reports whether login is in the roster regardless of its role
func (r *Roster) IsKnownTeamLogin(login string) bool {
	if r == nil || login == "" {
		return false
	}
	_, ok := r.entries[strings.ToLower(login)]
	return ok
}

// Len returns the number of logins in the roster
func (r *Roster) Len() int {
	if r == nil {
		return 0
	}
	return len(r.entries)
}
