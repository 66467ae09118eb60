package types

import "fmt"

// SyncMode selects how Discord messages are mirrored into GitHub
type SyncMode string

const (
	// SyncModeDigest keeps a single continuously updated comment with every synced message
	SyncModeDigest SyncMode = "digest"
	// SyncModeRelay posts one comment per Discord message (legacy behavior)
	SyncModeRelay SyncMode = "relay"
)

// AllSyncModes returns all valid sync modes
func AllSyncModes() []SyncMode {
	return []SyncMode{
		SyncModeDigest,
		SyncModeRelay,
	}
}

// IsValid checks if the sync mode is valid
func (m SyncMode) IsValid() bool {
	switch m {
	case SyncModeDigest,
		SyncModeRelay:
		return true
	default:
		return false
	}
}

// Normalize treats an empty mode as digest
func (m SyncMode) Normalize() SyncMode {
	if m == "" {
		return SyncModeDigest
	}
	return m
}

func (m SyncMode) String() string {
	return string(m)
}

// ParseSyncMode parses a string into a SyncMode
func ParseSyncMode(s string) (SyncMode, error) {
	mode := SyncMode(s).Normalize()
	if !mode.IsValid() {
		return "", fmt.Errorf("invalid sync mode: %s", s)
	}
	return mode, nil
}
