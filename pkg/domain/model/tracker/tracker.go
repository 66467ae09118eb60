// Package tracker holds the sync state embedded in the GitHub sync comment:
// the marker-delimited JSON codec, the comment renderer and the Discord thread link resolver.
package tracker

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/threadsync/pkg/domain/model"
)

const (
	// CurrentVersion is the only version ever written
	CurrentVersion = 2

	markerOpen  = "<!-- DISCORD_SYNC:"
	markerClose = "-->"
)

var (
	ErrMarkerNotFound = errors.New("sync tracker marker not found")
	ErrMalformed      = errors.New("sync tracker payload is malformed")
)

// SyncedMessage is a Discord message mirrored into the sync comment. Fields are a snapshot taken at sync time.
type SyncedMessage struct {
	ID         string    `json:"id"`
	Author     string    `json:"author"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	MessageURL string    `json:"messageUrl"`
}

// NewSyncedMessage converts a fetched Discord message
func NewSyncedMessage(msg *model.DiscordMessage) SyncedMessage {
	return SyncedMessage{
		ID:         msg.ID,
		Author:     msg.AuthorName,
		Content:    msg.Content,
		Timestamp:  msg.CreatedAt,
		MessageURL: msg.URL(),
	}
}

// SyncTrackerData is the synchronization state of one issue, always in the current version once decoded
type SyncTrackerData struct {
	Version                int             `json:"version"`
	LastMessageID          string          `json:"lastMessageId"`
	LastTimestamp          time.Time       `json:"lastTimestamp"`
	LastAuthorIsTeamMember *bool           `json:"lastAuthorIsTeamMember,omitempty"`
	Messages               []SyncedMessage `json:"messages"`
}

// HasCursor reports whether a message cursor is available
func (d *SyncTrackerData) HasCursor() bool {
	return d != nil && d.LastMessageID != ""
}

// State is a stored tracker together with the id of the GitHub comment rendering it (0 when none exists yet)
type State struct {
	CommentID int64
	Data      *SyncTrackerData
}

// payload is one of the on-wire schema versions
type payload interface {
	normalize() *SyncTrackerData
}

// payloadV1 is the single-cursor format without a message log
type payloadV1 struct {
	Version                int       `json:"version"`
	LastMessageID          string    `json:"lastMessageId"`
	LastTimestamp          time.Time `json:"lastTimestamp"`
	LastAuthorIsTeamMember *bool     `json:"lastAuthorIsTeamMember,omitempty"`
}

func (p *payloadV1) normalize() *SyncTrackerData {
	return &SyncTrackerData{
		Version:                CurrentVersion,
		LastMessageID:          p.LastMessageID,
		LastTimestamp:          p.LastTimestamp,
		LastAuthorIsTeamMember: p.LastAuthorIsTeamMember,
		Messages:               []SyncedMessage{},
	}
}

// payloadV2 adds the full message log
type payloadV2 struct {
	payloadV1
	Messages []SyncedMessage `json:"messages"`
}

func (p *payloadV2) normalize() *SyncTrackerData {
	data := p.payloadV1.normalize()
	if p.Messages != nil {
		data.Messages = p.Messages
	}
	return data
}

// decode picks the schema variant by the presence of the messages field
func decode(raw []byte) (payload, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, err
	}

	if _, ok := probe["messages"]; ok {
		var p payloadV2
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return &p, nil
	}

	var p payloadV1
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// HasMarker reports whether body contains a sync tracker marker, parsable or not
func HasMarker(body string) bool {
	return strings.Contains(body, markerOpen)
}

// Parse extracts the tracker embedded in a comment body.
// Both schema versions are accepted; the result is always normalized to the current version.
func Parse(body string) (*SyncTrackerData, error) {
	start := strings.Index(body, markerOpen)
	if start < 0 {
		return nil, ErrMarkerNotFound
	}
	rest := body[start+len(markerOpen):]

	end := strings.Index(rest, markerClose)
	if end < 0 {
		return nil, goerr.Wrap(ErrMalformed, "sync tracker marker is not closed")
	}

	raw := bytes.TrimSpace([]byte(rest[:end]))
	p, err := decode(raw)
	if err != nil {
		return nil, goerr.Wrap(ErrMalformed, "failed to decode sync tracker", goerr.V("cause", err.Error()))
	}

	return p.normalize(), nil
}

// encode writes the current version. json.Marshal escapes '>' so message content never closes the marker early.
func encode(data *SyncTrackerData) (string, error) {
	raw, err := json.Marshal(&payloadV2{
		payloadV1: payloadV1{
			Version:                CurrentVersion,
			LastMessageID:          data.LastMessageID,
			LastTimestamp:          data.LastTimestamp,
			LastAuthorIsTeamMember: data.LastAuthorIsTeamMember,
		},
		Messages: data.Messages,
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to encode sync tracker")
	}

	return markerOpen + " " + string(raw) + " " + markerClose, nil
}

// NewData builds the tracker state for messages; the cursor is the last message
func NewData(messages []SyncedMessage, lastAuthorIsTeamMember *bool, now time.Time) *SyncTrackerData {
	data := &SyncTrackerData{
		Version:                CurrentVersion,
		LastTimestamp:          now.UTC(),
		LastAuthorIsTeamMember: lastAuthorIsTeamMember,
		Messages:               messages,
	}
	if data.Messages == nil {
		data.Messages = []SyncedMessage{}
	}
	if n := len(messages); n > 0 {
		data.LastMessageID = messages[n-1].ID
		data.LastTimestamp = messages[n-1].Timestamp
	}
	return data
}

// FindComment returns the canonical sync comment among comments.
// When several carry the marker, the most recently created one wins and ties go to the larger id.
func FindComment(comments []*model.Comment) *model.Comment {
	var found *model.Comment
	for _, c := range comments {
		if c == nil || !HasMarker(c.Body) {
			continue
		}
		if found == nil ||
			c.CreatedAt.After(found.CreatedAt) ||
			(c.CreatedAt.Equal(found.CreatedAt) && c.ID > found.ID) {
			found = c
		}
	}
	return found
}
