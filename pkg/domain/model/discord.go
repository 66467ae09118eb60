package model

import (
	"fmt"
	"slices"
	"strconv"
	"time"
)

// discordEpoch is the first millisecond of 2015, the origin of snowflake timestamps
const discordEpoch int64 = 1420070400000

// DiscordThread is a Discord channel confirmed to be a thread
type DiscordThread struct {
	ID      string
	GuildID string
	Name    string
}

// URL returns the deep link to the thread
func (t *DiscordThread) URL() string {
	return ThreadURL(t.GuildID, t.ID)
}

// ThreadURL builds the Discord link for a thread in a guild
func ThreadURL(guildID, threadID string) string {
	return fmt.Sprintf("https://discord.com/channels/%s/%s", guildID, threadID)
}

// DiscordMessage is a message fetched from a Discord thread
type DiscordMessage struct {
	ID         string
	ChannelID  string
	GuildID    string
	AuthorID   string
	AuthorName string
	AuthorBot  bool
	WebhookID  string
	Content    string
	CreatedAt  time.Time
}

// URL returns the deep link to the message
func (m *DiscordMessage) URL() string {
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", m.GuildID, m.ChannelID, m.ID)
}

// GuildMember is a Discord guild member with its roles resolved
type GuildMember struct {
	UserID    string
	RoleIDs   []string
	RoleNames []string
}

// CompareSnowflake orders two Discord snowflake ids numerically.
// Ids that do not parse fall back to length-then-lexical ordering, which matches numeric order for decimal strings.
func CompareSnowflake(a, b string) int {
	x, errA := strconv.ParseUint(a, 10, 64)
	y, errB := strconv.ParseUint(b, 10, 64)
	if errA == nil && errB == nil {
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		default:
			return 0
		}
	}

	switch {
	case len(a) != len(b):
		if len(a) < len(b) {
			return -1
		}
		return 1
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// SnowflakeFromTime returns the smallest snowflake created at t, usable as an "after" cursor.
// Times before the Discord epoch map to "0".
func SnowflakeFromTime(t time.Time) string {
	ms := t.UnixMilli() - discordEpoch
	if t.IsZero() || ms <= 0 {
		return "0"
	}
	return strconv.FormatUint(uint64(ms)<<22, 10)
}

// SortDiscordMessages orders messages by creation time, then by snowflake for equal timestamps
func SortDiscordMessages(messages []*DiscordMessage) {
	slices.SortStableFunc(messages, func(a, b *DiscordMessage) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return CompareSnowflake(a.ID, b.ID)
	})
}
