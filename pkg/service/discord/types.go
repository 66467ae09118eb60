package discord

import (
	"context"
	"errors"

	"github.com/secmon-lab/threadsync/pkg/domain/model"
)

var (
	// ErrNotThread is returned when a linked channel exists but is not a thread
	ErrNotThread = errors.New("discord channel is not a thread")

	// ErrMemberNotFound is returned when the user is no longer in the guild
	ErrMemberNotFound = errors.New("discord guild member not found")
)

// Service provides the Discord capabilities used by the sync workflow
type Service interface {
	// GetThread resolves a channel id and confirms it is a thread
	GetThread(ctx context.Context, channelID string) (*model.DiscordThread, error)

	// FetchMessagesAfter returns messages posted after afterID in chronological order.
	// "0" fetches from the start of the thread.
	FetchMessagesAfter(ctx context.Context, thread *model.DiscordThread, afterID string) ([]*model.DiscordMessage, error)

	// FetchRecentMessages returns up to limit most recent messages in chronological order
	FetchRecentMessages(ctx context.Context, thread *model.DiscordThread, limit int) ([]*model.DiscordMessage, error)

	// GetGuildMember returns a member with role names resolved (role lookup is cached)
	GetGuildMember(ctx context.Context, guildID, userID string) (*model.GuildMember, error)
}
