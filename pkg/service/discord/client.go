package discord

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/threadsync/pkg/domain/model"
	"github.com/secmon-lab/threadsync/pkg/utils/logging"
)

const (
	// DefaultPageSize is the largest page the Discord API serves
	DefaultPageSize = 100
	// DefaultMaxPages bounds a single fetch to DefaultPageSize*DefaultMaxPages messages
	DefaultMaxPages = 50
	// DefaultCacheTTL is the default TTL for guild role cache
	DefaultCacheTTL = 5 * time.Minute
)

// roleCacheEntry holds role names of a guild with expiration
type roleCacheEntry struct {
	names     map[string]string
	expiresAt time.Time
}

// client implements Service interface
type client struct {
	session  *discordgo.Session
	pageSize int
	maxPages int
	cacheTTL time.Duration

	mu    sync.RWMutex
	roles map[string]roleCacheEntry
}

// Option is a functional option for client configuration
type Option func(*client)

// WithPageSize sets the number of messages requested per page (1..100)
func WithPageSize(size int) Option {
	return func(c *client) {
		if size > 0 && size <= DefaultPageSize {
			c.pageSize = size
		}
	}
}

// WithMaxPages sets the upper bound of pages fetched in one call
func WithMaxPages(pages int) Option {
	return func(c *client) {
		if pages > 0 {
			c.maxPages = pages
		}
	}
}

// WithCacheTTL sets the TTL for guild role cache
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *client) {
		if ttl > 0 {
			c.cacheTTL = ttl
		}
	}
}

// WithHTTPClient replaces the HTTP client used by the session
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *client) {
		c.session.Client = httpClient
	}
}

// New creates a new Discord service with the provided bot token
func New(token string, opts ...Option) (Service, error) {
	if token == "" {
		return nil, goerr.New("Discord bot token is required")
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Discord session")
	}

	c := &client{
		session:  session,
		pageSize: DefaultPageSize,
		maxPages: DefaultMaxPages,
		cacheTTL: DefaultCacheTTL,
		roles:    make(map[string]roleCacheEntry),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// GetThread fetches the channel and verifies its type
func (c *client) GetThread(ctx context.Context, channelID string) (*model.DiscordThread, error) {
	ch, err := c.session.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get Discord channel", goerr.V("channel_id", channelID))
	}

	if !isThread(ch.Type) {
		return nil, goerr.Wrap(ErrNotThread, "linked channel is not a thread",
			goerr.V("channel_id", channelID),
			goerr.V("channel_type", int(ch.Type)),
		)
	}

	return &model.DiscordThread{
		ID:      ch.ID,
		GuildID: ch.GuildID,
		Name:    ch.Name,
	}, nil
}

// FetchMessagesAfter pages forward from afterID until a short page or the page limit
func (c *client) FetchMessagesAfter(ctx context.Context, thread *model.DiscordThread, afterID string) ([]*model.DiscordMessage, error) {
	if afterID == "" {
		afterID = "0"
	}

	var messages []*model.DiscordMessage
	cursor := afterID

	for page := 0; page < c.maxPages; page++ {
		batch, err := c.session.ChannelMessages(thread.ID, c.pageSize, "", cursor, "", discordgo.WithContext(ctx))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to fetch Discord messages",
				goerr.V("thread_id", thread.ID),
				goerr.V("after", cursor),
			)
		}

		for _, m := range batch {
			msg := convertMessage(m, thread)
			messages = append(messages, msg)
			if model.CompareSnowflake(msg.ID, cursor) > 0 {
				cursor = msg.ID
			}
		}

		if len(batch) < c.pageSize {
			model.SortDiscordMessages(messages)
			return messages, nil
		}
	}

	logging.From(ctx).Warn("Discord message fetch reached page limit",
		"thread_id", thread.ID,
		"max_pages", c.maxPages,
		"fetched", len(messages),
	)
	model.SortDiscordMessages(messages)
	return messages, nil
}

// FetchRecentMessages fetches the newest page of messages
func (c *client) FetchRecentMessages(ctx context.Context, thread *model.DiscordThread, limit int) ([]*model.DiscordMessage, error) {
	if limit <= 0 || limit > DefaultPageSize {
		limit = DefaultPageSize
	}

	batch, err := c.session.ChannelMessages(thread.ID, limit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch recent Discord messages", goerr.V("thread_id", thread.ID))
	}

	messages := make([]*model.DiscordMessage, 0, len(batch))
	for _, m := range batch {
		messages = append(messages, convertMessage(m, thread))
	}
	model.SortDiscordMessages(messages)
	return messages, nil
}

// GetGuildMember fetches the member and resolves role ids to names
func (c *client) GetGuildMember(ctx context.Context, guildID, userID string) (*model.GuildMember, error) {
	member, err := c.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		if isNotFound(err) {
			return nil, goerr.Wrap(ErrMemberNotFound, "member is not in guild",
				goerr.V("guild_id", guildID),
				goerr.V("user_id", userID),
			)
		}
		return nil, goerr.Wrap(err, "failed to get guild member",
			goerr.V("guild_id", guildID),
			goerr.V("user_id", userID),
		)
	}

	names, err := c.roleNames(ctx, guildID)
	if err != nil {
		return nil, err
	}

	result := &model.GuildMember{
		UserID:  userID,
		RoleIDs: slices.Clone(member.Roles),
	}
	for _, id := range member.Roles {
		if name, ok := names[id]; ok {
			result.RoleNames = append(result.RoleNames, name)
		}
	}
	return result, nil
}

// roleNames returns role id to name of a guild with caching
func (c *client) roleNames(ctx context.Context, guildID string) (map[string]string, error) {
	now := time.Now()

	c.mu.RLock()
	entry, ok := c.roles[guildID]
	c.mu.RUnlock()
	if ok && entry.expiresAt.After(now) {
		return entry.names, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check cache after acquiring write lock
	if entry, ok := c.roles[guildID]; ok && entry.expiresAt.After(now) {
		return entry.names, nil
	}

	roles, err := c.session.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get guild roles", goerr.V("guild_id", guildID))
	}

	names := make(map[string]string, len(roles))
	for _, r := range roles {
		names[r.ID] = r.Name
	}
	c.roles[guildID] = roleCacheEntry{
		names:     names,
		expiresAt: now.Add(c.cacheTTL),
	}
	return names, nil
}

func isThread(t discordgo.ChannelType) bool {
	switch t {
	case discordgo.ChannelTypeGuildPublicThread,
		discordgo.ChannelTypeGuildPrivateThread,
		discordgo.ChannelTypeGuildNewsThread:
		return true
	default:
		return false
	}
}

func isNotFound(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	return restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}

func convertMessage(m *discordgo.Message, thread *model.DiscordThread) *model.DiscordMessage {
	msg := &model.DiscordMessage{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
		WebhookID: m.WebhookID,
		Content:   m.Content,
		CreatedAt: m.Timestamp.UTC(),
	}
	if msg.ChannelID == "" {
		msg.ChannelID = thread.ID
	}
	if msg.GuildID == "" {
		msg.GuildID = thread.GuildID
	}
	if m.Author != nil {
		msg.AuthorID = m.Author.ID
		msg.AuthorBot = m.Author.Bot
		msg.AuthorName = m.Author.GlobalName
		if msg.AuthorName == "" {
			msg.AuthorName = m.Author.Username
		}
	}
	return msg
}
