package usecase_test

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/threadsync/pkg/domain/model"
	"github.com/secmon-lab/threadsync/pkg/service/discord"
)

var baseTime = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

const (
	testOwner = "acme"
	testRepo  = "app"
	guildID   = "111"

	teamUser     = "u-team"
	externalUser = "u-ext"
)

// fakeGitHub keeps issues and comments in memory
type fakeGitHub struct {
	mu       sync.Mutex
	issues   map[int]*model.Issue
	comments map[int][]*model.Comment
	nextID   int64

	listErr     error
	commentsErr map[int]error
	createErr   map[int]error

	createCalls int
	updateCalls int
	labelCalls  int
}

func newFakeGitHub(issues ...*model.Issue) *fakeGitHub {
	f := &fakeGitHub{
		issues:      make(map[int]*model.Issue),
		comments:    make(map[int][]*model.Comment),
		commentsErr: make(map[int]error),
		createErr:   make(map[int]error),
		nextID:      1000,
	}
	for _, issue := range issues {
		f.issues[issue.Number] = issue
	}
	return f
}

func copyIssue(issue *model.Issue) *model.Issue {
	c := *issue
	c.Labels = slices.Clone(issue.Labels)
	return &c
}

func (f *fakeGitHub) ListOpenIssuesByLabel(ctx context.Context, owner, repo, label string) iter.Seq2[*model.Issue, error] {
	return func(yield func(*model.Issue, error) bool) {
		f.mu.Lock()
		if f.listErr != nil {
			err := f.listErr
			f.mu.Unlock()
			yield(nil, err)
			return
		}
		var matched []*model.Issue
		for _, issue := range f.issues {
			if issue.Owner == owner && issue.Repo == repo && issue.HasLabel(label) {
				matched = append(matched, copyIssue(issue))
			}
		}
		f.mu.Unlock()

		for _, issue := range matched {
			if !yield(issue, nil) {
				return
			}
		}
	}
}

func (f *fakeGitHub) GetIssue(ctx context.Context, owner, repo string, number int) (*model.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	issue, ok := f.issues[number]
	if !ok {
		return nil, goerr.New("issue not found", goerr.V("number", number))
	}
	return copyIssue(issue), nil
}

func (f *fakeGitHub) ListComments(ctx context.Context, owner, repo string, number int) ([]*model.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.commentsErr[number]; err != nil {
		return nil, err
	}
	out := make([]*model.Comment, 0, len(f.comments[number]))
	for _, c := range f.comments[number] {
		cc := *c
		out = append(out, &cc)
	}
	return out, nil
}

func (f *fakeGitHub) CreateComment(ctx context.Context, owner, repo string, number int, body string) (*model.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.createErr[number]; err != nil {
		return nil, err
	}
	f.createCalls++
	f.nextID++
	c := &model.Comment{
		ID:        f.nextID,
		Author:    "threadsync[bot]",
		IsBot:     true,
		Body:      body,
		CreatedAt: baseTime.Add(time.Duration(f.nextID) * time.Second),
	}
	f.comments[number] = append(f.comments[number], c)

	cc := *c
	return &cc, nil
}

// addComment seeds a comment as if written by a person
func (f *fakeGitHub) addComment(number int, author, body string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	f.comments[number] = append(f.comments[number], &model.Comment{
		ID:        f.nextID,
		Author:    author,
		Body:      body,
		CreatedAt: baseTime.Add(time.Duration(f.nextID) * time.Second),
	})
	return f.nextID
}

func (f *fakeGitHub) UpdateComment(ctx context.Context, owner, repo string, commentID int64, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, comments := range f.comments {
		for _, c := range comments {
			if c.ID == commentID {
				f.updateCalls++
				c.Body = body
				return nil
			}
		}
	}
	return goerr.New("comment not found", goerr.V("comment_id", commentID))
}

func (f *fakeGitHub) AddLabels(ctx context.Context, owner, repo string, number int, labels []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	issue, ok := f.issues[number]
	if !ok {
		return goerr.New("issue not found", goerr.V("number", number))
	}
	f.labelCalls++
	for _, l := range labels {
		if !slices.Contains(issue.Labels, l) {
			issue.Labels = append(issue.Labels, l)
		}
	}
	return nil
}

func (f *fakeGitHub) commentsOf(number int) []*model.Comment {
	comments, _ := f.ListComments(context.Background(), testOwner, testRepo, number)
	return comments
}

func (f *fakeGitHub) labelsOf(number int) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.issues[number].Labels)
}

// fakeDiscord serves threads and messages from memory.
// FetchMessagesAfter returns newest first to exercise re-sorting.
type fakeDiscord struct {
	mu        sync.Mutex
	threads   map[string]*model.DiscordThread
	notThread map[string]bool
	messages  map[string][]*model.DiscordMessage
	members   map[string]*model.GuildMember
	fetchErr  map[string]error
	memberErr map[string]error

	afterCursors []string
	recentCalls  int
}

func newFakeDiscord() *fakeDiscord {
	return &fakeDiscord{
		threads:   make(map[string]*model.DiscordThread),
		notThread: make(map[string]bool),
		messages:  make(map[string][]*model.DiscordMessage),
		members: map[string]*model.GuildMember{
			teamUser:     {UserID: teamUser, RoleIDs: []string{"r1"}, RoleNames: []string{"Admin"}},
			externalUser: {UserID: externalUser},
		},
		fetchErr:  make(map[string]error),
		memberErr: make(map[string]error),
	}
}

func (f *fakeDiscord) addThread(threadID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threads[threadID] = &model.DiscordThread{ID: threadID, GuildID: guildID, Name: "thread " + threadID}
}

// post appends a message; id doubles as the offset in minutes from baseTime-24h
func (f *fakeDiscord) post(threadID string, id int, author, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[threadID] = append(f.messages[threadID], &model.DiscordMessage{
		ID:         fmt.Sprintf("%d", id),
		ChannelID:  threadID,
		GuildID:    guildID,
		AuthorID:   author,
		AuthorName: "name-" + author,
		Content:    content,
		CreatedAt:  baseTime.Add(-24*time.Hour + time.Duration(id)*time.Minute),
	})
}

func (f *fakeDiscord) postMessage(threadID string, msg *model.DiscordMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[threadID] = append(f.messages[threadID], msg)
}

func (f *fakeDiscord) GetThread(ctx context.Context, channelID string) (*model.DiscordThread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.notThread[channelID] {
		return nil, goerr.Wrap(discord.ErrNotThread, "linked channel is not a thread", goerr.V("channel_id", channelID))
	}
	thread, ok := f.threads[channelID]
	if !ok {
		return nil, goerr.New("unknown channel", goerr.V("channel_id", channelID))
	}
	t := *thread
	return &t, nil
}

func (f *fakeDiscord) FetchMessagesAfter(ctx context.Context, thread *model.DiscordThread, afterID string) ([]*model.DiscordMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.afterCursors = append(f.afterCursors, afterID)
	if err := f.fetchErr[thread.ID]; err != nil {
		return nil, err
	}

	var out []*model.DiscordMessage
	msgs := f.messages[thread.ID]
	for i := len(msgs) - 1; i >= 0; i-- {
		if model.CompareSnowflake(msgs[i].ID, afterID) > 0 {
			m := *msgs[i]
			out = append(out, &m)
		}
	}
	return out, nil
}

func (f *fakeDiscord) FetchRecentMessages(ctx context.Context, thread *model.DiscordThread, limit int) ([]*model.DiscordMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.recentCalls++
	msgs := f.messages[thread.ID]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]*model.DiscordMessage, 0, len(msgs))
	for _, m := range msgs {
		mm := *m
		out = append(out, &mm)
	}
	return out, nil
}

func (f *fakeDiscord) GetGuildMember(ctx context.Context, guild, userID string) (*model.GuildMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.memberErr[userID]; err != nil {
		return nil, err
	}
	member, ok := f.members[userID]
	if !ok {
		return nil, goerr.Wrap(discord.ErrMemberNotFound, "member is not in guild", goerr.V("user_id", userID))
	}
	return member, nil
}

func (f *fakeDiscord) lastCursor() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.afterCursors) == 0 {
		return ""
	}
	return f.afterCursors[len(f.afterCursors)-1]
}

func newIssue(number int, body string, labels ...string) *model.Issue {
	return &model.Issue{
		Owner:     testOwner,
		Repo:      testRepo,
		Number:    number,
		Title:     fmt.Sprintf("issue %d", number),
		Body:      body,
		State:     "open",
		Labels:    labels,
		UpdatedAt: baseTime.Add(-48 * time.Hour),
	}
}

func threadBody(threadID string) string {
	return fmt.Sprintf("Reported on Discord: https://discord.com/channels/%s/%s", guildID, threadID)
}

func itoa(n int) string {
	return fmt.Sprintf("%d", n)
}
