package github_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	gh "github.com/google/go-github/v80/github"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/threadsync/pkg/domain/model"
	"github.com/secmon-lab/threadsync/pkg/service/github"
	"github.com/shurcooL/githubv4"
)

// rewriteTransport sends every request to the test server regardless of the API host
type rewriteTransport struct {
	target *url.URL
}

func (t *rewriteTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.URL.Scheme = t.target.Scheme
	r.URL.Host = t.target.Host
	return http.DefaultTransport.RoundTrip(r)
}

func newTestService(t *testing.T, mux *http.ServeMux) github.Service {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	target, err := url.Parse(srv.URL)
	gt.NoError(t, err).Required()
	return github.NewWithHTTPClient(&http.Client{Transport: &rewriteTransport{target: target}})
}

func TestConvertIssue(t *testing.T) {
	updated := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	issue := &github.RESTIssue{
		Number:    gh.Ptr(42),
		Title:     gh.Ptr("Agent crashes"),
		Body:      gh.Ptr("Discord thread: https://discord.com/channels/111/222"),
		HTMLURL:   gh.Ptr("https://github.com/mastra-ai/mastra/issues/42"),
		State:     gh.Ptr("open"),
		Labels:    []*gh.Label{{Name: gh.Ptr("status: waiting for author")}},
		UpdatedAt: &gh.Timestamp{Time: updated},
	}

	got := github.ConvertIssue(issue, "mastra-ai", "mastra")
	gt.Value(t, got.Owner).Equal("mastra-ai")
	gt.Value(t, got.Repo).Equal("mastra")
	gt.Value(t, got.Number).Equal(42)
	gt.Value(t, got.URL).Equal("https://github.com/mastra-ai/mastra/issues/42")
	gt.Array(t, got.Labels).Length(1)
	gt.Value(t, got.Labels[0]).Equal("status: waiting for author")
	gt.Bool(t, got.UpdatedAt.Equal(updated)).True()
}

func TestConvertComment(t *testing.T) {
	t.Run("human", func(t *testing.T) {
		c := github.ConvertComment(&gh.IssueComment{
			ID:   gh.Ptr(int64(10)),
			Body: gh.Ptr("thanks"),
			User: &gh.User{Login: gh.Ptr("alice"), Type: gh.Ptr("User")},
		})
		gt.Value(t, c.ID).Equal(int64(10))
		gt.Value(t, c.Author).Equal("alice")
		gt.Bool(t, c.IsBot).False()
	})

	t.Run("bot", func(t *testing.T) {
		c := github.ConvertComment(&gh.IssueComment{
			ID:   gh.Ptr(int64(11)),
			User: &gh.User{Login: gh.Ptr("threadsync[bot]"), Type: gh.Ptr("Bot")},
		})
		gt.Bool(t, c.IsBot).True()
		gt.Bool(t, c.IsBotAuthored()).True()
	})

	t.Run("missing user", func(t *testing.T) {
		c := github.ConvertComment(&gh.IssueComment{ID: gh.Ptr(int64(12))})
		gt.Value(t, c.Author).Equal("")
		gt.Bool(t, c.IsBot).False()
	})
}

func TestConvertIssueFragment(t *testing.T) {
	var f github.IssueFragment
	f.Number = githubv4.Int(7)
	f.Title = githubv4.String("title")
	f.State = githubv4.String("OPEN")
	f.Labels.Nodes = append(f.Labels.Nodes, struct{ Name githubv4.String }{Name: "bug"})

	got := github.ConvertIssueFragment(f, "o", "r")
	gt.Value(t, got.Key()).Equal(model.IssueKey{Owner: "o", Repo: "r", Number: 7})
	gt.Value(t, got.Labels).Equal([]string{"bug"})
}

func TestListOpenIssuesByLabel(t *testing.T) {
	var queries []string
	mux := http.NewServeMux()
	mux.HandleFunc("/graphql", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Variables map[string]any `json:"variables"`
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &req)
		queries = append(queries, fmt.Sprint(req.Variables["query"]))

		w.Header().Set("Content-Type", "application/json")
		if req.Variables["cursor"] == nil {
			_, _ = io.WriteString(w, `{"data":{"search":{"edges":[
				{"node":{"number":1,"title":"first","body":"","state":"OPEN","url":"https://github.com/o/r/issues/1","updatedAt":"2026-05-01T00:00:00Z","labels":{"nodes":[{"name":"status: needs reproduction"}]}}},
				{"node":{}}
			],"pageInfo":{"hasNextPage":true,"endCursor":"c1"}}}}`)
			return
		}
		_, _ = io.WriteString(w, `{"data":{"search":{"edges":[
			{"node":{"number":2,"title":"second","body":"","state":"OPEN","url":"https://github.com/o/r/issues/2","updatedAt":"2026-05-02T00:00:00Z","labels":{"nodes":[]}}}
		],"pageInfo":{"hasNextPage":false,"endCursor":"c2"}}}}`)
	})

	svc := newTestService(t, mux)

	var numbers []int
	for issue, err := range svc.ListOpenIssuesByLabel(context.Background(), "o", "r", "status: needs reproduction") {
		gt.NoError(t, err).Required()
		numbers = append(numbers, issue.Number)
	}

	gt.Value(t, numbers).Equal([]int{1, 2})
	gt.Array(t, queries).Length(2).Required()
	gt.Value(t, queries[0]).Equal(`repo:o/r is:issue is:open label:"status: needs reproduction" sort:updated-asc`)
}

func TestListOpenIssuesByLabel_Error(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/graphql", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	svc := newTestService(t, mux)

	var gotErr error
	for _, err := range svc.ListOpenIssuesByLabel(context.Background(), "o", "r", "x") {
		gotErr = err
	}
	gt.Value(t, gotErr).NotNil()
}

func TestListComments_Paging(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/o/r/issues/5/comments", func(w http.ResponseWriter, r *http.Request) {
		gt.Value(t, r.URL.Query().Get("sort")).Equal("created")
		gt.Value(t, r.URL.Query().Get("direction")).Equal("asc")

		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page") == "" {
			w.Header().Set("Link", `<https://api.github.com/repos/o/r/issues/5/comments?page=2>; rel="next"`)
			_, _ = io.WriteString(w, `[{"id":1,"body":"a","user":{"login":"alice","type":"User"}}]`)
			return
		}
		_, _ = io.WriteString(w, `[{"id":2,"body":"b","user":{"login":"threadsync[bot]","type":"Bot"}}]`)
	})

	svc := newTestService(t, mux)
	comments, err := svc.ListComments(context.Background(), "o", "r", 5)
	gt.NoError(t, err).Required()
	gt.Array(t, comments).Length(2).Required()
	gt.Value(t, comments[0].Author).Equal("alice")
	gt.Bool(t, comments[1].IsBot).True()
}

func TestCommentMutations(t *testing.T) {
	var created, edited string
	var labels []string

	mux := http.NewServeMux()
	mux.HandleFunc("POST /repos/o/r/issues/5/comments", func(w http.ResponseWriter, r *http.Request) {
		var c gh.IssueComment
		_ = json.NewDecoder(r.Body).Decode(&c)
		created = c.GetBody()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":99,"body":"x","user":{"login":"threadsync[bot]","type":"Bot"}}`)
	})
	mux.HandleFunc("PATCH /repos/o/r/issues/comments/99", func(w http.ResponseWriter, r *http.Request) {
		var c gh.IssueComment
		_ = json.NewDecoder(r.Body).Decode(&c)
		edited = c.GetBody()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":99}`)
	})
	mux.HandleFunc("POST /repos/o/r/issues/5/labels", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&labels)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"name":"status: needs follow up"}]`)
	})
	mux.HandleFunc("GET /repos/o/r/issues/5", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"number":5,"title":"t","state":"open","updated_at":"2026-05-01T00:00:00Z"}`)
	})

	svc := newTestService(t, mux)
	ctx := context.Background()

	c, err := svc.CreateComment(ctx, "o", "r", 5, "hello")
	gt.NoError(t, err).Required()
	gt.Value(t, c.ID).Equal(int64(99))
	gt.Value(t, created).Equal("hello")

	gt.NoError(t, svc.UpdateComment(ctx, "o", "r", 99, "updated"))
	gt.Value(t, edited).Equal("updated")

	gt.NoError(t, svc.AddLabels(ctx, "o", "r", 5, []string{"status: needs follow up"}))
	gt.Value(t, labels).Equal([]string{"status: needs follow up"})

	issue, err := svc.GetIssue(ctx, "o", "r", 5)
	gt.NoError(t, err).Required()
	gt.Value(t, issue.Number).Equal(5)
	gt.Value(t, issue.Owner).Equal("o")
}

func TestAddLabels_Empty(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
	})
	svc := newTestService(t, mux)
	gt.NoError(t, svc.AddLabels(context.Background(), "o", "r", 5, nil))
}

func TestNewWithToken_Empty(t *testing.T) {
	_, err := github.NewWithToken(context.Background(), "")
	gt.Value(t, err).NotNil()
}
