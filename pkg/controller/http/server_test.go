package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	httpctrl "github.com/secmon-lab/threadsync/pkg/controller/http"
	"github.com/secmon-lab/threadsync/pkg/domain/model"
)

type fakeSyncUseCase struct {
	mu       sync.Mutex
	batches  int
	issues   []int
	batchErr error
	done     chan struct{}
}

func newFakeSyncUseCase() *fakeSyncUseCase {
	return &fakeSyncUseCase{done: make(chan struct{}, 10)}
}

func (f *fakeSyncUseCase) RunBatch(ctx context.Context, owner, repo string) (*model.BatchResult, error) {
	f.mu.Lock()
	f.batches++
	f.mu.Unlock()
	defer func() { f.done <- struct{}{} }()

	if f.batchErr != nil {
		return nil, f.batchErr
	}
	result := &model.BatchResult{RunID: "run-1", Issues: []*model.IssueOutcome{
		{IssueNumber: 1, Sync: &model.SyncResult{IssueNumber: 1, HasThread: true, MessagesSynced: 2}},
	}}
	result.Aggregate()
	return result, nil
}

func (f *fakeSyncUseCase) RunIssue(ctx context.Context, owner, repo string, number int) (*model.BatchResult, error) {
	f.mu.Lock()
	f.issues = append(f.issues, number)
	f.mu.Unlock()

	result := &model.BatchResult{RunID: "run-2", Issues: []*model.IssueOutcome{
		{IssueNumber: number, Sync: &model.SyncResult{IssueNumber: number}},
	}}
	result.Aggregate()
	return result, nil
}

func TestHealth(t *testing.T) {
	srv := httpctrl.New(newFakeSyncUseCase(), "acme", "app")

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	gt.Value(t, w.Code).Equal(http.StatusOK)
	gt.String(t, w.Body.String()).Contains(`"status":"ok"`)
}

func TestSyncAsync(t *testing.T) {
	uc := newFakeSyncUseCase()
	srv := httpctrl.New(uc, "acme", "app")

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/sync", nil))
	gt.Value(t, w.Code).Equal(http.StatusAccepted)

	select {
	case <-uc.done:
	case <-time.After(5 * time.Second):
		t.Fatal("batch was not dispatched")
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()
	gt.Value(t, uc.batches).Equal(1)
}

func TestSyncWait(t *testing.T) {
	t.Run("returns batch result", func(t *testing.T) {
		srv := httpctrl.New(newFakeSyncUseCase(), "acme", "app")

		w := httptest.NewRecorder()
		srv.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/sync?wait=true", nil))
		gt.Value(t, w.Code).Equal(http.StatusOK)

		var result model.BatchResult
		gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &result)).Required()
		gt.Value(t, result.RunID).Equal("run-1")
		gt.Value(t, result.MessagesSynced).Equal(2)
		gt.Bool(t, result.Success).True()
	})

	t.Run("listing failure is 500", func(t *testing.T) {
		uc := newFakeSyncUseCase()
		uc.batchErr = errors.New("github down")
		srv := httpctrl.New(uc, "acme", "app")

		w := httptest.NewRecorder()
		srv.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/sync?wait=1", nil))
		gt.Value(t, w.Code).Equal(http.StatusInternalServerError)
	})
}

func TestSyncIssue(t *testing.T) {
	uc := newFakeSyncUseCase()
	srv := httpctrl.New(uc, "acme", "app")

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/sync/issues/42", nil))
	gt.Value(t, w.Code).Equal(http.StatusOK)
	gt.Value(t, uc.issues).Equal([]int{42})

	w = httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/sync/issues/abc", nil))
	gt.Value(t, w.Code).Equal(http.StatusBadRequest)
}

func TestAPIToken(t *testing.T) {
	srv := httpctrl.New(newFakeSyncUseCase(), "acme", "app", httpctrl.WithAPIToken("s3cret"))

	t.Run("missing token", func(t *testing.T) {
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/sync/issues/1", nil))
		gt.Value(t, w.Code).Equal(http.StatusUnauthorized)
	})

	t.Run("wrong token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/sync/issues/1", nil)
		req.Header.Set("Authorization", "Bearer nope")
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, req)
		gt.Value(t, w.Code).Equal(http.StatusUnauthorized)
	})

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/sync/issues/1", nil)
		req.Header.Set("Authorization", "Bearer s3cret")
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, req)
		gt.Value(t, w.Code).Equal(http.StatusOK)
	})

	t.Run("health stays open", func(t *testing.T) {
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		gt.Value(t, w.Code).Equal(http.StatusOK)
	})
}
