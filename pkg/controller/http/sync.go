package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/threadsync/pkg/utils/async"
	"github.com/secmon-lab/threadsync/pkg/utils/errutil"
	"github.com/secmon-lab/threadsync/pkg/utils/logging"
	"github.com/secmon-lab/threadsync/pkg/utils/safe"
)

type acceptedResponse struct {
	Status    string `json:"status"`
	RequestID string `json:"requestId,omitempty"`
}

// syncHandler starts a batch run. The run is dispatched in the background unless wait=true is given.
func (s *Server) syncHandler(w http.ResponseWriter, r *http.Request) {
	ctx := logging.With(r.Context(), logging.Default().With("request_id", middleware.GetReqID(r.Context())))

	if !waitRequested(r) {
		async.Dispatch(ctx, func(ctx context.Context) error {
			_, err := s.syncUC.RunBatch(ctx, s.owner, s.repo)
			return err
		})
		writeJSON(ctx, w, http.StatusAccepted, &acceptedResponse{
			Status:    "accepted",
			RequestID: middleware.GetReqID(r.Context()),
		})
		return
	}

	result, err := s.syncUC.RunBatch(ctx, s.owner, s.repo)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(ctx, w, http.StatusOK, result)
}

// syncIssueHandler runs the pipeline for one issue and returns its result
func (s *Server) syncIssueHandler(w http.ResponseWriter, r *http.Request) {
	ctx := logging.With(r.Context(), logging.Default().With("request_id", middleware.GetReqID(r.Context())))

	number, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil || number <= 0 {
		http.Error(w, "invalid issue number", http.StatusBadRequest)
		return
	}

	result, err := s.syncUC.RunIssue(ctx, s.owner, s.repo, number)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(ctx, w, http.StatusOK, result)
}

func waitRequested(r *http.Request) bool {
	wait, err := strconv.ParseBool(r.URL.Query().Get("wait"))
	return err == nil && wait
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to marshal response"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	safe.Write(ctx, w, data)
}
