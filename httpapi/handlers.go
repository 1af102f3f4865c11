package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/elidra/taskq/intake"
	"github.com/elidra/taskq/job"
	"github.com/elidra/taskq/message"
	"github.com/elidra/taskq/store"
)

type createRequest struct {
	Queue             string          `json:"queue"`
	Type              string          `json:"type"`
	Priority          string          `json:"priority"`
	Payload           json.RawMessage `json:"payload"`
	IdempotencyKey    *string         `json:"idempotencyKey,omitempty"`
	MaxRetries        *uint32         `json:"maxRetries,omitempty"`
	ScheduledAt       *time.Time      `json:"scheduledAt,omitempty"`
	VisibilityTimeoutMs *int64        `json:"visibilityTimeout,omitempty"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorEnvelope{Error: "malformed request body"})
		return
	}

	priority, err := job.ParsePriority(req.Priority)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorEnvelope{Error: err.Error(), Field: "priority"})
		return
	}

	input := intake.Input{
		Queue:          req.Queue,
		Type:           req.Type,
		Priority:       priority,
		Payload:        message.Blob(req.Payload),
		IdempotencyKey: req.IdempotencyKey,
		MaxRetries:     req.MaxRetries,
		ScheduledAt:    req.ScheduledAt,
	}
	if req.VisibilityTimeoutMs != nil {
		vt := time.Duration(*req.VisibilityTimeoutMs) * time.Millisecond
		input.VisibilityTimeout = &vt
	}

	res, err := s.intake.Create(r.Context(), input)
	if err != nil {
		writeError(w, s.log, err)
		return
	}

	status := http.StatusCreated
	if res.Idempotent {
		status = http.StatusOK
	}
	writeJSON(w, status, jobEnvelope{Job: res.Job, Idempotent: res.Idempotent})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorEnvelope{Error: "malformed job id"})
		return
	}

	j, err := s.observer.Get(r.Context(), id)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	history, err := s.observer.History(r.Context(), id)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, jobWithHistoryEnvelope{Job: j, History: history})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ListFilter{Queue: q.Get("queue")}

	if raw := q.Get("status"); raw != "" {
		status, err := job.ParseStatus(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorEnvelope{Error: err.Error(), Field: "status"})
			return
		}
		filter.Status = status
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorEnvelope{Error: "limit must be an integer", Field: "limit"})
			return
		}
		filter.Limit = limit
	}
	if raw := q.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorEnvelope{Error: "offset must be an integer", Field: "offset"})
			return
		}
		filter.Offset = offset
	}

	jobs, total, err := s.observer.List(r.Context(), filter)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, listEnvelope{
		Jobs:       jobs,
		Pagination: pagination{Total: total, Limit: filter.Limit, Offset: filter.Offset},
	})
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorEnvelope{Error: "malformed job id"})
		return
	}
	j, err := s.intake.Retry(r.Context(), id)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, jobEnvelope{Job: j})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorEnvelope{Error: "malformed job id"})
		return
	}
	j, err := s.intake.Cancel(r.Context(), id)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, jobEnvelope{Job: j})
}

type completeRequest struct {
	By     string          `json:"by"`
	Result json.RawMessage `json:"result"`
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorEnvelope{Error: "malformed job id"})
		return
	}
	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorEnvelope{Error: "malformed request body"})
		return
	}
	j, err := s.intake.Complete(r.Context(), id, req.By, message.Blob(req.Result))
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, jobEnvelope{Job: j})
}

func parseID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}
