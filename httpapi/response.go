package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/elidra/taskq/job"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type jobEnvelope struct {
	Job        *job.Job `json:"job"`
	Idempotent bool     `json:"idempotent,omitempty"`
}

type jobWithHistoryEnvelope struct {
	Job     *job.Job       `json:"job"`
	History []*job.History `json:"history"`
}

type pagination struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

type listEnvelope struct {
	Jobs       []*job.Job `json:"jobs"`
	Pagination pagination `json:"pagination"`
}

type errorEnvelope struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}
