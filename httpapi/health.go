package httpapi

import (
	"net/http"
	"time"
)

type checkResult struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latencyMs"`
	Error     string `json:"error,omitempty"`
}

type healthResponse struct {
	Status string `json:"status"`
	Checks struct {
		DB          checkResult `json:"db"`
		Coordination checkResult `json:"coordination"`
	} `json:"checks"`
}

// handleHealth pings the Durable Store and Coordination Store and
// reports per-check latency. A failure in either check degrades the
// overall status to "down" and the response to 503, per §6.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var resp healthResponse
	resp.Checks.DB = ping(r, s.db)
	resp.Checks.Coordination = ping(r, s.coord)

	status := http.StatusOK
	resp.Status = "up"
	if resp.Checks.DB.Status != "up" || resp.Checks.Coordination.Status != "up" {
		resp.Status = "down"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func ping(r *http.Request, p Pinger) checkResult {
	start := time.Now()
	err := p.Ping(r.Context())
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return checkResult{Status: "down", LatencyMs: latency, Error: err.Error()}
	}
	return checkResult{Status: "up", LatencyMs: latency}
}
