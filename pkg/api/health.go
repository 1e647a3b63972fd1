package api

import (
	"net/http"
	"time"
)

// HealthResponse represents the liveness check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse represents the readiness check response
type ReadyResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// handleHealth is a liveness check: 200 as long as the process is alive
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
	})
}

// handleReady reports whether the store answers queries
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	code := http.StatusOK
	status := "ready"

	if _, err := s.manager.ListDatabases(); err != nil {
		checks["store"] = "error: " + err.Error()
		code = http.StatusServiceUnavailable
		status = "not ready"
	} else {
		checks["store"] = "ok"
	}

	s.writeJSON(w, code, ReadyResponse{
		Status:    status,
		Timestamp: time.Now(),
		Checks:    checks,
	})
}
