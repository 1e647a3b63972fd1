package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/kilatworks/omzet/pkg/errdefs"
	"github.com/kilatworks/omzet/pkg/log"
	"github.com/kilatworks/omzet/pkg/manager"
	"github.com/kilatworks/omzet/pkg/metrics"
	"github.com/kilatworks/omzet/pkg/types"
	"github.com/rs/zerolog"
)

// userHeader carries the authenticated user's ID. Authentication itself
// is done upstream by the auth collaborator; the engine trusts the
// header.
const userHeader = "X-Omzet-User"

// Server exposes the engine over JSON/REST
type Server struct {
	manager *manager.Manager
	mux     *http.ServeMux
	http    *http.Server
	logger  zerolog.Logger
}

// NewServer creates a new API server
func NewServer(mgr *manager.Manager) *Server {
	s := &Server{
		manager: mgr,
		mux:     http.NewServeMux(),
		logger:  log.WithComponent("api"),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	// Liveness, readiness and metrics carry no identity.
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /ready", s.handleReady)
	s.mux.Handle("GET /metrics", metrics.Handler())

	// Staff surface
	s.handle("GET /records", types.RoleStaff, s.handleListRecords)
	s.handle("GET /records/{id}", types.RoleStaff, s.handleGetRecord)
	s.handle("PATCH /records/{id}/status", types.RoleStaff, s.handleSetRecordStatus)
	s.handle("GET /databases", types.RoleStaff, s.handleListDatabases)
	s.handle("POST /reserved-members", types.RoleStaff, s.handleCreateReservation)
	s.handle("GET /reserved-members", types.RoleStaff, s.handleListReservations)
	s.handle("POST /download-requests", types.RoleStaff, s.handleSubmitRequest)
	s.handle("GET /download-requests", types.RoleStaff, s.handleListRequests)
	s.handle("POST /deposits", types.RoleStaff, s.handleInsertDeposit)
	s.handle("GET /deposits", types.RoleStaff, s.handleListDeposits)
	s.handle("PUT /deposits/{id}", types.RoleStaff, s.handleUpdateDeposit)
	s.handle("DELETE /deposits/{id}", types.RoleStaff, s.handleDeleteDeposit)
	s.handle("GET /daily-summary", types.RoleStaff, s.handleDailySummary)
	s.handle("POST /process-invalid", types.RoleStaff, s.handleProcessInvalid)

	// Admin surface
	s.handle("POST /databases", types.RoleAdmin, s.handleCreateDatabase)
	s.handle("POST /databases/{id}/rows", types.RoleAdmin, s.handleIngestRows)
	s.handle("PATCH /databases/{id}/auto-approve", types.RoleAdmin, s.handleSetAutoApprove)
	s.handle("POST /assign", types.RoleAdmin, s.handleAssign)
	s.handle("POST /reserved-members/{id}/approve", types.RoleAdmin, s.handleApproveReservation)
	s.handle("POST /reserved-members/{id}/toggle-permanent", types.RoleAdmin, s.handleTogglePermanent)
	s.handle("DELETE /reserved-members/{id}", types.RoleAdmin, s.handleDeleteReservation)
	s.handle("POST /download-requests/{id}/approve", types.RoleAdmin, s.handleApproveRequest)
	s.handle("POST /download-requests/{id}/reject", types.RoleAdmin, s.handleRejectRequest)
	s.handle("POST /sweep", types.RoleAdmin, s.handleSweep)
	s.handle("GET /repair", types.RoleAdmin, s.handleDiagnose)
	s.handle("POST /repair", types.RoleAdmin, s.handleRepair)
	s.handle("GET /scheduled-reports/config", types.RoleAdmin, s.handleGetSchedulerConfig)
	s.handle("PUT /scheduled-reports/config", types.RoleAdmin, s.handlePutSchedulerConfig)
	s.handle("GET /cleanup/config", types.RoleAdmin, s.handleGetCleanupConfig)
	s.handle("PUT /cleanup/config", types.RoleAdmin, s.handlePutCleanupConfig)
	s.handle("GET /auto-approve/config", types.RoleAdmin, s.handleGetAutoApproveConfig)
	s.handle("PUT /auto-approve/config", types.RoleAdmin, s.handlePutAutoApproveConfig)

	// Master admin surface
	s.handle("DELETE /databases/{id}", types.RoleMasterAdmin, s.handlePurgeDatabase)
	s.handle("POST /users", types.RoleMasterAdmin, s.handleCreateUser)
	s.handle("GET /users", types.RoleAdmin, s.handleListUsers)
	s.handle("PUT /users/{id}/blocked-pages", types.RoleMasterAdmin, s.handleSetBlockedPages)
	s.handle("DELETE /users/{id}", types.RoleMasterAdmin, s.handleDeleteUser)
}

// Start starts the API server
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.logger.Info().Str("addr", addr).Msg("api server listening")
	return s.http.ListenAndServe()
}

// Shutdown gracefully stops the API server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// handler is an API handler with the caller already resolved
type handler func(w http.ResponseWriter, r *http.Request, caller *types.User)

// handle registers a route behind identity resolution, role gating,
// blocked-page gating and instrumentation.
func (s *Server) handle(pattern string, minRole types.Role, h handler) {
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		status := http.StatusOK

		caller, err := s.caller(r)
		switch {
		case err != nil:
			status = s.writeError(w, err)
		case !caller.Role.AtLeast(minRole):
			status = s.writeError(w, errdefs.ErrPermission)
		case blocked(caller, r.URL.Path):
			status = s.writeError(w, errdefs.ErrPermission)
		default:
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			h(sw, r, caller)
			status = sw.status
		}

		metrics.APIRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(status)).Inc()
		metrics.APIRequestDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) caller(r *http.Request) (*types.User, error) {
	id := r.Header.Get(userHeader)
	if id == "" {
		return nil, errdefs.ErrPermission
	}
	u, err := s.manager.GetUser(id)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return nil, errdefs.ErrPermission
		}
		return nil, err
	}
	if !u.Active {
		return nil, errdefs.ErrPermission
	}
	return u, nil
}

// blocked reports whether a master admin revoked the page this path
// belongs to from the caller. Page tokens are the first path segment.
func blocked(u *types.User, path string) bool {
	page := path
	for len(page) > 0 && page[0] == '/' {
		page = page[1:]
	}
	for i := 0; i < len(page); i++ {
		if page[i] == '/' {
			page = page[:i]
			break
		}
	}
	for _, p := range u.BlockedPages {
		if p == page {
			return true
		}
	}
	return false
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the engine's error kinds onto HTTP statuses and
// returns the status written.
func (s *Server) writeError(w http.ResponseWriter, err error) int {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, errdefs.ErrValidation):
		code = http.StatusBadRequest
	case errors.Is(err, errdefs.ErrPermission):
		code = http.StatusForbidden
	case errors.Is(err, errdefs.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, errdefs.ErrConflict):
		code = http.StatusConflict
	case errors.Is(err, errdefs.ErrExhausted):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, errdefs.ErrDependency):
		code = http.StatusBadGateway
	}
	s.writeJSON(w, code, map[string]string{"error": err.Error()})
	return code
}

func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errdefs.ErrValidation
	}
	return nil
}
