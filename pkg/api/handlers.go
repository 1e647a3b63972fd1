package api

import (
	"net/http"
	"time"

	"github.com/kilatworks/omzet/pkg/deposit"
	"github.com/kilatworks/omzet/pkg/reservation"
	"github.com/kilatworks/omzet/pkg/storage"
	"github.com/kilatworks/omzet/pkg/types"
)

// Record handlers

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request, caller *types.User) {
	q := r.URL.Query()
	filter := storage.RecordFilter{
		Collection: types.Collection(q.Get("collection")),
		DatabaseID: q.Get("database_id"),
		Status:     types.RecordStatus(q.Get("status")),
		AssignedTo: q.Get("assigned_to"),
	}
	// Staff only see their own assignments.
	if !caller.Role.AtLeast(types.RoleAdmin) {
		filter.AssignedTo = caller.ID
	}
	recs, err := s.manager.ListRecords(filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request, caller *types.User) {
	rec, err := s.manager.GetRecord(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleSetRecordStatus(w http.ResponseWriter, r *http.Request, caller *types.User) {
	var body struct {
		WhatsappStatus types.WhatsappStatus `json:"whatsapp_status"`
		RespondStatus  types.RespondStatus  `json:"respond_status"`
	}
	if err := decode(r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	rec, err := s.manager.SetRecordStatus(caller.ID, r.PathValue("id"), body.WhatsappStatus, body.RespondStatus)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

// Database handlers

func (s *Server) handleListDatabases(w http.ResponseWriter, r *http.Request, caller *types.User) {
	dbs, err := s.manager.ListDatabases()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, dbs)
}

func (s *Server) handleCreateDatabase(w http.ResponseWriter, r *http.Request, caller *types.User) {
	var body struct {
		Name        string           `json:"name"`
		ProductID   string           `json:"product_id"`
		Collection  types.Collection `json:"collection"`
		AutoApprove *bool            `json:"auto_approve"`
	}
	if err := decode(r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	db, err := s.manager.CreateDatabase(body.Name, body.ProductID, body.Collection, body.AutoApprove)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, db)
}

func (s *Server) handleIngestRows(w http.ResponseWriter, r *http.Request, caller *types.User) {
	var body struct {
		Rows []map[string]string `json:"rows"`
	}
	if err := decode(r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	created, err := s.manager.IngestRows(r.PathValue("id"), body.Rows)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"created": created})
}

func (s *Server) handleSetAutoApprove(w http.ResponseWriter, r *http.Request, caller *types.User) {
	var body struct {
		AutoApprove *bool `json:"auto_approve"`
	}
	if err := decode(r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	db, err := s.manager.SetDatabaseAutoApprove(r.PathValue("id"), body.AutoApprove)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, db)
}

func (s *Server) handlePurgeDatabase(w http.ResponseWriter, r *http.Request, caller *types.User) {
	removed, err := s.manager.PurgeDatabase(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// Reservation handlers

func (s *Server) handleCreateReservation(w http.ResponseWriter, r *http.Request, caller *types.User) {
	var body struct {
		CustomerID        string `json:"customer_id"`
		CustomerName      string `json:"customer_name"`
		Phone             string `json:"phone"`
		ProductID         string `json:"product_id"`
		TargetStaff       string `json:"target_staff"`
		IsPermanent       bool   `json:"is_permanent"`
		GraceDaysOverride *int   `json:"grace_days_override"`
	}
	if err := decode(r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	// Staff may only reserve for themselves.
	if !caller.Role.AtLeast(types.RoleAdmin) {
		body.TargetStaff = caller.ID
		body.IsPermanent = false
		body.GraceDaysOverride = nil
	}
	res, err := s.manager.CreateReservation(reservation.CreateInput{
		RequestedBy:       caller.ID,
		RequesterRole:     caller.Role,
		CustomerID:        body.CustomerID,
		CustomerName:      body.CustomerName,
		Phone:             body.Phone,
		ProductID:         body.ProductID,
		TargetStaff:       body.TargetStaff,
		IsPermanent:       body.IsPermanent,
		GraceDaysOverride: body.GraceDaysOverride,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleListReservations(w http.ResponseWriter, r *http.Request, caller *types.User) {
	status := types.ReservationStatus(r.URL.Query().Get("status"))
	list, err := s.manager.ListReservations(status)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleApproveReservation(w http.ResponseWriter, r *http.Request, caller *types.User) {
	res, err := s.manager.ApproveReservation(r.PathValue("id"), caller.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleTogglePermanent(w http.ResponseWriter, r *http.Request, caller *types.User) {
	res, err := s.manager.ToggleReservationPermanent(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDeleteReservation(w http.ResponseWriter, r *http.Request, caller *types.User) {
	if err := s.manager.DeleteReservation(r.PathValue("id"), caller.ID); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request, caller *types.User) {
	expired, err := s.manager.SweepReservations()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"expired": expired})
}

// Assignment handlers

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request, caller *types.User) {
	var body struct {
		DatabaseID string `json:"database_id"`
		StaffID    string `json:"staff_id"`
		Count      int    `json:"count"`
	}
	if err := decode(r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	recs, err := s.manager.AssignRecords(body.DatabaseID, body.StaffID, body.Count)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"assigned": len(recs), "records": recs})
}

func (s *Server) handleProcessInvalid(w http.ResponseWriter, r *http.Request, caller *types.User) {
	var body struct {
		StaffID string `json:"staff_id"`
		Limit   int    `json:"limit"`
	}
	if err := decode(r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	// Staff process their own; admins may target anyone.
	if !caller.Role.AtLeast(types.RoleAdmin) || body.StaffID == "" {
		body.StaffID = caller.ID
	}
	result, err := s.manager.ProcessInvalid(body.StaffID, body.Limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

// Download request handlers

func (s *Server) handleSubmitRequest(w http.ResponseWriter, r *http.Request, caller *types.User) {
	var body struct {
		DatabaseID string `json:"database_id"`
		Count      int    `json:"count"`
	}
	if err := decode(r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	req, err := s.manager.SubmitDownloadRequest(body.DatabaseID, caller.ID, body.Count)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, req)
}

func (s *Server) handleListRequests(w http.ResponseWriter, r *http.Request, caller *types.User) {
	status := types.RequestStatus(r.URL.Query().Get("status"))
	list, err := s.manager.ListDownloadRequests(status)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleApproveRequest(w http.ResponseWriter, r *http.Request, caller *types.User) {
	req, err := s.manager.ApproveDownloadRequest(r.PathValue("id"), caller.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, req)
}

func (s *Server) handleRejectRequest(w http.ResponseWriter, r *http.Request, caller *types.User) {
	req, err := s.manager.RejectDownloadRequest(r.PathValue("id"), caller.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, req)
}

// Deposit handlers

func (s *Server) handleInsertDeposit(w http.ResponseWriter, r *http.Request, caller *types.User) {
	var in deposit.Input
	if err := decode(r, &in); err != nil {
		s.writeError(w, err)
		return
	}
	if !caller.Role.AtLeast(types.RoleAdmin) || in.StaffID == "" {
		in.StaffID = caller.ID
	}
	d, err := s.manager.InsertDeposit(caller.ID, in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, d)
}

func (s *Server) handleListDeposits(w http.ResponseWriter, r *http.Request, caller *types.User) {
	if date := r.URL.Query().Get("date"); date != "" {
		list, err := s.manager.ListDepositsByDate(date)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, list)
		return
	}
	list, err := s.manager.ListDeposits()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleUpdateDeposit(w http.ResponseWriter, r *http.Request, caller *types.User) {
	var in deposit.Input
	if err := decode(r, &in); err != nil {
		s.writeError(w, err)
		return
	}
	d, err := s.manager.UpdateDeposit(caller.ID, r.PathValue("id"), in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleDeleteDeposit(w http.ResponseWriter, r *http.Request, caller *types.User) {
	if err := s.manager.DeleteDeposit(caller.ID, r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Report handlers

func (s *Server) handleDailySummary(w http.ResponseWriter, r *http.Request, caller *types.User) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	rep, err := s.manager.DailyReport(date, r.URL.Query().Get("product_id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rep)
}

// Repair handlers

func (s *Server) handleDiagnose(w http.ResponseWriter, r *http.Request, caller *types.User) {
	findings, err := s.manager.Diagnose()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, findings)
}

func (s *Server) handleRepair(w http.ResponseWriter, r *http.Request, caller *types.User) {
	summary, err := s.manager.Repair()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

// Configuration handlers

func (s *Server) handleGetSchedulerConfig(w http.ResponseWriter, r *http.Request, caller *types.User) {
	cfg, err := s.manager.SchedulerConfig()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handlePutSchedulerConfig(w http.ResponseWriter, r *http.Request, caller *types.User) {
	var cfg types.SchedulerConfig
	if err := decode(r, &cfg); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.manager.UpdateSchedulerConfig(&cfg); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleGetCleanupConfig(w http.ResponseWriter, r *http.Request, caller *types.User) {
	cfg, err := s.manager.CleanupConfig()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handlePutCleanupConfig(w http.ResponseWriter, r *http.Request, caller *types.User) {
	var cfg types.CleanupConfig
	if err := decode(r, &cfg); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.manager.UpdateCleanupConfig(&cfg); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleGetAutoApproveConfig(w http.ResponseWriter, r *http.Request, caller *types.User) {
	cfg, err := s.manager.AutoApproveConfig()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handlePutAutoApproveConfig(w http.ResponseWriter, r *http.Request, caller *types.User) {
	var cfg types.AutoApproveConfig
	if err := decode(r, &cfg); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.manager.UpdateAutoApproveConfig(&cfg); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, cfg)
}

// User handlers

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request, caller *types.User) {
	var body struct {
		Name string     `json:"name"`
		Role types.Role `json:"role"`
	}
	if err := decode(r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	u, err := s.manager.CreateUser(body.Name, body.Role)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, u)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request, caller *types.User) {
	users, err := s.manager.ListUsers()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleSetBlockedPages(w http.ResponseWriter, r *http.Request, caller *types.User) {
	var body struct {
		Pages []string `json:"pages"`
	}
	if err := decode(r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	u, err := s.manager.SetBlockedPages(r.PathValue("id"), body.Pages)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request, caller *types.User) {
	if err := s.manager.DeleteUser(r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
