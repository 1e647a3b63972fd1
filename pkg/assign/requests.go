package assign

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kilatworks/omzet/pkg/errdefs"
	"github.com/kilatworks/omzet/pkg/events"
	"github.com/kilatworks/omzet/pkg/storage"
	"github.com/kilatworks/omzet/pkg/types"
)

// Requests runs the download-request workflow on top of the engine
type Requests struct {
	store  storage.Store
	engine *Engine
	broker *events.Broker
}

// NewRequests creates the download-request workflow
func NewRequests(store storage.Store, engine *Engine, broker *events.Broker) *Requests {
	return &Requests{store: store, engine: engine, broker: broker}
}

// Submit records a staff's request for count records from a database.
// When the effective auto-approve decision is on, the request is assigned
// immediately and returned as completed; otherwise it queues as pending.
// The per-database flag is a tri-state: nil follows the global setting,
// true or false override it.
func (q *Requests) Submit(databaseID, staffID string, count int) (*types.DownloadRequest, error) {
	if count <= 0 {
		return nil, fmt.Errorf("count must be positive: %w", errdefs.ErrValidation)
	}
	db, err := q.store.GetDatabase(databaseID)
	if err != nil {
		return nil, err
	}

	req := &types.DownloadRequest{
		ID:         uuid.New().String(),
		DatabaseID: databaseID,
		StaffID:    staffID,
		Count:      count,
		Status:     types.RequestStatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	if err := q.store.CreateDownloadRequest(req); err != nil {
		return nil, err
	}
	q.publish(events.EventRequestSubmitted, staffID, req)

	auto, err := q.autoApprove(db)
	if err != nil {
		return nil, err
	}
	if !auto {
		return req, nil
	}
	return q.Approve(req.ID, "auto")
}

// Approve records the decision, assigns the requested records and
// completes the request. The request passes through approved while the
// assignment runs; too few eligible records reverts it to pending and
// returns an error. The assignment itself is all-or-nothing.
func (q *Requests) Approve(id, decidedBy string) (*types.DownloadRequest, error) {
	req, err := q.store.GetDownloadRequest(id)
	if err != nil {
		return nil, err
	}
	if req.Status != types.RequestStatusPending {
		return nil, fmt.Errorf("request %s is %s, not pending: %w", id, req.Status, errdefs.ErrConflict)
	}

	req.Status = types.RequestStatusApproved
	req.DecidedBy = decidedBy
	req.DecidedAt = time.Now().UTC()
	if err := q.store.UpdateDownloadRequest(req); err != nil {
		return nil, err
	}

	assigned, err := q.engine.Assign(req.DatabaseID, req.StaffID, req.Count)
	if err != nil {
		req.Status = types.RequestStatusPending
		req.DecidedBy = ""
		req.DecidedAt = time.Time{}
		if uerr := q.store.UpdateDownloadRequest(req); uerr != nil {
			return nil, fmt.Errorf("assignment failed and request %s stuck approved: %w", id, uerr)
		}
		return nil, err
	}

	req.Status = types.RequestStatusCompleted
	req.AssignedCount = len(assigned)
	if err := q.store.UpdateDownloadRequest(req); err != nil {
		return nil, err
	}
	q.publish(events.EventRequestApproved, decidedBy, req)
	return req, nil
}

// Reject marks a pending request rejected. No records move.
func (q *Requests) Reject(id, decidedBy string) (*types.DownloadRequest, error) {
	req, err := q.store.GetDownloadRequest(id)
	if err != nil {
		return nil, err
	}
	if req.Status != types.RequestStatusPending {
		return nil, fmt.Errorf("request %s is %s, not pending: %w", id, req.Status, errdefs.ErrConflict)
	}

	req.Status = types.RequestStatusRejected
	req.DecidedBy = decidedBy
	req.DecidedAt = time.Now().UTC()
	if err := q.store.UpdateDownloadRequest(req); err != nil {
		return nil, err
	}
	q.publish(events.EventRequestRejected, decidedBy, req)
	return req, nil
}

// Get retrieves a download request by ID
func (q *Requests) Get(id string) (*types.DownloadRequest, error) {
	return q.store.GetDownloadRequest(id)
}

// List returns download requests, optionally filtered by status
func (q *Requests) List(status types.RequestStatus) ([]*types.DownloadRequest, error) {
	return q.store.ListDownloadRequests(status)
}

func (q *Requests) autoApprove(db *types.Database) (bool, error) {
	cfg, err := q.store.GetAutoApproveConfig()
	if err != nil {
		return false, fmt.Errorf("failed to load auto-approve config: %w", err)
	}
	if !cfg.Enabled {
		return false, nil
	}
	if db.AutoApprove != nil && !*db.AutoApprove {
		return false, nil
	}
	return true, nil
}

func (q *Requests) publish(t events.EventType, actor string, req *types.DownloadRequest) {
	if q.broker == nil {
		return
	}
	q.broker.Publish(&events.Event{
		Type:    t,
		Actor:   actor,
		Subject: req.ID,
		Data: map[string]string{
			"database_id": req.DatabaseID,
			"staff_id":    req.StaffID,
			"count":       fmt.Sprintf("%d", req.Count),
			"status":      string(req.Status),
		},
	})
}
