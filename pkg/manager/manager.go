package manager

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/kilatworks/omzet/pkg/assign"
	"github.com/kilatworks/omzet/pkg/deposit"
	"github.com/kilatworks/omzet/pkg/errdefs"
	"github.com/kilatworks/omzet/pkg/events"
	"github.com/kilatworks/omzet/pkg/ingest"
	"github.com/kilatworks/omzet/pkg/log"
	"github.com/kilatworks/omzet/pkg/metrics"
	"github.com/kilatworks/omzet/pkg/repair"
	"github.com/kilatworks/omzet/pkg/report"
	"github.com/kilatworks/omzet/pkg/reservation"
	"github.com/kilatworks/omzet/pkg/resolver"
	"github.com/kilatworks/omzet/pkg/scheduler"
	"github.com/kilatworks/omzet/pkg/storage"
	"github.com/kilatworks/omzet/pkg/types"
)

// Manager is the composition root: it owns the store, the event broker
// and every engine, and is the single entry point the API server and the
// CLI talk to.
type Manager struct {
	dataDir string

	store       storage.Store
	eventBroker *events.Broker
	resolver    *resolver.Resolver
	registry    *reservation.Registry
	engine      *assign.Engine
	requests    *assign.Requests
	ledger      *deposit.Ledger
	reporter    *report.Builder
	doctor      *repair.Doctor
	ingestor    *ingest.Ingestor
	scheduler   *scheduler.Scheduler
	collector   *metrics.Collector
	notifySub   events.Subscriber
}

// Config holds configuration for creating a Manager
type Config struct {
	DataDir string
}

// NewManager creates a new Manager instance
func NewManager(cfg *Config) (*Manager, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %v", err)
	}

	store, err := storage.NewBoltStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %v", err)
	}

	eventBroker := events.NewBroker()
	eventBroker.Start()

	res := resolver.NewResolver(store, eventBroker)
	registry := reservation.NewRegistry(store, res, eventBroker)
	engine := assign.NewEngine(store, registry, eventBroker)
	requests := assign.NewRequests(store, engine, eventBroker)
	ledger := deposit.NewLedger(store, eventBroker)
	reporter := report.NewBuilder(store, eventBroker)
	doctor := repair.NewDoctor(store, res, eventBroker)
	ingestor := ingest.NewIngestor(store)

	m := &Manager{
		dataDir:     cfg.DataDir,
		store:       store,
		eventBroker: eventBroker,
		resolver:    res,
		registry:    registry,
		engine:      engine,
		requests:    requests,
		ledger:      ledger,
		reporter:    reporter,
		doctor:      doctor,
		ingestor:    ingestor,
		collector:   metrics.NewCollector(store),
	}
	m.scheduler = scheduler.NewScheduler(store, scheduler.Jobs{
		DailyReport: m.runDailyReport,
		Sweep:       m.runSweep,
		HealthCheck: m.runHealthCheck,
	})
	return m, nil
}

// Start runs the background machinery: the scheduler, the metrics
// collector and the notification tap.
func (m *Manager) Start() error {
	if err := m.scheduler.Start(); err != nil {
		return err
	}
	m.collector.Start()
	m.notifySub = m.eventBroker.Subscribe()
	go m.notifyLoop(m.notifySub)
	return nil
}

// Shutdown stops background machinery and closes the store
func (m *Manager) Shutdown() error {
	m.scheduler.Stop()
	m.collector.Stop()
	if m.notifySub != nil {
		m.eventBroker.Unsubscribe(m.notifySub)
		m.notifySub = nil
	}
	m.eventBroker.Stop()
	return m.store.Close()
}

// notifyLoop renders every engine event in its wire envelope form for
// the notification collaborator. Delivery is a log line until a
// transport is attached; Unsubscribe closes the channel and ends the
// loop.
func (m *Manager) notifyLoop(sub events.Subscriber) {
	logger := log.WithComponent("notify")
	for ev := range sub {
		payload, err := ev.Envelope()
		if err != nil {
			logger.Error().Err(err).Str("type", string(ev.Type)).Msg("failed to render event envelope")
			continue
		}
		logger.Debug().RawJSON("event", payload).Msg("event emitted")
	}
}

// GetEventBroker returns the event broker for subscriptions
func (m *Manager) GetEventBroker() *events.Broker {
	return m.eventBroker
}

// Store exposes the underlying store for health checks
func (m *Manager) Store() storage.Store {
	return m.store
}

// Database operations

func (m *Manager) CreateDatabase(name, productID string, collection types.Collection, autoApprove *bool) (*types.Database, error) {
	return m.ingestor.CreateDatabase(name, productID, collection, autoApprove)
}

func (m *Manager) GetDatabase(id string) (*types.Database, error) {
	return m.store.GetDatabase(id)
}

func (m *Manager) ListDatabases() ([]*types.Database, error) {
	return m.store.ListDatabases()
}

// SetDatabaseAutoApprove updates a database's auto-approve tri-state
func (m *Manager) SetDatabaseAutoApprove(id string, autoApprove *bool) (*types.Database, error) {
	db, err := m.store.GetDatabase(id)
	if err != nil {
		return nil, err
	}
	db.AutoApprove = autoApprove
	db.UpdatedAt = time.Now().UTC()
	if err := m.store.UpdateDatabase(db); err != nil {
		return nil, err
	}
	return db, nil
}

func (m *Manager) IngestRows(databaseID string, rows []map[string]string) (int, error) {
	return m.ingestor.Append(databaseID, rows)
}

func (m *Manager) PurgeDatabase(databaseID string) (int, error) {
	return m.ingestor.Purge(databaseID)
}

// Record operations

func (m *Manager) GetRecord(id string) (*types.Record, error) {
	return m.store.GetRecord(id)
}

func (m *Manager) ListRecords(filter storage.RecordFilter) ([]*types.Record, error) {
	return m.store.ListRecords(filter)
}

// SetRecordStatus lets the assigned staff report lead reachability.
// Only the staff a record is assigned to may mutate it.
func (m *Manager) SetRecordStatus(staffID, recordID string, whatsapp types.WhatsappStatus, respond types.RespondStatus) (*types.Record, error) {
	rec, err := m.store.GetRecord(recordID)
	if err != nil {
		return nil, err
	}
	if rec.AssignedTo != staffID {
		return nil, fmt.Errorf("record %s is not assigned to %s: %w", recordID, staffID, errdefs.ErrPermission)
	}
	if rec.Status != types.RecordStatusAssigned {
		return nil, fmt.Errorf("record %s is %s, not assigned: %w", recordID, rec.Status, errdefs.ErrConflict)
	}
	if whatsapp != "" {
		rec.WhatsappStatus = whatsapp
	}
	if respond != "" {
		rec.RespondStatus = respond
	}
	rec.UpdatedAt = time.Now().UTC()
	if err := m.store.UpdateRecord(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Reservation operations

func (m *Manager) CreateReservation(in reservation.CreateInput) (*types.Reservation, error) {
	return m.registry.Create(in)
}

func (m *Manager) ApproveReservation(id, approvedBy string) (*types.Reservation, error) {
	return m.registry.Approve(id, approvedBy)
}

func (m *Manager) DeleteReservation(id, deletedBy string) error {
	return m.registry.Delete(id, deletedBy)
}

func (m *Manager) ToggleReservationPermanent(id string) (*types.Reservation, error) {
	return m.registry.TogglePermanent(id)
}

func (m *Manager) GetReservation(id string) (*types.Reservation, error) {
	return m.registry.Get(id)
}

func (m *Manager) ListReservations(status types.ReservationStatus) ([]*types.Reservation, error) {
	return m.registry.List(status)
}

// SweepReservations expires overdue reservations immediately
func (m *Manager) SweepReservations() (int, error) {
	return m.registry.Sweep(context.Background(), time.Now())
}

// Assignment operations

func (m *Manager) AssignRecords(databaseID, staffID string, count int) ([]*types.Record, error) {
	return m.engine.Assign(databaseID, staffID, count)
}

func (m *Manager) ProcessInvalid(staffID string, limit int) (*assign.ProcessInvalidResult, error) {
	return m.engine.ProcessInvalid(staffID, limit)
}

func (m *Manager) SubmitDownloadRequest(databaseID, staffID string, count int) (*types.DownloadRequest, error) {
	return m.requests.Submit(databaseID, staffID, count)
}

func (m *Manager) ApproveDownloadRequest(id, decidedBy string) (*types.DownloadRequest, error) {
	return m.requests.Approve(id, decidedBy)
}

func (m *Manager) RejectDownloadRequest(id, decidedBy string) (*types.DownloadRequest, error) {
	return m.requests.Reject(id, decidedBy)
}

func (m *Manager) ListDownloadRequests(status types.RequestStatus) ([]*types.DownloadRequest, error) {
	return m.requests.List(status)
}

// Deposit operations

func (m *Manager) InsertDeposit(actor string, in deposit.Input) (*types.Deposit, error) {
	return m.ledger.Insert(actor, in)
}

func (m *Manager) UpdateDeposit(actor, id string, in deposit.Input) (*types.Deposit, error) {
	return m.ledger.Update(actor, id, in)
}

func (m *Manager) DeleteDeposit(actor, id string) error {
	return m.ledger.Delete(actor, id)
}

func (m *Manager) GetDeposit(id string) (*types.Deposit, error) {
	return m.ledger.Get(id)
}

func (m *Manager) ListDeposits() ([]*types.Deposit, error) {
	return m.ledger.List()
}

func (m *Manager) ListDepositsByDate(date string) ([]*types.Deposit, error) {
	return m.ledger.ListByDate(date)
}

// Report operations

func (m *Manager) DailyReport(date, productID string) (*types.DailyReport, error) {
	return m.reporter.BuildDaily(date, productID)
}

// Repair operations

func (m *Manager) Diagnose() (*repair.Findings, error) {
	return m.doctor.Diagnose()
}

func (m *Manager) Repair() (*repair.Summary, error) {
	return m.doctor.Repair()
}

// User operations

func (m *Manager) CreateUser(name string, role types.Role) (*types.User, error) {
	if name == "" {
		return nil, fmt.Errorf("name is required: %w", errdefs.ErrValidation)
	}
	if !role.AtLeast(types.RoleStaff) {
		return nil, fmt.Errorf("unknown role %q: %w", role, errdefs.ErrValidation)
	}
	u := &types.User{
		ID:        uuid.New().String(),
		Name:      name,
		Role:      role,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if err := m.store.CreateUser(u); err != nil {
		return nil, err
	}
	return u, nil
}

func (m *Manager) GetUser(id string) (*types.User, error) {
	return m.store.GetUser(id)
}

func (m *Manager) ListUsers() ([]*types.User, error) {
	return m.store.ListUsers()
}

// SetBlockedPages replaces an admin's revoked page tokens
func (m *Manager) SetBlockedPages(id string, pages []string) (*types.User, error) {
	u, err := m.store.GetUser(id)
	if err != nil {
		return nil, err
	}
	u.BlockedPages = pages
	if err := m.store.UpdateUser(u); err != nil {
		return nil, err
	}
	return u, nil
}

func (m *Manager) DeleteUser(id string) error {
	return m.store.DeleteUser(id)
}

// Configuration operations

func (m *Manager) SchedulerConfig() (*types.SchedulerConfig, error) {
	return m.scheduler.Config()
}

func (m *Manager) UpdateSchedulerConfig(cfg *types.SchedulerConfig) error {
	return m.scheduler.Update(cfg)
}

func (m *Manager) CleanupConfig() (*types.CleanupConfig, error) {
	return m.store.GetCleanupConfig()
}

func (m *Manager) UpdateCleanupConfig(cfg *types.CleanupConfig) error {
	if cfg.GraceDays <= 0 {
		return fmt.Errorf("grace days must be positive: %w", errdefs.ErrValidation)
	}
	return m.store.PutCleanupConfig(cfg)
}

func (m *Manager) AutoApproveConfig() (*types.AutoApproveConfig, error) {
	return m.store.GetAutoApproveConfig()
}

func (m *Manager) UpdateAutoApproveConfig(cfg *types.AutoApproveConfig) error {
	return m.store.PutAutoApproveConfig(cfg)
}

// Scheduled jobs

func (m *Manager) runDailyReport(ctx context.Context, date string) error {
	rep, err := m.reporter.BuildDaily(date, "")
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.reporter.Publish(rep)
	return nil
}

func (m *Manager) runSweep(ctx context.Context, now time.Time) (int, error) {
	return m.registry.Sweep(ctx, now)
}

func (m *Manager) runHealthCheck(ctx context.Context) error {
	findings, err := m.doctor.Diagnose()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if findings.Total() == 0 {
		return nil
	}
	metrics.InvariantViolations.Add(float64(findings.Total()))
	m.eventBroker.Publish(&events.Event{
		Type: events.EventInvariantViolated,
		Data: map[string]string{
			"check":    "health_check",
			"symptoms": fmt.Sprintf("%d", findings.Total()),
		},
	})
	logger := log.WithComponent("manager")
	logger.Warn().
		Int("symptoms", findings.Total()).
		Msg("health check found inconsistencies")
	return nil
}
