package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Collection identifies one of the parallel record stores. All three share
// the same lifecycle semantics and are kept separate for administrative
// segmentation.
type Collection string

const (
	CollectionGeneral  Collection = "general"
	CollectionBonanza  Collection = "bonanza"
	CollectionMemberWD Collection = "memberwd"
)

// Collections returns every known collection, in a stable order.
func Collections() []Collection {
	return []Collection{CollectionGeneral, CollectionBonanza, CollectionMemberWD}
}

// RecordStatus represents the lifecycle state of an uploaded record
type RecordStatus string

const (
	RecordStatusAvailable RecordStatus = "available"
	RecordStatusAssigned  RecordStatus = "assigned"
	RecordStatusReserved  RecordStatus = "reserved"
	RecordStatusInvalid   RecordStatus = "invalid"
	RecordStatusArchived  RecordStatus = "archived"
)

// RecordStatuses returns every record status, in a stable order.
func RecordStatuses() []RecordStatus {
	return []RecordStatus{
		RecordStatusAvailable,
		RecordStatusAssigned,
		RecordStatusReserved,
		RecordStatusInvalid,
		RecordStatusArchived,
	}
}

// InvalidReason explains why a record was moved to the invalid state
type InvalidReason string

const (
	InvalidReasonReservedByOtherStaff InvalidReason = "reserved_by_other_staff"
	InvalidReasonMissingDatabase      InvalidReason = "missing_database"
)

// WhatsappStatus is the staff-reported WhatsApp reachability of a lead
type WhatsappStatus string

const (
	WhatsappAda     WhatsappStatus = "ada"
	WhatsappCeklis1 WhatsappStatus = "ceklis1"
	WhatsappTidak   WhatsappStatus = "tidak"
)

// RespondStatus is the staff-reported response state of a lead
type RespondStatus string

const (
	RespondYa    RespondStatus = "ya"
	RespondTidak RespondStatus = "tidak"
)

// Record is one row from an uploaded database. RowData is a mapping of
// column label to raw value; column labels carry no semantics, all
// matching against reservations is value-based.
type Record struct {
	ID             string            `json:"id"`
	Collection     Collection        `json:"collection"`
	DatabaseID     string            `json:"database_id"`
	ProductID      string            `json:"product_id"`
	RowNumber      int               `json:"row_number"`
	RowData        map[string]string `json:"row_data"`
	Status         RecordStatus      `json:"status"`
	AssignedTo     string            `json:"assigned_to,omitempty"`
	AssignedAt     time.Time         `json:"assigned_at,omitzero"`
	ReservedFor    string            `json:"reserved_for,omitempty"`
	InvalidReason  InvalidReason     `json:"invalid_reason,omitempty"`
	WhatsappStatus WhatsappStatus    `json:"whatsapp_status,omitempty"`
	RespondStatus  RespondStatus     `json:"respond_status,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// ReservationStatus represents the state of a reservation claim
type ReservationStatus string

const (
	ReservationStatusPending  ReservationStatus = "pending"
	ReservationStatusApproved ReservationStatus = "approved"
	ReservationStatusExpired  ReservationStatus = "expired"
)

// Reservation is an exclusive claim by one staff on one product for a
// customer identified by id and/or name. Either identifier slot may be
// empty; the normalized non-empty values form the reservation key set.
type Reservation struct {
	ID                string            `json:"id"`
	CustomerID        string            `json:"customer_id,omitempty"`
	CustomerName      string            `json:"customer_name,omitempty"`
	Phone             string            `json:"phone,omitempty"`
	ProductID         string            `json:"product_id"`
	StaffID           string            `json:"staff_id"`
	RequestedBy       string            `json:"requested_by"`
	Status            ReservationStatus `json:"status"`
	IsPermanent       bool              `json:"is_permanent"`
	GraceDaysOverride *int              `json:"grace_days_override,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	ApprovedAt        time.Time         `json:"approved_at,omitzero"`
}

// Database describes an uploaded source of records.
// AutoApprove is a tri-state: nil follows the global setting, true/false
// override it per database.
type Database struct {
	ID           string               `json:"id"`
	Name         string               `json:"name"`
	ProductID    string               `json:"product_id"`
	Collection   Collection           `json:"collection"`
	AutoApprove  *bool                `json:"auto_approve,omitempty"`
	TotalRecords int                  `json:"total_records"`
	StatusCounts map[RecordStatus]int `json:"status_counts,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// RequestStatus represents the state of a download request
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusApproved  RequestStatus = "approved"
	RequestStatusRejected  RequestStatus = "rejected"
	RequestStatusCompleted RequestStatus = "completed"
)

// DownloadRequest is a staff's request for N records from a database
type DownloadRequest struct {
	ID            string        `json:"id"`
	DatabaseID    string        `json:"database_id"`
	StaffID       string        `json:"staff_id"`
	Count         int           `json:"count"`
	Status        RequestStatus `json:"status"`
	AssignedCount int           `json:"assigned_count"`
	DecidedBy     string        `json:"decided_by,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	DecidedAt     time.Time     `json:"decided_at,omitzero"`
}

// CustomerType classifies a deposit as a customer's first deposit for a
// product (NDP) or a repeat (RDP). Derived, never input.
type CustomerType string

const (
	CustomerTypeNDP CustomerType = "NDP"
	CustomerTypeRDP CustomerType = "RDP"
)

// Deposit is one append-only omset entry. CustomerKey is the normalized
// form of CustomerID; Seq is the store-assigned insertion order used to
// break record-date ties during classification.
type Deposit struct {
	ID           string          `json:"id"`
	Seq          uint64          `json:"seq"`
	StaffID      string          `json:"staff_id"`
	ProductID    string          `json:"product_id"`
	CustomerID   string          `json:"customer_id"`
	CustomerKey  string          `json:"customer_key"`
	RecordDate   string          `json:"record_date"` // YYYY-MM-DD, operating timezone
	Nominal      decimal.Decimal `json:"nominal"`
	Notes        string          `json:"notes,omitempty"`
	CustomerType CustomerType    `json:"customer_type"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Role defines a caller's privilege level
type Role string

const (
	RoleStaff       Role = "staff"
	RoleAdmin       Role = "admin"
	RoleMasterAdmin Role = "master_admin"
)

var roleRank = map[Role]int{
	RoleStaff:       1,
	RoleAdmin:       2,
	RoleMasterAdmin: 3,
}

// AtLeast reports whether r carries at least the privileges of min.
// master_admin always satisfies admin checks.
func (r Role) AtLeast(min Role) bool {
	return roleRank[r] >= roleRank[min]
}

// User is a staff or admin account. BlockedPages is the explicit set of
// page tokens a master admin has revoked from an admin; it is consulted at
// the transport boundary only.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	BlockedPages []string  `json:"blocked_pages,omitempty"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// BreakdownRow holds one staff's or one product's daily metrics. NDP and
// RDP count unique (staff, customer) pairs; TotalForms counts raw deposit
// rows and is never deduplicated.
type BreakdownRow struct {
	NDP          int             `json:"ndp"`
	RDP          int             `json:"rdp"`
	TotalForms   int             `json:"total_forms"`
	NominalTotal decimal.Decimal `json:"nominal_total"`
}

// DailyReport is the per-day staff and product breakdown. For the
// unique-customer metrics the staff totals and product totals are equal by
// construction.
type DailyReport struct {
	Date        string                   `json:"date"`
	ProductID   string                   `json:"product_id,omitempty"`
	Staff       map[string]*BreakdownRow `json:"staff_breakdown"`
	Products    map[string]*BreakdownRow `json:"product_breakdown"`
	Totals      BreakdownRow             `json:"totals"`
	GeneratedAt time.Time                `json:"generated_at"`
}

// SchedulerConfig is the persisted scheduler configuration singleton
type SchedulerConfig struct {
	DailyReportAt    string `json:"daily_report_at" yaml:"daily_report_at"`       // "HH:MM" local clock time
	SweepAt          string `json:"sweep_at" yaml:"sweep_at"`                     // "HH:MM" local clock time
	HealthCheckHours int    `json:"health_check_hours" yaml:"health_check_hours"` // interval between health checks
	Timezone         string `json:"timezone" yaml:"timezone"`
}

// DefaultSchedulerConfig returns the scheduler defaults: report at 01:00,
// sweep at 02:00, health check every 6 hours, Asia/Jakarta clock.
func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		DailyReportAt:    "01:00",
		SweepAt:          "02:00",
		HealthCheckHours: 6,
		Timezone:         "Asia/Jakarta",
	}
}

// CleanupConfig is the persisted grace-period configuration singleton.
// ProductGraceDays overrides GraceDays per product.
type CleanupConfig struct {
	GraceDays        int            `json:"grace_days"`
	ProductGraceDays map[string]int `json:"product_grace_days,omitempty"`
}

// GraceDaysFor returns the effective grace window for a product.
func (c *CleanupConfig) GraceDaysFor(productID string) int {
	if d, ok := c.ProductGraceDays[productID]; ok {
		return d
	}
	return c.GraceDays
}

// AutoApproveConfig is the persisted global auto-approve singleton
type AutoApproveConfig struct {
	Enabled bool `json:"enabled"`
}
