package deposit

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kilatworks/omzet/pkg/errdefs"
	"github.com/kilatworks/omzet/pkg/events"
	"github.com/kilatworks/omzet/pkg/ident"
	"github.com/kilatworks/omzet/pkg/log"
	"github.com/kilatworks/omzet/pkg/metrics"
	"github.com/kilatworks/omzet/pkg/storage"
	"github.com/kilatworks/omzet/pkg/types"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// Ledger is the append-only deposit store. Every mutation re-runs the
// classifier over the affected recompute key inside the same write
// transaction, so no deposit carries a stale classification across a
// transaction boundary.
type Ledger struct {
	store  storage.Store
	broker *events.Broker
}

// NewLedger creates a new deposit ledger
func NewLedger(store storage.Store, broker *events.Broker) *Ledger {
	return &Ledger{
		store:  store,
		broker: broker,
	}
}

// Input carries the caller-supplied fields of a deposit. CustomerType is
// never input; it is derived by the classifier.
type Input struct {
	StaffID    string          `json:"staff_id"`
	ProductID  string          `json:"product_id"`
	CustomerID string          `json:"customer_id"`
	RecordDate string          `json:"record_date"`
	Nominal    decimal.Decimal `json:"nominal"`
	Notes      string          `json:"notes"`
}

func (in *Input) validate() error {
	if in.StaffID == "" || in.ProductID == "" {
		return fmt.Errorf("staff id and product id are required: %w", errdefs.ErrValidation)
	}
	if ident.Normalize(in.CustomerID) == "" {
		return fmt.Errorf("customer id is required: %w", errdefs.ErrValidation)
	}
	if _, err := time.Parse(dateLayout, in.RecordDate); err != nil {
		return fmt.Errorf("record date %q is not YYYY-MM-DD: %w", in.RecordDate, errdefs.ErrValidation)
	}
	if in.Nominal.IsNegative() {
		return fmt.Errorf("nominal must not be negative: %w", errdefs.ErrValidation)
	}
	return nil
}

// Insert appends a deposit and reclassifies its recompute key.
func (l *Ledger) Insert(actor string, in Input) (*types.Deposit, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	d := &types.Deposit{
		ID:           uuid.New().String(),
		StaffID:      in.StaffID,
		ProductID:    in.ProductID,
		CustomerID:   in.CustomerID,
		CustomerKey:  ident.Normalize(in.CustomerID),
		RecordDate:   in.RecordDate,
		Nominal:      in.Nominal,
		Notes:        in.Notes,
		CustomerType: types.CustomerTypeRDP, // corrected by the classifier in the same transaction
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	flips, err := l.store.CreateDeposit(d, Classify)
	if err != nil {
		return nil, err
	}
	metrics.DepositsWritten.WithLabelValues("insert").Inc()
	l.afterWrite(actor, d, flips)

	return l.store.GetDeposit(d.ID)
}

// Update rewrites a deposit's caller-supplied fields. Edits that move the
// deposit between recompute keys (customer or product changes) reclassify
// both the old and the new key.
func (l *Ledger) Update(actor, id string, in Input) (*types.Deposit, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	d, err := l.store.GetDeposit(id)
	if err != nil {
		return nil, err
	}
	d.StaffID = in.StaffID
	d.ProductID = in.ProductID
	d.CustomerID = in.CustomerID
	d.CustomerKey = ident.Normalize(in.CustomerID)
	d.RecordDate = in.RecordDate
	d.Nominal = in.Nominal
	d.Notes = in.Notes

	flips, err := l.store.UpdateDeposit(d, Classify)
	if err != nil {
		return nil, err
	}
	metrics.DepositsWritten.WithLabelValues("update").Inc()
	l.afterWrite(actor, d, flips)

	return l.store.GetDeposit(id)
}

// Delete removes a deposit and reclassifies its recompute key, promoting
// the next eligible deposit to NDP when the removed one held it.
func (l *Ledger) Delete(actor, id string) error {
	d, err := l.store.GetDeposit(id)
	if err != nil {
		return err
	}
	flips, err := l.store.DeleteDeposit(id, Classify)
	if err != nil {
		return err
	}
	metrics.DepositsWritten.WithLabelValues("delete").Inc()
	l.afterWrite(actor, d, flips)
	return nil
}

// Get retrieves a deposit by ID
func (l *Ledger) Get(id string) (*types.Deposit, error) {
	return l.store.GetDeposit(id)
}

// List returns all deposits in stable order
func (l *Ledger) List() ([]*types.Deposit, error) {
	return l.store.ListDeposits()
}

// ListByDate returns all deposits recorded on a calendar date
func (l *Ledger) ListByDate(date string) ([]*types.Deposit, error) {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return nil, fmt.Errorf("date %q is not YYYY-MM-DD: %w", date, errdefs.ErrValidation)
	}
	return l.store.ListDepositsByDate(date)
}

// ListByKey returns the deposit set of one recompute key
func (l *Ledger) ListByKey(productID, customerID string) ([]*types.Deposit, error) {
	return l.store.ListDepositsByKey(productID, ident.Normalize(customerID))
}

func (l *Ledger) afterWrite(actor string, d *types.Deposit, flips []storage.Flip) {
	if l.broker != nil {
		l.broker.Publish(&events.Event{
			Type:    events.EventDepositWritten,
			Actor:   actor,
			Subject: d.ID,
			Data: map[string]string{
				"staff_id":    d.StaffID,
				"product_id":  d.ProductID,
				"customer":    d.CustomerKey,
				"record_date": d.RecordDate,
				"nominal":     d.Nominal.StringFixed(2),
			},
		})
	}

	for _, flip := range flips {
		metrics.ClassificationFlips.Inc()
		logger := log.WithProductID(flip.Deposit.ProductID)
		logger.Debug().
			Str("deposit_id", flip.Deposit.ID).
			Str("from", string(flip.From)).
			Str("to", string(flip.To)).
			Msg("classification flipped")
		if l.broker != nil {
			l.broker.Publish(&events.Event{
				Type:    events.EventClassificationFlipped,
				Actor:   actor,
				Subject: flip.Deposit.ID,
				Data: map[string]string{
					"product_id": flip.Deposit.ProductID,
					"customer":   flip.Deposit.CustomerKey,
					"from":       string(flip.From),
					"to":         string(flip.To),
				},
			})
		}
	}
}
