package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/kilatworks/omzet/pkg/errdefs"
	"github.com/kilatworks/omzet/pkg/events"
	"github.com/kilatworks/omzet/pkg/log"
	"github.com/kilatworks/omzet/pkg/metrics"
	"github.com/kilatworks/omzet/pkg/storage"
	"github.com/kilatworks/omzet/pkg/types"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Builder assembles the daily staff and product breakdowns
type Builder struct {
	store  storage.Store
	broker *events.Broker
	logger zerolog.Logger
}

// NewBuilder creates a new report builder
func NewBuilder(store storage.Store, broker *events.Broker) *Builder {
	return &Builder{
		store:  store,
		broker: broker,
		logger: log.WithComponent("report"),
	}
}

// BuildDaily aggregates one calendar date's deposits into per-staff and
// per-product breakdowns. productID narrows the input when non-empty.
//
// The unique-customer metrics (NDP, RDP) are deduplicated through one
// global set keyed by (staff, normalized customer): each pair lands in
// exactly one bucket per day, attributed to the product of the first
// deposit encountered for that pair. This keeps the staff totals and the
// product totals equal even when a customer deposits to several products
// under the same staff. TotalForms and NominalTotal count raw rows.
func (b *Builder) BuildDaily(date, productID string) (*types.DailyReport, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, fmt.Errorf("date %q is not YYYY-MM-DD: %w", date, errdefs.ErrValidation)
	}
	start := time.Now()

	deposits, err := b.store.ListDepositsByDate(date)
	if err != nil {
		return nil, fmt.Errorf("failed to list deposits: %w", err)
	}
	if productID != "" {
		filtered := deposits[:0]
		for _, d := range deposits {
			if d.ProductID == productID {
				filtered = append(filtered, d)
			}
		}
		deposits = filtered
	}
	sort.Slice(deposits, func(i, j int) bool { return deposits[i].Seq < deposits[j].Seq })

	rep := &types.DailyReport{
		Date:        date,
		ProductID:   productID,
		Staff:       make(map[string]*types.BreakdownRow),
		Products:    make(map[string]*types.BreakdownRow),
		GeneratedAt: time.Now().UTC(),
	}

	seen := make(map[string]bool)
	for _, d := range deposits {
		staffRow := row(rep.Staff, d.StaffID)
		productRow := row(rep.Products, d.ProductID)

		staffRow.TotalForms++
		productRow.TotalForms++
		rep.Totals.TotalForms++
		staffRow.NominalTotal = staffRow.NominalTotal.Add(d.Nominal)
		productRow.NominalTotal = productRow.NominalTotal.Add(d.Nominal)
		rep.Totals.NominalTotal = rep.Totals.NominalTotal.Add(d.Nominal)

		pair := d.StaffID + "|" + d.CustomerKey
		if seen[pair] {
			continue
		}
		seen[pair] = true
		if d.CustomerType == types.CustomerTypeNDP {
			staffRow.NDP++
			productRow.NDP++
			rep.Totals.NDP++
		} else {
			staffRow.RDP++
			productRow.RDP++
			rep.Totals.RDP++
		}
	}

	metrics.ReportBuildDuration.Observe(time.Since(start).Seconds())
	if err := b.verify(rep); err != nil {
		return rep, err
	}

	b.logger.Info().
		Str("date", date).
		Int("deposits", len(deposits)).
		Int("ndp", rep.Totals.NDP).
		Int("rdp", rep.Totals.RDP).
		Msg("daily report built")
	return rep, nil
}

// verify cross-foots the finished report. A staff/product mismatch on the
// unique-customer metrics means the deduplication broke; it is surfaced
// as an event rather than silently shipped.
func (b *Builder) verify(rep *types.DailyReport) error {
	staffNDP, staffRDP := sum(rep.Staff)
	productNDP, productRDP := sum(rep.Products)
	if staffNDP == productNDP && staffRDP == productRDP {
		return nil
	}

	metrics.InvariantViolations.Inc()
	if b.broker != nil {
		b.broker.Publish(&events.Event{
			Type:    events.EventInvariantViolated,
			Subject: rep.Date,
			Data: map[string]string{
				"check":       "daily_report_cross_foot",
				"staff_ndp":   fmt.Sprintf("%d", staffNDP),
				"product_ndp": fmt.Sprintf("%d", productNDP),
				"staff_rdp":   fmt.Sprintf("%d", staffRDP),
				"product_rdp": fmt.Sprintf("%d", productRDP),
			},
		})
	}
	return fmt.Errorf("report %s cross-foot mismatch: staff %d/%d vs product %d/%d: %w",
		rep.Date, staffNDP, staffRDP, productNDP, productRDP, errdefs.ErrInternal)
}

// Publish emits the finished report for the delivery adapter
func (b *Builder) Publish(rep *types.DailyReport) {
	if b.broker == nil {
		return
	}
	b.broker.Publish(&events.Event{
		Type:    events.EventDailyReport,
		Subject: rep.Date,
		Data: map[string]string{
			"ndp":           fmt.Sprintf("%d", rep.Totals.NDP),
			"rdp":           fmt.Sprintf("%d", rep.Totals.RDP),
			"total_forms":   fmt.Sprintf("%d", rep.Totals.TotalForms),
			"nominal_total": rep.Totals.NominalTotal.StringFixed(2),
		},
	})
}

func row(m map[string]*types.BreakdownRow, key string) *types.BreakdownRow {
	if m[key] == nil {
		m[key] = &types.BreakdownRow{NominalTotal: decimal.Zero}
	}
	return m[key]
}

func sum(m map[string]*types.BreakdownRow) (ndp, rdp int) {
	for _, r := range m {
		ndp += r.NDP
		rdp += r.RDP
	}
	return ndp, rdp
}
