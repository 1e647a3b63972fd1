package metrics

import (
	"time"

	"github.com/kilatworks/omzet/pkg/storage"
	"github.com/kilatworks/omzet/pkg/types"
)

// Collector periodically refreshes the gauge metrics from storage
type Collector struct {
	store  storage.Store
	stopCh chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(store storage.Store) *Collector {
	return &Collector{
		store:  store,
		stopCh: make(chan struct{}),
	}
}

// Start begins collecting metrics
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		// Collect immediately on start
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectRecordMetrics()
	c.collectReservationMetrics()
	c.collectDepositMetrics()
}

func (c *Collector) collectRecordMetrics() {
	records, err := c.store.ListRecords(storage.RecordFilter{})
	if err != nil {
		return
	}

	counts := make(map[types.Collection]map[types.RecordStatus]int)
	for _, rec := range records {
		if counts[rec.Collection] == nil {
			counts[rec.Collection] = make(map[types.RecordStatus]int)
		}
		counts[rec.Collection][rec.Status]++
	}

	// Reset so emptied (collection, status) pairs drop to zero
	for _, coll := range types.Collections() {
		for _, status := range types.RecordStatuses() {
			RecordsTotal.WithLabelValues(string(coll), string(status)).
				Set(float64(counts[coll][status]))
		}
	}
}

func (c *Collector) collectReservationMetrics() {
	for _, status := range []types.ReservationStatus{
		types.ReservationStatusPending,
		types.ReservationStatusApproved,
		types.ReservationStatusExpired,
	} {
		reservations, err := c.store.ListReservations(status)
		if err != nil {
			return
		}
		ReservationsTotal.WithLabelValues(string(status)).Set(float64(len(reservations)))
	}
}

func (c *Collector) collectDepositMetrics() {
	deposits, err := c.store.ListDeposits()
	if err != nil {
		return
	}
	DepositsTotal.Set(float64(len(deposits)))
}
