package report

import (
	"testing"

	"github.com/kilatworks/omzet/pkg/deposit"
	"github.com/kilatworks/omzet/pkg/errdefs"
	"github.com/kilatworks/omzet/pkg/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBuilder(t *testing.T) (*Builder, *deposit.Ledger) {
	t.Helper()
	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewBuilder(store, nil), deposit.NewLedger(store, nil)
}

func write(t *testing.T, l *deposit.Ledger, staff, product, customer, date string, nominal int64) {
	t.Helper()
	_, err := l.Insert(staff, deposit.Input{
		StaffID:    staff,
		ProductID:  product,
		CustomerID: customer,
		RecordDate: date,
		Nominal:    decimal.NewFromInt(nominal),
	})
	require.NoError(t, err)
}

func TestBuildDailyRejectsBadDate(t *testing.T) {
	b, _ := newBuilder(t)
	_, err := b.BuildDaily("03-10-2024", "")
	assert.ErrorIs(t, err, errdefs.ErrValidation)
}

func TestBuildDailyBasicBreakdown(t *testing.T) {
	b, l := newBuilder(t)

	write(t, l, "s1", "p1", "budi", "2024-03-10", 100)
	write(t, l, "s1", "p1", "budi", "2024-03-10", 50)
	write(t, l, "s2", "p1", "sari", "2024-03-10", 200)
	write(t, l, "s1", "p1", "other", "2024-03-09", 999) // different day

	rep, err := b.BuildDaily("2024-03-10", "")
	require.NoError(t, err)

	// budi's first deposit is NDP, the repeat row dedups into the same
	// (staff, customer) pair.
	assert.Equal(t, 1, rep.Staff["s1"].NDP)
	assert.Equal(t, 0, rep.Staff["s1"].RDP)
	assert.Equal(t, 2, rep.Staff["s1"].TotalForms)
	assert.True(t, rep.Staff["s1"].NominalTotal.Equal(decimal.NewFromInt(150)))

	assert.Equal(t, 1, rep.Staff["s2"].NDP)
	assert.Equal(t, 2, rep.Totals.NDP)
	assert.Equal(t, 3, rep.Totals.TotalForms)
	assert.True(t, rep.Totals.NominalTotal.Equal(decimal.NewFromInt(350)))
}

func TestCrossProductCustomerCountsOnce(t *testing.T) {
	b, l := newBuilder(t)

	// One staff, one customer, two products on the same day. Per-product
	// classification makes both deposits NDP, but the day's unique count
	// for the pair must be 1, attributed to the first product seen.
	write(t, l, "s1", "p1", "budi", "2024-03-10", 100)
	write(t, l, "s1", "p2", "budi", "2024-03-10", 200)

	rep, err := b.BuildDaily("2024-03-10", "")
	require.NoError(t, err)

	assert.Equal(t, 1, rep.Staff["s1"].NDP)
	assert.Equal(t, 1, rep.Products["p1"].NDP)
	assert.Equal(t, 0, rep.Products["p2"].NDP)
	assert.Equal(t, 0, rep.Products["p2"].RDP)

	// Forms and nominal are raw per product.
	assert.Equal(t, 1, rep.Products["p2"].TotalForms)
	assert.True(t, rep.Products["p2"].NominalTotal.Equal(decimal.NewFromInt(200)))

	staffNDP := 0
	for _, row := range rep.Staff {
		staffNDP += row.NDP
	}
	productNDP := 0
	for _, row := range rep.Products {
		productNDP += row.NDP
	}
	assert.Equal(t, staffNDP, productNDP)
}

func TestStaffAndProductTotalsAlwaysBalance(t *testing.T) {
	b, l := newBuilder(t)

	// A mix of repeats, tambahan rows and cross-product customers.
	write(t, l, "s1", "p1", "budi", "2024-03-01", 10) // prior NDP
	write(t, l, "s1", "p1", "budi", "2024-03-10", 20) // RDP today
	write(t, l, "s1", "p2", "budi", "2024-03-10", 30) // NDP on p2, same pair
	write(t, l, "s2", "p1", "sari", "2024-03-10", 40) // NDP
	write(t, l, "s2", "p2", "sari", "2024-03-10", 50) // NDP on p2, same pair
	write(t, l, "s3", "p1", "dewi", "2024-03-10", 60) // NDP

	rep, err := b.BuildDaily("2024-03-10", "")
	require.NoError(t, err)

	var staffNDP, staffRDP, productNDP, productRDP int
	for _, row := range rep.Staff {
		staffNDP += row.NDP
		staffRDP += row.RDP
	}
	for _, row := range rep.Products {
		productNDP += row.NDP
		productRDP += row.RDP
	}
	assert.Equal(t, staffNDP, productNDP)
	assert.Equal(t, staffRDP, productRDP)

	// Each pair lands in exactly one bucket.
	assert.Equal(t, 3, staffNDP+staffRDP)
	assert.GreaterOrEqual(t, rep.Totals.TotalForms, staffNDP+staffRDP)
}

func TestBuildDailyProductFilter(t *testing.T) {
	b, l := newBuilder(t)

	write(t, l, "s1", "p1", "budi", "2024-03-10", 100)
	write(t, l, "s1", "p2", "sari", "2024-03-10", 200)

	rep, err := b.BuildDaily("2024-03-10", "p1")
	require.NoError(t, err)

	assert.Equal(t, 1, rep.Totals.TotalForms)
	assert.Contains(t, rep.Products, "p1")
	assert.NotContains(t, rep.Products, "p2")
}

func TestBuildDailyEmptyDay(t *testing.T) {
	b, _ := newBuilder(t)

	rep, err := b.BuildDaily("2024-03-10", "")
	require.NoError(t, err)
	assert.Empty(t, rep.Staff)
	assert.Empty(t, rep.Products)
	assert.Zero(t, rep.Totals.TotalForms)
}
