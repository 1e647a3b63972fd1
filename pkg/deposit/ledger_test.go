package deposit

import (
	"testing"

	"github.com/kilatworks/omzet/pkg/errdefs"
	"github.com/kilatworks/omzet/pkg/storage"
	"github.com/kilatworks/omzet/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLedger(t *testing.T) *Ledger {
	t.Helper()
	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewLedger(store, nil)
}

func input(staff, product, customer, date string) Input {
	return Input{
		StaffID:    staff,
		ProductID:  product,
		CustomerID: customer,
		RecordDate: date,
		Nominal:    decimal.NewFromInt(100000),
	}
}

func TestInsertValidation(t *testing.T) {
	l := newLedger(t)

	tests := []struct {
		name string
		in   Input
	}{
		{name: "missing staff", in: Input{ProductID: "p1", CustomerID: "c", RecordDate: "2024-03-10"}},
		{name: "missing product", in: Input{StaffID: "s1", CustomerID: "c", RecordDate: "2024-03-10"}},
		{name: "blank customer", in: input("s1", "p1", "   ", "2024-03-10")},
		{name: "bad date", in: input("s1", "p1", "c", "10-03-2024")},
		{
			name: "negative nominal",
			in: Input{
				StaffID: "s1", ProductID: "p1", CustomerID: "c",
				RecordDate: "2024-03-10", Nominal: decimal.NewFromInt(-1),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Insert("s1", tt.in)
			assert.ErrorIs(t, err, errdefs.ErrValidation)
		})
	}
}

func TestInsertClassifiesImmediately(t *testing.T) {
	l := newLedger(t)

	d, err := l.Insert("s1", input("s1", "p1", "budi", "2024-03-10"))
	require.NoError(t, err)
	assert.Equal(t, types.CustomerTypeNDP, d.CustomerType)
	assert.Equal(t, "BUDI", d.CustomerKey)

	// A later-dated deposit for the same key stays RDP.
	d2, err := l.Insert("s1", input("s1", "p1", "Budi ", "2024-03-11"))
	require.NoError(t, err)
	assert.Equal(t, types.CustomerTypeRDP, d2.CustomerType)
}

func TestOutOfOrderInsertRetakesNDP(t *testing.T) {
	l := newLedger(t)

	later, err := l.Insert("s1", input("s1", "p1", "budi", "2024-03-12"))
	require.NoError(t, err)
	assert.Equal(t, types.CustomerTypeNDP, later.CustomerType)

	earlier, err := l.Insert("s1", input("s1", "p1", "budi", "2024-03-10"))
	require.NoError(t, err)
	assert.Equal(t, types.CustomerTypeNDP, earlier.CustomerType)

	// The previously-first deposit flipped to RDP.
	later, err = l.Get(later.ID)
	require.NoError(t, err)
	assert.Equal(t, types.CustomerTypeRDP, later.CustomerType)
}

func TestTambahanNeverBecomesNDP(t *testing.T) {
	l := newLedger(t)

	tam := input("s1", "p1", "budi", "2024-03-09")
	tam.Notes = "Tambahan"
	d1, err := l.Insert("s1", tam)
	require.NoError(t, err)
	assert.Equal(t, types.CustomerTypeRDP, d1.CustomerType)

	d2, err := l.Insert("s1", input("s1", "p1", "budi", "2024-03-11"))
	require.NoError(t, err)
	assert.Equal(t, types.CustomerTypeNDP, d2.CustomerType)

	// Deleting the NDP holder must not promote the tambahan row.
	require.NoError(t, l.Delete("s1", d2.ID))
	d1, err = l.Get(d1.ID)
	require.NoError(t, err)
	assert.Equal(t, types.CustomerTypeRDP, d1.CustomerType)
}

func TestDeleteNDPPromotesNext(t *testing.T) {
	l := newLedger(t)

	first, err := l.Insert("s1", input("s1", "p1", "budi", "2024-03-10"))
	require.NoError(t, err)
	second, err := l.Insert("s1", input("s1", "p1", "budi", "2024-03-11"))
	require.NoError(t, err)
	assert.Equal(t, types.CustomerTypeRDP, second.CustomerType)

	require.NoError(t, l.Delete("s1", first.ID))

	second, err = l.Get(second.ID)
	require.NoError(t, err)
	assert.Equal(t, types.CustomerTypeNDP, second.CustomerType)
}

func TestUpdateReclassifiesBothKeys(t *testing.T) {
	l := newLedger(t)

	budi1, err := l.Insert("s1", input("s1", "p1", "budi", "2024-03-10"))
	require.NoError(t, err)
	budi2, err := l.Insert("s1", input("s1", "p1", "budi", "2024-03-11"))
	require.NoError(t, err)
	sari, err := l.Insert("s1", input("s1", "p1", "sari", "2024-03-12"))
	require.NoError(t, err)
	assert.Equal(t, types.CustomerTypeNDP, sari.CustomerType)

	// Move budi's NDP deposit over to sari's key: budi2 takes over NDP for
	// budi, and the moved deposit (earlier date) takes NDP from sari.
	moved, err := l.Update("s1", budi1.ID, input("s1", "p1", "sari", "2024-03-10"))
	require.NoError(t, err)
	assert.Equal(t, types.CustomerTypeNDP, moved.CustomerType)

	budi2, err = l.Get(budi2.ID)
	require.NoError(t, err)
	assert.Equal(t, types.CustomerTypeNDP, budi2.CustomerType)

	sari, err = l.Get(sari.ID)
	require.NoError(t, err)
	assert.Equal(t, types.CustomerTypeRDP, sari.CustomerType)
}

func TestProductsClassifyIndependently(t *testing.T) {
	l := newLedger(t)

	p1, err := l.Insert("s1", input("s1", "p1", "budi", "2024-03-10"))
	require.NoError(t, err)
	p2, err := l.Insert("s1", input("s1", "p2", "budi", "2024-03-11"))
	require.NoError(t, err)

	assert.Equal(t, types.CustomerTypeNDP, p1.CustomerType)
	assert.Equal(t, types.CustomerTypeNDP, p2.CustomerType)
}

func TestListByKeyStableOrder(t *testing.T) {
	l := newLedger(t)

	_, err := l.Insert("s1", input("s1", "p1", "budi", "2024-03-12"))
	require.NoError(t, err)
	_, err = l.Insert("s1", input("s1", "p1", "budi", "2024-03-10"))
	require.NoError(t, err)
	_, err = l.Insert("s1", input("s1", "p1", "budi", "2024-03-10"))
	require.NoError(t, err)

	set, err := l.ListByKey("p1", " budi")
	require.NoError(t, err)
	require.Len(t, set, 3)
	assert.Equal(t, "2024-03-10", set[0].RecordDate)
	assert.Equal(t, "2024-03-10", set[1].RecordDate)
	assert.Less(t, set[0].Seq, set[1].Seq)
	assert.Equal(t, "2024-03-12", set[2].RecordDate)
}
