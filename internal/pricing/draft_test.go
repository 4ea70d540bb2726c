package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestNormalizeQuantity(t *testing.T) {
	cases := map[string]string{
		"2,5":    "2.5",
		"-3":     "0",
		"abc":    "0",
		"1.2345": "1.23",
		"":       "0",
		"  4 ":   "4",
		"3.5m2":  "3.5",
		"1,2,3":  "1.2",
		".75":    "0.75",
		"2.005":  "2.01",
		"1e2":    "100",
	}
	for raw, want := range cases {
		got := NormalizeQuantity(raw)
		require.Truef(t, dec(want).Equal(got), "%q: want %s got %s", raw, want, got)
	}
}

func TestDraftUpsertReplacesByServiceID(t *testing.T) {
	var d Draft
	d.Upsert(fixedLine(5001, "3000"))
	d.Upsert(fixedLine(5002, "4000"))
	d.Upsert(LineItem{ServiceID: 5001, Description: "updated", UnitPrice: dec("3500")})

	require.Len(t, d.Lines, 2)
	require.Equal(t, int64(5001), d.Lines[0].ServiceID)
	require.Equal(t, "updated", d.Lines[0].Description)
	require.True(t, d.Lines[0].Quantity.Equal(decimal.NewFromInt(1)))
}

func TestDraftSelectGeneralKeepsSingleGeneralFirst(t *testing.T) {
	var d Draft
	d.Toggle(fixedLine(5001, "3000"))
	d.SelectGeneral(fixedLine(1, "20000"))
	d.SelectGeneral(fixedLine(2, "25000"))

	require.Len(t, d.Lines, 2)
	require.Equal(t, int64(2), d.Lines[0].ServiceID)
	require.Equal(t, int64(5001), d.Lines[1].ServiceID)
}

func TestDraftToggle(t *testing.T) {
	var d Draft
	require.True(t, d.Toggle(fixedLine(5001, "3000")))
	require.False(t, d.Toggle(fixedLine(5001, "3000")))
	require.Empty(t, d.Lines)
}

func TestDraftSetQuantity(t *testing.T) {
	var d Draft
	d.Upsert(fixedLine(1, "20000"))
	d.Upsert(LineItem{ServiceID: 5005, UnitPrice: dec("8000"), VariablePriced: true})
	require.True(t, d.Lines[1].Quantity.Equal(decimal.NewFromInt(1)))

	qty, err := d.SetQuantity(5005, "2,5")
	require.NoError(t, err)
	require.True(t, dec("2.5").Equal(qty))

	_, err = d.SetQuantity(1, "3")
	require.ErrorIs(t, err, ErrFixedQuantity)
	require.True(t, d.Lines[0].Quantity.Equal(decimal.NewFromInt(1)))

	_, err = d.SetQuantity(42, "3")
	require.ErrorIs(t, err, ErrLineNotFound)

	totals := d.Totals(TaxConfig{})
	requireAmount(t, "40000", totals.Gross)
}

func TestDraftAddCustomReplacesPrevious(t *testing.T) {
	var d Draft
	d.AddCustom(" Polish ", dec("10000"))
	d.AddCustom("Wax", dec("12000"))
	require.Len(t, d.Lines, 1)
	require.Equal(t, CustomServiceID, d.Lines[0].ServiceID)
	require.Equal(t, "Wax", d.Lines[0].Description)
	require.True(t, d.Lines[0].VariablePriced)
}

func TestDraftRemoveAndReset(t *testing.T) {
	d := Draft{DiscountPercent: dec("5")}
	d.Upsert(fixedLine(1, "20000"))
	d.Upsert(fixedLine(5001, "3000"))
	snapshot := d.Clone()

	require.True(t, d.Remove(1))
	require.False(t, d.Remove(1))
	require.Len(t, d.Lines, 1)
	require.Len(t, snapshot.Lines, 2)

	d.Reset()
	require.Empty(t, d.Lines)
	require.True(t, d.DiscountPercent.IsZero())
	require.True(t, d.Totals(TaxConfig{}).Equal(Totals{}))
}
