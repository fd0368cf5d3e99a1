package stock

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCombine(t *testing.T) {
	tests := []struct {
		name     string
		local    int64
		external int64
		want     int64
	}{
		{name: "both positive", local: 3, external: 7, want: 10},
		{name: "negative local ignored", local: -5, external: 4, want: 4},
		{name: "negative external ignored", local: 2, external: -1, want: 2},
		{name: "both zero", local: 0, external: 0, want: 0},
		{name: "both negative", local: -2, external: -3, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Combine(tt.local, tt.external))
		})
	}
}

func TestCombine_NeverNegative(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 1000; i++ {
		l := r.Int63n(2000) - 1000
		e := r.Int63n(1000)
		got := Combine(l, e)
		require.GreaterOrEqual(t, got, int64(0))
		require.Equal(t, max(0, l)+e, got)
	}
}

func TestCombineLevels_UnmanagedPassesThrough(t *testing.T) {
	require.Equal(t, int64(-4), CombineLevels(Levels{ManageStock: false, Local: -4, External: 10}))
	require.Equal(t, int64(10), CombineLevels(Levels{ManageStock: true, Local: -4, External: 10}))
}

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name     string
		reported Status
		combined int64
		want     Status
	}{
		{name: "outofstock with stock becomes instock", reported: StatusOutOfStock, combined: 1, want: StatusInStock},
		{name: "outofstock without stock stays", reported: StatusOutOfStock, combined: 0, want: StatusOutOfStock},
		{name: "instock without stock becomes outofstock", reported: StatusInStock, combined: 0, want: StatusOutOfStock},
		{name: "instock with stock stays", reported: StatusInStock, combined: 5, want: StatusInStock},
		{name: "backorder never overridden with stock", reported: StatusOnBackorder, combined: 5, want: StatusOnBackorder},
		{name: "backorder never overridden without stock", reported: StatusOnBackorder, combined: 0, want: StatusOnBackorder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, DeriveStatus(tt.reported, tt.combined))
		})
	}
}

func TestDeriveStatus_Idempotent(t *testing.T) {
	for _, s := range []Status{StatusInStock, StatusOutOfStock, StatusOnBackorder} {
		for _, c := range []int64{-3, 0, 1, 50} {
			once := DeriveStatus(s, c)
			require.Equal(t, once, DeriveStatus(once, c), "status=%s combined=%d", s, c)
		}
	}
}

func TestDeriveLevelsStatus_Unmanaged(t *testing.T) {
	require.Equal(t, StatusInStock, DeriveLevelsStatus(StatusInStock, Levels{ManageStock: false}))
	require.Equal(t, StatusOutOfStock, DeriveLevelsStatus(StatusInStock, Levels{ManageStock: true}))
}

func TestParseStatus(t *testing.T) {
	s, ok := ParseStatus(" InStock ")
	require.True(t, ok)
	require.Equal(t, StatusInStock, s)

	_, ok = ParseStatus("available")
	require.False(t, ok)

	_, ok = ParseStatus("")
	require.False(t, ok)
}

func TestDefaultStatus(t *testing.T) {
	require.Equal(t, StatusOutOfStock, DefaultStatus("outofstock"))
	require.Equal(t, StatusInStock, DefaultStatus("instock"))
	require.Equal(t, StatusInStock, DefaultStatus("onbackorder"))
	require.Equal(t, StatusInStock, DefaultStatus("garbage"))
}
