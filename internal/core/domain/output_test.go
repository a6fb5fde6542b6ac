package domain_test

import (
	"testing"

	"github.com/mwswap/mwswapd/internal/core/domain"
	"github.com/stretchr/testify/require"
)

func TestOutputConfirmations(t *testing.T) {
	tests := []struct {
		name   string
		height uint64
		tip    uint64
		want   uint64
	}{
		{"buried", 95, 100, 6},
		{"unconfirmed", 0, 100, 0},
		{"above tip", 150, 100, 0},
		{"at tip", 100, 100, 1},
	}

	for i := range tests {
		tt := tests[i]
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			o := domain.Output{Height: tt.height}
			require.Equal(t, tt.want, o.Confirmations(tt.tip))
		})
	}
}

func TestOutputIsSpendable(t *testing.T) {
	tests := []struct {
		name   string
		output domain.Output
		tip    uint64
		want   bool
	}{
		{
			name:   "spendable",
			output: domain.Output{Status: domain.OutputUnspent, Height: 10},
			tip:    19,
			want:   true,
		},
		{
			name:   "not enough confirmations",
			output: domain.Output{Status: domain.OutputUnspent, Height: 10},
			tip:    18,
		},
		{
			name:   "locked",
			output: domain.Output{Status: domain.OutputLocked, Height: 10, LockedBy: "x"},
			tip:    100,
		},
		{
			name:   "unconfirmed",
			output: domain.Output{Status: domain.OutputUnconfirmed},
			tip:    100,
		},
		{
			name: "immature coinbase",
			output: domain.Output{
				Status: domain.OutputUnspent, Height: 10, IsCoinbase: true,
				LockHeight: 10 + domain.CoinbaseMaturity,
			},
			tip: 100,
		},
		{
			name: "mature coinbase",
			output: domain.Output{
				Status: domain.OutputUnspent, Height: 10, IsCoinbase: true,
				LockHeight: 10 + domain.CoinbaseMaturity,
			},
			tip:  10 + domain.CoinbaseMaturity,
			want: true,
		},
	}

	for i := range tests {
		tt := tests[i]
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, tt.output.IsSpendable(tt.tip, 10))
		})
	}
}

func TestOutputLock(t *testing.T) {
	o := domain.Output{Status: domain.OutputUnspent, Height: 1}

	require.NoError(t, o.Lock("slate-a"))
	require.Equal(t, domain.OutputLocked, o.Status)
	require.Equal(t, "slate-a", o.LockedBy)

	require.ErrorIs(t, o.Lock("slate-b"), domain.ErrOutputNotSpendable)
	require.Equal(t, "slate-a", o.LockedBy)

	require.NoError(t, o.Unlock())
	require.Equal(t, domain.OutputUnspent, o.Status)
	require.Empty(t, o.LockedBy)
	require.ErrorIs(t, o.Unlock(), domain.ErrOutputNotLocked)
}

func TestOutputConfirm(t *testing.T) {
	o := domain.Output{Status: domain.OutputUnconfirmed, IsCoinbase: true}
	o.Confirm(50)
	require.Equal(t, domain.OutputUnspent, o.Status)
	require.Equal(t, uint64(50+domain.CoinbaseMaturity), o.LockHeight)

	o.Revert()
	require.Equal(t, domain.OutputUnconfirmed, o.Status)
	require.Zero(t, o.Height)
}
