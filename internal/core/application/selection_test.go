package application

import (
	"fmt"
	"testing"

	"github.com/mwswap/mwswapd/internal/core/domain"
	"github.com/stretchr/testify/require"
)

func TestCalculateFee(t *testing.T) {
	tests := []struct {
		inputs, outputs, kernels int
		want                     uint64
	}{
		{1, 2, 1, 8 * DefaultBaseFee},
		{1, 1, 1, 4 * DefaultBaseFee},
		{10, 1, 1, DefaultBaseFee},
		{3, 3, 1, 10 * DefaultBaseFee},
	}
	for _, tt := range tests {
		got := calculateFee(DefaultBaseFee, tt.inputs, tt.outputs, tt.kernels)
		require.Equal(t, tt.want, got, "%d in %d out", tt.inputs, tt.outputs)
	}
}

func TestPickOutputs(t *testing.T) {
	candidates := outputsWithValues(1, 5, 10, 20, 50)

	tests := []struct {
		name       string
		target     uint64
		maxOutputs int
		useAll     bool
		want       []uint64
		wantErr    error
	}{
		{"single covering", 8, 10, false, []uint64{10}, nil},
		{"smallest single exact", 20, 10, false, []uint64{20}, nil},
		{"largest first", 65, 10, false, []uint64{50, 20}, nil},
		{"last swapped for smaller", 56, 10, false, []uint64{50, 10}, nil},
		{"bounded", 80, 2, false, nil, domain.ErrInsufficientFunds},
		{"all", 3, 10, true, []uint64{50, 20, 10, 5, 1}, nil},
		{"not enough", 100, 10, false, nil, domain.ErrInsufficientFunds},
	}
	for i := range tests {
		tt := tests[i]
		t.Run(tt.name, func(t *testing.T) {
			got, total, err := pickOutputs(candidates, tt.target, tt.maxOutputs, tt.useAll)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, values(got))
			require.GreaterOrEqual(t, total, tt.target)
		})
	}
}

func TestSelectCoins(t *testing.T) {
	policy := FeePolicy{}.resolve(WalletConfig{}.withDefaults())
	grin := uint64(1000000000)

	sel, err := selectCoins(outputsWithValues(3*grin), grin, policy)
	require.NoError(t, err)
	require.Len(t, sel.inputs, 1)
	require.Equal(t, 8*uint64(DefaultBaseFee), sel.fee)
	require.Equal(t, 3*grin-grin-sel.fee, sel.change)

	// a second input lowers the fee estimate
	sel, err = selectCoins(outputsWithValues(grin, grin), grin+grin/2, policy)
	require.NoError(t, err)
	require.Len(t, sel.inputs, 2)
	require.Equal(t, 7*uint64(DefaultBaseFee), sel.fee)

	_, err = selectCoins(outputsWithValues(grin), grin, policy)
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
}

func TestEligibleOutputs(t *testing.T) {
	outputs := []domain.Output{
		{Commit: "a", Value: 1, Status: domain.OutputUnspent, Height: 1},
		{Commit: "b", Value: 1, Status: domain.OutputUnspent, Height: 95},
		{Commit: "c", Value: 1, Status: domain.OutputLocked, Height: 1, LockedBy: "x"},
		{Commit: "d", Value: 1, Status: domain.OutputUnconfirmed},
		{Commit: "e", Value: 1, Status: domain.OutputUnspent, Height: 1, IsCoinbase: true, LockHeight: 1441},
	}
	got := eligibleOutputs(outputs, 100, 10)
	require.Len(t, got, 1)
	require.Equal(t, "a", got[0].Commit)
}

func TestSplitChange(t *testing.T) {
	require.Nil(t, splitChange(0, 3))
	require.Equal(t, []uint64{10}, splitChange(10, 1))
	require.Equal(t, []uint64{3, 3, 4}, splitChange(10, 3))
	require.Equal(t, []uint64{2}, splitChange(2, 5))
}

func TestMaskSecret(t *testing.T) {
	key := []byte("context key")
	secret := make([]byte, 32)
	for i := range secret {
		secret[i] = byte(i)
	}

	masked, err := maskSecret(key, "slate", excessTag, secret)
	require.NoError(t, err)
	require.NotEqual(t, secret, masked)

	other, err := maskSecret(key, "slate", nonceTag, secret)
	require.NoError(t, err)
	require.NotEqual(t, masked, other)

	unmasked, err := maskSecret(key, "slate", excessTag, masked)
	require.NoError(t, err)
	require.Equal(t, secret, unmasked)

	_, err = maskSecret(key, "slate", excessTag, secret[:16])
	require.Error(t, err)
}

func outputsWithValues(vv ...uint64) []domain.Output {
	outputs := make([]domain.Output, 0, len(vv))
	for i, v := range vv {
		outputs = append(outputs, domain.Output{
			Commit: fmt.Sprintf("%02x", i),
			Value:  v,
			Status: domain.OutputUnspent,
			Height: 1,
		})
	}
	return outputs
}

func values(outputs []domain.Output) []uint64 {
	vv := make([]uint64, 0, len(outputs))
	for _, o := range outputs {
		vv = append(vv, o.Value)
	}
	return vv
}
