package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/mwswap/mwswapd/internal/core/domain"
	"github.com/stretchr/testify/require"
)

func TestParseCurrency(t *testing.T) {
	c, err := domain.ParseCurrency(" btc")
	require.NoError(t, err)
	require.Equal(t, domain.CurrencyBTC, c)

	c, err = domain.ParseCurrency("GRIN")
	require.NoError(t, err)
	require.Equal(t, domain.CurrencyGRIN, c)

	_, err = domain.ParseCurrency("DOGE")
	require.ErrorIs(t, err, domain.ErrInvalidCurrency)
	require.True(t, domain.IsKind(err, domain.KindValidation))
}

func TestNewSwapSlatePub(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		from    domain.Currency
		to      domain.Currency
		amount  uint64
		timeout uint64
		wantErr error
	}{
		{"same currency", domain.CurrencyBTC, domain.CurrencyBTC, 1, 1, domain.ErrSameCurrency},
		{"zero amount", domain.CurrencyBTC, domain.CurrencyGRIN, 0, 1, domain.ErrZeroAmount},
		{"zero timeout", domain.CurrencyBTC, domain.CurrencyGRIN, 1, 0, domain.ErrInvalidSwapTimeout},
		{"unknown currency", domain.CurrencyUnknown, domain.CurrencyGRIN, 1, 1, domain.ErrInvalidCurrency},
	}

	for i := range tests {
		tt := tests[i]
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := domain.NewSwapSlatePub(
				1, tt.from, tt.to, tt.amount, tt.amount, tt.timeout, now, "h", "k",
			)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSwapSlatePhases(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	pub, err := domain.NewSwapSlatePub(
		7, domain.CurrencyBTC, domain.CurrencyGRIN, 1000, 2000, 60, now, "h", "k",
	)
	require.NoError(t, err)
	require.Equal(t, now.Add(2*time.Hour), pub.FromExpiry())
	require.Equal(t, now.Add(time.Hour), pub.ToExpiry())

	require.ErrorIs(t, pub.Execute("s"), domain.ErrSwapPhase)

	require.NoError(t, pub.SetLock(domain.RoleInitiator, &domain.LegLock{}))
	require.Equal(t, domain.SwapInit, pub.Phase)
	require.ErrorIs(
		t, pub.SetLock(domain.RoleInitiator, &domain.LegLock{}),
		domain.ErrSwapLegAlreadyLocked,
	)
	require.NoError(t, pub.SetLock(domain.RoleResponder, &domain.LegLock{}))
	require.Equal(t, domain.SwapLocked, pub.Phase)

	require.NoError(t, pub.Execute("s"))
	require.Equal(t, domain.SwapExecuted, pub.Phase)
	require.ErrorIs(t, pub.Cancel(), domain.ErrSwapAlreadyExecuted)
}

func TestSwapSlateReplace(t *testing.T) {
	now := time.Now()
	local, err := domain.NewSwapSlatePub(
		7, domain.CurrencyGRIN, domain.CurrencyBTC, 1000, 2000, 60, now, "h", "k",
	)
	require.NoError(t, err)

	remote := *local
	remote.ResponderPubKey = "r"
	require.NoError(t, local.CanBeReplacedBy(&remote))

	tampered := remote
	tampered.ToAmount = 1
	require.ErrorIs(t, local.CanBeReplacedBy(&tampered), domain.ErrSwapTermsMismatch)

	local.Phase = domain.SwapLocked
	require.ErrorIs(t, local.CanBeReplacedBy(&remote), domain.ErrSwapPhaseRegression)

	local.Phase = domain.SwapExecuted
	cancelled := remote
	cancelled.Phase = domain.SwapCancelled
	require.ErrorIs(t, local.CanBeReplacedBy(&cancelled), domain.ErrSwapAlreadyExecuted)
}

func TestSwapSlateJSON(t *testing.T) {
	pub, err := domain.NewSwapSlatePub(
		7, domain.CurrencyGRIN, domain.CurrencyBTC, 1000, 2000, 60,
		time.Now(), "h", "k",
	)
	require.NoError(t, err)

	buf, err := json.Marshal(pub)
	require.NoError(t, err)
	require.Contains(t, string(buf), `"from_currency":"GRIN"`)
	require.Contains(t, string(buf), `"phase":"Init"`)

	var got domain.SwapSlatePub
	require.NoError(t, json.Unmarshal(buf, &got))
	require.True(t, pub.SameTerms(&got))
}
