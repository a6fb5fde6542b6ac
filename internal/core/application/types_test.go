package application_test

import (
	"math"
	"testing"

	"github.com/mwswap/mwswapd/internal/core/application"
	"github.com/mwswap/mwswapd/internal/core/domain"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		currency domain.Currency
		want     uint64
	}{
		{"whole grin", "1", domain.CurrencyGRIN, 1000000000},
		{"fractional grin", "0.000000001", domain.CurrencyGRIN, 1},
		{"fractional btc", "0.5", domain.CurrencyBTC, 50000000},
		{"max grin", "18446744073.709551615", domain.CurrencyGRIN, math.MaxUint64},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := application.ParseAmount(tt.amount, tt.currency)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestParseAmountInvalid(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		currency domain.Currency
	}{
		{"not a number", "abc", domain.CurrencyGRIN},
		{"zero", "0", domain.CurrencyGRIN},
		{"negative", "-1", domain.CurrencyBTC},
		{"too many decimals", "0.0000000001", domain.CurrencyGRIN},
		{"above int64", "20000000000", domain.CurrencyGRIN},
		{"above uint64", "18446744073.709551616", domain.CurrencyGRIN},
		{"huge btc", "1000000000000", domain.CurrencyBTC},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := application.ParseAmount(tt.amount, tt.currency)
			require.Error(t, err)
			require.True(t, domain.IsKind(err, domain.KindValidation))
		})
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		amount   uint64
		currency domain.Currency
		want     string
	}{
		{1, domain.CurrencyGRIN, "0.000000001"},
		{1500000000, domain.CurrencyGRIN, "1.5"},
		{100000, domain.CurrencyBTC, "0.001"},
		{1e19, domain.CurrencyGRIN, "10000000000"},
		{math.MaxUint64, domain.CurrencyGRIN, "18446744073.709551615"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, application.FormatAmount(tt.amount, tt.currency))
	}
}
