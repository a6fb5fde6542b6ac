package domain_test

import (
	"testing"
	"time"

	"github.com/mwswap/mwswapd/internal/core/domain"
	"github.com/stretchr/testify/require"
)

func TestTxLogEntryCancel(t *testing.T) {
	tests := []struct {
		name     string
		entry    domain.TxLogEntry
		wantType domain.TxLogEntryType
		wantErr  error
	}{
		{
			name:     "sent",
			entry:    domain.TxLogEntry{Type: domain.TxSent},
			wantType: domain.TxSentCancelled,
		},
		{
			name:     "received",
			entry:    domain.TxLogEntry{Type: domain.TxReceived},
			wantType: domain.TxReceivedCancelled,
		},
		{
			name:     "already cancelled",
			entry:    domain.TxLogEntry{Type: domain.TxSentCancelled},
			wantType: domain.TxSentCancelled,
			wantErr:  domain.ErrTxAlreadyCancelled,
		},
		{
			name:     "confirmed",
			entry:    domain.TxLogEntry{Type: domain.TxSent, Confirmed: true},
			wantType: domain.TxSent,
			wantErr:  domain.ErrTxAlreadyConfirmed,
		},
		{
			name:     "finalized",
			entry:    domain.TxLogEntry{Type: domain.TxSent, Finalized: true},
			wantType: domain.TxSent,
			wantErr:  domain.ErrSlateAlreadyFinalized,
		},
	}

	for i := range tests {
		tt := tests[i]
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			entry := tt.entry
			err := entry.Cancel()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				require.Equal(t, domain.StatusCancelled, entry.Status())
			}
			require.Equal(t, tt.wantType, entry.Type)
		})
	}
}

func TestTxLogEntryDirectionAndStatus(t *testing.T) {
	now := time.Now()
	entry := domain.TxLogEntry{Type: domain.TxReceived}
	require.Equal(t, domain.DirectionReceived, entry.Direction())
	require.Equal(t, domain.StatusPending, entry.Status())

	require.ErrorIs(t, entry.Revert(now), domain.ErrTxNotConfirmed)

	entry.Confirm(now)
	require.Equal(t, domain.StatusConfirmed, entry.Status())

	later := now.Add(time.Hour)
	require.NoError(t, entry.Revert(later))
	require.Equal(t, domain.DirectionReverted, entry.Direction())
	require.Equal(t, domain.StatusReverted, entry.Status())
	require.Equal(t, time.Hour, entry.RevertedAfter)

	entry.Confirm(later)
	require.Equal(t, domain.TxReceived, entry.Type)
	require.Equal(t, domain.StatusConfirmed, entry.Status())
}

func TestTxLogEntryExpiry(t *testing.T) {
	entry := domain.TxLogEntry{Type: domain.TxSent, TTLCutoffHeight: 100}
	require.False(t, entry.IsExpired(100))
	require.True(t, entry.IsExpired(101))

	entry.Confirmed = true
	require.False(t, entry.IsExpired(101))
}
