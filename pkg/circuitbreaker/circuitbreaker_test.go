package circuitbreaker_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mwswap/mwswapd/pkg/circuitbreaker"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/require"
)

var (
	errDown     = errors.New("down")
	errRejected = errors.New("rejected")
)

func TestBreaker(t *testing.T) {
	t.Run("trips on failures", testTrip())
	t.Run("ignores non failures", testNonFailures())
}

func testTrip() func(t *testing.T) {
	return func(t *testing.T) {
		var transitions []gobreaker.State
		b := circuitbreaker.New("test", nil, func(_ string, _, to gobreaker.State) {
			transitions = append(transitions, to)
		})

		for i := 0; i <= circuitbreaker.MaxNumOfFailingRequests; i++ {
			err := b.Execute(func() error { return errDown })
			require.ErrorIs(t, err, errDown)
		}
		require.Equal(t, gobreaker.StateOpen, b.State())
		require.Equal(t, []gobreaker.State{gobreaker.StateOpen}, transitions)

		called := false
		err := b.Execute(func() error {
			called = true
			return nil
		})
		require.ErrorIs(t, err, circuitbreaker.ErrOpen)
		require.False(t, called)
	}
}

func testNonFailures() func(t *testing.T) {
	return func(t *testing.T) {
		b := circuitbreaker.New("test", func(err error) bool {
			return !errors.Is(err, errRejected) && !errors.Is(err, context.Canceled)
		}, nil)

		for i := 0; i < 3*circuitbreaker.MaxNumOfFailingRequests; i++ {
			err := b.Execute(func() error { return errRejected })
			require.ErrorIs(t, err, errRejected)

			err = b.Execute(func() error { return context.Canceled })
			require.ErrorIs(t, err, context.Canceled)
		}
		require.Equal(t, gobreaker.StateClosed, b.State())
		require.NoError(t, b.Execute(func() error { return nil }))
	}
}
