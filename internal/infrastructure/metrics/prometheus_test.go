package metrics_test

import (
	"errors"
	"testing"

	"github.com/mwswap/mwswapd/internal/infrastructure/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	c := metrics.NewCollector()

	c.SlateTransition("S2")
	c.SlateTransition("S2")
	c.SwapTransition("Locked")
	c.NodeRequest("get_tip", nil)
	c.NodeRequest("get_tip", errors.New("down"))
	c.NodeRequest("get_tip", errors.New("down"))

	count, err := testutil.GatherAndCount(c.Gatherer())
	require.NoError(t, err)
	require.Equal(t, 4, count)

	// the noop sink must never panic
	noop := metrics.NewNoop()
	noop.SlateTransition("S1")
	noop.SwapTransition("Init")
	noop.NodeRequest("get_tip", nil)
}
