package metrics

import (
	"github.com/mwswap/mwswapd/internal/core/ports"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "mwswap"

// Collector counts slate rounds, swap phase changes and node requests.
type Collector struct {
	registry     *prometheus.Registry
	slates       *prometheus.CounterVec
	swaps        *prometheus.CounterVec
	nodeRequests *prometheus.CounterVec
}

// NewCollector registers the counters on a dedicated registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		slates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slate_transitions_total",
			Help:      "Number of slates that reached a given state.",
		}, []string{"state"}),
		swaps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swap_transitions_total",
			Help:      "Number of swaps that reached a given phase.",
		}, []string{"phase"}),
		nodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_requests_total",
			Help:      "Number of requests sent to the node, by method and outcome.",
		}, []string{"method", "outcome"}),
	}
	c.registry.MustRegister(c.slates, c.swaps, c.nodeRequests)
	return c
}

// Gatherer exposes the registry, for dumping or serving.
func (c *Collector) Gatherer() prometheus.Gatherer {
	return c.registry
}

func (c *Collector) SlateTransition(state string) {
	c.slates.WithLabelValues(state).Inc()
}

func (c *Collector) SwapTransition(phase string) {
	c.swaps.WithLabelValues(phase).Inc()
}

func (c *Collector) NodeRequest(method string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.nodeRequests.WithLabelValues(method, outcome).Inc()
}

type noop struct{}

// NewNoop returns a sink that drops every event.
func NewNoop() ports.Metrics {
	return noop{}
}

func (noop) SlateTransition(string) {}

func (noop) SwapTransition(string) {}

func (noop) NodeRequest(string, error) {}
