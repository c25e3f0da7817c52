// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ActiveConnections counts registered websocket connections.
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "datingchat_active_connections",
		Help: "Number of live websocket connections.",
	})

	// ActivePairs counts currently matched pairs (not participants).
	ActivePairs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "datingchat_active_pairs",
		Help: "Number of currently matched pairs.",
	})

	// PairingsTotal counts every successful match since start.
	PairingsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "datingchat_pairings_total",
		Help: "Total number of successful pairings.",
	})

	// SignalsRelayedTotal counts relayed signaling messages by kind.
	SignalsRelayedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "datingchat_signals_relayed_total",
		Help: "Total relayed signaling messages, by kind.",
	}, []string{"kind"})

	// ChatMessagesTotal counts relayed chat messages.
	ChatMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "datingchat_chat_messages_total",
		Help: "Total relayed chat messages.",
	})

	// PartnerChurnTotal counts pair dissolutions from next-partner
	// requests, re-joins and disconnects.
	PartnerChurnTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "datingchat_partner_churn_total",
		Help: "Total pair dissolutions.",
	})
)

// Handler serves the default Prometheus registry at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
