// Package server exposes Prometheus metrics for room and connection
// activity.
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	metricOpenRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "roomrelay_open_rooms",
		Help: "Number of rooms currently registered.",
	})
	metricConnectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "roomrelay_connected_clients",
		Help: "Number of WebSocket clients currently connected.",
	})
	metricRelayedMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roomrelay_relayed_messages_total",
		Help: "Total messages accepted for fan-out to room members.",
	})
)

// MetricsHandler exposes Prometheus metrics at /metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
