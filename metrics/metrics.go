package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// EventsRelayed counts inbound events accepted by the dispatcher, by event
// name. Dropped (malformed or out-of-protocol) events are not counted.
var EventsRelayed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "paintz_events_relayed_total",
	Help: "Inbound events relayed to room members, by event name.",
}, []string{"event"})

// RegisterHubStats exposes live room/client counts as gauges.
func RegisterHubStats(stats func() (rooms, clients int)) {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "paintz_rooms_active",
		Help: "Rooms with at least one member.",
	}, func() float64 {
		rooms, _ := stats()
		return float64(rooms)
	})
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "paintz_clients_connected",
		Help: "Members across all rooms.",
	}, func() float64 {
		_, clients := stats()
		return float64(clients)
	})
}

// Handler exposes Prometheus metrics at /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
