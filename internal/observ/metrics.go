package observ

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects the engine's counters. Drop reasons: "malformed" for
// undecodable payloads, "duplicate" for pending-id dedup hits, "aborted" for
// events abandoned on a failed dependency fetch.
type Metrics struct {
	EventsProcessed *prometheus.CounterVec
	EventsDropped   *prometheus.CounterVec
	RemoteCalls     *prometheus.CounterVec
	CommitsTotal    prometheus.Counter
	RecordsWritten  prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "syncd_events_processed_total",
			Help: "Websocket events handled to completion, by event kind.",
		}, []string{"kind"}),
		EventsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "syncd_events_dropped_total",
			Help: "Websocket events discarded without a commit, by reason.",
		}, []string{"kind", "reason"}),
		RemoteCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "syncd_remote_calls_total",
			Help: "On-demand server fetches, by operation and outcome.",
		}, []string{"op", "outcome"}),
		CommitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "syncd_store_commits_total",
			Help: "Atomic batch commits applied to the local store.",
		}),
		RecordsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "syncd_store_records_written_total",
			Help: "Records written across all batch commits.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.EventsProcessed,
			m.EventsDropped,
			m.RemoteCalls,
			m.CommitsTotal,
			m.RecordsWritten,
		)
	}
	return m
}
