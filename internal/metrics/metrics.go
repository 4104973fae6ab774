// Package metrics exposes Prometheus counters for the event pipeline,
// grounded on runZeroInc-sockstats/go-tcpinfo's use of
// github.com/prometheus/client_golang for connection-level counters,
// adapted here to lap-admission bookkeeping.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LapsAdmitted counts laps that passed the admission rule and reached
	// the store.
	LapsAdmitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "acsps",
		Name:      "laps_admitted_total",
		Help:      "Laps that passed the admission rule and were recorded.",
	})

	// LapsCutRejected counts laps rejected for cuts > 0.
	LapsCutRejected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "acsps",
		Name:      "laps_cut_rejected_total",
		Help:      "Laps rejected because cuts was greater than zero.",
	})

	// LapsNoConnectionRejected counts laps rejected for missing connection
	// or session state.
	LapsNoConnectionRejected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "acsps",
		Name:      "laps_no_connection_rejected_total",
		Help:      "Laps rejected because the car_id had no connection or the session was unset.",
	})

	// DecodeErrors counts decode failures by kind ("unsupported",
	// "parse", "other").
	DecodeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "acsps",
		Name:      "decode_errors_total",
		Help:      "Datagram decode failures, by kind.",
	}, []string{"kind"})

	// StoreErrors counts record-store operation failures.
	StoreErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "acsps",
		Name:      "store_errors_total",
		Help:      "Record store operations that returned an error.",
	})
)
