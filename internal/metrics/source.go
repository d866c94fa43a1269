// SPDX-License-Identifier: MIT
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Source states exported as one-hot gauge labels.
var sourceStates = []string{"live", "standby", "retrying", "stopped"}

var (
	sourceState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dart_source_state",
		Help: "Current supervisor state per source (1 for the active state)",
	}, []string{"source", "state"})

	sourceReconnects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dart_source_reconnects_total",
		Help: "Pipeline executions started after a successful probe",
	}, []string{"source"})

	sourceCycleErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dart_source_cycle_errors_total",
		Help: "Pipeline execution cycles that ended in failure",
	}, []string{"source", "kind"}) // kind=construction|runtime|stall

	framesForwarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dart_frames_forwarded_total",
		Help: "Frames handed to a delivery channel",
	}, []string{"source", "producer"}) // producer=pipeline|standby

	framesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dart_frames_dropped_total",
		Help: "Frames discarded before reaching a client",
	}, []string{"source", "reason"}) // reason=not_live|no_client|stale_channel|gated

	probesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dart_probe_total",
		Help: "Connectivity probes by outcome",
	}, []string{"source", "result"}) // result=available|unavailable

	probeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dart_probe_duration_seconds",
		Help:    "Time spent in connectivity probes",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 3},
	}, []string{"source"})
)

// SetSourceState marks state as the only active state of source.
func SetSourceState(source, state string) {
	for _, s := range sourceStates {
		v := 0.0
		if s == state {
			v = 1
		}
		sourceState.WithLabelValues(source, s).Set(v)
	}
}

func IncReconnect(source string) { sourceReconnects.WithLabelValues(source).Inc() }

func IncCycleError(source, kind string) { sourceCycleErrors.WithLabelValues(source, kind).Inc() }

func IncFrameForwarded(source, producer string) {
	framesForwarded.WithLabelValues(source, producer).Inc()
}

func IncFrameDropped(source, reason string) {
	framesDropped.WithLabelValues(source, reason).Inc()
}

// RecordProbe counts one probe and its duration.
func RecordProbe(source string, available bool, seconds float64) {
	result := "unavailable"
	if available {
		result = "available"
	}
	probesTotal.WithLabelValues(source, result).Inc()
	probeDuration.WithLabelValues(source).Observe(seconds)
}
