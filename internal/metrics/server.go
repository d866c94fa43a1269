// SPDX-License-Identifier: MIT
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rtspSessions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dart_rtsp_sessions",
		Help: "Active RTSP client sessions per mount",
	}, []string{"mount"})

	rtspAuthFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dart_rtsp_auth_failures_total",
		Help: "Rejected RTSP requests due to missing or wrong credentials",
	}, []string{"mount"})

	placeholderEncodes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dart_placeholder_encode_total",
		Help: "Placeholder image encodes by outcome",
	}, []string{"result"}) // result=success|failure

	configValidationErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dart_config_validation_errors_total",
		Help: "Configuration loads rejected by validation",
	})

	configSourcesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dart_config_sources_skipped_total",
		Help: "Source definitions skipped because they were invalid",
	})

	sourcesConfigured = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dart_sources_configured",
		Help: "Sources started by the daemon",
	})
)

func IncRTSPSession(mount string) { rtspSessions.WithLabelValues(mount).Inc() }
func DecRTSPSession(mount string) { rtspSessions.WithLabelValues(mount).Dec() }

func IncRTSPAuthFailure(mount string) { rtspAuthFailures.WithLabelValues(mount).Inc() }

func RecordPlaceholderEncode(err error) {
	if err != nil {
		placeholderEncodes.WithLabelValues("failure").Inc()
		return
	}
	placeholderEncodes.WithLabelValues("success").Inc()
}

func IncConfigValidationError()     { configValidationErrors.Inc() }
func AddSourcesSkipped(n int)       { configSourcesSkipped.Add(float64(n)) }
func RecordSourcesConfigured(n int) { sourcesConfigured.Set(float64(n)) }
