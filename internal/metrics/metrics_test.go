// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestSetSourceState_OneHot(t *testing.T) {
	sourceState.Reset()

	SetSourceState("cam1", "live")
	SetSourceState("cam1", "standby")

	if got := testutil.ToFloat64(sourceState.WithLabelValues("cam1", "standby")); got != 1 {
		t.Errorf("standby = %v, want 1", got)
	}
	for _, s := range []string{"live", "retrying", "stopped"} {
		if got := testutil.ToFloat64(sourceState.WithLabelValues("cam1", s)); got != 0 {
			t.Errorf("%s = %v, want 0", s, got)
		}
	}
}

func TestRecordProbe(t *testing.T) {
	probesTotal.Reset()
	probeDuration.Reset()

	RecordProbe("door", false, 0.1)
	RecordProbe("door", false, 0.2)
	RecordProbe("door", true, 0.3)

	if got := testutil.ToFloat64(probesTotal.WithLabelValues("door", "unavailable")); got != 2 {
		t.Errorf("unavailable probes = %v, want 2", got)
	}
	if got := testutil.ToFloat64(probesTotal.WithLabelValues("door", "available")); got != 1 {
		t.Errorf("available probes = %v, want 1", got)
	}
	if count := testutil.CollectAndCount(probeDuration); count == 0 {
		t.Error("expected probe duration observations")
	}
}

func TestFrameCounters(t *testing.T) {
	framesForwarded.Reset()
	framesDropped.Reset()

	IncFrameForwarded("cam1", "pipeline")
	IncFrameForwarded("cam1", "standby")
	IncFrameDropped("cam1", "no_client")

	if got := testutil.ToFloat64(framesForwarded.WithLabelValues("cam1", "pipeline")); got != 1 {
		t.Errorf("pipeline frames = %v, want 1", got)
	}
	if got := testutil.ToFloat64(framesDropped.WithLabelValues("cam1", "no_client")); got != 1 {
		t.Errorf("dropped frames = %v, want 1", got)
	}
}

func TestRTSPSessions(t *testing.T) {
	rtspSessions.Reset()

	IncRTSPSession("/cam1/stream")
	IncRTSPSession("/cam1/stream")
	DecRTSPSession("/cam1/stream")

	if got := testutil.ToFloat64(rtspSessions.WithLabelValues("/cam1/stream")); got != 1 {
		t.Errorf("sessions = %v, want 1", got)
	}
}

func TestPlaceholderEncode(t *testing.T) {
	placeholderEncodes.Reset()

	RecordPlaceholderEncode(nil)
	RecordPlaceholderEncode(errors.New("boom"))

	if got := testutil.ToFloat64(placeholderEncodes.WithLabelValues("success")); got != 1 {
		t.Errorf("success = %v, want 1", got)
	}
	if got := testutil.ToFloat64(placeholderEncodes.WithLabelValues("failure")); got != 1 {
		t.Errorf("failure = %v, want 1", got)
	}
}

func TestPromhttpExposure(t *testing.T) {
	IncReconnect("exposed")
	IncCycleError("exposed", "runtime")

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	promhttp.Handler().ServeHTTP(recorder, req)

	body := recorder.Body.String()
	for _, name := range []string{"dart_source_reconnects_total", "dart_source_cycle_errors_total"} {
		if !strings.Contains(body, name) {
			t.Errorf("expected %s in metrics output", name)
		}
	}
}

func findFamily(t *testing.T, name string) *dto.MetricFamily {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("metric family %s not registered", name)
	return nil
}

func TestRTSPSessions_Gauge(t *testing.T) {
	rtspSessions.Reset()

	IncRTSPSession("/cam1/stream")
	IncRTSPSession("/cam1/stream")
	DecRTSPSession("/cam1/stream")

	mf := findFamily(t, "dart_rtsp_sessions")
	if mf.GetType() != dto.MetricType_GAUGE {
		t.Fatalf("type = %v, want GAUGE", mf.GetType())
	}
	if len(mf.GetMetric()) != 1 {
		t.Fatalf("series = %d, want 1", len(mf.GetMetric()))
	}
	m := mf.GetMetric()[0]
	if got := m.GetGauge().GetValue(); got != 1 {
		t.Errorf("sessions = %v, want 1", got)
	}
	labels := m.GetLabel()
	if len(labels) != 1 || labels[0].GetName() != "mount" || labels[0].GetValue() != "/cam1/stream" {
		t.Errorf("labels = %v, want mount=/cam1/stream", labels)
	}
}
