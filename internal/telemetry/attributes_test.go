// SPDX-License-Identifier: MIT

package telemetry

import (
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestHTTPAttributes(t *testing.T) {
	attrs := HTTPAttributes("GET", "/api/sources/{name}", 200)

	if len(attrs) != 3 {
		t.Fatalf("Expected 3 attributes, got %d", len(attrs))
	}

	verifyAttribute(t, attrs, HTTPMethodKey, "GET")
	verifyAttribute(t, attrs, HTTPRouteKey, "/api/sources/{name}")
	verifyIntAttribute(t, attrs, HTTPStatusCodeKey, 200)
}

func TestSourceAttributes(t *testing.T) {
	tests := []struct {
		name       string
		source     string
		sourceType string
		wantCount  int
	}{
		{"all fields", "door", "rtsp", 2},
		{"name only", "door", "", 1},
		{"empty", "", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs := SourceAttributes(tt.source, tt.sourceType)
			if len(attrs) != tt.wantCount {
				t.Errorf("Expected %d attributes, got %d", tt.wantCount, len(attrs))
			}
			if tt.source != "" {
				verifyAttribute(t, attrs, SourceNameKey, tt.source)
			}
		})
	}
}

func TestPipelineAttributes(t *testing.T) {
	attrs := PipelineAttributes("h265", true, true)

	verifyAttribute(t, attrs, PipelineCodecKey, "h265")
	verifyBoolAttribute(t, attrs, PipelineTranscodeKey, true)
	verifyBoolAttribute(t, attrs, PipelineHWKey, true)

	res := PipelineResultAttributes("eos", 1500)
	verifyAttribute(t, res, PipelineOutcomeKey, "eos")
	verifyInt64Attribute(t, res, PipelineFramesKey, 1500)
}

func TestProbeAttributes(t *testing.T) {
	attrs := ProbeAttributes(false, "device_missing")
	verifyBoolAttribute(t, attrs, ProbeAvailableKey, false)
	verifyAttribute(t, attrs, ProbeReasonKey, "device_missing")

	if got := len(ProbeAttributes(true, "")); got != 1 {
		t.Errorf("Expected 1 attribute without reason, got %d", got)
	}
}

func TestRTSPAttributes(t *testing.T) {
	attrs := RTSPAttributes("/door/stream", "abc")
	verifyAttribute(t, attrs, RTSPMountKey, "/door/stream")
	verifyAttribute(t, attrs, RTSPSessionKey, "abc")
}

func TestErrorAttributes(t *testing.T) {
	err := errors.New("test error")
	attrs := ErrorAttributes(err, "runtime")

	if len(attrs) != 2 {
		t.Fatalf("Expected 2 attributes, got %d", len(attrs))
	}

	verifyBoolAttribute(t, attrs, ErrorKey, true)
	verifyAttribute(t, attrs, ErrorTypeKey, "runtime")

	if ErrorAttributes(nil, "runtime") != nil {
		t.Error("Expected nil attributes for nil error")
	}
}

// Helper functions for attribute verification

func verifyAttribute(t *testing.T, attrs []attribute.KeyValue, key, expectedValue string) {
	t.Helper()
	for _, attr := range attrs {
		if string(attr.Key) == key {
			if attr.Value.AsString() != expectedValue {
				t.Errorf("Expected %s=%s, got %s", key, expectedValue, attr.Value.AsString())
			}
			return
		}
	}
	t.Errorf("Attribute %s not found", key)
}

func verifyIntAttribute(t *testing.T, attrs []attribute.KeyValue, key string, expectedValue int) {
	t.Helper()
	for _, attr := range attrs {
		if string(attr.Key) == key {
			if attr.Value.AsInt64() != int64(expectedValue) {
				t.Errorf("Expected %s=%d, got %d", key, expectedValue, attr.Value.AsInt64())
			}
			return
		}
	}
	t.Errorf("Attribute %s not found", key)
}

func verifyInt64Attribute(t *testing.T, attrs []attribute.KeyValue, key string, expectedValue int64) {
	t.Helper()
	for _, attr := range attrs {
		if string(attr.Key) == key {
			if attr.Value.AsInt64() != expectedValue {
				t.Errorf("Expected %s=%d, got %d", key, expectedValue, attr.Value.AsInt64())
			}
			return
		}
	}
	t.Errorf("Attribute %s not found", key)
}

func verifyBoolAttribute(t *testing.T, attrs []attribute.KeyValue, key string, expectedValue bool) {
	t.Helper()
	for _, attr := range attrs {
		if string(attr.Key) == key {
			if attr.Value.AsBool() != expectedValue {
				t.Errorf("Expected %s=%t, got %t", key, expectedValue, attr.Value.AsBool())
			}
			return
		}
	}
	t.Errorf("Attribute %s not found", key)
}
