// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"context"
	"strings"
	"sync"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ManuGH/dart/internal/config"
)

func resetGlobal(t *testing.T) {
	t.Helper()
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })
}

func TestNewProvider_DisabledInstallsNoop(t *testing.T) {
	resetGlobal(t)

	p, err := NewProvider(context.Background(), Config{Enabled: false, ExporterType: "bogus"})
	if err != nil {
		t.Fatalf("disabled provider: %v", err)
	}
	if p.Enabled() {
		t.Error("disabled provider reports Enabled")
	}

	_, span := Tracer("dart-test").Start(context.Background(), "source.probe")
	defer span.End()
	if span.IsRecording() {
		t.Error("span from noop provider is recording")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("noop shutdown: %v", err)
	}
}

func TestNewProvider_UnsupportedExporter(t *testing.T) {
	resetGlobal(t)

	_, err := NewProvider(context.Background(), Config{Enabled: true, ExporterType: "zipkin"})
	if err == nil {
		t.Fatal("expected error for unsupported exporter")
	}
	if !strings.Contains(err.Error(), `"zipkin"`) {
		t.Errorf("error %q does not name the exporter", err)
	}
}

func TestNewProvider_HTTPExporterRecordsSpans(t *testing.T) {
	resetGlobal(t)

	p, err := NewProvider(context.Background(), Config{
		Enabled:      true,
		ServiceName:  "dart",
		ExporterType: ExporterHTTP,
		Endpoint:     "127.0.0.1:4318",
		SamplingRate: 1,
	})
	if err != nil {
		t.Fatalf("http provider: %v", err)
	}
	if !p.Enabled() {
		t.Fatal("provider not enabled")
	}

	_, span := Tracer("dart-test").Start(context.Background(), "source.pipeline")
	if !span.IsRecording() {
		t.Error("sampled span is not recording")
	}
	span.End()

	// Export to the absent collector fails; shutdown itself must return promptly.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = p.Shutdown(ctx)
}

func TestNewSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{rate: 1, want: "root:AlwaysOnSampler"},
		{rate: 2, want: "root:AlwaysOnSampler"},
		{rate: 0, want: "root:AlwaysOffSampler"},
		{rate: -1, want: "root:AlwaysOffSampler"},
		{rate: 0.5, want: "root:TraceIDRatioBased{0.5}"},
	}
	for _, tt := range tests {
		desc := newSampler(tt.rate).Description()
		if !strings.HasPrefix(desc, "ParentBased{") || !strings.Contains(desc, tt.want) {
			t.Errorf("newSampler(%v) = %q, want ParentBased with %q", tt.rate, desc, tt.want)
		}
	}
}

func TestProvider_ShutdownConcurrent(t *testing.T) {
	p := &Provider{}
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.Shutdown(context.Background()); err != nil {
				t.Errorf("shutdown: %v", err)
			}
		}()
	}
	wg.Wait()
}

func TestFromConfig(t *testing.T) {
	cfg := FromConfig(config.TelemetryConfig{
		Enabled:      true,
		Exporter:     ExporterHTTP,
		Endpoint:     "collector:4318",
		Environment:  "lab",
		SamplingRate: 0.25,
	}, "dart", "v1.2.3")

	if !cfg.Enabled || cfg.ServiceName != "dart" || cfg.ServiceVersion != "v1.2.3" || cfg.Environment != "lab" {
		t.Errorf("unexpected identity fields: %+v", cfg)
	}
	if cfg.ExporterType != ExporterHTTP || cfg.Endpoint != "collector:4318" || cfg.SamplingRate != 0.25 {
		t.Errorf("unexpected exporter fields: %+v", cfg)
	}
}
