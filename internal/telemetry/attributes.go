// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"

	// Source attributes
	SourceNameKey  = "source.name"
	SourceTypeKey  = "source.type"
	SourceStateKey = "source.state"

	// Pipeline attributes
	PipelineCodecKey     = "pipeline.codec"
	PipelineTranscodeKey = "pipeline.transcode"
	PipelineHWKey        = "pipeline.hw_encoder"
	PipelineFramesKey    = "pipeline.frames"
	PipelineOutcomeKey   = "pipeline.outcome"

	// Probe attributes
	ProbeAvailableKey = "probe.available"
	ProbeReasonKey    = "probe.reason"

	// RTSP attributes
	RTSPMountKey   = "rtsp.mount"
	RTSPSessionKey = "rtsp.session_id"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// SourceAttributes identifies the source a span belongs to.
func SourceAttributes(name, sourceType string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 2)
	if name != "" {
		attrs = append(attrs, attribute.String(SourceNameKey, name))
	}
	if sourceType != "" {
		attrs = append(attrs, attribute.String(SourceTypeKey, sourceType))
	}
	return attrs
}

// PipelineAttributes describes one execution cycle.
func PipelineAttributes(codec string, transcode, hw bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(PipelineCodecKey, codec),
		attribute.Bool(PipelineTranscodeKey, transcode),
		attribute.Bool(PipelineHWKey, hw),
	}
}

// PipelineResultAttributes records how a cycle ended.
func PipelineResultAttributes(outcome string, frames uint64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(PipelineOutcomeKey, outcome),
		attribute.Int64(PipelineFramesKey, int64(frames)),
	}
}

// ProbeAttributes records a probe outcome.
func ProbeAttributes(available bool, reason string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.Bool(ProbeAvailableKey, available)}
	if reason != "" {
		attrs = append(attrs, attribute.String(ProbeReasonKey, reason))
	}
	return attrs
}

// RTSPAttributes identifies a client session.
func RTSPAttributes(mount, sessionID string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(RTSPMountKey, mount),
		attribute.String(RTSPSessionKey, sessionID),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(err error, errorType string) []attribute.KeyValue {
	if err == nil {
		return nil
	}
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
