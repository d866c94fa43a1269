// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestValidator_URL(t *testing.T) {
	rtsp := []string{"rtsp", "rtsps"}
	tests := []struct {
		name           string
		value          string
		allowedSchemes []string
		wantErr        bool
	}{
		{"valid rtsp", "rtsp://192.168.1.10:554/stream1", rtsp, false},
		{"valid rtsps", "rtsps://cam.local/live", rtsp, false},
		{"with credentials", "rtsp://user:pw@cam.local/live", rtsp, false},
		{"empty url", "", rtsp, true},
		{"no host", "rtsp://", rtsp, true},
		{"invalid scheme", "http://example.com", rtsp, true},
		{"no scheme", "example.com", rtsp, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.URL("url", tt.value, tt.allowedSchemes)

			if tt.wantErr && v.IsValid() {
				t.Errorf("expected error, got none")
			}
			if !tt.wantErr && !v.IsValid() {
				t.Errorf("unexpected error: %v", v.Err())
			}
		})
	}
}

func TestValidator_Port(t *testing.T) {
	tests := []struct {
		name    string
		port    int
		wantErr bool
	}{
		{"valid port 554", 554, false},
		{"valid port 8554", 8554, false},
		{"valid port 65535", 65535, false},
		{"valid port 1", 1, false},
		{"invalid port 0", 0, true},
		{"invalid port -1", -1, true},
		{"invalid port 65536", 65536, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.Port("port", tt.port)
			if tt.wantErr == v.IsValid() {
				t.Errorf("Port(%d) valid=%v, wantErr=%v", tt.port, v.IsValid(), tt.wantErr)
			}
		})
	}
}

func TestCheckName(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"single char", "a", false},
		{"digits first", "1cam", false},
		{"dash and underscore", "front-door_cam", false},
		{"max length", strings.Repeat("x", MaxNameLength), false},
		{"empty", "", true},
		{"too long", strings.Repeat("x", MaxNameLength+1), true},
		{"leading dash", "-cam", true},
		{"leading underscore", "_cam", true},
		{"slash", "cam/1", true},
		{"traversal", "..", true},
		{"embedded traversal", "a..b", true},
		{"space", "cam 1", true},
		{"non ascii", "kamera-ü", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckName(tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckName(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestValidator_Aggregates(t *testing.T) {
	v := New()
	v.Name("sources[0].name", "")
	v.Port("server.rtsp_port", 0)
	v.OneOf("sources[0].type", "usb", []string{"v4l2", "rtsp"})
	v.Positive("encode.bitrate", 0)
	v.Range("latency", 99999, 0, 10000)
	v.NotEmpty("url", "  ")

	err := v.Err()
	if err == nil {
		t.Fatal("expected error")
	}

	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if got := len(verr.Errors()); got != 6 {
		t.Errorf("expected 6 errors, got %d: %v", got, err)
	}
	if !strings.Contains(err.Error(), "sources[0].name") {
		t.Errorf("error message missing field name: %v", err)
	}
}

func TestValidator_ValidIsNil(t *testing.T) {
	v := New()
	v.Name("name", "cam1")
	v.OneOf("type", "rtsp", []string{"v4l2", "rtsp"})
	if err := v.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseLogLevel(t *testing.T) {
	if _, err := ParseLogLevel("debug"); err != nil {
		t.Errorf("debug should be valid: %v", err)
	}
	if _, err := ParseLogLevel("verbose"); err == nil {
		t.Error("verbose should be rejected")
	}
	if _, err := ParseLogLevel("trace"); err == nil {
		t.Error("trace should be rejected")
	}
	if lvl, err := ParseLogLevel("warn"); err != nil || lvl != zerolog.WarnLevel {
		t.Errorf("ParseLogLevel(warn) = %v, %v; want warn", lvl, err)
	}
}

func TestValidationError_Unwrap(t *testing.T) {
	v := New()
	v.Port("server.rtsp_port", 0)
	v.NotEmpty("sources[1].url", "")

	err := v.Err()
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if got := strings.Join(verr.Fields(), ","); got != "server.rtsp_port,sources[1].url" {
		t.Errorf("Fields() = %q", got)
	}

	var first Error
	if !errors.As(err, &first) || first.Field != "server.rtsp_port" {
		t.Errorf("errors.As(Error) = %+v", first)
	}
}
