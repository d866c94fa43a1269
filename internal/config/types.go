// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config provides configuration management for dart.
package config

// SourceType selects how a source produces video.
type SourceType string

const (
	// SourceV4L2 captures from a local Video4Linux2 device.
	SourceV4L2 SourceType = "v4l2"
	// SourceRTSP pulls a remote RTSP stream.
	SourceRTSP SourceType = "rtsp"
)

// Config is the root of the configuration file.
type Config struct {
	Server    ServerConfig    `yaml:"server" json:"server"`
	API       APIConfig       `yaml:"api" json:"api"`
	Log       LogConfig       `yaml:"log" json:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`
	Sources   []Source        `yaml:"sources" json:"sources"`

	// Version is injected from the binary, never read from file.
	Version string `yaml:"-" json:"-"`
}

// ServerConfig configures the RTSP listener.
type ServerConfig struct {
	RTSPPort    int    `yaml:"rtsp_port" json:"rtsp_port"`
	BindAddress string `yaml:"bind_address" json:"bind_address"`
}

// APIConfig configures the HTTP status API.
type APIConfig struct {
	// Listen is the HTTP listen address; empty disables the API.
	Listen string `yaml:"listen" json:"listen"`
	// RateLimit is the request budget per client IP and minute; 0 disables limiting.
	RateLimit int `yaml:"rate_limit" json:"rate_limit"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level   string `yaml:"level" json:"level"`
	Service string `yaml:"service" json:"service"`
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	Exporter     string  `yaml:"exporter" json:"exporter"`
	Endpoint     string  `yaml:"endpoint" json:"endpoint"`
	Environment  string  `yaml:"environment" json:"environment"`
	SamplingRate float64 `yaml:"sampling_rate" json:"sampling_rate"`
}

// Source is one configured video input. It is immutable after Load.
type Source struct {
	Name string     `yaml:"name" json:"name"`
	Type SourceType `yaml:"type" json:"type"`

	// v4l2
	Device    string `yaml:"device,omitempty" json:"device,omitempty"`
	Width     int    `yaml:"width,omitempty" json:"width,omitempty"`
	Height    int    `yaml:"height,omitempty" json:"height,omitempty"`
	Framerate int    `yaml:"framerate,omitempty" json:"framerate,omitempty"`
	Format    string `yaml:"format,omitempty" json:"format,omitempty"`

	// rtsp
	URL      string `yaml:"url,omitempty" json:"url,omitempty"`
	Username string `yaml:"username,omitempty" json:"-"`
	Password string `yaml:"password,omitempty" json:"-"`
	Latency  int    `yaml:"latency,omitempty" json:"latency,omitempty"`

	Transcode bool          `yaml:"transcode,omitempty" json:"transcode,omitempty"`
	Encode    *EncodeConfig `yaml:"encode,omitempty" json:"encode,omitempty"`
	Auth      *AuthConfig   `yaml:"auth,omitempty" json:"-"`

	// Fallback is a still image shown while the source is unavailable.
	Fallback string `yaml:"fallback,omitempty" json:"fallback,omitempty"`

	// ReconnectInterval is the probe cadence while a source is down, in seconds.
	ReconnectInterval int `yaml:"reconnect_interval,omitempty" json:"reconnect_interval,omitempty"`

	// StartTimeout and StallTimeout end a pipeline cycle that produces no
	// frames after starting or stops producing them, in milliseconds.
	StartTimeout int `yaml:"start_timeout,omitempty" json:"start_timeout,omitempty"`
	StallTimeout int `yaml:"stall_timeout,omitempty" json:"stall_timeout,omitempty"`
}

// EncodeConfig holds encoder parameters.
type EncodeConfig struct {
	Bitrate          int    `yaml:"bitrate" json:"bitrate"` // kbps
	KeyframeInterval int    `yaml:"keyframe_interval" json:"keyframe_interval"`
	Preset           string `yaml:"preset" json:"preset"`
	Tune             string `yaml:"tune" json:"tune"`
}

// AuthConfig protects a mount with RTSP Basic authentication.
type AuthConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"-"`
}

// EncodeOrDefault returns the encode block or the defaults when none is set.
func (s Source) EncodeOrDefault() EncodeConfig {
	if s.Encode == nil {
		return DefaultEncode()
	}
	return *s.Encode
}

// AuthEnabled reports whether the mount requires credentials.
func (s Source) AuthEnabled() bool {
	return s.Auth != nil && s.Auth.Enabled
}

// MountPath is the public RTSP path of the source.
func (s Source) MountPath() string {
	return "/" + s.Name + "/stream"
}
