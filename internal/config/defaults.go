// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

// Defaults
const (
	DefaultRTSPPort          = 8554
	DefaultBindAddress       = "0.0.0.0"
	DefaultAPIListen         = ":9554"
	DefaultAPIRateLimit      = 600
	DefaultLogLevel          = "info"
	DefaultLogService        = "dart"
	DefaultRTSPLatency       = 200   // ms
	DefaultReconnectInterval = 2     // seconds
	DefaultStartTimeout      = 10000 // ms
	DefaultStallTimeout      = 5000  // ms
	DefaultBitrate           = 2000
	DefaultKeyframeInterval  = 60
	DefaultPreset            = "veryfast"
	DefaultTune              = "zerolatency"
)

// Default returns a configuration populated with defaults and no sources.
func Default() Config {
	return Config{
		Server: ServerConfig{
			RTSPPort:    DefaultRTSPPort,
			BindAddress: DefaultBindAddress,
		},
		API: APIConfig{
			Listen:    DefaultAPIListen,
			RateLimit: DefaultAPIRateLimit,
		},
		Log: LogConfig{
			Level:   DefaultLogLevel,
			Service: DefaultLogService,
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			Environment:  "production",
			SamplingRate: 1.0,
		},
	}
}

// DefaultEncode returns the encoder defaults.
func DefaultEncode() EncodeConfig {
	return EncodeConfig{
		Bitrate:          DefaultBitrate,
		KeyframeInterval: DefaultKeyframeInterval,
		Preset:           DefaultPreset,
		Tune:             DefaultTune,
	}
}

// applySourceDefaults fills the per-source zero values.
func applySourceDefaults(s *Source) {
	if s.Type == SourceRTSP && s.Latency == 0 {
		s.Latency = DefaultRTSPLatency
	}
	if s.ReconnectInterval == 0 {
		s.ReconnectInterval = DefaultReconnectInterval
	}
	if s.StartTimeout == 0 {
		s.StartTimeout = DefaultStartTimeout
	}
	if s.StallTimeout == 0 {
		s.StallTimeout = DefaultStallTimeout
	}
	if s.Encode != nil {
		def := DefaultEncode()
		if s.Encode.Bitrate == 0 {
			s.Encode.Bitrate = def.Bitrate
		}
		if s.Encode.KeyframeInterval == 0 {
			s.Encode.KeyframeInterval = def.KeyframeInterval
		}
		if s.Encode.Preset == "" {
			s.Encode.Preset = def.Preset
		}
		if s.Encode.Tune == "" {
			s.Encode.Tune = def.Tune
		}
	}
}
