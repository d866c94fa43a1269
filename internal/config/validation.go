// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/ManuGH/dart/internal/validate"
)

const maxWatchdogTimeout = 600000 // ms

var (
	x264Presets = []string{
		"ultrafast", "superfast", "veryfast", "faster", "fast",
		"medium", "slow", "slower", "veryslow", "placebo",
	}
	x264Tunes = []string{"stillimage", "fastdecode", "zerolatency"}

	// rawFormatRe matches GStreamer raw video format names (UYVY, NV12, GRAY8).
	rawFormatRe = regexp.MustCompile(`^[A-Za-z0-9_]{1,32}$`)
)

// Validate checks the whole configuration and reports every problem at once.
func Validate(cfg Config) error {
	v := validate.New()
	validateGlobal(v, cfg)

	seen := make(map[string]int, len(cfg.Sources))
	for i, s := range cfg.Sources {
		validateSource(v, fmt.Sprintf("sources[%d]", i), s)
		if prev, dup := seen[s.Name]; dup && s.Name != "" {
			v.AddError(fmt.Sprintf("sources[%d].name", i),
				fmt.Sprintf("duplicate source name (already used by sources[%d])", prev), s.Name)
			continue
		}
		seen[s.Name] = i
	}
	return v.Err()
}

// ValidateGlobal checks everything except the source list.
func ValidateGlobal(cfg Config) error {
	v := validate.New()
	validateGlobal(v, cfg)
	return v.Err()
}

// ValidateSource checks a single source definition.
func ValidateSource(s Source) error {
	v := validate.New()
	validateSource(v, "source", s)
	return v.Err()
}

func validateGlobal(v *validate.Validator, cfg Config) {
	v.Port("server.rtsp_port", cfg.Server.RTSPPort)
	v.NotEmpty("server.bind_address", cfg.Server.BindAddress)

	if cfg.API.RateLimit < 0 {
		v.AddError("api.rate_limit", "value cannot be negative", cfg.API.RateLimit)
	}
	if _, err := validate.ParseLogLevel(strings.ToLower(cfg.Log.Level)); err != nil {
		v.AddError("log.level", "must be one of debug, info, warn, error", cfg.Log.Level)
	}

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		if cfg.Telemetry.SamplingRate < 0 || cfg.Telemetry.SamplingRate > 1 {
			v.AddError("telemetry.sampling_rate", "must be between 0.0 and 1.0", cfg.Telemetry.SamplingRate)
		}
	}
}

func validateSource(v *validate.Validator, prefix string, s Source) {
	field := func(name string) string { return prefix + "." + name }

	v.Name(field("name"), s.Name)
	v.OneOf(field("type"), string(s.Type), []string{string(SourceV4L2), string(SourceRTSP)})

	switch s.Type {
	case SourceV4L2:
		if strings.TrimSpace(s.Device) == "" {
			v.AddError(field("device"), "v4l2 source requires 'device'", s.Device)
		}
		if s.Encode == nil {
			v.AddError(field("encode"), "v4l2 source requires 'encode' settings (raw video must be encoded)", nil)
		}
		if s.Format != "" && !rawFormatRe.MatchString(s.Format) {
			v.AddError(field("format"), "must be a raw video format name such as UYVY or NV12", s.Format)
		}
		if (s.Width == 0) != (s.Height == 0) {
			v.AddError(field("width"), "width and height must be set together", s.Width)
		}
	case SourceRTSP:
		if strings.TrimSpace(s.URL) == "" {
			v.AddError(field("url"), "rtsp source requires 'url'", s.URL)
		} else {
			v.URL(field("url"), s.URL, []string{"rtsp", "rtsps"})
		}
		if s.Transcode && s.Encode == nil {
			v.AddError(field("encode"), "transcode=true requires 'encode' settings", nil)
		}
		if s.Latency < 0 || s.Latency > 10000 {
			v.AddError(field("latency"), "must be between 0 and 10000 ms", s.Latency)
		}
	}

	if s.Encode != nil {
		if s.Encode.Bitrate < 0 {
			v.AddError(field("encode.bitrate"), "value cannot be negative", s.Encode.Bitrate)
		}
		if s.Encode.KeyframeInterval < 0 {
			v.AddError(field("encode.keyframe_interval"), "value cannot be negative", s.Encode.KeyframeInterval)
		}
		if s.Encode.Preset != "" {
			v.OneOf(field("encode.preset"), s.Encode.Preset, x264Presets)
		}
		if s.Encode.Tune != "" {
			// x264enc accepts combined flags such as "zerolatency+fastdecode".
			for _, part := range strings.Split(s.Encode.Tune, "+") {
				if !slices.Contains(x264Tunes, part) {
					v.AddError(field("encode.tune"), "must be stillimage, fastdecode, zerolatency or a '+' combination", s.Encode.Tune)
					break
				}
			}
		}
	}

	if s.Auth != nil && s.Auth.Enabled {
		v.NotEmpty(field("auth.username"), s.Auth.Username)
		v.NotEmpty(field("auth.password"), s.Auth.Password)
	}

	if s.ReconnectInterval < 0 {
		v.AddError(field("reconnect_interval"), "value cannot be negative", s.ReconnectInterval)
	}
	v.Range(field("start_timeout"), s.StartTimeout, 0, maxWatchdogTimeout)
	v.Range(field("stall_timeout"), s.StallTimeout, 0, maxWatchdogTimeout)
}
