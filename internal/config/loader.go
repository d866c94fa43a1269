// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ManuGH/dart/internal/log"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables consulted by the loader. They take precedence over the file.
const (
	EnvRTSPPort          = "DART_RTSP_PORT"
	EnvBindAddress       = "DART_BIND_ADDRESS"
	EnvAPIListen         = "DART_API_LISTEN"
	EnvAPIRateLimit      = "DART_API_RATE_LIMIT"
	EnvLogLevel          = "DART_LOG_LEVEL"
	EnvLogService        = "DART_LOG_SERVICE"
	EnvTelemetryEnabled  = "DART_TELEMETRY_ENABLED"
	EnvTelemetryExporter = "DART_TELEMETRY_EXPORTER"
	EnvTelemetryEndpoint = "DART_TELEMETRY_ENDPOINT"
	EnvTelemetrySampling = "DART_TELEMETRY_SAMPLING_RATE"
)

// Loader handles configuration loading with precedence ENV > File > Defaults.
type Loader struct {
	configPath string
	envFile    string
	version    string
	skipped    []SkippedSource
}

// SkippedSource records a source dropped during Load because it failed validation.
type SkippedSource struct {
	Index int
	Name  string
	Err   error
}

// NewLoader creates a new configuration loader. A ".env" file next to the
// configuration file is loaded into the process environment when present.
func NewLoader(configPath, version string) *Loader {
	envFile := ""
	if configPath != "" {
		envFile = filepath.Join(filepath.Dir(configPath), ".env")
	}
	return &Loader{
		configPath: configPath,
		envFile:    envFile,
		version:    version,
	}
}

// WithEnvFile overrides the dotenv file location; empty disables dotenv loading.
func (l *Loader) WithEnvFile(path string) *Loader {
	l.envFile = path
	return l
}

// Path returns the configuration file path.
func (l *Loader) Path() string {
	return l.configPath
}

// Skipped returns the sources dropped by the last Load.
func (l *Loader) Skipped() []SkippedSource {
	return l.skipped
}

// Load enforces the order: Defaults -> File (strict) -> Env -> Source defaults -> Validate.
// Global settings must be valid. An invalid source is dropped and recorded in
// Skipped so the remaining sources can still be served.
func (l *Loader) Load() (Config, error) {
	l.skipped = nil
	cfg := Default()

	if err := l.loadEnvFile(); err != nil {
		return cfg, fmt.Errorf("load env file: %w", err)
	}

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnv(&cfg)

	for i := range cfg.Sources {
		applySourceDefaults(&cfg.Sources[i])
	}
	cfg.Version = l.version

	if err := ValidateGlobal(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	cfg.Sources = l.filterSources(cfg.Sources)
	return cfg, nil
}

func (l *Loader) filterSources(sources []Source) []Source {
	logger := log.WithComponent("config")
	kept := make([]Source, 0, len(sources))
	names := make(map[string]struct{}, len(sources))
	for i, s := range sources {
		err := ValidateSource(s)
		if err == nil {
			if _, dup := names[s.Name]; dup {
				err = fmt.Errorf("duplicate source name %q", s.Name)
			}
		}
		if err != nil {
			l.skipped = append(l.skipped, SkippedSource{Index: i, Name: s.Name, Err: err})
			logger.Error().
				Err(err).
				Str("event", "config.source_skipped").
				Int("index", i).
				Str(log.FieldSource, s.Name).
				Msg("invalid source definition, skipping")
			continue
		}
		names[s.Name] = struct{}{}
		kept = append(kept, s)
	}
	return kept
}

func (l *Loader) loadEnvFile() error {
	if l.envFile == "" {
		return nil
	}
	if _, err := os.Stat(l.envFile); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	// godotenv.Load never overrides variables that are already set.
	if err := godotenv.Load(l.envFile); err != nil {
		return err
	}
	logger := log.WithComponent("config")
	logger.Info().
		Str("event", "config.env_file_loaded").
		Str(log.FieldPath, l.envFile).
		Msg("loaded environment file")
	return nil
}

// loadFile decodes a YAML file with STRICT parsing into cfg.
// Unknown fields cause a fatal error to prevent misconfiguration.
func (l *Loader) loadFile(path string, cfg *Config) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil {
		if err == io.EOF {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("strict config parse error: %w: %w", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

func (l *Loader) mergeEnv(cfg *Config) {
	cfg.Server.RTSPPort = ParseInt(EnvRTSPPort, cfg.Server.RTSPPort)
	cfg.Server.BindAddress = ParseString(EnvBindAddress, cfg.Server.BindAddress)
	cfg.API.Listen = ParseString(EnvAPIListen, cfg.API.Listen)
	cfg.API.RateLimit = ParseInt(EnvAPIRateLimit, cfg.API.RateLimit)
	cfg.Log.Level = ParseString(EnvLogLevel, cfg.Log.Level)
	cfg.Log.Service = ParseString(EnvLogService, cfg.Log.Service)
	cfg.Telemetry.Enabled = ParseBool(EnvTelemetryEnabled, cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = ParseString(EnvTelemetryExporter, cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = ParseString(EnvTelemetryEndpoint, cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = ParseFloat(EnvTelemetrySampling, cfg.Telemetry.SamplingRate)
}
