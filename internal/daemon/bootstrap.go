// SPDX-License-Identifier: MIT

// Package daemon provides the core daemon bootstrapping and lifecycle management.
package daemon

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/dart/internal/api"
	"github.com/ManuGH/dart/internal/config"
	"github.com/ManuGH/dart/internal/delivery"
	"github.com/ManuGH/dart/internal/descriptor"
	"github.com/ManuGH/dart/internal/health"
	"github.com/ManuGH/dart/internal/log"
	"github.com/ManuGH/dart/internal/media"
	"github.com/ManuGH/dart/internal/metrics"
	"github.com/ManuGH/dart/internal/placeholder"
	"github.com/ManuGH/dart/internal/rtspserver"
	"github.com/ManuGH/dart/internal/source"
	"github.com/ManuGH/dart/internal/telemetry"
)

// Options configure Bootstrap.
type Options struct {
	// ConfigPath is the path to the YAML config file
	ConfigPath string
	// EnvFile overrides the dotenv file next to ConfigPath
	EnvFile string
	// Version is the build version
	Version string
	// Engine overrides the GStreamer engine, mainly for tests
	Engine media.Engine
	// LogOutput defaults to os.Stdout
	LogOutput io.Writer
	// Prober overrides the per-source prober, mainly for tests
	Prober source.Prober
}

// Bootstrap loads the configuration and wires every component. Sources that
// fail to construct are skipped; ErrNoSources is returned when none remain.
func Bootstrap(ctx context.Context, opts Options) (*App, error) {
	loader := config.NewLoader(opts.ConfigPath, opts.Version)
	if opts.EnvFile != "" {
		loader.WithEnvFile(opts.EnvFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		metrics.IncConfigValidationError()
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log.Configure(log.Config{
		Level:   cfg.Log.Level,
		Output:  opts.LogOutput,
		Service: cfg.Log.Service,
		Version: opts.Version,
	})
	logger := log.WithComponent("daemon")
	logger.Info().
		Str(log.FieldEvent, "daemon.bootstrap").
		Str("version", opts.Version).
		Str(log.FieldPath, loader.Path()).
		Msg("starting dart")

	skipped := len(loader.Skipped())
	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		return nil, fmt.Errorf("startup checks failed: %w", err)
	}

	engine := opts.Engine
	if engine == nil {
		gst, err := media.NewGStreamer()
		if err != nil {
			return nil, fmt.Errorf("init media engine: %w", err)
		}
		engine = gst
	}
	caps := media.DetectCapabilities(engine)
	logger.Info().
		Str(log.FieldEvent, "media.capabilities").
		Bool("mpp", caps.MPP).
		Msg("detected media capabilities")

	provider, err := telemetry.NewProvider(ctx, telemetry.FromConfig(cfg.Telemetry, cfg.Log.Service, opts.Version))
	if err != nil {
		logger.Warn().Err(err).
			Str(log.FieldEvent, "telemetry.init_failed").
			Msg("telemetry initialization failed, continuing without tracing")
		provider = nil
	}

	rtspAddr := net.JoinHostPort(cfg.Server.BindAddress, strconv.Itoa(cfg.Server.RTSPPort))
	rtsp := rtspserver.New(rtspAddr)
	registry := source.NewRegistry()
	hm := health.NewManager(opts.Version)
	placeholders := placeholder.NewCache(engine)
	devices := source.NewDeviceWatcher()

	for _, src := range cfg.Sources {
		if err := addSource(ctx, logger, src, engine, caps, opts.Prober, placeholders, devices, registry, rtsp, hm); err != nil {
			skipped++
			logger.Error().Err(err).
				Str(log.FieldEvent, "source.skipped").
				Str(log.FieldSource, src.Name).
				Msg("failed to set up source, skipping")
		}
	}
	metrics.AddSourcesSkipped(skipped)
	metrics.RecordSourcesConfigured(registry.Len())
	if registry.Len() == 0 {
		return nil, ErrNoSources
	}
	hm.RegisterChecker(health.NewListenerChecker("rtsp", rtspAddr))

	tracing := ""
	if provider != nil && provider.Enabled() {
		tracing = cfg.Log.Service
	}
	apiSrv, err := api.New(api.Config{
		Version:        opts.Version,
		RateLimit:      cfg.API.RateLimit,
		TracingService: tracing,
		RTSPBase:       "rtsp://" + publicHost(cfg.Server.BindAddress, cfg.Server.RTSPPort),
	}, api.Deps{
		Sources: registry,
		Mounts:  rtsp,
		Health:  hm,
	})
	if err != nil {
		return nil, fmt.Errorf("build API: %w", err)
	}

	mgr, err := NewManager(DefaultServerConfig(cfg.API.Listen), Deps{
		Logger:     logger,
		APIHandler: apiSrv.Handler(),
		RTSP:       rtsp,
		Sources:    registry,
	})
	if err != nil {
		return nil, err
	}
	if provider != nil {
		mgr.RegisterShutdownHook("telemetry", provider.Shutdown)
	}

	app := NewApp(logger, mgr)
	watcher := config.NewWatcher(loader)
	app.AddRunner("config-watcher", watcher)
	if devices.Len() > 0 {
		app.AddRunner("device-watcher", devices)
	}
	return app, nil
}

func addSource(
	ctx context.Context,
	logger zerolog.Logger,
	src config.Source,
	engine media.Engine,
	caps media.Capabilities,
	prober source.Prober,
	placeholders *placeholder.Cache,
	devices *source.DeviceWatcher,
	registry *source.Registry,
	rtsp *rtspserver.Server,
	hm *health.Manager,
) error {
	codec := descriptor.OutputCodec(src, caps)

	var frame []byte
	if src.Type == config.SourceRTSP && src.Fallback != "" {
		ph, err := placeholders.Get(ctx, src.Fallback, codec)
		if err != nil {
			logger.Warn().Err(err).
				Str(log.FieldEvent, "placeholder.encode_failed").
				Str(log.FieldSource, src.Name).
				Str(log.FieldPath, src.Fallback).
				Msg("failed to encode fallback image; source runs without standby")
		} else {
			frame = ph.Data()
		}
	}

	var wake <-chan struct{}
	if src.Type == config.SourceV4L2 {
		wake = devices.Subscribe(src.Device)
	}

	slot := &delivery.Slot{}
	sup, err := source.NewSupervisor(source.Options{
		Source:        src,
		Engine:        engine,
		Caps:          caps,
		Slot:          slot,
		Placeholder:   frame,
		Prober:        prober,
		Wake:          wake,
		ReconnectPoll: time.Duration(src.ReconnectInterval) * time.Second,
		Executor: source.ExecutorOptions{
			StartTimeout: time.Duration(src.StartTimeout) * time.Millisecond,
			StallTimeout: time.Duration(src.StallTimeout) * time.Millisecond,
		},
	})
	if err != nil {
		return err
	}

	var creds *rtspserver.Credentials
	if src.AuthEnabled() {
		creds = &rtspserver.Credentials{Username: src.Auth.Username, Password: src.Auth.Password}
	}
	if err := rtsp.AddMount(rtspserver.Mount{
		Name:  src.Name,
		Codec: sup.Codec(),
		Slot:  slot,
		Auth:  creds,
	}); err != nil {
		return err
	}
	if err := registry.Add(sup); err != nil {
		rtsp.RemoveMount(src.Name)
		return err
	}

	hm.RegisterChecker(health.NewSourceChecker(sup))
	if src.Type == config.SourceRTSP && src.Fallback != "" {
		hm.RegisterChecker(health.NewFileChecker("fallback:"+src.Name, src.Fallback))
	}
	return nil
}

// publicHost renders the host:port clients should dial.
func publicHost(bind string, port int) string {
	host := bind
	if ip := net.ParseIP(bind); bind == "" || (ip != nil && ip.IsUnspecified()) {
		if h, err := os.Hostname(); err == nil && h != "" {
			host = h
		} else {
			host = "localhost"
		}
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// WaitForShutdown returns a context cancelled on interrupt/termination signals.
func WaitForShutdown() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
