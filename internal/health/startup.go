// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/ManuGH/dart/internal/config"
	"github.com/ManuGH/dart/internal/log"
)

// PerformStartupChecks validates the environment before the daemon starts.
// Listener addresses must be usable; missing devices and fallback images
// only warn, since sources recover from them at runtime.
func PerformStartupChecks(_ context.Context, cfg config.Config) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Str(log.FieldEvent, "startup.checks").Msg("running pre-flight startup checks")

	if err := checkListenAddr("API", cfg.API.Listen); err != nil {
		return err
	}
	rtspAddr := net.JoinHostPort(cfg.Server.BindAddress, strconv.Itoa(cfg.Server.RTSPPort))
	if err := checkListenAddr("RTSP", rtspAddr); err != nil {
		return err
	}

	for _, src := range cfg.Sources {
		checkSourceFiles(logger, src)
	}

	logger.Info().Str(log.FieldEvent, "startup.checks_passed").Msg("all startup checks passed")
	return nil
}

func checkListenAddr(kind, addr string) error {
	if addr == "" {
		return nil
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid %s listen address %q: %w", kind, addr, err)
	}
	if host != "" && net.ParseIP(host) == nil {
		if _, err := net.LookupHost(host); err != nil {
			return fmt.Errorf("invalid %s listen host %q: %w", kind, host, err)
		}
	}
	portNum, err := strconv.Atoi(port)
	if err != nil || portNum < 0 || portNum > 65535 {
		return fmt.Errorf("invalid %s listen port %q in %q", kind, port, addr)
	}
	return nil
}

func checkSourceFiles(logger zerolog.Logger, src config.Source) {
	if src.Type == config.SourceV4L2 {
		if _, err := os.Stat(src.Device); err != nil {
			logger.Warn().
				Str(log.FieldEvent, "startup.device_missing").
				Str(log.FieldSource, src.Name).
				Str(log.FieldDevice, src.Device).
				Msg("capture device not present yet; source will wait for it")
		}
	}
	if src.Fallback != "" {
		if err := checkFileReadable(src.Fallback); err != nil {
			logger.Warn().Err(err).
				Str(log.FieldEvent, "startup.fallback_unreadable").
				Str(log.FieldSource, src.Name).
				Str(log.FieldPath, src.Fallback).
				Msg("fallback image unreadable; source runs without standby")
		}
	}
}

func checkFileReadable(path string) error {
	f, err := os.Open(path) // #nosec G304 -- path comes from operator config; verifying readability is expected
	if err != nil {
		return err
	}
	return f.Close()
}
