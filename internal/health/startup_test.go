// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/dart/internal/config"
)

func TestPerformStartupChecks(t *testing.T) {
	cfg := config.Default()
	cfg.Sources = []config.Source{{
		Name:     "cam1",
		Type:     config.SourceV4L2,
		Device:   filepath.Join(t.TempDir(), "video9"),
		Fallback: filepath.Join(t.TempDir(), "missing.png"),
	}}

	// Missing devices and fallback images only warn.
	require.NoError(t, PerformStartupChecks(context.Background(), cfg))
}

func TestPerformStartupChecks_BadListen(t *testing.T) {
	cfg := config.Default()
	cfg.API.Listen = "no-port"
	err := PerformStartupChecks(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API")

	cfg = config.Default()
	cfg.Server.RTSPPort = 70000
	err = PerformStartupChecks(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RTSP")
}

func TestCheckListenAddr(t *testing.T) {
	assert.NoError(t, checkListenAddr("API", ""))
	assert.NoError(t, checkListenAddr("API", ":9554"))
	assert.NoError(t, checkListenAddr("API", "127.0.0.1:9554"))
	assert.Error(t, checkListenAddr("API", "127.0.0.1"))
	assert.Error(t, checkListenAddr("API", "127.0.0.1:abc"))
}
