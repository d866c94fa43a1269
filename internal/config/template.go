// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// Template is the annotated starter configuration written by "dart config init".
const Template = `# dart configuration
#
# Every source is published at rtsp://<host>:<rtsp_port>/<name>/stream
# Environment variables (DART_*) override the values below.

server:
  rtsp_port: 8554
  bind_address: 0.0.0.0

api:
  # HTTP status API (/api/sources, /healthz, /readyz, /metrics). Empty disables it.
  listen: ":9554"
  rate_limit: 600

log:
  level: info
  service: dart

telemetry:
  enabled: false
  exporter: grpc
  endpoint: localhost:4317
  environment: production
  sampling_rate: 1.0

sources:
  - name: cam1
    type: rtsp
    url: rtsp://192.168.1.10:554/stream1
    # username: admin
    # password: secret
    latency: 200
    transcode: false
    # Still image streamed while the camera is unreachable.
    # fallback: /etc/dart/offline.png
    reconnect_interval: 2
    # Restart the pipeline when no frame arrives for this long (ms).
    # start_timeout: 10000
    # stall_timeout: 5000
    # auth:
    #   enabled: true
    #   username: viewer
    #   password: change-me

  # - name: hdmi-in
  #   type: v4l2
  #   device: /dev/video0
  #   width: 1920
  #   height: 1080
  #   framerate: 30
  #   format: UYVY
  #   encode:
  #     bitrate: 4000
  #     keyframe_interval: 60
  #     preset: veryfast
  #     tune: zerolatency
`

// WriteTemplate atomically writes Template to path. An existing file is only
// replaced when force is set.
func WriteTemplate(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("stat %s: %w", path, err)
		}
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	if err := renameio.WriteFile(path, []byte(Template), 0o600); err != nil {
		return fmt.Errorf("write config template: %w", err)
	}
	return nil
}
