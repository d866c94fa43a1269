// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package descriptor builds textual pipeline launch descriptors from source
// configuration. All functions are pure; hardware capability is passed in.
package descriptor

import (
	"fmt"
	"strings"

	"github.com/ManuGH/dart/internal/config"
	"github.com/ManuGH/dart/internal/media"
)

// Probe and placeholder constants.
const (
	// ProbeTimeoutMicros is the rtspsrc TCP timeout used by probes.
	ProbeTimeoutMicros = 2000000
	PlaceholderWidth   = 640
	PlaceholderHeight  = 480
)

const link = " ! "

// OutputCodec returns the codec a source publishes. Only transcoded sources
// on MPP hardware produce H.265.
func OutputCodec(src config.Source, hw media.Capabilities) media.Codec {
	if src.Type == config.SourceRTSP && src.Transcode && hw.MPP {
		return media.CodecH265
	}
	return media.CodecH264
}

// Encoder returns the software x264 encoder chain.
func Encoder(enc config.EncodeConfig) string {
	return fmt.Sprintf("videoconvert ! x264enc bitrate=%d key-int-max=%d speed-preset=%s tune=%s",
		enc.Bitrate, enc.KeyframeInterval, enc.Preset, enc.Tune)
}

// MPPEncoder returns the Rockchip hardware H.265 encoder. Bitrate is
// configured in kbps; the element takes bps.
func MPPEncoder(enc config.EncodeConfig) string {
	return fmt.Sprintf("%s bps=%d gop=%d", media.ElementMPPEncoder, enc.Bitrate*1000, enc.KeyframeInterval)
}

// OutputCaps returns byte-stream, access-unit aligned caps for codec.
func OutputCaps(codec media.Codec) string {
	if codec == media.CodecH265 {
		return "video/x-h265,stream-format=byte-stream,alignment=au"
	}
	return "video/x-h264,stream-format=byte-stream,alignment=au"
}

func parser(codec media.Codec) string {
	if codec == media.CodecH265 {
		return "h265parse"
	}
	return "h264parse"
}

// AppSink returns the terminal frame sink.
func AppSink() string {
	return "appsink name=" + media.SinkName + " emit-signals=true sync=false"
}

// RTSP builds the pipeline for a remote stream source.
func RTSP(src config.Source, hw media.Capabilities) string {
	source := rtspSource(src, src.Latency) + link + "rtph264depay"

	if !src.Transcode {
		return join(source, "h264parse", OutputCaps(media.CodecH264), AppSink())
	}

	enc := src.EncodeOrDefault()
	if hw.MPP {
		caps := OutputCaps(media.CodecH265)
		return join(source, media.ElementMPPDecoder, MPPEncoder(enc), caps, "h265parse", caps, AppSink())
	}
	caps := OutputCaps(media.CodecH264)
	return join(source, "avdec_h264", Encoder(enc), caps, "h264parse", caps, AppSink())
}

// V4L2 builds the pipeline for a capture device. Capture sources are always
// encoded in software to H.264.
func V4L2(src config.Source) string {
	caps := OutputCaps(media.CodecH264)
	return join(
		v4l2Source(src),
		"videoconvert",
		"videoscale",
		scaledCaps(src),
		Encoder(src.EncodeOrDefault()),
		caps,
		"h264parse",
		caps,
		AppSink(),
	)
}

// Build dispatches on the source type.
func Build(src config.Source, hw media.Capabilities) (string, error) {
	switch src.Type {
	case config.SourceRTSP:
		if src.URL == "" {
			return "", fmt.Errorf("rtsp source %q requires url", src.Name)
		}
		return RTSP(src, hw), nil
	case config.SourceV4L2:
		if src.Device == "" {
			return "", fmt.Errorf("v4l2 source %q requires device", src.Name)
		}
		return V4L2(src), nil
	default:
		return "", fmt.Errorf("source %q: unknown type %q", src.Name, src.Type)
	}
}

// ProbeRTSP builds a connect-and-discard pipeline for a remote source.
func ProbeRTSP(src config.Source) string {
	return fmt.Sprintf("rtspsrc location=%s latency=0 timeout=%d%s ! fakesink",
		Quote(src.URL), ProbeTimeoutMicros, credentials(src))
}

// ProbeV4L2 builds a negotiate-and-discard pipeline for a capture device.
func ProbeV4L2(src config.Source) string {
	return v4l2Source(src) + link + "fakesink"
}

// Probe dispatches on the source type.
func Probe(src config.Source) (string, error) {
	switch src.Type {
	case config.SourceRTSP:
		return ProbeRTSP(src), nil
	case config.SourceV4L2:
		return ProbeV4L2(src), nil
	default:
		return "", fmt.Errorf("source %q: unknown type %q", src.Name, src.Type)
	}
}

// Placeholder builds the one-shot still image encoder. The output codec
// matches the mount so standby frames decode with the live stream's
// parameters.
func Placeholder(path string, codec media.Codec) string {
	caps := OutputCaps(codec)
	var enc string
	if codec == media.CodecH265 {
		enc = media.ElementMPPEncoder + " gop=1"
	} else {
		enc = "x264enc tune=stillimage key-int-max=1"
	}
	return join(
		"filesrc location="+Quote(path),
		"decodebin",
		"videoconvert",
		"videoscale",
		fmt.Sprintf("video/x-raw,width=%d,height=%d", PlaceholderWidth, PlaceholderHeight),
		enc,
		caps,
		parser(codec),
		caps,
		AppSink(),
	)
}

// Quote renders s as a double-quoted launch-string value so that spaces,
// '!' and quotes inside it cannot split the descriptor.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n', '\r':
			// launch strings are single-line
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func rtspSource(src config.Source, latency int) string {
	return fmt.Sprintf("rtspsrc location=%s latency=%d%s", Quote(src.URL), latency, credentials(src))
}

func credentials(src config.Source) string {
	if src.Username == "" {
		return ""
	}
	s := " user-id=" + Quote(src.Username)
	if src.Password != "" {
		s += " user-pw=" + Quote(src.Password)
	}
	return s
}

func v4l2Source(src config.Source) string {
	return "v4l2src device=" + Quote(src.Device) + rawCaps(src)
}

// rawCaps pins the capture format. Capture cards need bt601 colorimetry;
// without a format the device negotiates freely.
func rawCaps(src config.Source) string {
	if src.Format == "" {
		return ""
	}
	parts := []string{"format=" + src.Format}
	if src.Width > 0 {
		parts = append(parts, fmt.Sprintf("width=%d", src.Width))
	}
	if src.Height > 0 {
		parts = append(parts, fmt.Sprintf("height=%d", src.Height))
	}
	parts = append(parts, "colorimetry=bt601")
	return link + "video/x-raw," + strings.Join(parts, ",")
}

func scaledCaps(src config.Source) string {
	if src.Width <= 0 || src.Height <= 0 {
		return "video/x-raw"
	}
	if src.Framerate > 0 {
		return fmt.Sprintf("video/x-raw,width=%d,height=%d,framerate=%d/1", src.Width, src.Height, src.Framerate)
	}
	return fmt.Sprintf("video/x-raw,width=%d,height=%d", src.Width, src.Height)
}

func join(parts ...string) string {
	return strings.Join(parts, link)
}
