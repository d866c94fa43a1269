// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package rtspserver

import (
	"testing"
	"time"

	"github.com/bluenviron/gortsplib/v4/pkg/format"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/dart/internal/media"
)

var startCode = []byte{0, 0, 0, 1}

func annexB(nalus ...[]byte) []byte {
	var out []byte
	for _, n := range nalus {
		out = append(out, startCode...)
		out = append(out, n...)
	}
	return out
}

var (
	h264SPS = []byte{0x67, 0x42, 0xc0, 0x1f, 0xda, 0x01, 0x40, 0x16, 0xe8}
	h264PPS = []byte{0x68, 0xce, 0x3c, 0x80}
	h264AUD = []byte{0x09, 0xf0}
	h264IDR = []byte{0x65, 0x88, 0x84, 0x00, 0x33, 0xff}

	h265VPS = []byte{0x40, 0x01, 0x0c, 0x01}
	h265SPS = []byte{0x42, 0x01, 0x01, 0x01}
	h265PPS = []byte{0x44, 0x01, 0xc1, 0x72}
	h265IDR = []byte{0x26, 0x01, 0xaf, 0x06}
)

func TestNewFormat(t *testing.T) {
	h264, ok := newFormat(media.CodecH264).(*format.H264)
	require.True(t, ok)
	assert.Equal(t, uint8(96), h264.PayloadTyp)
	assert.Equal(t, 1, h264.PacketizationMode)

	_, ok = newFormat(media.CodecH265).(*format.H265)
	assert.True(t, ok)
}

func TestPacketizer_H264(t *testing.T) {
	forma := newFormat(media.CodecH264).(*format.H264)
	pk, err := newPacketizer(forma)
	require.NoError(t, err)

	t0 := time.Unix(1000, 0)
	pk.start = t0
	pk.now = func() time.Time { return t0.Add(time.Second) }

	pkts, err := pk.packetize(annexB(h264AUD, h264SPS, h264PPS, h264IDR))
	require.NoError(t, err)
	require.NotEmpty(t, pkts)

	for _, pkt := range pkts {
		assert.Equal(t, uint32(clockRate), pkt.Timestamp)
		assert.Equal(t, uint8(96), pkt.PayloadType)
	}
	assert.True(t, pkts[len(pkts)-1].Marker)

	sps, pps := forma.SafeParams()
	assert.Equal(t, h264SPS, sps)
	assert.Equal(t, h264PPS, pps)
}

func TestPacketizer_H264KeepsKnownParams(t *testing.T) {
	forma := newFormat(media.CodecH264).(*format.H264)
	pk, err := newPacketizer(forma)
	require.NoError(t, err)

	_, err = pk.packetize(annexB(h264SPS, h264PPS, h264IDR))
	require.NoError(t, err)

	newPPS := []byte{0x68, 0xee, 0x3c, 0x80}
	_, err = pk.packetize(annexB(newPPS, h264IDR))
	require.NoError(t, err)

	sps, pps := forma.SafeParams()
	assert.Equal(t, h264SPS, sps)
	assert.Equal(t, newPPS, pps)
}

func TestPacketizer_H265(t *testing.T) {
	forma := newFormat(media.CodecH265).(*format.H265)
	pk, err := newPacketizer(forma)
	require.NoError(t, err)

	pkts, err := pk.packetize(annexB(h265VPS, h265SPS, h265PPS, h265IDR))
	require.NoError(t, err)
	require.NotEmpty(t, pkts)

	vps, sps, pps := forma.SafeParams()
	assert.Equal(t, h265VPS, vps)
	assert.Equal(t, h265SPS, sps)
	assert.Equal(t, h265PPS, pps)
}

func TestPacketizer_OnlyDelimiter(t *testing.T) {
	pk, err := newPacketizer(newFormat(media.CodecH264))
	require.NoError(t, err)

	pkts, err := pk.packetize(annexB(h264AUD))
	require.NoError(t, err)
	assert.Empty(t, pkts)
}

func TestPacketizer_RejectsRawBytes(t *testing.T) {
	pk, err := newPacketizer(newFormat(media.CodecH264))
	require.NoError(t, err)

	_, err = pk.packetize([]byte{0x65, 0x88})
	assert.Error(t, err)
}

func TestPacketizer_TimestampLongUptime(t *testing.T) {
	pk, err := newPacketizer(newFormat(media.CodecH264))
	require.NoError(t, err)

	t0 := time.Unix(1000, 0)
	pk.start = t0

	tests := []struct {
		name    string
		from    time.Duration
		elapsed time.Duration
		want    uint32
	}{
		{"first second", 0, time.Second, 90000},
		{"past 28.5 hours", 102480 * time.Second, 2 * time.Second, 180000},
		{"past one week", 7 * 24 * time.Hour, 40 * time.Millisecond, 3600},
		{"past one year", 365 * 24 * time.Hour, time.Second, 90000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pk.now = func() time.Time { return t0.Add(tt.from) }
			before := pk.timestamp()
			pk.now = func() time.Time { return t0.Add(tt.from + tt.elapsed) }
			after := pk.timestamp()
			assert.Equal(t, tt.want, after-before)
		})
	}
}

func TestPacketizer_TimestampBeforeStart(t *testing.T) {
	pk, err := newPacketizer(newFormat(media.CodecH264))
	require.NoError(t, err)

	t0 := time.Unix(1000, 0)
	pk.start = t0
	pk.now = func() time.Time { return t0.Add(-time.Second) }
	assert.Equal(t, uint32(0), pk.timestamp())
}
