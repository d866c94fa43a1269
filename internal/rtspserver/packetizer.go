// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package rtspserver

import (
	"fmt"
	"time"

	"github.com/bluenviron/gortsplib/v4/pkg/format"
	"github.com/bluenviron/mediacommon/pkg/codecs/h264"
	"github.com/bluenviron/mediacommon/pkg/codecs/h265"
	"github.com/pion/rtp"

	"github.com/ManuGH/dart/internal/media"
)

const (
	payloadType = 96
	clockRate   = 90000
)

// newFormat returns the RTP format for codec.
func newFormat(codec media.Codec) format.Format {
	if codec == media.CodecH265 {
		return &format.H265{PayloadTyp: payloadType}
	}
	return &format.H264{PayloadTyp: payloadType, PacketizationMode: 1}
}

type rtpEncoder interface {
	Encode(au [][]byte) ([]*rtp.Packet, error)
}

// packetizer turns Annex-B access units into timestamped RTP packets and
// keeps the parameter sets of the format current.
type packetizer struct {
	forma format.Format
	enc   rtpEncoder
	start time.Time
	now   func() time.Time
}

func newPacketizer(forma format.Format) (*packetizer, error) {
	var (
		enc rtpEncoder
		err error
	)
	switch f := forma.(type) {
	case *format.H264:
		enc, err = f.CreateEncoder()
	case *format.H265:
		enc, err = f.CreateEncoder()
	default:
		return nil, fmt.Errorf("unsupported format %T", forma)
	}
	if err != nil {
		return nil, fmt.Errorf("create rtp encoder: %w", err)
	}
	return &packetizer{forma: forma, enc: enc, start: time.Now(), now: time.Now}, nil
}

// packetize splits an Annex-B access unit and encodes it.
func (p *packetizer) packetize(data []byte) ([]*rtp.Packet, error) {
	au, err := h264.AnnexBUnmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("split access unit: %w", err)
	}
	au = p.updateParams(au)
	if len(au) == 0 {
		return nil, nil
	}

	pkts, err := p.enc.Encode(au)
	if err != nil {
		return nil, fmt.Errorf("encode access unit: %w", err)
	}
	ts := p.timestamp()
	for _, pkt := range pkts {
		pkt.Timestamp = ts
	}
	return pkts, nil
}

func (p *packetizer) timestamp() uint32 {
	// Wraps modulo 2^32 as RTP expects.
	elapsed := p.now().Sub(p.start)
	if elapsed < 0 {
		elapsed = 0
	}
	return uint32(uint64(elapsed) * (clockRate / 10000) / (uint64(time.Second) / 10000))
}

// updateParams records in-band parameter sets on the format and drops
// access unit delimiters.
func (p *packetizer) updateParams(au [][]byte) [][]byte {
	out := au[:0]
	switch f := p.forma.(type) {
	case *format.H264:
		var sps, pps []byte
		for _, nalu := range au {
			if len(nalu) == 0 {
				continue
			}
			switch h264.NALUType(nalu[0] & 0x1F) {
			case h264.NALUTypeSPS:
				sps = nalu
			case h264.NALUTypePPS:
				pps = nalu
			case h264.NALUTypeAccessUnitDelimiter:
				continue
			}
			out = append(out, nalu)
		}
		if sps != nil || pps != nil {
			curSPS, curPPS := f.SafeParams()
			if sps == nil {
				sps = curSPS
			}
			if pps == nil {
				pps = curPPS
			}
			f.SafeSetParams(sps, pps)
		}
	case *format.H265:
		var vps, sps, pps []byte
		for _, nalu := range au {
			if len(nalu) < 2 {
				continue
			}
			switch h265.NALUType((nalu[0] >> 1) & 0x3F) {
			case h265.NALUType_VPS_NUT:
				vps = nalu
			case h265.NALUType_SPS_NUT:
				sps = nalu
			case h265.NALUType_PPS_NUT:
				pps = nalu
			case h265.NALUType_AUD_NUT:
				continue
			}
			out = append(out, nalu)
		}
		if vps != nil || sps != nil || pps != nil {
			curVPS, curSPS, curPPS := f.SafeParams()
			if vps == nil {
				vps = curVPS
			}
			if sps == nil {
				sps = curSPS
			}
			if pps == nil {
				pps = curPPS
			}
			f.SafeSetParams(vps, sps, pps)
		}
	}
	return out
}
