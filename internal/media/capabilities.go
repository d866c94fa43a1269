// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package media

// Codec is the encoded output format of a mount.
type Codec string

const (
	CodecH264 Codec = "h264"
	CodecH265 Codec = "h265"
)

// Capabilities describes hardware features detected once at startup and
// passed explicitly to every component that builds descriptors.
type Capabilities struct {
	// MPP is true when the Rockchip MPP encoder and decoder are present.
	MPP bool
}

// MPP element factories.
const (
	ElementMPPEncoder = "mpph265enc"
	ElementMPPDecoder = "mppvideodec"
)

// DetectCapabilities probes the engine registry for hardware elements.
func DetectCapabilities(e Engine) Capabilities {
	return Capabilities{
		MPP: e.HasElement(ElementMPPEncoder) && e.HasElement(ElementMPPDecoder),
	}
}
