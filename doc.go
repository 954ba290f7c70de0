// Package opuscore implements the bitstream core of the Opus audio codec
// in pure Go: packet framing per RFC 6716 Section 3 and, in the rangecoding
// subpackage, the range coder of Section 4.1.
//
// It is the layer every Opus encoder and decoder sits on. Packet parsing
// splits a packet into its frames without copying; the range coder turns a
// frame's bytes into a stream of modeled symbols and raw bits, bit-exact
// with the reference libopus implementation. No cgo is required.
//
// # Packet Structure
//
// Each Opus packet starts with a TOC (Table of Contents) byte:
//   - Bits 7-3: Configuration (0-31), selecting mode, bandwidth and frame size
//   - Bit 2: Stereo flag
//   - Bits 1-0: Frame count code (0-3)
//
// Use ParseTOC to extract these fields, ParsePacket to locate the frame
// boundaries within a packet, and ParsePacketSelfDelimited for the
// self-delimited framing used between the streams of a multistream payload.
//
// # Error Handling
//
// All parse failures wrap ErrFormat; test errors.Is(err, ErrFormat) to
// treat every malformed packet uniformly. Parameter problems (such as an
// unsupported sample rate) report ErrUnsupported instead. Malformed input
// never panics.
package opuscore
