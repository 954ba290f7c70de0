// errors.go defines the public error taxonomy for the opuscore package.

package opuscore

import (
	"errors"
	"fmt"
)

// ErrFormat is the category for all malformed-packet errors. Every parse
// failure wraps it, so callers that only care whether a packet is usable
// can test errors.Is(err, ErrFormat) and drop the packet.
var ErrFormat = errors.New("opuscore: malformed packet")

// Specific parse failures, all wrapping ErrFormat.
var (
	// ErrPacketTooShort indicates the packet ends before its declared
	// structure does: a missing TOC, a truncated length field, or a frame
	// extending past the end of the data.
	ErrPacketTooShort = fmt.Errorf("%w: truncated packet", ErrFormat)

	// ErrFrameCountMismatch indicates the packet's byte count cannot be
	// reconciled with its frame code: an odd payload split into two equal
	// frames, a CBR payload not divisible by the frame count, or a frame
	// count of zero.
	ErrFrameCountMismatch = fmt.Errorf("%w: frame sizes inconsistent with frame code", ErrFormat)

	// ErrTooManyFrames indicates the packet's frames exceed the 120 ms
	// audio limit (RFC 6716 R5).
	ErrTooManyFrames = fmt.Errorf("%w: packet exceeds 120 ms of audio", ErrFormat)

	// ErrPaddingOverflow indicates the declared padding is larger than the
	// bytes actually remaining in the packet.
	ErrPaddingOverflow = fmt.Errorf("%w: padding exceeds remaining packet bytes", ErrFormat)

	// ErrFrameTooLarge indicates an implicitly sized frame above the 1275
	// byte maximum a length field could have expressed (RFC 6716 R2).
	ErrFrameTooLarge = fmt.Errorf("%w: frame exceeds 1275 bytes", ErrFormat)
)

// ErrUnsupported indicates a request outside what this package implements,
// such as a sample rate other than the five Opus rates. It is distinct from
// ErrFormat: the input may be well formed, the parameters are not.
var ErrUnsupported = errors.New("opuscore: unsupported parameter")

// validSampleRate reports whether rate is one of the Opus sample rates.
func validSampleRate(rate int) bool {
	switch rate {
	case 8000, 12000, 16000, 24000, 48000:
		return true
	}
	return false
}
