// packet.go implements TOC byte handling and packet frame extraction per
// RFC 6716 Section 3, including the self-delimited variant of Appendix B.

package opuscore

// Mode is the Opus coding mode selected by the TOC configuration.
type Mode int

const (
	ModeSILK   Mode = iota + 1 // SILK-only (configs 0-11)
	ModeHybrid                 // Hybrid SILK+CELT (configs 12-15)
	ModeCELT                   // CELT-only (configs 16-31)
)

func (m Mode) String() string {
	switch m {
	case ModeSILK:
		return "SILK"
	case ModeHybrid:
		return "Hybrid"
	case ModeCELT:
		return "CELT"
	}
	return "unknown"
}

// Bandwidth is the audio bandwidth selected by the TOC configuration.
type Bandwidth int

const (
	BandwidthNarrowband    Bandwidth = iota + 1 // 4 kHz audio
	BandwidthMediumband                         // 6 kHz audio
	BandwidthWideband                           // 8 kHz audio
	BandwidthSuperwideband                      // 12 kHz audio
	BandwidthFullband                           // 20 kHz audio
)

func (b Bandwidth) String() string {
	switch b {
	case BandwidthNarrowband:
		return "narrowband"
	case BandwidthMediumband:
		return "mediumband"
	case BandwidthWideband:
		return "wideband"
	case BandwidthSuperwideband:
		return "superwideband"
	case BandwidthFullband:
		return "fullband"
	}
	return "unknown"
}

// Structural limits from RFC 6716 Section 3.2 and 3.4.
const (
	maxFrames           = 48   // Frames per packet (R5)
	maxFrameBytes       = 1275 // Bytes per frame (R2)
	maxPacketSamples48k = 5760 // 120 ms at 48 kHz (R5)
	packetSamplesCapNum = 3    // SampleCount cap: samples*25 > rate*3
	packetSamplesCapDen = 25   // is the rate-independent form of 120 ms
)

// TOC is the parsed Table of Contents byte leading every Opus packet.
type TOC struct {
	Config    uint8     // Configuration index 0-31
	Mode      Mode      // Derived from Config
	Bandwidth Bandwidth // Derived from Config
	FrameSize int       // Frame duration in samples at 48 kHz
	Stereo    bool      // Bit 2
	FrameCode uint8     // Bits 0-1, frame packing code 0-3
}

// configEntry holds the properties of one configuration index.
type configEntry struct {
	Mode      Mode
	Bandwidth Bandwidth
	FrameSize int // In samples at 48 kHz
}

// configTable maps configuration indices 0-31 to their properties, per the
// table in RFC 6716 Section 3.1. All 32 indices are assigned; there are no
// reserved configurations.
var configTable = [32]configEntry{
	// SILK-only NB: configs 0-3 (10/20/40/60 ms)
	{ModeSILK, BandwidthNarrowband, 480},
	{ModeSILK, BandwidthNarrowband, 960},
	{ModeSILK, BandwidthNarrowband, 1920},
	{ModeSILK, BandwidthNarrowband, 2880},
	// SILK-only MB: configs 4-7
	{ModeSILK, BandwidthMediumband, 480},
	{ModeSILK, BandwidthMediumband, 960},
	{ModeSILK, BandwidthMediumband, 1920},
	{ModeSILK, BandwidthMediumband, 2880},
	// SILK-only WB: configs 8-11
	{ModeSILK, BandwidthWideband, 480},
	{ModeSILK, BandwidthWideband, 960},
	{ModeSILK, BandwidthWideband, 1920},
	{ModeSILK, BandwidthWideband, 2880},
	// Hybrid SWB: configs 12-13 (10/20 ms)
	{ModeHybrid, BandwidthSuperwideband, 480},
	{ModeHybrid, BandwidthSuperwideband, 960},
	// Hybrid FB: configs 14-15
	{ModeHybrid, BandwidthFullband, 480},
	{ModeHybrid, BandwidthFullband, 960},
	// CELT NB: configs 16-19 (2.5/5/10/20 ms)
	{ModeCELT, BandwidthNarrowband, 120},
	{ModeCELT, BandwidthNarrowband, 240},
	{ModeCELT, BandwidthNarrowband, 480},
	{ModeCELT, BandwidthNarrowband, 960},
	// CELT WB: configs 20-23
	{ModeCELT, BandwidthWideband, 120},
	{ModeCELT, BandwidthWideband, 240},
	{ModeCELT, BandwidthWideband, 480},
	{ModeCELT, BandwidthWideband, 960},
	// CELT SWB: configs 24-27
	{ModeCELT, BandwidthSuperwideband, 120},
	{ModeCELT, BandwidthSuperwideband, 240},
	{ModeCELT, BandwidthSuperwideband, 480},
	{ModeCELT, BandwidthSuperwideband, 960},
	// CELT FB: configs 28-31
	{ModeCELT, BandwidthFullband, 120},
	{ModeCELT, BandwidthFullband, 240},
	{ModeCELT, BandwidthFullband, 480},
	{ModeCELT, BandwidthFullband, 960},
}

// ParseTOC decodes a TOC byte. Every byte value is a valid TOC; whether the
// packet body matches the frame code is ParsePacket's concern.
func ParseTOC(b byte) TOC {
	config := b >> 3
	entry := configTable[config]
	return TOC{
		Config:    config,
		Mode:      entry.Mode,
		Bandwidth: entry.Bandwidth,
		FrameSize: entry.FrameSize,
		Stereo:    b&0x04 != 0,
		FrameCode: b & 0x03,
	}
}

// GenerateTOC builds a TOC byte from a configuration index 0-31, the stereo
// flag and a frame packing code 0-3.
func GenerateTOC(config uint8, stereo bool, frameCode uint8) byte {
	toc := (config & 0x1F) << 3
	if stereo {
		toc |= 0x04
	}
	return toc | frameCode&0x03
}

// ConfigFromParams returns the configuration index for the given mode,
// bandwidth and frame size in samples at 48 kHz, or -1 if no configuration
// matches the combination.
func ConfigFromParams(mode Mode, bandwidth Bandwidth, frameSize int) int {
	for i, entry := range configTable {
		if entry.Mode == mode && entry.Bandwidth == bandwidth && entry.FrameSize == frameSize {
			return i
		}
	}
	return -1
}

// SamplesPerFrame returns the duration of one frame of a packet starting
// with the TOC byte toc, in samples at the given sample rate. The rate must
// be one of 8000, 12000, 16000, 24000 or 48000.
func SamplesPerFrame(toc byte, rate int) (int, error) {
	if !validSampleRate(rate) {
		return 0, ErrUnsupported
	}
	return configTable[toc>>3].FrameSize * rate / 48000, nil
}

// Frame locates one frame inside a packet's data.
type Frame struct {
	Offset int // Byte offset of the frame within the packet
	Length int // Frame length in bytes; zero-length (DTX) frames are legal
}

// Packet is a parsed Opus packet. It references the data it was parsed
// from without copying; the caller must not modify that data while the
// Packet or any frame view obtained from it is in use.
type Packet struct {
	TOC     TOC // Parsed TOC byte
	Padding int // Declared padding bytes (code 3 only)

	data   []byte
	frames []Frame
}

// ParsePacket splits a standard (externally delimited) Opus packet into its
// frames. The entire data slice must be exactly one packet.
func ParsePacket(data []byte) (*Packet, error) {
	p, _, err := parsePacket(data, false)
	return p, err
}

// ParsePacketSelfDelimited splits a self-delimited packet (RFC 6716
// Appendix B) from the front of data, which may extend past the packet as
// it does between the streams of a multistream payload. It additionally
// returns the number of bytes the packet occupies.
func ParsePacketSelfDelimited(data []byte) (*Packet, int, error) {
	return parsePacket(data, true)
}

// parsePacket is the single frame-extraction path for both framings,
// following the layout rules of RFC 6716 Section 3.2. Offsets and remaining
// lengths are tracked separately because length fields consume budget even
// for frames whose bytes appear much later.
func parsePacket(data []byte, selfDelimited bool) (*Packet, int, error) {
	if len(data) == 0 {
		return nil, 0, ErrPacketTooShort
	}

	toc := ParseTOC(data[0])
	offset := 1
	length := len(data) - 1
	lastSize := length
	cbr := false
	pad := 0
	count := 0

	var sizes [maxFrames]int

	switch toc.FrameCode {
	case 0:
		// One frame.
		count = 1

	case 1:
		// Two equal frames; the split is implicit, so the payload must
		// divide evenly.
		count = 2
		cbr = true
		if !selfDelimited {
			if length&1 == 1 {
				return nil, 0, ErrFrameCountMismatch
			}
			lastSize = length / 2
			sizes[0] = lastSize
		}

	case 2:
		// Two frames, first length explicit, second implicit.
		count = 2
		size, n, err := parseFrameLength(data[offset:])
		if err != nil {
			return nil, 0, err
		}
		length -= n
		if size > length {
			return nil, 0, ErrPacketTooShort
		}
		offset += n
		sizes[0] = size
		lastSize = length - size

	case 3:
		// Arbitrary frame count with a signaling byte: count in bits 0-5,
		// padding flag bit 6, VBR flag bit 7.
		if length < 1 {
			return nil, 0, ErrPacketTooShort
		}
		ch := int(data[offset])
		offset++
		length--

		count = ch & 0x3F
		if count == 0 {
			return nil, 0, ErrFrameCountMismatch
		}
		// Bounds both the count and the duration: at the smallest frame
		// size (120 samples) exactly 48 frames reach the limit.
		if toc.FrameSize*count > maxPacketSamples48k {
			return nil, 0, ErrTooManyFrames
		}

		if ch&0x40 != 0 {
			// Padding length chains: 255 contributes 254 and continues,
			// anything less terminates.
			p := 255
			for p == 255 {
				if length < 1 {
					return nil, 0, ErrPacketTooShort
				}
				p = int(data[offset])
				offset++
				length--

				add := p
				if p == 255 {
					add = 254
				}
				if add > length {
					return nil, 0, ErrPaddingOverflow
				}
				length -= add
				pad += add
			}
		}

		cbr = ch&0x80 == 0
		if !cbr {
			// VBR: explicit lengths for all but the last frame.
			lastSize = length
			for i := 0; i < count-1; i++ {
				size, n, err := parseFrameLength(data[offset:])
				if err != nil {
					return nil, 0, err
				}
				length -= n
				if size > length {
					return nil, 0, ErrPacketTooShort
				}
				offset += n
				sizes[i] = size
				lastSize -= n + size
			}
			if lastSize < 0 {
				return nil, 0, ErrPacketTooShort
			}
		} else if !selfDelimited {
			// CBR: no lengths on the wire, the payload divides evenly.
			lastSize = length / count
			if lastSize*count != length {
				return nil, 0, ErrFrameCountMismatch
			}
			for i := 0; i < count-1; i++ {
				sizes[i] = lastSize
			}
		}
	}

	if selfDelimited {
		// Self-delimited framing adds one more explicit length. It encodes
		// the last frame, or every frame for the CBR codes.
		size, n, err := parseFrameLength(data[offset:])
		if err != nil {
			return nil, 0, err
		}
		length -= n
		if size > length {
			return nil, 0, ErrPacketTooShort
		}
		offset += n
		sizes[count-1] = size

		if cbr {
			if size*count > length {
				return nil, 0, ErrPacketTooShort
			}
			for i := 0; i < count-1; i++ {
				sizes[i] = size
			}
		} else if n+size > lastSize {
			return nil, 0, ErrPacketTooShort
		}
	} else {
		// The implicit last frame has no length field to cap it, so the
		// 1275-byte maximum must be enforced here (RFC 6716 R2).
		if lastSize > maxFrameBytes {
			return nil, 0, ErrFrameTooLarge
		}
		sizes[count-1] = lastSize
	}

	frames := make([]Frame, count)
	for i := 0; i < count; i++ {
		frames[i] = Frame{Offset: offset, Length: sizes[i]}
		offset += sizes[i]
	}
	if offset+pad > len(data) {
		return nil, 0, ErrPacketTooShort
	}

	return &Packet{
		TOC:     toc,
		Padding: pad,
		data:    data,
		frames:  frames,
	}, offset + pad, nil
}

// parseFrameLength decodes one frame length field per RFC 6716 Section
// 3.2.1: one byte below 252, otherwise two bytes as first + 4*second, for a
// maximum of 1275. Returns the length and the number of bytes consumed.
func parseFrameLength(data []byte) (int, int, error) {
	if len(data) == 0 {
		return 0, 0, ErrPacketTooShort
	}
	first := int(data[0])
	if first < 252 {
		return first, 1, nil
	}
	if len(data) < 2 {
		return 0, 0, ErrPacketTooShort
	}
	return first + 4*int(data[1]), 2, nil
}

// FrameCount returns the number of frames in the packet, 1 to 48.
func (p *Packet) FrameCount() int { return len(p.frames) }

// FrameBounds returns the offset and length of frame i within the parsed
// data, without materializing a view.
func (p *Packet) FrameBounds(i int) Frame { return p.frames[i] }

// Frame returns a read-only view of frame i's bytes. The view aliases the
// parsed data and is capped so append cannot spill into the next frame.
func (p *Packet) Frame(i int) []byte {
	f := p.frames[i]
	return p.data[f.Offset : f.Offset+f.Length : f.Offset+f.Length]
}

// SampleCount returns the audio duration of the packet in samples at the
// given rate. The rate must be one of the Opus sample rates, and the total
// must not exceed 120 ms of audio.
func (p *Packet) SampleCount(rate int) (int, error) {
	if !validSampleRate(rate) {
		return 0, ErrUnsupported
	}
	samples := p.TOC.FrameSize * rate / 48000 * len(p.frames)
	if samples*packetSamplesCapDen > rate*packetSamplesCapNum {
		return 0, ErrTooManyFrames
	}
	return samples, nil
}

// Frames returns a forward-only iterator over the packet's frame views.
func (p *Packet) Frames() *FrameSeq {
	return &FrameSeq{p: p}
}

// FrameSeq iterates over a packet's frames in order. It is not restartable;
// obtain a fresh one from Packet.Frames to iterate again.
type FrameSeq struct {
	p *Packet
	i int
}

// Next returns the next frame view, or nil and false once the frames are
// exhausted.
func (s *FrameSeq) Next() ([]byte, bool) {
	if s.i >= len(s.p.frames) {
		return nil, false
	}
	f := s.p.Frame(s.i)
	s.i++
	return f, true
}
