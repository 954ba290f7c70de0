package rangecoding

import (
	"errors"
	"fmt"
	"math/bits"
)

// ErrDecode reports a corrupt or truncated range-coded stream. Decode errors
// are sticky: once a decoder has failed, every further operation returns the
// same error.
var ErrDecode = errors.New("rangecoding: corrupt or truncated stream")

var (
	errRawBitsOverrun = fmt.Errorf("%w: raw bits overrun range-coded data", ErrDecode)
	errUniformRange   = fmt.Errorf("%w: uniform value out of range", ErrDecode)
)

// Decoder is the range decoder per RFC 6716 Section 4.1, bit-exact with
// libopus entdec.c. It operates over exactly one frame's byte range and owns
// its cursors exclusively; the underlying buffer is never written.
//
// The lifecycle per frame is Init, any number of decode operations, then
// Finalize. Using a finalized decoder is a programming error and panics.
type Decoder struct {
	buf        []byte // Input frame
	storage    uint32 // Frame size in bytes
	offs       uint32 // Forward byte cursor (modeled symbols)
	endOffs    uint32 // Bytes consumed from the end (raw bits)
	endWindow  uint32 // Raw-bit window
	nendBits   int    // Valid bits in endWindow
	nbitsTotal int    // Whole bits read, including renormalization lookahead
	rng        uint32 // Interval width; EC_CODE_BOT < rng <= EC_CODE_TOP after every operation
	val        uint32 // Offset of the coded value within the interval
	ext        uint32 // Normalization factor saved between decode() and update()
	rem        int    // Partial byte straddling the last renormalization
	err        error  // Sticky decode error
	finalized  bool
}

// Init loads the range-coder bootstrap from the start of buf, per libopus
// ec_dec_init: the range starts at 1<<EC_CODE_EXTRA, the value is seeded
// from the first byte's high bits, and a first renormalization widens the
// range to its full band. The decoder keeps a reference to buf but never
// modifies it; buf must stay unchanged for the decoder's lifetime.
func (d *Decoder) Init(buf []byte) {
	d.buf = buf
	d.storage = uint32(len(buf))
	d.offs = 0
	d.endOffs = 0
	d.endWindow = 0
	d.nendBits = 0
	d.err = nil
	d.finalized = false

	d.rng = 1 << EC_CODE_EXTRA
	d.rem = int(d.readByte())
	d.val = d.rng - 1 - uint32(d.rem>>(EC_SYM_BITS-EC_CODE_EXTRA))

	// Set before normalize() so Tell() lands on the same value the encoder
	// reports after its own initialization.
	d.nbitsTotal = EC_CODE_BITS + 1 -
		((EC_CODE_BITS-EC_CODE_EXTRA)/EC_SYM_BITS)*EC_SYM_BITS
	d.ext = 0

	d.normalize()
}

// readByte reads the next byte from the front of the frame, or 0 past the
// end (the encoder's final flush relies on implicit trailing zeros).
func (d *Decoder) readByte() byte {
	if d.offs < d.storage {
		b := d.buf[d.offs]
		d.offs++
		return b
	}
	return 0
}

// readByteFromEnd reads the next raw-bit byte from the back of the frame,
// advancing backward, or 0 once the frame is exhausted.
func (d *Decoder) readByteFromEnd() byte {
	if d.endOffs < d.storage {
		d.endOffs++
		return d.buf[d.storage-d.endOffs]
	}
	return 0
}

// normalize restores the invariant rng > EC_CODE_BOT, shifting in one input
// byte per iteration. RFC 6716 Section 4.1.2.1.
func (d *Decoder) normalize() {
	for d.rng <= EC_CODE_BOT {
		d.nbitsTotal += EC_SYM_BITS
		d.rng <<= EC_SYM_BITS

		// The next 8 code bits straddle the previous byte and the new one.
		sym := d.rem
		d.rem = int(d.readByte())
		sym = (sym<<EC_SYM_BITS | d.rem) >> (EC_SYM_BITS - EC_CODE_EXTRA)

		d.val = ((d.val << EC_SYM_BITS) + uint32(EC_SYM_MAX&^sym)) & (EC_CODE_TOP - 1)
	}
}

func (d *Decoder) active() {
	if d.finalized {
		panic("rangecoding: Decoder used after Finalize")
	}
}

// DecodeICDF decodes one symbol against an 8-bit ICDF table: a linear search
// for the unique index whose frequency range contains the current value,
// then interval narrowing and renormalization.
func (d *Decoder) DecodeICDF(tab ICDF) (int, error) {
	d.active()
	if d.err != nil {
		return 0, d.err
	}
	s := d.rng
	dval := d.val
	r := s >> tab.bits
	ret := -1
	for {
		prev := s
		ret++
		s = r * uint32(tab.tail[ret])
		if dval >= s {
			d.val = dval - s
			d.rng = prev - s
			d.normalize()
			return ret, nil
		}
	}
}

// DecodeICDF16 is DecodeICDF for 16-bit tables.
func (d *Decoder) DecodeICDF16(tab ICDF16) (int, error) {
	d.active()
	if d.err != nil {
		return 0, d.err
	}
	s := d.rng
	dval := d.val
	r := s >> tab.bits
	ret := -1
	for {
		prev := s
		ret++
		s = r * uint32(tab.tail[ret])
		if dval >= s {
			d.val = dval - s
			d.rng = prev - s
			d.normalize()
			return ret, nil
		}
	}
}

// DecodeBit decodes a single bit that was encoded with probability
// 1/(1<<logp) of being 1. The 1 outcome occupies the bottom region of the
// interval, per libopus ec_dec_bit_logp.
func (d *Decoder) DecodeBit(logp uint) (int, error) {
	d.active()
	if d.err != nil {
		return 0, d.err
	}
	r := d.rng
	dval := d.val
	s := r >> logp

	ret := 0
	if dval < s {
		ret = 1
		d.rng = s
	} else {
		d.val = dval - s
		d.rng = r - s
	}
	d.normalize()
	return ret, nil
}

// Decode returns the cumulative frequency implied by the current state,
// scaled against a total of ft, without consuming the symbol. The caller
// maps it to a symbol through its own model and must follow with exactly
// one Update call. This split mirrors libopus ec_decode/ec_dec_update and
// is what consumers that adapt probabilities between symbols build on.
//
// After a decode error the split API freezes: Decode and DecodeBin return
// 0, Update is a no-op, and Err reports the failure.
func (d *Decoder) Decode(ft uint32) uint32 {
	d.active()
	if d.err != nil {
		return 0
	}
	return d.decode(ft)
}

func (d *Decoder) decode(ft uint32) uint32 {
	d.ext = d.rng / ft
	s := d.val / d.ext
	if s+1 > ft {
		s = ft - 1
	}
	return ft - (s + 1)
}

// DecodeBin is Decode for a power-of-two total 1<<bits.
func (d *Decoder) DecodeBin(bits uint) uint32 {
	d.active()
	if d.err != nil {
		return 0
	}
	ft := uint32(1) << bits
	d.ext = d.rng >> bits
	s := d.val / d.ext
	if s+1 > ft {
		s = ft - 1
	}
	return ft - (s + 1)
}

// Update advances past the symbol whose cumulative frequency range is
// [fl, fh) out of ft, completing a preceding Decode or DecodeBin call.
func (d *Decoder) Update(fl, fh, ft uint32) {
	d.active()
	if d.err != nil {
		return
	}
	d.update(fl, fh, ft)
}

func (d *Decoder) update(fl, fh, ft uint32) {
	s := d.ext * (ft - fh)
	d.val -= s
	if fl > 0 {
		d.rng = d.ext * (fh - fl)
	} else {
		d.rng -= s
	}
	d.normalize()
}

// DecodeUniform decodes a uniformly distributed value in [0, ft), exactly as
// libopus ec_dec_uint: totals wider than EC_UINT_BITS split into a
// range-coded high part and raw low bits. For a power-of-two ft the result
// is identical to decoding against a flat table of ft equal entries.
func (d *Decoder) DecodeUniform(ft uint32) (uint32, error) {
	d.active()
	if d.err != nil {
		return 0, d.err
	}
	if ft <= 1 {
		return 0, nil
	}

	ft--
	ftb := ilog(ft)
	if ftb > EC_UINT_BITS {
		ftb -= EC_UINT_BITS
		ft1 := (ft >> uint(ftb)) + 1
		s := d.decode(ft1)
		d.update(s, s+1, ft1)

		low, err := d.DecodeRawBits(uint(ftb))
		if err != nil {
			return ft, err
		}
		t := s<<uint(ftb) | low
		if t <= ft {
			return t, nil
		}
		// The coded value lies outside [0, ft): the stream is corrupt. The
		// result saturates so a caller that ignores the error stays in range.
		d.err = errUniformRange
		return ft, d.err
	}

	ft++
	s := d.decode(ft)
	d.update(s, s+1, ft)
	return s, nil
}

// DecodeRawBits reads n unmodeled bits from the backward cursor at the end
// of the frame, independent of the forward symbol cursor. n must be at most
// 25. The forward and backward cursors share the frame's bit budget; a read
// that would push total consumption past the frame's capacity means the two
// cursors have crossed, and fails rather than fabricating zero bits.
func (d *Decoder) DecodeRawBits(n uint) (uint32, error) {
	d.active()
	if d.err != nil {
		return 0, d.err
	}
	if n == 0 {
		return 0, nil
	}
	if n > maxRawBits {
		panic("rangecoding: raw bit count out of range")
	}
	if d.Tell()+int(n) > int(d.storage)*EC_SYM_BITS {
		d.err = errRawBitsOverrun
		return 0, d.err
	}

	for d.nendBits < int(n) {
		d.endWindow |= uint32(d.readByteFromEnd()) << d.nendBits
		d.nendBits += EC_SYM_BITS
	}

	v := d.endWindow & ((1 << n) - 1)
	d.endWindow >>= n
	d.nendBits -= int(n)
	d.nbitsTotal += int(n)
	return v, nil
}

// Finalize marks the decoder terminal and reports the number of bytes
// consumed, rounding the bit count up. Any decode operation after Finalize
// panics.
func (d *Decoder) Finalize() (int, error) {
	d.active()
	d.finalized = true
	if d.err != nil {
		return 0, d.err
	}
	return (d.Tell() + 7) / 8, nil
}

// Err returns the sticky decode error, if any.
func (d *Decoder) Err() error { return d.err }

// Tell returns the number of bits consumed so far.
func (d *Decoder) Tell() int {
	return d.nbitsTotal - ilog(d.rng)
}

// TellFrac returns the number of bits consumed in units of 1/8 bit. The
// value matches the encoder's TellFrac at the same point in the symbol
// stream, which is what bit-budget decisions on both sides compare.
func (d *Decoder) TellFrac() int {
	return tellFrac(d.nbitsTotal, d.rng)
}

// Range returns the current interval width.
func (d *Decoder) Range() uint32 { return d.rng }

// State returns the internal (rng, val) pair, for bit-exact comparisons in
// tests.
func (d *Decoder) State() (uint32, uint32) { return d.rng, d.val }

// tellFrac computes bit usage at 1/8-bit resolution from the whole-bit
// counter and the current range, using the correction table from the
// reference instead of the RFC's loop.
func tellFrac(nbitsTotal int, rng uint32) int {
	correction := [8]uint32{35733, 38967, 42495, 46340, 50535, 55109, 60097, 65535}

	nbits := nbitsTotal << 3
	l := ilog(rng)
	r := rng >> (l - 16)
	b := int((r >> 12) - 8)
	if r > correction[b] {
		b++
	}
	return nbits - ((l << 3) + b)
}

// ilog returns the position of the highest set bit plus one, 0 for 0.
func ilog(x uint32) int {
	return bits.Len32(x)
}
