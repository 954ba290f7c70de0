package rangecoding

import "errors"

// ErrBufferFull reports that the encoder ran out of output space. Like
// decode errors it is sticky; Finalize reports it even when the overflow
// happened many symbols earlier.
var ErrBufferFull = errors.New("rangecoding: output buffer full")

// Encoder is the range encoder per RFC 6716 Section 4.1, bit-exact with
// libopus entenc.c and the symmetric inverse of Decoder. Modeled symbols
// grow from the front of the buffer, raw bits from the back.
//
// The lifecycle per frame is Init, any number of encode operations, then
// Finalize. Using a finalized encoder is a programming error and panics.
type Encoder struct {
	buf        []byte // Output buffer, pre-allocated to the frame's maximum size
	storage    uint32 // Buffer capacity
	offs       uint32 // Forward byte cursor (range-coded bytes)
	endOffs    uint32 // Bytes written at the end (raw bits)
	endWindow  uint32 // Raw-bit window
	nendBits   int    // Valid bits in endWindow
	nbitsTotal int    // Whole bits written
	rng        uint32 // Interval width; EC_CODE_BOT < rng <= EC_CODE_TOP after every operation
	val        uint32 // Low end of the interval
	rem        int    // Byte awaiting carry resolution, -1 when none is buffered
	ext        uint32 // Run length of pending 0xFF bytes awaiting carry resolution
	err        error  // Sticky encode error
	shrunk     bool   // Shrink was called; Finalize returns exactly storage bytes
	finalized  bool
}

// Init readies the encoder to write into buf. The interval starts at full
// width with no bytes buffered.
func (e *Encoder) Init(buf []byte) {
	e.buf = buf
	e.storage = uint32(len(buf))
	e.offs = 0
	e.endOffs = 0
	e.endWindow = 0
	e.nendBits = 0
	e.nbitsTotal = EC_CODE_BITS + 1
	e.rng = EC_CODE_TOP
	e.val = 0
	e.rem = -1
	e.ext = 0
	e.err = nil
	e.shrunk = false
	e.finalized = false
}

func (e *Encoder) active() {
	if e.finalized {
		panic("rangecoding: Encoder used after Finalize")
	}
}

func (e *Encoder) setErr(err error) {
	if e.err == nil {
		e.err = err
	}
}

// carryOut emits one code symbol, resolving carry propagation. A 0xFF
// symbol cannot be written yet because a later carry could still ripple
// through it, so it only bumps the pending-run counter; any other symbol
// resolves the run: the carry bit (bit 8 of c) is added to the buffered
// byte, the pending 0xFF bytes become 0x00 on carry or stay 0xFF, and the
// low byte of c becomes the new buffered byte.
//
// This is libopus ec_enc_carry_out, the counted-run form of carry ripple.
func (e *Encoder) carryOut(c int) {
	if c != EC_SYM_MAX {
		carry := c >> EC_SYM_BITS

		if e.rem >= 0 {
			e.writeByte(byte(e.rem + carry))
		}
		if e.ext > 0 {
			sym := (EC_SYM_MAX + carry) & EC_SYM_MAX
			for e.ext > 0 {
				e.writeByte(byte(sym))
				e.ext--
			}
		}
		e.rem = c & EC_SYM_MAX
	} else {
		e.ext++
	}
}

// normalize restores rng > EC_CODE_BOT, emitting the high byte of val each
// iteration through carryOut.
func (e *Encoder) normalize() {
	for e.rng <= EC_CODE_BOT {
		e.carryOut(int(e.val >> EC_CODE_SHIFT))
		e.val = (e.val << EC_SYM_BITS) & (EC_CODE_TOP - 1)
		e.rng <<= EC_SYM_BITS
		e.nbitsTotal += EC_SYM_BITS
	}
}

func (e *Encoder) writeByte(b byte) {
	if e.offs+e.endOffs >= e.storage {
		e.setErr(ErrBufferFull)
		return
	}
	e.buf[e.offs] = b
	e.offs++
}

func (e *Encoder) writeEndByte(b byte) {
	if e.offs+e.endOffs >= e.storage {
		e.setErr(ErrBufferFull)
		return
	}
	e.endOffs++
	e.buf[e.storage-e.endOffs] = b
}

// Encode folds the symbol with cumulative frequency range [fl, fh) out of
// ft into the interval. Low-level companion to Decode/Update on the decode
// side; most callers use EncodeICDF.
func (e *Encoder) Encode(fl, fh, ft uint32) {
	e.active()
	r := e.rng / ft
	if fl > 0 {
		e.val += e.rng - r*(ft-fl)
		e.rng = r * (fh - fl)
	} else {
		e.rng -= r * (ft - fh)
	}
	e.normalize()
}

// EncodeBin is Encode for a power-of-two total 1<<bits.
func (e *Encoder) EncodeBin(fl, fh uint32, bits uint) {
	e.active()
	r := e.rng >> bits
	if fl > 0 {
		e.val += e.rng - r*((uint32(1)<<bits)-fl)
		e.rng = r * (fh - fl)
	} else {
		e.rng -= r * ((uint32(1) << bits) - fh)
	}
	e.normalize()
}

// EncodeICDF encodes symbol s against an 8-bit ICDF table. s must index a
// symbol of the table's alphabet with nonzero probability; anything else is
// a caller bug and panics. Zero-probability symbols exist in tables whose
// first entry equals the total (the SILK convention): such a symbol has no
// interval region, so there is no stream that could represent it.
func (e *Encoder) EncodeICDF(s int, tab ICDF) error {
	e.active()
	if s < 0 || s >= tab.Len() {
		panic("rangecoding: symbol index outside table alphabet")
	}
	prev := uint32(1) << tab.bits
	if s > 0 {
		prev = uint32(tab.tail[s-1])
	}
	if prev == uint32(tab.tail[s]) {
		panic("rangecoding: symbol has zero probability in table")
	}
	if e.err != nil {
		return e.err
	}
	r := e.rng >> tab.bits
	if s > 0 {
		e.val += e.rng - r*uint32(tab.tail[s-1])
		e.rng = r * uint32(tab.tail[s-1]-tab.tail[s])
	} else {
		e.rng -= r * uint32(tab.tail[s])
	}
	e.normalize()
	return e.err
}

// EncodeICDF16 is EncodeICDF for 16-bit tables, with the same
// nonzero-probability requirement on s.
func (e *Encoder) EncodeICDF16(s int, tab ICDF16) error {
	e.active()
	if s < 0 || s >= tab.Len() {
		panic("rangecoding: symbol index outside table alphabet")
	}
	prev := uint32(1) << tab.bits
	if s > 0 {
		prev = uint32(tab.tail[s-1])
	}
	if prev == uint32(tab.tail[s]) {
		panic("rangecoding: symbol has zero probability in table")
	}
	if e.err != nil {
		return e.err
	}
	r := e.rng >> tab.bits
	if s > 0 {
		e.val += e.rng - r*uint32(tab.tail[s-1])
		e.rng = r * uint32(tab.tail[s-1]-tab.tail[s])
	} else {
		e.rng -= r * uint32(tab.tail[s])
	}
	e.normalize()
	return e.err
}

// EncodeBit encodes a single bit with probability 1/(1<<logp) of being 1,
// mirroring DecodeBit's interval split.
func (e *Encoder) EncodeBit(bit int, logp uint) error {
	e.active()
	if e.err != nil {
		return e.err
	}
	r := e.rng
	s := r >> logp
	if bit != 0 {
		e.val += r - s
		e.rng = s
	} else {
		e.rng = r - s
	}
	e.normalize()
	return e.err
}

// EncodeUniform encodes a uniformly distributed value in [0, ft), the
// mirror of DecodeUniform: wide totals split into a range-coded high part
// plus raw low bits.
func (e *Encoder) EncodeUniform(v, ft uint32) error {
	e.active()
	if ft <= 1 {
		return nil
	}
	if v >= ft {
		panic("rangecoding: uniform value outside [0, ft)")
	}
	if e.err != nil {
		return e.err
	}

	ftb := uint(ilog(ft - 1))
	if ftb > EC_UINT_BITS {
		ftb -= EC_UINT_BITS
		ft1 := ((ft - 1) >> ftb) + 1
		e.encodeUniform(v>>ftb, ft1)
		return e.EncodeRawBits(v&((1<<ftb)-1), ftb)
	}
	e.encodeUniform(v, ft)
	return e.err
}

// encodeUniform folds a uniform value with ft at most 1<<EC_UINT_BITS,
// using fl=v, fh=v+1.
func (e *Encoder) encodeUniform(v, ft uint32) {
	r := e.rng / ft
	if v > 0 {
		e.val += e.rng - r*(ft-v)
		e.rng = r
	} else {
		e.rng -= r * (ft - 1)
	}
	e.normalize()
}

// EncodeRawBits appends the low n bits of v at the backward cursor, the
// mirror of DecodeRawBits. n must be at most 25.
func (e *Encoder) EncodeRawBits(v uint32, n uint) error {
	e.active()
	if n == 0 {
		return nil
	}
	if n > maxRawBits {
		panic("rangecoding: raw bit count out of range")
	}
	if e.err != nil {
		return e.err
	}

	window := e.endWindow
	used := e.nendBits
	if used+int(n) > EC_WINDOW_SIZE {
		for used >= EC_SYM_BITS {
			e.writeEndByte(byte(window & EC_SYM_MAX))
			window >>= EC_SYM_BITS
			used -= EC_SYM_BITS
		}
	}
	window |= v << used
	used += int(n)
	e.endWindow = window
	e.nendBits = used
	e.nbitsTotal += int(n)
	return e.err
}

// Shrink caps the output at exactly size bytes for CBR framing: raw-bit
// bytes already written at the old end move to the new end, and Finalize
// will return exactly size bytes, zero-padded. size must not exceed the
// Init buffer's capacity; growing is a caller bug and panics. Mirrors
// ec_enc_shrink.
func (e *Encoder) Shrink(size uint32) error {
	e.active()
	if size > e.storage {
		panic("rangecoding: Shrink beyond buffer capacity")
	}
	if e.offs+e.endOffs > size {
		e.setErr(ErrBufferFull)
		return e.err
	}
	if e.endOffs > 0 {
		copy(e.buf[size-e.endOffs:size], e.buf[e.storage-e.endOffs:e.storage])
	}
	e.storage = size
	e.shrunk = true
	return e.err
}

// PatchInitialBits rewrites the first nbits of the stream after the fact.
// SILK writes its header flags this way: their position is fixed at the
// packet start but their values settle only once the frame is encoded.
// nbits must be at most 8, and enough of the stream must already have
// stabilized for the bits to be reachable. Mirrors ec_enc_patch_initial_bits.
func (e *Encoder) PatchInitialBits(v uint32, nbits uint) error {
	e.active()
	if nbits == 0 || nbits > EC_SYM_BITS {
		panic("rangecoding: patched bit count out of range")
	}
	shift := EC_SYM_BITS - nbits
	mask := (uint32(1)<<nbits - 1) << shift
	switch {
	case e.offs > 0:
		// The bits already hit the buffer.
		e.buf[0] = (e.buf[0] &^ byte(mask)) | byte(v<<shift)
	case e.rem >= 0:
		// The bits sit in the carry-buffered byte.
		e.rem = int((uint32(e.rem) &^ mask) | (v << shift))
	case e.rng <= EC_CODE_TOP>>nbits:
		// The bits are still in the low end of the interval.
		shiftedMask := mask << EC_CODE_SHIFT
		e.val = (e.val &^ shiftedMask) | (v << (EC_CODE_SHIFT + shift))
	default:
		// Too little has been encoded for the leading bits to be stable.
		e.setErr(ErrBufferFull)
	}
	return e.err
}

// Finalize flushes the interval and the raw-bit window and returns the
// encoded frame, per ec_enc_done: the smallest number of disambiguating
// bits is emitted through the carry chain, the raw-bit bytes are joined to
// the range-coded bytes, and the result is a prefix of the Init buffer.
// After Shrink the result is exactly the shrunk size. The encoder is
// terminal afterwards; further operations panic.
func (e *Encoder) Finalize() ([]byte, error) {
	e.active()
	e.finalized = true

	// Emit enough high bits of val to disambiguate the final interval.
	l := EC_CODE_BITS - ilog(e.rng)
	msk := uint32(EC_CODE_TOP-1) >> uint(l)
	end := (e.val + msk) &^ msk
	if (end | msk) >= e.val+e.rng {
		l++
		msk >>= 1
		end = (e.val + msk) &^ msk
	}
	for l > 0 {
		e.carryOut(int(end >> EC_CODE_SHIFT))
		end = (end << EC_SYM_BITS) & (EC_CODE_TOP - 1)
		l -= EC_SYM_BITS
	}
	if e.rem >= 0 || e.ext > 0 {
		e.carryOut(0)
	}

	// Flush whole bytes out of the raw-bit window.
	window := e.endWindow
	used := e.nendBits
	for used >= EC_SYM_BITS {
		e.writeEndByte(byte(window & EC_SYM_MAX))
		window >>= EC_SYM_BITS
		used -= EC_SYM_BITS
	}

	if e.err == nil {
		// Clear the gap between the two regions, then fold any leftover raw
		// bits into the byte before the end region.
		for i := int(e.offs); i < int(e.storage-e.endOffs); i++ {
			e.buf[i] = 0
		}
		if used > 0 {
			if e.endOffs >= e.storage {
				// No room at all for the partial byte.
				e.setErr(ErrBufferFull)
			} else {
				usable := -l
				if usable < 0 {
					usable = 0
				}
				if int(e.offs+e.endOffs) >= int(e.storage) && usable < used {
					// Busted: the partial byte would overwrite range-coded
					// bits the decoder needs. Keep only the bits that fit.
					if usable <= 0 {
						window = 0
					} else if usable < EC_WINDOW_SIZE {
						window &= (uint32(1) << uint(usable)) - 1
					}
					e.setErr(ErrBufferFull)
				}
				e.buf[e.storage-e.endOffs-1] |= byte(window)
			}
		}
	}

	if e.err != nil {
		return e.buf[:e.storage], e.err
	}

	// Join the back region onto the front region and report the packed size.
	// A surviving partial byte travels as one pad byte between the two.
	padSize := 0
	if used > 0 && e.offs+e.endOffs < e.storage {
		padSize = 1
		e.buf[e.offs] = byte(window)
	}
	packedSize := int(e.offs) + int(e.endOffs) + padSize
	if e.shrunk {
		packedSize = int(e.storage)
	}
	if e.endOffs > 0 {
		copy(e.buf[int(e.offs)+padSize:], e.buf[e.storage-e.endOffs:e.storage])
	}
	return e.buf[:packedSize], nil
}

// Err returns the sticky encode error, if any.
func (e *Encoder) Err() error { return e.err }

// Tell returns the number of bits written so far.
func (e *Encoder) Tell() int {
	return e.nbitsTotal - ilog(e.rng)
}

// TellFrac returns the number of bits written in units of 1/8 bit.
func (e *Encoder) TellFrac() int {
	return tellFrac(e.nbitsTotal, e.rng)
}

// Range returns the current interval width.
func (e *Encoder) Range() uint32 { return e.rng }

// RangeBytes returns the number of range-coded bytes emitted at the front
// of the buffer so far.
func (e *Encoder) RangeBytes() int { return int(e.offs) }

// State returns the internal (rng, val) pair, for bit-exact comparisons in
// tests.
func (e *Encoder) State() (uint32, uint32) { return e.rng, e.val }
