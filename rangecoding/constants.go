// Package rangecoding implements the range coder used by Opus per RFC 6716
// Section 4.1.
//
// The encoder and decoder are bit-exact mirror images: modeled symbols are
// coded from the front of the buffer with an adaptive shrinking interval,
// while raw (unmodeled) bits are packed from the back. Every operation is a
// deterministic function of the current state, the supplied ICDF table and
// the buffer contents; two implementations that diverge in any intermediate
// value desynchronize silently, so the arithmetic here follows the reference
// algorithm exactly.
package rangecoding

// Constants from RFC 6716 Section 4.1 and libopus celt/mfrngcod.h.
// The EC_ names are kept so the correspondence with the reference is obvious.
const (
	EC_SYM_BITS    = 8                                // Bits output at a time
	EC_CODE_BITS   = 32                               // Total state register bits
	EC_SYM_MAX     = (1 << EC_SYM_BITS) - 1           // 255
	EC_CODE_TOP    = 1 << (EC_CODE_BITS - 1)          // 0x80000000
	EC_CODE_BOT    = EC_CODE_TOP >> EC_SYM_BITS       // 0x00800000
	EC_CODE_SHIFT  = EC_CODE_BITS - EC_SYM_BITS - 1   // 23
	EC_CODE_EXTRA  = (EC_CODE_BITS-2)%EC_SYM_BITS + 1 // 7
	EC_UINT_BITS   = 8                                // Bits for range-coded unsigned integers
	EC_WINDOW_SIZE = 32                               // Raw-bit window width
)

// maxRawBits bounds a single raw-bit read or write, per the reference
// (the 32-bit window must hold the request plus one partial byte).
const maxRawBits = 25
