package rangecoding

import (
	"errors"
	"fmt"
)

// ErrBadTable reports an ICDF table that violates the table contract.
var ErrBadTable = errors.New("rangecoding: malformed ICDF table")

// ICDF is an inverse cumulative distribution table with 8-bit entries.
//
// Entry s is the total frequency of all symbols above s, so the values are
// monotonically non-increasing and the last entry is always 0. The table's
// total frequency is 1<<Bits(). Symbol s occupies the frequency range
// [total-tail[s-1], total-tail[s]).
//
// Tables are immutable once constructed and safe to share across
// concurrently running coder instances; the coder never mutates one.
type ICDF struct {
	tail []uint8
	bits uint
}

// NewICDF validates and builds a table. bits is the precision of the
// cumulative distribution (total frequency 1<<bits, at most 8 for the 8-bit
// flavor). The tail values are copied.
func NewICDF(bits uint, tail []uint8) (ICDF, error) {
	if bits < 1 || bits > 8 {
		return ICDF{}, fmt.Errorf("%w: precision %d bits", ErrBadTable, bits)
	}
	if err := checkTail(bits, len(tail), func(i int) uint32 { return uint32(tail[i]) }); err != nil {
		return ICDF{}, err
	}
	cp := make([]uint8, len(tail))
	copy(cp, tail)
	return ICDF{tail: cp, bits: bits}, nil
}

// MustICDF is NewICDF for static tables; it panics on a malformed table.
func MustICDF(bits uint, tail ...uint8) ICDF {
	t, err := NewICDF(bits, tail)
	if err != nil {
		panic(err)
	}
	return t
}

// Len returns the number of symbols in the table's alphabet.
func (t ICDF) Len() int { return len(t.tail) }

// Bits returns the precision of the cumulative distribution.
func (t ICDF) Bits() uint { return t.bits }

// ICDF16 is the 16-bit flavor of ICDF, needed for tables whose entries do
// not fit in a byte (SILK tables carry the full total 256, and totals above
// 2^8 are allowed up to 2^15).
type ICDF16 struct {
	tail []uint16
	bits uint
}

// NewICDF16 validates and builds a 16-bit table. bits is at most 15.
func NewICDF16(bits uint, tail []uint16) (ICDF16, error) {
	if bits < 1 || bits > 15 {
		return ICDF16{}, fmt.Errorf("%w: precision %d bits", ErrBadTable, bits)
	}
	if err := checkTail(bits, len(tail), func(i int) uint32 { return uint32(tail[i]) }); err != nil {
		return ICDF16{}, err
	}
	cp := make([]uint16, len(tail))
	copy(cp, tail)
	return ICDF16{tail: cp, bits: bits}, nil
}

// MustICDF16 is NewICDF16 for static tables; it panics on a malformed table.
func MustICDF16(bits uint, tail ...uint16) ICDF16 {
	t, err := NewICDF16(bits, tail)
	if err != nil {
		panic(err)
	}
	return t
}

// Len returns the number of symbols in the table's alphabet.
func (t ICDF16) Len() int { return len(t.tail) }

// Bits returns the precision of the cumulative distribution.
func (t ICDF16) Bits() uint { return t.bits }

func checkTail(bits uint, n int, at func(int) uint32) error {
	if n == 0 {
		return fmt.Errorf("%w: empty table", ErrBadTable)
	}
	if at(n-1) != 0 {
		return fmt.Errorf("%w: table does not terminate at 0", ErrBadTable)
	}
	total := uint32(1) << bits
	if at(0) > total {
		return fmt.Errorf("%w: first entry %d exceeds total %d", ErrBadTable, at(0), total)
	}
	for i := 1; i < n; i++ {
		if at(i) > at(i-1) {
			return fmt.Errorf("%w: entries increase at index %d", ErrBadTable, i)
		}
	}
	return nil
}
