package rangecoding

import (
	"errors"
	"testing"
)

func TestDecoderInitState(t *testing.T) {
	dec := &Decoder{}
	dec.Init(make([]byte, 4))

	rng, val := dec.State()
	if rng != EC_CODE_TOP {
		t.Errorf("rng after init = %#x, want %#x", rng, uint32(EC_CODE_TOP))
	}
	// Three renormalizations over zero bytes leave val saturated.
	if val != EC_CODE_TOP-1 {
		t.Errorf("val after init = %#x, want %#x", val, uint32(EC_CODE_TOP-1))
	}
	if got := dec.Tell(); got != 1 {
		t.Errorf("Tell after init = %d, want 1", got)
	}
}

func TestDecoderInitEmptyBuffer(t *testing.T) {
	// A zero-length frame still initializes; it decodes as if followed by
	// infinite zeros.
	dec := &Decoder{}
	dec.Init(nil)
	if got := dec.Tell(); got != 1 {
		t.Errorf("Tell after init = %d, want 1", got)
	}
	if _, err := dec.DecodeBit(1); err != nil {
		t.Errorf("DecodeBit on empty frame: %v", err)
	}
}

func TestDecoderBitOnZeros(t *testing.T) {
	dec := &Decoder{}
	dec.Init(make([]byte, 8))
	// val sits at the top of the interval, far above the 1-region.
	for i := 0; i < 4; i++ {
		bit, err := dec.DecodeBit(1)
		if err != nil {
			t.Fatalf("DecodeBit: %v", err)
		}
		if bit != 0 {
			t.Fatalf("DecodeBit on zero frame = %d at index %d, want 0", bit, i)
		}
	}
}

func TestDecoderRawBitsBudget(t *testing.T) {
	// A 1-byte frame has 8 bits total; Init consumes 1, so 8 raw bits
	// cannot fit and the cursors would cross.
	dec := &Decoder{}
	dec.Init(make([]byte, 1))
	if _, err := dec.DecodeRawBits(8); !errors.Is(err, ErrDecode) {
		t.Fatalf("DecodeRawBits(8) error = %v, want ErrDecode", err)
	}

	// The error is sticky.
	if _, err := dec.DecodeBit(1); !errors.Is(err, ErrDecode) {
		t.Errorf("DecodeBit after failure = %v, want ErrDecode", err)
	}
	if err := dec.Err(); !errors.Is(err, ErrDecode) {
		t.Errorf("Err() = %v, want ErrDecode", err)
	}
	if _, err := dec.Finalize(); !errors.Is(err, ErrDecode) {
		t.Errorf("Finalize after failure = %v, want ErrDecode", err)
	}

	// 7 bits fit in a fresh 1-byte frame.
	dec.Init(make([]byte, 1))
	if _, err := dec.DecodeRawBits(7); err != nil {
		t.Errorf("DecodeRawBits(7) on 1-byte frame: %v", err)
	}
}

func TestDecoderSplitAPIFrozenAfterError(t *testing.T) {
	dec := &Decoder{}
	dec.Init(make([]byte, 1))
	if _, err := dec.DecodeRawBits(8); !errors.Is(err, ErrDecode) {
		t.Fatalf("DecodeRawBits(8) error = %v, want ErrDecode", err)
	}

	// The split API must not keep mutating state once the stream failed.
	rng, val := dec.State()
	if got := dec.Decode(16); got != 0 {
		t.Errorf("Decode after failure = %d, want 0", got)
	}
	dec.Update(0, 1, 16)
	if got := dec.DecodeBin(4); got != 0 {
		t.Errorf("DecodeBin after failure = %d, want 0", got)
	}
	if rng2, val2 := dec.State(); rng2 != rng || val2 != val {
		t.Errorf("state changed after failure: (%#x, %#x) -> (%#x, %#x)", rng, val, rng2, val2)
	}
	if err := dec.Err(); !errors.Is(err, ErrDecode) {
		t.Errorf("Err() = %v, want ErrDecode", err)
	}
}

func TestDecoderRawBitsOrder(t *testing.T) {
	// Raw bits pack LSB-first from the last byte backward.
	enc := &Encoder{}
	enc.Init(make([]byte, 8))
	enc.EncodeRawBits(0x2A, 6)
	enc.EncodeRawBits(0x3, 2)
	out, err := enc.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	dec := &Decoder{}
	dec.Init(out)
	v1, _ := dec.DecodeRawBits(6)
	v2, _ := dec.DecodeRawBits(2)
	if v1 != 0x2A || v2 != 0x3 {
		t.Fatalf("raw bits = %#x, %#x, want 0x2a, 0x3", v1, v2)
	}
}

func TestDecoderUniformOutOfRange(t *testing.T) {
	// All-ones input drives the decoded high part to its maximum, and the
	// all-ones raw low bits then push the combined value past ft.
	dec := &Decoder{}
	dec.Init([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF})

	const ft = 0x1000001
	v, err := dec.DecodeUniform(ft)
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("DecodeUniform error = %v, want ErrDecode", err)
	}
	// The result saturates to the largest legal value.
	if v != ft-1 {
		t.Errorf("saturated value = %#x, want %#x", v, uint32(ft-1))
	}
	if _, err := dec.DecodeBit(1); !errors.Is(err, ErrDecode) {
		t.Errorf("error not sticky after uniform failure: %v", err)
	}
}

func TestDecoderUniformDegenerate(t *testing.T) {
	dec := &Decoder{}
	dec.Init(make([]byte, 4))
	tell := dec.Tell()
	v, err := dec.DecodeUniform(1)
	if err != nil || v != 0 {
		t.Fatalf("DecodeUniform(1) = %d, %v, want 0, nil", v, err)
	}
	if dec.Tell() != tell {
		t.Errorf("DecodeUniform(1) consumed bits: %d -> %d", tell, dec.Tell())
	}
}

func TestDecoderFinalize(t *testing.T) {
	enc := &Encoder{}
	enc.Init(make([]byte, 16))
	enc.EncodeBit(1, 4)
	enc.EncodeUniform(100, 300)
	out, err := enc.Finalize()
	if err != nil {
		t.Fatalf("encoder Finalize: %v", err)
	}

	dec := &Decoder{}
	dec.Init(out)
	dec.DecodeBit(4)
	dec.DecodeUniform(300)
	n, err := dec.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if want := (dec.Tell() + 7) / 8; n != want {
		t.Errorf("Finalize bytes = %d, want %d", n, want)
	}

	defer func() {
		if recover() == nil {
			t.Errorf("DecodeBit after Finalize did not panic")
		}
	}()
	dec.DecodeBit(1)
}

func TestDecoderRawBitCountPanics(t *testing.T) {
	dec := &Decoder{}
	dec.Init(make([]byte, 16))
	defer func() {
		if recover() == nil {
			t.Errorf("DecodeRawBits(26) did not panic")
		}
	}()
	dec.DecodeRawBits(26)
}
