package rangecoding

import (
	"errors"
	"testing"
)

func TestNewICDFValidation(t *testing.T) {
	cases := []struct {
		name string
		bits uint
		tail []uint8
		ok   bool
	}{
		{"valid", 5, []uint8{25, 23, 2, 0}, true},
		{"valid single symbol", 1, []uint8{0}, true},
		{"valid first equals total", 8, []uint8{255, 0}, true},
		{"zero bits", 0, []uint8{1, 0}, false},
		{"too many bits", 9, []uint8{1, 0}, false},
		{"empty", 5, nil, false},
		{"no terminator", 5, []uint8{25, 23, 2}, false},
		{"increasing", 5, []uint8{2, 23, 0}, false},
		{"first above total", 4, []uint8{17, 0}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tab, err := NewICDF(tc.bits, tc.tail)
			if tc.ok {
				if err != nil {
					t.Fatalf("NewICDF: %v", err)
				}
				if tab.Len() != len(tc.tail) || tab.Bits() != tc.bits {
					t.Errorf("Len=%d Bits=%d, want %d, %d", tab.Len(), tab.Bits(), len(tc.tail), tc.bits)
				}
				return
			}
			if !errors.Is(err, ErrBadTable) {
				t.Fatalf("NewICDF error = %v, want ErrBadTable", err)
			}
		})
	}
}

func TestNewICDF16Validation(t *testing.T) {
	cases := []struct {
		name string
		bits uint
		tail []uint16
		ok   bool
	}{
		{"valid silk style", 8, []uint16{232, 158, 10, 0}, true},
		{"valid first equals total", 8, []uint16{256, 224, 0}, true},
		{"valid wide", 15, []uint16{32000, 100, 0}, true},
		{"too many bits", 16, []uint16{1, 0}, false},
		{"first above total", 8, []uint16{257, 0}, false},
		{"no terminator", 8, []uint16{200, 100}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tab, err := NewICDF16(tc.bits, tc.tail)
			if tc.ok {
				if err != nil {
					t.Fatalf("NewICDF16: %v", err)
				}
				if tab.Len() != len(tc.tail) {
					t.Errorf("Len = %d, want %d", tab.Len(), len(tc.tail))
				}
				return
			}
			if !errors.Is(err, ErrBadTable) {
				t.Fatalf("NewICDF16 error = %v, want ErrBadTable", err)
			}
		})
	}
}

func TestICDFCopiesInput(t *testing.T) {
	tail := []uint8{25, 23, 2, 0}
	tab, err := NewICDF(5, tail)
	if err != nil {
		t.Fatalf("NewICDF: %v", err)
	}
	tail[1] = 99

	// Encoding symbol 1 must still see the original probabilities.
	enc := &Encoder{}
	enc.Init(make([]byte, 16))
	enc.EncodeICDF(1, tab)
	out, err := enc.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	dec := &Decoder{}
	dec.Init(out)
	s, err := dec.DecodeICDF(tab)
	if err != nil || s != 1 {
		t.Fatalf("DecodeICDF = %d, %v, want 1, nil", s, err)
	}
}

func TestMustICDFPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("MustICDF on malformed table did not panic")
		}
	}()
	MustICDF(5, 2, 23, 0)
}
