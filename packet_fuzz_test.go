package opuscore

import (
	"errors"
	"testing"
)

// FuzzParsePacket checks that arbitrary input never panics and that every
// accepted packet satisfies the structural invariants.
func FuzzParsePacket(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte{0x00})
	f.Add([]byte{GenerateTOC(1, false, 0), 1, 2, 3})
	f.Add([]byte{GenerateTOC(1, false, 1), 1, 2, 3, 4})
	f.Add([]byte{GenerateTOC(1, false, 2), 2, 1, 2, 3})
	f.Add([]byte{GenerateTOC(1, false, 3), 0x02, 1, 2})
	f.Add([]byte{GenerateTOC(1, false, 3), 0x82, 1, 0xAA, 0xBB, 0xCC})
	f.Add([]byte{GenerateTOC(1, false, 3), 0x41, 255, 10})
	f.Add([]byte{GenerateTOC(16, false, 3), 48})
	f.Add([]byte{GenerateTOC(1, false, 2), 252, 1})

	f.Fuzz(func(t *testing.T, data []byte) {
		for _, selfDelimited := range []bool{false, true} {
			var p *Packet
			var err error
			if selfDelimited {
				var consumed int
				p, consumed, err = ParsePacketSelfDelimited(data)
				if err == nil && (consumed < 1 || consumed > len(data)) {
					t.Fatalf("consumed %d bytes of %d", consumed, len(data))
				}
			} else {
				p, err = ParsePacket(data)
			}
			if err != nil {
				if !errors.Is(err, ErrFormat) {
					t.Fatalf("parse error %v does not wrap ErrFormat", err)
				}
				continue
			}

			if n := p.FrameCount(); n < 1 || n > 48 {
				t.Fatalf("frame count %d outside 1..48", n)
			}
			seen := 0
			for i := 0; i < p.FrameCount(); i++ {
				b := p.FrameBounds(i)
				if b.Length < 0 || b.Offset < 1 || b.Offset+b.Length > len(data) {
					t.Fatalf("frame %d bounds %+v outside packet of %d bytes", i, b, len(data))
				}
				if !selfDelimited && b.Length > 1275 {
					t.Fatalf("frame %d length %d above maximum", i, b.Length)
				}
				// Frame views must agree with the bounds.
				if got := len(p.Frame(i)); got != b.Length {
					t.Fatalf("frame %d view length %d, bounds %d", i, got, b.Length)
				}
				seen++
			}

			seq := p.Frames()
			for i := 0; ; i++ {
				fr, ok := seq.Next()
				if !ok {
					if i != seen {
						t.Fatalf("iterator yielded %d frames, want %d", i, seen)
					}
					break
				}
				if len(fr) != p.FrameBounds(i).Length {
					t.Fatalf("iterator frame %d length %d, want %d", i, len(fr), p.FrameBounds(i).Length)
				}
			}
		}
	})
}
