package leb128

import "testing"

func encodeUint64(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			break
		}
	}
	return out
}

func encodeInt64(v int64) []byte {
	var out []byte
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			more = false
		} else {
			b |= 0x80
		}
		out = append(out, b)
	}
	return out
}

func TestUint64RoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 127, 128, 300, 1 << 32, ^uint64(0)}
	for _, c := range cases {
		buf := encodeUint64(c)
		got, n := Uint64(buf, 0)
		if got != c {
			t.Errorf("Uint64(%v) = %d, want %d", buf, got, c)
		}
		if n != len(buf) {
			t.Errorf("Uint64 consumed %d bytes, want %d", n, len(buf))
		}
	}
}

func TestInt64RoundTrip(t *testing.T) {
	cases := []int64{0, 1, -1, 63, -64, 64, -65, 1 << 40, -(1 << 40)}
	for _, c := range cases {
		buf := encodeInt64(c)
		got, n := Int64(buf, 0)
		if got != c {
			t.Errorf("Int64(%v) = %d, want %d", buf, got, c)
		}
		if n != len(buf) {
			t.Errorf("Int64 consumed %d bytes, want %d", n, len(buf))
		}
	}
}

func TestUint64WithOffset(t *testing.T) {
	buf := append([]byte{0xff, 0xff}, encodeUint64(624485)...)
	got, n := Uint64(buf, 2)
	if got != 624485 {
		t.Errorf("got %d, want 624485", got)
	}
	if n != len(buf) {
		t.Errorf("consumed %d, want %d", n, len(buf))
	}
}
