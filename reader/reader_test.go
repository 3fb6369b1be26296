package reader

import (
	"errors"
	"testing"
)

func TestReadUvarint(t *testing.T) {
	cases := []struct {
		bytes []byte
		want  uint32
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x01}, 1},
		{[]byte{0x7F}, 127},
		{[]byte{0x80, 0x01}, 128},
		{[]byte{0xAC, 0x02}, 300},
		{[]byte{0xFF, 0xFF, 0xFF, 0xFF, 0x0F}, 0xFFFFFFFF},
		// Bits past 32 are discarded.
		{[]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x7F}, 0xFFFFFFFF},
	}

	for _, c := range cases {
		r := New(c.bytes)
		got, err := r.ReadUvarint()
		if err != nil {
			t.Fatalf("ReadUvarint(% X): %+v", c.bytes, err)
		}
		if got != c.want {
			t.Errorf("ReadUvarint(% X) = %d, want %d", c.bytes, got, c.want)
		}
		if r.Remaining() != 0 {
			t.Errorf("ReadUvarint(% X) left %d bytes", c.bytes, r.Remaining())
		}
	}
}

func TestReadUvarintTruncated(t *testing.T) {
	r := New([]byte{0x80})
	if _, err := r.ReadUvarint(); !errors.Is(err, ErrUnexpectedEnd) {
		t.Fatalf("expected ErrUnexpectedEnd, got %v", err)
	}
}

func TestReadUvarintRunaway(t *testing.T) {
	data := make([]byte, 16)
	for i := range data {
		data[i] = 0x80
	}

	r := New(data)
	if _, err := r.ReadUvarint(); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestZigZag(t *testing.T) {
	cases := []struct {
		in   uint32
		want int32
	}{
		{0, 0},
		{1, -1},
		{2, 1},
		{3, -2},
		{0xFFFFFFFF, -2147483648},
		{0xFFFFFFFE, 2147483647},
	}

	for _, c := range cases {
		if got := ZigZag(c.in); got != c.want {
			t.Errorf("ZigZag(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestSignExtend(t *testing.T) {
	cases := []struct {
		v    uint32
		bits uint
		want int32
	}{
		{0b00, 2, 0},
		{0b01, 2, 1},
		{0b10, 2, -2},
		{0b11, 2, -1},
		{0x0F, 4, -1},
		{0x7FF, 11, 2047},
		{0x800, 12, -2048},
	}

	for _, c := range cases {
		if got := SignExtend(c.v, c.bits); got != c.want {
			t.Errorf("SignExtend(%#x, %d) = %d, want %d", c.v, c.bits, got, c.want)
		}
	}
}

func TestReadBits(t *testing.T) {
	r := New([]byte{0b10110100, 0b01100000})

	got, err := r.ReadBits(3)
	if err != nil || got != 0b101 {
		t.Fatalf("ReadBits(3) = %b, %v", got, err)
	}

	got, err = r.ReadBits(7)
	if err != nil || got != 0b1010001 {
		t.Fatalf("ReadBits(7) = %b, %v", got, err)
	}

	if _, err = r.ReadBits(10); !errors.Is(err, ErrUnexpectedEnd) {
		t.Fatalf("expected ErrUnexpectedEnd, got %v", err)
	}
}

func TestAlign(t *testing.T) {
	r := New([]byte{0xFF, 0x42})

	if _, err := r.ReadBits(3); err != nil {
		t.Fatal(err)
	}
	r.Align()

	b, err := r.ReadByte()
	if err != nil || b != 0x42 {
		t.Fatalf("ReadByte after Align = %#x, %v", b, err)
	}
	if r.Pos() != 2 {
		t.Fatalf("Pos = %d, want 2", r.Pos())
	}
}

func TestReadByteUnaligned(t *testing.T) {
	r := New([]byte{0b00001111, 0b11110000})

	if _, err := r.ReadBits(4); err != nil {
		t.Fatal(err)
	}

	b, err := r.ReadByte()
	if err != nil || b != 0xFF {
		t.Fatalf("unaligned ReadByte = %#x, %v", b, err)
	}
}

func TestSetPosClamps(t *testing.T) {
	r := New([]byte{1, 2, 3})

	r.SetPos(10)
	if r.Pos() != 3 || r.Remaining() != 0 {
		t.Fatalf("SetPos(10): pos=%d remaining=%d", r.Pos(), r.Remaining())
	}

	r.SetPos(-1)
	if r.Pos() != 0 {
		t.Fatalf("SetPos(-1): pos=%d", r.Pos())
	}
}
