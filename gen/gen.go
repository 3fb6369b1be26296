// Package gen produces synthetic log data: byte-level encoders mirroring
// each field decoder, and a builder assembling whole logs for tests.
package gen

import (
	"bytes"
	"fmt"
	"math/bits"
)

// ZigZag folds a signed value into an unsigned one, small magnitudes
// first.
func ZigZag(v int32) uint32 {
	return uint32(v<<1) ^ uint32(v>>31)
}

// AppendUvarint appends v as a 7-bit continuation varint.
func AppendUvarint(b []byte, v uint32) []byte {
	for v >= 0x80 {
		b = append(b, byte(v)|0x80)
		v >>= 7
	}
	return append(b, byte(v))
}

// AppendSvarint appends v zig-zag folded as a varint.
func AppendSvarint(b []byte, v int32) []byte {
	return AppendUvarint(b, ZigZag(v))
}

// AppendNeg14Bit appends v negated and truncated to 14 bits.
func AppendNeg14Bit(b []byte, v int32) []byte {
	return AppendUvarint(b, uint32(uint16(-v))&0x3FFF)
}

// AppendTagVariable appends a TAG8_8SVB group: a presence byte followed
// by a signed varint per non-zero value. A group of one is a bare signed
// varint.
func AppendTagVariable(b []byte, values []int32) []byte {
	if len(values) == 1 {
		return AppendSvarint(b, values[0])
	}
	if len(values) > 8 {
		panic(fmt.Sprintf("tag8_8svb group of %d", len(values)))
	}

	var tag byte
	for i, v := range values {
		if v != 0 {
			tag |= 1 << uint(i)
		}
	}
	b = append(b, tag)
	for _, v := range values {
		if v != 0 {
			b = AppendSvarint(b, v)
		}
	}
	return b
}

func fits(v int32, width uint) bool {
	return v >= -(1<<(width-1)) && v < 1<<(width-1)
}

// AppendTag32 appends a TAG2_3S32 group of three values in the narrowest
// width class that holds all of them.
func AppendTag32(b []byte, v0, v1, v2 int32) []byte {
	switch {
	case fits(v0, 2) && fits(v1, 2) && fits(v2, 2):
		return append(b, byte(v0&0x03)<<4|byte(v1&0x03)<<2|byte(v2&0x03))

	case fits(v0, 4) && fits(v1, 4) && fits(v2, 4):
		return append(b, 0x40|byte(v0&0x0F), byte(v1&0x0F)<<4|byte(v2&0x0F))

	case fits(v0, 6) && fits(v1, 6) && fits(v2, 6):
		return append(b, 0x80|byte(v0&0x3F), byte(v1&0x3F), byte(v2&0x3F))
	}

	// Per-field byte counts, little endian.
	vals := [3]int32{v0, v1, v2}
	lead := byte(0xC0)
	for i, v := range vals {
		lead |= byte(byteCount(v)-1) << uint(2*i)
	}
	b = append(b, lead)
	for _, v := range vals {
		for n := byteCount(v); n > 0; n-- {
			b = append(b, byte(v))
			v >>= 8
		}
	}
	return b
}

func byteCount(v int32) int {
	for n := uint(1); n < 4; n++ {
		if fits(v, n*8) {
			return int(n)
		}
	}
	return 4
}

// AppendTag16 appends a TAG8_4S16 group of four values: a tag byte of
// four 2-bit width classes (low bits first), then payload nibbles
// high-first, padded to a whole byte.
func AppendTag16(b []byte, v0, v1, v2, v3 int16) []byte {
	vals := [4]int16{v0, v1, v2, v3}

	var tag byte
	widths := [4]uint{}
	for i, v := range vals {
		switch {
		case v == 0:
		case fits(int32(v), 4):
			tag |= 1 << uint(2*i)
			widths[i] = 4
		case fits(int32(v), 8):
			tag |= 2 << uint(2*i)
			widths[i] = 8
		default:
			tag |= 3 << uint(2*i)
			widths[i] = 16
		}
	}

	w := BitWriter{}
	w.WriteBits(uint32(tag), 8)
	for i, v := range vals {
		if widths[i] > 0 {
			w.WriteBits(uint32(uint16(v))&(1<<widths[i]-1), widths[i])
		}
	}
	return append(b, w.Bytes()...)
}

// A BitWriter packs bits most significant first, the mirror of
// reader.ReadBits.
type BitWriter struct {
	b   []byte
	cur byte
	n   uint
}

// WriteBits appends the low n bits of v, most significant first.
func (w *BitWriter) WriteBits(v uint32, n uint) {
	for i := n; i > 0; i-- {
		w.cur = w.cur<<1 | byte(v>>(i-1)&1)
		w.n++
		if w.n == 8 {
			w.b = append(w.b, w.cur)
			w.cur, w.n = 0, 0
		}
	}
}

// EliasGamma appends v+1 gamma coded: a unary length prefix then the
// value bits.
func (w *BitWriter) EliasGamma(v uint32) {
	x := v + 1
	n := uint(bits.Len32(x))
	w.WriteBits(x, 2*n-1)
}

// EliasGammaSigned appends v zig-zag folded and gamma coded.
func (w *BitWriter) EliasGammaSigned(v int32) {
	w.EliasGamma(ZigZag(v))
}

// EliasDelta appends v+1 delta coded: the bit length gamma coded, then
// the value bits below the leading one.
func (w *BitWriter) EliasDelta(v uint32) {
	x := v + 1
	n := uint(bits.Len32(x))
	w.EliasGamma(uint32(n) - 1)
	w.WriteBits(x&(1<<(n-1)-1), n-1)
}

// EliasDeltaSigned appends v zig-zag folded and delta coded.
func (w *BitWriter) EliasDeltaSigned(v int32) {
	w.EliasDelta(ZigZag(v))
}

// Bytes returns everything written so far, zero-padding any partial
// trailing byte.
func (w *BitWriter) Bytes() []byte {
	out := w.b
	if w.n > 0 {
		out = append(out, w.cur<<(8-w.n))
	}
	return out
}

// A LogBuilder assembles a complete log: header lines followed by binary
// frames.
type LogBuilder struct {
	buf bytes.Buffer
}

// Header appends one header line.
func (b *LogBuilder) Header(name, value string) *LogBuilder {
	fmt.Fprintf(&b.buf, "H %s:%s\n", name, value)
	return b
}

// Frame appends a frame marker and its payload.
func (b *LogBuilder) Frame(typ byte, payload []byte) *LogBuilder {
	b.buf.WriteByte(typ)
	b.buf.Write(payload)
	return b
}

// EndOfLog appends the end-of-log event frame.
func (b *LogBuilder) EndOfLog() *LogBuilder {
	b.buf.WriteByte('E')
	b.buf.WriteByte(0xFF)
	b.buf.WriteString("End of log\x00")
	return b
}

// Raw appends bytes verbatim, for deliberately corrupt regions.
func (b *LogBuilder) Raw(data []byte) *LogBuilder {
	b.buf.Write(data)
	return b
}

func (b *LogBuilder) Bytes() []byte {
	return b.buf.Bytes()
}
