// Package reader implements the positional byte/bit cursor used to pull
// encoded field values out of the binary region of a blackbox log.
//
// A Reader never panics and never reads out of bounds: every read that
// would pass the end of the buffer fails with ErrUnexpectedEnd. Variable
// length reads additionally guard against runaway continuation bits with
// ErrMalformed.
package reader

import "errors"

var (
	ErrUnexpectedEnd = errors.New("unexpected end of log data")
	ErrMalformed     = errors.New("malformed encoding")
)

// Continuation-bit varints contribute 7 bits per byte. Ten bytes is well
// past what a 32-bit value needs; anything longer is garbage, not data.
const maxVarintBytes = 10

// A Reader is a forward-only cursor over an immutable byte slice. Most
// reads are byte-aligned; tag-group and Elias encodings use the bit-level
// reads and realign with Align.
type Reader struct {
	data []byte
	pos  int
	bit  uint // bits consumed of data[pos], 0 when byte-aligned
}

func New(data []byte) *Reader {
	return &Reader{data: data}
}

// Pos returns the index of the byte the next read will touch.
func (r *Reader) Pos() int {
	return r.pos
}

// SetPos repositions the cursor on a byte boundary. Used by the stream
// driver when resynchronizing after corrupt data.
func (r *Reader) SetPos(pos int) {
	if pos < 0 {
		pos = 0
	}
	if pos > len(r.data) {
		pos = len(r.data)
	}
	r.pos = pos
	r.bit = 0
}

func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

// Align discards any partially consumed byte so the next read is
// byte-aligned.
func (r *Reader) Align() {
	if r.bit != 0 {
		r.bit = 0
		r.pos++
	}
}

// ReadByte returns the next byte. When the cursor is mid-byte the read is
// an unaligned 8-bit read.
func (r *Reader) ReadByte() (byte, error) {
	if r.bit == 0 {
		if r.pos >= len(r.data) {
			return 0, ErrUnexpectedEnd
		}
		b := r.data[r.pos]
		r.pos++
		return b, nil
	}

	v, err := r.ReadBits(8)
	return byte(v), err
}

// PeekByte returns the next byte without advancing. Only valid on a byte
// boundary; the second return is false at end of data.
func (r *Reader) PeekByte() (byte, bool) {
	if r.bit != 0 || r.pos >= len(r.data) {
		return 0, false
	}
	return r.data[r.pos], true
}

// ReadBits reads n bits (n <= 32), most significant bit first.
func (r *Reader) ReadBits(n uint) (v uint32, err error) {
	if n > 32 {
		return 0, ErrMalformed
	}
	for ; n > 0; n-- {
		if r.pos >= len(r.data) {
			return 0, ErrUnexpectedEnd
		}
		v = v<<1 | uint32(r.data[r.pos]>>(7-r.bit))&1
		r.bit++
		if r.bit == 8 {
			r.bit = 0
			r.pos++
		}
	}
	return v, nil
}

// ReadUvarint reads an unsigned continuation-bit variable length integer.
// Bits past the low 32 are discarded, matching the firmware's 32-bit
// arithmetic, but the byte count is still capped to catch runaway input.
func (r *Reader) ReadUvarint() (uint32, error) {
	var v uint32
	var shift uint

	for i := 0; ; i++ {
		if i >= maxVarintBytes {
			return 0, ErrMalformed
		}

		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}

		if shift < 32 {
			v |= uint32(b&0x7F) << shift
		}
		shift += 7

		if b&0x80 == 0 {
			return v, nil
		}
	}
}

// ReadIvarint reads a zig-zag mapped signed variable length integer.
func (r *Reader) ReadIvarint() (int32, error) {
	v, err := r.ReadUvarint()
	if err != nil {
		return 0, err
	}
	return ZigZag(v), nil
}

// ZigZag maps an unsigned zig-zag value back to signed.
func ZigZag(v uint32) int32 {
	return int32(v>>1) ^ -int32(v&1)
}

// SignExtend interprets the low bits of v as a two's complement value of
// the given width.
func SignExtend(v uint32, bits uint) int32 {
	unused := 32 - bits
	return int32(v<<unused) >> unused
}
