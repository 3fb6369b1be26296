// Package decode implements the per-field value encodings found in
// blackbox log frames. Each encoding id from the log header maps to one
// decode routine operating on a reader.Reader. Scalar encodings produce a
// single value; tag-group encodings jointly produce values for several
// adjacent fields from shared tag bytes.
package decode

import (
	"fmt"

	"github.com/pacak/blackbox/reader"
)

// Encoding identifies the byte-level scheme used to pack one raw integer
// (or a group of them). The numeric values are the ids used by the log
// header and are fixed by the firmware.
type Encoding byte

const (
	SignedVB         Encoding = 0 // zig-zag variable byte
	UnsignedVB       Encoding = 1 // variable byte
	Neg14Bit         Encoding = 3 // negated value fitting in 14 bits
	EliasDelta       Encoding = 4
	EliasDeltaSigned Encoding = 5
	TagVariable      Encoding = 6 // TAG8_8SVB: presence byte + signed VBs
	Tag32            Encoding = 7 // TAG2_3S32: 3 fields, 2-bit width classes
	Tag16            Encoding = 8 // TAG8_4S16: 4 fields, nibble-granular
	Null             Encoding = 9 // nothing in the log, value is 0
	EliasGamma       Encoding = 10
	EliasGammaSigned Encoding = 11
)

func (e Encoding) String() string {
	switch e {
	case SignedVB:
		return "signed-vb"
	case UnsignedVB:
		return "unsigned-vb"
	case Neg14Bit:
		return "neg-14-bit"
	case EliasDelta:
		return "elias-delta"
	case EliasDeltaSigned:
		return "elias-delta-signed"
	case TagVariable:
		return "tag8-8svb"
	case Tag32:
		return "tag2-3s32"
	case Tag16:
		return "tag8-4s16"
	case Null:
		return "null"
	case EliasGamma:
		return "elias-gamma"
	case EliasGammaSigned:
		return "elias-gamma-signed"
	}
	return fmt.Sprintf("encoding(%d)", byte(e))
}

// Valid reports whether the encoding id is one this decoder implements.
func (e Encoding) Valid() bool {
	switch e {
	case SignedVB, UnsignedVB, Neg14Bit, EliasDelta, EliasDeltaSigned,
		TagVariable, Tag32, Tag16, Null, EliasGamma, EliasGammaSigned:
		return true
	}
	return false
}

// MaxGroup returns the largest number of adjacent fields the encoding
// decodes in one call. Scalar encodings return 1.
func (e Encoding) MaxGroup() int {
	switch e {
	case TagVariable:
		return 8
	case Tag32:
		return 3
	case Tag16:
		return 4
	}
	return 1
}

// FixedGroup reports whether the encoding always decodes exactly MaxGroup
// fields, as opposed to up to MaxGroup.
func (e Encoding) FixedGroup() bool {
	return e == Tag32 || e == Tag16
}

// BitGranular reports whether the encoding can leave the cursor mid-byte.
// The frame assembler realigns before the next byte-aligned field and at
// the end of the frame.
func (e Encoding) BitGranular() bool {
	switch e {
	case EliasDelta, EliasDeltaSigned, EliasGamma, EliasGammaSigned:
		return true
	}
	return false
}

// Decode reads one encoded group from r into out. len(out) is the group
// size chosen by the caller: 1 for scalar encodings, up to MaxGroup for
// TagVariable and exactly MaxGroup for Tag32/Tag16. A tag group either
// decodes completely or fails without producing values.
func (e Encoding) Decode(r *reader.Reader, out []int64) error {
	switch e {
	case SignedVB:
		v, err := r.ReadIvarint()
		if err != nil {
			return err
		}
		out[0] = int64(v)

	case UnsignedVB:
		v, err := r.ReadUvarint()
		if err != nil {
			return err
		}
		out[0] = int64(v)

	case Neg14Bit:
		v, err := Negative14Bit(r)
		if err != nil {
			return err
		}
		out[0] = int64(v)

	case EliasDelta:
		v, err := EliasDeltaU32(r)
		if err != nil {
			return err
		}
		out[0] = int64(v)

	case EliasDeltaSigned:
		v, err := EliasDeltaS32(r)
		if err != nil {
			return err
		}
		out[0] = int64(v)

	case EliasGamma:
		v, err := EliasGammaU32(r)
		if err != nil {
			return err
		}
		out[0] = int64(v)

	case EliasGammaSigned:
		v, err := EliasGammaS32(r)
		if err != nil {
			return err
		}
		out[0] = int64(v)

	case TagVariable:
		return tagVariable(r, out)

	case Tag32:
		return tag32(r, out)

	case Tag16:
		return tag16(r, out)

	case Null:
		for i := range out {
			out[i] = 0
		}

	default:
		return fmt.Errorf("%w: %s", reader.ErrMalformed, e)
	}

	return nil
}

// Negative14Bit decodes an unsigned variable byte value, reinterprets its
// low 14 bits as a signed quantity and negates it. Used for bounded deltas
// that are usually small and negative.
func Negative14Bit(r *reader.Reader) (int32, error) {
	u, err := r.ReadUvarint()
	if err != nil {
		return 0, err
	}

	v := uint16(u)
	var result int32
	if v&0x2000 != 0 {
		result = int32(int16(v | 0xC000))
	} else {
		result = int32(v)
	}

	return -result, nil
}
