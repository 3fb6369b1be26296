package decode

import "github.com/pacak/blackbox/reader"

// tagVariable decodes a TAG8_8SVB group: a single presence byte in which
// bit i set means field i is a signed variable byte, clear means field i
// is zero. A group of one degenerates to a bare signed variable byte with
// no tag byte.
func tagVariable(r *reader.Reader, out []int64) error {
	if len(out) == 1 {
		v, err := r.ReadIvarint()
		if err != nil {
			return err
		}
		out[0] = int64(v)
		return nil
	}

	tag, err := r.ReadByte()
	if err != nil {
		return err
	}

	for i := range out {
		if tag&1 != 0 {
			v, err := r.ReadIvarint()
			if err != nil {
				return err
			}
			out[i] = int64(v)
		} else {
			out[i] = 0
		}
		tag >>= 1
	}

	return nil
}

// tag32 decodes a TAG2_3S32 group of exactly three fields. The top two
// bits of the lead byte select a width class for the whole group; class 3
// gives each field its own 2-bit byte-count tag in the lead byte.
func tag32(r *reader.Reader, out []int64) error {
	lead, err := r.ReadByte()
	if err != nil {
		return err
	}

	switch lead >> 6 {
	case 0: // 2-bit fields packed in the lead byte
		out[0] = int64(reader.SignExtend(uint32(lead>>4)&0x03, 2))
		out[1] = int64(reader.SignExtend(uint32(lead>>2)&0x03, 2))
		out[2] = int64(reader.SignExtend(uint32(lead)&0x03, 2))

	case 1: // 4-bit fields, first in the lead byte's low nibble
		out[0] = int64(reader.SignExtend(uint32(lead)&0x0F, 4))
		b, err := r.ReadByte()
		if err != nil {
			return err
		}
		out[1] = int64(reader.SignExtend(uint32(b>>4), 4))
		out[2] = int64(reader.SignExtend(uint32(b)&0x0F, 4))

	case 2: // 6-bit fields, one byte each
		out[0] = int64(reader.SignExtend(uint32(lead)&0x3F, 6))
		for i := 1; i < 3; i++ {
			b, err := r.ReadByte()
			if err != nil {
				return err
			}
			out[i] = int64(reader.SignExtend(uint32(b)&0x3F, 6))
		}

	case 3: // 8, 16, 24 or 32-bit fields, little endian
		for i := 0; i < 3; i++ {
			n := int(lead&0x03) + 1
			var v uint32
			for b := 0; b < n; b++ {
				c, err := r.ReadByte()
				if err != nil {
					return err
				}
				v |= uint32(c) << (8 * uint(b))
			}
			out[i] = int64(reader.SignExtend(v, uint(n)*8))
			lead >>= 2
		}
	}

	return nil
}

// tag16 decodes a TAG8_4S16 (v2) group of exactly four fields. One tag
// byte carries four 2-bit width classes, low bits first:
//
//	0: no payload, value is 0
//	1: one nibble
//	2: two nibbles
//	3: four nibbles
//
// Payload nibbles follow the tag byte high-first; an unused trailing
// nibble is discarded to realign on a byte boundary.
func tag16(r *reader.Reader, out []int64) error {
	tag, err := r.ReadByte()
	if err != nil {
		return err
	}

	for i := range out {
		var width uint
		switch tag & 0x03 {
		case 0:
			out[i] = 0
			tag >>= 2
			continue
		case 1:
			width = 4
		case 2:
			width = 8
		case 3:
			width = 16
		}

		v, err := r.ReadBits(width)
		if err != nil {
			return err
		}
		out[i] = int64(reader.SignExtend(v, width))
		tag >>= 2
	}

	r.Align()
	return nil
}
