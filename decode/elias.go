package decode

import "github.com/pacak/blackbox/reader"

// Elias gamma and delta codes cannot represent zero, so the firmware
// encodes value+1; the decoders subtract it back out. Unary prefixes are
// capped at 32 bits since field values are 32-bit quantities.

func eliasGammaRaw(r *reader.Reader) (uint32, error) {
	var zeros uint
	for {
		bit, err := r.ReadBits(1)
		if err != nil {
			return 0, err
		}
		if bit == 1 {
			break
		}
		zeros++
		if zeros > 31 {
			return 0, reader.ErrMalformed
		}
	}

	rest, err := r.ReadBits(zeros)
	if err != nil {
		return 0, err
	}

	return 1<<zeros | rest, nil
}

func eliasDeltaRaw(r *reader.Reader) (uint32, error) {
	length, err := eliasGammaRaw(r)
	if err != nil {
		return 0, err
	}
	if length > 32 {
		return 0, reader.ErrMalformed
	}

	rest, err := r.ReadBits(uint(length - 1))
	if err != nil {
		return 0, err
	}

	return 1<<(length-1) | rest, nil
}

// EliasGammaU32 decodes an Elias gamma coded unsigned value.
func EliasGammaU32(r *reader.Reader) (uint32, error) {
	v, err := eliasGammaRaw(r)
	if err != nil {
		return 0, err
	}
	return v - 1, nil
}

// EliasGammaS32 decodes an Elias gamma coded zig-zag signed value.
func EliasGammaS32(r *reader.Reader) (int32, error) {
	v, err := EliasGammaU32(r)
	if err != nil {
		return 0, err
	}
	return reader.ZigZag(v), nil
}

// EliasDeltaU32 decodes an Elias delta coded unsigned value.
func EliasDeltaU32(r *reader.Reader) (uint32, error) {
	v, err := eliasDeltaRaw(r)
	if err != nil {
		return 0, err
	}
	return v - 1, nil
}

// EliasDeltaS32 decodes an Elias delta coded zig-zag signed value.
func EliasDeltaS32(r *reader.Reader) (int32, error) {
	v, err := EliasDeltaU32(r)
	if err != nil {
		return 0, err
	}
	return reader.ZigZag(v), nil
}
