// Package header parses the textual header section of a blackbox log
// into the field-layout tables and sysconfig constants the frame decoder
// consumes. Header lines have the form "H name:value\n" and run from the
// start of the log up to the first byte of binary frame data.
package header

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/pacak/blackbox/decode"
)

var (
	// ErrMalformed marks header text the parser cannot make sense of.
	ErrMalformed = errors.New("malformed log header")

	// ErrUnsupported marks a header that references an encoding or
	// predictor id this decoder does not implement. The whole session is
	// unusable: the binary field layout cannot be read.
	ErrUnsupported = errors.New("unsupported log feature")
)

// SysConfig carries the scalar header constants consulted by predictors.
type SysConfig struct {
	VBatRef     int64
	MinThrottle int64
	MaxThrottle int64
	MotorLow    int64
	MotorHigh   int64

	// Frame timing: every IInterval-th loop iteration is logged as an I
	// frame, P frames at PNum/PDenom of iterations in between.
	IInterval int
	PNum      int
	PDenom    int
}

// Headers is the parsed header table: identification strings, sysconfig
// and the per-frame-type field definitions.
type Headers struct {
	Product     string
	DataVersion int

	FirmwareRevision string
	FirmwareType     string
	BoardInfo        string
	CraftName        string

	Sys    SysConfig
	Frames FrameDefs

	// Other collects headers the decoder has no use for, keyed by name.
	Other map[string]string

	// DataStart is the offset of the first binary frame byte in the
	// buffer given to Parse.
	DataStart int
}

// Parse reads consecutive "H name:value" lines from the start of data and
// assembles the header table. It stops at the first line that does not
// begin with 'H'; that offset is recorded as DataStart.
func Parse(data []byte) (*Headers, error) {
	st := newState()
	pos := 0

	first := true
	for pos < len(data) && data[pos] == 'H' {
		end := pos
		for end < len(data) && data[end] != '\n' {
			end++
		}
		if end == len(data) {
			return nil, errors.Wrap(ErrMalformed, "unterminated header line")
		}

		name, value, err := splitHeader(string(data[pos:end]))
		if err != nil {
			return nil, err
		}

		if first {
			if name != "Product" {
				return nil, errors.Wrap(ErrMalformed, "first header must be Product")
			}
			first = false
		}

		if err := st.update(name, value); err != nil {
			return nil, err
		}

		pos = end + 1
	}

	if first {
		return nil, errors.Wrap(ErrMalformed, "no header section")
	}

	h, err := st.finish()
	if err != nil {
		return nil, err
	}
	h.DataStart = pos

	return h, nil
}

// splitHeader takes one "H name:value" line (without the newline) apart.
func splitHeader(line string) (name, value string, err error) {
	line = strings.TrimPrefix(line, "H")
	line = strings.TrimPrefix(line, " ")

	name, value, ok := strings.Cut(line, ":")
	if !ok {
		return "", "", errors.Wrapf(ErrMalformed, "header %q missing colon", line)
	}

	return name, value, nil
}

// state accumulates raw header values until finish builds the table.
type state struct {
	h      Headers
	frames frameDefsBuilder
}

func newState() *state {
	return &state{
		h: Headers{Other: make(map[string]string)},
	}
}

func (st *state) update(name, value string) error {
	intField := func(dst *int64) error {
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return errors.Wrapf(ErrMalformed, "header %q: bad integer %q", name, value)
		}
		*dst = v
		return nil
	}

	switch name {
	case "Product":
		st.h.Product = value

	case "Data version":
		v, err := strconv.Atoi(value)
		if err != nil || v < 1 || v > 2 {
			return errors.Wrapf(ErrUnsupported, "data version %q", value)
		}
		st.h.DataVersion = v

	case "Firmware revision":
		st.h.FirmwareRevision = value
	case "Firmware type":
		st.h.FirmwareType = value
	case "Board information":
		st.h.BoardInfo = value
	case "Craft name":
		st.h.CraftName = value

	case "vbatref":
		return intField(&st.h.Sys.VBatRef)
	case "minthrottle":
		return intField(&st.h.Sys.MinThrottle)
	case "maxthrottle":
		return intField(&st.h.Sys.MaxThrottle)

	case "motorOutput":
		low, high, ok := strings.Cut(value, ",")
		if !ok {
			return errors.Wrapf(ErrMalformed, "motorOutput %q", value)
		}
		l, err1 := strconv.ParseInt(low, 10, 64)
		h, err2 := strconv.ParseInt(high, 10, 64)
		if err1 != nil || err2 != nil {
			return errors.Wrapf(ErrMalformed, "motorOutput %q", value)
		}
		st.h.Sys.MotorLow, st.h.Sys.MotorHigh = l, h

	case "I interval":
		v, err := strconv.Atoi(value)
		if err != nil || v < 1 {
			return errors.Wrapf(ErrMalformed, "I interval %q", value)
		}
		st.h.Sys.IInterval = v

	case "P interval":
		num, denom, ok := strings.Cut(value, "/")
		if !ok {
			num, denom = "1", value
		}
		n, err1 := strconv.Atoi(num)
		d, err2 := strconv.Atoi(denom)
		if err1 != nil || err2 != nil || d == 0 {
			return errors.Wrapf(ErrMalformed, "P interval %q", value)
		}
		st.h.Sys.PNum, st.h.Sys.PDenom = n, d

	default:
		if frame, prop, ok := fieldHeader(name); ok {
			return st.frames.set(frame, prop, value)
		}
		st.h.Other[name] = value
	}

	return nil
}

// fieldHeader recognizes "Field <letter> <property>" headers.
func fieldHeader(name string) (frame byte, prop string, ok bool) {
	rest, found := strings.CutPrefix(name, "Field ")
	if !found {
		return 0, "", false
	}

	letter, prop, found := strings.Cut(rest, " ")
	if !found || len(letter) != 1 {
		return 0, "", false
	}

	return letter[0], prop, true
}

func (st *state) finish() (*Headers, error) {
	if st.h.DataVersion == 0 {
		return nil, errors.Wrap(ErrMalformed, "missing Data version header")
	}

	frames, err := st.frames.build()
	if err != nil {
		return nil, err
	}

	// The tagged 16-bit group decoder implements the data version 2
	// nibble layout; version 1 logs packed the group differently.
	if st.h.DataVersion == 1 {
		if def := frames.findEncoding(decode.Tag16); def != nil {
			return nil, errors.Wrapf(ErrUnsupported,
				"data version 1 with tagged 16-bit fields in frame %q", string(rune(def.Type)))
		}
	}
	st.h.Frames = frames

	return &st.h, nil
}
