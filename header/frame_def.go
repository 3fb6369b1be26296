package header

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/pacak/blackbox/decode"
	"github.com/pacak/blackbox/predict"
)

// FieldDef describes one field of one frame type: its name, signedness
// and the (encoding, predictor) pair used to decode it. Immutable once
// built; shared read-only by every frame decode.
type FieldDef struct {
	Name      string
	Signed    bool
	Predictor predict.Predictor
	Encoding  decode.Encoding

	// HomeIndex selects the GPS home coordinate (0 latitude, 1
	// longitude) for fields predicted by HomeCoord.
	HomeIndex int
}

// FrameDef is the ordered field table for one frame-type letter.
type FrameDef struct {
	Type   byte
	Fields []FieldDef

	iteration int
	time      int
	motor0    int
}

func (d *FrameDef) Count() int {
	return len(d.Fields)
}

// Names returns all field names in ordinal order.
func (d *FrameDef) Names() (names []string) {
	for i := range d.Fields {
		names = append(names, d.Fields[i].Name)
	}
	return names
}

// IndexOf returns the ordinal of the named field, or -1.
func (d *FrameDef) IndexOf(name string) int {
	for i := range d.Fields {
		if d.Fields[i].Name == name {
			return i
		}
	}
	return -1
}

// IterationIndex is the ordinal of the loop iteration counter, or -1.
func (d *FrameDef) IterationIndex() int { return d.iteration }

// TimeIndex is the ordinal of the frame timestamp, or -1.
func (d *FrameDef) TimeIndex() int { return d.time }

// Motor0Index is the ordinal of motor[0], or -1.
func (d *FrameDef) Motor0Index() int { return d.motor0 }

// FrameDefs maps frame-type letters to their field tables. Types absent
// from the header are nil.
type FrameDefs struct {
	Intra *FrameDef // I
	Inter *FrameDef // P
	Slow  *FrameDef // S
	GPS   *FrameDef // G
	Home  *FrameDef // H
}

// ByType returns the definition for a frame-type letter, or nil.
func (f *FrameDefs) ByType(t byte) *FrameDef {
	switch t {
	case 'I':
		return f.Intra
	case 'P':
		return f.Inter
	case 'S':
		return f.Slow
	case 'G':
		return f.GPS
	case 'H':
		return f.Home
	}
	return nil
}

// findEncoding returns the first definition containing a field with the
// given encoding, or nil.
func (f *FrameDefs) findEncoding(e decode.Encoding) *FrameDef {
	for _, def := range []*FrameDef{f.Intra, f.Inter, f.Slow, f.GPS, f.Home} {
		if def == nil {
			continue
		}
		for i := range def.Fields {
			if def.Fields[i].Encoding == e {
				return def
			}
		}
	}
	return nil
}

// rawDef holds the unsplit comma-separated header values for one frame
// type while parsing.
type rawDef struct {
	names      string
	signed     string
	predictors string
	encodings  string
}

func (r *rawDef) empty() bool {
	return r.names == "" && r.predictors == "" && r.encodings == ""
}

type frameDefsBuilder struct {
	intra, inter, slow, gps, home rawDef
}

func (b *frameDefsBuilder) set(frame byte, prop, value string) error {
	var raw *rawDef
	switch frame {
	case 'I':
		raw = &b.intra
	case 'P':
		raw = &b.inter
	case 'S':
		raw = &b.slow
	case 'G':
		raw = &b.gps
	case 'H':
		raw = &b.home
	default:
		return errors.Wrapf(ErrUnsupported, "field header for frame type %q", string(rune(frame)))
	}

	switch prop {
	case "name":
		raw.names = value
	case "signed":
		raw.signed = value
	case "predictor":
		raw.predictors = value
	case "encoding":
		raw.encodings = value
	case "width":
		// Obsolete header, ignored like the firmware's own tools do.
	default:
		return errors.Wrapf(ErrMalformed, "unknown field property %q", prop)
	}

	return nil
}

func (b *frameDefsBuilder) build() (defs FrameDefs, err error) {
	if b.intra.empty() {
		return defs, errors.Wrap(ErrMalformed, "missing I frame field definitions")
	}

	defs.Intra, err = buildDef('I', b.intra, nil)
	if err != nil {
		return defs, err
	}

	if !b.inter.empty() {
		// P frames record the same fields as I frames; the header only
		// restates their predictors and encodings.
		defs.Inter, err = buildDef('P', b.inter, defs.Intra)
		if err != nil {
			return defs, err
		}
	}

	for _, f := range []struct {
		t   byte
		raw rawDef
		dst **FrameDef
	}{
		{'S', b.slow, &defs.Slow},
		{'G', b.gps, &defs.GPS},
		{'H', b.home, &defs.Home},
	} {
		if f.raw.empty() {
			continue
		}
		def, err := buildDef(f.t, f.raw, nil)
		if err != nil {
			return defs, err
		}
		*f.dst = def
	}

	if defs.Home != nil && defs.Home.Count() < 2 {
		return defs, errors.Wrap(ErrUnsupported, "home frame needs two coordinate fields")
	}

	return defs, nil
}

func buildDef(t byte, raw rawDef, inherit *FrameDef) (*FrameDef, error) {
	var names []string
	var signed []bool

	if inherit != nil {
		names = make([]string, inherit.Count())
		signed = make([]bool, inherit.Count())
		for i, f := range inherit.Fields {
			names[i] = f.Name
			signed[i] = f.Signed
		}
	} else {
		if raw.names == "" {
			return nil, errors.Wrapf(ErrMalformed, "frame %q has no field names", string(rune(t)))
		}
		names = strings.Split(raw.names, ",")
		signed = make([]bool, len(names))
		if raw.signed != "" {
			vals := strings.Split(raw.signed, ",")
			if len(vals) != len(names) {
				return nil, errors.Wrapf(ErrMalformed, "frame %q signed list length", string(rune(t)))
			}
			for i, v := range vals {
				signed[i] = v == "1"
			}
		}
	}

	predictors, err := intList(raw.predictors, len(names))
	if err != nil {
		return nil, errors.Wrapf(err, "frame %q predictors", string(rune(t)))
	}
	encodings, err := intList(raw.encodings, len(names))
	if err != nil {
		return nil, errors.Wrapf(err, "frame %q encodings", string(rune(t)))
	}

	def := &FrameDef{
		Type:   t,
		Fields: make([]FieldDef, len(names)),
	}

	homes := 0
	for i := range names {
		p := predict.Predictor(predictors[i])
		e := decode.Encoding(encodings[i])

		if !p.Valid() {
			return nil, errors.Wrapf(ErrUnsupported, "frame %q field %q predictor %d", string(rune(t)), names[i], predictors[i])
		}
		if !e.Valid() {
			return nil, errors.Wrapf(ErrUnsupported, "frame %q field %q encoding %d", string(rune(t)), names[i], encodings[i])
		}

		def.Fields[i] = FieldDef{
			Name:      names[i],
			Signed:    signed[i],
			Predictor: p,
			Encoding:  e,
		}

		if p == predict.HomeCoord {
			if homes >= 2 {
				return nil, errors.Wrapf(ErrUnsupported, "frame %q has more than two home-relative fields", string(rune(t)))
			}
			def.Fields[i].HomeIndex = homes
			homes++
		}
	}

	def.iteration = def.IndexOf("loopIteration")
	def.time = def.IndexOf("time")
	def.motor0 = def.IndexOf("motor[0]")

	if err := validateGroups(def); err != nil {
		return nil, err
	}
	if err := validateMotor0(def); err != nil {
		return nil, err
	}

	return def, nil
}

// validateGroups walks the field table the way the assembler will,
// checking that every fixed-size tag group has its full complement of
// adjacent fields sharing the encoding. Catching this here makes it a
// session-start UnsupportedFeature instead of a per-frame mystery.
func validateGroups(def *FrameDef) error {
	for i := 0; i < len(def.Fields); {
		e := def.Fields[i].Encoding
		n := def.GroupAt(i)

		if e.FixedGroup() && n != e.MaxGroup() {
			return errors.Wrapf(ErrUnsupported,
				"frame %q: %s group at field %q has %d of %d members",
				string(rune(def.Type)), e, def.Fields[i].Name, n, e.MaxGroup())
		}

		i += n
	}
	return nil
}

// GroupAt returns how many fields the encoding group starting at ordinal
// i spans: adjacent fields sharing the encoding, capped at MaxGroup. The
// frame assembler consumes the table group by group with this.
func (d *FrameDef) GroupAt(i int) int {
	e := d.Fields[i].Encoding
	max := e.MaxGroup()
	if max == 1 {
		return 1
	}

	n := 1
	for i+n < len(d.Fields) && n < max && d.Fields[i+n].Encoding == e {
		n++
	}
	return n
}

func validateMotor0(def *FrameDef) error {
	for i := range def.Fields {
		if def.Fields[i].Predictor != predict.Motor0 {
			continue
		}
		if def.motor0 < 0 || def.motor0 >= i {
			return errors.Wrapf(ErrUnsupported,
				"frame %q field %q predicts against motor[0] which is not decoded before it",
				string(rune(def.Type)), def.Fields[i].Name)
		}
	}
	return nil
}

func intList(s string, want int) ([]int, error) {
	if s == "" {
		return nil, errors.Wrap(ErrMalformed, "missing list")
	}

	parts := strings.Split(s, ",")
	if len(parts) != want {
		return nil, errors.Wrapf(ErrMalformed, "expected %d entries, got %d", want, len(parts))
	}

	out := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, errors.Wrapf(ErrMalformed, "bad integer %q", p)
		}
		out[i] = v
	}

	return out, nil
}
