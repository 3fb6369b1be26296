package frame

import (
	"errors"

	"github.com/pacak/blackbox/header"
	"github.com/pacak/blackbox/predict"
	"github.com/pacak/blackbox/reader"
)

// ErrUnknownType is returned for a marker byte with no field definition
// in the header.
var ErrUnknownType = errors.New("unknown frame type")

// An Assembler decodes frames of every type declared in the header and
// maintains the history state predictors need. Decode never mutates
// state; a frame only enters history through Commit, which the stream
// driver calls after validating it.
type Assembler struct {
	defs *header.FrameDefs
	sys  header.SysConfig

	main history // I and P frames share ordinals
	slow history
	gps  history
	home GpsHome

	lastIteration int64
	lastTime      int64
	lastMainTime  int64

	frames int
}

func NewAssembler(h *header.Headers) *Assembler {
	return &Assembler{
		defs:          &h.Frames,
		sys:           h.Sys,
		lastIteration: -1,
	}
}

// HasMain reports whether a main (I) frame has been committed, i.e.
// whether inter frames have a base to delta against.
func (a *Assembler) HasMain() bool {
	return a.main.n > 0
}

// LastIteration returns the loop iteration of the most recent committed
// main frame, -1 before the first.
func (a *Assembler) LastIteration() int64 {
	return a.lastIteration
}

// LastTime returns the timestamp of the most recent committed frame that
// carried one.
func (a *Assembler) LastTime() int64 {
	return a.lastTime
}

// Home returns the current GPS home state.
func (a *Assembler) Home() GpsHome {
	return a.home
}

// Decode assembles one frame of the given type starting at the cursor.
// offset is the marker position in the source buffer, kept on the frame
// for diagnostics. On any error the assembler state is untouched and the
// cursor position is unspecified.
func (a *Assembler) Decode(r *reader.Reader, typ byte, offset int64) (*Frame, error) {
	if typ == 'E' {
		return a.decodeEvent(r, offset)
	}

	def := a.defs.ByType(typ)
	if def == nil {
		return nil, ErrUnknownType
	}

	f := &Frame{
		Type:   typ,
		Def:    def,
		Values: make([]int64, def.Count()),
		Offset: offset,
	}

	hist := a.historyFor(typ)
	var raw [8]int64

	for i := 0; i < def.Count(); {
		n := def.GroupAt(i)
		enc := def.Fields[i].Encoding

		if !enc.BitGranular() {
			r.Align()
		}
		if err := enc.Decode(r, raw[:n]); err != nil {
			return nil, err
		}

		for j := 0; j < n; j++ {
			fld := &def.Fields[i+j]

			env := predict.Env{
				Current:      f.Values,
				Field:        i + j,
				Motor0Index:  def.Motor0Index(),
				MinThrottle:  a.sys.MinThrottle,
				MotorLow:     a.sys.MotorLow,
				VBatRef:      a.sys.VBatRef,
				LastMainTime: a.lastMainTime,
			}
			if hist != nil && hist.n > 0 {
				env.Previous = hist.prev
				if hist.n > 1 {
					env.Previous2 = hist.prev2
				}
			}
			if fld.Predictor == predict.HomeCoord {
				env.HomeSet = a.home.Set
				env.HomeValue = a.home.Coord(fld.HomeIndex)
			}

			v, err := fld.Predictor.Apply(raw[j], env)
			if err != nil {
				if !errors.Is(err, predict.ErrHomeUnset) {
					return nil, err
				}
				f.HomeMissing = true
			}
			f.Values[i+j] = v
		}

		i += n
	}

	r.Align()
	return f, nil
}

// Commit folds a successfully validated frame into history. I frames are
// keyframes: they replace main history outright rather than shifting it.
func (a *Assembler) Commit(f *Frame) {
	f.Index = a.frames
	a.frames++

	switch f.Type {
	case 'I':
		a.main.keyframe(f.Values)
		a.noteMain(f)
	case 'P':
		a.main.shift(f.Values)
		a.noteMain(f)
	case 'S':
		a.slow.shift(f.Values)
	case 'G':
		a.gps.shift(f.Values)
	case 'H':
		a.home = GpsHome{Lat: f.Values[0], Lon: f.Values[1], Set: true}
	case 'E':
		a.commitEvent(f)
	}
}

func (a *Assembler) noteMain(f *Frame) {
	if it, ok := f.Iteration(); ok {
		a.lastIteration = it
	}
	if t, ok := f.Time(); ok {
		a.lastTime = t
		a.lastMainTime = t
	}
}

func (a *Assembler) historyFor(typ byte) *history {
	switch typ {
	case 'I', 'P':
		return &a.main
	case 'S':
		return &a.slow
	case 'G':
		return &a.gps
	}
	return nil
}
