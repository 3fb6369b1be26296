// Package frame assembles decoded field values into complete frames. It
// owns the rolling frame history and GPS home state that predictors
// consult, and guarantees neither is touched by a frame that fails to
// decode.
package frame

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pacak/blackbox/header"
)

// Frame is one fully decoded log record. Values are ordered by field
// ordinal; for event (E) frames Def is nil and names come from the event
// kind. Immutable once returned.
type Frame struct {
	Type   byte
	Def    *header.FrameDef
	Values []int64

	// Offset is the frame's start position in the source buffer, Index
	// its position in the sequence of committed frames.
	Offset int64
	Index  int

	// Event is the event id for E frames.
	Event EventKind

	// HomeMissing is set when a home-relative field was predicted before
	// any valid home frame; the value used a zero home.
	HomeMissing bool

	names []string
}

func (f *Frame) Count() int {
	return len(f.Values)
}

// Name returns the name of the field at ordinal i.
func (f *Frame) Name(i int) string {
	if f.Def != nil {
		return f.Def.Fields[i].Name
	}
	return f.names[i]
}

// Names returns all field names in ordinal order.
func (f *Frame) Names() (names []string) {
	for i := range f.Values {
		names = append(names, f.Name(i))
	}
	return names
}

// ValueByName looks a field up by name.
func (f *Frame) ValueByName(name string) (int64, bool) {
	for i := range f.Values {
		if f.Name(i) == name {
			return f.Values[i], true
		}
	}
	return 0, false
}

// Iteration returns the loop iteration counter, if this frame has one.
func (f *Frame) Iteration() (int64, bool) {
	if f.Def == nil || f.Def.IterationIndex() < 0 {
		return 0, false
	}
	return f.Values[f.Def.IterationIndex()], true
}

// Time returns the frame timestamp, if this frame has one.
func (f *Frame) Time() (int64, bool) {
	if f.Def == nil || f.Def.TimeIndex() < 0 {
		return 0, false
	}
	return f.Values[f.Def.TimeIndex()], true
}

func (f *Frame) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "{Type:%s Offset:%d", string(rune(f.Type)), f.Offset)
	if f.Type == 'E' {
		fmt.Fprintf(&b, " Event:%d", f.Event)
	}
	for i, v := range f.Values {
		fmt.Fprintf(&b, " %s:%d", f.Name(i), v)
	}
	b.WriteString("}")
	return b.String()
}

// Record produces the frame's values as strings for CSV output.
func (f *Frame) Record() (r []string) {
	r = append(r, string(rune(f.Type)))
	r = append(r, strconv.FormatInt(f.Offset, 10))
	for _, v := range f.Values {
		r = append(r, strconv.FormatInt(v, 10))
	}
	return r
}

// GpsHome is the reference coordinate recorded by the most recent valid
// home (H) frame. Once set it is only ever replaced by another valid H
// frame, never cleared by a failed one.
type GpsHome struct {
	Lat int64
	Lon int64
	Set bool
}

// Coord returns the coordinate for a home index (0 latitude, 1
// longitude).
func (g GpsHome) Coord(idx int) int64 {
	if idx == 0 {
		return g.Lat
	}
	return g.Lon
}

// history keeps the last one or two committed field vectors of one frame
// family.
type history struct {
	prev  []int64
	prev2 []int64
	n     int
}

func (h *history) reset() {
	h.prev, h.prev2, h.n = nil, nil, 0
}

// keyframe replaces all history with a single vector, as an I frame does
// for the main family.
func (h *history) keyframe(values []int64) {
	v := append([]int64(nil), values...)
	h.prev, h.prev2 = v, v
	h.n = 1
}

// shift pushes a new vector, moving prev to prev2.
func (h *history) shift(values []int64) {
	h.prev2 = h.prev
	h.prev = append([]int64(nil), values...)
	h.n++
}
