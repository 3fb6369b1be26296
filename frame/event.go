package frame

import (
	"fmt"

	"github.com/pacak/blackbox/reader"
)

// EventKind is the id byte that starts an E frame's payload.
type EventKind byte

const (
	EventSyncBeep      EventKind = 0
	EventLoggingResume EventKind = 14
	EventDisarm        EventKind = 15
	EventFlightMode    EventKind = 30
	EventLogEnd        EventKind = 255
)

// logEndMarker trails the end-of-log event; a mismatch means the event
// byte was corruption, not a real end of log.
const logEndMarker = "End of log\x00"

// decodeEvent reads one E frame. Unlike field-table frames, events carry
// an id byte followed by an event-specific payload.
func (a *Assembler) decodeEvent(r *reader.Reader, offset int64) (*Frame, error) {
	id, err := r.ReadByte()
	if err != nil {
		return nil, err
	}

	f := &Frame{
		Type:   'E',
		Event:  EventKind(id),
		Offset: offset,
	}

	uvar := func() (int64, error) {
		v, err := r.ReadUvarint()
		return int64(v), err
	}

	switch EventKind(id) {
	case EventSyncBeep:
		t, err := uvar()
		if err != nil {
			return nil, err
		}
		f.names = []string{"beepTime"}
		f.Values = []int64{t}

	case EventLoggingResume:
		iter, err := uvar()
		if err != nil {
			return nil, err
		}
		t, err := uvar()
		if err != nil {
			return nil, err
		}
		f.names = []string{"logIteration", "currentTime"}
		f.Values = []int64{iter, t}

	case EventDisarm:
		reason, err := uvar()
		if err != nil {
			return nil, err
		}
		f.names = []string{"reason"}
		f.Values = []int64{reason}

	case EventFlightMode:
		flags, err := uvar()
		if err != nil {
			return nil, err
		}
		last, err := uvar()
		if err != nil {
			return nil, err
		}
		f.names = []string{"flags", "lastFlags"}
		f.Values = []int64{flags, last}

	case EventLogEnd:
		for i := 0; i < len(logEndMarker); i++ {
			b, err := r.ReadByte()
			if err != nil {
				return nil, err
			}
			if b != logEndMarker[i] {
				return nil, fmt.Errorf("%w: bad end-of-log marker", reader.ErrMalformed)
			}
		}

	default:
		// Unknown events have unknown payload lengths; there is no way
		// to skip them reliably.
		return nil, fmt.Errorf("%w: unknown event %d", reader.ErrMalformed, id)
	}

	return f, nil
}

// commitEvent applies an event's side effects. A logging resume restarts
// the main-frame timeline: history is invalid until the next keyframe.
func (a *Assembler) commitEvent(f *Frame) {
	if f.Event == EventLoggingResume {
		a.lastIteration = f.Values[0]
		a.lastTime = f.Values[1]
		a.lastMainTime = f.Values[1]
		a.main.reset()
	}
}
