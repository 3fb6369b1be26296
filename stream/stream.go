// Package stream drives frame decoding across a whole log buffer. It
// walks marker bytes, validates each decoded frame before letting it
// into history, and resynchronizes on corruption by scanning forward
// for the next byte that decodes cleanly.
package stream

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/pacak/blackbox/frame"
	"github.com/pacak/blackbox/header"
	"github.com/pacak/blackbox/reader"
)

// markers are the bytes that can start a frame.
const markers = "IPSGHE"

var (
	// ErrUnknownMarker starts a corrupt region: the byte at the cursor
	// is not a frame type.
	ErrUnknownMarker = fmt.Errorf("unknown frame marker")

	// ErrSanity flags a frame that decoded without error but cannot be
	// right: an inter frame with no keyframe, or time running backwards.
	ErrSanity = fmt.Errorf("frame failed sanity check")

	// ErrUnrecoverableGap marks a corrupt region that reaches the end of
	// the buffer, with no later frame to resynchronize on.
	ErrUnrecoverableGap = fmt.Errorf("unrecoverable gap")
)

// SyncError describes one contiguous corrupt region. Offset is where
// decoding first failed, Skipped how many bytes were discarded before a
// frame decoded cleanly again (or the buffer ended), and Cause the error
// that started the region.
type SyncError struct {
	Offset  int64
	Skipped int
	Cause   error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("lost sync at offset %d, skipped %d bytes: %v", e.Offset, e.Skipped, e.Cause)
}

func (e *SyncError) Unwrap() error {
	return e.Cause
}

// Result is one element of the stream: a committed frame or a sync
// error, never both.
type Result struct {
	Frame *frame.Frame
	Err   *SyncError
}

// Stats counts what the decoder did over the life of the stream.
// FramesAttempted counts decodes started at a recognized marker under
// the cursor; bytes skipped during resync are not attempts.
type Stats struct {
	FramesAttempted int
	FramesCommitted int
	SyncErrors      int
	BytesSkipped    int
}

// A Decoder yields frames and sync errors from a parsed log. Not safe
// for concurrent use.
type Decoder struct {
	data []byte
	pos  int
	asm  *frame.Assembler

	stats Stats
	done  bool
}

// New returns a decoder positioned at the first frame after the header.
func New(h *header.Headers, data []byte) *Decoder {
	return &Decoder{
		data: data,
		pos:  h.DataStart,
		asm:  frame.NewAssembler(h),
	}
}

// Stats returns the counters accumulated so far.
func (d *Decoder) Stats() Stats {
	return d.stats
}

// Next returns the next frame or sync error. The second return is false
// once the buffer is exhausted or an end-of-log event was seen.
func (d *Decoder) Next() (Result, bool) {
	if d.done || d.pos >= len(d.data) {
		return Result{}, false
	}

	f, end, err := d.attempt(d.pos)
	if err == nil {
		d.asm.Commit(f)
		d.stats.FramesCommitted++
		d.pos = end
		if f.Type == 'E' && f.Event == frame.EventLogEnd {
			d.done = true
		}
		return Result{Frame: f}, true
	}

	return d.resync(err), true
}

// attempt decodes the frame at the cursor, counting it as a frame
// attempt when the byte there is a recognized marker.
func (d *Decoder) attempt(offset int) (*frame.Frame, int, error) {
	typ := d.data[offset]
	if strings.IndexByte(markers, typ) < 0 {
		return nil, 0, fmt.Errorf("%w: 0x%02x", ErrUnknownMarker, typ)
	}

	d.stats.FramesAttempted++
	return d.tryFrame(offset)
}

// tryFrame decodes and validates the frame at offset without committing
// it. end is the offset one past the frame on success. Resync trial
// decodes call it directly so they are not counted as frame attempts.
func (d *Decoder) tryFrame(offset int) (f *frame.Frame, end int, err error) {
	typ := d.data[offset]

	r := reader.New(d.data)
	r.SetPos(offset + 1)
	f, err = d.asm.Decode(r, typ, int64(offset))
	if err != nil {
		return nil, 0, err
	}

	if err = d.validate(f); err != nil {
		return nil, 0, err
	}
	return f, r.Pos(), nil
}

// validate applies checks a frame must pass before it may enter
// history. A frame followed by garbage is still accepted: rejecting it
// would discard the last good frame before every corrupt region.
func (d *Decoder) validate(f *frame.Frame) error {
	switch f.Type {
	case 'P':
		if !d.asm.HasMain() {
			return fmt.Errorf("%w: inter frame before first keyframe", ErrSanity)
		}
		fallthrough
	case 'I':
		if it, ok := f.Iteration(); ok && it < d.asm.LastIteration() {
			return fmt.Errorf("%w: iteration went backwards (%d < %d)",
				ErrSanity, it, d.asm.LastIteration())
		}
		if t, ok := f.Time(); ok && t < d.asm.LastTime() {
			return fmt.Errorf("%w: time went backwards (%d < %d)",
				ErrSanity, t, d.asm.LastTime())
		}
	}
	return nil
}

// resync scans forward from the failure point for a byte where a frame
// decodes and validates cleanly, and reports the whole corrupt region as
// one SyncError. cause is the error that broke the stream. The good
// frame itself is left for the next call, which re-decodes it from the
// advanced cursor.
func (d *Decoder) resync(cause error) Result {
	start := d.pos

	for probe := start + 1; probe < len(d.data); {
		skip := bytes.IndexAny(d.data[probe:], markers)
		if skip < 0 {
			break
		}
		probe += skip

		if _, _, err := d.tryFrame(probe); err == nil {
			d.pos = probe
			return d.syncError(start, probe-start, cause)
		}
		probe++
	}

	// Nothing decodes between here and the end of the buffer.
	d.pos = len(d.data)
	d.done = true
	return d.syncError(start, len(d.data)-start,
		fmt.Errorf("%w: %w", ErrUnrecoverableGap, cause))
}

func (d *Decoder) syncError(offset, skipped int, cause error) Result {
	d.stats.SyncErrors++
	d.stats.BytesSkipped += skipped
	return Result{Err: &SyncError{
		Offset:  int64(offset),
		Skipped: skipped,
		Cause:   cause,
	}}
}
