package stream

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pacak/blackbox/frame"
	"github.com/pacak/blackbox/header"
	"github.com/pacak/blackbox/reader"
)

const testHeader = "H Product:Blackbox flight data recorder\n" +
	"H Data version:2\n" +
	"H minthrottle:1150\n" +
	"H motorOutput:48,2047\n" +
	"H vbatref:4095\n" +
	"H Field I name:loopIteration,time,axisP[0],motor[0]\n" +
	"H Field I signed:0,0,1,0\n" +
	"H Field I predictor:0,0,0,4\n" +
	"H Field I encoding:1,1,0,1\n" +
	"H Field P predictor:6,2,1,3\n" +
	"H Field P encoding:9,0,0,0\n" +
	"H Field G name:time,GPS_coord[0],GPS_coord[1]\n" +
	"H Field G signed:0,1,1\n" +
	"H Field G predictor:10,7,7\n" +
	"H Field G encoding:1,0,0\n"

var (
	// loopIteration=1, time=1000, axisP=-3, motor[0]=1200
	intraFrame = []byte{'I', 0x01, 0xE8, 0x07, 0x05, 0x32}
	// deltas: (null), time +500, axisP -1, motor +10
	interFrame = []byte{'P', 0xE8, 0x07, 0x01, 0x14}

	logEndFrame = append([]byte{'E', 0xFF}, "End of log\x00"...)
)

func newDecoder(t *testing.T, frames ...[]byte) *Decoder {
	t.Helper()

	data := []byte(testHeader)
	for _, f := range frames {
		data = append(data, f...)
	}

	h, err := header.Parse(data)
	if err != nil {
		t.Fatalf("header.Parse: %+v", err)
	}
	return New(h, data)
}

// collect drains the stream.
func collect(d *Decoder) (results []Result) {
	for {
		res, ok := d.Next()
		if !ok {
			return results
		}
		results = append(results, res)
	}
}

func TestCleanStream(t *testing.T) {
	d := newDecoder(t, intraFrame, interFrame, interFrame, logEndFrame)

	results := collect(d)
	if len(results) != 4 {
		t.Fatalf("got %d results, want 4", len(results))
	}
	for i, res := range results {
		if res.Err != nil {
			t.Fatalf("result %d: unexpected sync error: %v", i, res.Err)
		}
	}

	wantValues := [][]int64{
		{1, 1000, -3, 1200},
		{2, 1500, -4, 1210},
		{3, 2500, -5, 1215},
	}
	for i, want := range wantValues {
		if diff := cmp.Diff(want, results[i].Frame.Values); diff != "" {
			t.Errorf("frame %d values mismatch (-want +got):\n%s", i, diff)
		}
	}

	last := results[3].Frame
	if last.Type != 'E' || last.Event != frame.EventLogEnd {
		t.Errorf("last frame = %v, want end-of-log event", last)
	}

	want := Stats{FramesAttempted: 4, FramesCommitted: 4}
	if diff := cmp.Diff(want, d.Stats()); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}

func TestResyncAfterCorruptRegion(t *testing.T) {
	// An unknown event id starts a corrupt region; two stray bytes
	// follow before the next real frame.
	junk := []byte{'E', 0x07, 0x00, 0x00}
	d := newDecoder(t, intraFrame, junk, intraFrame, interFrame)

	results := collect(d)
	if len(results) != 4 {
		t.Fatalf("got %d results, want 4", len(results))
	}

	if results[0].Frame == nil || results[0].Frame.Type != 'I' {
		t.Fatalf("result 0: %+v", results[0])
	}

	se := results[1].Err
	if se == nil {
		t.Fatalf("result 1: expected sync error, got frame %v", results[1].Frame)
	}
	if !errors.Is(se, reader.ErrMalformed) {
		t.Errorf("cause = %v, want ErrMalformed", se.Cause)
	}
	if se.Skipped != len(junk) {
		t.Errorf("Skipped = %d, want %d", se.Skipped, len(junk))
	}
	wantOffset := int64(len(testHeader) + len(intraFrame))
	if se.Offset != wantOffset {
		t.Errorf("Offset = %d, want %d", se.Offset, wantOffset)
	}

	// The stream recovers with the second keyframe and the P frame
	// deltas against it.
	if results[2].Frame == nil || results[2].Frame.Type != 'I' {
		t.Fatalf("result 2: %+v", results[2])
	}
	if diff := cmp.Diff([]int64{2, 1500, -4, 1210}, results[3].Frame.Values); diff != "" {
		t.Errorf("post-resync P values mismatch (-want +got):\n%s", diff)
	}

	// The corrupt event frame counts as one attempt; resync trial
	// decodes do not.
	want := Stats{FramesAttempted: 4, FramesCommitted: 3, SyncErrors: 1, BytesSkipped: len(junk)}
	if diff := cmp.Diff(want, d.Stats()); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}

func TestUnrecoverableGap(t *testing.T) {
	// A truncated P frame at the end of the buffer: nothing after it to
	// resynchronize on.
	truncated := []byte{'P', 0xE8}
	d := newDecoder(t, intraFrame, truncated)

	results := collect(d)
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	se := results[1].Err
	if se == nil {
		t.Fatal("expected a sync error for the tail")
	}
	if !errors.Is(se, ErrUnrecoverableGap) {
		t.Errorf("error %v does not wrap ErrUnrecoverableGap", se)
	}
	if !errors.Is(se, reader.ErrUnexpectedEnd) {
		t.Errorf("error %v does not wrap the original cause", se)
	}
	if se.Skipped != len(truncated) {
		t.Errorf("Skipped = %d, want %d", se.Skipped, len(truncated))
	}

	if _, ok := d.Next(); ok {
		t.Error("stream continued past an unrecoverable gap")
	}
}

func TestTruncatedFirstFrame(t *testing.T) {
	// A lone marker with a half-written varint: one sync error covering
	// the whole data region, then the stream ends.
	d := newDecoder(t, []byte{'I', 0x85})

	results := collect(d)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}

	se := results[0].Err
	if se == nil || !errors.Is(se, reader.ErrUnexpectedEnd) || !errors.Is(se, ErrUnrecoverableGap) {
		t.Fatalf("result 0 = %+v", results[0])
	}
	if se.Offset != int64(len(testHeader)) || se.Skipped != 2 {
		t.Errorf("Offset = %d, Skipped = %d", se.Offset, se.Skipped)
	}
}

func TestFlippedMarkerResync(t *testing.T) {
	corrupt := append([]byte(nil), intraFrame...)
	corrupt[0] = 'Z'
	d := newDecoder(t, intraFrame, corrupt, intraFrame)

	results := collect(d)
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].Frame == nil || results[2].Frame == nil {
		t.Fatalf("results: %+v", results)
	}

	se := results[1].Err
	if se == nil || !errors.Is(se, ErrUnknownMarker) {
		t.Fatalf("result 1 = %+v, want unknown marker sync error", results[1])
	}
	if se.Skipped != len(intraFrame) {
		t.Errorf("Skipped = %d, want %d", se.Skipped, len(intraFrame))
	}

	// Two real frames, two attempts: the flipped marker never reaches
	// the assembler and the recovery scan is not an attempt either.
	want := Stats{FramesAttempted: 2, FramesCommitted: 2, SyncErrors: 1, BytesSkipped: len(intraFrame)}
	if diff := cmp.Diff(want, d.Stats()); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}

func TestInterFrameBeforeKeyframeRejected(t *testing.T) {
	d := newDecoder(t, interFrame, intraFrame)

	results := collect(d)
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	se := results[0].Err
	if se == nil || !errors.Is(se, ErrSanity) {
		t.Fatalf("result 0 = %+v, want sanity error", results[0])
	}
	if se.Skipped != len(interFrame) {
		t.Errorf("Skipped = %d, want %d", se.Skipped, len(interFrame))
	}

	if results[1].Frame == nil || results[1].Frame.Type != 'I' {
		t.Fatalf("result 1: %+v", results[1])
	}
}

func TestTimeRegressionRejected(t *testing.T) {
	// Same keyframe twice is fine (time may stand still), but a frame
	// whose time runs backwards is not.
	backwards := []byte{'I', 0x01, 0x64, 0x05, 0x32} // time=100 < 1000
	d := newDecoder(t, intraFrame, backwards, intraFrame)

	results := collect(d)

	var sanity *SyncError
	for _, res := range results {
		if res.Err != nil && errors.Is(res.Err, ErrSanity) {
			sanity = res.Err
		}
	}
	if sanity == nil {
		t.Fatal("time regression not flagged")
	}
}

func TestLogEndStopsBeforeTrailingData(t *testing.T) {
	trailing := []byte("anything at all after the end marker")
	d := newDecoder(t, intraFrame, logEndFrame, trailing)

	results := collect(d)
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[1].Frame == nil || results[1].Frame.Event != frame.EventLogEnd {
		t.Fatalf("result 1: %+v", results[1])
	}
	if d.Stats().BytesSkipped != 0 {
		t.Errorf("trailing data counted as skipped: %+v", d.Stats())
	}
}

func TestEmptyDataRegion(t *testing.T) {
	d := newDecoder(t)
	if res, ok := d.Next(); ok {
		t.Fatalf("Next on empty region returned %+v", res)
	}
}

func TestFrameOffsetsAreMonotonic(t *testing.T) {
	d := newDecoder(t, intraFrame, interFrame, interFrame, logEndFrame)

	var last int64 = -1
	for _, res := range collect(d) {
		if res.Frame == nil {
			continue
		}
		if res.Frame.Offset <= last {
			t.Fatalf("offset %d not past %d", res.Frame.Offset, last)
		}
		last = res.Frame.Offset
	}
}
