package gpx

import (
	"bytes"
	"strings"
	"testing"
)

func TestEmptyTrack(t *testing.T) {
	buf := &bytes.Buffer{}
	g := NewWriter(buf)

	if err := g.Close(); err != nil {
		t.Fatalf("%+v\n", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("empty track produced output: %q", buf.String())
	}
}

func TestTrackPoints(t *testing.T) {
	buf := &bytes.Buffer{}
	g := NewWriter(buf)

	if err := g.Point(521234567, 137654321, 12, 1_000_000); err != nil {
		t.Fatalf("%+v\n", err)
	}
	if err := g.Point(521234600, 137654300, 13, 1_250_000); err != nil {
		t.Fatalf("%+v\n", err)
	}
	if err := g.Close(); err != nil {
		t.Fatalf("%+v\n", err)
	}

	if g.Points() != 2 {
		t.Errorf("Points = %d, want 2", g.Points())
	}

	out := buf.String()
	for _, want := range []string{
		`<?xml version="1.0"`,
		`lat="52.1234567"`,
		`lon="13.7654321"`,
		`<ele>12</ele>`,
		`<time>1970-01-01T00:00:01.000000Z</time>`,
		"</trkseg></trk>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
