// Package gpx writes GPS track logs in GPX 1.0 form, one track point
// per GPS frame.
package gpx

import (
	"fmt"
	"io"
	"time"
)

// coordScale converts raw coordinate values to decimal degrees.
const coordScale = 1e7

const gpxHeader = `<?xml version="1.0" encoding="utf-8"?>
<gpx creator="blackbox" version="1.0"
	xmlns="http://www.topografix.com/GPX/1/0"
	xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"
	xsi:schemaLocation="http://www.topografix.com/GPX/1/0 http://www.topografix.com/GPX/1/0/gpx.xsd">
<trk><trkseg>
`

// A Writer emits one GPX track segment. Start and time handling are
// lazy: the preamble goes out with the first point, so an empty log
// produces an empty document.
type Writer struct {
	w       io.Writer
	started bool
	points  int
	err     error
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Point appends one track point. lat and lon are raw coordinate values,
// altitude is in metres, t is the frame timestamp in microseconds since
// an arbitrary epoch.
func (g *Writer) Point(lat, lon, altitude, t int64) error {
	if g.err != nil {
		return g.err
	}
	if !g.started {
		g.started = true
		if _, g.err = io.WriteString(g.w, gpxHeader); g.err != nil {
			return g.err
		}
	}

	stamp := time.UnixMicro(t).UTC().Format("2006-01-02T15:04:05.000000Z")
	_, g.err = fmt.Fprintf(g.w,
		"	<trkpt lat=\"%.7f\" lon=\"%.7f\"><ele>%d</ele><time>%s</time></trkpt>\n",
		float64(lat)/coordScale, float64(lon)/coordScale, altitude, stamp)
	if g.err == nil {
		g.points++
	}
	return g.err
}

// Points returns how many track points have been written.
func (g *Writer) Points() int {
	return g.points
}

// Close terminates the track. Safe to call when no points were written.
func (g *Writer) Close() error {
	if g.err != nil {
		return g.err
	}
	if !g.started {
		return nil
	}
	_, g.err = io.WriteString(g.w, "</trkseg></trk>\n</gpx>\n")
	return g.err
}
