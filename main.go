package main

import (
	"flag"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/pacak/blackbox/csv"
	"github.com/pacak/blackbox/frame"
	"github.com/pacak/blackbox/header"
	"github.com/pacak/blackbox/stream"
)

var fc FilterChain

func init() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000000",
	})
}

var (
	buildTag   = "dev"     // v#.#.#
	buildDate  = "unknown" // date -u '+%Y-%m-%d'
	commitHash = "unknown" // git rev-parse HEAD
)

func main() {
	RegisterFlags()
	EnvOverride()
	flag.Parse()

	if *version {
		fmt.Println("Build Tag: ", buildTag)
		fmt.Println("Build Date:", buildDate)
		fmt.Println("Commit:    ", commitHash)
		os.Exit(0)
	}

	if err := ConfigOverride(); err != nil {
		log.Fatal(err)
	}

	HandleFlags()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}

	h, err := header.Parse(data)
	if err != nil {
		log.Fatalf("parsing log headers: %+v", err)
	}

	log.WithFields(log.Fields{
		"product":  h.Product,
		"version":  h.DataVersion,
		"firmware": h.FirmwareRevision,
		"craft":    h.CraftName,
	}).Info("decoding")

	if len(frameTypes.TypeMap) > 0 {
		fc.Add(frameTypes)
	}

	d := stream.New(h, data)
	for {
		res, ok := d.Next()
		if !ok {
			break
		}

		if res.Err != nil {
			log.WithFields(log.Fields{
				"offset":  res.Err.Offset,
				"skipped": res.Err.Skipped,
			}).Warn(res.Err.Cause)
			continue
		}

		emit(h, res.Frame)
	}

	if track != nil {
		if err := track.Close(); err != nil {
			log.Fatal("Error finishing track: ", err)
		}
		log.WithField("points", track.Points()).Info("track written")
	}

	if *showStats {
		stats := d.Stats()
		log.WithFields(log.Fields{
			"attempted": stats.FramesAttempted,
			"committed": stats.FramesCommitted,
			"syncs":     stats.SyncErrors,
			"skipped":   stats.BytesSkipped,
		}).Info("done")
	}
}

// LogRecord is the json form of one frame.
type LogRecord struct {
	Type   string           `json:"type"`
	Offset int64            `json:"offset"`
	Index  int              `json:"index"`
	Values map[string]int64 `json:"values"`
}

var wroteHeader bool

func emit(h *header.Headers, f *frame.Frame) {
	if !fc.Match(f) {
		return
	}

	var err error
	switch *format {
	case "gpx":
		if f.Type != 'G' {
			return
		}
		lat, _ := f.ValueByName("GPS_coord[0]")
		lon, _ := f.ValueByName("GPS_coord[1]")
		alt, _ := f.ValueByName("GPS_altitude")
		t, _ := f.Time()
		err = track.Point(lat, lon, alt, t)

	case "csv":
		// Only main frames share the intra frame's column shape.
		if f.Type != 'I' && f.Type != 'P' {
			return
		}
		if !wroteHeader {
			wroteHeader = true
			names := append([]string{"type", "offset"}, h.Frames.Intra.Names()...)
			if err = encoder.(*csv.Encoder).Header(names); err != nil {
				break
			}
		}
		err = encoder.Encode(f)

	case "json":
		rec := LogRecord{
			Type:   string(rune(f.Type)),
			Offset: f.Offset,
			Index:  f.Index,
			Values: map[string]int64{},
		}
		for i, v := range f.Values {
			rec.Values[f.Name(i)] = v
		}
		err = encoder.Encode(rec)

	default:
		err = encoder.Encode(f)
	}

	if err != nil {
		log.Fatal("Error encoding frame: ", err)
	}
}
