package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/pacak/blackbox/csv"
	"github.com/pacak/blackbox/frame"
	"github.com/pacak/blackbox/gpx"
)

var logFilename = flag.String("logfile", "/dev/stdout", "decoded frame dump file")
var logFile *os.File

var configFilename = flag.String("config", "", "optional yaml config file, flags given on the command line take precedence")

var frameTypes FrameTypeFilter

var encoder Encoder
var format = flag.String("format", "plain", "decoded frame output format: plain, csv, json or gpx")

var track *gpx.Writer

var showStats = flag.Bool("stats", false, "log frame and sync counters after decoding")

var version = flag.Bool("version", false, "display build date and commit hash")

func RegisterFlags() {
	frameTypes = FrameTypeFilter{make(TypeMap)}

	flag.Var(frameTypes, "frames", "emit only frames of the types in a comma-separated list, ex. I,P,G")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s: [flags] logfile.bbl\n", os.Args[0])
		flag.PrintDefaults()
	}
}

func EnvOverride() {
	flag.VisitAll(func(f *flag.Flag) {
		envName := "BLACKBOX_" + strings.ToUpper(f.Name)
		flagValue := os.Getenv(envName)
		if flagValue != "" {
			if err := flag.Set(f.Name, flagValue); err != nil {
				log.Printf(
					"Environment variable %q failed to override flag %q with value %q: %q\n",
					envName, f.Name, flagValue, err,
				)
			} else {
				log.Printf("Environment variable %q overrides flag %q with %q\n", envName, f.Name, flagValue)
			}
		}
	})
}

func HandleFlags() {
	var err error

	if *logFilename == "/dev/stdout" {
		logFile = os.Stdout
	} else {
		logFile, err = os.Create(*logFilename)
		if err != nil {
			log.Fatal("Error creating log file:", err)
		}
	}

	*format = strings.ToLower(*format)
	switch *format {
	case "plain":
		encoder = PlainEncoder{logFile}
	case "csv":
		encoder = csv.NewEncoder(logFile)
	case "json":
		encoder = json.NewEncoder(logFile)
	case "gpx":
		track = gpx.NewWriter(logFile)
	default:
		log.Fatal("Invalid output format:", *format)
	}
}

// JSON and CSV encoders both implement this interface so we can simplify
// frame output formatting.
type Encoder interface {
	Encode(interface{}) error
}

type TypeMap map[byte]bool

func (m TypeMap) String() (s string) {
	var values []string
	for k := range m {
		values = append(values, string(k))
	}
	return strings.Join(values, ",")
}

func (m TypeMap) Set(value string) error {
	for _, v := range strings.Split(value, ",") {
		v = strings.TrimSpace(strings.ToUpper(v))
		if len(v) != 1 || !strings.ContainsAny(v, "IPSGHE") {
			return fmt.Errorf("invalid frame type: %q", v)
		}
		m[v[0]] = true
	}
	return nil
}

type FrameFilter interface {
	Filter(*frame.Frame) bool
}

type FilterChain []FrameFilter

func (fc *FilterChain) Add(filter FrameFilter) {
	*fc = append(*fc, filter)
}

func (fc FilterChain) Match(f *frame.Frame) bool {
	for _, filter := range fc {
		if !filter.Filter(f) {
			return false
		}
	}
	return true
}

type FrameTypeFilter struct {
	TypeMap
}

func (f FrameTypeFilter) Filter(fr *frame.Frame) bool {
	return f.TypeMap[fr.Type]
}

type PlainEncoder struct {
	w *os.File
}

func (pe PlainEncoder) Encode(msg interface{}) (err error) {
	_, err = fmt.Fprintln(pe.w, msg)
	return
}
