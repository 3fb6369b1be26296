package main

import (
	"flag"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ConfigOverride applies values from the yaml config file to every flag
// not already set on the command line or through the environment. The
// file is a flat mapping of flag names to values:
//
//	format: csv
//	frames: I,P
//	stats: true
func ConfigOverride() error {
	if *configFilename == "" {
		return nil
	}

	data, err := os.ReadFile(*configFilename)
	if err != nil {
		return errors.Wrap(err, "reading config")
	}

	values := map[string]string{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return errors.Wrap(err, "parsing config")
	}

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})

	for name, value := range values {
		if set[name] {
			continue
		}
		if flag.Lookup(name) == nil {
			return errors.Errorf("unknown option %q in config", name)
		}
		if err := flag.Set(name, value); err != nil {
			return errors.Wrapf(err, "config option %q", name)
		}
	}

	return nil
}
