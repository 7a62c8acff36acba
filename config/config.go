// Package config holds the tunable settings of the event engine and loads
// them from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Options configures engine behavior. The zero value is not usable; start
// from Default.
type Options struct {
	// DrainAfterAbort controls what happens to events arriving after an
	// abort: when false (the default) they are dropped, when true streaming
	// content events are still folded into the aggregate so partial output
	// is preserved.
	DrainAfterAbort bool `yaml:"drain_after_abort"`
	// ApprovalTools names the tools whose completed calls require an
	// explicit approval decision before they are considered actionable.
	ApprovalTools []string `yaml:"approval_tools"`
	// MaxFaults bounds the number of non-fatal faults retained on the
	// aggregate. Older faults are evicted first. Zero or negative means
	// unbounded.
	MaxFaults int `yaml:"max_faults"`
}

// Default returns the settings used when no configuration file is provided.
func Default() Options {
	return Options{MaxFaults: 100}
}

// Load reads and parses a YAML configuration file.
func Load(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("read config %s: %w", path, err)
	}
	opts, err := Parse(data)
	if err != nil {
		return Options{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return opts, nil
}

// Parse decodes YAML settings over the defaults, so omitted keys keep their
// default values.
func Parse(data []byte) (Options, error) {
	opts := Default()
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return Options{}, err
	}
	return opts, nil
}
