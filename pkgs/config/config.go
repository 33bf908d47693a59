// Package config loads interpreter settings from lspl.yaml.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	lerrors "github.com/lspl-lang/lspl/pkgs/errors"
)

// FileName is the configuration file looked up in the working directory
const FileName = "lspl.yaml"

const (
	DefaultMaxLoopIterations = 1000
	DefaultMaxDepth          = 128
	DefaultEntry             = "LICENSE"
)

// Config holds the settings for one interpreter run.
type Config struct {
	Entry             string `yaml:"entry"`               // source loaded when no file is given
	MaxLoopIterations int    `yaml:"max_loop_iterations"` // per loophole execution
	MaxDepth          int    `yaml:"max_depth"`           // nested statute calls and evidence includes
	Debug             bool   `yaml:"debug"`
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		Entry:             DefaultEntry,
		MaxLoopIterations: DefaultMaxLoopIterations,
		MaxDepth:          DefaultMaxDepth,
	}
}

// Load reads a YAML config file over the defaults. Unknown keys are errors.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, lerrors.NewConfigError(fmt.Sprintf("load config %s", path), err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, lerrors.NewConfigError(fmt.Sprintf("parse config %s", path), err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Find returns the path of FileName in dir if it exists
func Find(dir string) (string, bool) {
	path := filepath.Join(dir, FileName)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", false
	}
	return path, true
}

// Validate checks that limits are usable
func (c Config) Validate() error {
	if c.Entry == "" {
		return lerrors.NewConfigError("entry must not be empty", nil)
	}
	if c.MaxLoopIterations < 1 {
		return lerrors.NewConfigError(fmt.Sprintf("max_loop_iterations must be at least 1, got %d", c.MaxLoopIterations), nil)
	}
	if c.MaxDepth < 1 {
		return lerrors.NewConfigError(fmt.Sprintf("max_depth must be at least 1, got %d", c.MaxDepth), nil)
	}
	return nil
}
