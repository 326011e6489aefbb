// Copyright 2026 The fwstamp Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads fwstamp settings.
//
// Settings are layered, lowest precedence first: built-in defaults, the
// YAML file, FWSTAMP_* environment variables. The CLI applies explicitly
// set flags on top.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/whywaita/fwstamp/internal/define"
	"github.com/whywaita/fwstamp/internal/revision"
	"github.com/whywaita/fwstamp/internal/stamp"
)

// DefaultPath is the config file looked up when --config is not given.
const DefaultPath = ".fwstamp.yaml"

// Config holds all fwstamp settings.
type Config struct {
	Symbol      string        `yaml:"symbol" env:"FWSTAMP_SYMBOL"`
	Fallback    string        `yaml:"fallback" env:"FWSTAMP_FALLBACK"`
	Git         string        `yaml:"git" env:"FWSTAMP_GIT"`
	Dir         string        `yaml:"dir" env:"FWSTAMP_DIR"`
	Abbrev      int           `yaml:"abbrev" env:"FWSTAMP_ABBREV"`
	Dirty       bool          `yaml:"dirty" env:"FWSTAMP_DIRTY"`
	Timeout     time.Duration `yaml:"timeout" env:"FWSTAMP_TIMEOUT"`
	Format      string        `yaml:"format" env:"FWSTAMP_FORMAT"`
	Output      string        `yaml:"output" env:"FWSTAMP_OUTPUT"`
	MetricsFile string        `yaml:"metrics_file" env:"FWSTAMP_METRICS_FILE"`
}

// Default returns the built-in settings. They reproduce a plain
// `git rev-parse --short HEAD` stamped into FW_VERSION as compiler flags.
func Default() Config {
	return Config{
		Symbol:   stamp.DefaultSymbol,
		Fallback: revision.Fallback,
		Git:      "git",
		Timeout:  revision.DefaultTimeout,
		Format:   string(define.FormatFlags),
	}
}

// Load returns the defaults overlaid with the YAML file at path and the
// environment. A missing file is not an error. Load does not validate.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := decodeYAML(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse environment: %w", err)
	}
	return cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if !define.ValidSymbol(c.Symbol) {
		return fmt.Errorf("config: symbol %q is not a valid C identifier", c.Symbol)
	}
	if !revision.ValidTag(c.Fallback) {
		return fmt.Errorf("config: fallback %q must be 1-%d characters of [0-9A-Za-z._+-]", c.Fallback, revision.MaxTagLength)
	}
	if c.Git == "" {
		return errors.New("config: git executable must not be empty")
	}
	if !revision.ValidAbbrev(c.Abbrev) {
		return fmt.Errorf("config: abbrev %d must be 0 or between 4 and 40", c.Abbrev)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("config: timeout %s must be positive", c.Timeout)
	}
	if _, err := define.ParseFormat(c.Format); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// OutputFormat returns the parsed output format.
func (c Config) OutputFormat() (define.Format, error) {
	return define.ParseFormat(c.Format)
}

// ResolverOptions maps the settings onto revision lookup options.
func (c Config) ResolverOptions() revision.Options {
	return revision.Options{
		Git:     c.Git,
		Dir:     c.Dir,
		Abbrev:  c.Abbrev,
		Dirty:   c.Dirty,
		Timeout: c.Timeout,
	}
}

// Template is the annotated config written by `fwstamp init`. Its values
// equal Default().
const Template = `# fwstamp configuration.
# Every setting can be overridden with an FWSTAMP_* environment variable
# (for example FWSTAMP_SYMBOL) or the matching command-line flag.

# Preprocessor symbol that receives the revision tag.
symbol: FW_VERSION

# Tag used when the revision cannot be resolved.
fallback: unknown

# git executable.
git: git

# Abbreviated hash length. 0 uses git's default.
abbrev: 0

# Append -dirty when tracked files have uncommitted changes.
dirty: false

# Upper bound for each git invocation.
timeout: 10s

# Output format: flags, header or json.
format: flags

# Write output to this file instead of stdout. Unchanged files are not touched.
# output: include/fw_version.h

# Write Prometheus textfile metrics here.
# metrics_file: .pio/fwstamp.prom
`
