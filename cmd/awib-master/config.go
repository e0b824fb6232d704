// seehuhn.de/go/awib - archival master images with standardized colour profiles
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"seehuhn.de/go/awib/tiff"
)

// config holds the settings which can be given in a configuration file.
// Command line flags take precedence.
type config struct {
	LogLevel  string `yaml:"loglevel"`
	Target    string `yaml:"target"`
	Profiles  string `yaml:"profiles"`
	Workers   int    `yaml:"workers"`
	Overwrite bool   `yaml:"overwrite"`
	Verify    bool   `yaml:"verify"`
	Quiet     bool   `yaml:"quiet"`
	Compress  string `yaml:"compress"`
}

// readConfig reads a YAML configuration file.  Unknown keys are an error.
func readConfig(r io.Reader) (*config, error) {
	cfg := &config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	err := dec.Decode(cfg)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return cfg, nil
}

func loadConfig(name string) (*config, error) {
	fd, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer fd.Close()
	cfg, err := readConfig(fd)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return cfg, nil
}

// levelQuiet is above every level used by the program.
const levelQuiet = slog.LevelError + 4

// parseLevel converts a level name into a log level.  The comparison
// ignores case and surrounding white space.
func parseLevel(s string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO":
		return slog.LevelInfo, nil
	case "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	case "CRITICAL", "QUIET":
		return levelQuiet, nil
	}
	return 0, fmt.Errorf("invalid log level %q (use DEBUG, INFO, WARNING or ERROR)", s)
}

func parseCompression(s string) (tiff.Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "deflate", "zip":
		return tiff.Deflate, nil
	case "packbits":
		return tiff.PackBits, nil
	case "none":
		return tiff.Uncompressed, nil
	}
	return 0, fmt.Errorf("invalid compression %q (use deflate, packbits or none)", s)
}
