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

// Awib-master makes master images for archival originals.
//
// Usage:
//
//	awib-master [flags] original destination
//
// If original is an image file, the master is written to destination,
// which must end in ".tif".  If destination is a directory, the master is
// written to a file with the same base name as the original inside this
// directory.
//
// If original is a directory, masters are made for all image files in
// this directory, and destination must be a directory.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"seehuhn.de/go/awib/formats"
	"seehuhn.de/go/awib/master"
	"seehuhn.de/go/awib/profile"
	"seehuhn.de/go/awib/raster"
	"seehuhn.de/go/awib/tiff"
	"seehuhn.de/go/awib/transform"
)

const defaultLevel = slog.LevelError

func main() {
	err := run(os.Args[1:], os.Stdout, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR: "+err.Error())
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("awib-master", flag.ContinueOnError)
	flags.SetOutput(stderr)
	levelName := flags.String("l", "", "logging level (DEBUG, INFO, WARNING or ERROR)")
	verbose := flags.Bool("v", false, "verbose output (logging level INFO)")
	veryVerbose := flags.Bool("w", false, "very verbose output (logging level DEBUG)")
	quiet := flags.Bool("q", false, "suppress all messages to stdout")
	overwrite := flags.Bool("x", false, "overwrite existing destination files")
	target := flags.String("target", master.DefaultTarget, "name of the target `profile`")
	profiles := flags.String("profiles", "", "load profiles from `dir` instead of the built-in bundle")
	workers := flags.Int("j", runtime.NumCPU(), "number of images converted in parallel")
	configName := flags.String("config", "", "read settings from the YAML `file`")
	verify := flags.Bool("verify", false, "read back and check every master after saving")
	compress := flags.String("compress", "deflate", "compression of the masters (deflate, packbits or none)")
	flags.Usage = func() {
		out := flags.Output()
		fmt.Fprintln(out, "usage: awib-master [flags] original destination")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Make master images for archival originals.")
		fmt.Fprintln(out)
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 2 {
		flags.Usage()
		return errors.New("need an original and a destination")
	}

	cfg := &config{}
	if *configName != "" {
		var err error
		cfg, err = loadConfig(*configName)
		if err != nil {
			return err
		}
	}
	set := make(map[string]bool)
	flags.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if !set["target"] && cfg.Target != "" {
		*target = cfg.Target
	}
	if !set["profiles"] && cfg.Profiles != "" {
		*profiles = cfg.Profiles
	}
	if !set["j"] && cfg.Workers > 0 {
		*workers = cfg.Workers
	}
	if !set["x"] {
		*overwrite = cfg.Overwrite
	}
	if !set["verify"] {
		*verify = cfg.Verify
	}
	if !set["q"] {
		*quiet = cfg.Quiet
	}
	if !set["compress"] && cfg.Compress != "" {
		*compress = cfg.Compress
	}
	compression, err := parseCompression(*compress)
	if err != nil {
		return err
	}

	level := defaultLevel
	switch {
	case *levelName != "":
		l, err := parseLevel(*levelName)
		if err != nil {
			return err
		}
		level = l
	case *veryVerbose:
		level = slog.LevelDebug
	case *verbose:
		level = slog.LevelInfo
	case *quiet:
		level = levelQuiet
	case cfg.LogLevel != "":
		l, err := parseLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		level = l
	}
	logger := newLogger(stderr, level)
	logger.Debug("command line", "args", strings.Join(args, " "))

	var store *profile.Store
	if *profiles != "" {
		store, err = profile.OpenDir(*profiles)
		if err != nil {
			return err
		}
	} else {
		store = profile.Builtin()
	}
	if err := store.Require(*target); err != nil {
		return err
	}

	src, err := filepath.Abs(flags.Arg(0))
	if err != nil {
		return err
	}
	dest, err := filepath.Abs(flags.Arg(1))
	if err != nil {
		return err
	}
	jobs, err := plan(src, dest, *overwrite, logger)
	if err != nil {
		return err
	}

	c := &converter{
		store:       store,
		engine:      transform.NewEngine(nil),
		target:      *target,
		compression: compression,
		logger:      logger,
		threshold:   level,
		verify:      *verify,
	}
	if !*quiet {
		c.stdout = stdout
	}
	return c.runAll(jobs, max(*workers, 1))
}

// newLogger writes human readable logs to terminals and JSON otherwise.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

type job struct {
	src, dest string
}

// plan lists the conversions needed for the given command line arguments.
// All destinations are checked before any conversion starts.
func plan(src, dest string, overwrite bool, logger *slog.Logger) ([]job, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return nil, fmt.Errorf("original (input) file not found: %q", src)
	}

	destIsDir := false
	if destInfo, err := os.Stat(dest); err == nil {
		destIsDir = destInfo.IsDir()
	}

	var jobs []job
	if srcInfo.IsDir() {
		if !destIsDir {
			return nil, errors.New("destination must be a directory if source is a directory")
		}
		entries, err := os.ReadDir(src)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			name := e.Name()
			if !e.Type().IsRegular() || !formats.IsValidFilename(name) {
				continue
			}
			if !formats.IsDecodable(name) {
				logger.Warn("skipping unsupported image format", "file", name)
				continue
			}
			jobs = append(jobs, job{
				src:  filepath.Join(src, name),
				dest: filepath.Join(dest, stem(name)+".tif"),
			})
		}
	} else {
		out := dest
		if destIsDir {
			out = filepath.Join(dest, stem(filepath.Base(src))+".tif")
		}
		jobs = append(jobs, job{src: src, dest: out})
	}

	planned := make(map[string]string, len(jobs))
	for _, j := range jobs {
		if filepath.Ext(j.dest) != ".tif" {
			return nil, errors.New(`destination (output) must be a TIFF file ending in ".tif"`)
		}
		if other, seen := planned[j.dest]; seen {
			return nil, fmt.Errorf("destination file exists: %q is the master for both %q and %q",
				j.dest, filepath.Base(other), filepath.Base(j.src))
		}
		planned[j.dest] = j.src
		if _, err := os.Stat(j.dest); err == nil {
			if !overwrite {
				return nil, fmt.Errorf("destination file exists: %q", j.dest)
			}
			logger.Warn("destination file will be overwritten", "file", j.dest)
		}
	}
	return jobs, nil
}

func stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

type converter struct {
	store       *profile.Store
	engine      *transform.Engine
	target      string
	compression tiff.Compression
	logger      *slog.Logger
	threshold   slog.Level
	verify      bool

	mu     sync.Mutex
	stdout io.Writer
}

// runAll converts the images, using at most n goroutines.  After the
// first failure no new conversions are started.
func (c *converter) runAll(jobs []job, n int) error {
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(n)
	for _, j := range jobs {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			return c.convert(j)
		})
	}
	return g.Wait()
}

func (c *converter) convert(j job) error {
	m, err := master.New(master.PathSource(j.src), &master.Options{
		Target:      c.target,
		Store:       c.store,
		Engine:      c.engine,
		Logger:      c.logger.With("file", filepath.Base(j.src)),
		Threshold:   c.threshold,
		Compression: c.compression,
	})
	if err != nil {
		return err
	}
	img, err := m.Make()
	if err != nil {
		return fmt.Errorf("%s: %w", j.src, err)
	}
	err = m.Save(j.dest)
	if err != nil {
		return err
	}
	if c.verify {
		_, err := master.Verify(j.dest, raster.StatsOf(img), m.Target())
		if err != nil {
			return err
		}
	}

	if c.stdout != nil {
		size := "?"
		if fi, err := os.Stat(j.dest); err == nil {
			size = humanize.Bytes(uint64(fi.Size()))
		}
		src, outcome := m.SourceProfile()
		c.mu.Lock()
		fmt.Fprintf(c.stdout, "%s -> %s (%s, %s profile %q -> %q)\n",
			j.src, j.dest, size, outcome, src.Name(), m.Target().Name())
		c.mu.Unlock()
	}
	return nil
}
