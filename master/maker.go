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

// Package master turns archival images into colour managed master images.
//
// A [Maker] takes an image in any supported mode, with or without an
// embedded ICC profile, and produces an 8-bit RGB image in a standard
// target profile.  The master is stored as a TIFF file with the target
// profile and an XMP provenance packet embedded.  Every decision is
// recorded in the history of the Maker.
package master

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"seehuhn.de/go/awib/history"
	"seehuhn.de/go/awib/metadata"
	"seehuhn.de/go/awib/profile"
	"seehuhn.de/go/awib/raster"
	"seehuhn.de/go/awib/tiff"
	"seehuhn.de/go/awib/transform"
)

// Default profile names.
const (
	DefaultTarget   = profile.SRGB4
	DefaultFallback = profile.SRGB2
)

// Tool is recorded as the creator tool of masters.
const Tool = "seehuhn.de/go/awib"

// Options configure a [Maker].
type Options struct {
	// Destination is the file name used by [Maker.Save] when no explicit
	// destination is given.
	Destination string

	// Target names the profile of the master.  The default is
	// [DefaultTarget].  The target must be an RGB profile.
	Target string

	// Fallback names the profile assigned to images without an embedded
	// profile.  The default is [DefaultFallback].
	Fallback string

	// Store resolves profile names.  The default is [profile.Builtin].
	Store *profile.Store

	// Engine builds and caches colour transforms.  Makers which share an
	// Engine share the transform cache.  If this is nil, a private engine
	// is used.
	Engine *transform.Engine

	// Logger receives history entries at or above Threshold.
	Logger    *slog.Logger
	Threshold slog.Leveler

	// Clock returns the current time.  The default is [time.Now].
	Clock func() time.Time

	// Compression selects the compression of the master TIFF file.
	Compression tiff.Compression
}

// Maker converts one source image into a master image.
//
// A Maker is not safe for concurrent use.  Different Makers can be used
// concurrently, also if they share a [profile.Store] or a
// [transform.Engine].
type Maker struct {
	state State
	hist  *history.Historian
	clock func() time.Time

	source     string
	sourceFile string
	original   *raster.Image
	dest       string

	engine      *transform.Engine
	target      *profile.Profile
	fallback    *profile.Profile
	compression tiff.Compression

	rgb        image.Image
	srcProfile *profile.Profile
	outcome    Outcome
	result     *transform.Result
	master     image.Image
}

// New creates a Maker for the given source.  If opts is nil, default
// options are used.
//
// If the source image cannot be opened or decoded, a
// [*SourceNotFoundError] is returned.  If the container of the image holds
// a broken ICC profile, the error is a [*profile.MalformedProfileError].
// A [*profile.ProfileNotFoundError] is returned if the target or fallback
// profile is missing from the profile store.
func New(src Source, opts *Options) (*Maker, error) {
	if opts == nil {
		opts = &Options{}
	}
	store := opts.Store
	if store == nil {
		store = profile.Builtin()
	}
	targetName := opts.Target
	if targetName == "" {
		targetName = DefaultTarget
	}
	fallbackName := opts.Fallback
	if fallbackName == "" {
		fallbackName = DefaultFallback
	}
	target, err := store.Load(targetName)
	if err != nil {
		return nil, err
	}
	if target.Space() != profile.SpaceRGB {
		return nil, fmt.Errorf("target profile %q has colour space %s, not RGB",
			target.Name(), target.Space())
	}
	fallback, err := store.Load(fallbackName)
	if err != nil {
		return nil, err
	}

	engine := opts.Engine
	if engine == nil {
		engine = transform.NewEngine(nil)
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	m := &Maker{
		hist: history.New(&history.Options{
			Logger:    opts.Logger,
			Threshold: opts.Threshold,
			Clock:     clock,
		}),
		clock:       clock,
		source:      src.Describe(),
		dest:        opts.Destination,
		engine:      engine,
		target:      target,
		fallback:    fallback,
		compression: opts.Compression,
	}

	switch src := src.(type) {
	case pathSource:
		path := string(src)
		im, err := raster.Open(path)
		if err != nil {
			var malformed *profile.MalformedProfileError
			if errors.As(err, &malformed) {
				return nil, err
			}
			return nil, &SourceNotFoundError{Path: path, Err: err}
		}
		m.original = im
		m.sourceFile = filepath.Base(path)
		m.hist.Debug("init.file",
			fmt.Sprintf("initiated and opened image (%s) from file %q", im.Format, path),
			slog.String("path", path),
			slog.String("format", im.Format))
	case memorySource:
		if src.im == nil || src.im.Pixels == nil {
			return nil, &SourceNotFoundError{Err: errNoImage}
		}
		m.original = src.im
		m.hist.Debug("init.memory",
			fmt.Sprintf("initiated with image already in memory (%s)", src.im.Format),
			slog.String("format", src.im.Format))
	}

	w, h := m.original.Size()
	if w <= 0 || h <= 0 {
		return nil, &SourceNotFoundError{Path: m.source, Err: errors.New("empty image")}
	}
	return m, nil
}

// State returns the processing stage of the Maker.
func (m *Maker) State() State {
	return m.state
}

// Original returns the source image.
func (m *Maker) Original() *raster.Image {
	return m.original
}

// Target returns the profile of the master.
func (m *Maker) Target() *profile.Profile {
	return m.target
}

// SourceProfile returns the profile the source image was interpreted in,
// and how it was obtained.  Before [Maker.Make] has run, the profile is
// nil.
func (m *Maker) SourceProfile() (*profile.Profile, Outcome) {
	return m.srcProfile, m.outcome
}

// Master returns the master image, or nil if [Maker.Make] has not
// completed.
func (m *Maker) Master() image.Image {
	return m.master
}

// Conversion returns the result of the colour conversion, or nil if
// [Maker.Make] has not completed.
func (m *Maker) Conversion() *transform.Result {
	return m.result
}

// History returns the recorded history, oldest entry first.
func (m *Maker) History() []history.Entry {
	return m.hist.Entries()
}

// Make converts the source image into the master image.
//
// The image is first converted to RGB mode, and then transformed from its
// own colour profile into the target profile.  Make is idempotent: once
// the master exists, further calls return it without repeating any work.
func (m *Maker) Make() (image.Image, error) {
	if m.state >= ProfileStandardized {
		return m.master, nil
	}
	if m.state < ModeNormalized {
		m.normalizeMode()
	}
	err := m.standardizeProfile()
	if err != nil {
		return nil, err
	}
	return m.master, nil
}

func (m *Maker) normalizeMode() {
	mode := m.original.Mode()
	if mode == raster.ModeRGB {
		m.rgb = m.original.Pixels
		m.hist.Info("mode.kept", "Original color mode is RGB.",
			slog.String("mode", string(mode)))
	} else {
		m.rgb = raster.ToRGB(m.original.Pixels)
		m.hist.Info("mode.converted",
			fmt.Sprintf("Original color mode was %s so converted to RGB.", mode),
			slog.String("mode", string(mode)))
	}
	m.state = ModeNormalized
}

func (m *Maker) standardizeProfile() error {
	src, outcome, err := Detect(m.original, m.fallback)
	if err != nil {
		return err
	}
	switch outcome {
	case Embedded:
		m.hist.Info("profile.embedded",
			fmt.Sprintf("Detected internal ICC color profile in original image: %s.", src.Name()),
			slog.String("profile", src.Name()))
	case FallbackAssigned:
		m.hist.Warn("profile.fallback",
			fmt.Sprintf("Original image does not have an internal ICC color profile. %s has been assigned.", src.Name()),
			slog.String("profile", src.Name()))
	}

	// Gray and CMYK data is passed on in its own mode; the RGB version
	// would lose information.
	in := m.rgb
	if space := src.Space(); space != profile.SpaceRGB && m.original.Mode().Space() == space {
		in = m.original.Pixels
	}

	res, err := m.engine.Convert(in, src, m.target)
	if err != nil {
		return err
	}
	if res.Retried {
		m.hist.Debug("transform.retry",
			fmt.Sprintf("Image converted to %s for the %s source profile.", res.Mode, src.Space()),
			slog.String("mode", string(res.Mode)))
	}
	if res.Identity {
		m.hist.Info("profile.unchanged",
			fmt.Sprintf("Original ICC profile was already the specified target (%s).", m.target.Name()),
			slog.String("profile", m.target.Name()))
	} else {
		m.hist.Info("profile.converted",
			fmt.Sprintf("Original ICC profile (%s) was converted to the standard target (%s).",
				src.Name(), m.target.Name()),
			slog.String("from", src.Name()),
			slog.String("to", m.target.Name()),
			slog.Bool("shaper", res.Shaper),
			slog.Bool("cached", res.Cached))
	}

	m.srcProfile = src
	m.outcome = outcome
	m.result = res
	m.master = res.Image
	m.state = ProfileStandardized
	return nil
}

// Save writes the master to a TIFF file, with the target profile and an
// XMP provenance packet embedded.  If dest is empty, the destination given
// to [New] is used.  Existing files are overwritten.
//
// Save returns a [*NotReadyError] if [Maker.Make] has not completed, and a
// [*NoDestinationError] if no destination is known.
func (m *Maker) Save(dest string) error {
	if m.state < ProfileStandardized {
		return &NotReadyError{Op: "save", State: m.state}
	}
	if dest == "" {
		dest = m.dest
	}
	if dest == "" {
		return &NoDestinationError{}
	}

	now := m.clock()
	xmpData, err := m.provenance(now).Encode()
	if err != nil {
		return err
	}
	buf := &bytes.Buffer{}
	err = tiff.Encode(buf, m.master, &tiff.Options{
		Compression: m.compression,
		ICC:         m.target.Bytes(),
		XMP:         xmpData,
		Software:    Tool,
		Time:        now,
	})
	if err != nil {
		return err
	}

	err = writeFile(dest, buf.Bytes())
	if err != nil {
		return err
	}

	m.hist.Info("master.saved",
		fmt.Sprintf("Master image saved to %q.", dest),
		slog.String("path", dest),
		slog.Int("size", buf.Len()))
	m.state = Saved
	return nil
}

// writeFile replaces the named file.  The data is written to a temporary
// file in the same directory first, so that readers never see a partial
// master.
func writeFile(name string, data []byte) error {
	dir, base := filepath.Split(name)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Chmod(0o644)
	}
	if err1 := tmp.Close(); err == nil {
		err = err1
	}
	if err == nil {
		err = os.Rename(tmpName, name)
	}
	if err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func (m *Maker) provenance(now time.Time) *metadata.Provenance {
	var conversion string
	switch {
	case m.result.Identity:
		conversion = "identity"
	case m.result.Shaper:
		conversion = "matrix/TRC"
	default:
		conversion = "lookup table"
	}
	title := m.sourceFile
	if ext := filepath.Ext(title); ext != "" && ext != title {
		title = title[:len(title)-len(ext)]
	}
	return &metadata.Provenance{
		Title:           title,
		CreatorTool:     Tool,
		Created:         now,
		SourceFile:      m.sourceFile,
		SourceFormat:    m.original.Format,
		SourceMode:      string(m.original.Mode()),
		SourceProfile:   m.srcProfile.Name(),
		ProfileOrigin:   m.outcome.String(),
		TargetProfile:   m.target.Name(),
		RenderingIntent: transform.Perceptual.String(),
		Conversion:      conversion,
	}
}
