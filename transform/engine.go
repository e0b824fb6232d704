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

package transform

import (
	"fmt"
	"image"

	lru "github.com/hashicorp/golang-lru/v2"

	"seehuhn.de/go/awib/profile"
	"seehuhn.de/go/awib/raster"
)

// DefaultCacheSize is the number of transforms an [Engine] keeps by
// default.
const DefaultCacheSize = 32

// UnsupportedTransformError is returned when no transform from the source
// profile to the target profile can be built for an image.
type UnsupportedTransformError struct {
	Source, Target string
	Mode           raster.Mode
	Err            error
}

func (err *UnsupportedTransformError) Error() string {
	return fmt.Sprintf("cannot transform %s image from %q to %q: %v",
		err.Mode, err.Source, err.Target, err.Err)
}

func (err *UnsupportedTransformError) Unwrap() error {
	return err.Err
}

// Options configure an [Engine].
type Options struct {
	// CacheSize is the number of transforms kept for reuse.  Zero selects
	// [DefaultCacheSize], a negative value disables the cache.
	CacheSize int
}

// Engine builds colour transforms and applies them to images.
// An Engine is safe for concurrent use.
type Engine struct {
	cache *lru.Cache[cacheKey, *Transform]
}

type cacheKey struct {
	src, dst [32]byte
}

// NewEngine allocates a new Engine.  If opts is nil, default options are
// used.
func NewEngine(opts *Options) *Engine {
	size := DefaultCacheSize
	if opts != nil && opts.CacheSize != 0 {
		size = opts.CacheSize
	}
	e := &Engine{}
	if size > 0 {
		// lru.New only fails for non-positive sizes
		e.cache, _ = lru.New[cacheKey, *Transform](size)
	}
	return e
}

// Transform returns the transform from src to dst, building it if
// necessary.  The second return value reports whether the transform was
// found in the cache.
func (e *Engine) Transform(src, dst *profile.Profile) (*Transform, bool, error) {
	key := cacheKey{src: src.Fingerprint(), dst: dst.Fingerprint()}
	if e.cache != nil {
		if t, ok := e.cache.Get(key); ok {
			return t, true, nil
		}
	}
	t, err := New(src, dst)
	if err != nil {
		return nil, false, err
	}
	if e.cache != nil {
		e.cache.Add(key, t)
	}
	return t, false, nil
}

// Result describes the outcome of [Engine.Convert].
type Result struct {
	// Image is the converted image.  For an identity conversion of an RGB
	// image this is the input image itself.
	Image image.Image

	// Identity is set if source and target profile are equal, so that no
	// transform was built.
	Identity bool

	// Retried is set if the image had to be converted to the native mode
	// of the source profile before the transform could be applied.
	Retried bool

	// Cached is set if the transform was reused.
	Cached bool

	// Shaper is set if the matrix/TRC fast path was used.
	Shaper bool

	// Mode is the mode of the image the transform was applied to.
	Mode raster.Mode
}

// Convert transforms img from the src profile to the RGB profile dst.
// The result is always an RGB image; img itself is never modified.
//
// If the mode of img does not match the colour space of src, for example
// for palette images, the image is converted to the native mode of the
// source colour space and the transform is attempted once more.  If this
// fails too, an [*UnsupportedTransformError] is returned.
func (e *Engine) Convert(img image.Image, src, dst *profile.Profile) (*Result, error) {
	mode := raster.ModeOf(img)
	fail := func(err error) error {
		return &UnsupportedTransformError{
			Source: src.Name(),
			Target: dst.Name(),
			Mode:   mode,
			Err:    err,
		}
	}
	if dst.Space() != profile.SpaceRGB {
		return nil, fail(errTargetNotRGB)
	}

	if src.Equal(dst) {
		res := &Result{Image: img, Identity: true, Mode: mode}
		if mode != raster.ModeRGB {
			res.Image = raster.ToRGB(img)
		}
		return res, nil
	}

	t, cached, err := e.Transform(src, dst)
	if err != nil {
		return nil, fail(err)
	}
	res := &Result{Cached: cached, Shaper: t.Shaper(), Mode: mode}

	in := img
	if mode.Space() != src.Space() {
		conv, ok := raster.Convert(img, src.Space())
		if !ok {
			return nil, fail(fmt.Errorf("%s image cannot be represented in colour space %s", mode, src.Space()))
		}
		in = conv
		res.Retried = true
		res.Mode = raster.ModeOf(in)
		if res.Mode.Space() != src.Space() {
			return nil, fail(fmt.Errorf("%s image does not match colour space %s", res.Mode, src.Space()))
		}
	}

	out, err := t.Apply(in)
	if err != nil {
		return nil, fail(err)
	}
	res.Image = out
	return res, nil
}
