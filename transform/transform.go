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

// Package transform converts images between ICC colour spaces.
//
// A [Transform] maps the device values of a source profile to an RGB
// target profile, using the perceptual rendering intent.  Profiles which
// both use the matrix/TRC model are combined into a single shaper, which
// is evaluated with exact 8-bit rounding.  All other combinations go
// through the profile connection space.
package transform

import (
	"fmt"
	"image"
	"math"

	"seehuhn.de/go/awib/internal/colconv"
	"seehuhn.de/go/awib/profile"
	"seehuhn.de/go/awib/raster"
)

// Intent is an ICC rendering intent.
type Intent uint32

// Perceptual is the only rendering intent used by this package.
const Perceptual Intent = 0

func (i Intent) String() string {
	switch i {
	case Perceptual:
		return "perceptual"
	default:
		return fmt.Sprintf("Intent(%d)", uint32(i))
	}
}

// maxMemo limits the number of colours remembered per call to Apply.
const maxMemo = 1 << 18

// Transform converts colours from a source profile to an RGB target
// profile.  A Transform is immutable and safe for concurrent use.
type Transform struct {
	src, dst *profile.Profile
	channels int

	fast   *shaper
	source source
	sink   sink
}

// New builds the transform from src to dst.  The target must be an RGB
// profile.
func New(src, dst *profile.Profile) (*Transform, error) {
	n := src.Channels()
	switch src.Space() {
	case profile.SpaceRGB, profile.SpaceGray, profile.SpaceCMYK:
		// pass
	default:
		return nil, fmt.Errorf("unsupported source colour space %s", src.Space())
	}

	t := &Transform{src: src, dst: dst, channels: n}
	sink, err := newSink(dst)
	if err != nil {
		return nil, err
	}
	source, err := newSource(src)
	if err != nil {
		return nil, err
	}
	t.source = source
	t.sink = sink
	t.fast = newShaper(source, sink)
	return t, nil
}

// Source returns the source profile.
func (t *Transform) Source() *profile.Profile { return t.src }

// Target returns the target profile.
func (t *Transform) Target() *profile.Profile { return t.dst }

// Channels returns the number of samples per source pixel.
func (t *Transform) Channels() int { return t.channels }

// Intent returns the rendering intent of the transform.
func (t *Transform) Intent() Intent { return Perceptual }

// Shaper reports whether the transform combines two matrix/TRC models.
func (t *Transform) Shaper() bool { return t.fast != nil }

// Color converts a single colour.  The length of in must equal
// [Transform.Channels].
func (t *Transform) Color(in []uint8) [3]uint8 {
	var out [3]uint8
	if t.fast != nil {
		t.fast.apply(out[:], in)
		return out
	}
	t.slow(out[:], in)
	return out
}

func (t *Transform) slow(out []uint8, in []uint8) {
	var x [4]float64
	for i, v := range in {
		x[i] = float64(v) / 255
	}
	xyz := t.source.toXYZ(x[:len(in)])
	var y [3]float64
	t.sink.fromXYZ(y[:], xyz)
	for i, v := range y {
		out[i] = uint8(math.Round(colconv.Clamp(v, 0, 1) * 255))
	}
}

// Apply converts img to the target colour space and returns the result as
// a new image.  The image is first brought into the native layout of the
// source colour space, see [raster.Convert].  img is not modified.
func (t *Transform) Apply(img image.Image) (*raster.RGB, error) {
	in, ok := raster.Convert(img, t.src.Space())
	if !ok {
		return nil, fmt.Errorf("cannot represent image in colour space %s", t.src.Space())
	}
	b := in.Bounds()
	res := raster.NewRGB(b)

	var rowSamples func(y int) []uint8
	switch in := in.(type) {
	case *raster.RGB:
		rowSamples = in.Row
	case *image.Gray:
		rowSamples = func(y int) []uint8 {
			i := in.PixOffset(b.Min.X, y)
			return in.Pix[i : i+b.Dx()]
		}
	case *image.CMYK:
		rowSamples = func(y int) []uint8 {
			i := in.PixOffset(b.Min.X, y)
			return in.Pix[i : i+4*b.Dx()]
		}
	default:
		return nil, fmt.Errorf("unexpected image type %T", in)
	}

	n := t.channels
	convert := t.Color
	if t.fast == nil {
		memo := make(map[uint32][3]uint8)
		convert = func(px []uint8) [3]uint8 {
			var key uint32
			for _, v := range px {
				key = key<<8 | uint32(v)
			}
			if c, ok := memo[key]; ok {
				return c
			}
			var c [3]uint8
			t.slow(c[:], px)
			if len(memo) < maxMemo {
				memo[key] = c
			}
			return c
		}
	}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		src := rowSamples(y)
		dst := res.Row(y)
		for i, j := 0, 0; j < len(dst); i, j = i+n, j+3 {
			c := convert(src[i : i+n])
			dst[j], dst[j+1], dst[j+2] = c[0], c[1], c[2]
		}
	}
	return res, nil
}

// shaper evaluates a matrix/TRC source followed by a matrix/TRC sink,
// using lookup tables for the tone curves.
type shaper struct {
	channels int
	lin      [3][256]float64
	m        colconv.Matrix

	// thresholds[c][k] is the smallest linear value which rounds to
	// output code k+1 in channel c.
	thresholds [3][255]float64
}

func newShaper(src source, dst sink) *shaper {
	ms, ok := dst.(*matrixSink)
	if !ok {
		return nil
	}
	s := &shaper{}
	switch src := src.(type) {
	case *matrixModel:
		s.channels = 3
		for c := range 3 {
			for v := range 256 {
				s.lin[c][v] = src.trc[c].Eval(float64(v) / 255)
			}
		}
		s.m = ms.inv.Mul(src.m)
	case *graySource:
		s.channels = 1
		for v := range 256 {
			s.lin[0][v] = src.trc.Eval(float64(v) / 255)
		}
		s.m = colconv.Columns(ms.inv.Apply(colconv.D50), [3]float64{}, [3]float64{})
	default:
		return nil
	}

	for c := range 3 {
		fwd := ms.fwd[c]
		for k := range 255 {
			s.thresholds[c][k] = fwd.Eval((float64(k) + 0.5) / 255)
			if k > 0 && s.thresholds[c][k] < s.thresholds[c][k-1] {
				// tone curve is not increasing
				return nil
			}
		}
	}
	return s
}

func (s *shaper) apply(out []uint8, in []uint8) {
	var x [3]float64
	for c := range s.channels {
		x[c] = s.lin[c][in[c]]
	}
	v := s.m.Apply(x)
	for c := range 3 {
		out[c] = quantize(&s.thresholds[c], v[c])
	}
}

// quantize returns the number of thresholds not exceeding v.
func quantize(thr *[255]float64, v float64) uint8 {
	lo, hi := 0, len(thr)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if thr[mid] <= v {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return uint8(lo)
}
