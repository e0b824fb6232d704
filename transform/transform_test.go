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
	"bytes"
	"errors"
	"image"
	"image/color"
	"math/rand"
	"sync"
	"testing"

	"seehuhn.de/go/awib/internal/imagetest"
	"seehuhn.de/go/awib/profile"
	"seehuhn.de/go/awib/raster"
)

func load(t *testing.T, name string) *profile.Profile {
	t.Helper()
	p, err := profile.Builtin().Load(name)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

func maxDiff(a, b [3]uint8) int {
	return max(absDiff(a[0], b[0]), absDiff(a[1], b[1]), absDiff(a[2], b[2]))
}

func TestIdentity(t *testing.T) {
	srgb := load(t, profile.SRGB4)
	e := NewEngine(nil)

	img := imagetest.Gradient(10, 10)
	res, err := e.Convert(img, srgb, srgb)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Identity || res.Image != image.Image(img) {
		t.Error("identity conversion of an RGB image changed the image")
	}

	pal := imagetest.Paletted(10, 10)
	res, err = e.Convert(pal, srgb, srgb)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Identity || raster.ModeOf(res.Image) != raster.ModeRGB {
		t.Errorf("palette image: identity=%t mode=%s", res.Identity, raster.ModeOf(res.Image))
	}
}

func TestSRGBToProPhoto(t *testing.T) {
	tr, err := New(load(t, profile.SRGB4), load(t, profile.ProPhoto))
	if err != nil {
		t.Fatal(err)
	}
	if !tr.Shaper() {
		t.Error("matrix/TRC profiles should use the shaper")
	}

	if got := tr.Color([]uint8{255, 255, 255}); got != [3]uint8{255, 255, 255} {
		t.Errorf("white maps to %v", got)
	}
	if got := tr.Color([]uint8{0, 0, 0}); got != [3]uint8{} {
		t.Errorf("black maps to %v", got)
	}
	for v := 0; v < 256; v += 5 {
		c := tr.Color([]uint8{uint8(v), uint8(v), uint8(v)})
		if absDiff(c[0], c[1]) > 1 || absDiff(c[1], c[2]) > 1 {
			t.Errorf("gray %d maps to %v", v, c)
		}
	}
	red := tr.Color([]uint8{255, 0, 0})
	if red[0] == 255 || red[1] == 0 {
		t.Errorf("sRGB red is not inside the ProPhoto gamut: %v", red)
	}
}

func TestRoundTrip(t *testing.T) {
	srgb := load(t, profile.SRGB4)
	adobe := imagetest.AdobeRGB()
	there, err := New(srgb, adobe)
	if err != nil {
		t.Fatal(err)
	}
	back, err := New(adobe, srgb)
	if err != nil {
		t.Fatal(err)
	}
	// Quantization in the wider Adobe RGB space loses precision, so only
	// the average error is required to be small.
	rng := rand.New(rand.NewSource(1))
	total := 0
	const n = 500
	for range n {
		c := [3]uint8{uint8(64 + rng.Intn(129)), uint8(64 + rng.Intn(129)), uint8(64 + rng.Intn(129))}
		a := there.Color(c[:])
		got := back.Color(a[:])
		d := maxDiff(c, got)
		if d > 6 {
			t.Errorf("%v -> %v -> %v", c, a, got)
		}
		total += d
	}
	if mean := float64(total) / n; mean > 1.5 {
		t.Errorf("mean round trip error %.2f", mean)
	}
}

func TestShaperMatchesPCS(t *testing.T) {
	tr, err := New(imagetest.AdobeRGB(), load(t, profile.SRGB2))
	if err != nil {
		t.Fatal(err)
	}
	rng := rand.New(rand.NewSource(2))
	for range 1000 {
		in := []uint8{uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256))}
		var fast, slow [3]uint8
		tr.fast.apply(fast[:], in)
		tr.slow(slow[:], in)
		if d := maxDiff(fast, slow); d > 1 {
			t.Errorf("%v: shaper gives %v, PCS path %v", in, fast, slow)
		}
	}
}

func TestLookupTables(t *testing.T) {
	srgb := load(t, profile.SRGB4)
	tables := imagetest.LabRGB()

	for _, pair := range [][2]*profile.Profile{{srgb, tables}, {tables, srgb}} {
		tr, err := New(pair[0], pair[1])
		if err != nil {
			t.Fatal(err)
		}
		if tr.Shaper() {
			t.Fatal("lookup tables cannot use the shaper")
		}
		// colours well inside the gamut, away from clipped grid cells
		for r := 80; r <= 176; r += 48 {
			for g := 80; g <= 176; g += 48 {
				for b := 80; b <= 176; b += 48 {
					c := [3]uint8{uint8(r), uint8(g), uint8(b)}
					if got := tr.Color(c[:]); maxDiff(c, got) > 5 {
						t.Errorf("%s -> %s: %v maps to %v", pair[0].Name(), pair[1].Name(), c, got)
					}
				}
			}
		}
	}
}

func TestCMYKSource(t *testing.T) {
	tr, err := New(imagetest.CMYK(), load(t, profile.SRGB4))
	if err != nil {
		t.Fatal(err)
	}
	if tr.Channels() != 4 {
		t.Fatalf("%d channels", tr.Channels())
	}
	if c := tr.Color([]uint8{0, 0, 0, 0}); c[0] < 250 || c[1] < 250 || c[2] < 250 {
		t.Errorf("paper white maps to %v", c)
	}
	if c := tr.Color([]uint8{0, 0, 0, 255}); c[0] > 5 || c[1] > 5 || c[2] > 5 {
		t.Errorf("full black ink maps to %v", c)
	}
	if c := tr.Color([]uint8{255, 0, 0, 0}); c[0] > 10 || c[1] < 245 || c[2] < 245 {
		t.Errorf("cyan maps to %v", c)
	}

	img := image.NewCMYK(image.Rect(0, 0, 3, 2))
	res, err := NewEngine(nil).Convert(img, imagetest.CMYK(), load(t, profile.SRGB4))
	if err != nil {
		t.Fatal(err)
	}
	if res.Retried || res.Mode != raster.ModeCMYK {
		t.Errorf("retried=%t mode=%s", res.Retried, res.Mode)
	}
}

func TestGraySource(t *testing.T) {
	tr, err := New(imagetest.Gray22(), load(t, profile.SRGB4))
	if err != nil {
		t.Fatal(err)
	}
	if !tr.Shaper() {
		t.Error("gray TRC should use the shaper")
	}
	if c := tr.Color([]uint8{0}); c != [3]uint8{} {
		t.Errorf("black maps to %v", c)
	}
	if c := tr.Color([]uint8{255}); c != [3]uint8{255, 255, 255} {
		t.Errorf("white maps to %v", c)
	}
	c := tr.Color([]uint8{128})
	if absDiff(c[0], c[1]) > 1 || absDiff(c[1], c[2]) > 1 {
		t.Errorf("mid gray maps to %v", c)
	}
}

func TestRetry(t *testing.T) {
	e := NewEngine(nil)
	srgb2 := load(t, profile.SRGB2)
	srgb4 := load(t, profile.SRGB4)

	pal := imagetest.Paletted(7, 5)
	res, err := e.Convert(pal, srgb2, srgb4)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Retried || res.Mode != raster.ModeRGB || res.Identity {
		t.Errorf("palette image: %+v", res)
	}
	if raster.ModeOf(res.Image) != raster.ModeRGB {
		t.Error("result is not RGB")
	}

	rgb := imagetest.Gradient(4, 4)
	res, err = e.Convert(rgb, imagetest.Gray22(), srgb4)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Retried || res.Mode != raster.ModeL {
		t.Errorf("RGB image with gray profile: retried=%t mode=%s", res.Retried, res.Mode)
	}
}

func TestUnsupported(t *testing.T) {
	e := NewEngine(nil)
	img := imagetest.Gradient(4, 4)
	srgb := load(t, profile.SRGB4)

	for _, dst := range []*profile.Profile{imagetest.Gray22(), imagetest.CMYK()} {
		_, err := e.Convert(img, srgb, dst)
		var u *UnsupportedTransformError
		if !errors.As(err, &u) {
			t.Errorf("%s: got %v, want UnsupportedTransformError", dst.Name(), err)
			continue
		}
		if !errors.Is(err, errTargetNotRGB) || u.Mode != raster.ModeRGB {
			t.Errorf("%s: unexpected error %v", dst.Name(), err)
		}
	}
}

func TestCache(t *testing.T) {
	src := imagetest.AdobeRGB()
	dst := load(t, profile.ProPhoto)
	img := imagetest.Gradient(3, 3)

	e := NewEngine(nil)
	first, err := e.Convert(img, src, dst)
	if err != nil {
		t.Fatal(err)
	}
	second, err := e.Convert(img, src, dst)
	if err != nil {
		t.Fatal(err)
	}
	if first.Cached || !second.Cached {
		t.Errorf("cached: first=%t second=%t", first.Cached, second.Cached)
	}

	e = NewEngine(&Options{CacheSize: -1})
	for range 2 {
		res, err := e.Convert(img, src, dst)
		if err != nil {
			t.Fatal(err)
		}
		if res.Cached {
			t.Error("disabled cache was used")
		}
	}
}

func TestInputUnchanged(t *testing.T) {
	img := imagetest.Gradient(20, 20)
	orig := bytes.Clone(img.Pix)
	res, err := NewEngine(nil).Convert(img, imagetest.AdobeRGB(), load(t, profile.SRGB4))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(orig, img.Pix) {
		t.Error("input image was modified")
	}
	if res.Image == image.Image(img) {
		t.Error("conversion returned the input image")
	}
}

func TestDeterministic(t *testing.T) {
	img := imagetest.Gradient(32, 32)
	img.SetNRGBA(0, 0, color.NRGBA{1, 2, 3, 255})
	e := NewEngine(nil)
	src := imagetest.LabRGB()
	dst := load(t, profile.ProPhoto)

	var wg sync.WaitGroup
	results := make([]*raster.RGB, 4)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := e.Convert(img, src, dst)
			if err == nil {
				results[i] = res.Image.(*raster.RGB)
			}
		}()
	}
	wg.Wait()
	for i, r := range results {
		if r == nil || !bytes.Equal(r.Pix, results[0].Pix) {
			t.Fatalf("result %d differs", i)
		}
	}
}
