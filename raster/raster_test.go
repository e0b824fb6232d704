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

package raster

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"seehuhn.de/go/awib/internal/imagetest"
	"seehuhn.de/go/awib/profile"
	"seehuhn.de/go/awib/tiff"
)

func TestModeOf(t *testing.T) {
	r := image.Rect(0, 0, 2, 2)
	transparent := image.NewNRGBA(r)
	opaque := imagetest.Uniform(2, 2, color.NRGBA{1, 2, 3, 255})
	opaque16 := image.NewRGBA64(r)
	for i := 6; i < len(opaque16.Pix); i += 8 {
		opaque16.Pix[i] = 0xff
		opaque16.Pix[i+1] = 0xff
	}

	cases := []struct {
		img  image.Image
		want Mode
	}{
		{imagetest.Paletted(2, 2), ModeP},
		{image.NewGray(r), ModeL},
		{image.NewGray16(r), ModeI16},
		{image.NewCMYK(r), ModeCMYK},
		{image.NewYCbCr(r, image.YCbCrSubsampleRatio420), ModeYCbCr},
		{opaque, ModeRGB},
		{transparent, ModeRGBA},
		{opaque16, ModeRGB16},
		{image.NewNRGBA64(r), ModeRGBA16},
		{NewRGB(r), ModeRGB},
	}
	for _, c := range cases {
		if got := ModeOf(c.img); got != c.want {
			t.Errorf("%T: got %s, want %s", c.img, got, c.want)
		}
	}
}

func TestModeSpace(t *testing.T) {
	cases := map[Mode]profile.Space{
		ModeRGB:    profile.SpaceRGB,
		ModeRGBA16: profile.SpaceRGB,
		ModeL:      profile.SpaceGray,
		ModeI16:    profile.SpaceGray,
		ModeCMYK:   profile.SpaceCMYK,
		ModeP:      0,
		ModeYCbCr:  0,
	}
	for m, want := range cases {
		if got := m.Space(); got != want {
			t.Errorf("%s: got %s, want %s", m, got, want)
		}
	}
}

func TestToRGB(t *testing.T) {
	grad := imagetest.Gradient(16, 9)
	want := NewRGB(grad.Bounds())
	for y := range 9 {
		for x := range 16 {
			c := grad.NRGBAAt(x, y)
			want.SetRGB(x, y, c.R, c.G, c.B)
		}
	}

	pal := imagetest.Paletted(5, 5)
	gray := image.NewGray(image.Rect(0, 0, 3, 1))
	gray.Pix = []uint8{0, 100, 255}

	t.Run("NRGBA", func(t *testing.T) {
		orig := bytes.Clone(grad.Pix)
		got := ToRGB(grad)
		if diff := cmp.Diff(want.Pix, got.Pix); diff != "" {
			t.Errorf("samples (-want +got):\n%s", diff)
		}
		if !bytes.Equal(orig, grad.Pix) {
			t.Error("source image modified")
		}
	})
	t.Run("RGB", func(t *testing.T) {
		if got := ToRGB(want); got != want {
			t.Error("RGB image was copied")
		}
	})
	t.Run("Paletted", func(t *testing.T) {
		got := ToRGB(pal)
		for y := range 5 {
			for x := range 5 {
				r, g, b, _ := pal.At(x, y).RGBA()
				c := got.RGBAt(x, y)
				if c.R != uint8(r>>8) || c.G != uint8(g>>8) || c.B != uint8(b>>8) {
					t.Fatalf("(%d,%d): got %v", x, y, c)
				}
			}
		}
	})
	t.Run("Gray", func(t *testing.T) {
		got := ToRGB(gray)
		if diff := cmp.Diff([]uint8{0, 0, 0, 100, 100, 100, 255, 255, 255}, got.Pix); diff != "" {
			t.Errorf("samples (-want +got):\n%s", diff)
		}
	})
	t.Run("Premultiplied", func(t *testing.T) {
		img := image.NewRGBA(image.Rect(0, 0, 1, 1))
		img.Pix = []uint8{100, 50, 0, 200}
		got := ToRGB(img).RGBAt(0, 0)
		if got != (color.RGBA{128, 64, 0, 255}) {
			t.Errorf("got %v", got)
		}
	})
}

func TestSubImageOffsets(t *testing.T) {
	grad := imagetest.Gradient(10, 10)
	sub := grad.SubImage(image.Rect(3, 4, 7, 9)).(*image.NRGBA)
	got := ToRGB(sub)
	if got.Bounds() != sub.Bounds() {
		t.Fatalf("bounds %v", got.Bounds())
	}
	c := grad.NRGBAAt(5, 6)
	if got.RGBAt(5, 6) != (color.RGBA{c.R, c.G, c.B, 255}) {
		t.Errorf("pixel (5,6) is %v", got.RGBAt(5, 6))
	}
}

func TestDecodeEmbedded(t *testing.T) {
	icc := imagetest.AdobeRGB().Bytes()
	grad := imagetest.Gradient(20, 10)
	pal := imagetest.Paletted(20, 10)

	cases := []struct {
		format string
		data   []byte
		mode   Mode
	}{
		{"PNG", imagetest.PNG(grad, icc), ModeRGB},
		{"JPEG", imagetest.JPEG(grad, icc), ModeYCbCr},
		{"GIF", imagetest.GIF(pal, icc), ModeP},
	}
	for _, c := range cases {
		t.Run(c.format, func(t *testing.T) {
			im, err := Decode(bytes.NewReader(c.data))
			if err != nil {
				t.Fatal(err)
			}
			if im.Format != c.format {
				t.Errorf("format %q", im.Format)
			}
			if im.Mode() != c.mode {
				t.Errorf("mode %s, want %s", im.Mode(), c.mode)
			}
			if !bytes.Equal(im.ICC, icc) {
				t.Error("embedded profile not recovered")
			}
			if w, h := im.Size(); w != 20 || h != 10 {
				t.Errorf("size %dx%d", w, h)
			}
		})
	}

	im, err := Decode(bytes.NewReader(imagetest.PNG(grad, nil)))
	if err != nil {
		t.Fatal(err)
	}
	if im.ICC != nil {
		t.Error("found a profile in a plain PNG file")
	}
}

func TestJPEGSegments(t *testing.T) {
	icc := make([]byte, 150000)
	rand.New(rand.NewSource(1)).Read(icc)
	data := imagetest.JPEG(imagetest.Gradient(8, 8), icc)

	got, err := ExtractICC("jpeg", data)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, icc) {
		t.Error("profile spanning several segments not recovered")
	}
}

func TestWebPChunk(t *testing.T) {
	icc := []byte("odd-length profile")
	data := imagetest.WebPContainer(
		imagetest.Chunk{Type: "VP8X", Data: make([]byte, 10)},
		imagetest.Chunk{Type: "ICCP", Data: icc},
		imagetest.Chunk{Type: "VP8L", Data: []byte{1, 2, 3}},
	)
	got, err := ExtractICC("webp", data)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, icc) {
		t.Errorf("got %q", got)
	}

	got, err = ExtractICC("webp", imagetest.WebPContainer(imagetest.Chunk{Type: "VP8L", Data: []byte{1}}))
	if err != nil || got != nil {
		t.Errorf("got %q, %v", got, err)
	}
}

func TestTIFFProfile(t *testing.T) {
	icc := imagetest.Gray22().Bytes()
	buf := &bytes.Buffer{}
	if err := tiff.Encode(buf, imagetest.Gradient(5, 5), &tiff.Options{ICC: icc}); err != nil {
		t.Fatal(err)
	}
	im, err := Decode(buf)
	if err != nil {
		t.Fatal(err)
	}
	if im.Format != "TIFF" || !bytes.Equal(im.ICC, icc) {
		t.Errorf("format %q, %d profile bytes", im.Format, len(im.ICC))
	}
}

func TestBrokenContainer(t *testing.T) {
	data := imagetest.PNG(imagetest.Gradient(4, 4), []byte("some profile"))
	// corrupt the iCCP checksum
	i := bytes.Index(data, []byte("iCCP"))
	length := int(data[i-1]) | int(data[i-2])<<8
	data[i+4+length] ^= 0xff

	_, err := Decode(bytes.NewReader(data))
	var e *profile.MalformedProfileError
	if !errors.As(err, &e) {
		t.Errorf("got %v, want MalformedProfileError", err)
	}

	// the same file with a valid checksum decodes
	data[i+4+length] ^= 0xff
	if _, err := Decode(bytes.NewReader(data)); err != nil {
		t.Error(err)
	}
}

func TestGIFWithoutTrailer(t *testing.T) {
	pal := imagetest.Paletted(6, 4)
	icc := []byte("a gif profile")
	for _, c := range []struct {
		data []byte
		want []byte
	}{
		{imagetest.GIF(pal, nil), nil},
		{imagetest.GIF(pal, icc), icc},
	} {
		data := c.data
		if data[len(data)-1] != 0x3b {
			t.Fatal("fixture has no trailer")
		}
		got, err := ExtractICC("gif", data[:len(data)-1])
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, c.want) {
			t.Errorf("got %q, want %q", got, c.want)
		}
	}

	// a stream ending inside a block is still an error
	data := imagetest.GIF(pal, nil)
	if _, err := ExtractICC("gif", data[:len(data)-4]); err == nil {
		t.Error("truncated image data not detected")
	}
}

func TestSniffFormat(t *testing.T) {
	grad := imagetest.Gradient(3, 3)
	tiffBuf := &bytes.Buffer{}
	if err := tiff.Encode(tiffBuf, grad, nil); err != nil {
		t.Fatal(err)
	}
	cases := map[string][]byte{
		"png":  imagetest.PNG(grad, nil),
		"jpeg": imagetest.JPEG(grad, nil),
		"gif":  imagetest.GIF(imagetest.Paletted(3, 3), nil),
		"tiff": tiffBuf.Bytes(),
		"webp": imagetest.WebPContainer(imagetest.Chunk{Type: "VP8L", Data: []byte{1}}),
		"":     []byte("plain text"),
	}
	for want, data := range cases {
		if got := sniffFormat(data); got != want {
			t.Errorf("sniffFormat = %q, want %q", got, want)
		}
	}
}

func TestStats(t *testing.T) {
	img := imagetest.Uniform(4, 3, color.NRGBA{10, 20, 30, 255})
	img.SetNRGBA(0, 0, color.NRGBA{0, 255, 30, 255})
	s := StatsOf(img)

	want := Stats{
		{Min: 0, Max: 10, Count: 12, Sum: 110},
		{Min: 20, Max: 255, Count: 12, Sum: 475},
		{Min: 30, Max: 30, Count: 12, Sum: 360},
	}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Errorf("stats (-want +got):\n%s", diff)
	}
	if m := s[2].Mean(); m != 30 {
		t.Errorf("mean %g", m)
	}
	if StatsOf(img) != s {
		t.Error("stats are not reproducible")
	}
}
