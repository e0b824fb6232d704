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

// Package raster holds decoded images together with the information
// needed to colour-manage them: the pixel mode, the source format and the
// embedded ICC profile.
package raster

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"
	"os"
	"strings"

	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder

	"seehuhn.de/go/awib/profile"
)

// Image is a decoded raster image.
type Image struct {
	Pixels image.Image

	// Format is the name of the codec the image was decoded from, in the
	// upper case form used by the format registry, for example "JPEG".
	// It is empty for images which were never decoded.
	Format string

	// ICC holds the embedded ICC profile, or nil if there is none.
	ICC []byte
}

// New wraps an in-memory image.  The image has no format and no embedded
// profile.
func New(img image.Image) *Image {
	return &Image{Pixels: img}
}

// Mode returns the pixel layout of the image.
func (im *Image) Mode() Mode {
	return ModeOf(im.Pixels)
}

// Size returns the width and height of the image in pixels.
func (im *Image) Size() (width, height int) {
	b := im.Pixels.Bounds()
	return b.Dx(), b.Dy()
}

// Decode reads an image in any of the registered formats.
//
// If the embedded ICC profile cannot be extracted from the container,
// the error is a [*profile.MalformedProfileError].
func Decode(r io.Reader) (*Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	// The profile is extracted first, so that a damaged profile container
	// is reported as such even when it also breaks the pixel decoder.
	sniffed := sniffFormat(data)
	icc, err := ExtractICC(sniffed, data)
	if err != nil {
		return nil, &profile.MalformedProfileError{Pos: -1, Err: err}
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if format != sniffed {
		icc, err = ExtractICC(format, data)
		if err != nil {
			return nil, &profile.MalformedProfileError{Pos: -1, Err: err}
		}
	}
	return &Image{
		Pixels: img,
		Format: strings.ToUpper(format),
		ICC:    icc,
	}, nil
}

// Open reads and decodes the image stored in the named file.
func Open(name string) (*Image, error) {
	fd, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	im, err := Decode(fd)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return im, nil
}
