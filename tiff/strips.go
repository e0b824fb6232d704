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

package tiff

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"slices"

	"github.com/klauspost/compress/zlib"

	"seehuhn.de/go/awib/internal/packbits"
	"seehuhn.de/go/awib/internal/predict"
)

// maxPixels limits the size of images decoded by [decodeStrips].
const maxPixels = 1 << 28

// stripLayout records where the pixel data of an image is stored.
type stripLayout struct {
	offsets      []uint32
	counts       []uint32
	rowsPerStrip uint32
	planar       int
}

// native reports whether the image uses one of the layouts written by
// [Encode]: chunky 8-bit RGB, with one of the supported compressions.
func (l *stripLayout) native(info *Info) bool {
	if info.Width <= 0 || info.Height <= 0 {
		return false
	}
	if info.SamplesPerPixel != 3 || info.Photometric != pRGB || l.planar != 1 {
		return false
	}
	if !slices.Equal(info.BitsPerSample, []int{8, 8, 8}) {
		return false
	}
	switch info.Compression {
	case cNone, cDeflate, cDeflateOld, cPackBits:
	default:
		return false
	}
	return info.Predictor == prNone || info.Predictor == prHorizontal
}

// decodeStrips decodes an image in a native layout.  Missing or short
// strips are reported as a [FormatError].
func decodeStrips(data []byte, info *Info, l *stripLayout) (*image.RGBA, error) {
	width, height := info.Width, info.Height
	if uint64(width)*uint64(height) > maxPixels {
		return nil, &FormatError{Reason: fmt.Sprintf("image too large (%dx%d)", width, height)}
	}
	rps := int(l.rowsPerStrip)
	if rps <= 0 || rps > height {
		rps = height
	}
	numStrips := (height + rps - 1) / rps
	if len(l.offsets) < numStrips || len(l.counts) < numStrips {
		return nil, &FormatError{
			Reason: fmt.Sprintf("%d strips needed, %d present", numStrips, min(len(l.offsets), len(l.counts))),
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	row := make([]byte, 3*width)
	params := &predict.Params{Colors: 3, BitsPerComponent: 8, Columns: width}
	for s := range numStrips {
		off, n := uint64(l.offsets[s]), uint64(l.counts[s])
		if off+n > uint64(len(data)) {
			return nil, &FormatError{Offset: int64(off), Reason: fmt.Sprintf("strip %d out of range", s)}
		}
		y0 := s * rps
		y1 := min(y0+rps, height)
		err := readStrip(data[off:off+n], info, func(r io.Reader) error {
			for y := y0; y < y1; y++ {
				if _, err := io.ReadFull(r, row); err != nil {
					return err
				}
				if info.Predictor == prHorizontal {
					predict.Decode(row, params)
				}
				pix := img.Pix[y*img.Stride:]
				for x := range width {
					pix[4*x] = row[3*x]
					pix[4*x+1] = row[3*x+1]
					pix[4*x+2] = row[3*x+2]
					pix[4*x+3] = 0xff
				}
			}
			return nil
		})
		if err != nil {
			return nil, &FormatError{Offset: int64(off), Reason: fmt.Sprintf("strip %d: %v", s, err)}
		}
	}
	return img, nil
}

// readStrip calls fn with a reader for the decompressed strip data.
func readStrip(strip []byte, info *Info, fn func(io.Reader) error) error {
	r := bytes.NewReader(strip)
	switch info.Compression {
	case cDeflate, cDeflateOld:
		zr, err := zlib.NewReader(r)
		if err != nil {
			return err
		}
		defer zr.Close()
		return fn(zr)
	case cPackBits:
		return fn(packbits.NewReader(r))
	default:
		return fn(r)
	}
}
