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

package imagetest

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"image/jpeg"
	"image/png"

	"github.com/klauspost/compress/zlib"
)

// Gradient returns an opaque image in which the red channel increases
// from left to right and the green channel from top to bottom.
func Gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / max(w-1, 1)),
				G: uint8(y * 255 / max(h-1, 1)),
				B: uint8((x + y) * 255 / max(w+h-2, 1)),
				A: 255,
			})
		}
	}
	return img
}

// Paletted returns a palette image using the web-safe palette.
func Paletted(w, h int) *image.Paletted {
	img := image.NewPaletted(image.Rect(0, 0, w, h), palette.WebSafe)
	for y := range h {
		for x := range w {
			img.SetColorIndex(x, y, uint8((x+7*y)%len(palette.WebSafe)))
		}
	}
	return img
}

// Uniform returns an RGBA image filled with a single colour.
func Uniform(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}
	return img
}

// PNG encodes img as a PNG file.  If icc is non-nil, it is embedded in an
// iCCP chunk.
func PNG(img image.Image, icc []byte) []byte {
	buf := &bytes.Buffer{}
	if err := png.Encode(buf, img); err != nil {
		panic(err)
	}
	data := buf.Bytes()
	if icc == nil {
		return data
	}

	body := &bytes.Buffer{}
	body.WriteString("ICC profile\x00\x00")
	zw := zlib.NewWriter(body)
	zw.Write(icc)
	zw.Close()

	// signature (8 bytes) and IHDR chunk (25 bytes)
	const ihdrEnd = 33
	res := bytes.Clone(data[:ihdrEnd])
	res = appendChunk(res, "iCCP", body.Bytes())
	return append(res, data[ihdrEnd:]...)
}

func appendChunk(buf []byte, typ string, body []byte) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(body)))
	start := len(buf)
	buf = append(buf, typ...)
	buf = append(buf, body...)
	return binary.BigEndian.AppendUint32(buf, crc32.ChecksumIEEE(buf[start:]))
}

// JPEG encodes img as a JPEG file.  If icc is non-nil, it is split into
// ICC_PROFILE APP2 segments.
func JPEG(img image.Image, icc []byte) []byte {
	buf := &bytes.Buffer{}
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: 95}); err != nil {
		panic(err)
	}
	data := buf.Bytes()
	if icc == nil {
		return data
	}

	const maxChunk = 65535 - 2 - 14
	count := (len(icc) + maxChunk - 1) / maxChunk
	res := bytes.Clone(data[:2]) // SOI
	for i := range count {
		chunk := icc[i*maxChunk : min((i+1)*maxChunk, len(icc))]
		res = append(res, 0xff, 0xe2)
		res = binary.BigEndian.AppendUint16(res, uint16(2+14+len(chunk)))
		res = append(res, "ICC_PROFILE\x00"...)
		res = append(res, byte(i+1), byte(count))
		res = append(res, chunk...)
	}
	return append(res, data[2:]...)
}

// GIF encodes img as a GIF file.  If icc is non-nil, it is stored in an
// ICCRGBG1 application extension.
func GIF(img *image.Paletted, icc []byte) []byte {
	buf := &bytes.Buffer{}
	if err := gif.Encode(buf, img, nil); err != nil {
		panic(err)
	}
	data := buf.Bytes()
	if icc == nil {
		return data
	}

	// header (6 bytes), logical screen descriptor (7 bytes) and the
	// optional global colour table
	pos := 13
	if flags := data[10]; flags&0x80 != 0 {
		pos += 3 << (1 + flags&0x07)
	}
	res := bytes.Clone(data[:pos])
	res = append(res, 0x21, 0xff, 11)
	res = append(res, "ICCRGBG1012"...)
	for len(icc) > 0 {
		n := min(len(icc), 255)
		res = append(res, byte(n))
		res = append(res, icc[:n]...)
		icc = icc[n:]
	}
	res = append(res, 0)
	return append(res, data[pos:]...)
}

// WebPContainer returns a RIFF container with the given chunks, in the
// layout of an extended WebP file.  The chunks are not validated.
func WebPContainer(chunks ...Chunk) []byte {
	var body []byte
	body = append(body, "WEBP"...)
	for _, c := range chunks {
		body = append(body, c.Type...)
		body = binary.LittleEndian.AppendUint32(body, uint32(len(c.Data)))
		body = append(body, c.Data...)
		if len(c.Data)%2 != 0 {
			body = append(body, 0)
		}
	}
	res := []byte("RIFF")
	res = binary.LittleEndian.AppendUint32(res, uint32(len(body)))
	return append(res, body...)
}

// Chunk is a typed block of data in a container file.
type Chunk struct {
	Type string
	Data []byte
}
