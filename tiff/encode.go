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

// Package tiff writes and reads the TIFF files used for master images.
//
// Masters are single-image, 8-bit RGB files, optionally compressed with
// Deflate and the horizontal differencing predictor.  The ICC profile is
// stored in tag 34675 and an XMP packet in tag 700.  Pixel data in other
// layouts is decoded by golang.org/x/image/tiff.
package tiff

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"io"
	"math"
	"slices"
	"strconv"
	"time"

	"github.com/klauspost/compress/zlib"

	"seehuhn.de/go/awib/internal/packbits"
	"seehuhn.de/go/awib/internal/predict"
)

// Compression selects how the strips of a master are compressed.
type Compression int

// These are the supported compression methods.
const (
	Deflate Compression = iota
	Uncompressed
	PackBits
)

func (c Compression) String() string {
	switch c {
	case Deflate:
		return "Deflate"
	case Uncompressed:
		return "none"
	case PackBits:
		return "PackBits"
	default:
		return "Compression(" + strconv.Itoa(int(c)) + ")"
	}
}

// Options control how [Encode] writes an image.
type Options struct {
	Compression Compression

	// ICC is stored verbatim in the ICC profile tag, if non-empty.
	ICC []byte

	// XMP is stored verbatim in the XMP tag, if non-empty.
	XMP []byte

	// Software names the program which wrote the file.
	Software string

	// Time is stored in the DateTime tag.  The zero value omits the tag.
	Time time.Time

	// Resolution in pixels per inch.  Zero omits the resolution tags.
	Resolution float64
}

// RGBImage is implemented by images which store packed 8-bit RGB samples.
// Encode copies rows from such images without converting pixels.
type RGBImage interface {
	image.Image
	Row(y int) []uint8
}

const stripTarget = 64 << 10

var errEmpty = errors.New("tiff: empty image")

// Encode writes m to w as an 8-bit RGB TIFF file.  Alpha is discarded.
func Encode(w io.Writer, m image.Image, opts *Options) error {
	if opts == nil {
		opts = &Options{}
	}
	b := m.Bounds()
	width, height := b.Dx(), b.Dy()
	if width <= 0 || height <= 0 {
		return errEmpty
	}
	if uint64(width) > math.MaxUint32/3 || uint64(height) > math.MaxUint32 {
		return errors.New("tiff: image too large")
	}

	rowBytes := 3 * width
	rowsPerStrip := max(1, stripTarget/rowBytes)
	rowsPerStrip = min(rowsPerStrip, height)
	getRow := rowReader(m)

	var strips [][]byte
	row := make([]byte, rowBytes)
	for y0 := 0; y0 < height; y0 += rowsPerStrip {
		y1 := min(y0+rowsPerStrip, height)
		buf := &bytes.Buffer{}
		var sw io.WriteCloser
		var endRow func() error
		switch opts.Compression {
		case Deflate:
			zw, err := zlib.NewWriterLevel(buf, zlib.DefaultCompression)
			if err != nil {
				return err
			}
			sw, err = predict.NewWriter(zw, &predict.Params{
				Colors:           3,
				BitsPerComponent: 8,
				Columns:          width,
			})
			if err != nil {
				return err
			}
		case Uncompressed:
			sw = nopCloser{buf}
		case PackBits:
			pw := packbits.NewWriter(buf)
			sw = pw
			endRow = pw.Flush
		default:
			return errors.New("tiff: unsupported compression " + opts.Compression.String())
		}
		for y := y0; y < y1; y++ {
			getRow(row, b.Min.Y+y)
			if _, err := sw.Write(row); err != nil {
				return err
			}
			if endRow != nil {
				if err := endRow(); err != nil {
					return err
				}
			}
		}
		if err := sw.Close(); err != nil {
			return err
		}
		strips = append(strips, buf.Bytes())
	}

	var d ifd
	d.long(tImageWidth, uint32(width))
	d.long(tImageLength, uint32(height))
	d.short(tBitsPerSample, 8, 8, 8)
	switch opts.Compression {
	case Deflate:
		d.short(tCompression, cDeflate)
	case PackBits:
		d.short(tCompression, cPackBits)
	default:
		d.short(tCompression, cNone)
	}
	d.short(tPhotometricInterpretation, pRGB)
	d.offsets = len(d.entries)
	d.long(tStripOffsets, make([]uint32, len(strips))...)
	d.short(tSamplesPerPixel, 3)
	d.long(tRowsPerStrip, uint32(rowsPerStrip))
	counts := make([]uint32, len(strips))
	for i, s := range strips {
		counts[i] = uint32(len(s))
	}
	d.long(tStripByteCounts, counts...)
	if opts.Resolution > 0 {
		d.rational(tXResolution, opts.Resolution)
		d.rational(tYResolution, opts.Resolution)
	}
	d.short(tPlanarConfiguration, 1)
	if opts.Resolution > 0 {
		d.short(tResolutionUnit, resPerInch)
	}
	if opts.Software != "" {
		d.ascii(tSoftware, opts.Software)
	}
	if !opts.Time.IsZero() {
		d.ascii(tDateTime, opts.Time.Format(dateTimeLayout))
	}
	if opts.Compression == Deflate {
		d.short(tPredictor, prHorizontal)
	}
	if len(opts.XMP) > 0 {
		d.add(tXMP, dtByte, uint32(len(opts.XMP)), opts.XMP)
	}
	if len(opts.ICC) > 0 {
		d.add(tICCProfile, dtUndefined, uint32(len(opts.ICC)), opts.ICC)
	}

	// file layout: header, strips, IFD, values which do not fit into the IFD
	pos := uint32(8)
	offsets := make([]uint32, len(strips))
	for i, s := range strips {
		offsets[i] = pos
		pos += uint32(len(s))
	}
	pos += pos & 1
	if uint64(pos) > math.MaxUint32-uint64(len(opts.ICC)+len(opts.XMP))-1<<16 {
		return errors.New("tiff: file too large")
	}
	for i, off := range offsets {
		binary.LittleEndian.PutUint32(d.entries[d.offsets].data[4*i:], off)
	}

	out := make([]byte, 0, pos)
	out = append(out, leHeader...)
	out = binary.LittleEndian.AppendUint32(out, pos)
	for _, s := range strips {
		out = append(out, s...)
	}
	if len(out)&1 != 0 {
		out = append(out, 0)
	}
	out = d.appendTo(out)

	_, err := w.Write(out)
	return err
}

// rowReader returns a function which fills row with the 8-bit RGB samples
// of image row y.
func rowReader(m image.Image) func(row []byte, y int) {
	b := m.Bounds()
	switch m := m.(type) {
	case RGBImage:
		return func(row []byte, y int) {
			copy(row, m.Row(y))
		}
	case *image.RGBA:
		return func(row []byte, y int) {
			i := m.PixOffset(b.Min.X, y)
			for x := 0; x < len(row); x += 3 {
				copy(row[x:x+3], m.Pix[i:i+3])
				i += 4
			}
		}
	case *image.NRGBA:
		return func(row []byte, y int) {
			i := m.PixOffset(b.Min.X, y)
			for x := 0; x < len(row); x += 3 {
				copy(row[x:x+3], m.Pix[i:i+3])
				i += 4
			}
		}
	default:
		return func(row []byte, y int) {
			for x := b.Min.X; x < b.Max.X; x++ {
				c := color.NRGBAModel.Convert(m.At(x, y)).(color.NRGBA)
				k := 3 * (x - b.Min.X)
				row[k] = c.R
				row[k+1] = c.G
				row[k+2] = c.B
			}
		}
	}
}

type entry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

// ifd collects the entries of an image file directory.
type ifd struct {
	entries []entry
	offsets int
}

func (d *ifd) add(tag, typ uint16, count uint32, data []byte) {
	d.entries = append(d.entries, entry{tag: tag, typ: typ, count: count, data: data})
}

func (d *ifd) short(tag uint16, values ...uint16) {
	var data []byte
	for _, v := range values {
		data = binary.LittleEndian.AppendUint16(data, v)
	}
	d.add(tag, dtShort, uint32(len(values)), data)
}

func (d *ifd) long(tag uint16, values ...uint32) {
	var data []byte
	for _, v := range values {
		data = binary.LittleEndian.AppendUint32(data, v)
	}
	d.add(tag, dtLong, uint32(len(values)), data)
}

func (d *ifd) rational(tag uint16, v float64) {
	const den = 10000
	data := binary.LittleEndian.AppendUint32(nil, uint32(math.Round(v*den)))
	data = binary.LittleEndian.AppendUint32(data, den)
	d.add(tag, dtRational, 1, data)
}

func (d *ifd) ascii(tag uint16, s string) {
	data := append([]byte(s), 0)
	d.add(tag, dtASCII, uint32(len(data)), data)
}

// appendTo appends the directory, starting at len(buf), followed by the
// out-of-line values.  Tags are written in ascending order.
func (d *ifd) appendTo(buf []byte) []byte {
	entries := slices.Clone(d.entries)
	slices.SortFunc(entries, func(a, b entry) int {
		return int(a.tag) - int(b.tag)
	})

	start := uint32(len(buf))
	extra := start + 2 + ifdLen*uint32(len(entries)) + 4
	var values []byte

	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(entries)))
	for _, e := range entries {
		buf = binary.LittleEndian.AppendUint16(buf, e.tag)
		buf = binary.LittleEndian.AppendUint16(buf, e.typ)
		buf = binary.LittleEndian.AppendUint32(buf, e.count)
		if len(e.data) <= 4 {
			var inline [4]byte
			copy(inline[:], e.data)
			buf = append(buf, inline[:]...)
			continue
		}
		buf = binary.LittleEndian.AppendUint32(buf, extra+uint32(len(values)))
		values = append(values, e.data...)
		if len(values)&1 != 0 {
			values = append(values, 0)
		}
	}
	buf = binary.LittleEndian.AppendUint32(buf, 0) // no further IFDs
	return append(buf, values...)
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
