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
	"encoding/binary"
	"fmt"
	"image"
	"io"
	"strings"
	"time"

	xtiff "golang.org/x/image/tiff"
)

// Info describes the first image in a TIFF file.
type Info struct {
	Width, Height   int
	BitsPerSample   []int
	SamplesPerPixel int
	Compression     int
	Photometric     int
	Predictor       int

	Software string
	DateTime time.Time

	ICC []byte
	XMP []byte
}

// Compressed reports whether the strips are Deflate compressed.
func (info *Info) Compressed() bool {
	return info.Compression == cDeflate || info.Compression == cDeflateOld
}

// FormatError indicates that a file is not a valid TIFF file.
type FormatError struct {
	Offset int64
	Reason string
}

func (err *FormatError) Error() string {
	return fmt.Sprintf("tiff: %s (at byte %d)", err.Reason, err.Offset)
}

// ReadInfo parses the first image file directory of a TIFF file.
// Tags which are not needed for masters are ignored.
func ReadInfo(data []byte) (*Info, error) {
	info, _, err := readIFD(data)
	return info, err
}

// readIFD parses the first image file directory, returning the strip
// layout alongside the metadata.
func readIFD(data []byte) (*Info, *stripLayout, error) {
	if len(data) < 8 {
		return nil, nil, &FormatError{Reason: "file too short"}
	}
	var bo binary.ByteOrder
	switch string(data[:4]) {
	case leHeader:
		bo = binary.LittleEndian
	case beHeader:
		bo = binary.BigEndian
	default:
		return nil, nil, &FormatError{Reason: "missing TIFF header"}
	}

	size := uint64(len(data))
	off := uint64(bo.Uint32(data[4:8]))
	if off+2 > size {
		return nil, nil, &FormatError{Offset: 4, Reason: "IFD offset out of range"}
	}
	n := uint64(bo.Uint16(data[off:]))
	if off+2+n*ifdLen > size {
		return nil, nil, &FormatError{Offset: int64(off), Reason: "truncated IFD"}
	}

	info := &Info{
		SamplesPerPixel: 1,
		Compression:     cNone,
		Predictor:       prNone,
	}
	layout := &stripLayout{planar: 1}
	for i := range n {
		p := off + 2 + i*ifdLen
		tag := bo.Uint16(data[p:])
		typ := bo.Uint16(data[p+2:])
		count := uint64(bo.Uint32(data[p+4:]))
		if typ == 0 || int(typ) >= len(typeSize) {
			continue
		}
		length := count * uint64(typeSize[typ])

		var val []byte
		if length <= 4 {
			val = data[p+8 : p+8+length]
		} else {
			vo := uint64(bo.Uint32(data[p+8:]))
			if vo+length > size {
				return nil, nil, &FormatError{
					Offset: int64(p),
					Reason: fmt.Sprintf("value of tag %d out of range", tag),
				}
			}
			val = data[vo : vo+length]
		}

		switch tag {
		case tImageWidth:
			info.Width = int(uintValue(bo, typ, val, 0))
		case tImageLength:
			info.Height = int(uintValue(bo, typ, val, 0))
		case tBitsPerSample:
			info.BitsPerSample = make([]int, count)
			for k := range info.BitsPerSample {
				info.BitsPerSample[k] = int(uintValue(bo, typ, val, k))
			}
		case tSamplesPerPixel:
			info.SamplesPerPixel = int(uintValue(bo, typ, val, 0))
		case tCompression:
			info.Compression = int(uintValue(bo, typ, val, 0))
		case tPhotometricInterpretation:
			info.Photometric = int(uintValue(bo, typ, val, 0))
		case tPredictor:
			info.Predictor = int(uintValue(bo, typ, val, 0))
		case tStripOffsets:
			layout.offsets = uintValues(bo, typ, val, count)
		case tStripByteCounts:
			layout.counts = uintValues(bo, typ, val, count)
		case tRowsPerStrip:
			layout.rowsPerStrip = uintValue(bo, typ, val, 0)
		case tPlanarConfiguration:
			layout.planar = int(uintValue(bo, typ, val, 0))
		case tSoftware:
			info.Software = asciiValue(val)
		case tDateTime:
			t, err := time.Parse(dateTimeLayout, asciiValue(val))
			if err == nil {
				info.DateTime = t
			}
		case tXMP:
			info.XMP = bytes.Clone(val)
		case tICCProfile:
			info.ICC = bytes.Clone(val)
		}
	}
	return info, layout, nil
}

// uintValue returns the k-th value of an integer tag, or 0 if the type
// is not an unsigned integer type.
func uintValue(bo binary.ByteOrder, typ uint16, val []byte, k int) uint32 {
	switch typ {
	case dtByte, dtUndefined:
		if k < len(val) {
			return uint32(val[k])
		}
	case dtShort:
		if 2*k+2 <= len(val) {
			return uint32(bo.Uint16(val[2*k:]))
		}
	case dtLong:
		if 4*k+4 <= len(val) {
			return bo.Uint32(val[4*k:])
		}
	}
	return 0
}

func uintValues(bo binary.ByteOrder, typ uint16, val []byte, count uint64) []uint32 {
	res := make([]uint32, count)
	for k := range res {
		res[k] = uintValue(bo, typ, val, k)
	}
	return res
}

func asciiValue(val []byte) string {
	s, _, _ := strings.Cut(string(val), "\x00")
	return s
}

// Decode reads a TIFF file and returns the first image together with its
// metadata.
//
// Files in the layout written by [Encode] are decoded strip by strip, so
// that every strip is checked against the image size.  Other layouts are
// handed to golang.org/x/image/tiff.
func Decode(r io.Reader) (image.Image, *Info, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, err
	}
	info, layout, err := readIFD(data)
	if err != nil {
		return nil, nil, err
	}
	if layout.native(info) {
		img, err := decodeStrips(data, info, layout)
		if err != nil {
			return nil, nil, err
		}
		return img, info, nil
	}
	img, err := xtiff.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, err
	}
	return img, info, nil
}
