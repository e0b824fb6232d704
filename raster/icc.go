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
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"slices"

	"github.com/klauspost/compress/zlib"

	"seehuhn.de/go/awib/tiff"
)

// maxProfileSize limits the size of embedded profiles.
const maxProfileSize = 64 << 20

var errTruncated = errors.New("unexpected end of data")

// ExtractICC returns the ICC profile embedded in an encoded image.
// The format is the codec name reported by [image.Decode], for example
// "jpeg" or "png".  If the file does not contain a profile, or if the
// format cannot carry one, the result is nil.
func ExtractICC(format string, data []byte) ([]byte, error) {
	switch format {
	case "jpeg":
		return iccFromJPEG(data)
	case "png":
		return iccFromPNG(data)
	case "gif":
		return iccFromGIF(data)
	case "tiff":
		info, err := tiff.ReadInfo(data)
		if err != nil {
			return nil, err
		}
		return info.ICC, nil
	case "webp":
		return iccFromWebP(data)
	case "bmp":
		return iccFromBMP(data)
	}
	return nil, nil
}

// sniffFormat guesses the codec name of an encoded image from its leading
// bytes.  The result is empty if the format is not recognized.
func sniffFormat(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte("\xff\xd8")):
		return "jpeg"
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return "png"
	case bytes.HasPrefix(data, []byte("GIF87a")), bytes.HasPrefix(data, []byte("GIF89a")):
		return "gif"
	case bytes.HasPrefix(data, []byte("II*\x00")), bytes.HasPrefix(data, []byte("MM\x00*")):
		return "tiff"
	case len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return "webp"
	case bytes.HasPrefix(data, []byte("BM")):
		return "bmp"
	}
	return ""
}

// iccFromJPEG collects the "ICC_PROFILE" APP2 segments of a JPEG file.
func iccFromJPEG(data []byte) ([]byte, error) {
	const (
		markerSOI  = 0xd8
		markerEOI  = 0xd9
		markerSOS  = 0xda
		markerAPP2 = 0xe2
		markerTEM  = 0x01
		markerRST0 = 0xd0
		markerRST7 = 0xd7
	)
	iccMagic := []byte("ICC_PROFILE\x00")

	if len(data) < 2 || data[0] != 0xff || data[1] != markerSOI {
		return nil, errors.New("jpeg: missing SOI marker")
	}

	chunks := map[int][]byte{}
	total := 0
	pos := 2
	for {
		// skip fill bytes
		for pos+1 < len(data) && data[pos] == 0xff && data[pos+1] == 0xff {
			pos++
		}
		if pos+2 > len(data) {
			break
		}
		if data[pos] != 0xff {
			return nil, fmt.Errorf("jpeg: missing marker at byte %d", pos)
		}
		marker := data[pos+1]
		pos += 2
		if marker == markerEOI || marker == markerSOS {
			break
		}
		if marker == markerTEM || (marker >= markerRST0 && marker <= markerRST7) {
			continue
		}
		if pos+2 > len(data) {
			return nil, errTruncated
		}
		segLen := int(binary.BigEndian.Uint16(data[pos:]))
		if segLen < 2 || pos+segLen > len(data) {
			return nil, fmt.Errorf("jpeg: invalid segment length at byte %d", pos)
		}
		seg := data[pos+2 : pos+segLen]
		pos += segLen

		if marker != markerAPP2 || !bytes.HasPrefix(seg, iccMagic) || len(seg) < len(iccMagic)+2 {
			continue
		}
		seq := int(seg[len(iccMagic)])
		count := int(seg[len(iccMagic)+1])
		if total == 0 {
			total = count
		}
		if count != total || seq < 1 || seq > count {
			return nil, errors.New("jpeg: inconsistent ICC_PROFILE segments")
		}
		if _, dup := chunks[seq]; dup {
			return nil, fmt.Errorf("jpeg: duplicate ICC_PROFILE segment %d", seq)
		}
		chunks[seq] = seg[len(iccMagic)+2:]
	}

	if len(chunks) == 0 {
		return nil, nil
	}
	if len(chunks) != total {
		return nil, fmt.Errorf("jpeg: %d of %d ICC_PROFILE segments present", len(chunks), total)
	}
	var res []byte
	for seq := 1; seq <= total; seq++ {
		res = append(res, chunks[seq]...)
	}
	return res, nil
}

// iccFromPNG decompresses the iCCP chunk of a PNG file.
func iccFromPNG(data []byte) ([]byte, error) {
	const signature = "\x89PNG\r\n\x1a\n"
	if !bytes.HasPrefix(data, []byte(signature)) {
		return nil, errors.New("png: invalid signature")
	}
	pos := len(signature)
	for pos+8 <= len(data) {
		length := int(binary.BigEndian.Uint32(data[pos:]))
		typ := string(data[pos+4 : pos+8])
		if length < 0 || length > len(data)-pos-12 {
			return nil, errTruncated
		}
		body := data[pos+8 : pos+8+length]
		crc := binary.BigEndian.Uint32(data[pos+8+length:])
		pos += 12 + length

		switch typ {
		case "iCCP":
			if crc32.ChecksumIEEE(data[pos-length-8:pos-4]) != crc {
				return nil, errors.New("png: iCCP checksum mismatch")
			}
			name, rest, ok := bytes.Cut(body, []byte{0})
			if !ok || len(name) == 0 || len(name) > 79 || len(rest) < 1 {
				return nil, errors.New("png: malformed iCCP chunk")
			}
			if rest[0] != 0 {
				return nil, fmt.Errorf("png: unknown iCCP compression method %d", rest[0])
			}
			zr, err := zlib.NewReader(bytes.NewReader(rest[1:]))
			if err != nil {
				return nil, err
			}
			defer zr.Close()
			res, err := io.ReadAll(io.LimitReader(zr, maxProfileSize+1))
			if err != nil {
				return nil, err
			}
			if len(res) > maxProfileSize {
				return nil, errors.New("png: embedded profile too large")
			}
			return res, nil
		case "IDAT", "IEND":
			// iCCP must precede the image data
			return nil, nil
		}
	}
	return nil, nil
}

// iccFromGIF reads the "ICCRGBG1" application extension of a GIF file.
func iccFromGIF(data []byte) ([]byte, error) {
	if len(data) < 13 || !bytes.HasPrefix(data, []byte("GIF8")) {
		return nil, errors.New("gif: invalid header")
	}
	pos := 13
	if flags := data[10]; flags&0x80 != 0 {
		pos += 3 << (1 + flags&0x07)
	}

	// subBlocks returns the concatenated data sub-blocks starting at pos
	// and the position after the block terminator.
	subBlocks := func(pos int, keep bool) ([]byte, int, error) {
		var res []byte
		for {
			if pos >= len(data) {
				return nil, 0, errTruncated
			}
			n := int(data[pos])
			pos++
			if n == 0 {
				return res, pos, nil
			}
			if pos+n > len(data) {
				return nil, 0, errTruncated
			}
			if keep {
				res = append(res, data[pos:pos+n]...)
			}
			pos += n
		}
	}

	for pos < len(data) {
		switch data[pos] {
		case 0x3b: // trailer
			return nil, nil
		case 0x2c: // image descriptor
			if pos+10 > len(data) {
				return nil, errTruncated
			}
			flags := data[pos+9]
			pos += 10
			if flags&0x80 != 0 {
				pos += 3 << (1 + flags&0x07)
			}
			pos++ // LZW minimum code size
			_, next, err := subBlocks(pos, false)
			if err != nil {
				return nil, err
			}
			pos = next
		case 0x21: // extension
			if pos+2 > len(data) {
				return nil, errTruncated
			}
			label := data[pos+1]
			pos += 2
			if label == 0xff && pos+12 <= len(data) && data[pos] == 11 &&
				string(data[pos+1:pos+12]) == "ICCRGBG1012" {
				res, _, err := subBlocks(pos+12, true)
				return res, err
			}
			_, next, err := subBlocks(pos, false)
			if err != nil {
				return nil, err
			}
			pos = next
		default:
			return nil, fmt.Errorf("gif: unknown block type 0x%02x at byte %d", data[pos], pos)
		}
	}
	// missing trailer after complete blocks
	return nil, nil
}

// iccFromWebP returns the ICCP chunk of an extended WebP file.
func iccFromWebP(data []byte) ([]byte, error) {
	if len(data) < 12 || string(data[:4]) != "RIFF" || string(data[8:12]) != "WEBP" {
		return nil, errors.New("webp: invalid header")
	}
	pos := 12
	for pos+8 <= len(data) {
		fourCC := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4:]))
		if size < 0 || size > len(data)-pos-8 {
			return nil, errTruncated
		}
		if fourCC == "ICCP" {
			return slices.Clone(data[pos+8 : pos+8+size]), nil
		}
		pos += 8 + size + size&1
	}
	return nil, nil
}

// iccFromBMP returns the profile embedded in a BMP file with a
// BITMAPV5HEADER.
func iccFromBMP(data []byte) ([]byte, error) {
	const (
		fileHeaderSize  = 14
		v5HeaderSize    = 124
		profileEmbedded = 0x4d424544 // "MBED"
	)
	if len(data) < fileHeaderSize+4 || string(data[:2]) != "BM" {
		return nil, errors.New("bmp: invalid header")
	}
	hdr := data[fileHeaderSize:]
	if binary.LittleEndian.Uint32(hdr) < v5HeaderSize || len(hdr) < v5HeaderSize {
		return nil, nil
	}
	if binary.LittleEndian.Uint32(hdr[56:]) != profileEmbedded {
		return nil, nil
	}
	off := uint64(binary.LittleEndian.Uint32(hdr[112:]))
	size := uint64(binary.LittleEndian.Uint32(hdr[116:]))
	if off+size > uint64(len(hdr)) {
		return nil, errors.New("bmp: embedded profile out of range")
	}
	return slices.Clone(hdr[off : off+size]), nil
}
