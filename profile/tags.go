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

package profile

import (
	"encoding/binary"
	"fmt"
	"strings"

	"golang.org/x/text/encoding/unicode"

	"seehuhn.de/go/awib/internal/colconv"
)

// Tag signatures.
const (
	TagDescription         Signature = 0x64657363 // 'desc'
	TagCopyright           Signature = 0x63707274 // 'cprt'
	TagMediaWhitePoint     Signature = 0x77747074 // 'wtpt'
	TagChromaticAdaptation Signature = 0x63686164 // 'chad'
	TagRedColorant         Signature = 0x7258595A // 'rXYZ'
	TagGreenColorant       Signature = 0x6758595A // 'gXYZ'
	TagBlueColorant        Signature = 0x6258595A // 'bXYZ'
	TagRedTRC              Signature = 0x72545243 // 'rTRC'
	TagGreenTRC            Signature = 0x67545243 // 'gTRC'
	TagBlueTRC             Signature = 0x62545243 // 'bTRC'
	TagGrayTRC             Signature = 0x6B545243 // 'kTRC'
	TagAToB0               Signature = 0x41324230 // 'A2B0'
	TagAToB1               Signature = 0x41324231 // 'A2B1'
	TagBToA0               Signature = 0x42324130 // 'B2A0'
	TagBToA1               Signature = 0x42324131 // 'B2A1'
)

// Tag type signatures.
const (
	typeXYZ      Signature = 0x58595A20 // 'XYZ '
	typeCurve    Signature = 0x63757276 // 'curv'
	typePara     Signature = 0x70617261 // 'para'
	typeDesc     Signature = 0x64657363 // 'desc'
	typeMLUC     Signature = 0x6D6C7563 // 'mluc'
	typeText     Signature = 0x74657874 // 'text'
	typeS15Array Signature = 0x73663332 // 'sf32'
	typeLut8     Signature = 0x6D667431 // 'mft1'
	typeLut16    Signature = 0x6D667432 // 'mft2'
	typeLutAToB  Signature = 0x6D414220 // 'mAB '
	typeLutBToA  Signature = 0x6D424120 // 'mBA '
)

func getS15Fixed16(data []byte) float64 {
	return float64(int32(binary.BigEndian.Uint32(data))) / 65536
}

// tag returns the data of a tag, after checking its type signature.
func (p *Profile) tag(tag Signature, types ...Signature) ([]byte, Signature, error) {
	data, ok := p.tags[tag]
	if !ok {
		return nil, 0, fmt.Errorf("%s: %w", tag, ErrTagNotFound)
	}
	tp := Signature(binary.BigEndian.Uint32(data))
	for _, t := range types {
		if t == tp {
			return data, tp, nil
		}
	}
	return nil, 0, malformedTag(tag, -1, "unexpected tag type "+tp.String())
}

// XYZ returns the value of an XYZ tag.
func (p *Profile) XYZ(tag Signature) ([3]float64, error) {
	data, _, err := p.tag(tag, typeXYZ)
	if err != nil {
		return [3]float64{}, err
	}
	if len(data) < 20 {
		return [3]float64{}, malformedTag(tag, -1, "XYZ tag too short")
	}
	return [3]float64{
		getS15Fixed16(data[8:]),
		getS15Fixed16(data[12:]),
		getS15Fixed16(data[16:]),
	}, nil
}

// ChromaticAdaptation returns the matrix stored in the 'chad' tag.
func (p *Profile) ChromaticAdaptation() (colconv.Matrix, error) {
	data, _, err := p.tag(TagChromaticAdaptation, typeS15Array)
	if err != nil {
		return colconv.Matrix{}, err
	}
	if len(data) < 8+36 {
		return colconv.Matrix{}, malformedTag(TagChromaticAdaptation, -1, "matrix too short")
	}
	var m colconv.Matrix
	for i := range m {
		m[i] = getS15Fixed16(data[8+4*i:])
	}
	return m, nil
}

// Text returns the value of a text tag.  The tag may be of type 'text',
// 'desc' or 'mluc'.  For 'mluc' tags, the English text is preferred.
func (p *Profile) Text(tag Signature) (string, error) {
	data, tp, err := p.tag(tag, typeText, typeDesc, typeMLUC)
	if err != nil {
		return "", err
	}

	switch tp {
	case typeText:
		s := string(data[8:])
		if i := strings.IndexByte(s, 0); i >= 0 {
			s = s[:i]
		}
		return s, nil

	case typeDesc:
		if len(data) < 12 {
			return "", malformedTag(tag, -1, "description too short")
		}
		n := int(binary.BigEndian.Uint32(data[8:]))
		if n > len(data)-12 {
			return "", malformedTag(tag, -1, "description too long")
		}
		s := string(data[12 : 12+n])
		if i := strings.IndexByte(s, 0); i >= 0 {
			s = s[:i]
		}
		return s, nil

	default: // typeMLUC
		return decodeMLUC(tag, data)
	}
}

func decodeMLUC(tag Signature, data []byte) (string, error) {
	if len(data) < 16 {
		return "", malformedTag(tag, -1, "mluc tag too short")
	}
	numRecords := int(binary.BigEndian.Uint32(data[8:]))
	recordSize := int(binary.BigEndian.Uint32(data[12:]))
	if recordSize < 12 || numRecords > (len(data)-16)/recordSize {
		return "", malformedTag(tag, -1, "invalid mluc record table")
	}
	if numRecords == 0 {
		return "", nil
	}

	best := 0
	for i := range numRecords {
		rec := data[16+i*recordSize:]
		lang := string(rec[0:2])
		if lang == "en" {
			best = i
			if string(rec[2:4]) == "US" {
				break
			}
		}
	}

	rec := data[16+best*recordSize:]
	length := int64(binary.BigEndian.Uint32(rec[4:]))
	offset := int64(binary.BigEndian.Uint32(rec[8:]))
	if offset+length > int64(len(data)) {
		return "", malformedTag(tag, -1, "mluc string out of bounds")
	}
	dec := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder()
	text, err := dec.Bytes(data[offset : offset+length])
	if err != nil {
		return "", &MalformedProfileError{Pos: -1, Tag: tag, Err: err}
	}
	return strings.TrimRight(string(text), "\x00"), nil
}

// readDescription returns the profile description, or the empty string
// if no readable description is present.
func (p *Profile) readDescription() string {
	desc, err := p.Text(TagDescription)
	if err != nil {
		return ""
	}
	return desc
}

// Curve returns the value of a 'curv' or 'para' tag.
func (p *Profile) Curve(tag Signature) (Curve, error) {
	data, _, err := p.tag(tag, typeCurve, typePara)
	if err != nil {
		return nil, err
	}
	c, _, err := decodeCurve(data)
	if err != nil {
		return nil, &MalformedProfileError{Pos: -1, Tag: tag, Err: err}
	}
	return c, nil
}

// decodeCurve decodes a 'curv' or 'para' element at the start of data.
// The second return value is the length of the element, including padding
// to a multiple of four bytes.
func decodeCurve(data []byte) (Curve, int, error) {
	if len(data) < 12 {
		return nil, 0, errTruncated
	}
	switch Signature(binary.BigEndian.Uint32(data)) {
	case typeCurve:
		n := int(binary.BigEndian.Uint32(data[8:]))
		if n > (len(data)-12)/2 {
			return nil, 0, errTruncated
		}
		size := pad4(12 + 2*n)
		switch n {
		case 0:
			return Gamma(1), size, nil
		case 1:
			return Gamma(float64(binary.BigEndian.Uint16(data[12:])) / 256), size, nil
		}
		table := make(Sampled, n)
		for i := range table {
			table[i] = binary.BigEndian.Uint16(data[12+2*i:])
		}
		return table, size, nil

	case typePara:
		fn := binary.BigEndian.Uint16(data[8:])
		if int(fn) >= len(paraCount) {
			return nil, 0, fmt.Errorf("unknown parametric curve type %d", fn)
		}
		n := paraCount[fn]
		if len(data) < 12+4*n {
			return nil, 0, errTruncated
		}
		c := &Parametric{Type: int(fn), Params: make([]float64, n)}
		for i := range c.Params {
			c.Params[i] = getS15Fixed16(data[12+4*i:])
		}
		return c, pad4(12 + 4*n), nil

	default:
		return nil, 0, fmt.Errorf("unexpected curve type %s",
			Signature(binary.BigEndian.Uint32(data)))
	}
}

func pad4(n int) int {
	return (n + 3) &^ 3
}
