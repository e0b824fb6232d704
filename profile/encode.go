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
	"crypto/md5"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"

	"seehuhn.de/go/awib/internal/colconv"
)

// Definition describes a profile to be written by [Encode].
//
// RGB profiles use the matrix/TRC model (Colorants and TRC), gray profiles
// use a single gray TRC.  Other colour spaces require AToB0.
type Definition struct {
	// Version must be [V2_1] or [V4_3].  The zero value selects [V4_3].
	Version Version

	// Class defaults to [ClassDisplay].
	Class Class

	// Space is the data colour space.
	Space Space

	// PCS defaults to [SpaceXYZ].
	PCS Space

	Description string
	Copyright   string

	// Created is recorded in the profile header.  The zero value gives a
	// fixed date, so that encoding is reproducible.
	Created time.Time

	// WhitePoint is the media white point.  The zero value stands for D50.
	WhitePoint [3]float64

	// Adaptation, if non-nil, is stored in the 'chad' tag.
	Adaptation *colconv.Matrix

	// Colorants holds the D50-adapted XYZ values of the red, green and blue
	// primaries as columns.
	Colorants colconv.Matrix

	// TRC is the tone curve, shared by all channels.
	TRC Curve

	// AToB0 and BToA0 optionally hold lookup tables for the perceptual
	// intent.
	AToB0, BToA0 *Lut16
}

var defaultCreated = time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

// Encode serializes a profile definition.
func Encode(def *Definition) ([]byte, error) {
	version := def.Version
	if version == 0 {
		version = V4_3
	}
	if version.Major() != 2 && version.Major() != 4 {
		return nil, fmt.Errorf("unsupported profile version %s", version)
	}
	class := def.Class
	if class == 0 {
		class = ClassDisplay
	}
	pcs := def.PCS
	if pcs == 0 {
		pcs = SpaceXYZ
	}
	white := def.WhitePoint
	if white == ([3]float64{}) {
		white = colconv.D50
	}
	v4 := version.Major() >= 4

	var tags []tagEntry
	addText := func(sig Signature, s string) {
		if v4 {
			tags = append(tags, tagEntry{sig, encodeMLUC(s)})
		} else if sig == TagDescription {
			tags = append(tags, tagEntry{sig, encodeDesc(s)})
		} else {
			tags = append(tags, tagEntry{sig, encodeText(s)})
		}
	}
	addText(TagDescription, def.Description)
	if def.Copyright != "" {
		addText(TagCopyright, def.Copyright)
	}
	tags = append(tags, tagEntry{TagMediaWhitePoint, encodeXYZ(white)})
	if def.Adaptation != nil {
		tags = append(tags, tagEntry{TagChromaticAdaptation, encodeS15Array(def.Adaptation[:])})
	}

	switch def.Space {
	case SpaceRGB:
		if def.AToB0 == nil {
			if def.TRC == nil {
				return nil, errors.New("RGB profile without tone curve")
			}
			trc, err := encodeCurve(def.TRC)
			if err != nil {
				return nil, err
			}
			tags = append(tags,
				tagEntry{TagRedColorant, encodeXYZ(def.Colorants.Column(0))},
				tagEntry{TagGreenColorant, encodeXYZ(def.Colorants.Column(1))},
				tagEntry{TagBlueColorant, encodeXYZ(def.Colorants.Column(2))},
				tagEntry{TagRedTRC, trc},
				tagEntry{TagGreenTRC, trc},
				tagEntry{TagBlueTRC, trc},
			)
		}
	case SpaceGray:
		if def.AToB0 == nil {
			if def.TRC == nil {
				return nil, errors.New("gray profile without tone curve")
			}
			trc, err := encodeCurve(def.TRC)
			if err != nil {
				return nil, err
			}
			tags = append(tags, tagEntry{TagGrayTRC, trc})
		}
	default:
		if def.AToB0 == nil {
			return nil, fmt.Errorf("%s profile requires a lookup table", def.Space)
		}
	}
	if def.AToB0 != nil {
		tags = append(tags, tagEntry{TagAToB0, def.AToB0.encode()})
	}
	if def.BToA0 != nil {
		tags = append(tags, tagEntry{TagBToA0, def.BToA0.encode()})
	}

	size := headerSize + 4 + 12*len(tags)
	for _, t := range tags {
		size += pad4(len(t.data))
	}
	buf := make([]byte, headerSize+4+12*len(tags), size)

	binary.BigEndian.PutUint32(buf[0:], uint32(size))
	binary.BigEndian.PutUint32(buf[8:], uint32(version))
	binary.BigEndian.PutUint32(buf[12:], uint32(class))
	binary.BigEndian.PutUint32(buf[16:], uint32(def.Space))
	binary.BigEndian.PutUint32(buf[20:], uint32(pcs))
	putDateTime(buf[24:], def.Created)
	copy(buf[36:40], "acsp")
	// rendering intent 0 (perceptual) at offset 64
	encodeXYZNumber(buf[68:], colconv.D50)

	binary.BigEndian.PutUint32(buf[headerSize:], uint32(len(tags)))
	for i, t := range tags {
		pos := headerSize + 4 + 12*i
		binary.BigEndian.PutUint32(buf[pos:], uint32(t.sig))
		binary.BigEndian.PutUint32(buf[pos+4:], uint32(len(buf)))
		binary.BigEndian.PutUint32(buf[pos+8:], uint32(len(t.data)))
		buf = append(buf, t.data...)
		for len(buf)%4 != 0 {
			buf = append(buf, 0)
		}
	}

	if v4 {
		// The profile ID is computed with flags, rendering intent and
		// the ID field itself set to zero, which they are at this point.
		id := md5.Sum(buf)
		copy(buf[84:100], id[:])
	}

	return buf, nil
}

type tagEntry struct {
	sig  Signature
	data []byte
}

func putDateTime(buf []byte, t time.Time) {
	if t.IsZero() {
		t = defaultCreated
	}
	t = t.UTC()
	binary.BigEndian.PutUint16(buf[0:], uint16(t.Year()))
	binary.BigEndian.PutUint16(buf[2:], uint16(t.Month()))
	binary.BigEndian.PutUint16(buf[4:], uint16(t.Day()))
	binary.BigEndian.PutUint16(buf[6:], uint16(t.Hour()))
	binary.BigEndian.PutUint16(buf[8:], uint16(t.Minute()))
	binary.BigEndian.PutUint16(buf[10:], uint16(t.Second()))
}

func putS15Fixed16(buf []byte, x float64) {
	v := math.Round(x * 65536)
	v = max(min(v, math.MaxInt32), math.MinInt32)
	binary.BigEndian.PutUint32(buf, uint32(int32(v)))
}

func encodeXYZNumber(buf []byte, v [3]float64) {
	for i, x := range v {
		putS15Fixed16(buf[4*i:], x)
	}
}

func encodeXYZ(v [3]float64) []byte {
	buf := make([]byte, 20)
	binary.BigEndian.PutUint32(buf, uint32(typeXYZ))
	encodeXYZNumber(buf[8:], v)
	return buf
}

func encodeS15Array(values []float64) []byte {
	buf := make([]byte, 8+4*len(values))
	binary.BigEndian.PutUint32(buf, uint32(typeS15Array))
	for i, x := range values {
		putS15Fixed16(buf[8+4*i:], x)
	}
	return buf
}

func encodeText(s string) []byte {
	buf := make([]byte, 8, 8+len(s)+1)
	binary.BigEndian.PutUint32(buf, uint32(typeText))
	buf = append(buf, s...)
	return append(buf, 0)
}

// encodeDesc writes a version 2 textDescriptionType.  Only the ASCII part
// is filled in; the Unicode and ScriptCode parts are empty.
func encodeDesc(s string) []byte {
	n := len(s) + 1
	buf := make([]byte, 12+n+4+4+2+1+67)
	binary.BigEndian.PutUint32(buf, uint32(typeDesc))
	binary.BigEndian.PutUint32(buf[8:], uint32(n))
	copy(buf[12:], s)
	return buf
}

func encodeMLUC(s string) []byte {
	enc := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewEncoder()
	text, err := enc.Bytes([]byte(strings.ToValidUTF8(s, "\uFFFD")))
	if err != nil {
		text = nil
	}

	buf := make([]byte, 28, 28+len(text))
	binary.BigEndian.PutUint32(buf, uint32(typeMLUC))
	binary.BigEndian.PutUint32(buf[8:], 1)
	binary.BigEndian.PutUint32(buf[12:], 12)
	copy(buf[16:20], "enUS")
	binary.BigEndian.PutUint32(buf[20:], uint32(len(text)))
	binary.BigEndian.PutUint32(buf[24:], 28)
	return append(buf, text...)
}

func encodeCurve(c Curve) ([]byte, error) {
	switch c := c.(type) {
	case Gamma:
		buf := make([]byte, 14)
		binary.BigEndian.PutUint32(buf, uint32(typeCurve))
		if c == 1 {
			return buf[:12], nil
		}
		g := math.Round(float64(c) * 256)
		if g < 1 || g > 0xFFFF {
			return nil, fmt.Errorf("gamma %g out of range", float64(c))
		}
		binary.BigEndian.PutUint32(buf[8:], 1)
		binary.BigEndian.PutUint16(buf[12:], uint16(g))
		return buf, nil

	case *Parametric:
		if c.Type < 0 || c.Type >= len(paraCount) || len(c.Params) != paraCount[c.Type] {
			return nil, fmt.Errorf("invalid parametric curve type %d", c.Type)
		}
		buf := make([]byte, 12+4*len(c.Params))
		binary.BigEndian.PutUint32(buf, uint32(typePara))
		binary.BigEndian.PutUint16(buf[8:], uint16(c.Type))
		for i, x := range c.Params {
			putS15Fixed16(buf[12+4*i:], x)
		}
		return buf, nil

	case Sampled:
		if len(c) < 2 {
			return nil, errors.New("sampled curve needs at least two entries")
		}
		buf := make([]byte, 12, 12+2*len(c))
		binary.BigEndian.PutUint32(buf, uint32(typeCurve))
		binary.BigEndian.PutUint32(buf[8:], uint32(len(c)))
		return appendUint16s(buf, c), nil

	default:
		return nil, fmt.Errorf("cannot encode curve of type %T", c)
	}
}

// Sample tabulates a curve at n equally spaced points.
func Sample(c Curve, n int) Sampled {
	res := make(Sampled, n)
	for i := range res {
		y := c.Eval(float64(i) / float64(n-1))
		res[i] = uint16(math.Round(clamp01(y) * 65535))
	}
	return res
}
