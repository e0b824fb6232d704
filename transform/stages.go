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
	"errors"
	"fmt"

	"seehuhn.de/go/awib/internal/colconv"
	"seehuhn.de/go/awib/profile"
)

var (
	errNoModel       = errors.New("profile has neither lookup tables nor a matrix/TRC model")
	errTargetNotRGB  = errors.New("target profile is not an RGB profile")
	errChannelLayout = errors.New("lookup table does not match the profile colour space")
)

// A source maps device values in [0, 1] to PCS XYZ, relative to D50.
type source interface {
	toXYZ(in []float64) [3]float64
}

// A sink maps PCS XYZ to device values in [0, 1].
type sink interface {
	fromXYZ(out []float64, xyz [3]float64)
}

// matrixModel holds the matrix/TRC description of an RGB profile.
type matrixModel struct {
	m   colconv.Matrix
	trc [3]profile.Curve
}

func readMatrixModel(p *profile.Profile) (*matrixModel, error) {
	res := &matrixModel{}
	var cols [3][3]float64
	for i, tag := range []profile.Signature{profile.TagRedColorant, profile.TagGreenColorant, profile.TagBlueColorant} {
		v, err := p.XYZ(tag)
		if err != nil {
			return nil, err
		}
		cols[i] = v
	}
	res.m = colconv.Columns(cols[0], cols[1], cols[2])
	for i, tag := range []profile.Signature{profile.TagRedTRC, profile.TagGreenTRC, profile.TagBlueTRC} {
		c, err := p.Curve(tag)
		if err != nil {
			return nil, err
		}
		res.trc[i] = c
	}
	return res, nil
}

func (s *matrixModel) toXYZ(in []float64) [3]float64 {
	return s.m.Apply([3]float64{
		s.trc[0].Eval(in[0]),
		s.trc[1].Eval(in[1]),
		s.trc[2].Eval(in[2]),
	})
}

// matrixSink inverts a matrix/TRC model.
type matrixSink struct {
	inv colconv.Matrix
	fwd [3]profile.Curve
	trc [3]profile.Curve
}

func newMatrixSink(mm *matrixModel) (*matrixSink, error) {
	inv, err := mm.m.Inverse()
	if err != nil {
		return nil, err
	}
	res := &matrixSink{inv: inv, fwd: mm.trc}
	for i, c := range mm.trc {
		res.trc[i] = c.Inverse()
	}
	return res, nil
}

func (s *matrixSink) fromXYZ(out []float64, xyz [3]float64) {
	lin := s.inv.Apply(xyz)
	for i, v := range lin {
		out[i] = s.trc[i].Eval(colconv.Clamp(v, 0, 1))
	}
}

// graySource maps gray values onto the neutral axis.
type graySource struct {
	trc profile.Curve
}

func (s *graySource) toXYZ(in []float64) [3]float64 {
	y := s.trc.Eval(in[0])
	return [3]float64{colconv.D50[0] * y, colconv.D50[1] * y, colconv.D50[2] * y}
}

// pcsCoding describes how PCS values are represented in a lookup table.
type pcsCoding struct {
	lab    bool
	legacy bool
}

func (c pcsCoding) decode(v []float64) [3]float64 {
	if !c.lab {
		const scale = 65535.0 / 32768.0
		return [3]float64{v[0] * scale, v[1] * scale, v[2] * scale}
	}
	var L, a, b float64
	if c.legacy {
		L = v[0] * 65535 / 652.80
		a = v[1]*65535/256 - 128
		b = v[2]*65535/256 - 128
	} else {
		L = v[0] * 100
		a = v[1]*255 - 128
		b = v[2]*255 - 128
	}
	x, y, z := colconv.LabToXYZ(L, a, b)
	return [3]float64{x, y, z}
}

func (c pcsCoding) encode(v []float64, xyz [3]float64) {
	if !c.lab {
		const scale = 32768.0 / 65535.0
		for i := range 3 {
			v[i] = colconv.Clamp(xyz[i]*scale, 0, 1)
		}
		return
	}
	L, a, b := colconv.XYZToLab(xyz[0], xyz[1], xyz[2])
	if c.legacy {
		v[0] = L * 652.80 / 65535
		v[1] = (a + 128) * 256 / 65535
		v[2] = (b + 128) * 256 / 65535
	} else {
		v[0] = L / 100
		v[1] = (a + 128) / 255
		v[2] = (b + 128) / 255
	}
	for i := range 3 {
		v[i] = colconv.Clamp(v[i], 0, 1)
	}
}

// lutSource evaluates an AToB table.
type lutSource struct {
	lut    profile.LUT
	coding pcsCoding
}

func (s *lutSource) toXYZ(in []float64) [3]float64 {
	var out [3]float64
	s.lut.Eval(out[:], in)
	return s.coding.decode(out[:])
}

// lutSink evaluates a BToA table.
type lutSink struct {
	lut    profile.LUT
	coding pcsCoding
}

func (s *lutSink) fromXYZ(out []float64, xyz [3]float64) {
	var v [3]float64
	s.coding.encode(v[:], xyz)
	s.lut.Eval(out, v[:])
	for i := range out {
		out[i] = colconv.Clamp(out[i], 0, 1)
	}
}

func readLUT(p *profile.Profile, tag profile.Signature, in, out int) (profile.LUT, pcsCoding, error) {
	lut, err := p.LUT(tag)
	if err != nil {
		return nil, pcsCoding{}, err
	}
	if lut.InputChannels() != in || lut.OutputChannels() != out {
		return nil, pcsCoding{}, fmt.Errorf("%s: %w", tag, errChannelLayout)
	}
	coding := pcsCoding{
		lab:    p.PCS() == profile.SpaceLab,
		legacy: lut.LegacyLab(),
	}
	return lut, coding, nil
}

// newSource selects the perceptual device-to-PCS model of a profile.
// Lookup tables take precedence over the matrix/TRC model.
func newSource(p *profile.Profile) (source, error) {
	if p.Has(profile.TagAToB0) {
		lut, coding, err := readLUT(p, profile.TagAToB0, p.Channels(), 3)
		if err != nil {
			return nil, err
		}
		return &lutSource{lut: lut, coding: coding}, nil
	}
	switch p.Space() {
	case profile.SpaceRGB:
		mm, err := readMatrixModel(p)
		if err != nil {
			return nil, err
		}
		return mm, nil
	case profile.SpaceGray:
		trc, err := p.Curve(profile.TagGrayTRC)
		if err != nil {
			return nil, err
		}
		return &graySource{trc: trc}, nil
	}
	return nil, errNoModel
}

// newSink selects the perceptual PCS-to-device model of an RGB profile.
func newSink(p *profile.Profile) (sink, error) {
	if p.Space() != profile.SpaceRGB {
		return nil, errTargetNotRGB
	}
	if p.Has(profile.TagBToA0) {
		lut, coding, err := readLUT(p, profile.TagBToA0, 3, 3)
		if err != nil {
			return nil, err
		}
		return &lutSink{lut: lut, coding: coding}, nil
	}
	mm, err := readMatrixModel(p)
	if err != nil {
		return nil, err
	}
	s, err := newMatrixSink(mm)
	if err != nil {
		return nil, err
	}
	return s, nil
}
