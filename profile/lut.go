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
	"errors"
	"fmt"

	"seehuhn.de/go/awib/internal/colconv"
)

// MaxLUTInputs is the largest number of input channels supported for
// lookup tables.
const MaxLUTInputs = 8

const maxLUTOutputs = 15

// LUT is a multi-dimensional transform, stored in a lut8, lut16, lutAtoB
// or lutBtoA tag.  Values on both sides are normalized to [0, 1].
type LUT interface {
	InputChannels() int
	OutputChannels() int

	// Eval applies the transform to in and stores the result in out.
	Eval(out, in []float64)

	// LegacyLab reports whether PCS values in CIELAB use the legacy 16-bit
	// encoding, where L*=100 is represented by 0xFF00.
	LegacyLab() bool
}

// LUT returns the value of a lookup table tag, for example [TagAToB0].
func (p *Profile) LUT(tag Signature) (LUT, error) {
	data, tp, err := p.tag(tag, typeLut8, typeLut16, typeLutAToB, typeLutBToA)
	if err != nil {
		return nil, err
	}

	var lut LUT
	switch tp {
	case typeLut8, typeLut16:
		lut, err = decodeLut16(data)
	default:
		lut, err = decodeLutAB(data)
	}
	if err != nil {
		return nil, &MalformedProfileError{Pos: -1, Tag: tag, Err: err}
	}
	return lut, nil
}

// Lut16 is the contents of a lut8 or lut16 tag.
//
// The CLUT has GridPoints^n entries of m values each, where n is the number
// of input tables and m the number of output tables.  The first input
// channel varies slowest.  All table entries are scaled so that 65535
// represents 1.
type Lut16 struct {
	// Matrix is applied before the input tables, if the table has three
	// inputs.  The zero value is treated as the identity.
	Matrix colconv.Matrix

	InputTables  [][]uint16
	GridPoints   int
	CLUT         []uint16
	OutputTables [][]uint16

	// Eight is set for lut8 tags.
	Eight bool
}

// InputChannels implements the [LUT] interface.
func (l *Lut16) InputChannels() int { return len(l.InputTables) }

// OutputChannels implements the [LUT] interface.
func (l *Lut16) OutputChannels() int { return len(l.OutputTables) }

// LegacyLab implements the [LUT] interface.
func (l *Lut16) LegacyLab() bool { return !l.Eight }

// Eval implements the [LUT] interface.
func (l *Lut16) Eval(out, in []float64) {
	nIn := len(l.InputTables)
	nOut := len(l.OutputTables)

	var buf [MaxLUTInputs]float64
	x := buf[:nIn]
	copy(x, in)

	if nIn == 3 && l.Matrix != (colconv.Matrix{}) && !l.Matrix.IsIdentity() {
		v := l.Matrix.Apply([3]float64{x[0], x[1], x[2]})
		x[0], x[1], x[2] = v[0], v[1], v[2]
	}
	for i, table := range l.InputTables {
		x[i] = Sampled(table).Eval(x[i])
	}

	var grid [MaxLUTInputs]int
	for i := range nIn {
		grid[i] = l.GridPoints
	}
	interpolate(out[:nOut], x, grid[:nIn], func(i int) float64 {
		return float64(l.CLUT[i]) / 65535
	})

	for i, table := range l.OutputTables {
		out[i] = Sampled(table).Eval(out[i])
	}
}

func decodeLut16(data []byte) (*Lut16, error) {
	if len(data) < 48 {
		return nil, errTruncated
	}
	eight := Signature(binary.BigEndian.Uint32(data)) == typeLut8
	nIn := int(data[8])
	nOut := int(data[9])
	grid := int(data[10])
	if nIn < 1 || nIn > MaxLUTInputs || nOut < 1 || nOut > maxLUTOutputs {
		return nil, fmt.Errorf("unsupported lookup table size %d→%d", nIn, nOut)
	}
	if grid < 2 {
		return nil, errors.New("invalid number of grid points")
	}

	l := &Lut16{GridPoints: grid, Eight: eight}
	for i := range l.Matrix {
		l.Matrix[i] = getS15Fixed16(data[12+4*i:])
	}

	inEntries, outEntries := 256, 256
	pos := 48
	entrySize := 1
	if !eight {
		if len(data) < 52 {
			return nil, errTruncated
		}
		inEntries = int(binary.BigEndian.Uint16(data[48:]))
		outEntries = int(binary.BigEndian.Uint16(data[50:]))
		if inEntries < 2 || inEntries > 4096 || outEntries < 2 || outEntries > 4096 {
			return nil, errors.New("invalid table size")
		}
		pos = 52
		entrySize = 2
	}

	clutSize, ok := clutEntries(grid, nIn, nOut, len(data))
	if !ok {
		return nil, errTruncated
	}
	need := pos + entrySize*(nIn*inEntries+clutSize+nOut*outEntries)
	if need > len(data) {
		return nil, errTruncated
	}

	read := func(n int) []uint16 {
		res := make([]uint16, n)
		for i := range res {
			if eight {
				res[i] = uint16(data[pos]) * 257
			} else {
				res[i] = binary.BigEndian.Uint16(data[pos:])
			}
			pos += entrySize
		}
		return res
	}
	for range nIn {
		l.InputTables = append(l.InputTables, read(inEntries))
	}
	l.CLUT = read(clutSize)
	for range nOut {
		l.OutputTables = append(l.OutputTables, read(outEntries))
	}
	return l, nil
}

// encode serializes the table as a lut16 tag.
func (l *Lut16) encode() []byte {
	nIn := len(l.InputTables)
	nOut := len(l.OutputTables)
	inEntries := len(l.InputTables[0])
	outEntries := len(l.OutputTables[0])

	m := l.Matrix
	if m == (colconv.Matrix{}) {
		m = colconv.Identity
	}

	buf := make([]byte, 52, 52+2*(nIn*inEntries+len(l.CLUT)+nOut*outEntries))
	binary.BigEndian.PutUint32(buf, uint32(typeLut16))
	buf[8] = byte(nIn)
	buf[9] = byte(nOut)
	buf[10] = byte(l.GridPoints)
	for i, x := range m {
		putS15Fixed16(buf[12+4*i:], x)
	}
	binary.BigEndian.PutUint16(buf[48:], uint16(inEntries))
	binary.BigEndian.PutUint16(buf[50:], uint16(outEntries))

	for _, t := range l.InputTables {
		buf = appendUint16s(buf, t)
	}
	buf = appendUint16s(buf, l.CLUT)
	for _, t := range l.OutputTables {
		buf = appendUint16s(buf, t)
	}
	return buf
}

func appendUint16s(buf []byte, values []uint16) []byte {
	for _, v := range values {
		buf = binary.BigEndian.AppendUint16(buf, v)
	}
	return buf
}

// LutAB is the contents of a lutAtoB or lutBtoA tag.
//
// For lutAtoB tags, the processing order is A curves, CLUT, M curves,
// matrix, B curves.  For lutBtoA tags the order is reversed.  Missing
// elements are nil.
type LutAB struct {
	BToA bool

	In, Out int

	A, M, B []Curve

	// Matrix holds a 3x3 matrix in row-major order, followed by an offset
	// vector.
	Matrix *[12]float64

	Grid []int
	CLUT []float64
}

// InputChannels implements the [LUT] interface.
func (l *LutAB) InputChannels() int { return l.In }

// OutputChannels implements the [LUT] interface.
func (l *LutAB) OutputChannels() int { return l.Out }

// LegacyLab implements the [LUT] interface.
func (l *LutAB) LegacyLab() bool { return false }

// Eval implements the [LUT] interface.
func (l *LutAB) Eval(out, in []float64) {
	var buf [maxLUTOutputs]float64
	x := buf[:l.In]
	copy(x, in)

	if !l.BToA {
		x = applyCurves(x, l.A)
		x = l.applyCLUT(buf[:], x)
		x = applyCurves(x, l.M)
		l.applyMatrix(x)
		x = applyCurves(x, l.B)
	} else {
		x = applyCurves(x, l.B)
		l.applyMatrix(x)
		x = applyCurves(x, l.M)
		x = l.applyCLUT(buf[:], x)
		x = applyCurves(x, l.A)
	}
	copy(out, x)
}

func applyCurves(x []float64, curves []Curve) []float64 {
	for i, c := range curves {
		if i < len(x) {
			x[i] = c.Eval(x[i])
		}
	}
	return x
}

func (l *LutAB) applyMatrix(x []float64) {
	m := l.Matrix
	if m == nil || len(x) != 3 {
		return
	}
	x0, x1, x2 := x[0], x[1], x[2]
	x[0] = clamp01(m[0]*x0 + m[1]*x1 + m[2]*x2 + m[9])
	x[1] = clamp01(m[3]*x0 + m[4]*x1 + m[5]*x2 + m[10])
	x[2] = clamp01(m[6]*x0 + m[7]*x1 + m[8]*x2 + m[11])
}

// applyCLUT maps x through the CLUT, using buf for the result.
func (l *LutAB) applyCLUT(buf []float64, x []float64) []float64 {
	if l.CLUT == nil {
		return x
	}
	var in [MaxLUTInputs]float64
	copy(in[:], x)
	res := buf[:l.Out]
	interpolate(res, in[:l.In], l.Grid, func(i int) float64 {
		return l.CLUT[i]
	})
	return res
}

func decodeLutAB(data []byte) (*LutAB, error) {
	if len(data) < 32 {
		return nil, errTruncated
	}
	l := &LutAB{
		BToA: Signature(binary.BigEndian.Uint32(data)) == typeLutBToA,
		In:   int(data[8]),
		Out:  int(data[9]),
	}
	if l.In < 1 || l.In > MaxLUTInputs || l.Out < 1 || l.Out > maxLUTOutputs {
		return nil, fmt.Errorf("unsupported lookup table size %d→%d", l.In, l.Out)
	}
	offB := int(binary.BigEndian.Uint32(data[12:]))
	offMatrix := int(binary.BigEndian.Uint32(data[16:]))
	offM := int(binary.BigEndian.Uint32(data[20:]))
	offCLUT := int(binary.BigEndian.Uint32(data[24:]))
	offA := int(binary.BigEndian.Uint32(data[28:]))

	// number of channels on the A side and on the B side
	nA, nB := l.In, l.Out
	if l.BToA {
		nA, nB = l.Out, l.In
	}

	var err error
	if offB == 0 {
		return nil, errors.New("missing B curves")
	}
	l.B, err = decodeCurves(data, offB, nB)
	if err != nil {
		return nil, err
	}
	if offM != 0 {
		l.M, err = decodeCurves(data, offM, nB)
		if err != nil {
			return nil, err
		}
	}
	if offA != 0 {
		l.A, err = decodeCurves(data, offA, nA)
		if err != nil {
			return nil, err
		}
	}

	if offMatrix != 0 {
		if nB != 3 {
			return nil, errors.New("matrix requires three channels")
		}
		if offMatrix < 0 || offMatrix+48 > len(data) {
			return nil, errTruncated
		}
		m := new([12]float64)
		for i := range m {
			m[i] = getS15Fixed16(data[offMatrix+4*i:])
		}
		l.Matrix = m
	}

	if offCLUT != 0 {
		if offCLUT < 0 || offCLUT+20 > len(data) {
			return nil, errTruncated
		}
		l.Grid = make([]int, l.In)
		for i := range l.Grid {
			l.Grid[i] = int(data[offCLUT+i])
			if l.Grid[i] < 1 {
				return nil, errors.New("invalid number of grid points")
			}
		}
		precision := int(data[offCLUT+16])
		if precision != 1 && precision != 2 {
			return nil, fmt.Errorf("invalid CLUT precision %d", precision)
		}
		n := l.Out
		for _, g := range l.Grid {
			n *= g
			if n*precision > len(data) {
				return nil, errTruncated
			}
		}
		pos := offCLUT + 20
		if pos+n*precision > len(data) {
			return nil, errTruncated
		}
		l.CLUT = make([]float64, n)
		for i := range l.CLUT {
			if precision == 1 {
				l.CLUT[i] = float64(data[pos+i]) / 255
			} else {
				l.CLUT[i] = float64(binary.BigEndian.Uint16(data[pos+2*i:])) / 65535
			}
		}
	} else if l.In != l.Out {
		return nil, errors.New("missing CLUT")
	}

	return l, nil
}

func decodeCurves(data []byte, offset, n int) ([]Curve, error) {
	if offset < 0 || offset >= len(data) {
		return nil, errTruncated
	}
	res := make([]Curve, n)
	for i := range res {
		if offset >= len(data) {
			return nil, errTruncated
		}
		c, size, err := decodeCurve(data[offset:])
		if err != nil {
			return nil, err
		}
		res[i] = c
		offset += size
	}
	return res, nil
}

// clutEntries returns grid^nIn * nOut, or false if the result would exceed
// limit.
func clutEntries(grid, nIn, nOut, limit int) (int, bool) {
	n := nOut
	for range nIn {
		n *= grid
		if n > limit {
			return 0, false
		}
	}
	return n, true
}

// interpolate evaluates a multi-linear interpolation in a colour lookup
// table.  The first input channel varies slowest, and each grid point holds
// len(out) values.
func interpolate(out, in []float64, grid []int, value func(int) float64) {
	n := len(in)
	nOut := len(out)

	var base, stride [MaxLUTInputs]int
	var frac [MaxLUTInputs]float64
	s := nOut
	for d := n - 1; d >= 0; d-- {
		stride[d] = s
		s *= grid[d]
	}
	for d := range n {
		g := grid[d]
		if g < 2 {
			continue
		}
		pos := clamp01(in[d]) * float64(g-1)
		i := int(pos)
		if i > g-2 {
			i = g - 2
		}
		base[d] = i
		frac[d] = pos - float64(i)
	}

	clear(out)
	for corner := range 1 << n {
		w := 1.0
		off := 0
		for d := range n {
			idx := base[d]
			if corner&(1<<d) != 0 {
				if grid[d] < 2 {
					w = 0
					break
				}
				idx++
				w *= frac[d]
			} else {
				w *= 1 - frac[d]
			}
			off += idx * stride[d]
		}
		if w == 0 {
			continue
		}
		for k := range nOut {
			out[k] += w * value(off+k)
		}
	}
}
