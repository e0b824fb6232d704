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

package colconv

import (
	"errors"
	"math"
)

// Matrix is a 3x3 matrix, stored in row-major order.
type Matrix [9]float64

// Identity is the 3x3 identity matrix.
var Identity = Matrix{1, 0, 0, 0, 1, 0, 0, 0, 1}

// ErrSingular is returned when a matrix cannot be inverted.
var ErrSingular = errors.New("singular matrix")

// Mul returns the matrix product m·n.
func (m Matrix) Mul(n Matrix) Matrix {
	var res Matrix
	for i := range 3 {
		for j := range 3 {
			res[3*i+j] = m[3*i]*n[j] + m[3*i+1]*n[3+j] + m[3*i+2]*n[6+j]
		}
	}
	return res
}

// Apply returns m·v.
func (m Matrix) Apply(v [3]float64) [3]float64 {
	return [3]float64{
		m[0]*v[0] + m[1]*v[1] + m[2]*v[2],
		m[3]*v[0] + m[4]*v[1] + m[5]*v[2],
		m[6]*v[0] + m[7]*v[1] + m[8]*v[2],
	}
}

// Inverse returns the inverse of m.
func (m Matrix) Inverse() (Matrix, error) {
	det := m[0]*(m[4]*m[8]-m[5]*m[7]) -
		m[1]*(m[3]*m[8]-m[5]*m[6]) +
		m[2]*(m[3]*m[7]-m[4]*m[6])
	if math.Abs(det) < 1e-12 {
		return Matrix{}, ErrSingular
	}
	inv := 1 / det
	return Matrix{
		(m[4]*m[8] - m[5]*m[7]) * inv,
		(m[2]*m[7] - m[1]*m[8]) * inv,
		(m[1]*m[5] - m[2]*m[4]) * inv,
		(m[5]*m[6] - m[3]*m[8]) * inv,
		(m[0]*m[8] - m[2]*m[6]) * inv,
		(m[2]*m[3] - m[0]*m[5]) * inv,
		(m[3]*m[7] - m[4]*m[6]) * inv,
		(m[1]*m[6] - m[0]*m[7]) * inv,
		(m[0]*m[4] - m[1]*m[3]) * inv,
	}, nil
}

// IsIdentity reports whether m is the identity matrix, up to rounding
// errors of the s15Fixed16 encoding.
func (m Matrix) IsIdentity() bool {
	for i, x := range m {
		if math.Abs(x-Identity[i]) > 1.0/65536 {
			return false
		}
	}
	return true
}

// Columns builds a matrix from its three columns.
func Columns(c0, c1, c2 [3]float64) Matrix {
	return Matrix{
		c0[0], c1[0], c2[0],
		c0[1], c1[1], c2[1],
		c0[2], c1[2], c2[2],
	}
}

// Column returns the i-th column of m.
func (m Matrix) Column(i int) [3]float64 {
	return [3]float64{m[i], m[3+i], m[6+i]}
}

// bradford is the cone response matrix of the Bradford transform.
var bradford = Matrix{
	0.8951, 0.2664, -0.1614,
	-0.7502, 1.7135, 0.0367,
	0.0389, -0.0685, 1.0296,
}

// Bradford returns the chromatic adaptation matrix which maps colours seen
// under the white point src to corresponding colours under dst.
func Bradford(src, dst [3]float64) (Matrix, error) {
	inv, err := bradford.Inverse()
	if err != nil {
		return Matrix{}, err
	}
	s := bradford.Apply(src)
	d := bradford.Apply(dst)
	for i := range 3 {
		if s[i] == 0 {
			return Matrix{}, ErrSingular
		}
	}
	scale := Matrix{
		d[0] / s[0], 0, 0,
		0, d[1] / s[1], 0,
		0, 0, d[2] / s[2],
	}
	return inv.Mul(scale.Mul(bradford)), nil
}

// XYFromXYZ returns the chromaticity coordinates of an XYZ value.
func XYFromXYZ(v [3]float64) (x, y float64) {
	sum := v[0] + v[1] + v[2]
	if sum == 0 {
		return 0, 0
	}
	return v[0] / sum, v[1] / sum
}

// XYZFromXY returns the XYZ value with luminance Y=1 and the given
// chromaticity.
func XYZFromXY(x, y float64) [3]float64 {
	if y == 0 {
		return [3]float64{}
	}
	return [3]float64{x / y, 1, (1 - x - y) / y}
}

// Primaries computes the D50-adapted colorant matrix of an RGB colour space
// from the chromaticities of its primaries and its white point.  The
// columns of the result are the XYZ values of the red, green and blue
// primaries, scaled so that R=G=B=1 maps to the PCS white.
func Primaries(white [3]float64, red, green, blue [2]float64) (Matrix, error) {
	m := Columns(
		XYZFromXY(red[0], red[1]),
		XYZFromXY(green[0], green[1]),
		XYZFromXY(blue[0], blue[1]),
	)
	inv, err := m.Inverse()
	if err != nil {
		return Matrix{}, err
	}
	s := inv.Apply(white)
	scale := Matrix{
		s[0], 0, 0,
		0, s[1], 0,
		0, 0, s[2],
	}
	m = m.Mul(scale)

	adapt, err := Bradford(white, D50)
	if err != nil {
		return Matrix{}, err
	}
	return adapt.Mul(m), nil
}
