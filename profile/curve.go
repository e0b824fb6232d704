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
	"errors"
	"math"
	"sort"
)

var errTruncated = errors.New("unexpected end of tag data")

// Curve is a one-dimensional tone reproduction curve.
// Both the argument and the result are in the range [0, 1].
type Curve interface {
	Eval(x float64) float64

	// Inverse returns the inverse curve.  For curves which are not
	// strictly monotonic, an approximate inverse is returned.
	Inverse() Curve
}

// Gamma is the curve x ↦ x^γ.  Gamma(1) is the identity.
type Gamma float64

// Eval implements the [Curve] interface.
func (g Gamma) Eval(x float64) float64 {
	if x <= 0 {
		return 0
	} else if x >= 1 {
		return 1
	}
	if g == 1 {
		return x
	}
	return math.Pow(x, float64(g))
}

// Inverse implements the [Curve] interface.
func (g Gamma) Inverse() Curve {
	if g <= 0 {
		return Gamma(1)
	}
	return 1 / g
}

// number of parameters of the five parametric curve types
var paraCount = []int{1, 3, 4, 5, 7}

// Parametric is an ICC parametric curve.
//
// The parameters are, in order, g, a, b, c, d, e, f; only the first
// few are present for the lower function types:
//
//	type 0:  x^g
//	type 1:  (ax+b)^g               for x ≥ -b/a,  0 otherwise
//	type 2:  (ax+b)^g + c           for x ≥ -b/a,  c otherwise
//	type 3:  (ax+b)^g               for x ≥ d,     cx otherwise
//	type 4:  (ax+b)^g + e           for x ≥ d,     cx+f otherwise
type Parametric struct {
	Type   int
	Params []float64
}

// SRGBCurve is the tone curve of the sRGB colour space.
var SRGBCurve = &Parametric{
	Type:   3,
	Params: []float64{2.4, 1 / 1.055, 0.055 / 1.055, 1 / 12.92, 0.04045},
}

// Eval implements the [Curve] interface.
func (c *Parametric) Eval(x float64) float64 {
	x = clamp01(x)
	p := c.Params
	var y float64
	switch c.Type {
	case 0:
		y = powPos(x, p[0])
	case 1:
		if x >= -p[2]/p[1] {
			y = powPos(p[1]*x+p[2], p[0])
		}
	case 2:
		if x >= -p[2]/p[1] {
			y = powPos(p[1]*x+p[2], p[0]) + p[3]
		} else {
			y = p[3]
		}
	case 3:
		if x >= p[4] {
			y = powPos(p[1]*x+p[2], p[0])
		} else {
			y = p[3] * x
		}
	case 4:
		if x >= p[4] {
			y = powPos(p[1]*x+p[2], p[0]) + p[5]
		} else {
			y = p[3]*x + p[6]
		}
	}
	return clamp01(y)
}

// Inverse implements the [Curve] interface.
func (c *Parametric) Inverse() Curve {
	return &inverseParametric{c}
}

type inverseParametric struct {
	c *Parametric
}

func (inv *inverseParametric) Eval(y float64) float64 {
	y = clamp01(y)
	p := inv.c.Params
	g := p[0]
	if g == 0 {
		return y
	}
	var x float64
	switch inv.c.Type {
	case 0:
		x = powPos(y, 1/g)
	case 1:
		if p[1] == 0 {
			return 0
		}
		x = (powPos(y, 1/g) - p[2]) / p[1]
	case 2:
		if p[1] == 0 {
			return 0
		}
		x = (powPos(y-p[3], 1/g) - p[2]) / p[1]
	case 3:
		if y >= p[3]*p[4] {
			if p[1] == 0 {
				return 0
			}
			x = (powPos(y, 1/g) - p[2]) / p[1]
		} else if p[3] != 0 {
			x = y / p[3]
		}
	case 4:
		if y >= p[3]*p[4]+p[6] {
			if p[1] == 0 {
				return 0
			}
			x = (powPos(y-p[5], 1/g) - p[2]) / p[1]
		} else if p[3] != 0 {
			x = (y - p[6]) / p[3]
		}
	}
	return clamp01(x)
}

func (inv *inverseParametric) Inverse() Curve {
	return inv.c
}

// Sampled is a tone curve given by equally spaced samples, interpolated
// linearly.  The samples are scaled so that 65535 represents 1.
type Sampled []uint16

// Eval implements the [Curve] interface.
func (s Sampled) Eval(x float64) float64 {
	n := len(s)
	switch n {
	case 0:
		return clamp01(x)
	case 1:
		return float64(s[0]) / 65535
	}
	pos := clamp01(x) * float64(n-1)
	i := int(pos)
	if i >= n-1 {
		return float64(s[n-1]) / 65535
	}
	frac := pos - float64(i)
	y := float64(s[i]) + frac*(float64(s[i+1])-float64(s[i]))
	return y / 65535
}

// Inverse implements the [Curve] interface.
func (s Sampled) Inverse() Curve {
	return inverseSampled{s}
}

type inverseSampled struct {
	s Sampled
}

// Eval finds x with s.Eval(x) = y by bisection on the sample table.
func (inv inverseSampled) Eval(y float64) float64 {
	s := inv.s
	n := len(s)
	if n < 2 {
		return clamp01(y)
	}
	v := clamp01(y) * 65535

	descending := s[n-1] < s[0]
	at := func(i int) float64 {
		if descending {
			return -float64(s[i])
		}
		return float64(s[i])
	}
	if descending {
		v = -v
	}

	if v <= at(0) {
		return 0
	}
	if v >= at(n-1) {
		return 1
	}

	// smallest i with at(i) >= v; at(0) < v ≤ at(n-1) ensures 1 ≤ i ≤ n-1
	i := sort.Search(n, func(i int) bool { return at(i) >= v })
	lo, hi := at(i-1), at(i)
	if hi <= lo {
		return float64(i) / float64(n-1)
	}
	pos := float64(i-1) + (v-lo)/(hi-lo)
	return pos / float64(n-1)
}

func (inv inverseSampled) Inverse() Curve {
	return inv.s
}

func clamp01(x float64) float64 {
	if x < 0 || math.IsNaN(x) {
		return 0
	} else if x > 1 {
		return 1
	}
	return x
}

// powPos computes x^g for positive x and returns 0 otherwise.
func powPos(x, g float64) float64 {
	if x <= 0 {
		return 0
	}
	return math.Pow(x, g)
}
