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
	"fmt"
	"math"
	"testing"
)

func TestCurveInverse(t *testing.T) {
	curves := []Curve{
		Gamma(1),
		Gamma(1.8),
		Gamma(563.0 / 256),
		SRGBCurve,
		&Parametric{Type: 0, Params: []float64{2.2}},
		&Parametric{Type: 1, Params: []float64{2.0, 1.1, -0.1}},
		&Parametric{Type: 2, Params: []float64{2.0, 1.0, 0.0, 0.05}},
		&Parametric{Type: 4, Params: []float64{2.4, 0.9, 0.05, 0.1, 0.1, 0.02, 0.01}},
		Sample(SRGBCurve, 1024),
		Sample(Gamma(0.45), 256),
	}
	for i, c := range curves {
		t.Run(fmt.Sprintf("%d-%T", i, c), func(t *testing.T) {
			inv := c.Inverse()
			for k := 1; k < 100; k++ {
				x := float64(k) / 100
				y := c.Eval(x)
				if y <= 0 || y >= 1 {
					// outside the range where the curve is invertible
					continue
				}
				got := c.Eval(inv.Eval(y))
				if math.Abs(got-y) > 1e-4 {
					t.Errorf("f(f⁻¹(%g)) = %g", y, got)
				}
			}
		})
	}
}

func TestSRGBCurveValues(t *testing.T) {
	cases := []struct{ x, y float64 }{
		{0, 0},
		{0.04045, 0.04045 / 12.92},
		{0.5, 0.21404114},
		{1, 1},
	}
	for _, c := range cases {
		if got := SRGBCurve.Eval(c.x); math.Abs(got-c.y) > 1e-6 {
			t.Errorf("f(%g) = %g, want %g", c.x, got, c.y)
		}
	}
}

func TestSampledMatchesSource(t *testing.T) {
	s := Sample(SRGBCurve, 1024)
	for k := 0; k <= 50; k++ {
		x := float64(k) / 50
		if d := math.Abs(s.Eval(x) - SRGBCurve.Eval(x)); d > 1e-4 {
			t.Errorf("x=%g: sampled curve is off by %g", x, d)
		}
	}
}

func TestDescendingSampled(t *testing.T) {
	s := Sampled{65535, 32768, 0}
	inv := s.Inverse()
	if got := inv.Eval(0.75); math.Abs(got-0.25) > 1e-3 {
		t.Errorf("inverse(0.75) = %g", got)
	}
}

func TestCurveEncoding(t *testing.T) {
	curves := []Curve{
		Gamma(1),
		Gamma(2.2),
		SRGBCurve,
		Sampled{0, 1000, 65535},
	}
	for _, c := range curves {
		data, err := encodeCurve(c)
		if err != nil {
			t.Fatal(err)
		}
		got, size, err := decodeCurve(data)
		if err != nil {
			t.Fatal(err)
		}
		if size != pad4(len(data)) {
			t.Errorf("%T: size %d, want %d", c, size, pad4(len(data)))
		}
		for k := 0; k <= 10; k++ {
			x := float64(k) / 10
			if d := math.Abs(got.Eval(x) - c.Eval(x)); d > 2e-3 {
				t.Errorf("%T: x=%g differs by %g", c, x, d)
			}
		}
	}
}
