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

// Package colconv implements conversions between the two profile connection
// spaces used by ICC profiles, CIE XYZ and CIE L*a*b*, relative to the D50
// illuminant.
package colconv

import "math"

// D50 is the PCS illuminant, normalized to Y=1.
var D50 = [3]float64{0.9642, 1.0, 0.8249}

// XYZToLab converts a D50-relative XYZ value to L*a*b*.
func XYZToLab(x, y, z float64) (L, a, b float64) {
	fx := labF(x / D50[0])
	fy := labF(y / D50[1])
	fz := labF(z / D50[2])

	L = 116*fy - 16
	a = 500 * (fx - fy)
	b = 200 * (fy - fz)
	return L, a, b
}

// LabToXYZ converts an L*a*b* value to D50-relative XYZ.
func LabToXYZ(L, a, b float64) (x, y, z float64) {
	fy := (L + 16) / 116
	fx := fy + a/500
	fz := fy - b/200

	x = labFInv(fx) * D50[0]
	y = labFInv(fy) * D50[1]
	z = labFInv(fz) * D50[2]
	return x, y, z
}

// Clamp limits v to the interval [lo, hi].  NaN is mapped to lo.
func Clamp(v, lo, hi float64) float64 {
	if v < lo || math.IsNaN(v) {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

const labDelta = 6.0 / 29.0

func labF(t float64) float64 {
	if t > labDelta*labDelta*labDelta {
		return math.Cbrt(t)
	}
	return t/(3*labDelta*labDelta) + 4.0/29.0
}

func labFInv(t float64) float64 {
	if t > labDelta {
		return t * t * t
	}
	return 3 * labDelta * labDelta * (t - 4.0/29.0)
}
