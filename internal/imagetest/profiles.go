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

// Package imagetest provides images and ICC profiles for use in tests.
package imagetest

import (
	"math"
	"sync"

	"seehuhn.de/go/awib/internal/colconv"
	"seehuhn.de/go/awib/profile"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func build(def *profile.Definition) *profile.Profile {
	return must(profile.Decode(must(profile.Encode(def))))
}

var d65 = [3]float64{0.9505, 1, 1.089}

// SRGBColorants returns the D50-adapted colorants of sRGB.
func SRGBColorants() colconv.Matrix {
	return must(colconv.Primaries(d65, [2]float64{0.64, 0.33}, [2]float64{0.30, 0.60}, [2]float64{0.15, 0.06}))
}

// AdobeRGB returns a version 2 profile for the Adobe RGB (1998) colour
// space.
var AdobeRGB = sync.OnceValue(func() *profile.Profile {
	chad := must(colconv.Bradford(d65, colconv.D50))
	return build(&profile.Definition{
		Version:     profile.V2_1,
		Space:       profile.SpaceRGB,
		Description: "Adobe RGB (1998)",
		Copyright:   "test profile",
		Adaptation:  &chad,
		Colorants:   must(colconv.Primaries(d65, [2]float64{0.64, 0.33}, [2]float64{0.21, 0.71}, [2]float64{0.15, 0.06})),
		TRC:         profile.Gamma(563.0 / 256),
	})
})

// Gray22 returns a gray profile with gamma 2.2.
var Gray22 = sync.OnceValue(func() *profile.Profile {
	return build(&profile.Definition{
		Version:     profile.V4_3,
		Space:       profile.SpaceGray,
		Description: "Gray Gamma 2.2",
		TRC:         profile.Gamma(2.2),
	})
})

// identityTable returns a 2-entry identity curve.
func identityTable() []uint16 {
	return []uint16{0, 65535}
}

// clut fills a colour lookup table with grid points per input channel.
// The first input varies slowest.
func clut(nIn, grid int, f func(in []float64) []float64) []uint16 {
	var res []uint16
	idx := make([]int, nIn)
	in := make([]float64, nIn)
	for {
		for i, k := range idx {
			in[i] = float64(k) / float64(grid-1)
		}
		for _, v := range f(in) {
			res = append(res, uint16(math.Round(colconv.Clamp(v, 0, 1)*65535)))
		}

		d := nIn - 1
		for d >= 0 {
			idx[d]++
			if idx[d] < grid {
				break
			}
			idx[d] = 0
			d--
		}
		if d < 0 {
			return res
		}
	}
}

// encodeLab converts CIELAB values to the legacy 16-bit PCS encoding used
// by lut16 tags, scaled to [0, 1].
func encodeLab(L, a, b float64) []float64 {
	return []float64{
		L * 652.80 / 65535,
		(a + 128) * 256 / 65535,
		(b + 128) * 256 / 65535,
	}
}

func decodeLab(v []float64) (L, a, b float64) {
	return v[0] * 65535 / 652.80, v[1]*65535/256 - 128, v[2]*65535/256 - 128
}

// srgbToLab converts gamma encoded sRGB values to CIELAB (D50).
func srgbToLab(m colconv.Matrix, rgb []float64) (float64, float64, float64) {
	lin := [3]float64{
		profile.SRGBCurve.Eval(rgb[0]),
		profile.SRGBCurve.Eval(rgb[1]),
		profile.SRGBCurve.Eval(rgb[2]),
	}
	xyz := m.Apply(lin)
	return colconv.XYZToLab(xyz[0], xyz[1], xyz[2])
}

// CMYK returns an output profile for a simple, subtractive CMYK process.
// The profile has only an AToB0 table, mapping to CIELAB.
var CMYK = sync.OnceValue(func() *profile.Profile {
	m := SRGBColorants()
	table := &profile.Lut16{
		InputTables:  [][]uint16{identityTable(), identityTable(), identityTable(), identityTable()},
		GridPoints:   5,
		OutputTables: [][]uint16{identityTable(), identityTable(), identityTable()},
	}
	table.CLUT = clut(4, 5, func(in []float64) []float64 {
		k := 1 - in[3]
		rgb := []float64{(1 - in[0]) * k, (1 - in[1]) * k, (1 - in[2]) * k}
		return encodeLab(srgbToLab(m, rgb))
	})
	return build(&profile.Definition{
		Version:     profile.V2_1,
		Class:       profile.ClassOutput,
		Space:       profile.SpaceCMYK,
		PCS:         profile.SpaceLab,
		Description: "Naive CMYK",
		AToB0:       table,
	})
})

// LabRGB returns an sRGB profile which is expressed by lookup tables
// to and from CIELAB, instead of the matrix/TRC model.
var LabRGB = sync.OnceValue(func() *profile.Profile {
	m := SRGBColorants()
	inv := must(m.Inverse())
	three := func() [][]uint16 {
		return [][]uint16{identityTable(), identityTable(), identityTable()}
	}

	aToB := &profile.Lut16{InputTables: three(), GridPoints: 17, OutputTables: three()}
	aToB.CLUT = clut(3, 17, func(in []float64) []float64 {
		return encodeLab(srgbToLab(m, in))
	})

	bToA := &profile.Lut16{InputTables: three(), GridPoints: 33, OutputTables: three()}
	bToA.CLUT = clut(3, 33, func(in []float64) []float64 {
		x, y, z := colconv.LabToXYZ(decodeLab(in))
		lin := inv.Apply([3]float64{x, y, z})
		res := make([]float64, 3)
		for i, v := range lin {
			res[i] = profile.SRGBCurve.Inverse().Eval(colconv.Clamp(v, 0, 1))
		}
		return res
	})

	return build(&profile.Definition{
		Version:     profile.V2_1,
		Space:       profile.SpaceRGB,
		PCS:         profile.SpaceLab,
		Description: "sRGB via CIELAB tables",
		AToB0:       aToB,
		BToA0:       bToA,
	})
})
