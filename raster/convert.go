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
	"image"
	"image/color"

	"seehuhn.de/go/awib/profile"
)

// ToRGB converts img to an opaque 8-bit RGB image.  Alpha is discarded
// and 16-bit samples are truncated to 8 bits.  If img is already an *RGB,
// it is returned unchanged.  Otherwise a new image is allocated and img
// is not modified.
func ToRGB(img image.Image) *RGB {
	if rgb, ok := img.(*RGB); ok {
		return rgb
	}

	b := img.Bounds()
	res := NewRGB(b)
	switch img := img.(type) {
	case *image.RGBA:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			src := img.Pix[img.PixOffset(b.Min.X, y):]
			dst := res.Row(y)
			for i, j := 0, 0; j < len(dst); i, j = i+4, j+3 {
				r, g, bb, a := src[i], src[i+1], src[i+2], src[i+3]
				switch a {
				case 0xff:
					dst[j], dst[j+1], dst[j+2] = r, g, bb
				case 0:
					dst[j], dst[j+1], dst[j+2] = 0, 0, 0
				default:
					dst[j] = unpremultiply(r, a)
					dst[j+1] = unpremultiply(g, a)
					dst[j+2] = unpremultiply(bb, a)
				}
			}
		}
	case *image.NRGBA:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			src := img.Pix[img.PixOffset(b.Min.X, y):]
			dst := res.Row(y)
			for i, j := 0, 0; j < len(dst); i, j = i+4, j+3 {
				copy(dst[j:j+3], src[i:i+3])
			}
		}
	case *image.Gray:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			src := img.Pix[img.PixOffset(b.Min.X, y):]
			dst := res.Row(y)
			for i, j := 0, 0; j < len(dst); i, j = i+1, j+3 {
				v := src[i]
				dst[j], dst[j+1], dst[j+2] = v, v, v
			}
		}
	case *image.Paletted:
		lookup := make([][3]uint8, 256)
		for i, c := range img.Palette {
			n := color.NRGBAModel.Convert(c).(color.NRGBA)
			lookup[i] = [3]uint8{n.R, n.G, n.B}
		}
		for y := b.Min.Y; y < b.Max.Y; y++ {
			src := img.Pix[img.PixOffset(b.Min.X, y):]
			dst := res.Row(y)
			for i, j := 0, 0; j < len(dst); i, j = i+1, j+3 {
				c := lookup[src[i]]
				dst[j], dst[j+1], dst[j+2] = c[0], c[1], c[2]
			}
		}
	case *image.YCbCr:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			dst := res.Row(y)
			for x, j := b.Min.X, 0; x < b.Max.X; x, j = x+1, j+3 {
				yi := img.YOffset(x, y)
				ci := img.COffset(x, y)
				dst[j], dst[j+1], dst[j+2] = color.YCbCrToRGB(img.Y[yi], img.Cb[ci], img.Cr[ci])
			}
		}
	case *image.CMYK:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			src := img.Pix[img.PixOffset(b.Min.X, y):]
			dst := res.Row(y)
			for i, j := 0, 0; j < len(dst); i, j = i+4, j+3 {
				dst[j], dst[j+1], dst[j+2] = color.CMYKToRGB(src[i], src[i+1], src[i+2], src[i+3])
			}
		}
	default:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			dst := res.Row(y)
			for x, j := b.Min.X, 0; x < b.Max.X; x, j = x+1, j+3 {
				n := color.NRGBA64Model.Convert(img.At(x, y)).(color.NRGBA64)
				dst[j] = uint8(n.R >> 8)
				dst[j+1] = uint8(n.G >> 8)
				dst[j+2] = uint8(n.B >> 8)
			}
		}
	}
	return res
}

func unpremultiply(c, a uint8) uint8 {
	return uint8((uint32(c)*0xff + uint32(a)/2) / uint32(a))
}

// ToGray converts img to an 8-bit grayscale image.  If img is already an
// *image.Gray, it is returned unchanged.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	res := image.NewGray(b)
	switch img := img.(type) {
	case *image.Gray16:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				res.Pix[res.PixOffset(x, y)] = uint8(img.Gray16At(x, y).Y >> 8)
			}
		}
	default:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				res.SetGray(x, y, color.GrayModel.Convert(img.At(x, y)).(color.Gray))
			}
		}
	}
	return res
}

// ToCMYK converts img to an 8-bit CMYK image.  If img is already an
// *image.CMYK, it is returned unchanged.
func ToCMYK(img image.Image) *image.CMYK {
	if c, ok := img.(*image.CMYK); ok {
		return c
	}
	b := img.Bounds()
	res := image.NewCMYK(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			res.SetCMYK(x, y, color.CMYKModel.Convert(img.At(x, y)).(color.CMYK))
		}
	}
	return res
}

// Convert changes img to the native layout of the given colour space:
// *RGB for RGB, *image.Gray for gray and *image.CMYK for CMYK.  The second
// return value is false for other colour spaces.
func Convert(img image.Image, space profile.Space) (image.Image, bool) {
	switch space {
	case profile.SpaceRGB:
		return ToRGB(img), true
	case profile.SpaceGray:
		return ToGray(img), true
	case profile.SpaceCMYK:
		return ToCMYK(img), true
	default:
		return nil, false
	}
}
