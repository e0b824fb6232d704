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

// Mode describes the pixel layout of an image.  The names follow the
// conventions used by most imaging tools, for example "RGB" or "I;16".
type Mode string

// These are the modes reported by [ModeOf].
const (
	ModeP      Mode = "P"
	ModeL      Mode = "L"
	ModeI16    Mode = "I;16"
	ModeRGB    Mode = "RGB"
	ModeRGBA   Mode = "RGBA"
	ModeRGB16  Mode = "RGB;16"
	ModeRGBA16 Mode = "RGBA;16"
	ModeCMYK   Mode = "CMYK"
	ModeYCbCr  Mode = "YCbCr"
)

// ModeOf determines the mode of img.  Images with an alpha channel are
// reported as RGB or RGB;16 if all pixels are opaque.
func ModeOf(img image.Image) Mode {
	switch img := img.(type) {
	case *RGB:
		return ModeRGB
	case *image.Paletted:
		return ModeP
	case *image.Gray:
		return ModeL
	case *image.Gray16:
		return ModeI16
	case *image.CMYK:
		return ModeCMYK
	case *image.YCbCr, *image.NYCbCrA:
		return ModeYCbCr
	case *image.RGBA:
		if img.Opaque() {
			return ModeRGB
		}
		return ModeRGBA
	case *image.NRGBA:
		if img.Opaque() {
			return ModeRGB
		}
		return ModeRGBA
	case *image.RGBA64:
		if img.Opaque() {
			return ModeRGB16
		}
		return ModeRGBA16
	case *image.NRGBA64:
		if img.Opaque() {
			return ModeRGB16
		}
		return ModeRGBA16
	}

	switch img.ColorModel() {
	case color.GrayModel:
		return ModeL
	case color.Gray16Model:
		return ModeI16
	case color.CMYKModel:
		return ModeCMYK
	case color.YCbCrModel:
		return ModeYCbCr
	}
	if _, ok := img.ColorModel().(color.Palette); ok {
		return ModeP
	}
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return ModeRGB
	}
	return ModeRGBA
}

// Space returns the colour space in which the samples of an image in mode
// m are expressed.  The result is 0 for modes which need to be converted
// before a colour transform can be applied, i.e. for palette and YCbCr
// images.
func (m Mode) Space() profile.Space {
	switch m {
	case ModeRGB, ModeRGBA, ModeRGB16, ModeRGBA16:
		return profile.SpaceRGB
	case ModeL, ModeI16:
		return profile.SpaceGray
	case ModeCMYK:
		return profile.SpaceCMYK
	default:
		return 0
	}
}

// HasAlpha reports whether images in mode m carry an alpha channel.
func (m Mode) HasAlpha() bool {
	return m == ModeRGBA || m == ModeRGBA16
}

// Depth returns the number of bits per sample.
func (m Mode) Depth() int {
	switch m {
	case ModeI16, ModeRGB16, ModeRGBA16:
		return 16
	default:
		return 8
	}
}
