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
)

// RGB is an in-memory image of packed 8-bit RGB samples.  All pixels are
// opaque.
type RGB struct {
	// Pix holds the samples in R, G, B order.  The samples of the pixel
	// at (x, y) start at Pix[(y-Rect.Min.Y)*Stride + (x-Rect.Min.X)*3].
	Pix    []uint8
	Stride int
	Rect   image.Rectangle
}

// NewRGB allocates a new RGB image with the given bounds.  All pixels
// start out black.
func NewRGB(r image.Rectangle) *RGB {
	r = r.Canon()
	return &RGB{
		Pix:    make([]uint8, 3*r.Dx()*r.Dy()),
		Stride: 3 * r.Dx(),
		Rect:   r,
	}
}

// ColorModel implements the [image.Image] interface.
func (p *RGB) ColorModel() color.Model { return color.RGBAModel }

// Bounds implements the [image.Image] interface.
func (p *RGB) Bounds() image.Rectangle { return p.Rect }

// At implements the [image.Image] interface.
func (p *RGB) At(x, y int) color.Color {
	return p.RGBAt(x, y)
}

// RGBAt returns the colour of the pixel at (x, y).
func (p *RGB) RGBAt(x, y int) color.RGBA {
	if !(image.Point{x, y}.In(p.Rect)) {
		return color.RGBA{}
	}
	i := p.PixOffset(x, y)
	s := p.Pix[i : i+3 : i+3]
	return color.RGBA{s[0], s[1], s[2], 0xff}
}

// Set implements the [draw.Image] interface.  Alpha is discarded.
func (p *RGB) Set(x, y int, c color.Color) {
	if !(image.Point{x, y}.In(p.Rect)) {
		return
	}
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	p.SetRGB(x, y, n.R, n.G, n.B)
}

// SetRGB sets the pixel at (x, y).
func (p *RGB) SetRGB(x, y int, r, g, b uint8) {
	if !(image.Point{x, y}.In(p.Rect)) {
		return
	}
	i := p.PixOffset(x, y)
	s := p.Pix[i : i+3 : i+3]
	s[0] = r
	s[1] = g
	s[2] = b
}

// PixOffset returns the index of the first sample of the pixel at (x, y).
func (p *RGB) PixOffset(x, y int) int {
	return (y-p.Rect.Min.Y)*p.Stride + (x-p.Rect.Min.X)*3
}

// Row returns the samples of row y.  The returned slice aliases Pix.
func (p *RGB) Row(y int) []uint8 {
	i := p.PixOffset(p.Rect.Min.X, y)
	return p.Pix[i : i+3*p.Rect.Dx()]
}

// Opaque reports whether all pixels are opaque, which is always true.
func (p *RGB) Opaque() bool { return true }
