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

// Package predict implements the TIFF horizontal differencing predictor
// (TIFF predictor 2) for 8 and 16 bit samples.
package predict

import (
	"errors"
	"fmt"
	"io"
)

const maxColumns = 1 << 20

// Params describes the layout of the rows passed to the predictor.
type Params struct {
	// Colors is the number of samples per pixel.
	Colors int

	// BitsPerComponent is either 8 or 16.  16 bit samples are big endian.
	BitsPerComponent int

	// Columns is the image width in pixels.
	Columns int
}

// Validate checks that the parameters describe a row layout the predictor
// can handle.
func (p *Params) Validate() error {
	if p.Colors < 1 || p.Colors > 60 {
		return fmt.Errorf("invalid number of colors %d", p.Colors)
	}
	switch p.BitsPerComponent {
	case 8, 16:
		// pass
	default:
		return fmt.Errorf("BitsPerComponent must be 8 or 16, got %d", p.BitsPerComponent)
	}
	if p.Columns < 1 || p.Columns > maxColumns {
		return errors.New("invalid Columns value")
	}
	return nil
}

// BytesPerRow returns the length of an unencoded row.
func (p *Params) BytesPerRow() int {
	return p.Colors * p.Columns * p.BitsPerComponent / 8
}

// writer applies horizontal differencing to the rows written to it.
type writer struct {
	w      io.WriteCloser
	params *Params

	row  []byte
	fill int
}

// NewWriter returns an io.WriteCloser which applies the predictor to the
// data written to it and passes the result on to w.  Closing the returned
// writer closes w.
func NewWriter(w io.WriteCloser, p *Params) (io.WriteCloser, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &writer{
		w:      w,
		params: p,
		row:    make([]byte, p.BytesPerRow()),
	}, nil
}

// Write implements the [io.Writer] interface.
func (w *writer) Write(data []byte) (int, error) {
	n := 0
	for len(data) > 0 {
		k := copy(w.row[w.fill:], data)
		w.fill += k
		n += k
		data = data[k:]

		if w.fill == len(w.row) {
			Encode(w.row, w.params)
			if _, err := w.w.Write(w.row); err != nil {
				return n, err
			}
			w.fill = 0
		}
	}
	return n, nil
}

// Close implements the [io.Closer] interface.
// A trailing partial row is padded with zeros.
func (w *writer) Close() error {
	if w.fill > 0 {
		clear(w.row[w.fill:])
		Encode(w.row, w.params)
		if _, err := w.w.Write(w.row); err != nil {
			return err
		}
		w.fill = 0
	}
	return w.w.Close()
}

// Encode replaces a single row of samples by its horizontal differences,
// in place.
func Encode(row []byte, p *Params) {
	n := p.Colors
	if p.BitsPerComponent == 8 {
		for i := len(row) - 1; i >= n; i-- {
			row[i] -= row[i-n]
		}
		return
	}

	step := 2 * n
	for i := len(row) - 2; i >= step; i -= 2 {
		cur := uint16(row[i])<<8 | uint16(row[i+1])
		prev := uint16(row[i-step])<<8 | uint16(row[i-step+1])
		d := cur - prev
		row[i] = byte(d >> 8)
		row[i+1] = byte(d)
	}
}

// Decode reverses [Encode], in place.
func Decode(row []byte, p *Params) {
	n := p.Colors
	if p.BitsPerComponent == 8 {
		for i := n; i < len(row); i++ {
			row[i] += row[i-n]
		}
		return
	}

	step := 2 * n
	for i := step; i+1 < len(row); i += 2 {
		d := uint16(row[i])<<8 | uint16(row[i+1])
		prev := uint16(row[i-step])<<8 | uint16(row[i-step+1])
		v := d + prev
		row[i] = byte(v >> 8)
		row[i+1] = byte(v)
	}
}
