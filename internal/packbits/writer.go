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

// Package packbits implements the PackBits run-length encoding used by
// TIFF files (compression scheme 32773).
//
// Each run starts with a header byte n.  For 0 ≤ n ≤ 127, the next n+1
// bytes are copied literally.  For 129 ≤ n ≤ 255, the next byte is
// repeated 257-n times.  The value 128 is a no-op.
package packbits

import (
	"io"
)

// Writer compresses data in PackBits format.
//
// TIFF requires every row of an image to be packed separately; call
// [Writer.Flush] at the end of each row.
type Writer struct {
	w           io.Writer
	buf         [129]byte
	used        int
	repeatCount int
	repeatVal   byte
}

// NewWriter returns a new Writer which writes compressed data to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write implements the io.Writer interface.
func (w *Writer) Write(p []byte) (n int, err error) {
	for n < len(p) {
		b := p[n]
		if w.repeatCount > 0 {
			if b == w.repeatVal && w.repeatCount < 128 {
				w.repeatCount++
				n++
				continue
			}

			err = w.flushRepeat()
			if err != nil {
				return n, err
			}
		}

		w.buf[1+w.used] = b
		w.used++
		n++

		// three equal bytes start a repeat run
		if w.used >= 3 {
			idx := 1 + w.used - 3
			if w.buf[idx] == w.buf[idx+1] && w.buf[idx+1] == w.buf[idx+2] {
				literalCount := w.used - 3
				if literalCount > 0 {
					err = w.flushLiteral(literalCount)
					if err != nil {
						return n, err
					}
				}
				w.repeatCount = 3
				w.repeatVal = w.buf[idx]
				w.used = 0
				continue
			}
		}

		if w.used == 128 {
			err = w.flushLiteral(128)
			if err != nil {
				return n, err
			}
		}
	}

	return n, nil
}

func (w *Writer) flushLiteral(count int) error {
	w.buf[0] = byte(count - 1)
	_, err := w.w.Write(w.buf[0 : count+1])
	w.used = 0
	return err
}

func (w *Writer) flushRepeat() error {
	w.buf[0] = byte(257 - w.repeatCount)
	w.buf[1] = w.repeatVal
	_, err := w.w.Write(w.buf[0:2])
	w.repeatCount = 0
	return err
}

// Flush writes all pending bytes.  Runs never extend across a call to
// Flush.
func (w *Writer) Flush() error {
	if w.repeatCount > 0 {
		err := w.flushRepeat()
		if err != nil {
			return err
		}
	}
	if w.used > 0 {
		return w.flushLiteral(w.used)
	}
	return nil
}

// Close flushes the remaining bytes.  It does not close the underlying
// writer.
func (w *Writer) Close() error {
	return w.Flush()
}
