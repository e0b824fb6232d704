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

package packbits

import (
	"bufio"
	"io"
)

// NewReader returns a reader which decodes the PackBits data read from r.
// Data ending in the middle of a run gives [io.ErrUnexpectedEOF].
func NewReader(r io.Reader) io.Reader {
	br, ok := r.(io.ByteReader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &reader{src: br}
}

type reader struct {
	src io.ByteReader
	err error

	// run holds the decoded bytes of the current run not yet returned.
	run []byte
	buf [128]byte
}

func (r *reader) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if len(r.run) > 0 {
			k := copy(p[n:], r.run)
			r.run = r.run[k:]
			n += k
			continue
		}
		if r.err != nil {
			break
		}
		r.err = r.nextRun()
	}
	if n > 0 {
		return n, nil
	}
	return 0, r.err
}

// nextRun decodes the run starting at the next header byte.  A clean end
// of input, before a header byte, gives io.EOF.
func (r *reader) nextRun() error {
	header, err := r.src.ReadByte()
	if err != nil {
		return err
	}
	switch {
	case header < 128:
		k := int(header) + 1
		for i := range k {
			b, err := r.src.ReadByte()
			if err != nil {
				return unexpected(err)
			}
			r.buf[i] = b
		}
		r.run = r.buf[:k]
	case header > 128:
		b, err := r.src.ReadByte()
		if err != nil {
			return unexpected(err)
		}
		k := 257 - int(header)
		for i := range k {
			r.buf[i] = b
		}
		r.run = r.buf[:k]
	}
	return nil
}

func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
