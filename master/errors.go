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

package master

import (
	"errors"
	"strconv"
)

// SourceNotFoundError indicates that the source image could not be
// opened or decoded.
type SourceNotFoundError struct {
	// Path is the file name of the source, or empty for in-memory images.
	Path string
	Err  error
}

func (err *SourceNotFoundError) Error() string {
	msg := "source image"
	if err.Path != "" {
		msg += " " + strconv.Quote(err.Path)
	}
	msg += " not available"
	if err.Err != nil {
		msg += ": " + err.Err.Error()
	}
	return msg
}

func (err *SourceNotFoundError) Unwrap() error {
	return err.Err
}

// NotReadyError is returned when an operation is attempted before the
// master has been made.
type NotReadyError struct {
	Op    string
	State State
}

func (err *NotReadyError) Error() string {
	return "cannot " + err.Op + " master in state " + err.State.String()
}

// NoDestinationError is returned by [Maker.Save] when neither the call
// nor the constructor specified where to write the master.
type NoDestinationError struct{}

func (err *NoDestinationError) Error() string {
	return "no destination given for master image"
}

var errNoImage = errors.New("no image")
