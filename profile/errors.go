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
	"errors"
	"strconv"
)

// ErrTagNotFound is returned by the tag accessors of [Profile] when the
// requested tag is not present.
var ErrTagNotFound = errors.New("tag not found")

// MalformedProfileError indicates that ICC profile data could not be parsed.
type MalformedProfileError struct {
	// Pos is the byte offset of the problem within the profile,
	// or -1 if unknown.
	Pos int

	// Tag is the tag being decoded, or 0 for header and tag table problems.
	Tag Signature

	Err error
}

func (err *MalformedProfileError) Error() string {
	middle := ""
	if err.Tag != 0 {
		middle = " (tag " + err.Tag.String() + ")"
	}
	if err.Err != nil {
		middle += ": " + err.Err.Error()
	}
	tail := ""
	if err.Pos >= 0 {
		tail = " (at byte " + strconv.Itoa(err.Pos) + ")"
	}
	return "malformed ICC profile" + middle + tail
}

func (err *MalformedProfileError) Unwrap() error {
	return err.Err
}

func malformed(pos int, reason string) error {
	return &MalformedProfileError{Pos: pos, Err: errors.New(reason)}
}

func malformedTag(tag Signature, pos int, reason string) error {
	return &MalformedProfileError{Pos: pos, Tag: tag, Err: errors.New(reason)}
}

// ProfileNotFoundError indicates that a named reference profile is not
// available from a [Store].
type ProfileNotFoundError struct {
	Name string
	Err  error
}

func (err *ProfileNotFoundError) Error() string {
	msg := "ICC profile " + strconv.Quote(err.Name) + " not found"
	if err.Err != nil {
		msg += ": " + err.Err.Error()
	}
	return msg
}

func (err *ProfileNotFoundError) Unwrap() error {
	return err.Err
}
