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
	"seehuhn.de/go/awib/profile"
	"seehuhn.de/go/awib/raster"
)

// Outcome tells how the source profile of an image was determined.
type Outcome int

const (
	// Embedded means the profile was read from the image.
	Embedded Outcome = iota + 1

	// FallbackAssigned means the image has no profile and the fallback
	// profile was assigned.
	FallbackAssigned
)

func (o Outcome) String() string {
	switch o {
	case Embedded:
		return "embedded"
	case FallbackAssigned:
		return "fallback"
	default:
		return "unknown"
	}
}

// Detect determines the colour profile of im.  If im carries an embedded
// profile, this profile is parsed and returned.  Otherwise fallback is
// returned.
//
// Malformed embedded profiles are reported as
// [*profile.MalformedProfileError]; the fallback is not used in this case.
func Detect(im *raster.Image, fallback *profile.Profile) (*profile.Profile, Outcome, error) {
	if len(im.ICC) == 0 {
		return fallback, FallbackAssigned, nil
	}
	p, err := profile.Decode(im.ICC)
	if err != nil {
		return nil, 0, err
	}
	return p, Embedded, nil
}
