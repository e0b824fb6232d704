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
	"fmt"
	"os"

	"seehuhn.de/go/awib/metadata"
	"seehuhn.de/go/awib/profile"
	"seehuhn.de/go/awib/raster"
	"seehuhn.de/go/awib/tiff"
)

// ErrMismatch is returned by [Verify] if a stored master does not match
// the expectations.
var ErrMismatch = errors.New("master does not match")

// Report describes a master file read back by [Verify].
type Report struct {
	Stats      raster.Stats
	Profile    *profile.Profile
	Provenance *metadata.Provenance
	Info       *tiff.Info
}

// Verify reads the master stored in the named file and checks that its
// pixel statistics equal want and that the embedded profile equals
// target.  A missing or unreadable provenance packet is not an error;
// Report.Provenance is nil in this case.
func Verify(path string, want raster.Stats, target *profile.Profile) (*Report, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	img, info, err := tiff.Decode(fd)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(info.ICC) == 0 {
		return nil, fmt.Errorf("%s: %w: no embedded ICC profile", path, ErrMismatch)
	}
	embedded, err := profile.Decode(info.ICC)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	r := &Report{
		Stats:   raster.StatsOf(img),
		Profile: embedded,
		Info:    info,
	}
	if len(info.XMP) > 0 {
		if prov, err := metadata.Decode(info.XMP); err == nil {
			r.Provenance = prov
		}
	}

	if embedded.Name() != target.Name() || !embedded.Equal(target) {
		return r, fmt.Errorf("%s: %w: profile %q, want %q",
			path, ErrMismatch, embedded.Name(), target.Name())
	}
	if r.Stats != want {
		return r, fmt.Errorf("%s: %w: statistics %s, want %s",
			path, ErrMismatch, r.Stats, want)
	}
	return r, nil
}
