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
	"seehuhn.de/go/awib/raster"
)

// Source identifies the image a master is made from.  Use [PathSource]
// for image files and [MemorySource] for images which are already
// decoded.
type Source interface {
	// Describe returns a short description of the source for use in
	// messages.
	Describe() string

	isSource()
}

type pathSource string

// PathSource returns a source which reads the named image file.
func PathSource(path string) Source {
	return pathSource(path)
}

func (s pathSource) Describe() string {
	return string(s)
}

func (pathSource) isSource() {}

type memorySource struct {
	im *raster.Image
}

// MemorySource returns a source for an image held in memory.  To wrap an
// [image.Image], use [raster.New].
func MemorySource(im *raster.Image) Source {
	return memorySource{im: im}
}

func (s memorySource) Describe() string {
	if s.im != nil && s.im.Format != "" {
		return "in-memory image (" + s.im.Format + ")"
	}
	return "in-memory image"
}

func (memorySource) isSource() {}
