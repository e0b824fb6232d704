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

import "strconv"

// State is the processing stage of a [Maker].
type State int

// The states of a [Maker], in the order they are reached.
const (
	Initialized State = iota
	ModeNormalized
	ProfileStandardized
	Saved
)

func (s State) String() string {
	switch s {
	case Initialized:
		return "initialized"
	case ModeNormalized:
		return "mode normalized"
	case ProfileStandardized:
		return "profile standardized"
	case Saved:
		return "saved"
	default:
		return "State(" + strconv.Itoa(int(s)) + ")"
	}
}
