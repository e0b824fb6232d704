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
	"fmt"
	"image"
)

// ChannelStats summarises the 8-bit samples of one channel.
type ChannelStats struct {
	Min, Max uint8
	Count    int
	Sum      uint64
}

// Mean returns the average sample value.
func (c ChannelStats) Mean() float64 {
	if c.Count == 0 {
		return 0
	}
	return float64(c.Sum) / float64(c.Count)
}

// Stats holds the statistics of the red, green and blue channels.
type Stats [3]ChannelStats

// StatsOf computes the channel statistics of img, after conversion to
// 8-bit RGB.
func StatsOf(img image.Image) Stats {
	rgb := ToRGB(img)
	var res Stats
	for c := range res {
		res[c].Min = 0xff
	}
	b := rgb.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := rgb.Row(y)
		for i := 0; i < len(row); i += 3 {
			for c := range 3 {
				v := row[i+c]
				s := &res[c]
				s.Min = min(s.Min, v)
				s.Max = max(s.Max, v)
				s.Sum += uint64(v)
			}
		}
	}
	n := b.Dx() * b.Dy()
	for c := range res {
		res[c].Count = n
		if n == 0 {
			res[c].Min = 0
		}
	}
	return res
}

func (s Stats) String() string {
	return fmt.Sprintf("R[%d,%d] G[%d,%d] B[%d,%d] mean(%.2f,%.2f,%.2f) n=%d",
		s[0].Min, s[0].Max, s[1].Min, s[1].Max, s[2].Min, s[2].Max,
		s[0].Mean(), s[1].Mean(), s[2].Mean(), s[0].Count)
}
