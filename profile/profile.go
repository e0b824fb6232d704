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

// Package profile reads, writes and compares ICC colour profiles.
//
// A [Profile] is immutable after it has been decoded.  Two profiles are
// considered equal if their definitions match, regardless of creation date,
// profile ID and similar bookkeeping fields in the header.  Reference
// profiles are obtained by name from a [Store].
package profile

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"slices"
	"strings"

	"github.com/xdg-go/stringprep"
	"seehuhn.de/go/icc"
)

// Signature is a four-byte ICC signature, used for tag names, tag types,
// colour spaces and profile classes.
type Signature uint32

// Sig converts a four-character string into a Signature.
func Sig(s string) Signature {
	var buf [4]byte
	copy(buf[:], "    ")
	copy(buf[:], s)
	return Signature(binary.BigEndian.Uint32(buf[:]))
}

func (s Signature) String() string {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(s))
	for _, c := range buf {
		if c < 0x20 || c > 0x7e {
			return fmt.Sprintf("0x%08x", uint32(s))
		}
	}
	return strings.TrimRight(string(buf[:]), " ")
}

// Space is a colour space signature.
type Space = Signature

// Colour spaces used by this package.
const (
	SpaceGray Space = 0x47524159 // 'GRAY'
	SpaceRGB  Space = 0x52474220 // 'RGB '
	SpaceCMYK Space = 0x434D594B // 'CMYK'
	SpaceLab  Space = 0x4C616220 // 'Lab '
	SpaceXYZ  Space = 0x58595A20 // 'XYZ '
)

// Class is a profile class signature.
type Class = Signature

// Profile classes.
const (
	ClassInput      Class = 0x73636E72 // 'scnr'
	ClassDisplay    Class = 0x6D6E7472 // 'mntr'
	ClassOutput     Class = 0x70727472 // 'prtr'
	ClassLink       Class = 0x6C696E6B // 'link'
	ClassColorSpace Class = 0x73706163 // 'spac'
	ClassAbstract   Class = 0x61627374 // 'abst'
)

// Version is the profile format version, as stored in the header.
type Version uint32

// Common profile versions.
const (
	V2_1 Version = 0x02100000
	V4_3 Version = 0x04300000
)

// Major returns the major version number.
func (v Version) Major() int {
	return int(v >> 24)
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v>>24, (v>>20)&0xF, (v>>16)&0xF)
}

const headerSize = 128

// Profile is a decoded ICC profile.
type Profile struct {
	data []byte

	version Version
	class   Class
	space   Space
	pcs     Space
	intent  uint32

	channels int

	tags map[Signature][]byte

	name        string
	fingerprint [32]byte
}

// Decode parses an ICC profile.  The data are copied; the caller may
// modify data afterwards.
//
// Only the header and the tag table are validated.  Problems in individual
// tags are reported by the tag accessors.
func Decode(data []byte) (*Profile, error) {
	data = bytes.Clone(data)

	// icc.Decode may rewrite parts of the header while checking the
	// profile ID, so it gets a copy of its own.
	dec, err := icc.Decode(bytes.Clone(data))
	if err != nil {
		return nil, &MalformedProfileError{Pos: -1, Err: err}
	}

	size := int(binary.BigEndian.Uint32(data[0:4]))
	if size < headerSize+4 || size > len(data) {
		return nil, malformed(0, "invalid profile size")
	}
	data = data[:size]

	p := &Profile{
		data:    data,
		version: Version(binary.BigEndian.Uint32(data[8:12])),
		class:   Class(binary.BigEndian.Uint32(data[12:16])),
		space:   Space(binary.BigEndian.Uint32(data[16:20])),
		pcs:     Space(binary.BigEndian.Uint32(data[20:24])),
		intent:  binary.BigEndian.Uint32(data[64:68]),
		tags:    make(map[Signature][]byte),
	}

	switch dec.ColorSpace {
	case icc.GraySpace, icc.RGBSpace, icc.CMYKSpace, icc.CIELabSpace:
		p.channels = dec.ColorSpace.NumComponents()
	default:
		if p.space == SpaceXYZ {
			p.channels = 3
		}
	}

	numTags := int(binary.BigEndian.Uint32(data[headerSize:]))
	if numTags > (len(data)-headerSize-4)/12 {
		return nil, malformed(headerSize, "too many tags")
	}
	minOffset := headerSize + 4 + 12*numTags
	for i := range numTags {
		pos := headerSize + 4 + 12*i
		tag := Signature(binary.BigEndian.Uint32(data[pos:]))
		offset := int64(binary.BigEndian.Uint32(data[pos+4:]))
		length := int64(binary.BigEndian.Uint32(data[pos+8:]))
		if offset < int64(minOffset) || offset+length > int64(len(data)) || length < 8 {
			return nil, malformedTag(tag, pos, "tag data out of bounds")
		}
		if _, dup := p.tags[tag]; dup {
			return nil, malformedTag(tag, pos, "duplicate tag")
		}
		p.tags[tag] = data[offset : offset+length : offset+length]
	}

	p.name = canonicalName(p.readDescription())
	p.fingerprint = p.computeFingerprint()

	return p, nil
}

// canonicalName normalizes a profile description for display and for
// comparison with configured names.
func canonicalName(s string) string {
	s = strings.TrimRight(s, "\x00")
	s = strings.TrimSpace(s)
	if prep, err := stringprep.SASLprep.Prepare(s); err == nil {
		return prep
	}
	return s
}

// computeFingerprint hashes the parts of the profile which define its
// meaning.  Creation date, profile ID, flags, CMM type and rendering intent
// are not included.
func (p *Profile) computeFingerprint() [32]byte {
	h := sha256.New()
	var buf [16]byte
	binary.BigEndian.PutUint32(buf[0:], uint32(p.version.Major()))
	binary.BigEndian.PutUint32(buf[4:], uint32(p.class))
	binary.BigEndian.PutUint32(buf[8:], uint32(p.space))
	binary.BigEndian.PutUint32(buf[12:], uint32(p.pcs))
	h.Write(buf[:])

	for _, tag := range p.Tags() {
		data := p.tags[tag]
		binary.BigEndian.PutUint32(buf[0:], uint32(tag))
		binary.BigEndian.PutUint32(buf[4:], uint32(len(data)))
		h.Write(buf[:8])
		h.Write(data)
	}

	var res [32]byte
	h.Sum(res[:0])
	return res
}

// Bytes returns the exact serialization of the profile.
// The returned slice must not be modified.
func (p *Profile) Bytes() []byte {
	return p.data
}

// Name returns the profile description, normalized for display.
func (p *Profile) Name() string {
	return p.name
}

// Version returns the profile format version.
func (p *Profile) Version() Version {
	return p.version
}

// Class returns the profile class.
func (p *Profile) Class() Class {
	return p.class
}

// Space returns the data colour space of the profile.
func (p *Profile) Space() Space {
	return p.space
}

// PCS returns the profile connection space, either [SpaceXYZ] or [SpaceLab].
func (p *Profile) PCS() Space {
	return p.pcs
}

// RenderingIntent returns the rendering intent recorded in the header.
func (p *Profile) RenderingIntent() uint32 {
	return p.intent
}

// Channels returns the number of channels of the data colour space,
// or 0 if the colour space is not supported.
func (p *Profile) Channels() int {
	return p.channels
}

// Fingerprint returns a hash of the profile definition.  Two profiles are
// equal if and only if their fingerprints are equal.
func (p *Profile) Fingerprint() [32]byte {
	return p.fingerprint
}

// Equal reports whether p and other have the same definition.
// Profile names alone are never used to decide equality.
func (p *Profile) Equal(other *Profile) bool {
	if p == nil || other == nil {
		return p == other
	}
	return p.fingerprint == other.fingerprint
}

// Tags returns the tags present in the profile, sorted by signature.
func (p *Profile) Tags() []Signature {
	res := make([]Signature, 0, len(p.tags))
	for tag := range p.tags {
		res = append(res, tag)
	}
	slices.Sort(res)
	return res
}

// Has reports whether the profile contains the given tag.
func (p *Profile) Has(tag Signature) bool {
	_, ok := p.tags[tag]
	return ok
}

// TagData returns the raw data of a tag.
func (p *Profile) TagData(tag Signature) ([]byte, bool) {
	data, ok := p.tags[tag]
	return data, ok
}

func (p *Profile) String() string {
	return fmt.Sprintf("%s (ICC %s, %s, %s→%s)", p.name, p.version, p.class, p.space, p.pcs)
}
