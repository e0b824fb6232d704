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

// Package metadata builds the XMP packets stored in master images.
//
// A packet records where a master came from: the source file and format,
// the colour profile the source was interpreted in and how it was
// obtained, and the target profile of the master.
package metadata

import (
	"bytes"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"seehuhn.de/go/xmp"
)

// Namespace is the XMP namespace for master provenance.
const Namespace = "https://seehuhn.de/go/awib/ns/1.0/"

// Master is the XMP model for master provenance.
type Master struct {
	_               xmp.Namespace `xmp:"https://seehuhn.de/go/awib/ns/1.0/"`
	_               xmp.Prefix    `xmp:"awib"`
	SourceFile      xmp.Text      `xmp:"sourceFile"`
	SourceFormat    xmp.Text      `xmp:"sourceFormat"`
	SourceMode      xmp.Text      `xmp:"sourceMode"`
	SourceProfile   xmp.Text      `xmp:"sourceProfile"`
	ProfileOrigin   xmp.Text      `xmp:"profileOrigin"`
	TargetProfile   xmp.Text      `xmp:"targetProfile"`
	RenderingIntent xmp.Text      `xmp:"renderingIntent"`
	Conversion      xmp.Text      `xmp:"conversion"`
}

// MediaManagement holds the identifiers from the XMP Media Management
// namespace.
type MediaManagement struct {
	_          xmp.Namespace `xmp:"http://ns.adobe.com/xap/1.0/mm/"`
	_          xmp.Prefix    `xmp:"xmpMM"`
	DocumentID xmp.Text
	InstanceID xmp.Text
}

// Basic holds properties from the XMP basic namespace.
type Basic struct {
	_           xmp.Namespace `xmp:"http://ns.adobe.com/xap/1.0/"`
	_           xmp.Prefix    `xmp:"xmp"`
	CreatorTool xmp.Text
	CreateDate  xmp.Date
}

// Provenance describes how a master image was made.
type Provenance struct {
	// Title is stored as dc:title.
	Title string

	// DocumentID and InstanceID are "uuid:" URNs.  Empty values are
	// filled in by [Provenance.Encode].
	DocumentID string
	InstanceID string

	CreatorTool string
	Created     time.Time

	SourceFile   string
	SourceFormat string
	SourceMode   string

	// SourceProfile is the name of the profile the source was
	// interpreted in, and ProfileOrigin tells whether it was embedded in
	// the source or assigned as a fallback.
	SourceProfile string
	ProfileOrigin string

	TargetProfile   string
	RenderingIntent string

	// Conversion describes the colour conversion, for example
	// "identity" or "matrix/TRC".
	Conversion string
}

// NewID returns a new "uuid:" URN for use as a document or instance ID.
func NewID() string {
	return "uuid:" + uuid.NewString()
}

// Packet converts p into an XMP packet.
func (p *Provenance) Packet() (*xmp.Packet, error) {
	packet := xmp.NewPacket()

	dc := &xmp.DublinCore{}
	if p.Title != "" {
		dc.Title.Set(language.Und, p.Title)
	}
	dc.Description.Set(language.Und, "archival master image with standardized colour profile")

	mm := &MediaManagement{
		DocumentID: xmp.NewText(p.DocumentID),
		InstanceID: xmp.NewText(p.InstanceID),
	}
	basic := &Basic{
		CreatorTool: xmp.NewText(p.CreatorTool),
	}
	if !p.Created.IsZero() {
		basic.CreateDate = xmp.NewDate(p.Created)
	}
	master := &Master{
		SourceFile:      xmp.NewText(p.SourceFile),
		SourceFormat:    xmp.NewText(p.SourceFormat),
		SourceMode:      xmp.NewText(p.SourceMode),
		SourceProfile:   xmp.NewText(p.SourceProfile),
		ProfileOrigin:   xmp.NewText(p.ProfileOrigin),
		TargetProfile:   xmp.NewText(p.TargetProfile),
		RenderingIntent: xmp.NewText(p.RenderingIntent),
		Conversion:      xmp.NewText(p.Conversion),
	}

	err := packet.Set(dc, mm, basic, master)
	if err != nil {
		return nil, err
	}
	return packet, nil
}

// Encode serializes p as an XMP packet.  Missing document and instance
// IDs are generated.
func (p *Provenance) Encode() ([]byte, error) {
	if p.DocumentID == "" {
		p.DocumentID = NewID()
	}
	if p.InstanceID == "" {
		p.InstanceID = NewID()
	}
	packet, err := p.Packet()
	if err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	err = packet.Write(buf, &xmp.PacketOptions{Pretty: true})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ErrNoProvenance is returned by [Decode] if a packet does not contain
// master provenance.
var ErrNoProvenance = errors.New("no master provenance in XMP packet")

// Decode reads the provenance from a serialized XMP packet.
func Decode(data []byte) (*Provenance, error) {
	packet, err := xmp.Read(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	master := &Master{}
	packet.Get(master)
	if master.TargetProfile.V == "" {
		return nil, ErrNoProvenance
	}
	mm := &MediaManagement{}
	packet.Get(mm)
	basic := &Basic{}
	packet.Get(basic)

	p := &Provenance{
		DocumentID:      mm.DocumentID.V,
		InstanceID:      mm.InstanceID.V,
		CreatorTool:     basic.CreatorTool.V,
		Created:         basic.CreateDate.V,
		SourceFile:      master.SourceFile.V,
		SourceFormat:    master.SourceFormat.V,
		SourceMode:      master.SourceMode.V,
		SourceProfile:   master.SourceProfile.V,
		ProfileOrigin:   master.ProfileOrigin.V,
		TargetProfile:   master.TargetProfile.V,
		RenderingIntent: master.RenderingIntent.V,
		Conversion:      master.Conversion.V,
	}

	dc := &xmp.DublinCore{}
	packet.Get(dc)
	if title, ok := titleOf(dc); ok {
		p.Title = title
	}
	return p, nil
}

// Equal reports whether two serialized packets hold the same metadata.
func Equal(a, b []byte) bool {
	pa, err := xmp.Read(bytes.NewReader(a))
	if err != nil {
		return false
	}
	pb, err := xmp.Read(bytes.NewReader(b))
	if err != nil {
		return false
	}
	return pa.Equal(pb)
}

func titleOf(dc *xmp.DublinCore) (string, bool) {
	l, ok := any(dc.Title).(xmp.Localized)
	if !ok {
		return "", false
	}
	if t, ok := any(l.Default).(xmp.Text); ok && t.V != "" {
		return t.V, true
	}
	for _, v := range l.V {
		if t, ok := any(v).(xmp.Text); ok && t.V != "" {
			return t.V, true
		}
	}
	return "", false
}
