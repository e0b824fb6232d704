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

// Package formats lists the image file formats known to the archive.
//
// The registry is used to pick out image files from directories and to
// describe codecs to the user.  Only some of the listed formats can be
// decoded by this program; see [Codec.Decodable].
package formats

import (
	"path/filepath"
	"slices"
	"strings"
)

// Codec describes an image file format.
type Codec struct {
	// Name is the upper case codec name, for example "JPEG".
	Name string

	MimeType    string
	Description string

	// Write tells whether the format can be written by the archive tools.
	Write bool

	// Extensions lists the file name extensions, without the leading dot.
	Extensions []string

	// WriteExtension is the extension used for new files.  If this is
	// empty, the first element of Extensions is used.
	WriteExtension string

	// Decodable tells whether this program can read images in this
	// format.
	Decodable bool
}

// Extension returns the file name extension used for new files.
func (c *Codec) Extension() string {
	if c.WriteExtension != "" {
		return c.WriteExtension
	}
	return c.Extensions[0]
}

var codecs = []*Codec{
	{Name: "BMP", MimeType: "image/bmp", Description: "Windows or OS/2 Bitmap",
		Write: true, Extensions: []string{"bmp"}, Decodable: true},
	{Name: "EXR", MimeType: "image/x-exr", Description: "ILM OpenEXR",
		Write: true, Extensions: []string{"exr"}},
	{Name: "GIF", MimeType: "image/gif", Description: "Graphics Interchange Format",
		Write: true, Extensions: []string{"gif"}, Decodable: true},
	{Name: "HDR", MimeType: "image/vnd.radiance", Description: "High Dynamic Range Image",
		Write: true, Extensions: []string{"hdr"}},
	{Name: "ICO", MimeType: "image/vnd.microsoft.icon", Description: "Windows Icon",
		Write: true, Extensions: []string{"ico"}},
	{Name: "IFF", MimeType: "image/x-iff", Description: "IFF Interleaved Bitmap",
		Extensions: []string{"iff", "lbm"}, WriteExtension: "iff"},
	{Name: "J2K", MimeType: "image/j2k", Description: "JPEG-2000 codestream",
		Write: true, Extensions: []string{"j2k", "j2c"}, WriteExtension: "j2k"},
	{Name: "JNG", MimeType: "image/x-mng", Description: "JPEG Network Graphics",
		Write: true, Extensions: []string{"jng"}},
	{Name: "JP2", MimeType: "image/jp2", Description: "JPEG-2000 File Format",
		Write: true, Extensions: []string{"jp2"}},
	{Name: "JPEG", MimeType: "image/jpeg", Description: "JPEG - JFIF Compliant",
		Write: true, Extensions: []string{"jpg", "jif", "jpeg", "jpe"}, WriteExtension: "jpg",
		Decodable: true},
	{Name: "KOALA", MimeType: "image/x-koala", Description: "C64 Koala Graphics",
		Extensions: []string{"koa"}},
	{Name: "PBM", MimeType: "image/freeimage-pnm", Description: "Portable Bitmap (ASCII)",
		Write: true, Extensions: []string{"pbm"}},
	{Name: "PBMRAW", MimeType: "image/freeimage-pnm", Description: "Portable Bitmap (RAW)",
		Write: true, Extensions: []string{"pbm"}},
	{Name: "PCD", MimeType: "image/x-photo-cd", Description: "Kodak PhotoCD",
		Extensions: []string{"pcd"}},
	{Name: "PCX", MimeType: "image/x-pcx", Description: "Zsoft Paintbrush",
		Extensions: []string{"pcx"}},
	{Name: "PFM", MimeType: "image/x-portable-floatmap", Description: "Portable floatmap",
		Write: true, Extensions: []string{"pfm"}},
	{Name: "PGM", MimeType: "image/freeimage-pnm", Description: "Portable Greymap",
		Write: true, Extensions: []string{"pgm"}},
	{Name: "PICT", MimeType: "image/x-pict", Description: "Macintosh PICT",
		Extensions: []string{"pct", "pict", "pic"}, WriteExtension: "pct"},
	{Name: "PNG", MimeType: "image/png", Description: "Portable Network Graphics",
		Write: true, Extensions: []string{"png"}, Decodable: true},
	{Name: "PPM", MimeType: "image/freeimage-pnm", Description: "Portable Pixelmap",
		Write: true, Extensions: []string{"ppm"}},
	{Name: "PSD", MimeType: "image/vnd.adobe.photoshop", Description: "Adobe Photoshop",
		Extensions: []string{"psd"}},
	{Name: "RAS", MimeType: "image/x-cmu-raster", Description: "Sun Raster Image",
		Extensions: []string{"ras"}},
	{Name: "RAW", MimeType: "image/x-dcraw", Description: "RAW camera image",
		Extensions: []string{
			"3fr", "arw", "bay", "bmq", "cap", "cine", "cr2", "crw", "cs1",
			"dc2", "dcr", "drf", "dsc", "dng", "erf", "fff", "ia", "iiq",
			"k25", "kc2", "kdc", "mdc", "mef", "mos", "mrw", "nef", "nrw",
			"orf", "pef", "ptx", "pxn", "qtk", "raf", "raw", "rdc", "rw2",
			"rwl", "rwz", "sr2", "srf", "srw", "sti"}},
	{Name: "SGI", MimeType: "image/x-sgi", Description: "SGI Image Format",
		Extensions: []string{"sgi"}},
	{Name: "TARGA", MimeType: "image/x-tga", Description: "Truevision Targa",
		Write: true, Extensions: []string{"tga", "targa"}},
	{Name: "TIFF", MimeType: "image/tiff", Description: "Tagged Image File Format",
		Write: true, Extensions: []string{"tif", "tiff"}, Decodable: true},
	{Name: "WBMP", MimeType: "image/vnd.wap.wbmp", Description: "Wireless Bitmap",
		Write: true, Extensions: []string{"wap", "wbmp", "wbm"}},
	{Name: "WEBP", MimeType: "image/webp", Description: "WebP",
		Extensions: []string{"webp"}, Decodable: true},
	{Name: "XBM", MimeType: "image/x-xbitmap", Description: "X11 Bitmap Format",
		Extensions: []string{"xbm"}},
	{Name: "XPM", MimeType: "image/x-xpixmap", Description: "X11 Pixmap Format",
		Write: true, Extensions: []string{"xpm"}},
}

var (
	byName      = make(map[string]*Codec)
	byExtension = make(map[string][]*Codec)
	extensions  []string
)

func init() {
	for _, c := range codecs {
		byName[c.Name] = c
		for _, ext := range c.Extensions {
			if _, seen := byExtension[ext]; !seen {
				extensions = append(extensions, ext)
			}
			byExtension[ext] = append(byExtension[ext], c)
		}
	}
	slices.Sort(extensions)
}

// All returns all known codecs, sorted by name.
func All() []*Codec {
	return slices.Clone(codecs)
}

// Lookup returns the codec with the given name.  The comparison ignores
// case.
func Lookup(name string) (*Codec, bool) {
	c, ok := byName[strings.ToUpper(name)]
	return c, ok
}

// ForExtension returns the codecs which use the given file name
// extension.  The extension may be given with or without the leading dot.
func ForExtension(ext string) []*Codec {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	return slices.Clone(byExtension[ext])
}

// ValidExtensions returns the sorted list of all known file name
// extensions.
func ValidExtensions() []string {
	return slices.Clone(extensions)
}

// IsValidFilename reports whether the extension of the given file name
// belongs to a known image format.  Extensions are compared without
// regard to case.
func IsValidFilename(name string) bool {
	ext := filepath.Ext(filepath.Base(name))
	if ext == "" {
		return false
	}
	return len(ForExtension(ext)) > 0
}

// IsDecodable reports whether the named file looks like an image which
// this program can read.
func IsDecodable(name string) bool {
	for _, c := range ForExtension(filepath.Ext(name)) {
		if c.Decodable {
			return true
		}
	}
	return false
}
