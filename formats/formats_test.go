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

package formats

import (
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLookup(t *testing.T) {
	c, ok := Lookup("jpeg")
	if !ok {
		t.Fatal("JPEG not found")
	}
	if c.MimeType != "image/jpeg" || c.Extension() != "jpg" || !c.Decodable {
		t.Errorf("unexpected codec %+v", c)
	}

	c, ok = Lookup("TIFF")
	if !ok || c.Extension() != "tif" {
		t.Errorf("TIFF: %+v", c)
	}

	if _, ok := Lookup("DOCX"); ok {
		t.Error("DOCX is not an image format")
	}
}

func TestForExtension(t *testing.T) {
	var names []string
	for _, c := range ForExtension(".pbm") {
		names = append(names, c.Name)
	}
	if diff := cmp.Diff([]string{"PBM", "PBMRAW"}, names); diff != "" {
		t.Errorf("pbm codecs (-want +got):\n%s", diff)
	}
	if got := ForExtension("NEF"); len(got) != 1 || got[0].Name != "RAW" {
		t.Errorf("NEF: %v", got)
	}
}

func TestValidExtensions(t *testing.T) {
	ext := ValidExtensions()
	if !slices.IsSorted(ext) {
		t.Error("extensions not sorted")
	}
	if len(slices.Compact(slices.Clone(ext))) != len(ext) {
		t.Error("duplicate extensions")
	}
	for _, e := range []string{"bmp", "jpe", "tiff", "3fr", "xpm"} {
		if _, found := slices.BinarySearch(ext, e); !found {
			t.Errorf("missing extension %q", e)
		}
	}
}

func TestIsValidFilename(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"photo.jpg", true},
		{"/archive/scans/IMG_0001.JPG", true},
		{"plan.tif", true},
		{"notes.txt", false},
		{"jpg", false},
		{".hidden", false},
		{"dir.png/readme", false},
		{"scan.cr2", true},
	}
	for _, c := range cases {
		if got := IsValidFilename(c.name); got != c.want {
			t.Errorf("IsValidFilename(%q) = %t", c.name, got)
		}
	}
}

func TestIsDecodable(t *testing.T) {
	for name, want := range map[string]bool{
		"a.png":  true,
		"a.webp": true,
		"a.bmp":  true,
		"a.psd":  false,
		"a.nef":  false,
	} {
		if got := IsDecodable(name); got != want {
			t.Errorf("IsDecodable(%q) = %t", name, got)
		}
	}
}
