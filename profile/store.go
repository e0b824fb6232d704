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
	"fmt"
	"io/fs"
	"os"
	"path"
	"slices"
	"strings"
	"sync"

	"seehuhn.de/go/icc"

	"seehuhn.de/go/awib/internal/colconv"
)

// Symbolic names of the reference profiles.
const (
	SRGB2    = "srgb2"
	SRGB4    = "srgb4"
	ProPhoto = "ProPhoto"
)

// Bundle names of the reference profiles.  In a profile directory, these
// are the file names without the ".icc" extension.
const (
	FileSRGB2    = "sRGB_IEC61966-2-1_black_scaled"
	FileSRGB4    = "sRGB_v4_ICC_preference"
	FileProPhoto = "ProPhoto"
)

var aliases = map[string]string{
	SRGB2: FileSRGB2,
	SRGB4: FileSRGB4,
}

// Reference lists the bundle names which every [Store] opened with
// [OpenDir] must provide.
var Reference = []string{FileSRGB2, FileSRGB4, FileProPhoto}

// Store resolves profile names to profiles.
//
// A Store is immutable after construction and is safe for concurrent use.
type Store struct {
	profiles map[string]*Profile
}

// NewStore loads all ".icc" files from the top-level directory of fsys.
// Every profile is parsed exactly once.
func NewStore(fsys fs.FS) (*Store, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}

	s := &Store{profiles: make(map[string]*Profile)}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.EqualFold(path.Ext(name), ".icc") {
			continue
		}
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, err
		}
		p, err := Decode(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		s.profiles[strings.TrimSuffix(name, path.Ext(name))] = p
	}
	return s, nil
}

// OpenDir loads a profile bundle from a directory and checks that the
// reference profiles are present.
func OpenDir(dir string) (*Store, error) {
	s, err := NewStore(os.DirFS(dir))
	if err != nil {
		return nil, err
	}
	if err := s.Require(Reference...); err != nil {
		return nil, err
	}
	return s, nil
}

// Builtin returns the store of profiles compiled into the program.
// Besides the reference profiles, it contains the compact sRGB profiles
// "srgb2-compact" and "srgb4-compact".
//
// The built-in reference profiles are synthesized matrix/TRC profiles.
// The two sRGB versions share primaries and tone curve and do no black
// point scaling, so converting between them leaves colours unchanged.
// Use [OpenDir] with a bundle of ICC-published profiles where the
// published versions are required.
func Builtin() *Store {
	return builtin()
}

var builtin = sync.OnceValue(func() *Store {
	s := &Store{profiles: make(map[string]*Profile)}
	for name, def := range builtinDefinitions() {
		data, err := Encode(def)
		if err != nil {
			panic(fmt.Sprintf("profile %s: %v", name, err))
		}
		p, err := Decode(data)
		if err != nil {
			panic(fmt.Sprintf("profile %s: %v", name, err))
		}
		s.profiles[name] = p
	}

	compact := map[string][]byte{
		"srgb2-compact": icc.SRGBv2Profile,
		"srgb4-compact": icc.SRGBv4Profile,
	}
	for name, data := range compact {
		if p, err := Decode(data); err == nil {
			s.profiles[name] = p
		}
	}
	return s
})

// D65 is the CIE standard illuminant D65, normalized to Y=1.
var D65 = [3]float64{0.9505, 1, 1.089}

func builtinDefinitions() map[string]*Definition {
	sRGB, err := colconv.Primaries(D65, [2]float64{0.64, 0.33}, [2]float64{0.30, 0.60}, [2]float64{0.15, 0.06})
	if err != nil {
		panic(err)
	}
	proPhoto, err := colconv.Primaries(colconv.D50, [2]float64{0.7347, 0.2653}, [2]float64{0.1596, 0.8404}, [2]float64{0.0366, 0.0001})
	if err != nil {
		panic(err)
	}
	chad, err := colconv.Bradford(D65, colconv.D50)
	if err != nil {
		panic(err)
	}

	return map[string]*Definition{
		FileSRGB2: {
			Version:     V2_1,
			Space:       SpaceRGB,
			Description: "sRGB IEC61966-2-1 v2 matrix/TRC, sampled curve",
			Copyright:   "No copyright, use freely",
			Adaptation:  &chad,
			Colorants:   sRGB,
			TRC:         Sample(SRGBCurve, 1024),
		},
		FileSRGB4: {
			Version:     V4_3,
			Space:       SpaceRGB,
			Description: "sRGB IEC61966-2-1 v4 matrix/TRC, parametric curve",
			Copyright:   "No copyright, use freely",
			Adaptation:  &chad,
			Colorants:   sRGB,
			TRC:         SRGBCurve,
		},
		FileProPhoto: {
			Version:     V2_1,
			Space:       SpaceRGB,
			Description: "ProPhoto RGB",
			Copyright:   "No copyright, use freely",
			Colorants:   proPhoto,
			TRC:         Gamma(1.8),
		},
	}
}

// Load returns the profile with the given name.  The name can be one of
// the symbolic names [SRGB2], [SRGB4] and [ProPhoto], or the name of any
// profile in the bundle, with or without the ".icc" extension.
func (s *Store) Load(name string) (*Profile, error) {
	key := strings.TrimSuffix(name, ".icc")
	if target, ok := aliases[key]; ok {
		key = target
	}
	if p, ok := s.profiles[key]; ok {
		return p, nil
	}
	return nil, &ProfileNotFoundError{Name: name, Err: fs.ErrNotExist}
}

// Require checks that all named profiles can be loaded.
func (s *Store) Require(names ...string) error {
	for _, name := range names {
		if _, err := s.Load(name); err != nil {
			return err
		}
	}
	return nil
}

// Names returns the bundle names of all profiles in the store, sorted.
func (s *Store) Names() []string {
	res := make([]string, 0, len(s.profiles))
	for name := range s.profiles {
		res = append(res, name)
	}
	slices.Sort(res)
	return res
}
