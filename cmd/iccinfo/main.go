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

// Iccinfo prints information about ICC colour profiles.
//
// Usage:
//
//	iccinfo [-tags] file...
//	iccinfo -builtin
//
// The files can be ICC profiles or images with an embedded profile.
package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"seehuhn.de/go/awib/profile"
	"seehuhn.de/go/awib/raster"
	"seehuhn.de/go/awib/transform"
)

func main() {
	builtin := flag.Bool("builtin", false, "list the built-in profiles")
	showTags := flag.Bool("tags", false, "list the tags of each profile")
	target := flag.String("target", profile.SRGB4, "check transforms to this built-in `profile`")
	flag.Parse()

	if !*builtin && flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: iccinfo [flags] file...")
		flag.PrintDefaults()
		os.Exit(1)
	}

	store := profile.Builtin()
	dst, err := store.Load(*target)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR: "+err.Error())
		os.Exit(1)
	}

	failed := false
	if *builtin {
		for _, name := range store.Names() {
			p, _ := store.Load(name)
			show(os.Stdout, name, p, dst, *showTags)
		}
	}
	for _, name := range flag.Args() {
		p, err := readProfile(name)
		if err != nil {
			fmt.Fprintln(os.Stderr, "ERROR: "+err.Error())
			failed = true
			continue
		}
		show(os.Stdout, name, p, dst, *showTags)
	}
	if failed {
		os.Exit(1)
	}
}

var errNoProfile = errors.New("no embedded ICC profile")

// readProfile reads an ICC profile file, or the profile embedded in an
// image file.
func readProfile(name string) (*profile.Profile, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	if ext := strings.ToLower(filepath.Ext(name)); ext == ".icc" || ext == ".icm" {
		p, err := profile.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return p, nil
	}

	im, err := raster.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if len(im.ICC) == 0 {
		return nil, fmt.Errorf("%s: %w", name, errNoProfile)
	}
	p, err := profile.Decode(im.ICC)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return p, nil
}

func model(p *profile.Profile) string {
	switch {
	case p.Has(profile.TagAToB0):
		return "lookup table"
	case p.Has(profile.TagRedColorant) && p.Has(profile.TagRedTRC):
		return "matrix/TRC"
	case p.Has(profile.TagGrayTRC):
		return "gray TRC"
	default:
		return "unknown"
	}
}

func show(w io.Writer, label string, p, dst *profile.Profile, showTags bool) {
	field := func(key, value string) {
		fmt.Fprintf(w, "  %-13s %s\n", key+":", value)
	}

	fmt.Fprintf(w, "%s:\n", label)
	field("name", p.Name())
	field("version", p.Version().String())
	field("class", p.Class().String())
	field("colour space", p.Space().String()+" → "+p.PCS().String())
	field("model", model(p))
	field("size", humanize.Bytes(uint64(len(p.Bytes()))))
	field("fingerprint", fmt.Sprintf("%x", p.Fingerprint()))
	if cprt, err := p.Text(profile.TagCopyright); err == nil && cprt != "" {
		field("copyright", cprt)
	}

	conv := "to " + dst.Name()
	if p.Equal(dst) {
		field(conv, "identical")
	} else if t, err := transform.New(p, dst); err != nil {
		field(conv, "not supported ("+err.Error()+")")
	} else if t.Shaper() {
		field(conv, "matrix/TRC shaper")
	} else {
		field(conv, "general transform")
	}

	if showTags {
		fmt.Fprintln(w, "  tags:")
		for _, tag := range p.Tags() {
			data, _ := p.TagData(tag)
			typ := "????"
			if len(data) >= 4 {
				typ = string(data[:4])
			}
			fmt.Fprintf(w, "    %s  %-4s  %6d bytes\n", tag, typ, len(data))
		}
	}
}
