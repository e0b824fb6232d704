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
	"bytes"
	"errors"
	"image"
	"image/color"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"seehuhn.de/go/awib/internal/imagetest"
	"seehuhn.de/go/awib/profile"
	"seehuhn.de/go/awib/raster"
	"seehuhn.de/go/awib/transform"
)

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func load(t *testing.T, name string) *profile.Profile {
	t.Helper()
	p, err := profile.Builtin().Load(name)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func events(m *Maker) []string {
	var res []string
	for _, e := range m.History() {
		res = append(res, e.Event)
	}
	return res
}

func TestTargetAlreadyApplied(t *testing.T) {
	srgb4 := load(t, profile.SRGB4)
	path := writeTemp(t, "in.png", imagetest.PNG(imagetest.Gradient(40, 30), srgb4.Bytes()))

	m, err := New(PathSource(path), nil)
	if err != nil {
		t.Fatal(err)
	}
	master, err := m.Make()
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"init.file", "mode.kept", "profile.embedded", "profile.unchanged"}
	if diff := cmp.Diff(want, events(m)); diff != "" {
		t.Errorf("history (-want +got):\n%s", diff)
	}
	if !m.Conversion().Identity {
		t.Error("transform built for identical profiles")
	}
	if master != m.Original().Pixels {
		t.Error("RGB image was copied for identity conversion")
	}
	if got, want := raster.StatsOf(master), raster.StatsOf(m.Original().Pixels); got != want {
		t.Errorf("pixels changed: %s, want %s", got, want)
	}
}

func TestFallback(t *testing.T) {
	m, err := New(MemorySource(raster.New(imagetest.Gradient(16, 16))), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Make(); err != nil {
		t.Fatal(err)
	}

	p, outcome := m.SourceProfile()
	if outcome != FallbackAssigned {
		t.Errorf("outcome %s, want fallback", outcome)
	}
	if !p.Equal(load(t, profile.SRGB2)) {
		t.Errorf("fallback profile is %q", p.Name())
	}

	var found bool
	for _, e := range m.History() {
		if e.Event != "profile.fallback" {
			continue
		}
		found = true
		if !strings.Contains(e.Msg, "does not have an internal ICC color profile") ||
			!strings.Contains(e.Msg, p.Name()) {
			t.Errorf("unexpected message %q", e.Msg)
		}
		if e.Level != slog.LevelWarn {
			t.Errorf("fallback logged at level %s", e.Level)
		}
	}
	if !found {
		t.Error("no history entry for the fallback profile")
	}
	if m.Conversion().Identity {
		t.Error("srgb2 fallback should be converted to srgb4")
	}
}

func TestPaletteImage(t *testing.T) {
	pal := imagetest.Paletted(30, 20)
	path := writeTemp(t, "in.gif", imagetest.GIF(pal, nil))

	m, err := New(PathSource(path), nil)
	if err != nil {
		t.Fatal(err)
	}
	if m.Original().Mode() != raster.ModeP || m.Original().Format != "GIF" {
		t.Fatalf("source is %s/%s", m.Original().Format, m.Original().Mode())
	}
	master, err := m.Make()
	if err != nil {
		t.Fatal(err)
	}

	if mode := raster.ModeOf(master); mode != raster.ModeRGB {
		t.Errorf("master has mode %s", mode)
	}
	if _, ok := master.(*image.Paletted); ok {
		t.Error("master is a palette image")
	}
	src, outcome := m.SourceProfile()
	if outcome != FallbackAssigned || !src.Equal(load(t, profile.SRGB2)) {
		t.Errorf("source profile %q (%s)", src.Name(), outcome)
	}
	if !m.Target().Equal(load(t, profile.SRGB4)) {
		t.Errorf("target %q", m.Target().Name())
	}

	ev := events(m)
	want := []string{"init.file", "mode.converted", "profile.fallback", "profile.converted"}
	if diff := cmp.Diff(want, ev); diff != "" {
		t.Errorf("history (-want +got):\n%s", diff)
	}
	for _, e := range m.History() {
		if e.Event == "mode.converted" && e.Msg != "Original color mode was P so converted to RGB." {
			t.Errorf("message %q", e.Msg)
		}
	}
}

func TestMakeIdempotent(t *testing.T) {
	m, err := New(MemorySource(raster.New(imagetest.Paletted(10, 10))), nil)
	if err != nil {
		t.Fatal(err)
	}
	first, err := m.Make()
	if err != nil {
		t.Fatal(err)
	}
	n := len(m.History())
	second, err := m.Make()
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("second call returned a different master")
	}
	if len(m.History()) != n {
		t.Error("second call added history entries")
	}
	if m.State() != ProfileStandardized {
		t.Errorf("state %s", m.State())
	}
}

func TestSaveAndVerify(t *testing.T) {
	adobe := imagetest.AdobeRGB()
	in := raster.New(imagetest.Gradient(64, 48))
	in.ICC = adobe.Bytes()

	dest := filepath.Join(t.TempDir(), "master.tif")
	m, err := New(MemorySource(in), &Options{Destination: dest})
	if err != nil {
		t.Fatal(err)
	}
	master, err := m.Make()
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Save(""); err != nil {
		t.Fatal(err)
	}
	if m.State() != Saved {
		t.Errorf("state %s after saving", m.State())
	}

	want := raster.StatsOf(master)
	r, err := Verify(dest, want, m.Target())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(r.Info.ICC, m.Target().Bytes()) {
		t.Error("embedded profile differs from target profile bytes")
	}
	if r.Provenance == nil {
		t.Fatal("no provenance")
	}
	if r.Provenance.SourceProfile != "Adobe RGB (1998)" || r.Provenance.ProfileOrigin != "embedded" {
		t.Errorf("provenance %+v", r.Provenance)
	}
	if r.Provenance.SourceFile != "" || r.Provenance.Title != "" {
		t.Errorf("in-memory source recorded as file %q, title %q",
			r.Provenance.SourceFile, r.Provenance.Title)
	}

	other := want
	other[1].Sum++
	if _, err := Verify(dest, other, m.Target()); !errors.Is(err, ErrMismatch) {
		t.Errorf("changed statistics: got %v", err)
	}
	if _, err := Verify(dest, want, load(t, profile.ProPhoto)); !errors.Is(err, ErrMismatch) {
		t.Errorf("wrong profile: got %v", err)
	}
}

func TestAdobeToProPhoto(t *testing.T) {
	img := imagetest.Uniform(32, 32, color.NRGBA{R: 200, G: 120, B: 40, A: 255})
	path := writeTemp(t, "adobe.jpg", imagetest.JPEG(img, imagetest.AdobeRGB().Bytes()))

	m, err := New(PathSource(path), &Options{Target: profile.ProPhoto})
	if err != nil {
		t.Fatal(err)
	}
	master, err := m.Make()
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"init.file", "mode.converted", "profile.embedded", "profile.converted"}
	if diff := cmp.Diff(want, events(m)); diff != "" {
		t.Errorf("history (-want +got):\n%s", diff)
	}
	if src, outcome := m.SourceProfile(); outcome != Embedded || src.Name() != "Adobe RGB (1998)" {
		t.Errorf("source profile %q (%s)", src.Name(), outcome)
	}

	// ProPhoto has a larger gamut, so the colour moves towards the gray
	// axis but keeps its hue order.
	c := color.RGBAModel.Convert(master.At(16, 16)).(color.RGBA)
	if !(c.R > c.G && c.G > c.B) {
		t.Errorf("hue changed: %v", c)
	}

	dest := filepath.Join(t.TempDir(), "adobe.tif")
	if err := m.Save(dest); err != nil {
		t.Fatal(err)
	}
	r, err := Verify(dest, raster.StatsOf(master), load(t, profile.ProPhoto))
	if err != nil {
		t.Fatal(err)
	}
	if r.Profile.Name() != "ProPhoto RGB" {
		t.Errorf("embedded profile %q", r.Profile.Name())
	}
}

func TestGraySource(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range gray.Pix {
		gray.Pix[i] = uint8(4 * i)
	}
	in := raster.New(gray)
	in.ICC = imagetest.Gray22().Bytes()

	m, err := New(MemorySource(in), nil)
	if err != nil {
		t.Fatal(err)
	}
	master, err := m.Make()
	if err != nil {
		t.Fatal(err)
	}
	if m.Conversion().Mode != raster.ModeL {
		t.Errorf("transform applied to %s image", m.Conversion().Mode)
	}
	rgb := raster.ToRGB(master)
	for y := range 8 {
		for x := range 8 {
			c := rgb.RGBAt(x, y)
			if max(c.R, c.G, c.B)-min(c.R, c.G, c.B) > 1 {
				t.Fatalf("pixel (%d,%d) is not neutral: %v", x, y, c)
			}
		}
	}
}

func TestSaveErrors(t *testing.T) {
	m, err := New(MemorySource(raster.New(imagetest.Gradient(4, 4))), nil)
	if err != nil {
		t.Fatal(err)
	}

	err = m.Save("")
	var notReady *NotReadyError
	if !errors.As(err, &notReady) {
		t.Fatalf("got %v, want NotReadyError", err)
	}
	if notReady.State != Initialized {
		t.Errorf("state %s", notReady.State)
	}

	master, err := m.Make()
	if err != nil {
		t.Fatal(err)
	}
	before := raster.StatsOf(master)
	histLen := len(m.History())

	dir := t.TempDir()
	t.Chdir(dir)
	err = m.Save("")
	var noDest *NoDestinationError
	if !errors.As(err, &noDest) {
		t.Errorf("got %v, want NoDestinationError", err)
	}
	if m.State() != ProfileStandardized {
		t.Errorf("failed save changed the state to %s", m.State())
	}
	if m.Master() != master {
		t.Error("failed save replaced the master")
	}
	if diff := cmp.Diff(before, raster.StatsOf(m.Master())); diff != "" {
		t.Errorf("failed save changed the master (-before +after):\n%s", diff)
	}
	if len(m.History()) != histLen {
		t.Error("failed save was recorded in the history")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		t.Errorf("failed save left %q behind", e.Name())
	}
}

func TestSaveOverwrites(t *testing.T) {
	dest := writeTemp(t, "old.tif", []byte("previous contents"))
	m, err := New(MemorySource(raster.New(imagetest.Gradient(5, 5))), &Options{Destination: dest})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Make(); err != nil {
		t.Fatal(err)
	}
	if err := m.Save(""); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("II*\x00")) {
		t.Error("destination was not replaced by a TIFF file")
	}
	entries, err := os.ReadDir(filepath.Dir(dest))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %d entries", len(entries))
	}
}

func TestSourceErrors(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.png")
	_, err := New(PathSource(missing), nil)
	var notFound *SourceNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("got %v, want SourceNotFoundError", err)
	}
	if notFound.Path != missing || !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("unexpected error %v", err)
	}

	garbage := writeTemp(t, "garbage.jpg", []byte("this is not an image"))
	if _, err := New(PathSource(garbage), nil); !errors.As(err, &notFound) {
		t.Errorf("undecodable file: got %v", err)
	}

	if _, err := New(MemorySource(nil), nil); !errors.As(err, &notFound) {
		t.Errorf("nil image: got %v", err)
	}
}

func TestMalformedEmbeddedProfile(t *testing.T) {
	in := raster.New(imagetest.Gradient(4, 4))
	in.ICC = []byte("definitely not an ICC profile")
	m, err := New(MemorySource(in), nil)
	if err != nil {
		t.Fatal(err)
	}
	_, err = m.Make()
	var malformed *profile.MalformedProfileError
	if !errors.As(err, &malformed) {
		t.Fatalf("got %v, want MalformedProfileError", err)
	}
	if m.Master() != nil || m.State() != ModeNormalized {
		t.Errorf("master made despite malformed profile, state %s", m.State())
	}
	if n := len(m.History()); n == 0 || m.History()[n-1].Event == "profile.fallback" {
		t.Error("fallback used for a malformed profile")
	}
}

func TestMissingProfile(t *testing.T) {
	_, err := New(MemorySource(raster.New(imagetest.Gradient(4, 4))), &Options{Target: "AdobeRGB1998"})
	var e *profile.ProfileNotFoundError
	if !errors.As(err, &e) {
		t.Errorf("got %v, want ProfileNotFoundError", err)
	}
}

func TestHistoryLogging(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ticks := []time.Duration{5, 3, 7, 1, 9, 2}
	n := 0
	clock := func() time.Time {
		now := base.Add(ticks[n%len(ticks)] * time.Second)
		n++
		return now
	}

	m, err := New(MemorySource(raster.New(imagetest.Paletted(4, 4))), &Options{
		Logger:    logger,
		Threshold: slog.LevelWarn,
		Clock:     clock,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Make(); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if !strings.Contains(out, "event=profile.fallback") {
		t.Errorf("fallback not logged: %q", out)
	}
	if strings.Contains(out, "mode.converted") {
		t.Errorf("entry below threshold logged: %q", out)
	}

	h := m.History()
	if len(h) != 4 {
		t.Fatalf("%d history entries", len(h))
	}
	for i := 1; i < len(h); i++ {
		if h[i].Time.Before(h[i-1].Time) {
			t.Errorf("entry %d is older than its predecessor", i)
		}
	}
}

func TestSharedEngine(t *testing.T) {
	engine := transform.NewEngine(nil)
	var results []*transform.Result
	for range 2 {
		m, err := New(MemorySource(raster.New(imagetest.Gradient(8, 8))), &Options{Engine: engine})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := m.Make(); err != nil {
			t.Fatal(err)
		}
		results = append(results, m.Conversion())
	}
	if results[0].Cached || !results[1].Cached {
		t.Errorf("cached: %t, %t", results[0].Cached, results[1].Cached)
	}
}
