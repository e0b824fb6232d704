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

package history

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestMonotonicTime(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ticks := []time.Time{
		base,
		base.Add(time.Second),
		base.Add(-time.Hour), // clock jumps backwards
		base.Add(2 * time.Second),
	}
	i := 0
	h := New(&Options{Clock: func() time.Time {
		now := ticks[i]
		i++
		return now
	}})
	for range ticks {
		h.Info("tick", "tick")
	}

	entries := h.Entries()
	if len(entries) != len(ticks) {
		t.Fatalf("got %d entries, want %d", len(entries), len(ticks))
	}
	for k := 1; k < len(entries); k++ {
		if entries[k].Time.Before(entries[k-1].Time) {
			t.Errorf("entry %d is older than entry %d", k, k-1)
		}
	}
	if !entries[2].Time.Equal(base.Add(time.Second)) {
		t.Errorf("backwards clock not clamped: %v", entries[2].Time)
	}
}

func TestThreshold(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := New(&Options{Logger: logger, Threshold: slog.LevelInfo})

	h.Debug("quiet", "not shown")
	h.Info("loud", "shown", slog.String("profile", "ProPhoto"))
	h.Warn("louder", "also shown")

	if h.Len() != 3 {
		t.Errorf("got %d entries, want 3", h.Len())
	}
	out := buf.String()
	if strings.Contains(out, "not shown") {
		t.Errorf("debug entry was logged:\n%s", out)
	}
	for _, want := range []string{"msg=shown", "event=loud", "profile=ProPhoto", "msg=\"also shown\""} {
		if !strings.Contains(out, want) {
			t.Errorf("log output lacks %q:\n%s", want, out)
		}
	}
}

func TestEntriesAreCopies(t *testing.T) {
	h := New(nil)
	h.Info("a", "first", slog.Int("n", 1))

	got := h.Entries()
	got[0].Msg = "changed"
	got[0].Attrs[0] = slog.Int("n", 2)

	again := h.Entries()
	if again[0].Msg != "first" {
		t.Errorf("message modified through copy: %q", again[0].Msg)
	}
	v, ok := again[0].Attr("n")
	if !ok || v.Int64() != 1 {
		t.Errorf("attribute modified through copy: %v", v)
	}
}

func TestCount(t *testing.T) {
	h := New(nil)
	h.Info("mode.kept", "x")
	h.Info("profile.embedded", "y")
	h.Info("profile.converted", "z")
	h.Info("profile.embedded", "again")

	got := map[string]int{
		"mode.kept":        h.Count("mode.kept"),
		"profile.embedded": h.Count("profile.embedded"),
		"missing":          h.Count("missing"),
	}
	want := map[string]int{
		"mode.kept":        1,
		"profile.embedded": 2,
		"missing":          0,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("counts (-want +got):\n%s", diff)
	}
}

func TestNilHistorian(t *testing.T) {
	var h *Historian
	if h.Entries() != nil || h.Len() != 0 || h.Count("x") != 0 {
		t.Error("nil historian should be empty")
	}
}
