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

// Package history implements an append-only, timestamped event log.
//
// A [Historian] records every decision taken while an image is processed.
// The record is kept in memory and is always complete; entries at or above
// a configurable threshold are additionally passed on to a [slog.Logger].
package history

import (
	"context"
	"log/slog"
	"slices"
	"time"
)

// Entry is a single, immutable history record.
type Entry struct {
	Time  time.Time
	Level slog.Level

	// Event is a short, machine readable key, for example "profile.fallback".
	Event string

	// Msg is a human readable description.
	Msg string

	Attrs []slog.Attr
}

// Attr returns the value of the attribute with the given key.
func (e Entry) Attr(key string) (slog.Value, bool) {
	for _, a := range e.Attrs {
		if a.Key == key {
			return a.Value, true
		}
	}
	return slog.Value{}, false
}

// Options control the behaviour of a [Historian].
type Options struct {
	// Logger receives entries at or above Threshold.
	// If this is nil, entries are only recorded.
	Logger *slog.Logger

	// Threshold is the minimum level passed on to Logger.
	// The default is [slog.LevelInfo].
	Threshold slog.Leveler

	// Clock returns the current time.  The default is [time.Now].
	Clock func() time.Time
}

// Historian is an append-only event log.
//
// A Historian is owned by a single goroutine and is not safe for
// concurrent use.
type Historian struct {
	logger    *slog.Logger
	threshold slog.Leveler
	clock     func() time.Time

	entries []Entry
}

// New allocates a new Historian.  If opts is nil, default options are used.
func New(opts *Options) *Historian {
	if opts == nil {
		opts = &Options{}
	}
	h := &Historian{
		logger:    opts.Logger,
		threshold: opts.Threshold,
		clock:     opts.Clock,
	}
	if h.logger == nil {
		h.logger = slog.New(nopHandler{})
	}
	if h.threshold == nil {
		h.threshold = slog.LevelInfo
	}
	if h.clock == nil {
		h.clock = time.Now
	}
	return h
}

// Log appends a new entry to the history.
//
// Timestamps never decrease: if the clock goes backwards, the entry is
// stamped with the time of the previous entry.
func (h *Historian) Log(level slog.Level, event, msg string, attrs ...slog.Attr) {
	now := h.clock()
	if n := len(h.entries); n > 0 && now.Before(h.entries[n-1].Time) {
		now = h.entries[n-1].Time
	}

	h.entries = append(h.entries, Entry{
		Time:  now,
		Level: level,
		Event: event,
		Msg:   msg,
		Attrs: slices.Clone(attrs),
	})

	if level < h.threshold.Level() {
		return
	}
	ctx := context.Background()
	if !h.logger.Enabled(ctx, level) {
		return
	}
	all := make([]slog.Attr, 0, len(attrs)+1)
	all = append(all, slog.String("event", event))
	all = append(all, attrs...)
	h.logger.LogAttrs(ctx, level, msg, all...)
}

// Debug appends an entry at level [slog.LevelDebug].
func (h *Historian) Debug(event, msg string, attrs ...slog.Attr) {
	h.Log(slog.LevelDebug, event, msg, attrs...)
}

// Info appends an entry at level [slog.LevelInfo].
func (h *Historian) Info(event, msg string, attrs ...slog.Attr) {
	h.Log(slog.LevelInfo, event, msg, attrs...)
}

// Warn appends an entry at level [slog.LevelWarn].
func (h *Historian) Warn(event, msg string, attrs ...slog.Attr) {
	h.Log(slog.LevelWarn, event, msg, attrs...)
}

// Entries returns a copy of the recorded history, oldest entry first.
func (h *Historian) Entries() []Entry {
	if h == nil {
		return nil
	}
	res := make([]Entry, len(h.entries))
	for i, e := range h.entries {
		e.Attrs = slices.Clone(e.Attrs)
		res[i] = e
	}
	return res
}

// Len returns the number of recorded entries.
func (h *Historian) Len() int {
	if h == nil {
		return 0
	}
	return len(h.entries)
}

// Count returns the number of entries with the given event key.
func (h *Historian) Count(event string) int {
	if h == nil {
		return 0
	}
	n := 0
	for _, e := range h.entries {
		if e.Event == event {
			n++
		}
	}
	return n
}

// nopHandler discards all records.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }
