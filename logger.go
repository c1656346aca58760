// Copyright © 2024 Jeff Berkowitz (pdxjjb@gmail.com)
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.

package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// LogHandler is a slog.Handler writing structured diagnostic lines to an
// optional destination and, for warnings and above, to stderr. It carries
// the hart loop's fatal traps, double faults, and device wiring errors —
// separate from the per-instruction Tracer, which runs far more often and
// writes a richer format (SPEC_FULL §4.11).
type LogHandler struct {
	out io.Writer
	h   slog.Handler
	mu  *sync.Mutex
}

func (l *LogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return l.h.Enabled(ctx, level)
}

func (l *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &LogHandler{out: l.out, h: l.h.WithAttrs(attrs), mu: l.mu}
}

func (l *LogHandler) WithGroup(name string) slog.Handler {
	return &LogHandler{out: l.out, h: l.h.WithGroup(name), mu: l.mu}
}

func (l *LogHandler) Handle(ctx context.Context, r slog.Record) error {
	level := r.Level.String() + ":"
	ts := r.Time.Format("2006/01/02 15:04:05")
	strs := []string{ts, level, r.Message}
	r.Attrs(func(a slog.Attr) bool {
		strs = append(strs, a.Key+"="+a.Value.String())
		return true
	})
	line := []byte(strings.Join(strs, " ") + "\n")

	l.mu.Lock()
	defer l.mu.Unlock()

	var err error
	if l.out != nil {
		_, err = l.out.Write(line)
	}
	if r.Level >= slog.LevelWarn {
		_, err = os.Stderr.Write(line)
	}
	return err
}

// NewLogHandler wraps out (nil is permitted, for stderr-only logging) in
// a LogHandler built on a text handler at the given options.
func NewLogHandler(out io.Writer, opts *slog.HandlerOptions) *LogHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	dest := out
	if dest == nil {
		dest = io.Discard
	}
	return &LogHandler{
		out: out,
		h:   slog.NewTextHandler(dest, opts),
		mu:  &sync.Mutex{},
	}
}
