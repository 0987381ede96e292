// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package logx builds console loggers for tracing channel lifecycles.
package logx

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// New returns a slog.Logger that writes human-readable lines to w.
//
// Colour is enabled only when w is a terminal. On Windows the terminal
// writer is wrapped so ANSI sequences are translated.
func New(w io.Writer, level slog.Leveler) *slog.Logger {
	noColor := true
	if f, ok := w.(*os.File); ok && IsTerminal(f) {
		w = colorable.NewColorable(f)
		noColor = false
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.StampMicro,
		NoColor:    noColor,
	}))
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Verbose returns a debug-level logger on stderr when enabled is set,
// and a logger that discards everything otherwise.
func Verbose(enabled bool) *slog.Logger {
	if !enabled {
		return slog.New(slog.DiscardHandler)
	}
	return New(os.Stderr, slog.LevelDebug)
}
