// Package obslog wires the per-subsystem loggers used across the core:
// rooms, settlement, leaderboard and transport each get their own named
// slog.Logger from a single backend, the way the teacher's pkg/server
// pulls "SERVER", "TABLE", "GAME" loggers from one logging.LogBackend.
package obslog

import (
	"io"
	"os"

	"github.com/decred/slog"
)

// Backend owns the process-wide log writer and hands out named,
// independently levelled subsystem loggers.
type Backend struct {
	backend *slog.Backend
}

// New creates a Backend writing to w (os.Stdout when w is nil).
func New(w io.Writer) *Backend {
	if w == nil {
		w = os.Stdout
	}
	return &Backend{backend: slog.NewBackend(w)}
}

// Logger returns (creating if needed) the named subsystem logger, defaulting
// to InfoLvl the way the teacher's backends do absent an explicit override.
func (b *Backend) Logger(subsystem string) slog.Logger {
	l := b.backend.Logger(subsystem)
	l.SetLevel(slog.LevelInfo)
	return l
}

// SetLevel overrides the level for a subsystem logger, e.g. from a
// --debuglevel flag in cmd/okeysrv.
func SetLevel(l slog.Logger, level slog.Level) {
	l.SetLevel(level)
}
