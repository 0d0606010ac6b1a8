package munge

import "log/slog"

// Reporter receives one notification per processed file.
type Reporter interface {
	Skipped(name, reason string)
	Munged(name string, mutations int)
}

type nopReporter struct{}

func (nopReporter) Skipped(string, string) {}
func (nopReporter) Munged(string, int)     {}

// LogReporter reports through a slog.Logger.
type LogReporter struct {
	Logger *slog.Logger
}

// NewLogReporter returns a LogReporter writing to l, or to the default
// logger when l is nil.
func NewLogReporter(l *slog.Logger) *LogReporter {
	if l == nil {
		l = slog.Default()
	}
	return &LogReporter{Logger: l}
}

func (r *LogReporter) Skipped(name, reason string) {
	r.Logger.Debug("Skipping file.", "path", name, "reason", reason)
}

func (r *LogReporter) Munged(name string, mutations int) {
	r.Logger.Info("Adding $VERSION assignment.", "path", name, "mutations", mutations)
}
