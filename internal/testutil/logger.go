// Package testutil holds shared helpers for the engine and pipeline test
// suites.
package testutil

import (
	"log/slog"
	"testing"
)

// NewTestLogger returns a slog.Logger routed through t.Log, so engine and
// pipeline output only surfaces on failure or under -v.
func NewTestLogger(tb testing.TB) *slog.Logger {
	tb.Helper()
	return slog.New(slog.NewTextHandler(tbWriter{tb}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

type tbWriter struct {
	tb testing.TB
}

func (w tbWriter) Write(p []byte) (int, error) {
	w.tb.Helper()
	w.tb.Log(string(p))
	return len(p), nil
}
