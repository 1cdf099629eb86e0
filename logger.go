package gerstner

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/gerstner/internal/gpu"
)

// nopHandler is a slog.Handler that discards all records. Enabled returns
// false, so callers skip formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for gerstner and its GPU layer. By
// default nothing is logged. Pass nil to restore that.
//
// Log levels used:
//   - [slog.LevelDebug]: slicing results, buffer uploads
//   - [slog.LevelInfo]: device and resource lifecycle
//   - [slog.LevelWarn]: dropped components, CPU fallback
//   - [slog.LevelError]: spectrum tables shorter than its octave count
//
// Example:
//
//	gerstner.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	gpu.SetLogger(l)
}

// Logger returns the current logger. It is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
