package loom

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
)

// nopHandler discards every record; Enabled returns false so callers skip formatting.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// SetLogger configures the logger used by loom and its sub-packages.
// By default loom produces no log output. Pass nil to restore that.
//
// Log levels used by loom:
//   - [slog.LevelDebug]: flush statistics, capability fallbacks
//   - [slog.LevelInfo]: render loop start and stop
//   - [slog.LevelWarn]: failed or panicking tasks
//   - [slog.LevelError]: terminal errors that end the loop
//
// Since the terminal is usually busy drawing the UI, log to a file:
//
//	f, _ := os.Create("loom.log")
//	loom.SetLogger(slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

// Logger returns the current logger. It is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// debugFlush enables per-flush statistics via the LOOM_DEBUG_FLUSH env var.
var debugFlush = os.Getenv("LOOM_DEBUG_FLUSH") != ""
