package smoke

import (
	"log/slog"

	"github.com/gogpu/smoke/internal/logging"
)

// SetLogger configures the logger for smoke and all its sub-packages.
// By default, smoke produces no log output. Call SetLogger to enable logging.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by smoke:
//   - [slog.LevelDebug]: per-frame diagnostics (stage dispatches, batch submits)
//   - [slog.LevelInfo]: lifecycle events (backend selected, grids allocated)
//   - [slog.LevelWarn]: non-fatal issues (clamped config values, GPU fallback)
//
// Example:
//
//	smoke.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	logging.Set(l)
}

// Logger returns the current logger used by smoke.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return logging.Logger()
}
