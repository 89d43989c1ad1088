package present

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/present/driver"
	"github.com/gogpu/present/internal/renderpass"
	"github.com/gogpu/present/internal/swapchain"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

// bound holds the device contexts of open windows so that SetLogger can
// reach them.
var (
	boundMu sync.Mutex
	bound   = map[driver.Context]int{}
)

func init() {
	l := newNopLogger()
	loggerPtr.Store(l)
}

// SetLogger configures the logger for present and its sub-packages.
// By default, present produces no log output. Call SetLogger to enable
// logging.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by present:
//   - [slog.LevelDebug]: per-frame diagnostics (acquired image, barriers)
//   - [slog.LevelInfo]: lifecycle events (window opened, swapchain created)
//   - [slog.LevelWarn]: non-fatal issues (retained render passes, present
//     anomalies, skipped frames)
//   - [slog.LevelError]: failed submissions and presents
//
// Example:
//
//	present.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	renderpass.SetLogger(l)
	swapchain.SetLogger(l)

	boundMu.Lock()
	ctxs := make([]driver.Context, 0, len(bound))
	for c := range bound {
		ctxs = append(ctxs, c)
	}
	boundMu.Unlock()
	for _, c := range ctxs {
		propagateLogger(c, l)
	}
}

// Logger returns the current logger used by present.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// slogger is the package-internal shorthand for Logger.
func slogger() *slog.Logger { return loggerPtr.Load() }

// loggerSetter is implemented by device contexts that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

// propagateLogger passes the logger to a device context if it supports
// logging.
func propagateLogger(c driver.Context, l *slog.Logger) {
	if ls, ok := c.(loggerSetter); ok {
		ls.SetLogger(l)
	}
}

func bindContext(c driver.Context) {
	boundMu.Lock()
	bound[c]++
	boundMu.Unlock()
	propagateLogger(c, Logger())
}

func unbindContext(c driver.Context) {
	boundMu.Lock()
	defer boundMu.Unlock()
	if bound[c] <= 1 {
		delete(bound, c)
		return
	}
	bound[c]--
}
