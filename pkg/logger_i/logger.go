package logger_i

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/akolanti/docrag/internal/config"
)

// Logger is safe to create at package init. It rebuilds itself from slog.Default
// the first time it is used after Init swaps the handler.
type Logger struct {
	args   []any
	cached atomic.Pointer[boundLogger]
}

type boundLogger struct {
	generation uint64
	inner      *slog.Logger
}

var generation atomic.Uint64

// Init installs the process-wide handler. JSON in prod, text otherwise.
func Init(isProd bool) {
	InitWithWriter(os.Stdout, isProd)
}

func InitWithWriter(w io.Writer, isProd bool) {
	options := &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: isProd,
	}

	var handler slog.Handler
	if isProd {
		options.Level = config.LOG_LEVEL_PROD
		handler = slog.NewJSONHandler(w, options)
	} else {
		handler = slog.NewTextHandler(w, options)
	}
	slog.SetDefault(slog.New(handler))
	generation.Add(1)
}

func NewLogger(section string) *Logger {
	return &Logger{args: []any{"component", section}}
}

func (l *Logger) bound() *slog.Logger {
	gen := generation.Load()
	if b := l.cached.Load(); b != nil && b.generation == gen {
		return b.inner
	}
	inner := slog.Default().With(l.args...)
	l.cached.Store(&boundLogger{generation: gen, inner: inner})
	return inner
}

func (l *Logger) Info(msg string, args ...any) {
	l.bound().Info(msg, args...)
}

func (l *Logger) Error(msg string, args ...any) {
	l.logWithSource(slog.LevelError, msg, args...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.logWithSource(slog.LevelWarn, msg, args...)
}

func (l *Logger) Debug(msg string, args ...any) {
	l.logWithSource(slog.LevelDebug, msg, args...)
}

func (l *Logger) logWithSource(level slog.Level, msg string, args ...any) {
	ctx := context.Background()
	inner := l.bound()
	if !inner.Enabled(ctx, level) {
		return
	}
	var pcs [1]uintptr
	// Skip 3 levels: runtime.Callers, logWithSource, and the Error/Warn/Debug wrapper
	runtime.Callers(3, pcs[:])
	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.Add(args...)
	_ = inner.Handler().Handle(ctx, r)
}

func (l *Logger) With(args ...any) *Logger {
	merged := make([]any, 0, len(l.args)+len(args))
	merged = append(merged, l.args...)
	return &Logger{args: append(merged, args...)}
}

// WithTrace attaches the request trace id carried by ctx, if any.
func (l *Logger) WithTrace(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}
	if trace, ok := ctx.Value(config.TRACE_ID_KEY).(string); ok && trace != "" {
		return l.With(config.TRACE_ID_KEY, trace)
	}
	return l
}
