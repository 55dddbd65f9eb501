package vecmmr

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with vecmmr-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
			Level: slog.Level(1000), // Unreachable level
		})),
	}
}

// WithTable adds a table field to the logger.
func (l *Logger) WithTable(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("table", name),
	}
}

// WithK adds a k (neighbor count) field to the logger.
func (l *Logger) WithK(k int) *Logger {
	return &Logger{
		Logger: l.Logger.With("k", k),
	}
}

// LogInsert logs a row write.
func (l *Logger) LogInsert(ctx context.Context, table string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "insert failed",
			"table", table,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "insert completed",
			"table", table,
		)
	}
}

// LogSearch logs a search operation. lambda is nil for plain KNN.
func (l *Logger) LogSearch(ctx context.Context, table string, k int, lambda *float64, resultsFound int, err error) {
	attrs := []any{"table", table, "k", k}
	if lambda != nil {
		attrs = append(attrs, "mmr_lambda", *lambda)
	}
	if err != nil {
		l.ErrorContext(ctx, "search failed", append(attrs, "error", err)...)
	} else {
		l.DebugContext(ctx, "search completed", append(attrs, "results", resultsFound)...)
	}
}

// LogBatchSearch logs a batch of searches.
func (l *Logger) LogBatchSearch(ctx context.Context, table string, count int, err error) {
	if err != nil {
		l.WarnContext(ctx, "batch search failed",
			"table", table,
			"queries", count,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "batch search completed",
			"table", table,
			"queries", count,
		)
	}
}

// LogSnapshot logs a snapshot save or load.
func (l *Logger) LogSnapshot(ctx context.Context, op, table, blob string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot "+op+" failed",
			"table", table,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "snapshot "+op+" completed",
			"table", table,
			"blob", blob,
		)
	}
}
