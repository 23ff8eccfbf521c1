package sparsegram

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with sparsegram-specific helpers.
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
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	}))
}

// WithDocID adds a document ID field to the logger.
func (l *Logger) WithDocID(id uint32) *Logger {
	return &Logger{
		Logger: l.Logger.With("doc_id", id),
	}
}

// WithCount adds a count field to the logger.
func (l *Logger) WithCount(count int) *Logger {
	return &Logger{
		Logger: l.Logger.With("count", count),
	}
}

// LogAdd logs a document add.
func (l *Logger) LogAdd(ctx context.Context, id uint32, ngrams int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "add failed",
			"doc_id", id,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "add completed",
			"doc_id", id,
			"ngrams", ngrams,
		)
	}
}

// LogBatchAdd logs a batch add.
func (l *Logger) LogBatchAdd(ctx context.Context, count, failed int) {
	if failed > 0 {
		l.WarnContext(ctx, "batch add completed with failures",
			"total", count,
			"failed", failed,
			"success", count-failed,
		)
	} else {
		l.InfoContext(ctx, "batch add completed",
			"count", count,
		)
	}
}

// LogSearch logs a substring search.
func (l *Logger) LogSearch(ctx context.Context, ngrams, candidates, matches int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed",
			"ngrams", ngrams,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "search completed",
			"ngrams", ngrams,
			"candidates", candidates,
			"matches", matches,
		)
	}
}

// LogDelete logs a document delete.
func (l *Logger) LogDelete(ctx context.Context, id uint32, err error) {
	if err != nil {
		l.ErrorContext(ctx, "delete failed",
			"doc_id", id,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "delete completed",
			"doc_id", id,
		)
	}
}

// LogSnapshot logs a snapshot save.
func (l *Logger) LogSnapshot(ctx context.Context, name string, size int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot failed",
			"name", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "snapshot saved",
			"name", name,
			"bytes", size,
		)
	}
}

// LogRestore logs a snapshot load.
func (l *Logger) LogRestore(ctx context.Context, name string, documents int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot restore failed",
			"name", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "snapshot restored",
			"name", name,
			"documents", documents,
		)
	}
}
