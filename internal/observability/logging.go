// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
	"os"
)

// GlobalLogger is the default logger for code that runs outside a request.
// bootstrap replaces it with the configured handler.
var GlobalLogger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

// EnableRepoLogging toggles per-operation repository logs.
var EnableRepoLogging = true

// SetLogger replaces GlobalLogger.
func SetLogger(l *slog.Logger) {
	if l != nil {
		GlobalLogger = l
	}
}

// RepoLogger provides structured logging for repository operations.
type RepoLogger struct {
	tableName string
}

// NewRepoLogger creates a new RepoLogger for the given table.
func NewRepoLogger(tableName string) *RepoLogger {
	return &RepoLogger{tableName: tableName}
}

func (l *RepoLogger) log(ctx context.Context, level slog.Level, msg, operation string, fields map[string]interface{}) {
	if !EnableRepoLogging {
		return
	}
	attrs := []any{
		slog.String("table", l.tableName),
		slog.String("operation", operation),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	GlobalLogger.Log(ctx, level, msg, attrs...)
}

// LogCreate logs a repository create operation.
func (l *RepoLogger) LogCreate(ctx context.Context, fields map[string]interface{}) {
	l.log(ctx, slog.LevelInfo, "repository create", "create", fields)
}

// LogRead logs a repository read operation at debug level.
func (l *RepoLogger) LogRead(ctx context.Context, fields map[string]interface{}) {
	l.log(ctx, slog.LevelDebug, "repository read", "read", fields)
}

// LogDelete logs a repository delete operation.
func (l *RepoLogger) LogDelete(ctx context.Context, fields map[string]interface{}) {
	l.log(ctx, slog.LevelInfo, "repository delete", "delete", fields)
}

// LogError logs a repository error.
func (l *RepoLogger) LogError(ctx context.Context, err error, operation string) {
	l.log(ctx, slog.LevelError, "repository error", operation, map[string]interface{}{"error": err.Error()})
}
