package core

import (
	"context"
	"log/slog"
	"time"
)

// Logger receives structured service events. The argument list alternates
// keys and values, matching log/slog conventions.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// SlogLogger adapts a *slog.Logger to the service Logger interface.
type SlogLogger struct {
	base *slog.Logger
}

// NewSlogLogger wraps the provided slog logger; a nil logger falls back to
// slog.Default().
func NewSlogLogger(base *slog.Logger) *SlogLogger {
	if base == nil {
		base = slog.Default()
	}
	return &SlogLogger{base: base}
}

func (l *SlogLogger) Debug(msg string, args ...any) { l.base.Debug(msg, args...) }
func (l *SlogLogger) Info(msg string, args ...any)  { l.base.Info(msg, args...) }
func (l *SlogLogger) Warn(msg string, args ...any)  { l.base.Warn(msg, args...) }
func (l *SlogLogger) Error(msg string, args ...any) { l.base.Error(msg, args...) }

// MetricsRecorder aggregates operation outcomes for export.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Tracer opens spans around service operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan terminates a span opened by a Tracer.
type TraceSpan interface {
	End(err error)
}

// AuditStatus classifies an audit entry outcome.
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusError   AuditStatus = "error"
)

// AuditEntry records a single service operation for compliance trails.
type AuditEntry struct {
	Operation  string      `json:"operation"`
	EntityType EntityType  `json:"entity_type,omitempty"`
	EntityID   string      `json:"entity_id,omitempty"`
	Status     AuditStatus `json:"status"`
	Error      string      `json:"error,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// AuditRecorder receives audit entries emitted by the service.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}
