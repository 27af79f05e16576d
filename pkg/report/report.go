package report

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Severity classifies an operator report.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Report is a single operator-facing anomaly notification. Reports never
// block or fail the request that raised them; they exist so that swallowed
// failures (mirror writes, data inconsistencies, confirmation timeouts) are
// visible instead of silent.
type Report struct {
	ID       string
	Severity Severity
	Kind     string // stable machine-readable category, e.g. "data_inconsistency"
	Message  string
	Fields   map[string]any
}

// Reporter delivers reports to an operator channel.
type Reporter interface {
	Report(ctx context.Context, r Report)
}

// New builds a Report with a fresh correlation ID.
func New(severity Severity, kind, message string, fields map[string]any) Report {
	return Report{
		ID:       uuid.New().String(),
		Severity: severity,
		Kind:     kind,
		Message:  message,
		Fields:   fields,
	}
}

// LogReporter writes reports to structured logs. It is the baseline channel
// and is always safe to use.
type LogReporter struct {
	log *slog.Logger
}

// NewLogReporter creates a reporter backed by the given logger.
// A nil logger falls back to slog.Default.
func NewLogReporter(log *slog.Logger) *LogReporter {
	if log == nil {
		log = slog.Default()
	}
	return &LogReporter{log: log}
}

func (r *LogReporter) Report(ctx context.Context, rep Report) {
	level := slog.LevelWarn
	if rep.Severity == SeverityError {
		level = slog.LevelError
	}

	attrs := make([]any, 0, len(rep.Fields)*2+4)
	attrs = append(attrs, "report_id", rep.ID, "kind", rep.Kind)
	for k, v := range rep.Fields {
		attrs = append(attrs, k, v)
	}
	r.log.Log(ctx, level, rep.Message, attrs...)
}

// MultiReporter fans a report out to several channels.
type MultiReporter []Reporter

func (m MultiReporter) Report(ctx context.Context, rep Report) {
	for _, r := range m {
		r.Report(ctx, rep)
	}
}

// NoopReporter discards reports. Tests only.
type NoopReporter struct{}

func (NoopReporter) Report(context.Context, Report) {}
