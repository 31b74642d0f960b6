package interceptors

import (
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

// TraceHook decorates log entries with the ids of the span carried by the entry's context.
// Handlers must log through WithContext(ctx) for the ids to show up.
type TraceHook struct{}

func (h *TraceHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *TraceHook) Fire(entry *logrus.Entry) error {
	if entry.Context == nil {
		return nil
	}

	sc := trace.SpanContextFromContext(entry.Context)
	if sc.IsValid() {
		entry.Data["trace_id"] = sc.TraceID().String()
		entry.Data["span_id"] = sc.SpanID().String()
	}

	return nil
}
