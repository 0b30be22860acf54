package observability

import (
	"context"
	"log/slog"
)

// SlogObserver writes events as log records: the event type is the message,
// followed by source and the event's Attrs.
type SlogObserver struct {
	logger *slog.Logger
}

// NewSlogObserver creates a SlogObserver. A nil logger means slog.Default().
func NewSlogObserver(logger *slog.Logger) *SlogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogObserver{logger: logger}
}

func (o *SlogObserver) OnEvent(ctx context.Context, event Event) {
	level := event.Level.SlogLevel()
	if !o.logger.Enabled(ctx, level) {
		return
	}

	attrs := []slog.Attr{slog.String("source", event.Source)}
	for _, a := range event.Attrs() {
		attrs = append(attrs, slog.Any(a.Key, a.Value))
	}
	o.logger.LogAttrs(ctx, level, string(event.Type), attrs...)
}
