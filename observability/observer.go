// Package observability reports store activity to logs and traces. Each
// dispatch, deferral, commit, rejection and notification round becomes an
// Event handed to an Observer.
package observability

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"time"
)

// Level is an event severity. The values sit at the bottom of the matching
// OpenTelemetry SeverityNumber bands, so span events and log records carry
// them unchanged.
type Level int

const (
	LevelVerbose Level = 5  // dispatch, defer, notify, subscriber churn
	LevelInfo    Level = 9  // commits
	LevelWarning Level = 13 // recipe failures returned to the caller
	LevelError   Level = 17 // deferred failures nobody returned to
)

// String returns the OTel severity text for the band l falls in.
func (l Level) String() string {
	switch {
	case l < LevelVerbose:
		return "TRACE"
	case l < LevelInfo:
		return "DEBUG"
	case l < LevelWarning:
		return "INFO"
	case l < LevelError:
		return "WARN"
	case l < LevelError+4:
		return "ERROR"
	}
	return "FATAL"
}

// SlogLevel maps l onto the slog level of the same band.
func (l Level) SlogLevel() slog.Level {
	switch {
	case l < LevelInfo:
		return slog.LevelDebug
	case l < LevelWarning:
		return slog.LevelInfo
	case l < LevelError:
		return slog.LevelWarn
	}
	return slog.LevelError
}

// EventType names what happened, e.g. "action.commit".
type EventType string

// Event is one step in a store's life. StoreID is always set; Action and
// DispatchID are empty for store-wide events such as notification rounds.
// Data holds counts, sequence numbers and error text, never state values.
type Event struct {
	Type       EventType
	Level      Level
	Timestamp  time.Time
	Source     string
	StoreID    string
	Action     string
	DispatchID string
	Data       map[string]any
}

// Attr is a single event attribute.
type Attr struct {
	Key   string
	Value any
}

// Attrs flattens the event's identity fields and Data into attributes:
// store_id, action and dispatch_id first when set, then Data in key order.
func (e Event) Attrs() []Attr {
	attrs := make([]Attr, 0, len(e.Data)+3)
	for _, id := range []Attr{
		{Key: "store_id", Value: e.StoreID},
		{Key: "action", Value: e.Action},
		{Key: "dispatch_id", Value: e.DispatchID},
	} {
		if id.Value != "" {
			attrs = append(attrs, id)
		}
	}
	for _, k := range slices.Sorted(maps.Keys(e.Data)) {
		attrs = append(attrs, Attr{Key: k, Value: e.Data[k]})
	}
	return attrs
}

// Observer receives events. Deferred actions report from their own
// goroutines, so implementations must be safe for concurrent use.
type Observer interface {
	OnEvent(ctx context.Context, event Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, event Event)

func (f ObserverFunc) OnEvent(ctx context.Context, event Event) { f(ctx, event) }
