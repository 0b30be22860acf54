package observability

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
)

// TracerName is the instrumentation scope of the pre-registered "otel"
// observer.
const TracerName = "github.com/tailored-agentic-units/store"

var (
	registryMu sync.RWMutex
	registered = map[string]Observer{
		"noop": Discard,
		"slog": NewSlogObserver(slog.Default()),
		"otel": NewOTelObserver(otel.Tracer(TracerName)),
	}
)

// GetObserver returns the observer registered under name: "noop", "slog"
// (default logger), "otel" (global tracer provider) or anything added with
// RegisterObserver.
func GetObserver(name string) (Observer, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	o, ok := registered[name]
	if !ok {
		return nil, fmt.Errorf("unknown observer: %s", name)
	}
	return o, nil
}

// Resolve looks up a comma-separated list of observer names, such as
// "slog,otel", and fans events out to all of them. Blank entries are skipped.
func Resolve(names string) (Observer, error) {
	var list []Observer
	for name := range strings.SplitSeq(names, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		o, err := GetObserver(name)
		if err != nil {
			return nil, err
		}
		list = append(list, o)
	}
	return Fanout(list...), nil
}

// RegisterObserver adds or replaces a named observer.
func RegisterObserver(name string, observer Observer) {
	registryMu.Lock()
	defer registryMu.Unlock()

	registered[name] = observer
}
