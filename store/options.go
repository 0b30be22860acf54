package store

import (
	"log/slog"

	"github.com/tailored-agentic-units/store/observability"
)

// ErrorHandler receives failures of deferred actions, which have no caller to
// return an error to.
type ErrorHandler func(action string, err error)

// Option configures a Store at construction. Options are applied after any
// config-derived settings, so they override them.
type Option func(*options)

type options struct {
	observer       observability.Observer
	onError        ErrorHandler
	historyLimit   int
	skipNoopNotify bool
	id             string
}

func defaultOptions() options {
	return options{
		observer:     observability.Discard,
		onError:      logRejection,
		historyLimit: DefaultHistoryLimit,
	}
}

// WithObserver sets the observers that receive store events. Several
// observers each see every event, in argument order.
func WithObserver(observers ...observability.Observer) Option {
	return func(opts *options) {
		opts.observer = observability.Fanout(observers...)
	}
}

// WithErrorHandler sets the handler for deferred action failures. The default
// logs them through slog.Default().
func WithErrorHandler(h ErrorHandler) Option {
	return func(opts *options) {
		if h != nil {
			opts.onError = h
		}
	}
}

// WithHistoryLimit bounds the retained commit history. Zero or less disables
// history retention.
func WithHistoryLimit(n int) Option {
	return func(opts *options) { opts.historyLimit = n }
}

// WithSkipNoopNotify suppresses subscriber notification for commits that
// produced no patches. Replacements always notify.
func WithSkipNoopNotify() Option {
	return func(opts *options) { opts.skipNoopNotify = true }
}

// WithID overrides the generated store ID.
func WithID(id string) Option {
	return func(opts *options) {
		if id != "" {
			opts.id = id
		}
	}
}

func logRejection(action string, err error) {
	slog.Default().Error("unhandled action rejection",
		slog.String("action", action),
		slog.String("error", err.Error()),
	)
}
