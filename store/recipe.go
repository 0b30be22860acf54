package store

import "context"

// Recipe expresses one state transition against a draft. The draft is a
// private deep copy of the current snapshot; the recipe either edits it in
// place and returns Done, returns a replacement with Replace, hands off to
// asynchronous work with Defer, or rejects with Fail.
type Recipe[S any] func(draft *S) Outcome[S]

// Deferred is the asynchronous half of a recipe. It runs on its own goroutine
// with the same draft and resolves to any Outcome, including another Defer.
type Deferred[S any] func(ctx context.Context, draft *S) Outcome[S]

// ActionFunc builds a Recipe from an action's payload.
type ActionFunc[S any] func(payload ...any) Recipe[S]

// ActionMap is the table of named action factories a store is built from.
type ActionMap[S any] map[string]ActionFunc[S]

type outcomeKind int

const (
	outcomeDraft outcomeKind = iota
	outcomeReplace
	outcomeDefer
	outcomeFail
)

// Outcome is the result of running a Recipe. The zero value means the draft
// was edited in place.
type Outcome[S any] struct {
	kind     outcomeKind
	value    S
	deferred Deferred[S]
	err      error
}

// Done reports that the draft was edited in place (or left untouched).
func Done[S any]() Outcome[S] {
	return Outcome[S]{}
}

// Replace commits next as the new state. Edits made to the draft in the same
// pass are discarded.
func Replace[S any](next S) Outcome[S] {
	return Outcome[S]{kind: outcomeReplace, value: next}
}

// Defer postpones the commit until fn resolves. The dispatch returns
// immediately; the state is unchanged until then.
func Defer[S any](fn Deferred[S]) Outcome[S] {
	return Outcome[S]{kind: outcomeDefer, deferred: fn}
}

// Fail rejects the action. Nothing is committed and subscribers are not
// notified.
func Fail[S any](err error) Outcome[S] {
	return Outcome[S]{kind: outcomeFail, err: err}
}
