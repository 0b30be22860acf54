package store

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tailored-agentic-units/store/observability"
	"github.com/tailored-agentic-units/store/patch"
)

// View pairs a state snapshot with the store's bound actions.
type View[S any] struct {
	State   S
	Actions *Actions
}

// Store holds an immutable state snapshot that changes only through named
// actions. It is safe for concurrent use.
type Store[S any] struct {
	id      string
	table   ActionMap[S]
	actions *Actions

	mu      sync.RWMutex
	current S
	seq     uint64
	history []Change

	subs     registry
	inflight pending

	observer       observability.Observer
	onError        ErrorHandler
	historyLimit   int
	skipNoopNotify bool
}

// New creates a store holding a deep copy of initial, with one bound action
// per entry in actions. A nil action table is an empty table.
func New[S any](initial S, actions ActionMap[S], opts ...Option) *Store[S] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.id == "" {
		o.id = uuid.New().String()
	}

	current, err := patch.Clone(initial)
	if err != nil {
		current = initial
	}

	s := &Store[S]{
		id:             o.id,
		table:          maps.Clone(actions),
		current:        current,
		observer:       o.observer,
		onError:        o.onError,
		historyLimit:   o.historyLimit,
		skipNoopNotify: o.skipNoopNotify,
	}
	if s.table == nil {
		s.table = ActionMap[S]{}
	}
	s.actions = s.bind()

	s.emit(context.Background(), EventStoreCreate, observability.LevelVerbose, map[string]any{
		"actions": len(s.table),
	})
	if err != nil {
		s.emit(context.Background(), EventStoreCreate, observability.LevelWarning, map[string]any{
			"error": fmt.Sprintf("initial state kept uncopied: %v", err),
		})
	}

	return s
}

// NewFromConfig creates a store whose observer, history limit and
// notification policy come from cfg. Options are applied afterwards and
// override the configured values.
func NewFromConfig[S any](cfg *Config, initial S, actions ActionMap[S], opts ...Option) (*Store[S], error) {
	observer, err := observability.Resolve(cfg.Observer)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve observer: %w", err)
	}

	configured := []Option{WithObserver(observer)}
	if cfg.HistoryLimit != 0 {
		configured = append(configured, WithHistoryLimit(cfg.HistoryLimit))
	}
	if cfg.SkipNoopNotify {
		configured = append(configured, WithSkipNoopNotify())
	}

	return New(initial, actions, append(configured, opts...)...), nil
}

func (s *Store[S]) bind() *Actions {
	a := &Actions{
		bound: make(map[string]Action, len(s.table)),
		names: slices.Sorted(maps.Keys(s.table)),
	}
	for name, factory := range s.table {
		a.bound[name] = func(payload ...any) error {
			return s.dispatch(context.Background(), name, factory, payload)
		}
	}
	return a
}

// ID returns the store's identifier, attached to every emitted event.
func (s *Store[S]) ID() string {
	return s.id
}

// State returns the latest committed snapshot. The snapshot shares memory
// with the store and with later snapshots; callers must not modify it.
func (s *Store[S]) State() S {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Actions returns the bound actions. The returned pointer is stable.
func (s *Store[S]) Actions() *Actions {
	return s.actions
}

// Use returns the current snapshot together with the bound actions.
func (s *Store[S]) Use() View[S] {
	return View[S]{State: s.State(), Actions: s.actions}
}

// History returns a copy of the retained commit history, oldest first.
func (s *Store[S]) History() []Change {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.history)
}

// Subscribe registers sub for notification after every commit and returns a
// function that removes it. Subscribing an already registered subscriber is a
// no-op. The returned function removes sub even if it was unsubscribed and
// subscribed again in the meantime; once sub is gone, further calls are no-ops.
func (s *Store[S]) Subscribe(sub Subscriber) (unsubscribe func()) {
	if sub == nil {
		return func() {}
	}

	id, added := s.subs.add(sub)
	if added {
		s.emit(context.Background(), EventSubscriberAdd, observability.LevelVerbose, map[string]any{
			"subscribers": s.subs.count(),
		})
	}

	return func() {
		if s.subs.release(id, sub) {
			s.emitSubscriberRemove()
		}
	}
}

// Unsubscribe removes sub. Removing a subscriber that is not registered is a
// no-op.
func (s *Store[S]) Unsubscribe(sub Subscriber) {
	if s.subs.remove(sub) {
		s.emitSubscriberRemove()
	}
}

func (s *Store[S]) emitSubscriberRemove() {
	s.emit(context.Background(), EventSubscriberRemove, observability.LevelVerbose, map[string]any{
		"subscribers": s.subs.count(),
	})
}

// Dispatch runs the named action with payload. Synchronous actions have
// committed and notified subscribers by the time Dispatch returns; deferred
// actions return nil immediately and commit when they resolve. ctx is passed
// to deferred work and to observers; the store never cancels a dispatch.
func (s *Store[S]) Dispatch(ctx context.Context, name string, payload ...any) error {
	factory, ok := s.table[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAction, name)
	}
	return s.dispatch(ctx, name, factory, payload)
}

// Settle blocks until every deferred dispatch has committed or failed, or
// until ctx is done.
func (s *Store[S]) Settle(ctx context.Context) error {
	return s.inflight.wait(ctx)
}

// dispatch runs one action against a private draft. The patch buffer for the
// action is the diff between that draft and the snapshot it was cloned from,
// so concurrent dispatches never see each other's edits.
func (s *Store[S]) dispatch(ctx context.Context, name string, factory ActionFunc[S], payload []any) error {
	dispatchID := uuid.Must(uuid.NewV7()).String()

	recipe := factory(payload...)
	if recipe == nil {
		return fmt.Errorf("%w: %s", ErrNilRecipe, name)
	}

	base := s.State()
	draft, err := patch.Clone(base)
	if err != nil {
		return fmt.Errorf("action %s: draft: %w", name, err)
	}

	s.emitAction(ctx, EventActionDispatch, observability.LevelVerbose, name, dispatchID, nil)

	out := recipe(&draft)
	if out.kind == outcomeDefer {
		s.inflight.add()
		s.emitAction(ctx, EventActionDefer, observability.LevelVerbose, name, dispatchID, nil)
		go s.resolve(ctx, name, dispatchID, base, &draft, out.deferred)
		return nil
	}

	return s.settle(ctx, name, dispatchID, base, &draft, out)
}

func (s *Store[S]) resolve(ctx context.Context, name, dispatchID string, base S, draft *S, fn Deferred[S]) {
	defer s.inflight.done()

	out, err := runDeferred(ctx, name, draft, fn)
	if err == nil {
		err = s.settle(ctx, name, dispatchID, base, draft, out)
	}
	if err != nil {
		s.reject(ctx, name, dispatchID, err)
	}
}

// runDeferred runs fn and any continuation it returns until one produces a
// final outcome. A panic in the recipe becomes ErrRecipePanic; panics raised
// later, while committing or notifying, are not recovered here.
func runDeferred[S any](ctx context.Context, name string, draft *S, fn Deferred[S]) (out Outcome[S], err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: action %s: %v", ErrRecipePanic, name, r)
		}
	}()

	out = Defer(fn)
	for out.kind == outcomeDefer {
		if out.deferred == nil {
			return out, fmt.Errorf("%w: %s", ErrNilRecipe, name)
		}
		out = out.deferred(ctx, draft)
	}
	return out, nil
}

func (s *Store[S]) settle(ctx context.Context, name, dispatchID string, base S, draft *S, out Outcome[S]) error {
	switch out.kind {
	case outcomeFail:
		err := fmt.Errorf("action %s: %w", name, out.err)
		s.emitAction(ctx, EventActionFail, observability.LevelWarning, name, dispatchID, map[string]any{
			"error": err.Error(),
		})
		return err

	case outcomeReplace:
		return s.commit(ctx, name, dispatchID, pendingCommit[S]{replace: true, value: out.value})

	case outcomeDefer:
		return fmt.Errorf("%w: %s", ErrNilRecipe, name)
	}

	patches, inverse := patch.Diff(base, *draft)
	return s.commit(ctx, name, dispatchID, pendingCommit[S]{patches: patches, inverse: inverse})
}

type pendingCommit[S any] struct {
	replace bool
	value   S
	patches []patch.Patch
	inverse []patch.Patch
}

// commit folds one dispatch's result into the state cell, records it, and
// notifies subscribers once the cell has been updated.
func (s *Store[S]) commit(ctx context.Context, name, dispatchID string, pc pendingCommit[S]) error {
	s.mu.Lock()

	prev := s.current
	next := pc.value
	forward, inverse := pc.patches, pc.inverse
	if pc.replace {
		forward = []patch.Patch{{Op: patch.OpReplace, Value: any(next)}}
		inverse = []patch.Patch{{Op: patch.OpReplace, Value: any(prev)}}
	} else {
		applied, err := patch.Apply(prev, forward)
		if err != nil {
			s.mu.Unlock()
			err = fmt.Errorf("%w: action %s: %w", ErrCommitFailed, name, err)
			s.emitAction(ctx, EventActionFail, observability.LevelWarning, name, dispatchID, map[string]any{
				"error": err.Error(),
			})
			return err
		}
		next = applied
	}

	s.current = next
	s.seq++
	change := Change{
		Seq:         s.seq,
		Action:      name,
		DispatchID:  dispatchID,
		Patches:     forward,
		Inverse:     inverse,
		Replaced:    pc.replace,
		CommittedAt: time.Now(),
	}
	s.history = appendBounded(s.history, change, s.historyLimit)
	s.mu.Unlock()

	s.emitAction(ctx, EventActionCommit, observability.LevelInfo, name, dispatchID, map[string]any{
		"seq":      change.Seq,
		"patches":  len(forward),
		"replaced": pc.replace,
	})

	if s.skipNoopNotify && !pc.replace && len(forward) == 0 {
		return nil
	}
	s.notify(ctx, change.Seq)
	return nil
}

func (s *Store[S]) notify(ctx context.Context, seq uint64) {
	subs := s.subs.snapshot()
	for _, sub := range subs {
		sub.OnChange()
	}

	s.emit(ctx, EventNotify, observability.LevelVerbose, map[string]any{
		"seq":         seq,
		"subscribers": len(subs),
	})
}

func (s *Store[S]) reject(ctx context.Context, name, dispatchID string, err error) {
	s.emitAction(ctx, EventActionReject, observability.LevelError, name, dispatchID, map[string]any{
		"error": err.Error(),
	})
	s.onError(name, err)
}

func (s *Store[S]) emit(ctx context.Context, eventType observability.EventType, level observability.Level, data map[string]any) {
	s.emitAction(ctx, eventType, level, "", "", data)
}

func (s *Store[S]) emitAction(ctx context.Context, eventType observability.EventType, level observability.Level, name, dispatchID string, data map[string]any) {
	s.observer.OnEvent(ctx, observability.Event{
		Type:       eventType,
		Level:      level,
		Timestamp:  time.Now(),
		Source:     "store",
		StoreID:    s.id,
		Action:     name,
		DispatchID: dispatchID,
		Data:       data,
	})
}

// IsRejection reports whether err came from a recipe's Fail outcome rather
// than from the store itself.
func IsRejection(err error) bool {
	return err != nil &&
		!errors.Is(err, ErrUnknownAction) &&
		!errors.Is(err, ErrNilRecipe) &&
		!errors.Is(err, ErrCommitFailed) &&
		!errors.Is(err, ErrRecipePanic) &&
		!errors.Is(err, patch.ErrUncopyable)
}
