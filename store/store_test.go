package store_test

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/tailored-agentic-units/store/observability"
	"github.com/tailored-agentic-units/store/patch"
	"github.com/tailored-agentic-units/store/store"
)

type board struct {
	Title string
	Cards []string
	Votes map[string]int
	A     string
	B     string
	N     int
}

func newBoard() board {
	return board{
		Title: "retro",
		Cards: []string{"one", "two"},
		Votes: map[string]int{"one": 1},
	}
}

type captureObserver struct {
	mu     sync.Mutex
	events []observability.Event
}

func (c *captureObserver) OnEvent(ctx context.Context, event observability.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *captureObserver) types() []observability.EventType {
	c.mu.Lock()
	defer c.mu.Unlock()
	types := make([]observability.EventType, len(c.events))
	for i, e := range c.events {
		types[i] = e.Type
	}
	return types
}

type counter struct {
	mu sync.Mutex
	n  int
}

func (c *counter) OnChange() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
}

func (c *counter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func settle(t *testing.T, s interface{ Settle(context.Context) error }) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Settle(ctx); err != nil {
		t.Fatalf("Settle() error = %v", err)
	}
}

func boardActions() store.ActionMap[board] {
	return store.ActionMap[board]{
		"rename": func(payload ...any) store.Recipe[board] {
			title, _ := store.Arg[string](payload, 0)
			return func(draft *board) store.Outcome[board] {
				draft.Title = title
				return store.Done[board]()
			}
		},
		"addCard": func(payload ...any) store.Recipe[board] {
			card, _ := store.Arg[string](payload, 0)
			return func(draft *board) store.Outcome[board] {
				draft.Cards = append(draft.Cards, card)
				return store.Done[board]()
			}
		},
		"reset": func(payload ...any) store.Recipe[board] {
			return func(draft *board) store.Outcome[board] {
				draft.Title = "discarded"
				return store.Replace(board{Title: "fresh"})
			}
		},
		"noop": func(payload ...any) store.Recipe[board] {
			return func(draft *board) store.Outcome[board] {
				return store.Done[board]()
			}
		},
		"setB": func(payload ...any) store.Recipe[board] {
			return func(draft *board) store.Outcome[board] {
				draft.B = "b"
				return store.Done[board]()
			}
		},
		"setN": func(payload ...any) store.Recipe[board] {
			n, _ := store.Arg[int](payload, 0)
			return func(draft *board) store.Outcome[board] {
				draft.N = n
				return store.Done[board]()
			}
		},
		"clearCards": func(payload ...any) store.Recipe[board] {
			return func(draft *board) store.Outcome[board] {
				draft.Cards = nil
				return store.Done[board]()
			}
		},
		"reject": func(payload ...any) store.Recipe[board] {
			return func(draft *board) store.Outcome[board] {
				draft.Title = "never"
				return store.Fail[board](errors.New("not allowed"))
			}
		},
		"nil": func(payload ...any) store.Recipe[board] {
			return nil
		},
		"panic": func(payload ...any) store.Recipe[board] {
			return func(draft *board) store.Outcome[board] {
				draft.Title = "half"
				panic("recipe exploded")
			}
		},
	}
}

// gated returns an action whose deferred half waits for release before
// applying edit to the draft.
func gated(release <-chan struct{}, edit func(draft *board) store.Outcome[board]) store.ActionFunc[board] {
	return func(payload ...any) store.Recipe[board] {
		return func(draft *board) store.Outcome[board] {
			return store.Defer(func(ctx context.Context, draft *board) store.Outcome[board] {
				<-release
				return edit(draft)
			})
		}
	}
}

func TestNew_InitialState(t *testing.T) {
	initial := newBoard()
	s := store.New(initial, nil)

	if !reflect.DeepEqual(s.State(), initial) {
		t.Errorf("State() = %+v, want %+v", s.State(), initial)
	}
	if names := s.Actions().Names(); len(names) != 0 {
		t.Errorf("Names() = %v, want empty for nil action table", names)
	}
	if s.ID() == "" {
		t.Error("ID() should not be empty")
	}
}

func TestNew_CopiesInitialState(t *testing.T) {
	initial := newBoard()
	s := store.New(initial, nil)

	initial.Cards[0] = "mutated"
	initial.Votes["one"] = 99

	if got := s.State(); got.Cards[0] != "one" || got.Votes["one"] != 1 {
		t.Errorf("State() = %+v, caller mutation leaked into the store", got)
	}
}

func TestNew_WithID(t *testing.T) {
	s := store.New(0, nil, store.WithID("fixed"))
	if s.ID() != "fixed" {
		t.Errorf("ID() = %q, want fixed", s.ID())
	}
}

func TestDispatch_DraftMutation(t *testing.T) {
	s := store.New(newBoard(), boardActions())

	if err := s.Actions().Call("addCard", "three"); err != nil {
		t.Fatalf("Call() error = %v", err)
	}

	want := newBoard()
	want.Cards = append(want.Cards, "three")
	if !reflect.DeepEqual(s.State(), want) {
		t.Errorf("State() = %+v, want %+v", s.State(), want)
	}
}

func TestDispatch_PreviousSnapshotUntouched(t *testing.T) {
	s := store.New(newBoard(), boardActions())
	before := s.State()

	if err := s.Actions().Call("rename", "changed"); err != nil {
		t.Fatalf("Call() error = %v", err)
	}

	if before.Title != "retro" {
		t.Errorf("earlier snapshot changed to %q", before.Title)
	}
	if reflect.ValueOf(before.Cards).Pointer() != reflect.ValueOf(s.State().Cards).Pointer() {
		t.Error("untouched branches should be shared between snapshots")
	}
}

func TestDispatch_Replace(t *testing.T) {
	s := store.New(newBoard(), boardActions())

	if err := s.Actions().Call("reset"); err != nil {
		t.Fatalf("Call() error = %v", err)
	}

	if !reflect.DeepEqual(s.State(), board{Title: "fresh"}) {
		t.Errorf("State() = %+v, want the replacement value", s.State())
	}

	history := s.History()
	if len(history) != 1 || !history[0].Replaced {
		t.Fatalf("History() = %+v, want one replacement", history)
	}
	if len(history[0].Patches) != 1 || len(history[0].Patches[0].Path) != 0 {
		t.Errorf("replacement patches = %v, want a single root replace", history[0].Patches)
	}
}

func TestDispatch_Deferred(t *testing.T) {
	release := make(chan struct{})
	actions := boardActions()
	actions["slowRename"] = gated(release, func(draft *board) store.Outcome[board] {
		draft.Title = "later"
		return store.Done[board]()
	})

	s := store.New(newBoard(), actions)
	sub := &counter{}
	s.Subscribe(sub)

	if err := s.Actions().Call("slowRename"); err != nil {
		t.Fatalf("Call() error = %v", err)
	}

	if s.State().Title != "retro" {
		t.Errorf("State().Title = %q before resolution, want retro", s.State().Title)
	}
	if sub.count() != 0 {
		t.Errorf("notified %d times before resolution, want 0", sub.count())
	}

	close(release)
	settle(t, s)

	if s.State().Title != "later" {
		t.Errorf("State().Title = %q after resolution, want later", s.State().Title)
	}
	if sub.count() != 1 {
		t.Errorf("notified %d times after resolution, want 1", sub.count())
	}
}

func TestDispatch_DeferredReplace(t *testing.T) {
	release := make(chan struct{})
	close(release)
	actions := store.ActionMap[board]{
		"load": gated(release, func(draft *board) store.Outcome[board] {
			return store.Replace(board{Title: "loaded"})
		}),
	}

	s := store.New(newBoard(), actions)
	if err := s.Actions().Call("load"); err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	settle(t, s)

	if s.State().Title != "loaded" {
		t.Errorf("State().Title = %q, want loaded", s.State().Title)
	}
}

func TestDispatch_DeferredReceivesContext(t *testing.T) {
	type key struct{}
	got := make(chan any, 1)
	actions := store.ActionMap[int]{
		"lookup": func(payload ...any) store.Recipe[int] {
			return func(draft *int) store.Outcome[int] {
				return store.Defer(func(ctx context.Context, draft *int) store.Outcome[int] {
					got <- ctx.Value(key{})
					return store.Done[int]()
				})
			}
		},
	}

	s := store.New(0, actions)
	ctx := context.WithValue(context.Background(), key{}, "marker")
	if err := s.Dispatch(ctx, "lookup"); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	settle(t, s)

	if v := <-got; v != "marker" {
		t.Errorf("deferred context value = %v, want marker", v)
	}
}

func TestDispatch_UnknownAction(t *testing.T) {
	s := store.New(newBoard(), boardActions())

	if err := s.Dispatch(context.Background(), "missing"); !errors.Is(err, store.ErrUnknownAction) {
		t.Errorf("Dispatch() error = %v, want ErrUnknownAction", err)
	}
	if _, err := s.Actions().Get("missing"); !errors.Is(err, store.ErrUnknownAction) {
		t.Errorf("Get() error = %v, want ErrUnknownAction", err)
	}
	if err := s.Actions().Call("missing"); !errors.Is(err, store.ErrUnknownAction) {
		t.Errorf("Call() error = %v, want ErrUnknownAction", err)
	}
}

func TestDispatch_NilRecipe(t *testing.T) {
	s := store.New(newBoard(), boardActions())

	if err := s.Actions().Call("nil"); !errors.Is(err, store.ErrNilRecipe) {
		t.Errorf("Call() error = %v, want ErrNilRecipe", err)
	}
}

func TestDispatch_FailDoesNotCommit(t *testing.T) {
	s := store.New(newBoard(), boardActions())
	sub := &counter{}
	s.Subscribe(sub)

	err := s.Actions().Call("reject")
	if err == nil || err.Error() != "action reject: not allowed" {
		t.Fatalf("Call() error = %v, want action reject: not allowed", err)
	}
	if !store.IsRejection(err) {
		t.Error("IsRejection() = false, want true")
	}
	if s.State().Title != "retro" {
		t.Errorf("State().Title = %q, want retro", s.State().Title)
	}
	if sub.count() != 0 {
		t.Errorf("notified %d times, want 0", sub.count())
	}
}

func TestDispatch_SyncPanicPropagates(t *testing.T) {
	s := store.New(newBoard(), boardActions())

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Error("expected panic to propagate from Call")
			}
		}()
		_ = s.Actions().Call("panic")
	}()

	if s.State().Title != "retro" {
		t.Errorf("State().Title = %q after panic, want retro", s.State().Title)
	}

	if err := s.Actions().Call("addCard", "after"); err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	want := []string{"one", "two", "after"}
	if !reflect.DeepEqual(s.State().Cards, want) {
		t.Errorf("Cards = %v, want %v (no edits leaked from the failed pass)", s.State().Cards, want)
	}
}

func TestDispatch_DeferredFailureGoesToErrorHandler(t *testing.T) {
	tests := []struct {
		name    string
		edit    func(draft *board) store.Outcome[board]
		wantErr error
	}{
		{
			name: "rejection",
			edit: func(draft *board) store.Outcome[board] {
				draft.Title = "never"
				return store.Fail[board](context.DeadlineExceeded)
			},
			wantErr: context.DeadlineExceeded,
		},
		{
			name: "panic",
			edit: func(draft *board) store.Outcome[board] {
				panic("boom")
			},
			wantErr: store.ErrRecipePanic,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			release := make(chan struct{})
			close(release)

			var (
				mu     sync.Mutex
				action string
				got    error
			)
			handler := func(name string, err error) {
				mu.Lock()
				defer mu.Unlock()
				action, got = name, err
			}

			s := store.New(newBoard(), store.ActionMap[board]{"slow": gated(release, tt.edit)},
				store.WithErrorHandler(handler))
			sub := &counter{}
			s.Subscribe(sub)

			if err := s.Actions().Call("slow"); err != nil {
				t.Fatalf("Call() error = %v, want nil for deferred action", err)
			}
			settle(t, s)

			mu.Lock()
			defer mu.Unlock()
			if action != "slow" || !errors.Is(got, tt.wantErr) {
				t.Errorf("handler got (%q, %v), want (slow, %v)", action, got, tt.wantErr)
			}
			if s.State().Title != "retro" {
				t.Errorf("State().Title = %q, want retro", s.State().Title)
			}
			if sub.count() != 0 {
				t.Errorf("notified %d times, want 0", sub.count())
			}
		})
	}
}

func TestDispatch_InterleavedActionsAreIsolated(t *testing.T) {
	release := make(chan struct{})
	actions := boardActions()
	actions["slowA"] = gated(release, func(draft *board) store.Outcome[board] {
		draft.A = "a"
		draft.N = 1
		return store.Done[board]()
	})

	s := store.New(newBoard(), actions)
	sub := &counter{}
	s.Subscribe(sub)

	if err := s.Actions().Call("slowA"); err != nil {
		t.Fatalf("Call(slowA) error = %v", err)
	}
	if err := s.Actions().Call("setB"); err != nil {
		t.Fatalf("Call(setB) error = %v", err)
	}
	if err := s.Actions().Call("setN", 2); err != nil {
		t.Fatalf("Call(setN) error = %v", err)
	}
	if sub.count() != 2 {
		t.Fatalf("notified %d times before A resolved, want 2", sub.count())
	}

	close(release)
	settle(t, s)

	got := s.State()
	if got.A != "a" || got.B != "b" {
		t.Errorf("State() = %+v, want both A and B edits", got)
	}
	if got.N != 1 {
		t.Errorf("State().N = %d, want 1 (last commit wins)", got.N)
	}

	history := s.History()
	if len(history) != 3 {
		t.Fatalf("History() has %d changes, want 3", len(history))
	}
	last := history[2]
	if last.Action != "slowA" {
		t.Fatalf("last change action = %q, want slowA", last.Action)
	}
	for _, p := range last.Patches {
		if p.Path.String() == "/B" {
			t.Errorf("slowA patches include B's edit: %v", last.Patches)
		}
	}
	if sub.count() != 3 {
		t.Errorf("notified %d times, want 3", sub.count())
	}
}

func TestDispatch_DeferredCommitConflict(t *testing.T) {
	release := make(chan struct{})
	errs := make(chan error, 1)
	actions := boardActions()
	actions["dropSecond"] = gated(release, func(draft *board) store.Outcome[board] {
		draft.Cards = draft.Cards[:1]
		return store.Done[board]()
	})

	s := store.New(newBoard(), actions, store.WithErrorHandler(func(name string, err error) {
		errs <- err
	}))

	if err := s.Actions().Call("dropSecond"); err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if err := s.Actions().Call("clearCards"); err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	close(release)
	settle(t, s)

	select {
	case err := <-errs:
		if !errors.Is(err, store.ErrCommitFailed) || !errors.Is(err, patch.ErrInvalidPath) {
			t.Errorf("handler error = %v, want ErrCommitFailed wrapping ErrInvalidPath", err)
		}
	default:
		t.Fatal("error handler was not called")
	}
	if s.State().Cards != nil {
		t.Errorf("Cards = %v, want nil from clearCards", s.State().Cards)
	}
}

func TestSubscribe_Lifecycle(t *testing.T) {
	s := store.New(newBoard(), boardActions())
	sub := &counter{}

	unsubscribe := s.Subscribe(sub)
	if err := s.Actions().Call("rename", "x"); err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if sub.count() != 1 {
		t.Fatalf("notified %d times, want 1", sub.count())
	}

	unsubscribe()
	unsubscribe()
	if err := s.Actions().Call("rename", "y"); err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if sub.count() != 1 {
		t.Errorf("notified %d times after unsubscribe, want 1", sub.count())
	}
}

func TestSubscribe_DuplicateCollapses(t *testing.T) {
	s := store.New(newBoard(), boardActions())
	calls := 0
	sub := store.Func(func() { calls++ })

	s.Subscribe(sub)
	s.Subscribe(sub)
	if err := s.Actions().Call("rename", "x"); err != nil {
		t.Fatalf("Call() error = %v", err)
	}

	if calls != 1 {
		t.Errorf("notified %d times, want 1", calls)
	}
}

func TestSubscribe_DistinctFuncsAreDistinct(t *testing.T) {
	s := store.New(newBoard(), boardActions())
	calls := 0
	fn := func() { calls++ }

	s.Subscribe(store.Func(fn))
	s.Subscribe(store.Func(fn))
	if err := s.Actions().Call("rename", "x"); err != nil {
		t.Fatalf("Call() error = %v", err)
	}

	if calls != 2 {
		t.Errorf("notified %d times, want 2", calls)
	}
}

// callbackSub compares as a struct but holds a func in an interface field, so
// == on two of its values panics at run time.
type callbackSub struct {
	hook any
}

func (c callbackSub) OnChange() { c.hook.(func())() }

func TestSubscribe_UncomparableDynamicValue(t *testing.T) {
	s := store.New(newBoard(), boardActions())
	calls := 0
	sub := callbackSub{hook: func() { calls++ }}

	unsubscribe := s.Subscribe(sub)
	s.Subscribe(callbackSub{hook: func() {}})
	s.Unsubscribe(sub)

	if err := s.Actions().Call("rename", "x"); err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if calls != 1 {
		t.Fatalf("notified %d times, want 1", calls)
	}

	unsubscribe()
	if err := s.Actions().Call("rename", "y"); err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("notified %d times after unsubscribe, want 1", calls)
	}
}

func TestSubscribe_StaleUnsubscribeAfterResubscribe(t *testing.T) {
	s := store.New(newBoard(), boardActions())
	sub := &counter{}

	unsubscribe := s.Subscribe(sub)
	s.Unsubscribe(sub)
	s.Subscribe(sub)
	unsubscribe()

	if err := s.Actions().Call("rename", "x"); err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if sub.count() != 0 {
		t.Errorf("notified %d times, want 0 after the original unsubscribe", sub.count())
	}
}

func TestUnsubscribe_NeverAddedIsNoop(t *testing.T) {
	s := store.New(newBoard(), boardActions())
	s.Unsubscribe(&counter{})
	s.Unsubscribe(nil)
}

func TestSubscribe_ObservesCommittedState(t *testing.T) {
	s := store.New(newBoard(), boardActions())
	var seen string
	s.Subscribe(store.Func(func() { seen = s.State().Title }))

	if err := s.Actions().Call("rename", "visible"); err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if seen != "visible" {
		t.Errorf("subscriber saw %q, want visible", seen)
	}
}

func TestSubscribe_NestedDispatch(t *testing.T) {
	s := store.New(newBoard(), boardActions())
	once := true
	s.Subscribe(store.Func(func() {
		if once {
			once = false
			_ = s.Actions().Call("setB")
		}
	}))

	if err := s.Actions().Call("rename", "outer"); err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if got := s.State(); got.Title != "outer" || got.B != "b" {
		t.Errorf("State() = %+v, want both edits", got)
	}
}

func TestNoopCommit(t *testing.T) {
	tests := []struct {
		name string
		opts []store.Option
		want int
	}{
		{name: "notifies by default", want: 1},
		{name: "suppressed when skipping no-op commits", opts: []store.Option{store.WithSkipNoopNotify()}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := store.New(newBoard(), boardActions(), tt.opts...)
			sub := &counter{}
			s.Subscribe(sub)

			if err := s.Actions().Call("noop"); err != nil {
				t.Fatalf("Call() error = %v", err)
			}
			if sub.count() != tt.want {
				t.Errorf("notified %d times, want %d", sub.count(), tt.want)
			}
			if len(s.History()) != 1 {
				t.Errorf("History() has %d changes, want 1", len(s.History()))
			}
		})
	}
}

func TestHistory_InverseRestoresPreviousState(t *testing.T) {
	s := store.New(newBoard(), boardActions())
	before := s.State()

	if err := s.Actions().Call("addCard", "three"); err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if err := s.Actions().Call("rename", "renamed"); err != nil {
		t.Fatalf("Call() error = %v", err)
	}

	state := s.State()
	history := s.History()
	for i := len(history) - 1; i >= 0; i-- {
		var err error
		state, err = patch.Apply(state, history[i].Inverse)
		if err != nil {
			t.Fatalf("Apply(inverse %d) error = %v", i, err)
		}
	}

	if !reflect.DeepEqual(state, before) {
		t.Errorf("undone state = %+v, want %+v", state, before)
	}
	if history[0].Seq != 1 || history[1].Seq != 2 {
		t.Errorf("sequence numbers = %d, %d, want 1, 2", history[0].Seq, history[1].Seq)
	}
	if history[0].DispatchID == "" || history[0].DispatchID == history[1].DispatchID {
		t.Error("each commit should carry its own dispatch ID")
	}
}

func TestHistory_Limit(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{name: "bounded", limit: 2, want: 2},
		{name: "disabled", limit: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := store.New(newBoard(), boardActions(), store.WithHistoryLimit(tt.limit))
			for _, title := range []string{"a", "b", "c"} {
				if err := s.Actions().Call("rename", title); err != nil {
					t.Fatalf("Call() error = %v", err)
				}
			}

			history := s.History()
			if len(history) != tt.want {
				t.Fatalf("History() has %d changes, want %d", len(history), tt.want)
			}
			if tt.want > 0 && history[len(history)-1].Seq != 3 {
				t.Errorf("newest Seq = %d, want 3", history[len(history)-1].Seq)
			}
		})
	}
}

func TestUse(t *testing.T) {
	s := store.New(newBoard(), boardActions())

	first := s.Use()
	if err := first.Actions.Call("rename", "via view"); err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	second := s.Use()

	if first.State.Title != "retro" || second.State.Title != "via view" {
		t.Errorf("views = %q, %q, want retro, via view", first.State.Title, second.State.Title)
	}
	if first.Actions != second.Actions || first.Actions != s.Actions() {
		t.Error("Actions should be the same pointer across calls")
	}
}

func TestActions_Names(t *testing.T) {
	s := store.New(0, store.ActionMap[int]{
		"b": func(payload ...any) store.Recipe[int] { return nil },
		"a": func(payload ...any) store.Recipe[int] { return nil },
	})

	if got := s.Actions().Names(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Names() = %v, want [a b]", got)
	}
}

func TestStore_EmitsEvents(t *testing.T) {
	obs := &captureObserver{}
	s := store.New(newBoard(), boardActions(), store.WithObserver(obs))
	unsubscribe := s.Subscribe(&counter{})

	if err := s.Actions().Call("rename", "x"); err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	_ = s.Actions().Call("reject")
	unsubscribe()

	want := []observability.EventType{
		store.EventStoreCreate,
		store.EventSubscriberAdd,
		store.EventActionDispatch,
		store.EventActionCommit,
		store.EventNotify,
		store.EventActionDispatch,
		store.EventActionFail,
		store.EventSubscriberRemove,
	}
	if got := obs.types(); !reflect.DeepEqual(got, want) {
		t.Errorf("event types = %v, want %v", got, want)
	}

	obs.mu.Lock()
	defer obs.mu.Unlock()
	for _, e := range obs.events {
		if e.Source != "store" || e.StoreID != s.ID() {
			t.Errorf("event %s missing store identity: %+v", e.Type, e)
		}
	}
}

func TestStore_ConcurrentDispatch(t *testing.T) {
	actions := store.ActionMap[map[string]int]{
		"inc": func(payload ...any) store.Recipe[map[string]int] {
			key, _ := store.Arg[string](payload, 0)
			return func(draft *map[string]int) store.Outcome[map[string]int] {
				(*draft)[key]++
				return store.Done[map[string]int]()
			}
		},
	}
	s := store.New(map[string]int{}, actions)

	var wg sync.WaitGroup
	keys := []string{"a", "b", "c", "d"}
	for _, k := range keys {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Actions().Call("inc", k)
		}()
	}
	wg.Wait()

	got := s.State()
	for _, k := range keys {
		if got[k] != 1 {
			t.Errorf("State()[%q] = %d, want 1", k, got[k])
		}
	}
}
