package inspect_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/tailored-agentic-units/store/inspect"
	"github.com/tailored-agentic-units/store/patch"
	"github.com/tailored-agentic-units/store/store"
)

type loan struct {
	Reader  string `json:"reader"`
	DueDays int    `json:"due_days"`
}

type shelf struct {
	Name  string         `json:"name"`
	Books []string       `json:"books"`
	Stock map[string]int `json:"stock"`
	Loans []loan         `json:"loans"`
}

func shelfActions() store.ActionMap[shelf] {
	return store.ActionMap[shelf]{
		"shelve": func(payload ...any) store.Recipe[shelf] {
			title, _ := store.Arg[string](payload, 0)
			count, _ := store.Arg[int](payload, 1)
			return func(draft *shelf) store.Outcome[shelf] {
				draft.Books = append(draft.Books, title)
				if draft.Stock == nil {
					draft.Stock = map[string]int{}
				}
				draft.Stock[title] = count
				return store.Done[shelf]()
			}
		},
		"lend": func(payload ...any) store.Recipe[shelf] {
			reader, _ := store.Arg[string](payload, 0)
			days, _ := store.Arg[int](payload, 1)
			return func(draft *shelf) store.Outcome[shelf] {
				draft.Loans = append(draft.Loans, loan{Reader: reader, DueDays: days})
				return store.Done[shelf]()
			}
		},
		"refuse": func(payload ...any) store.Recipe[shelf] {
			return func(draft *shelf) store.Outcome[shelf] {
				return store.Fail[shelf](errors.New("shelf is locked"))
			}
		},
		"restock": func(payload ...any) store.Recipe[shelf] {
			return func(draft *shelf) store.Outcome[shelf] {
				return store.Defer(func(ctx context.Context, draft *shelf) store.Outcome[shelf] {
					select {
					case <-ctx.Done():
						return store.Fail[shelf](ctx.Err())
					case <-time.After(10 * time.Millisecond):
					}
					draft.Name = "restocked"
					return store.Done[shelf]()
				})
			}
		},
	}
}

func newServer(t *testing.T) (*store.Store[shelf], *inspect.Client) {
	t.Helper()

	s := store.New(shelf{Name: "fiction", Books: []string{}}, shelfActions())

	mux := http.NewServeMux()
	mux.Handle(inspect.NewHandler(s))
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return s, inspect.NewClient(server.Client(), server.URL)
}

func TestClient_State(t *testing.T) {
	s, client := newServer(t)

	var got shelf
	id, err := client.State(context.Background(), &got)
	if err != nil {
		t.Fatalf("State() error = %v", err)
	}

	if id != s.ID() {
		t.Errorf("id = %q, want %q", id, s.ID())
	}
	if got.Name != "fiction" {
		t.Errorf("Name = %q, want fiction", got.Name)
	}
}

func TestClient_Dispatch(t *testing.T) {
	s, client := newServer(t)

	if err := client.Dispatch(context.Background(), "shelve", "dune", 3); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	want := shelf{Name: "fiction", Books: []string{"dune"}, Stock: map[string]int{"dune": 3}}
	if !reflect.DeepEqual(s.State(), want) {
		t.Errorf("State() = %+v, want %+v", s.State(), want)
	}

	var remote shelf
	if _, err := client.State(context.Background(), &remote); err != nil {
		t.Fatalf("State() error = %v", err)
	}
	if !reflect.DeepEqual(remote, want) {
		t.Errorf("remote state = %+v, want %+v", remote, want)
	}
}

func TestClient_DispatchDeferredOutlivesRequest(t *testing.T) {
	s, client := newServer(t)

	if err := client.Dispatch(context.Background(), "restock"); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Settle(ctx); err != nil {
		t.Fatalf("Settle() error = %v", err)
	}

	if s.State().Name != "restocked" {
		t.Errorf("Name = %q, want restocked", s.State().Name)
	}
}

func TestClient_DispatchErrors(t *testing.T) {
	tests := []struct {
		name   string
		action string
		want   connect.Code
	}{
		{name: "missing action", action: "", want: connect.CodeInvalidArgument},
		{name: "unknown action", action: "burn", want: connect.CodeNotFound},
		{name: "rejected", action: "refuse", want: connect.CodeFailedPrecondition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, client := newServer(t)

			err := client.Dispatch(context.Background(), tt.action)
			if got := connect.CodeOf(err); got != tt.want {
				t.Errorf("CodeOf(%v) = %v, want %v", err, got, tt.want)
			}
		})
	}
}

func TestClient_History(t *testing.T) {
	s, client := newServer(t)
	before := s.State()

	for _, title := range []string{"dune", "emma"} {
		if err := client.Dispatch(context.Background(), "shelve", title, 1); err != nil {
			t.Fatalf("Dispatch() error = %v", err)
		}
	}

	changes, err := client.History(context.Background())
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(changes) != 2 {
		t.Fatalf("got %d changes, want 2", len(changes))
	}
	if changes[0].Action != "shelve" || changes[1].Seq != 2 {
		t.Errorf("changes = %+v", changes)
	}
	if changes[0].CommittedAt.IsZero() {
		t.Error("CommittedAt should survive the round trip")
	}

	state := s.State()
	for i := len(changes) - 1; i >= 0; i-- {
		state, err = patch.Apply(state, changes[i].Inverse)
		if err != nil {
			t.Fatalf("Apply(remote inverse %d) error = %v", i, err)
		}
	}
	if state.Name != before.Name || len(state.Books) != 0 || state.Stock != nil {
		t.Errorf("undone state = %+v, want %+v", state, before)
	}
}

func TestClient_HistoryReplaysStructValues(t *testing.T) {
	s, client := newServer(t)
	before := s.State()

	ctx := context.Background()
	for _, call := range [][]any{{"lend", "ada", 14}, {"lend", "bo", 7}, {"shelve", "dune", 2}} {
		if err := client.Dispatch(ctx, call[0].(string), call[1:]...); err != nil {
			t.Fatalf("Dispatch(%v) error = %v", call, err)
		}
	}

	changes, err := client.History(ctx)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}

	replayed := before
	for _, c := range changes {
		replayed, err = patch.Apply(replayed, c.Patches)
		if err != nil {
			t.Fatalf("Apply(remote change %d) error = %v", c.Seq, err)
		}
	}
	if !reflect.DeepEqual(replayed, s.State()) {
		t.Errorf("replayed = %+v, want %+v", replayed, s.State())
	}

	for i := len(changes) - 1; i >= 0; i-- {
		replayed, err = patch.Apply(replayed, changes[i].Inverse)
		if err != nil {
			t.Fatalf("Apply(remote inverse %d) error = %v", i, err)
		}
	}
	if !reflect.DeepEqual(replayed, before) {
		t.Errorf("undone = %+v, want %+v", replayed, before)
	}
}
