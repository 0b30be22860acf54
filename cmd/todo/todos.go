package main

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/tailored-agentic-units/store/store"
)

// Todo is a single list entry.
type Todo struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Done  bool   `json:"done"`
}

// State is the todo list held by the store.
type State struct {
	Todos  []Todo `json:"todos"`
	NextID int    `json:"next_id"`
}

var (
	errEmptyTitle = errors.New("title is empty")
	errNoSuchTodo = errors.New("no such todo")
)

var starterTodos = []string{
	"read the patch log",
	"subscribe a second view",
	"inspect the history over connect",
}

// newActions returns the todo action table. Import waits for delay, standing
// in for a slow remote fetch, then adds each starter todo through the store
// returned by self. Its own draft is stale by then, so it edits nothing.
func newActions(delay time.Duration, self func() *store.Store[State]) store.ActionMap[State] {
	return store.ActionMap[State]{
		"add": func(payload ...any) store.Recipe[State] {
			title, _ := store.Arg[string](payload, 0)
			title = strings.TrimSpace(title)
			return func(draft *State) store.Outcome[State] {
				if title == "" {
					return store.Fail[State](errEmptyTitle)
				}
				draft.add(title)
				return store.Done[State]()
			}
		},

		"toggle": func(payload ...any) store.Recipe[State] {
			id, _ := store.Arg[int](payload, 0)
			return func(draft *State) store.Outcome[State] {
				i := draft.index(id)
				if i < 0 {
					return store.Fail[State](errNoSuchTodo)
				}
				draft.Todos[i].Done = !draft.Todos[i].Done
				return store.Done[State]()
			}
		},

		"remove": func(payload ...any) store.Recipe[State] {
			id, _ := store.Arg[int](payload, 0)
			return func(draft *State) store.Outcome[State] {
				i := draft.index(id)
				if i < 0 {
					return store.Fail[State](errNoSuchTodo)
				}
				draft.Todos = slices.Delete(draft.Todos, i, i+1)
				return store.Done[State]()
			}
		},

		"clear_done": func(payload ...any) store.Recipe[State] {
			return func(draft *State) store.Outcome[State] {
				draft.Todos = slices.DeleteFunc(draft.Todos, func(t Todo) bool { return t.Done })
				return store.Done[State]()
			}
		},

		"import": func(payload ...any) store.Recipe[State] {
			return func(draft *State) store.Outcome[State] {
				return store.Defer(func(ctx context.Context, _ *State) store.Outcome[State] {
					select {
					case <-ctx.Done():
						return store.Fail[State](ctx.Err())
					case <-time.After(delay):
					}
					for _, title := range starterTodos {
						if err := self().Dispatch(ctx, "add", title); err != nil {
							return store.Fail[State](err)
						}
					}
					return store.Done[State]()
				})
			}
		},

		"reset": func(payload ...any) store.Recipe[State] {
			return func(draft *State) store.Outcome[State] {
				return store.Replace(State{})
			}
		},
	}
}

func (s *State) add(title string) {
	s.NextID++
	s.Todos = append(s.Todos, Todo{ID: s.NextID, Title: title})
}

func (s *State) index(id int) int {
	return slices.IndexFunc(s.Todos, func(t Todo) bool { return t.ID == id })
}

// remaining counts todos not yet done.
func (s State) remaining() int {
	n := 0
	for _, t := range s.Todos {
		if !t.Done {
			n++
		}
	}
	return n
}
