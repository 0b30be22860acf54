package store

import (
	"fmt"
	"slices"
)

// Action is a bound dispatcher for one named action. It returns once the
// action has committed, or immediately for deferred actions.
type Action func(payload ...any) error

// Actions is the fixed set of bound dispatchers built when the store is
// created. The same *Actions is returned for the lifetime of the store.
type Actions struct {
	bound map[string]Action
	names []string
}

// Get returns the bound dispatcher for name, or ErrUnknownAction.
func (a *Actions) Get(name string) (Action, error) {
	act, ok := a.bound[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, name)
	}
	return act, nil
}

// Call dispatches the named action with payload.
func (a *Actions) Call(name string, payload ...any) error {
	act, err := a.Get(name)
	if err != nil {
		return err
	}
	return act(payload...)
}

// Names returns the declared action names in sorted order.
func (a *Actions) Names() []string {
	return slices.Clone(a.names)
}
