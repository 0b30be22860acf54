// Package store provides a patch-tracking state container.
//
// A Store holds one immutable snapshot of caller-defined state S. The only way
// to change it is through named actions supplied at construction. Each action
// is a factory that turns a payload into a Recipe; the recipe receives a draft
// (a private deep copy of the current snapshot) and describes the transition by
// editing the draft, returning a replacement, or deferring to asynchronous
// work.
//
// # Update Protocol
//
//	Dispatch("add", "milk")
//	    → recipe := actions["add"]("milk")
//	    → draft  := Clone(current)
//	    → out    := recipe(&draft)
//	    → Done:    patches := Diff(base, draft); current = Apply(current, patches)
//	      Replace: current = value
//	      Defer:   goroutine resolves, then the same commit path
//	      Fail:    nothing committed
//	    → subscribers notified once per commit
//
// Each dispatch owns its patch buffer. A deferred action that resolves after
// other actions have committed applies only its own patches, on top of
// whatever snapshot is current at that moment, so later writes to the same
// path win and unrelated edits are preserved.
//
// # Basic Usage
//
//	type Counter struct{ N int }
//
//	s := store.New(Counter{}, store.ActionMap[Counter]{
//		"inc": func(payload ...any) store.Recipe[Counter] {
//			by, _ := store.Arg[int](payload, 0)
//			return func(draft *Counter) store.Outcome[Counter] {
//				draft.N += by
//				return store.Done[Counter]()
//			}
//		},
//	})
//
//	unsubscribe := s.Subscribe(store.Func(func() {
//		fmt.Println("count:", s.State().N)
//	}))
//	defer unsubscribe()
//
//	_ = s.Actions().Call("inc", 2)
//
// # Notification
//
// Subscribers are notified after every commit, including commits whose
// patch set is empty. WithSkipNoopNotify (or Config.SkipNoopNotify) opts out
// of notifying for empty draft commits. Failed and rejected actions never
// notify.
//
// # History
//
// Every commit is recorded as a Change carrying its forward and inverse
// patches. The store does not offer undo; applying a Change's Inverse with
// patch.Apply is the building block for one.
//
// # Concurrency
//
// The state cell, subscriber registry and in-flight counter are guarded
// independently, and no lock is held while recipes or subscribers run, so
// subscribers may read state and dispatch further actions. Settle waits for
// all deferred dispatches to finish.
package store
