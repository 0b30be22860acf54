package store

import "sync"

// Subscriber is notified after every committed state transition. Identity is
// the interface value itself: subscribing the same value twice registers it
// once. Values that cannot be compared are registered every time and can only
// be removed through the function Subscribe returned.
type Subscriber interface {
	OnChange()
}

type funcSubscriber struct {
	fn func()
}

func (f *funcSubscriber) OnChange() { f.fn() }

// Func wraps fn in a new Subscriber. Each call returns a distinct identity;
// keep the returned value to subscribe or unsubscribe it again.
func Func(fn func()) Subscriber {
	return &funcSubscriber{fn: fn}
}

type registration struct {
	id  uint64
	sub Subscriber
}

// registry is an insertion-ordered set of subscribers.
type registry struct {
	mu      sync.RWMutex
	entries []registration
	nextID  uint64
}

// add registers sub and returns its registration ID along with whether a new
// registration was created.
func (r *registry) add(sub Subscriber) (uint64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if sameSubscriber(e.sub, sub) {
			return e.id, false
		}
	}

	r.nextID++
	r.entries = append(r.entries, registration{id: r.nextID, sub: sub})
	return r.nextID, true
}

// release drops the registration with id, or failing that the registration of
// sub itself, so an unsubscribe function still works after sub was removed
// and subscribed again.
func (r *registry) release(id uint64, sub Subscriber) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i := r.find(func(e registration) bool { return e.id == id }); i >= 0 {
		r.drop(i)
		return true
	}
	if i := r.find(func(e registration) bool { return sameSubscriber(e.sub, sub) }); i >= 0 {
		r.drop(i)
		return true
	}
	return false
}

func (r *registry) remove(sub Subscriber) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i := r.find(func(e registration) bool { return sameSubscriber(e.sub, sub) }); i >= 0 {
		r.drop(i)
		return true
	}
	return false
}

func (r *registry) find(match func(registration) bool) int {
	for i, e := range r.entries {
		if match(e) {
			return i
		}
	}
	return -1
}

func (r *registry) drop(i int) {
	r.entries = append(r.entries[:i:i], r.entries[i+1:]...)
}

func (r *registry) snapshot() []Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := make([]Subscriber, len(r.entries))
	for i, e := range r.entries {
		subs[i] = e.sub
	}
	return subs
}

func (r *registry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// sameSubscriber compares two subscribers by interface equality. Values whose
// dynamic type cannot be compared at run time, such as a struct holding a
// func in an interface field, are never equal to anything.
func sameSubscriber(a, b Subscriber) (eq bool) {
	if a == nil || b == nil {
		return false
	}
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return a == b
}
