package observability

import "context"

// Discard drops every event. Stores built without an observer use it.
var Discard Observer = ObserverFunc(func(context.Context, Event) {})

// Fanout returns an observer that hands each event to every non-nil observer
// in argument order. With nothing left it returns Discard, and with a single
// observer it returns that observer.
func Fanout(observers ...Observer) Observer {
	list := make(fanout, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			list = append(list, o)
		}
	}

	switch len(list) {
	case 0:
		return Discard
	case 1:
		return list[0]
	}
	return list
}

type fanout []Observer

func (f fanout) OnEvent(ctx context.Context, event Event) {
	for _, o := range f {
		o.OnEvent(ctx, event)
	}
}
