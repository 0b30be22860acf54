package store

import "github.com/tailored-agentic-units/store/observability"

// Store event types.
const (
	EventStoreCreate observability.EventType = "store.create"
	EventNotify      observability.EventType = "store.notify"

	EventActionDispatch observability.EventType = "action.dispatch"
	EventActionDefer    observability.EventType = "action.defer"
	EventActionCommit   observability.EventType = "action.commit"
	EventActionFail     observability.EventType = "action.fail"
	EventActionReject   observability.EventType = "action.reject"

	EventSubscriberAdd    observability.EventType = "subscriber.add"
	EventSubscriberRemove observability.EventType = "subscriber.remove"
)
