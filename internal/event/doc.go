// Package event provides a pub-sub event bus for decoupled communication
// between the task store and its observers (CLI watch output, the board,
// logging).
//
// # Main Types
//
//   - [Event]: Interface that all events must implement, providing EventType() and Timestamp()
//   - [Bus]: Synchronous pub-sub event dispatcher with thread-safe operations
//   - [Handler]: Function type for event handlers (func(Event))
//
// # Event Categories
//
// Task lifecycle:
//   - [TaskCreatedEvent], [TaskUpdatedEvent], [TaskDeletedEvent], [TaskCompletedEvent]
//
// Dependencies:
//   - [DependencyAddedEvent], [DependencyRemovedEvent]
//
// Store:
//   - [StoreLoadedEvent], [StoreClearedEvent], [PersistFailedEvent], [SnapshotChangedEvent]
//
// # Thread Safety
//
// The [Bus] type is safe for concurrent use. Handlers are called
// synchronously on the publishing goroutine and protected against panics.
// The store publishes after releasing its lock, so handlers may read from
// the store.
//
// # Basic Usage
//
//	bus := event.NewBus()
//
//	bus.Subscribe(event.TypeTaskCompleted, func(e event.Event) {
//	    done := e.(event.TaskCompletedEvent)
//	    log.Printf("task %s done, unblocked %v", done.TaskID, done.Unblocked)
//	})
//
//	id := bus.SubscribeAll(func(e event.Event) {
//	    log.Printf("event: %s at %v", e.EventType(), e.Timestamp())
//	})
//	bus.Unsubscribe(id)
package event
