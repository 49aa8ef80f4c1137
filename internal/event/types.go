package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "task.created", "store.loaded")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type identifiers.
const (
	TypeTaskCreated       = "task.created"
	TypeTaskUpdated       = "task.updated"
	TypeTaskDeleted       = "task.deleted"
	TypeTaskCompleted     = "task.completed"
	TypeDependencyAdded   = "dependency.added"
	TypeDependencyRemoved = "dependency.removed"
	TypeStoreLoaded       = "store.loaded"
	TypeStoreCleared      = "store.cleared"
	TypePersistFailed     = "store.persist_failed"
	TypeSnapshotChanged   = "snapshot.changed"
)

// baseEvent provides common fields for all events.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Task Lifecycle Events
// -----------------------------------------------------------------------------

// TaskCreatedEvent is emitted after a task is added to the store.
type TaskCreatedEvent struct {
	baseEvent
	TaskID   string
	ParentID string // empty for top-level tasks
	Name     string
}

// NewTaskCreatedEvent creates a TaskCreatedEvent.
func NewTaskCreatedEvent(taskID, parentID, name string) TaskCreatedEvent {
	return TaskCreatedEvent{
		baseEvent: newBaseEvent(TypeTaskCreated),
		TaskID:    taskID,
		ParentID:  parentID,
		Name:      name,
	}
}

// TaskUpdatedEvent is emitted after any field of a task changes.
type TaskUpdatedEvent struct {
	baseEvent
	TaskID string
	Fields []string // names of the fields that were set
	From   string   // previous status
	To     string   // current status
	Synced bool     // true when the change came from parent status sync
}

// NewTaskUpdatedEvent creates a TaskUpdatedEvent.
func NewTaskUpdatedEvent(taskID string, fields []string, from, to string, synced bool) TaskUpdatedEvent {
	return TaskUpdatedEvent{
		baseEvent: newBaseEvent(TypeTaskUpdated),
		TaskID:    taskID,
		Fields:    fields,
		From:      from,
		To:        to,
		Synced:    synced,
	}
}

// TaskDeletedEvent is emitted after a task and its subtree are removed.
type TaskDeletedEvent struct {
	baseEvent
	TaskID  string
	Removed []string // every id removed, the task's subtree included
}

// NewTaskDeletedEvent creates a TaskDeletedEvent.
func NewTaskDeletedEvent(taskID string, removed []string) TaskDeletedEvent {
	return TaskDeletedEvent{
		baseEvent: newBaseEvent(TypeTaskDeleted),
		TaskID:    taskID,
		Removed:   removed,
	}
}

// TaskCompletedEvent is emitted when a task transitions into done.
type TaskCompletedEvent struct {
	baseEvent
	TaskID    string
	Unblocked []string // dependents whose blocked_by lost this task
	Synced    bool     // true when completion came from parent status sync
}

// NewTaskCompletedEvent creates a TaskCompletedEvent.
func NewTaskCompletedEvent(taskID string, unblocked []string, synced bool) TaskCompletedEvent {
	return TaskCompletedEvent{
		baseEvent: newBaseEvent(TypeTaskCompleted),
		TaskID:    taskID,
		Unblocked: unblocked,
		Synced:    synced,
	}
}

// -----------------------------------------------------------------------------
// Dependency Events
// -----------------------------------------------------------------------------

// DependencyAddedEvent is emitted after TaskID starts depending on DependsOnID.
type DependencyAddedEvent struct {
	baseEvent
	TaskID      string
	DependsOnID string
	Blocking    bool // false when the dependency was already done
}

// NewDependencyAddedEvent creates a DependencyAddedEvent.
func NewDependencyAddedEvent(taskID, dependsOnID string, blocking bool) DependencyAddedEvent {
	return DependencyAddedEvent{
		baseEvent:   newBaseEvent(TypeDependencyAdded),
		TaskID:      taskID,
		DependsOnID: dependsOnID,
		Blocking:    blocking,
	}
}

// DependencyRemovedEvent is emitted after a dependency edge is dropped.
type DependencyRemovedEvent struct {
	baseEvent
	TaskID      string
	DependsOnID string
}

// NewDependencyRemovedEvent creates a DependencyRemovedEvent.
func NewDependencyRemovedEvent(taskID, dependsOnID string) DependencyRemovedEvent {
	return DependencyRemovedEvent{
		baseEvent:   newBaseEvent(TypeDependencyRemoved),
		TaskID:      taskID,
		DependsOnID: dependsOnID,
	}
}

// -----------------------------------------------------------------------------
// Store Events
// -----------------------------------------------------------------------------

// StoreLoadedEvent is emitted after a snapshot replaces in-memory state.
type StoreLoadedEvent struct {
	baseEvent
	Location  string
	TaskCount int // every task, nested included
	Cycles    int // dependency cycles found in the loaded data
}

// NewStoreLoadedEvent creates a StoreLoadedEvent.
func NewStoreLoadedEvent(location string, taskCount, cycles int) StoreLoadedEvent {
	return StoreLoadedEvent{
		baseEvent: newBaseEvent(TypeStoreLoaded),
		Location:  location,
		TaskCount: taskCount,
		Cycles:    cycles,
	}
}

// StoreClearedEvent is emitted after every task is dropped.
type StoreClearedEvent struct {
	baseEvent
	Removed int
}

// NewStoreClearedEvent creates a StoreClearedEvent.
func NewStoreClearedEvent(removed int) StoreClearedEvent {
	return StoreClearedEvent{
		baseEvent: newBaseEvent(TypeStoreCleared),
		Removed:   removed,
	}
}

// PersistFailedEvent is emitted when a snapshot write fails. In-memory state
// has diverged from disk until the next successful write.
type PersistFailedEvent struct {
	baseEvent
	Location string
	Err      error
}

// NewPersistFailedEvent creates a PersistFailedEvent.
func NewPersistFailedEvent(location string, err error) PersistFailedEvent {
	return PersistFailedEvent{
		baseEvent: newBaseEvent(TypePersistFailed),
		Location:  location,
		Err:       err,
	}
}

// SnapshotChangedEvent is emitted by the watcher when the snapshot file is
// modified by another process.
type SnapshotChangedEvent struct {
	baseEvent
	Path string
	Op   string // fsnotify operation (WRITE, CREATE, RENAME, REMOVE)
}

// NewSnapshotChangedEvent creates a SnapshotChangedEvent.
func NewSnapshotChangedEvent(path, op string) SnapshotChangedEvent {
	return SnapshotChangedEvent{
		baseEvent: newBaseEvent(TypeSnapshotChanged),
		Path:      path,
		Op:        op,
	}
}
