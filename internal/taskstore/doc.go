// Package taskstore owns the task forest and applies every mutation to it.
//
// The [Store] holds the top-level tasks, each of which owns its subtasks,
// and keeps the derived dependency graph consistent with them. After every
// successful mutation it writes a full snapshot through a
// [snapshot.Storage]. A failed write is reported as a persistence error but
// the in-memory change is kept; the store favors availability over strict
// consistency with disk and logs the drift at ERROR.
//
// # Outcomes
//
// Lookups on unknown ids are not errors: Get, Update, Delete and MarkDone
// report absence with a false result. Malformed input is rejected with a
// validation error before anything changes. Impossible graph edits (unknown
// task or dependency, self-dependency, cycle, duplicate id) are rejected with
// a structural error whose reason code callers can branch on via
// errors.ReasonOf.
//
// # Propagation
//
// A task entering done removes itself from the blocked-by set of every
// dependent. Any subtask status change re-derives its parent's status
// ([task.RollupStatus]), walking up the id hierarchy; a parent rolled up into
// done unblocks its own dependents in turn.
//
// # Concurrency
//
// Methods are safe for concurrent use; writes are serialized by an internal
// lock and events are published after it is released, so handlers may call
// back into the store.
//
// # Basic Usage
//
//	store, err := taskstore.Open(snapshot.NewOSFile(".tasktree", ""), taskstore.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//
//	schema, _ := store.Create(taskstore.CreateParams{Name: "Schema", Priority: task.PriorityHigh})
//	api, _ := store.Create(taskstore.CreateParams{Name: "API", Dependencies: []string{schema.ID}})
//
//	next, ok := store.Next() // schema
//	store.MarkDone(schema.ID) // api is now executable
package taskstore
