// Package task defines the Task entity and its enums.
//
// A [Task] holds descriptive metadata, a declared dependency set, a live
// blocked-by set, and an owned list of subtasks. Mutators never touch other
// tasks: propagating readiness between tasks is the store's job, using the
// dependency graph.
//
// Every mutator takes the current time explicitly so callers control the
// clock:
//
//	t := task.New(task.Params{ID: "1", Name: "Schema"}, now)
//	t.AddDependency("2", now)
//	t.IsExecutable() // false until "2" is removed from BlockedBy
//
// [RollupStatus] implements the children-to-parent status rules.
package task
