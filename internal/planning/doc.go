// Package planning connects the task store to the collaborators that propose
// work: a decomposer that turns a requirements document into top-level
// records, and an expander that proposes subtasks for one parent.
//
// Collaborators return loosely shaped data. [DecodeRecords] normalizes it into
// [snapshot.Record] values, accepting common field aliases ("title" for
// name, "depends_on" for dependencies) and numbers where strings are
// expected. Documents may be JSON, YAML or TOML.
//
// A [Planner] drives the collaborators against a store:
//
//	p := planning.NewPlanner(store, planning.DefaultOptions(), logger)
//	result, err := p.Decompose(ctx, planning.TextDecomposer{Format: planning.FormatYAML}, doc, false)
//	...
//	results := p.ExpandAll(ctx, expander, p.PendingParents(), doc)
//
// ExpandAll calls the expander for several parents concurrently, bounded by
// Options.MaxParallel; the store serializes the resulting writes.
package planning
