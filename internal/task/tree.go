package task

// Walk visits every task in the forest in pre-order, parents before their
// subtasks. Returning false from fn stops the walk.
func Walk(forest []*Task, fn func(*Task) bool) bool {
	for _, t := range forest {
		if !fn(t) {
			return false
		}
		if !Walk(t.Subtasks, fn) {
			return false
		}
	}
	return true
}

// Flatten returns every task in the forest, parents before their subtasks.
func Flatten(forest []*Task) []*Task {
	var out []*Task
	Walk(forest, func(t *Task) bool {
		out = append(out, t)
		return true
	})
	return out
}

// Find returns the task with id anywhere in the forest.
func Find(forest []*Task, id string) *Task {
	var found *Task
	Walk(forest, func(t *Task) bool {
		if t.ID == id {
			found = t
			return false
		}
		return true
	})
	return found
}

// IDs returns every id in the forest in walk order.
func IDs(forest []*Task) []string {
	var out []string
	Walk(forest, func(t *Task) bool {
		out = append(out, t.ID)
		return true
	})
	return out
}

// RollupStatus derives a parent status from its direct children:
// all done gives done, otherwise any blocked gives blocked, otherwise any
// in_progress gives in_progress. The second result is false when no rule
// applies and the parent should keep its current status.
func RollupStatus(children []*Task) (Status, bool) {
	if len(children) == 0 {
		return "", false
	}
	allDone := true
	anyBlocked := false
	anyInProgress := false
	for _, c := range children {
		switch c.Status {
		case StatusDone:
		case StatusBlocked:
			allDone = false
			anyBlocked = true
		case StatusInProgress:
			allDone = false
			anyInProgress = true
		default:
			allDone = false
		}
	}
	switch {
	case allDone:
		return StatusDone, true
	case anyBlocked:
		return StatusBlocked, true
	case anyInProgress:
		return StatusInProgress, true
	}
	return "", false
}

// AllDone reports whether every task in the list is done. An empty list is
// trivially done.
func AllDone(tasks []*Task) bool {
	for _, t := range tasks {
		if t.Status != StatusDone {
			return false
		}
	}
	return true
}
