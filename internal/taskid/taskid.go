// Package taskid implements the hierarchical identifier scheme used by tasks.
//
// A top-level id is a positive integer without leading zeros ("1", "12").
// A child id appends a dot and a positive integer to its parent's id
// ("1.3", "1.3.2"). The parent of any id is derived purely from the string,
// so no task ever stores a pointer to its parent.
//
// Usage:
//
//	id := taskid.Next(existing)          // "4" when existing holds 1..3
//	sub := taskid.NextChild(id, nil)     // "4.1"
//	parent, ok := taskid.Parent("4.1")   // "4", true
package taskid

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Separator joins id segments.
const Separator = "."

var pattern = regexp.MustCompile(`^[1-9][0-9]*(\.[1-9][0-9]*)*$`)

// Valid reports whether id is well-formed.
func Valid(id string) bool {
	return pattern.MatchString(id)
}

// Segments splits a well-formed id into its numeric segments.
// It returns an error for malformed ids.
func Segments(id string) ([]int, error) {
	if !Valid(id) {
		return nil, fmt.Errorf("malformed task id %q", id)
	}
	parts := strings.Split(id, Separator)
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("malformed task id %q: %w", id, err)
		}
		out[i] = n
	}
	return out, nil
}

// IsTopLevel reports whether id has no parent.
func IsTopLevel(id string) bool {
	return !strings.Contains(id, Separator)
}

// Parent returns id with its last segment removed. Top-level ids have no parent.
func Parent(id string) (string, bool) {
	i := strings.LastIndex(id, Separator)
	if i < 0 {
		return "", false
	}
	return id[:i], true
}

// Root returns the top-level ancestor of id (id itself when top-level).
func Root(id string) string {
	if i := strings.Index(id, Separator); i >= 0 {
		return id[:i]
	}
	return id
}

// Depth returns the number of segments in id, 1 for top-level ids.
func Depth(id string) int {
	if id == "" {
		return 0
	}
	return strings.Count(id, Separator) + 1
}

// Ancestors returns the chain of ids from the root down to the parent of id.
// Top-level ids have no ancestors.
func Ancestors(id string) []string {
	var out []string
	for i := 0; i < len(id); i++ {
		if id[i] == '.' {
			out = append(out, id[:i])
		}
	}
	return out
}

// IsDescendant reports whether id lies strictly below ancestor.
func IsDescendant(id, ancestor string) bool {
	return ancestor != "" && strings.HasPrefix(id, ancestor+Separator)
}

// IsDirectChild reports whether id is an immediate child of parent.
func IsDirectChild(id, parent string) bool {
	p, ok := Parent(id)
	return ok && p == parent
}

// Child builds the id of the n-th child of parent.
func Child(parent string, n int) string {
	return parent + Separator + strconv.Itoa(n)
}

// Last returns the numeric value of the final segment of id, or 0 if the
// segment is not numeric.
func Last(id string) int {
	seg := id
	if i := strings.LastIndex(id, Separator); i >= 0 {
		seg = id[i+1:]
	}
	n, err := strconv.Atoi(seg)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Next returns the next top-level id: one more than the largest numeric
// top-level segment among existing, or "1" when none exist. Dotted ids count
// through their leading segment; non-numeric ids are ignored.
func Next(existing []string) string {
	highest := 0
	for _, id := range existing {
		n, err := strconv.Atoi(Root(id))
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return strconv.Itoa(highest + 1)
}

// NextChild returns the next child id of parent: one more than the largest
// final segment among the direct children of parent in existing.
func NextChild(parent string, existing []string) string {
	highest := 0
	for _, id := range existing {
		if !IsDirectChild(id, parent) {
			continue
		}
		if n := Last(id); n > highest {
			highest = n
		}
	}
	return Child(parent, highest+1)
}

// Compare orders ids segment by segment numerically, so "1.10" sorts after
// "1.9" and "2" sorts after "1.5". Malformed ids fall back to string order
// after all well-formed ids.
func Compare(a, b string) int {
	sa, errA := Segments(a)
	sb, errB := Segments(b)
	switch {
	case errA != nil && errB != nil:
		return strings.Compare(a, b)
	case errA != nil:
		return 1
	case errB != nil:
		return -1
	}
	for i := 0; i < len(sa) && i < len(sb); i++ {
		if sa[i] != sb[i] {
			if sa[i] < sb[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(sa) < len(sb):
		return -1
	case len(sa) > len(sb):
		return 1
	}
	return 0
}

// Less reports whether a orders before b under Compare.
func Less(a, b string) bool {
	return Compare(a, b) < 0
}
