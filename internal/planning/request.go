package planning

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/Iron-Ham/tasktree/internal/snapshot"
	"github.com/Iron-Ham/tasktree/internal/task"
	"github.com/Iron-Ham/tasktree/internal/taskid"
)

// Decomposer turns a requirements document into candidate top-level records.
type Decomposer interface {
	Decompose(ctx context.Context, document string) ([]snapshot.Record, error)
}

// Expander proposes subtask records for the parent described by req.
type Expander interface {
	Expand(ctx context.Context, req ExpansionRequest) ([]snapshot.Record, error)
}

// ExpansionRequest is everything an expander is given. Context is passed
// explicitly; nothing is read from process-wide state.
type ExpansionRequest struct {
	Parent      snapshot.Record
	Siblings    []SiblingSummary
	Context     string
	NumSubtasks int
}

// SiblingSummary is a short description of one top-level task.
type SiblingSummary struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Summary string `json:"summary" yaml:"summary"`
}

const (
	DefaultNumSubtasks  = 5
	FallbackNumSubtasks = 3
	MaxNumSubtasks      = 10
	DefaultContextChars = 2000
	DefaultMaxParallel  = 3

	// TruncationSuffix marks a context cut at its character limit.
	TruncationSuffix = "...(truncated)"

	summaryChars = 100
)

// Options tunes expansion.
type Options struct {
	NumSubtasks  int
	ContextChars int
	MaxParallel  int
}

// DefaultOptions returns the stock expansion settings.
func DefaultOptions() Options {
	return Options{
		NumSubtasks:  DefaultNumSubtasks,
		ContextChars: DefaultContextChars,
		MaxParallel:  DefaultMaxParallel,
	}
}

func (o Options) maxParallel() int {
	if o.MaxParallel < 1 {
		return 1
	}
	return o.MaxParallel
}

// NormalizeNumSubtasks keeps n when it is between 1 and MaxNumSubtasks and
// falls back to FallbackNumSubtasks otherwise.
func NormalizeNumSubtasks(n int) int {
	if n < 1 || n > MaxNumSubtasks {
		return FallbackNumSubtasks
	}
	return n
}

// TruncateContext cuts text to limit characters and appends TruncationSuffix
// when anything was dropped. A non-positive limit keeps the text whole.
func TruncateContext(text string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit]) + TruncationSuffix
}

// NewExpansionRequest builds the request for expanding parent. Siblings are
// the top-level tasks of forest, summarized by the first line of their
// descriptions.
func NewExpansionRequest(parent *task.Task, forest []*task.Task, document string, opts Options) ExpansionRequest {
	req := ExpansionRequest{
		Parent:      snapshot.ToRecord(parent),
		Context:     TruncateContext(document, opts.ContextChars),
		NumSubtasks: NormalizeNumSubtasks(opts.NumSubtasks),
	}
	for _, t := range forest {
		if !taskid.IsTopLevel(t.ID) {
			continue
		}
		req.Siblings = append(req.Siblings, SiblingSummary{
			ID:      t.ID,
			Name:    t.Name,
			Summary: summarize(t.Description),
		})
	}
	return req
}

func summarize(description string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(description), "\n")
	if utf8.RuneCountInString(line) <= summaryChars {
		return line
	}
	return string([]rune(line)[:summaryChars]) + "..."
}
