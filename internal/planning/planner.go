package planning

import (
	"context"
	"slices"

	"github.com/sourcegraph/conc/pool"

	"github.com/Iron-Ham/tasktree/internal/errors"
	"github.com/Iron-Ham/tasktree/internal/logging"
	"github.com/Iron-Ham/tasktree/internal/snapshot"
	"github.com/Iron-Ham/tasktree/internal/task"
	"github.com/Iron-Ham/tasktree/internal/taskid"
	"github.com/Iron-Ham/tasktree/internal/taskstore"
)

// Target is the store surface the planner writes into. *taskstore.Store
// satisfies it.
type Target interface {
	Get(id string) (*task.Task, bool)
	Forest() []*task.Task
	Import(records []snapshot.Record) (taskstore.ImportResult, error)
	ApplyExpansion(parentID string, records []snapshot.Record) ([]*task.Task, error)
	Clear() error
}

// Planner runs decomposition and expansion collaborators against a Target.
type Planner struct {
	target Target
	opts   Options
	logger *logging.Logger
}

// NewPlanner creates a Planner. A nil logger discards output.
func NewPlanner(target Target, opts Options, logger *logging.Logger) *Planner {
	if logger == nil {
		logger = logging.NopLogger()
	}
	if n := NormalizeNumSubtasks(opts.NumSubtasks); n != opts.NumSubtasks {
		logger.Warn("subtask count out of range, using fallback", "requested", opts.NumSubtasks, "using", n)
		opts.NumSubtasks = n
	}
	return &Planner{
		target: target,
		opts:   opts,
		logger: logger.WithComponent("planning"),
	}
}

// Decompose runs d over document and imports the records it proposes. With
// replace set every existing task is cleared first.
func (p *Planner) Decompose(ctx context.Context, d Decomposer, document string, replace bool) (taskstore.ImportResult, error) {
	log := p.logger.WithOperation("decompose")
	records, err := d.Decompose(ctx, document)
	if err != nil {
		log.Error("decomposition failed", "error", err)
		return taskstore.ImportResult{}, errors.Wrap(err, "decompose document")
	}
	log.Info("decomposition proposed tasks", "count", len(records))

	if replace {
		if err := p.target.Clear(); err != nil {
			return taskstore.ImportResult{}, err
		}
	}
	return p.target.Import(records)
}

// ExpansionResult is the outcome of expanding one parent.
type ExpansionResult struct {
	ParentID string
	Added    []*task.Task
	Err      error
}

// Expand asks e for subtasks of parentID and appends them. An expander that
// proposes nothing leaves the parent unchanged.
func (p *Planner) Expand(ctx context.Context, e Expander, parentID, document string) ([]*task.Task, error) {
	log := p.logger.WithOperation("expand").WithTask(parentID)

	parent, ok := p.target.Get(parentID)
	if !ok {
		return nil, errors.TaskNotFound(parentID)
	}
	req := NewExpansionRequest(parent, p.target.Forest(), document, p.opts)

	records, err := e.Expand(ctx, req)
	if err != nil {
		log.Error("expansion failed", "error", err)
		return nil, errors.Wrapf(err, "expand task %s", parentID)
	}
	if len(records) == 0 {
		log.Info("expander proposed no subtasks")
		return nil, nil
	}
	log.Debug("expander proposed subtasks", "count", len(records), "requested", req.NumSubtasks)
	return p.target.ApplyExpansion(parentID, records)
}

// ExpandAll expands every parent in parentIDs with at most
// Options.MaxParallel expander calls in flight. Results follow the input
// order; one failed parent does not stop the others. Cancelling ctx stops
// parents that have not started.
func (p *Planner) ExpandAll(ctx context.Context, e Expander, parentIDs []string, document string) []ExpansionResult {
	results := make([]ExpansionResult, len(parentIDs))
	workers := pool.New().WithContext(ctx).WithMaxGoroutines(p.opts.maxParallel())
	for i, id := range parentIDs {
		workers.Go(func(ctx context.Context) error {
			results[i].ParentID = id
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			results[i].Added, results[i].Err = p.Expand(ctx, e, id, document)
			return nil
		})
	}
	_ = workers.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	p.logger.WithOperation("expand").Info("expansion batch finished",
		"parents", len(parentIDs),
		"failed", failed)
	return results
}

// PendingParents returns the top-level tasks worth expanding: not yet
// broken down and not finished or cancelled, in id order.
func (p *Planner) PendingParents() []string {
	var out []string
	for _, t := range p.target.Forest() {
		if t.HasSubtasks() || t.Status == task.StatusDone || t.Status == task.StatusCancelled {
			continue
		}
		if taskid.IsTopLevel(t.ID) {
			out = append(out, t.ID)
		}
	}
	return out
}

func sortIDs(ids []string) []string {
	slices.SortFunc(ids, taskid.Compare)
	return ids
}
