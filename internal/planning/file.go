package planning

import (
	"context"

	"github.com/spf13/afero"

	"github.com/Iron-Ham/tasktree/internal/errors"
	"github.com/Iron-Ham/tasktree/internal/snapshot"
	"github.com/Iron-Ham/tasktree/internal/taskid"
)

// ReadFile reads a record document from fs, inferring the format from the
// file extension.
func ReadFile(fs afero.Fs, path string) ([]snapshot.Record, error) {
	raw, err := readRaw(fs, path)
	if err != nil {
		return nil, err
	}
	return DecodeRecords(raw)
}

func readRaw(fs afero.Fs, path string) (any, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return Unmarshal(data, format)
}

// TextDecomposer treats the document itself as a pre-generated task list in
// Format. It stands in for a generating collaborator when the breakdown was
// produced elsewhere.
type TextDecomposer struct {
	Format Format
}

// Decompose implements Decomposer.
func (d TextDecomposer) Decompose(ctx context.Context, document string) ([]snapshot.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ParseRecords([]byte(document), d.Format)
}

// FileExpander serves expansions from a pre-generated file. The file holds
// either a task list, used for whichever parent is expanded, or an object
// keyed by parent id whose values are task lists.
type FileExpander struct {
	shared   []snapshot.Record
	byParent map[string][]snapshot.Record
}

// NewFileExpander reads and decodes path from fs.
func NewFileExpander(fs afero.Fs, path string) (*FileExpander, error) {
	raw, err := readRaw(fs, path)
	if err != nil {
		return nil, err
	}
	return newExpander(raw)
}

func newExpander(raw any) (*FileExpander, error) {
	if m, ok := stringMap(raw); ok && keyedByID(m) {
		e := &FileExpander{byParent: make(map[string][]snapshot.Record, len(m))}
		for id, v := range m {
			records, err := DecodeRecords(v)
			if err != nil {
				return nil, errors.Wrapf(err, "subtasks for %s", id)
			}
			e.byParent[id] = records
		}
		return e, nil
	}
	records, err := DecodeRecords(raw)
	if err != nil {
		return nil, err
	}
	return &FileExpander{shared: records}, nil
}

func keyedByID(m map[string]any) bool {
	if len(m) == 0 {
		return false
	}
	for k := range m {
		if !taskid.Valid(k) {
			return false
		}
	}
	return true
}

// Expand implements Expander. A keyed file with no entry for the parent
// yields no records.
func (e *FileExpander) Expand(ctx context.Context, req ExpansionRequest) ([]snapshot.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src := e.shared
	if e.byParent != nil {
		src = e.byParent[req.Parent.ID]
	}
	out := make([]snapshot.Record, len(src))
	copy(out, src)
	return out, nil
}

// Parents returns the parent ids a keyed file covers, or nil for a shared list.
func (e *FileExpander) Parents() []string {
	if e.byParent == nil {
		return nil
	}
	out := make([]string, 0, len(e.byParent))
	for id := range e.byParent {
		out = append(out, id)
	}
	return sortIDs(out)
}
