package planning

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/tasktree/internal/errors"
	"github.com/Iron-Ham/tasktree/internal/snapshot"
)

// Format names a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ParseFormat accepts a format name, case-insensitively. "yml" means YAML.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "toml":
		return FormatTOML, nil
	}
	return "", errors.NewValidationError("unsupported document format").
		WithField("format").
		WithValue(s).
		WithCause(errors.ErrInvalidInput)
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", errors.NewValidationError("cannot infer document format without a file extension").
			WithField("path").
			WithValue(path).
			WithCause(errors.ErrInvalidInput)
	}
	return ParseFormat(ext)
}

// Unmarshal parses data into generic maps and slices.
func Unmarshal(data []byte, format Format) (any, error) {
	var raw any
	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &raw)
	case FormatYAML:
		err = yaml.Unmarshal(data, &raw)
	case FormatTOML:
		var table map[string]any
		err = toml.Unmarshal(data, &table)
		raw = table
	default:
		return nil, errors.NewValidationError("unsupported document format").
			WithField("format").
			WithValue(string(format)).
			WithCause(errors.ErrInvalidInput)
	}
	if err != nil {
		return nil, errors.NewValidationError(fmt.Sprintf("parse %s document", format)).
			WithCause(errors.Join(errors.ErrInvalidInput, err))
	}
	return raw, nil
}

// ParseRecords decodes a whole document into records.
func ParseRecords(data []byte, format Format) ([]snapshot.Record, error) {
	raw, err := Unmarshal(data, format)
	if err != nil {
		return nil, err
	}
	return DecodeRecords(raw)
}

// listKeys are the wrapper keys under which a document may hold its task list.
var listKeys = []string{"tasks", "subtasks"}

// aliases maps alternative field names to record fields. The canonical name
// wins when both are present.
var aliases = map[string]string{
	"title":          "name",
	"summary":        "description",
	"depends_on":     "dependencies",
	"depends":        "dependencies",
	"est_complexity": "complexity",
	"files":          "code_references",
	"assignee":       "assigned_to",
	"estimate":       "estimated_hours",
	"children":       "subtasks",
}

// DecodeRecords turns a loosely typed document into records. It accepts a
// list of task objects, or an object holding one under "tasks" or
// "subtasks", optionally wrapped in "plan".
func DecodeRecords(raw any) ([]snapshot.Record, error) {
	items, err := taskList(raw)
	if err != nil {
		return nil, err
	}
	records := make([]snapshot.Record, 0, len(items))
	for i, item := range items {
		r, err := decodeRecord(item, fmt.Sprintf("tasks[%d]", i))
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

func taskList(raw any) ([]any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []any:
		return v, nil
	case []map[string]any:
		out := make([]any, len(v))
		for i, m := range v {
			out[i] = m
		}
		return out, nil
	}

	m, ok := stringMap(raw)
	if !ok {
		return nil, errors.NewValidationError("document must be a list of tasks or an object holding one").
			WithValue(fmt.Sprintf("%T", raw)).
			WithCause(errors.ErrInvalidInput)
	}
	if plan, ok := m["plan"]; ok {
		return taskList(plan)
	}
	for _, key := range listKeys {
		if list, ok := m[key]; ok {
			return taskList(list)
		}
	}
	return nil, errors.NewValidationError("document object has no task list").
		WithField(strings.Join(listKeys, "|")).
		WithCause(errors.ErrInvalidInput)
}

func decodeRecord(item any, path string) (snapshot.Record, error) {
	var r snapshot.Record
	m, ok := stringMap(item)
	if !ok {
		return r, errors.NewValidationError("task entry must be an object").
			WithField(path).
			WithValue(fmt.Sprintf("%T", item)).
			WithCause(errors.ErrInvalidInput)
	}
	m, err := normalize(m, path)
	if err != nil {
		return r, err
	}

	var subtasks []any
	if raw, ok := m["subtasks"]; ok {
		subtasks, err = taskList(raw)
		if err != nil {
			return r, err
		}
		delete(m, "subtasks")
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &r,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return r, errors.Wrap(err, "create record decoder")
	}
	if err := decoder.Decode(m); err != nil {
		return r, errors.NewValidationError("malformed task entry").
			WithField(path).
			WithCause(errors.Join(errors.ErrInvalidInput, err))
	}

	for i, sub := range subtasks {
		child, err := decodeRecord(sub, fmt.Sprintf("%s.subtasks[%d]", path, i))
		if err != nil {
			return r, err
		}
		r.Subtasks = append(r.Subtasks, child)
	}
	return r, nil
}

// normalize resolves aliases and coerces the fields collaborators most often
// get loosely typed: numeric ids, scalar or numeric dependency lists, and
// hours given as strings.
func normalize(in map[string]any, path string) (map[string]any, error) {
	out := make(map[string]any, len(in))
	for k, v := range in {
		key := strings.ToLower(strings.TrimSpace(k))
		if canonical, ok := aliases[key]; ok {
			if _, taken := in[canonical]; taken {
				continue
			}
			key = canonical
		}
		out[key] = v
	}

	if v, ok := out["id"]; ok && v != nil {
		id, err := cast.ToStringE(v)
		if err != nil {
			return nil, fieldError(path, "id", v, err)
		}
		out["id"] = strings.TrimSpace(id)
	}
	for _, field := range []string{"dependencies", "blocked_by", "tags", "code_references"} {
		v, ok := out[field]
		if !ok || v == nil {
			continue
		}
		list, err := stringList(v)
		if err != nil {
			return nil, fieldError(path, field, v, err)
		}
		out[field] = list
	}
	for _, field := range []string{"estimated_hours", "actual_hours"} {
		v, ok := out[field]
		if !ok || v == nil {
			continue
		}
		hours, err := cast.ToFloat64E(v)
		if err != nil {
			return nil, fieldError(path, field, v, err)
		}
		out[field] = hours
	}
	for _, field := range []string{"status", "priority", "complexity"} {
		if v, ok := out[field]; ok && v != nil {
			out[field] = strings.ToLower(strings.TrimSpace(cast.ToString(v)))
		}
	}
	return out, nil
}

// stringList accepts a list of scalars, or a single scalar. A string is
// split on commas and whitespace.
func stringList(v any) ([]string, error) {
	switch s := v.(type) {
	case string:
		return strings.FieldsFunc(s, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t' || r == '\n'
		}), nil
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			str, err := cast.ToStringE(item)
			if err != nil {
				return nil, err
			}
			if str = strings.TrimSpace(str); str != "" {
				out = append(out, str)
			}
		}
		return out, nil
	}
	if list, err := cast.ToStringSliceE(v); err == nil {
		return list, nil
	}
	str, err := cast.ToStringE(v)
	if err != nil {
		return nil, err
	}
	return []string{str}, nil
}

func stringMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[cast.ToString(k)] = val
		}
		return out, true
	}
	return nil, false
}

func fieldError(path, field string, value any, cause error) error {
	return errors.NewValidationError("cannot interpret task field").
		WithField(path + "." + field).
		WithValue(value).
		WithCause(errors.Join(errors.ErrInvalidInput, cause))
}
