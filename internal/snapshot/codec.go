package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Encode renders records as the snapshot document: a JSON array of top-level
// records, two-space indented, with a trailing newline. A nil slice encodes as [].
func Encode(records []Record) ([]byte, error) {
	if records == nil {
		records = []Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses a snapshot document. Blank input decodes to no records.
func Decode(data []byte) ([]Record, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []Record{}, nil
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}
