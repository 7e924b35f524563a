package eventlog

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/collab/internal/conflict"
)

type wireLog struct {
	SchemaVersion string  `json:"schema_version"`
	Entries       []Entry `json:"entries"`
}

// Parse decodes a serialized log and rebuilds it through Append, so every
// entry is revalidated and duplicate op IDs are rejected.
func Parse(data []byte) (Log, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var w wireLog
	if err := dec.Decode(&w); err != nil {
		return New(), conflict.New(conflict.CodeLogDecodeFailed, "eventlog.parse",
			fmt.Sprintf("decode log: %v", err), nil)
	}
	if w.SchemaVersion != SchemaVersion {
		return New(), conflict.New(conflict.CodeLogSchemaUnsupported, "eventlog.parse",
			fmt.Sprintf("unsupported schema version %q", w.SchemaVersion),
			map[string]any{"expected": SchemaVersion, "actual": w.SchemaVersion})
	}
	return FromEntries(w.Entries)
}

// FromEntries builds a log by appending entries in order.
func FromEntries(entries []Entry) (Log, error) {
	l := New()
	for i, e := range entries {
		next, err := l.Append(e)
		if err != nil {
			if ce, ok := conflict.As(err); ok {
				if ce.Details == nil {
					ce.Details = map[string]any{}
				}
				ce.Details["index"] = i
			}
			return l, err
		}
		l = next
	}
	return l, nil
}

// UnmarshalJSON implements json.Unmarshaler via Parse.
func (l *Log) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
