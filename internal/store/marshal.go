package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/collab/internal/canon"
)

// marshalDetails converts rejection details to canonical JSON TEXT for
// storage. Nil details are stored as "{}".
func marshalDetails(details map[string]any) (string, error) {
	if details == nil {
		return "{}", nil
	}
	data, err := canon.Marshal(details)
	if err != nil {
		return "", fmt.Errorf("marshal details: %w", err)
	}
	return string(data), nil
}

// unmarshalDetails parses stored details, keeping numbers as json.Number so
// large integers survive.
func unmarshalDetails(data string) (map[string]any, error) {
	details := map[string]any{}
	if data == "" || data == "{}" {
		return details, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	if err := dec.Decode(&details); err != nil {
		return nil, fmt.Errorf("unmarshal details: %w", err)
	}
	return details, nil
}

func stringsToAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
