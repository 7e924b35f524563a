package eventlog

import "github.com/roach88/collab/internal/canon"

// Entry is one committed, hash-chained state transition.
type Entry struct {
	OpID          string `json:"op_id"`
	TS            string `json:"ts"`
	ActorID       string `json:"actor_id"`
	CommandID     string `json:"command_id"`
	PayloadHash   string `json:"payload_hash"`
	PreStateHash  string `json:"pre_state_hash"`
	PostStateHash string `json:"post_state_hash"`
}

// MissingFields returns the JSON names of the required fields that are
// empty, in declaration order.
func (e Entry) MissingFields() []string {
	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"op_id", e.OpID},
		{"ts", e.TS},
		{"actor_id", e.ActorID},
		{"command_id", e.CommandID},
		{"payload_hash", e.PayloadHash},
		{"pre_state_hash", e.PreStateHash},
		{"post_state_hash", e.PostStateHash},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// Normalized returns e with every field in NFC, the form the canonical
// serialization writes. Logs store entries normalized so that op ID
// uniqueness agrees with what Serialize and Parse see.
func (e Entry) Normalized() Entry {
	return Entry{
		OpID:          canon.Normalize(e.OpID),
		TS:            canon.Normalize(e.TS),
		ActorID:       canon.Normalize(e.ActorID),
		CommandID:     canon.Normalize(e.CommandID),
		PayloadHash:   canon.Normalize(e.PayloadHash),
		PreStateHash:  canon.Normalize(e.PreStateHash),
		PostStateHash: canon.Normalize(e.PostStateHash),
	}
}

func (e Entry) canonicalMap() map[string]any {
	return map[string]any{
		"op_id":           e.OpID,
		"ts":              e.TS,
		"actor_id":        e.ActorID,
		"command_id":      e.CommandID,
		"payload_hash":    e.PayloadHash,
		"pre_state_hash":  e.PreStateHash,
		"post_state_hash": e.PostStateHash,
	}
}
