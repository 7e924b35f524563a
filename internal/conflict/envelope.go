package conflict

// Sentinel placeholders used when an envelope field has no value.
const (
	UnknownOp        = "unknown-op"
	UnknownAuthor    = "unknown-author"
	UnknownTS        = "unknown-ts"
	UnknownCommand   = "unknown-command"
	UnknownOperation = "unknown-operation"
	UnknownReason    = "unspecified"
)

// EnvelopeDetails identifies the operation a conflict refers to.
type EnvelopeDetails struct {
	OpID      string `json:"op_id"`
	AuthorID  string `json:"author_id"`
	TS        string `json:"ts"`
	CommandID string `json:"command_id"`
}

// Envelope is the normalized conflict descriptor. Build always returns a
// fully populated value.
type Envelope struct {
	Code    Code            `json:"code"`
	Op      string          `json:"op"`
	Reason  string          `json:"reason"`
	Details EnvelopeDetails `json:"details"`
}

// Build constructs an Envelope, replacing every empty field with its
// sentinel placeholder.
func Build(code Code, op, reason string, details EnvelopeDetails) Envelope {
	return Envelope{
		Code:   Code(orDefault(string(code), string(CodeUnknown))),
		Op:     orDefault(op, UnknownOperation),
		Reason: orDefault(reason, UnknownReason),
		Details: EnvelopeDetails{
			OpID:      orDefault(details.OpID, UnknownOp),
			AuthorID:  orDefault(details.AuthorID, UnknownAuthor),
			TS:        orDefault(details.TS, UnknownTS),
			CommandID: orDefault(details.CommandID, UnknownCommand),
		},
	}
}

// Err converts the envelope to an *Error so it can travel as a Go error.
func (e Envelope) Err() *Error {
	return New(e.Code, e.Op, e.Reason, map[string]any{
		"op_id":      e.Details.OpID,
		"author_id":  e.Details.AuthorID,
		"ts":         e.Details.TS,
		"command_id": e.Details.CommandID,
	})
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
