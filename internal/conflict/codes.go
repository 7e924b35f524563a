package conflict

// Code identifies a failure mode. Codes are stable strings and are safe to
// persist or compare across replicas.
type Code string

// Event log codes.
const (
	CodeEntryFieldsRequired      Code = "ENTRY_FIELDS_REQUIRED"
	CodeOpIDDuplicate            Code = "OPID_DUPLICATE"
	CodeInitialStateHashRequired Code = "INITIAL_STATE_HASH_REQUIRED"
	CodeReplayHashMismatch       Code = "REPLAY_HASH_MISMATCH"
	CodeLogDecodeFailed          Code = "LOG_DECODE_FAILED"
	CodeLogSchemaUnsupported     Code = "LOG_SCHEMA_UNSUPPORTED"
)

// Application pipeline codes.
const (
	CodeEventFieldsRequired          Code = "EVENT_FIELDS_REQUIRED"
	CodeEventIDDuplicate             Code = "EVENT_ID_DUPLICATE"
	CodePrevHashMismatch             Code = "PREV_HASH_MISMATCH"
	CodeApplyCommandHandlerRequired  Code = "APPLY_COMMAND_HANDLER_REQUIRED"
	CodeApplyCommandCallbackRequired Code = "APPLY_COMMAND_CALLBACK_REQUIRED"
	CodeCommandRejected              Code = "COMMAND_REJECTED"
	CodeApplyCommandFailed           Code = "APPLY_COMMAND_FAILED"
	CodeStateHashFailed              Code = "STATE_HASH_FAILED"
)

// Optimistic merge policy codes.
const (
	CodeCollabEventFieldsRequired     Code = "E_COLLAB_EVENT_FIELDS_REQUIRED"
	CodeCollabEventVersionRequired    Code = "E_COLLAB_EVENT_VERSION_REQUIRED"
	CodeCollabBaseVersionMismatch     Code = "E_COLLAB_BASE_VERSION_MISMATCH"
	CodeCollabNextVersionNotMonotonic Code = "E_COLLAB_NEXT_VERSION_NOT_MONOTONIC"
)

// Journal and harness codes.
const (
	CodeJournalDiverged      Code = "JOURNAL_DIVERGED"
	CodeDeterminismViolation Code = "DETERMINISM_VIOLATION"
)

// CodeUnknown is used when a failure carries no code of its own.
const CodeUnknown Code = "UNKNOWN"

// Category groups codes by how callers are expected to react.
type Category string

const (
	CategoryStructural    Category = "structural"
	CategoryIntegrity     Category = "integrity"
	CategoryConcurrency   Category = "concurrency"
	CategoryIdempotency   Category = "idempotency"
	CategoryConfiguration Category = "configuration"
	CategoryRejected      Category = "rejected"
	CategoryUnknown       Category = "unknown"
)

var categories = map[Code]Category{
	CodeEntryFieldsRequired:           CategoryStructural,
	CodeEventFieldsRequired:           CategoryStructural,
	CodeCollabEventFieldsRequired:     CategoryStructural,
	CodeCollabEventVersionRequired:    CategoryStructural,
	CodeInitialStateHashRequired:      CategoryStructural,
	CodeLogDecodeFailed:               CategoryStructural,
	CodeLogSchemaUnsupported:          CategoryStructural,
	CodeReplayHashMismatch:            CategoryIntegrity,
	CodePrevHashMismatch:              CategoryIntegrity,
	CodeJournalDiverged:               CategoryIntegrity,
	CodeDeterminismViolation:          CategoryIntegrity,
	CodeStateHashFailed:               CategoryIntegrity,
	CodeCollabBaseVersionMismatch:     CategoryConcurrency,
	CodeCollabNextVersionNotMonotonic: CategoryConcurrency,
	CodeOpIDDuplicate:                 CategoryIdempotency,
	CodeEventIDDuplicate:              CategoryIdempotency,
	CodeApplyCommandHandlerRequired:   CategoryConfiguration,
	CodeApplyCommandCallbackRequired:  CategoryConfiguration,
	CodeCommandRejected:               CategoryRejected,
	CodeApplyCommandFailed:            CategoryRejected,
}

// CategoryOf returns the category of code, or CategoryUnknown.
func CategoryOf(code Code) Category {
	if c, ok := categories[code]; ok {
		return c
	}
	return CategoryUnknown
}

// IsConfiguration reports whether code signals a programmer error that must
// surface immediately instead of being collected as a rejection.
func IsConfiguration(code Code) bool {
	return CategoryOf(code) == CategoryConfiguration
}
