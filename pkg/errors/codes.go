package errors

// ErrorCode identifies a failure category. Codes are stable strings so they
// can be logged, asserted on in tests, and compared across process restarts.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes.
const (
	CodeOK           ErrorCode = "OK"
	CodeUnknown      ErrorCode = "COMMON_000"
	CodeInternal     ErrorCode = "COMMON_001"
	CodeInvalidParam ErrorCode = "COMMON_002"
	CodeNotFound     ErrorCode = "COMMON_003"
	CodeConflict     ErrorCode = "COMMON_004"
)

// Matching-engine error codes.
//
// Note that an attribute value referenced by a pattern but never observed in
// a document is not an error condition at all: the affected fragment simply
// produces zero matches for that document.
const (
	// CodeCompileError marks a malformed pattern: empty, a constraint that
	// rejects every value, an invalid value regex, or an inverted repetition
	// range. Always reported synchronously at registration.
	CodeCompileError ErrorCode = "MATCH_001"

	// CodeConfigurationError marks a resolution request that requires data
	// the caller did not supply, e.g. label-priority mode without a priority
	// table. Reported before any matching or resolution work begins.
	CodeConfigurationError ErrorCode = "MATCH_002"

	// CodeBackendError marks a failure inside the pluggable regex backend.
	CodeBackendError ErrorCode = "MATCH_003"
)

// Pattern-source error codes.
const (
	CodePatternFileInvalid ErrorCode = "SRC_001"
	CodePatternFileRead    ErrorCode = "SRC_002"
)

// Knowledge-graph error codes.
const (
	CodeGraphUnavailable ErrorCode = "GRAPH_001"
	CodePageNotFound     ErrorCode = "GRAPH_002"
)
