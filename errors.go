package halyard

// Error codes for every failure kind returned by this package.
// Errors are created with github.com/agilira/go-errors and render as
// "[CODE]: message"; use ErrorCode or HasCode to branch on the kind.
const (
	// ErrCodePathConflict - an entry is already registered at the path.
	ErrCodePathConflict = "HALYARD_PATH_CONFLICT"

	// ErrCodeNotFound - a path segment or attribute does not exist.
	ErrCodeNotFound = "HALYARD_NODE_NOT_FOUND"

	// ErrCodeNotAMapping - a scalar was found where a mapping was expected.
	ErrCodeNotAMapping = "HALYARD_NOT_A_MAPPING"

	// ErrCodeMissingValue - a declared attribute never resolved to a value.
	ErrCodeMissingValue = "HALYARD_MISSING_VALUE"

	// ErrCodeCircularReference - a reference chain revisits itself.
	ErrCodeCircularReference = "HALYARD_CIRCULAR_REFERENCE"

	// ErrCodeMalformedInput - the configuration text violates the format.
	ErrCodeMalformedInput = "HALYARD_MALFORMED_INPUT"

	// ErrCodeInvalidOperation - the operation is not supported, such as
	// writing through a lazy reference.
	ErrCodeInvalidOperation = "HALYARD_INVALID_OPERATION"
)

// ErrorCode extracts the halyard error code from an error.
// Returns an empty string for nil errors and errors without a code.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}

	// go-errors format: [CODE]: Message
	errStr := err.Error()
	if len(errStr) > 3 && errStr[0] == '[' {
		for idx := 1; idx < len(errStr); idx++ {
			if errStr[idx] == ']' {
				return errStr[1:idx]
			}
		}
	}

	return ""
}

// HasCode reports whether err carries the given halyard error code.
func HasCode(err error, code string) bool {
	return err != nil && ErrorCode(err) == code
}

// isLookupError reports whether err is a normal lookup failure, the kind that
// best-effort teardown and cycle walks swallow.
func isLookupError(err error) bool {
	code := ErrorCode(err)
	return code == ErrCodeNotFound || code == ErrCodeNotAMapping
}
