package memoryplay

import "errors"

// Stable error categories. Everything the library returns wraps one of
// these so callers can classify failures without string matching.
var (
	ErrSocketOpen   = errors.New("failed to open socket")
	ErrFindTarget   = errors.New("failed to find targets")
	ErrNoHostsFound = errors.New("no MemoryPlayHost instances found")
	ErrInvalidParam = errors.New("invalid parameter")
	ErrConnection   = errors.New("connection error")
	ErrTimeout      = errors.New("operation timed out")
	ErrMemory       = errors.New("memory allocation failed")
	ErrUnknown      = errors.New("unknown error")
)

// ErrorString returns the stable category string for any error produced
// by this package. Errors outside the taxonomy report as unrecognized.
func ErrorString(err error) string {
	switch {
	case err == nil:
		return "Success"
	case errors.Is(err, ErrSocketOpen):
		return "Failed to open socket"
	case errors.Is(err, ErrFindTarget):
		return "Failed to find targets"
	case errors.Is(err, ErrNoHostsFound):
		return "No MemoryPlayHost instances found"
	case errors.Is(err, ErrInvalidParam):
		return "Invalid parameter"
	case errors.Is(err, ErrConnection):
		return "Connection error"
	case errors.Is(err, ErrTimeout):
		return "Operation timed out"
	case errors.Is(err, ErrMemory):
		return "Memory allocation failed"
	case errors.Is(err, ErrUnknown):
		return "Unknown error"
	default:
		return "Unrecognized error code"
	}
}
