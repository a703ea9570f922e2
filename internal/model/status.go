package model

// Status is the verdict for one page, derived from its Outcome.
type Status int

const (
	// StatusPass means the page was scored at or above the pass threshold.
	StatusPass Status = iota

	// StatusFail means the page was scored below the pass threshold.
	StatusFail

	// StatusError means the page has no score at all.
	StatusError
)

// String returns the lowercase status name.
func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusFail:
		return "fail"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// IsFailure reports whether the status needs attention (fail or error).
func (s Status) IsFailure() bool {
	return s != StatusPass
}
