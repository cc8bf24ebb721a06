// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package probe

// Reason explains why a primitive is unavailable.
type Reason string

const (
	// ReasonUnsupported means the host does not offer the primitive.
	ReasonUnsupported Reason = "unsupported"

	// ReasonError means the primitive exists but failed during measurement.
	ReasonError Reason = "error"

	// ReasonPermission means the primitive needs a user prompt and was skipped.
	ReasonPermission Reason = "permission"
)

// Result is the outcome of probing one primitive: either Available with a
// canonical string value, or Unavailable with a reason. The zero value is
// Unavailable(ReasonUnsupported).
type Result struct {
	value     string
	reason    Reason
	available bool
}

// Available returns a successful result.
func Available(value string) Result {
	return Result{value: value, available: true}
}

// Unavailable returns a failed result.
func Unavailable(reason Reason) Result {
	return Result{reason: reason}
}

// IsAvailable reports whether the primitive produced a value.
func (r Result) IsAvailable() bool {
	return r.available
}

// Value returns the measured value and true, or "" and false.
func (r Result) Value() (string, bool) {
	return r.value, r.available
}

// Reason returns why the result is unavailable. It is "" for available results.
func (r Result) Reason() Reason {
	if r.available {
		return ""
	}
	if r.reason == "" {
		return ReasonUnsupported
	}
	return r.reason
}

// OrSentinel returns the value, or the reason string for unavailable results.
// Permission-skipped primitives collapse to "unsupported" so the sentinel set
// stays {"unsupported", "error"}.
func (r Result) OrSentinel() string {
	if r.available {
		return r.value
	}
	if r.Reason() == ReasonError {
		return string(ReasonError)
	}
	return string(ReasonUnsupported)
}

// String implements fmt.Stringer.
func (r Result) String() string {
	if r.available {
		return "Available(" + r.value + ")"
	}
	return "Unavailable(" + string(r.Reason()) + ")"
}
