package enrollment

import (
	"errors"
	"fmt"
)

// Stable error codes surfaced in the JSON error envelope. Clients branch on
// these, so they must never change meaning.
const (
	CodeNotFound           = "NOT_FOUND"
	CodeValidation         = "VALIDATION_ERROR"
	CodeRecruitmentClosed  = "RECRUITMENT_CLOSED"
	CodeCapacityExceeded   = "CAPACITY_EXCEEDED"
	CodeCancellationWindow = "CANCELLATION_WINDOW"
)

// ErrEventNotFound is returned when the referenced event does not exist.
var ErrEventNotFound = errors.New("event not found")

// ErrApplicationNotFound is returned when no matching application exists.
var ErrApplicationNotFound = errors.New("application not found")

// ValidationError reports a missing or out-of-range submission field.
// Allowed carries the event's valid options when membership failed, so the
// UI can present them instead of a generic failure.
type ValidationError struct {
	Field   string
	Message string
	Allowed []string
}

func (e *ValidationError) Error() string {
	if len(e.Allowed) > 0 {
		return fmt.Sprintf("%s: %s (allowed: %v)", e.Field, e.Message, e.Allowed)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// RecruitmentClosedError reports a submission after the recruitment deadline.
type RecruitmentClosedError struct {
	Deadline string // YYYY-MM-DD, inclusive
}

func (e *RecruitmentClosedError) Error() string {
	return fmt.Sprintf("recruitment closed on %s", e.Deadline)
}

// CapacityExceededError reports that admitting the request would exceed the
// event or slot quota.
type CapacityExceededError struct {
	Quota     int
	Current   int
	Requested int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("capacity exceeded: quota %d, current %d, requested %d",
		e.Quota, e.Current, e.Requested)
}

// CancellationWindowError reports a cancellation attempt inside the blackout
// window (the participation date is today or already past).
type CancellationWindowError struct {
	ParticipationDate string
}

func (e *CancellationWindowError) Error() string {
	return fmt.Sprintf("cannot cancel on or after the event date (%s)", e.ParticipationDate)
}

// CodeOf maps a business error to its stable code, or "" for
// infrastructure errors the caller should treat as retryable.
func CodeOf(err error) string {
	var (
		ve *ValidationError
		re *RecruitmentClosedError
		ce *CapacityExceededError
		we *CancellationWindowError
	)
	switch {
	case errors.Is(err, ErrEventNotFound), errors.Is(err, ErrApplicationNotFound):
		return CodeNotFound
	case errors.As(err, &ve):
		return CodeValidation
	case errors.As(err, &re):
		return CodeRecruitmentClosed
	case errors.As(err, &ce):
		return CodeCapacityExceeded
	case errors.As(err, &we):
		return CodeCancellationWindow
	}
	return ""
}
