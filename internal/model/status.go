package model

import "fmt"

// Status is the lifecycle state of an application.
//
//	WAITING   — submitted, awaiting an admin decision (SELECTION policy)
//	CONFIRMED — guaranteed seat
//	CANCELLED — withdrawn by an admin; excluded from every capacity sum
//
// Applicant self-cancellation deletes the row outright instead of storing
// CANCELLED, which keeps the slot free for a fresh application.
type Status string

const (
	StatusWaiting   Status = "WAITING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
)

// ParseStatus converts a raw string to a Status, rejecting unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusWaiting, StatusConfirmed, StatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("unknown application status %q", s)
}

// Active reports whether the status counts toward the quota.
func (s Status) Active() bool {
	return s == StatusWaiting || s == StatusConfirmed
}

// InitialStatus returns the status a freshly admitted application receives.
// FIRST_COME admits straight to CONFIRMED; SELECTION always queues.
func InitialStatus(policy RecruitmentPolicy) Status {
	if policy == PolicyFirstCome {
		return StatusConfirmed
	}
	return StatusWaiting
}

// RequiresCapacityCheck reports whether an admin transition needs the quota
// re-checked before committing. Only re-entering the counted pool from
// CANCELLED can grow occupancy; WAITING and CONFIRMED already count toward
// the same sum, so moving between them is occupancy-neutral.
func RequiresCapacityCheck(from, to Status) bool {
	return from == StatusCancelled && to.Active()
}
