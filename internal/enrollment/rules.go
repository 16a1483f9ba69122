// Package enrollment holds the pure admission and cancellation rules for
// seminar applications. The rules operate on already-loaded rows so the pgx
// repository can evaluate them under its event-row lock and the in-memory
// test repositories can evaluate the exact same logic.
package enrollment

import (
	"time"

	"github.com/firmsite/seminar-enrollment/internal/model"
	"github.com/firmsite/seminar-enrollment/internal/slot"
)

// Submission is the applicant-supplied portion of a submit call after
// request-shape validation. AttendeeCount is already defaulted to 1.
type Submission struct {
	Name              string
	Phone             string
	Email             string
	ParticipationDate string
	ParticipationTime string
	AttendeeCount     int
}

// ValidateSubmission runs the ordered pre-capacity checks against the locked
// event: recruitment deadline (inclusive), slot-value presence, and
// membership in the event's date/time option lists. On success it returns
// the normalized slot key the capacity sum must be filtered by.
func ValidateSubmission(ev *model.Event, sub Submission, today time.Time) (slot.Key, error) {
	if DateOnly(today).After(DateOnly(ev.RecruitmentEndDate)) {
		return slot.Key{}, &RecruitmentClosedError{
			Deadline: ev.RecruitmentEndDate.Format("2006-01-02"),
		}
	}

	if sub.ParticipationDate == "" {
		return slot.Key{}, &ValidationError{Field: "participation_date", Message: "is required"}
	}
	if sub.ParticipationTime == "" {
		return slot.Key{}, &ValidationError{Field: "participation_time", Message: "is required"}
	}

	key := slot.NewKey(ev.ID, sub.ParticipationDate, sub.ParticipationTime)

	if len(ev.EducationDates) > 0 && !contains(ev.EducationDates, key.Date) {
		return slot.Key{}, &ValidationError{
			Field:   "participation_date",
			Message: "is not an offered date",
			Allowed: ev.EducationDates,
		}
	}
	if len(ev.EducationTimeSlots) > 0 && !contains(ev.EducationTimeSlots, key.Time) {
		return slot.Key{}, &ValidationError{
			Field:   "participation_time",
			Message: "is not an offered time slot",
			Allowed: ev.EducationTimeSlots,
		}
	}

	return key, nil
}

// CheckCapacity enforces the quota ceiling on the WAITING+CONFIRMED sum.
// current must have been read under the same lock that protects the
// subsequent insert or update. A nil quota means unlimited capacity.
func CheckCapacity(quota *int, current, requested int) error {
	if quota == nil {
		return nil
	}
	if current+requested > *quota {
		return &CapacityExceededError{
			Quota:     *quota,
			Current:   current,
			Requested: requested,
		}
	}
	return nil
}

// CanCancel enforces the cancellation blackout window: withdrawal is rejected
// once the participation date is today or already past. Cancelling for a
// next-day event is allowed.
func CanCancel(today time.Time, participationDate string) error {
	d, err := time.Parse("2006-01-02", slot.NormalizeDate(participationDate))
	if err != nil {
		return &ValidationError{Field: "participation_date", Message: "is not a valid date"}
	}
	days := int(d.Sub(DateOnly(today)).Hours() / 24)
	if days <= 0 {
		return &CancellationWindowError{ParticipationDate: participationDate}
	}
	return nil
}

// DateOnly truncates a timestamp to midnight UTC for date-only comparisons.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
