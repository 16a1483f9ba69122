// Package model defines the core domain types for the seminar enrollment system.
package model

import "time"

// RecruitmentPolicy determines how a successful submission is admitted.
type RecruitmentPolicy string

const (
	// PolicyFirstCome confirms a seat immediately when capacity remains.
	PolicyFirstCome RecruitmentPolicy = "FIRST_COME"
	// PolicySelection queues every submission for an admin decision.
	PolicySelection RecruitmentPolicy = "SELECTION"
)

// ParsePolicy converts a raw string to a RecruitmentPolicy.
func ParsePolicy(s string) (RecruitmentPolicy, bool) {
	p := RecruitmentPolicy(s)
	switch p {
	case PolicyFirstCome, PolicySelection:
		return p, true
	}
	return "", false
}

// Event is the enrollment-relevant projection of a seminar/training event.
// Descriptive fields (body text, images, location) are owned by the content
// catalog and never consulted here.
type Event struct {
	ID                 string            `json:"id"`
	Name               string            `json:"name"`
	RecruitmentPolicy  RecruitmentPolicy `json:"recruitment_policy"`
	Quota              *int              `json:"quota"` // nil means unlimited
	RecruitmentEndDate time.Time         `json:"recruitment_end_date"`
	EducationDates     []string          `json:"education_dates"`      // normalized YYYY-MM-DD
	EducationTimeSlots []string          `json:"education_time_slots"` // normalized HH:mm-HH:mm
	CreatedAt          time.Time         `json:"created_at"`
}

// HasSlots reports whether the event partitions capacity by (date, time).
// An event with no date/time options has a single implicit slot.
func (e *Event) HasSlots() bool {
	return len(e.EducationDates) > 0 || len(e.EducationTimeSlots) > 0
}

// Application is one applicant's enrollment in an event.
type Application struct {
	ID                string    `json:"id"`
	EventID           string    `json:"event_id"`
	Name              string    `json:"name"`
	Phone             string    `json:"phone"`
	Email             string    `json:"email"`
	ParticipationDate string    `json:"participation_date"` // normalized at creation
	ParticipationTime string    `json:"participation_time"` // normalized at creation
	AttendeeCount     int       `json:"attendee_count"`
	Status            Status    `json:"status"`
	AppliedAt         time.Time `json:"applied_at"`
}

// CreateEventRequest is the payload for authoring a new event.
type CreateEventRequest struct {
	Name               string   `json:"name"`
	RecruitmentPolicy  string   `json:"recruitment_policy"`
	Quota              *int     `json:"quota"`
	RecruitmentEndDate string   `json:"recruitment_end_date"` // YYYY-MM-DD
	EducationDates     []string `json:"education_dates"`
	EducationTimeSlots []string `json:"education_time_slots"`
}

// SubmitApplicationRequest is the payload for a public enrollment submission.
type SubmitApplicationRequest struct {
	Name              string `json:"name"`
	Phone             string `json:"phone"`
	Email             string `json:"email"`
	ParticipationDate string `json:"participation_date"`
	ParticipationTime string `json:"participation_time"`
	AttendeeCount     int    `json:"attendee_count"` // 0 defaults to 1
}

// UpdateStatusRequest is the payload for an admin status override.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// QuotaInfo is the read-only capacity projection for an event or slot.
type QuotaInfo struct {
	CurrentApplicantsCount int  `json:"current_applicants_count"`
	RemainingSlots         *int `json:"remaining_slots"` // nil when the event has no quota
	IsFull                 bool `json:"is_full"`
}

// ErrorResponse is a standard JSON error envelope. Code is stable across
// releases so clients can branch on it.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}
