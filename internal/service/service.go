// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/firmsite/seminar-enrollment/internal/cache"
	"github.com/firmsite/seminar-enrollment/internal/enrollment"
	"github.com/firmsite/seminar-enrollment/internal/model"
	"github.com/firmsite/seminar-enrollment/internal/repository"
	"github.com/firmsite/seminar-enrollment/internal/slot"
)

// timeSlotPattern is the HH:mm-HH:mm shape enforced at event-authoring time.
// Submissions are matched against the authored list, never re-validated.
var timeSlotPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]-([01][0-9]|2[0-3]):[0-5][0-9]$`)

// EnrollmentService orchestrates event authoring and enrollment operations.
type EnrollmentService struct {
	repo   *repository.Repository
	quota  *cache.QuotaCache
	logger *zap.Logger
	now    func() time.Time
}

// NewEnrollmentService constructs an EnrollmentService. quota may be nil,
// which disables the read cache.
func NewEnrollmentService(repo *repository.Repository, quota *cache.QuotaCache, logger *zap.Logger) *EnrollmentService {
	return &EnrollmentService{
		repo:   repo,
		quota:  quota,
		logger: logger,
		now:    time.Now,
	}
}

// CreateEvent validates the authoring request and persists the event.
// This is the catalog boundary: the enrollment core consumes what is
// authored here read-only.
func (s *EnrollmentService) CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, &enrollment.ValidationError{Field: "name", Message: "is required"}
	}

	policy, ok := model.ParsePolicy(req.RecruitmentPolicy)
	if !ok {
		return nil, &enrollment.ValidationError{
			Field:   "recruitment_policy",
			Message: "must be FIRST_COME or SELECTION",
		}
	}
	if req.Quota != nil && *req.Quota <= 0 {
		return nil, &enrollment.ValidationError{Field: "quota", Message: "must be a positive integer"}
	}
	// A first-come event confirms on capacity alone, so it must be bounded.
	if policy == model.PolicyFirstCome && req.Quota == nil {
		return nil, &enrollment.ValidationError{Field: "quota", Message: "is required for FIRST_COME events"}
	}

	endDate, err := time.Parse("2006-01-02", slot.NormalizeDate(req.RecruitmentEndDate))
	if err != nil {
		return nil, &enrollment.ValidationError{
			Field:   "recruitment_end_date",
			Message: "must be a YYYY-MM-DD date",
		}
	}

	dates := make([]string, 0, len(req.EducationDates))
	for _, d := range req.EducationDates {
		nd := slot.NormalizeDate(d)
		if _, err := time.Parse("2006-01-02", nd); err != nil {
			return nil, &enrollment.ValidationError{
				Field:   "education_dates",
				Message: fmt.Sprintf("%q is not a valid date", d),
			}
		}
		dates = append(dates, nd)
	}
	slots := make([]string, 0, len(req.EducationTimeSlots))
	for _, t := range req.EducationTimeSlots {
		nt := slot.NormalizeTime(t)
		if !timeSlotPattern.MatchString(nt) {
			return nil, &enrollment.ValidationError{
				Field:   "education_time_slots",
				Message: fmt.Sprintf("%q is not an HH:mm-HH:mm range", t),
			}
		}
		slots = append(slots, nt)
	}

	ev := &model.Event{
		Name:               req.Name,
		RecruitmentPolicy:  policy,
		Quota:              req.Quota,
		RecruitmentEndDate: endDate,
		EducationDates:     dates,
		EducationTimeSlots: slots,
	}
	if err := s.repo.Events.Create(ctx, ev); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	s.logger.Info("event created",
		zap.String("event_id", ev.ID),
		zap.String("policy", string(policy)),
	)
	return ev, nil
}

// GetEvent returns the enrollment-relevant event projection.
func (s *EnrollmentService) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	if id == "" {
		return nil, &enrollment.ValidationError{Field: "id", Message: "is required"}
	}
	return s.repo.Events.GetByID(ctx, id)
}

// Submit validates the request shape and delegates the locked admission
// sequence to the repository.
func (s *EnrollmentService) Submit(ctx context.Context, eventID string, req model.SubmitApplicationRequest) (*model.Application, error) {
	if eventID == "" {
		return nil, &enrollment.ValidationError{Field: "event_id", Message: "is required"}
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, &enrollment.ValidationError{Field: "name", Message: "is required"}
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if !isValidEmail(req.Email) {
		return nil, &enrollment.ValidationError{Field: "email", Message: "is not a valid email address"}
	}
	if req.AttendeeCount < 0 {
		return nil, &enrollment.ValidationError{Field: "attendee_count", Message: "must be positive"}
	}
	if req.AttendeeCount == 0 {
		req.AttendeeCount = 1
	}

	sub := enrollment.Submission{
		Name:              req.Name,
		Phone:             strings.TrimSpace(req.Phone),
		Email:             req.Email,
		ParticipationDate: strings.TrimSpace(req.ParticipationDate),
		ParticipationTime: strings.TrimSpace(req.ParticipationTime),
		AttendeeCount:     req.AttendeeCount,
	}

	app, err := s.repo.Applications.Submit(ctx, eventID, sub, s.now())
	if err != nil {
		if enrollment.CodeOf(err) != "" {
			return nil, err
		}
		return nil, fmt.Errorf("submit application: %w", err)
	}

	s.quota.Invalidate(ctx, eventID)
	s.logger.Info("application submitted",
		zap.String("event_id", eventID),
		zap.String("application_id", app.ID),
		zap.String("status", string(app.Status)),
		zap.Int("attendee_count", app.AttendeeCount),
	)
	return app, nil
}

// Cancel withdraws the applicant's own application, subject to the
// blackout window.
func (s *EnrollmentService) Cancel(ctx context.Context, eventID, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if !isValidEmail(email) {
		return &enrollment.ValidationError{Field: "email", Message: "is not a valid email address"}
	}

	if err := s.repo.Applications.CancelByEmail(ctx, eventID, email, s.now()); err != nil {
		if enrollment.CodeOf(err) != "" {
			return err
		}
		return fmt.Errorf("cancel application: %w", err)
	}

	s.quota.Invalidate(ctx, eventID)
	s.logger.Info("application cancelled",
		zap.String("event_id", eventID),
	)
	return nil
}

// UpdateStatus applies an admin status override.
func (s *EnrollmentService) UpdateStatus(ctx context.Context, applicationID, rawStatus string) (*model.Application, error) {
	to, err := model.ParseStatus(rawStatus)
	if err != nil {
		return nil, &enrollment.ValidationError{
			Field:   "status",
			Message: "must be one of WAITING, CONFIRMED, CANCELLED",
		}
	}

	app, err := s.repo.Applications.UpdateStatus(ctx, applicationID, to)
	if err != nil {
		if enrollment.CodeOf(err) != "" {
			return nil, err
		}
		return nil, fmt.Errorf("update application status: %w", err)
	}

	s.quota.Invalidate(ctx, app.EventID)
	s.logger.Info("application status updated",
		zap.String("application_id", applicationID),
		zap.String("status", string(to)),
	)
	return app, nil
}

// QuotaInfo returns the capacity projection, cache-first when a cache is
// configured.
func (s *EnrollmentService) QuotaInfo(ctx context.Context, eventID, date, timeRange string) (*model.QuotaInfo, error) {
	date = slot.NormalizeDate(date)
	timeRange = slot.NormalizeTime(timeRange)

	if info, ok := s.quota.Get(ctx, eventID, date, timeRange); ok {
		return info, nil
	}
	info, err := s.repo.Applications.QuotaInfo(ctx, eventID, date, timeRange)
	if err != nil {
		if errors.Is(err, enrollment.ErrEventNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("quota info: %w", err)
	}
	s.quota.Set(ctx, eventID, date, timeRange, info)
	return info, nil
}

// ListApplications returns all applications for an event.
func (s *EnrollmentService) ListApplications(ctx context.Context, eventID string) ([]model.Application, error) {
	if _, err := s.repo.Events.GetByID(ctx, eventID); err != nil {
		return nil, err
	}
	return s.repo.Applications.ListByEvent(ctx, eventID)
}

// isValidEmail does a basic structural check (no external deps).
func isValidEmail(email string) bool {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}
	return len(parts[0]) > 0 && strings.Contains(parts[1], ".")
}
