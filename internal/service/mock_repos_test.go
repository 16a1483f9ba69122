package service

// In-memory stores backing the service tests. They reproduce the SQL
// repositories' semantics over maps: the mutex stands in for the event-row
// lock, and the same enrollment rule functions run inside the critical
// section, so the admission sequence under test is the real one.

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/firmsite/seminar-enrollment/internal/enrollment"
	"github.com/firmsite/seminar-enrollment/internal/model"
	"github.com/firmsite/seminar-enrollment/internal/slot"
)

type memStore struct {
	mu     sync.Mutex
	events map[string]*model.Event
	apps   map[string]*model.Application
	seq    int
}

func newMemStore() *memStore {
	return &memStore{
		events: make(map[string]*model.Event),
		apps:   make(map[string]*model.Application),
	}
}

// ── EventStore ──

func (s *memStore) Create(_ context.Context, ev *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	ev.CreatedAt = time.Now().UTC()
	cp := *ev
	s.events[ev.ID] = &cp
	return nil
}

func (s *memStore) GetByID(_ context.Context, id string) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	if !ok {
		return nil, enrollment.ErrEventNotFound
	}
	cp := *ev
	return &cp, nil
}

// ── ApplicationStore ──

func (s *memStore) Submit(_ context.Context, eventID string, sub enrollment.Submission, asOf time.Time) (*model.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.events[eventID]
	if !ok {
		return nil, enrollment.ErrEventNotFound
	}

	key, err := enrollment.ValidateSubmission(ev, sub, asOf)
	if err != nil {
		return nil, err
	}

	if ev.Quota != nil {
		current := s.activeSum(eventID, filterFor(ev, key))
		if err := enrollment.CheckCapacity(ev.Quota, current, sub.AttendeeCount); err != nil {
			return nil, err
		}
	}

	s.seq++
	app := &model.Application{
		ID:                uuid.New().String(),
		EventID:           eventID,
		Name:              sub.Name,
		Phone:             sub.Phone,
		Email:             sub.Email,
		ParticipationDate: key.Date,
		ParticipationTime: key.Time,
		AttendeeCount:     sub.AttendeeCount,
		Status:            model.InitialStatus(ev.RecruitmentPolicy),
		AppliedAt:         time.Unix(0, 0).Add(time.Duration(s.seq) * time.Second),
	}
	s.apps[app.ID] = app
	cp := *app
	return &cp, nil
}

func (s *memStore) UpdateStatus(_ context.Context, applicationID string, to model.Status) (*model.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	app, ok := s.apps[applicationID]
	if !ok {
		return nil, enrollment.ErrApplicationNotFound
	}
	from := app.Status

	if from != to && model.RequiresCapacityCheck(from, to) {
		ev := s.events[app.EventID]
		if ev != nil && ev.Quota != nil {
			key := slot.Key{EventID: app.EventID, Date: app.ParticipationDate, Time: app.ParticipationTime}
			current := s.activeSum(app.EventID, filterFor(ev, key))
			if err := enrollment.CheckCapacity(ev.Quota, current, app.AttendeeCount); err != nil {
				return nil, err
			}
		}
	}

	app.Status = to
	cp := *app
	return &cp, nil
}

func (s *memStore) CancelByEmail(_ context.Context, eventID, email string, asOf time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var newest *model.Application
	for _, app := range s.apps {
		if app.EventID != eventID || app.Email != email {
			continue
		}
		if newest == nil || app.AppliedAt.After(newest.AppliedAt) {
			newest = app
		}
	}
	if newest == nil {
		return enrollment.ErrApplicationNotFound
	}

	if err := enrollment.CanCancel(asOf, newest.ParticipationDate); err != nil {
		return err
	}
	delete(s.apps, newest.ID)
	return nil
}

func (s *memStore) QuotaInfo(_ context.Context, eventID, date, timeRange string) (*model.QuotaInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.events[eventID]
	if !ok {
		return nil, enrollment.ErrEventNotFound
	}

	var filter *slot.Key
	if date != "" && timeRange != "" {
		key := slot.NewKey(eventID, date, timeRange)
		filter = &key
	}
	current := s.activeSum(eventID, filter)

	info := &model.QuotaInfo{CurrentApplicantsCount: current}
	if ev.Quota != nil {
		remaining := *ev.Quota - current
		if remaining < 0 {
			remaining = 0
		}
		info.RemainingSlots = &remaining
		info.IsFull = current >= *ev.Quota
	}
	return info, nil
}

func (s *memStore) ListByEvent(_ context.Context, eventID string) ([]model.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var apps []model.Application
	for _, app := range s.apps {
		if app.EventID == eventID {
			apps = append(apps, *app)
		}
	}
	sort.Slice(apps, func(i, j int) bool { return apps[i].AppliedAt.Before(apps[j].AppliedAt) })
	return apps, nil
}

// activeSum mirrors the repository's SUM query: attendee counts of WAITING
// and CONFIRMED applications, event-wide or per slot.
func (s *memStore) activeSum(eventID string, key *slot.Key) int {
	total := 0
	for _, app := range s.apps {
		if app.EventID != eventID || !app.Status.Active() {
			continue
		}
		if key != nil && (app.ParticipationDate != key.Date || app.ParticipationTime != key.Time) {
			continue
		}
		total += app.AttendeeCount
	}
	return total
}

func filterFor(ev *model.Event, key slot.Key) *slot.Key {
	if ev.HasSlots() {
		return &key
	}
	return nil
}
