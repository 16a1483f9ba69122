package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/firmsite/seminar-enrollment/internal/enrollment"
	"github.com/firmsite/seminar-enrollment/internal/model"
)

const eventColumns = `id, name, recruitment_policy, quota, recruitment_end_date,
	 education_dates, education_time_slots, created_at`

// EventRepository handles persistence for events.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts a new event. The caller has already normalized the option
// lists and enforced the authoring invariants.
func (r *EventRepository) Create(ctx context.Context, ev *model.Event) error {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	ev.CreatedAt = time.Now().UTC()

	_, err := r.db.Exec(ctx,
		`INSERT INTO events
		 (id, name, recruitment_policy, quota, recruitment_end_date,
		  education_dates, education_time_slots, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		ev.ID, ev.Name, ev.RecruitmentPolicy, ev.Quota, ev.RecruitmentEndDate,
		ev.EducationDates, ev.EducationTimeSlots, ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetByID returns a single event or enrollment.ErrEventNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	ev, err := scanEvent(r.db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, enrollment.ErrEventNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return ev, nil
}

// lockEvent loads the event row under FOR UPDATE inside the given
// transaction, serializing every capacity-relevant writer for this event.
func lockEvent(ctx context.Context, tx pgx.Tx, id string) (*model.Event, error) {
	ev, err := scanEvent(tx.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, enrollment.ErrEventNotFound
		}
		return nil, fmt.Errorf("lock event row: %w", err)
	}
	return ev, nil
}

func scanEvent(row pgx.Row) (*model.Event, error) {
	var ev model.Event
	err := row.Scan(
		&ev.ID, &ev.Name, &ev.RecruitmentPolicy, &ev.Quota, &ev.RecruitmentEndDate,
		&ev.EducationDates, &ev.EducationTimeSlots, &ev.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}
