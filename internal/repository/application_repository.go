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
	"github.com/firmsite/seminar-enrollment/internal/slot"
)

const applicationColumns = `id, event_id, name, phone, email,
	 participation_date, participation_time, attendee_count, status, applied_at`

// ApplicationRepository handles persistence for applications.
type ApplicationRepository struct {
	db *pgxpool.Pool
}

// NewApplicationRepository constructs an ApplicationRepository.
func NewApplicationRepository(db *pgxpool.Pool) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// Submit performs a concurrency-safe enrollment inside one transaction.
//
// The event row is locked with SELECT ... FOR UPDATE for the whole sequence,
// so two concurrent submissions to the same event serialize: the second
// transaction's capacity sum observes the first one's insert once it commits.
// Without the lock, both could read the same occupancy and overbook the slot.
// The lock is deliberately event-wide rather than per-slot, which also
// protects events whose quota spans all slots.
func (r *ApplicationRepository) Submit(ctx context.Context, eventID string, sub enrollment.Submission, asOf time.Time) (*model.Application, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	// Step 1: lock the event row and load the enrollment rules.
	ev, err := lockEvent(ctx, tx, eventID)
	if err != nil {
		return nil, err
	}

	// Steps 2-5: deadline, slot presence, option membership.
	key, err := enrollment.ValidateSubmission(ev, sub, asOf)
	if err != nil {
		return nil, err
	}

	// Step 6: quota ceiling over the WAITING+CONFIRMED sum, read through the
	// same transaction so it is consistent with the lock above.
	if ev.Quota != nil {
		var current int
		current, err = activeCount(ctx, tx, eventID, slotFilter(ev, key))
		if err != nil {
			return nil, err
		}
		if err = enrollment.CheckCapacity(ev.Quota, current, sub.AttendeeCount); err != nil {
			return nil, err
		}
	}

	// Step 7: insert with the policy-determined initial status.
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
		AppliedAt:         time.Now().UTC(),
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO applications
		 (id, event_id, name, phone, email, participation_date,
		  participation_time, attendee_count, status, applied_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		app.ID, app.EventID, app.Name, app.Phone, app.Email, app.ParticipationDate,
		app.ParticipationTime, app.AttendeeCount, app.Status, app.AppliedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert application: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return app, nil
}

// UpdateStatus applies an admin status override. Re-entering the counted pool
// from CANCELLED re-checks capacity under the event-row lock; moving between
// WAITING and CONFIRMED leaves the occupancy sum unchanged and commits
// without a re-check.
func (r *ApplicationRepository) UpdateStatus(ctx context.Context, applicationID string, to model.Status) (*model.Application, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var a model.Application
	err = tx.QueryRow(ctx,
		`SELECT `+applicationColumns+`
		 FROM applications WHERE id = $1 FOR UPDATE`,
		applicationID,
	).Scan(
		&a.ID, &a.EventID, &a.Name, &a.Phone, &a.Email,
		&a.ParticipationDate, &a.ParticipationTime, &a.AttendeeCount, &a.Status, &a.AppliedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, enrollment.ErrApplicationNotFound
		}
		return nil, fmt.Errorf("lock application row: %w", err)
	}
	from := a.Status

	if from != to && model.RequiresCapacityCheck(from, to) {
		var ev *model.Event
		ev, err = lockEvent(ctx, tx, a.EventID)
		if err != nil {
			return nil, err
		}
		if ev.Quota != nil {
			key := slot.Key{EventID: a.EventID, Date: a.ParticipationDate, Time: a.ParticipationTime}
			var current int
			current, err = activeCount(ctx, tx, a.EventID, slotFilter(ev, key))
			if err != nil {
				return nil, err
			}
			if err = enrollment.CheckCapacity(ev.Quota, current, a.AttendeeCount); err != nil {
				return nil, err
			}
		}
	}

	if from != to {
		_, err = tx.Exec(ctx,
			`UPDATE applications SET status = $1 WHERE id = $2`, to, applicationID)
		if err != nil {
			return nil, fmt.Errorf("update status: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	a.Status = to
	return &a, nil
}

// CancelByEmail hard-deletes the applicant's application, freeing the slot
// for a fresh submission. One application per identity per event is assumed;
// the newest one wins if that assumption is ever violated.
func (r *ApplicationRepository) CancelByEmail(ctx context.Context, eventID, email string, asOf time.Time) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var id, pDate string
	err = tx.QueryRow(ctx,
		`SELECT id, participation_date FROM applications
		 WHERE event_id = $1 AND email = $2
		 ORDER BY applied_at DESC
		 LIMIT 1
		 FOR UPDATE`,
		eventID, email,
	).Scan(&id, &pDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return enrollment.ErrApplicationNotFound
		}
		return fmt.Errorf("find application: %w", err)
	}

	if err = enrollment.CanCancel(asOf, pDate); err != nil {
		return err
	}

	if _, err = tx.Exec(ctx, `DELETE FROM applications WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete application: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// QuotaInfo returns the capacity projection for an event, optionally filtered
// to one (date, time) slot when both values are supplied.
func (r *ApplicationRepository) QuotaInfo(ctx context.Context, eventID, date, timeRange string) (*model.QuotaInfo, error) {
	var quota *int
	err := r.db.QueryRow(ctx,
		`SELECT quota FROM events WHERE id = $1`, eventID,
	).Scan(&quota)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, enrollment.ErrEventNotFound
		}
		return nil, fmt.Errorf("get event quota: %w", err)
	}

	var filter *slot.Key
	if date != "" && timeRange != "" {
		key := slot.NewKey(eventID, date, timeRange)
		filter = &key
	}
	current, err := activeCount(ctx, r.db, eventID, filter)
	if err != nil {
		return nil, err
	}

	info := &model.QuotaInfo{CurrentApplicantsCount: current}
	if quota != nil {
		remaining := *quota - current
		if remaining < 0 {
			remaining = 0
		}
		info.RemainingSlots = &remaining
		info.IsFull = current >= *quota
	}
	return info, nil
}

// ListByEvent returns all applications for an event, oldest first.
func (r *ApplicationRepository) ListByEvent(ctx context.Context, eventID string) ([]model.Application, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+applicationColumns+`
		 FROM applications
		 WHERE event_id = $1
		 ORDER BY applied_at ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	var apps []model.Application
	for rows.Next() {
		var a model.Application
		if err := rows.Scan(
			&a.ID, &a.EventID, &a.Name, &a.Phone, &a.Email,
			&a.ParticipationDate, &a.ParticipationTime, &a.AttendeeCount, &a.Status, &a.AppliedAt,
		); err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		apps = append(apps, a)
	}
	return apps, rows.Err()
}

// activeCount sums attendee_count over WAITING and CONFIRMED applications,
// event-wide or for one slot. It must run on the caller's querier (pool or
// transaction) so locked callers read their own uncommitted writes.
func activeCount(ctx context.Context, q querier, eventID string, key *slot.Key) (int, error) {
	var count int
	var err error
	if key != nil {
		err = q.QueryRow(ctx,
			`SELECT COALESCE(SUM(attendee_count), 0)
			 FROM applications
			 WHERE event_id = $1
			   AND participation_date = $2
			   AND participation_time = $3
			   AND status IN ('WAITING', 'CONFIRMED')`,
			eventID, key.Date, key.Time,
		).Scan(&count)
	} else {
		err = q.QueryRow(ctx,
			`SELECT COALESCE(SUM(attendee_count), 0)
			 FROM applications
			 WHERE event_id = $1
			   AND status IN ('WAITING', 'CONFIRMED')`,
			eventID,
		).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("sum active applications: %w", err)
	}
	return count, nil
}

// slotFilter picks slot-level or event-wide aggregation: events that define
// date/time options track capacity per slot, the rest have a single implicit
// slot covering the whole event.
func slotFilter(ev *model.Event, key slot.Key) *slot.Key {
	if ev.HasSlots() {
		return &key
	}
	return nil
}
