// Package repository implements all database access for the enrollment
// system. It uses pgx directly (no ORM) so the pessimistic-locking
// transaction in the submit path stays explicit.
package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/firmsite/seminar-enrollment/internal/enrollment"
	"github.com/firmsite/seminar-enrollment/internal/model"
)

// EventStore is the catalog boundary the enrollment core consumes.
type EventStore interface {
	Create(ctx context.Context, ev *model.Event) error
	GetByID(ctx context.Context, id string) (*model.Event, error)
}

// ApplicationStore is the persistence surface for applications. Submit,
// UpdateStatus, and CancelByEmail are each one atomic unit of work; all
// capacity reads inside them happen on the same locked connection.
type ApplicationStore interface {
	// Submit runs the full admission sequence under an event-row lock and
	// inserts the application with its policy-determined initial status.
	Submit(ctx context.Context, eventID string, sub enrollment.Submission, asOf time.Time) (*model.Application, error)

	// UpdateStatus applies an admin status override, re-checking capacity
	// only when the transition re-enters the counted pool.
	UpdateStatus(ctx context.Context, applicationID string, to model.Status) (*model.Application, error)

	// CancelByEmail hard-deletes the applicant's application for the event,
	// subject to the cancellation blackout window.
	CancelByEmail(ctx context.Context, eventID, email string, asOf time.Time) error

	// QuotaInfo returns the capacity projection for an event, optionally
	// filtered to one (date, time) slot.
	QuotaInfo(ctx context.Context, eventID, date, timeRange string) (*model.QuotaInfo, error)

	// ListByEvent returns all applications for an event, oldest first.
	ListByEvent(ctx context.Context, eventID string) ([]model.Application, error)
}

// Repository aggregates all stores for dependency injection.
type Repository struct {
	Events       EventStore
	Applications ApplicationStore
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so capacity sums can
// run inside a caller's transaction or standalone.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
