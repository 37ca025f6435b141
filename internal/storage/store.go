// Package storage implements the persistence contracts over Postgres.
package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/tutorlane/bookingd/internal/availability"
	"github.com/tutorlane/bookingd/internal/booking"
	"github.com/tutorlane/bookingd/internal/outbox"
	"github.com/tutorlane/bookingd/libs/db"
)

// Store combines the repositories into the transactional operations the
// domain needs, writing outbox events in the same transaction as the state
// change they describe.
type Store struct {
	pool     *db.Pool
	windows  *AvailabilityRepository
	bookings *BookingRepository
	outbox   *outbox.Repository
}

func NewStore(pool *db.Pool, windows *AvailabilityRepository, bookings *BookingRepository, outboxRepo *outbox.Repository) *Store {
	return &Store{
		pool:     pool,
		windows:  windows,
		bookings: bookings,
		outbox:   outboxRepo,
	}
}

var _ booking.Store = (*Store)(nil)

func (s *Store) OpenWindow(ctx context.Context, id string) (availability.Window, error) {
	return s.windows.Get(ctx, id)
}

func (s *Store) BookingBySessionRef(ctx context.Context, ref string) (*booking.Booking, error) {
	return s.bookings.BySessionRef(ctx, ref)
}

// CreateBooking inserts the booking and applies the window consumption in
// one transaction. The insert runs first so a booking can never become
// durable without its window consumption committing alongside it; a lost
// race on the conditional window delete rolls the whole transaction back.
func (s *Store) CreateBooking(ctx context.Context, b booking.Booking, consume *booking.Consumption) (booking.Booking, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return booking.Booking{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	created, err := s.bookings.insertTx(ctx, tx, b)
	if err != nil {
		return booking.Booking{}, err
	}

	if consume != nil {
		if err := s.windows.consumeTx(ctx, tx, consume.WindowID, consume.Remainders); err != nil {
			return booking.Booking{}, err
		}
	}

	if err := s.insertBookingEvent(ctx, tx, outbox.EventBookingCreated, created); err != nil {
		return booking.Booking{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return booking.Booking{}, err
	}
	return created, nil
}

// Cancel moves a pending booking to cancelled. studentID scopes the change
// to the owner; an empty studentID is an operator action. Cancelling an
// already-cancelled booking is a no-op.
func (s *Store) Cancel(ctx context.Context, id, studentID string) (booking.Booking, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return booking.Booking{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	b, err := s.bookings.getForUpdateTx(ctx, tx, id)
	if err != nil {
		return booking.Booking{}, err
	}
	if studentID != "" && b.StudentID != studentID {
		// Do not reveal other students' bookings.
		return booking.Booking{}, pgx.ErrNoRows
	}
	if b.Status == booking.StatusCancelled {
		return b, tx.Commit(ctx)
	}
	if b.Status != booking.StatusPending {
		return booking.Booking{}, ErrStateConflict
	}

	if err := s.bookings.setStatusTx(ctx, tx, b.ID, booking.StatusCancelled); err != nil {
		return booking.Booking{}, err
	}
	b.Status = booking.StatusCancelled

	if err := s.insertBookingEvent(ctx, tx, outbox.EventBookingCancelled, b); err != nil {
		return booking.Booking{}, err
	}
	return b, tx.Commit(ctx)
}

// Confirm moves a pending booking to confirmed (tutor accepted a pay-later
// booking).
func (s *Store) Confirm(ctx context.Context, id string) (booking.Booking, error) {
	return s.transition(ctx, id, booking.StatusPending, booking.StatusConfirmed, time.Time{})
}

// Complete moves a confirmed booking to completed once the session instant
// has passed.
func (s *Store) Complete(ctx context.Context, id string, now time.Time) (booking.Booking, error) {
	return s.transition(ctx, id, booking.StatusConfirmed, booking.StatusCompleted, now)
}

func (s *Store) transition(ctx context.Context, id string, from, to booking.Status, now time.Time) (booking.Booking, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return booking.Booking{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	b, err := s.bookings.getForUpdateTx(ctx, tx, id)
	if err != nil {
		return booking.Booking{}, err
	}
	if b.Status == to {
		return b, tx.Commit(ctx)
	}
	if b.Status != from {
		return booking.Booking{}, ErrStateConflict
	}
	if to == booking.StatusCompleted && now.Before(b.EndAt) {
		return booking.Booking{}, ErrStateConflict
	}

	if err := s.bookings.setStatusTx(ctx, tx, b.ID, to); err != nil {
		return booking.Booking{}, err
	}
	b.Status = to

	if to == booking.StatusCompleted {
		if err := s.insertBookingEvent(ctx, tx, outbox.EventBookingCompleted, b); err != nil {
			return booking.Booking{}, err
		}
	}
	return b, tx.Commit(ctx)
}

func (s *Store) insertBookingEvent(ctx context.Context, tx pgx.Tx, eventType string, b booking.Booking) error {
	payload, err := json.Marshal(map[string]any{
		"booking_id":     b.ID,
		"student_id":     b.StudentID,
		"start_at":       b.StartAt.UTC().Format(time.RFC3339),
		"end_at":         b.EndAt.UTC().Format(time.RFC3339),
		"mode":           b.Mode.String(),
		"status":         string(b.Status),
		"payment_status": string(b.PaymentStatus),
		"price_cents":    b.PriceCents,
	})
	if err != nil {
		return err
	}
	return s.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "booking",
		AggregateID:   b.ID,
		EventType:     eventType,
		Payload:       payload,
	})
}
