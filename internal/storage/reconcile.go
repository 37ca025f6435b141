package storage

import (
	"context"

	"github.com/tutorlane/bookingd/internal/availability"
	"github.com/tutorlane/bookingd/internal/session"
)

// WindowConflict is an open window that overlaps an active booking: the
// window was created or edited over time that is already sold. BusyStart
// and BusyEnd are the booking's wall clocks in the business timezone.
type WindowConflict struct {
	Window    availability.Window
	BusyStart string
	BusyEnd   string
}

// ListConflicting finds open windows overlapping pending or confirmed
// bookings of the same date and mode. tz is the IANA business timezone the
// booking instants are projected into.
func (r *AvailabilityRepository) ListConflicting(ctx context.Context, tz string, limit int) ([]WindowConflict, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT
			a.id::text,
			to_char(a.date, 'YYYY-MM-DD'),
			to_char(a.start_time, 'HH24:MI:SS'),
			to_char(a.end_time, 'HH24:MI:SS'),
			a.mode,
			COALESCE(a.location, ''),
			a.is_booked,
			to_char((b.start_at AT TIME ZONE $1)::time, 'HH24:MI:SS'),
			to_char((b.end_at AT TIME ZONE $1)::time, 'HH24:MI:SS')
		FROM availability a
		JOIN bookings b
			ON (b.start_at AT TIME ZONE $1)::date = a.date
			AND b.mode = a.mode
			AND b.status IN ('pending', 'confirmed')
			AND (b.start_at AT TIME ZONE $1)::time < a.end_time
			AND (b.end_at AT TIME ZONE $1)::time > a.start_time
		WHERE a.is_booked = false
		ORDER BY a.date ASC, a.start_time ASC
		LIMIT $2
	`, tz, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conflicts []WindowConflict
	for rows.Next() {
		var c WindowConflict
		var mode string
		if err := rows.Scan(
			&c.Window.ID,
			&c.Window.Date,
			&c.Window.StartTime,
			&c.Window.EndTime,
			&mode,
			&c.Window.Location,
			&c.Window.Booked,
			&c.BusyStart,
			&c.BusyEnd,
		); err != nil {
			return nil, err
		}
		c.Window.Mode = session.Mode(mode)
		conflicts = append(conflicts, c)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return conflicts, nil
}

// TrimWindow replaces a window with its remainders, transactionally. A
// window already gone reports booking.ErrWindowUnavailable; callers may
// treat that as already repaired.
func (s *Store) TrimWindow(ctx context.Context, windowID string, remainders []availability.Window) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := s.windows.consumeTx(ctx, tx, windowID, remainders); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
