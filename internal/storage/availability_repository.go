package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/tutorlane/bookingd/internal/availability"
	"github.com/tutorlane/bookingd/internal/booking"
	"github.com/tutorlane/bookingd/internal/session"
	"github.com/tutorlane/bookingd/libs/db"
)

// ErrWindowOverlap: the window collides with an existing one on the same
// date and mode. Enforced by an exclusion constraint on the table.
var ErrWindowOverlap = errors.New("window overlaps an existing window")

type AvailabilityRepository struct {
	pool *db.Pool
}

func NewAvailabilityRepository(pool *db.Pool) *AvailabilityRepository {
	return &AvailabilityRepository{pool: pool}
}

const windowColumns = `
	id::text,
	to_char(date, 'YYYY-MM-DD'),
	to_char(start_time, 'HH24:MI:SS'),
	to_char(end_time, 'HH24:MI:SS'),
	mode,
	COALESCE(location, ''),
	is_booked`

// ListOpen returns unbooked windows on or after fromDate ("YYYY-MM-DD"),
// ordered by date then start time. An empty fromDate lists everything.
func (r *AvailabilityRepository) ListOpen(ctx context.Context, fromDate string) ([]availability.Window, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+windowColumns+`
		FROM availability
		WHERE is_booked = false
			AND ($1 = '' OR date >= $1::date)
		ORDER BY date ASC, start_time ASC
	`, fromDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var windows []availability.Window
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return windows, nil
}

// Get loads an unbooked window by id.
func (r *AvailabilityRepository) Get(ctx context.Context, id string) (availability.Window, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+windowColumns+`
		FROM availability
		WHERE id = $1 AND is_booked = false
	`, id)
	w, err := scanWindow(row)
	if err != nil {
		if IsNotFound(err) {
			return availability.Window{}, booking.ErrWindowNotFound
		}
		return availability.Window{}, err
	}
	return w, nil
}

func (r *AvailabilityRepository) Create(ctx context.Context, w availability.Window) (availability.Window, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO availability (date, start_time, end_time, mode, location, is_booked)
		VALUES ($1::date, $2::time, $3::time, $4, NULLIF($5, ''), false)
		RETURNING id::text
	`, w.Date, w.StartTime, w.EndTime, string(w.Mode), w.Location).Scan(&w.ID)
	if err != nil {
		if isExclusionViolation(err) {
			return availability.Window{}, ErrWindowOverlap
		}
		return availability.Window{}, err
	}
	w.Booked = false
	return w, nil
}

// Update reschedules a window. Booked windows are immutable; updating one
// reports ErrWindowNotFound, same as a missing id.
func (r *AvailabilityRepository) Update(ctx context.Context, w availability.Window) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE availability
		SET date = $2::date,
			start_time = $3::time,
			end_time = $4::time,
			mode = $5,
			location = NULLIF($6, '')
		WHERE id = $1 AND is_booked = false
	`, w.ID, w.Date, w.StartTime, w.EndTime, string(w.Mode), w.Location)
	if err != nil {
		if isExclusionViolation(err) {
			return ErrWindowOverlap
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return booking.ErrWindowNotFound
	}
	return nil
}

func (r *AvailabilityRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM availability WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return booking.ErrWindowNotFound
	}
	return nil
}

// consumeTx deletes the consumed window and inserts its remainders.
// The delete is conditional on the window still being unbooked; zero rows
// affected means a concurrent booking won, and the caller must roll back.
func (r *AvailabilityRepository) consumeTx(ctx context.Context, tx pgx.Tx, windowID string, remainders []availability.Window) error {
	tag, err := tx.Exec(ctx, `
		DELETE FROM availability WHERE id = $1 AND is_booked = false
	`, windowID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return booking.ErrWindowUnavailable
	}
	for _, w := range remainders {
		if _, err := tx.Exec(ctx, `
			INSERT INTO availability (date, start_time, end_time, mode, location, is_booked)
			VALUES ($1::date, $2::time, $3::time, $4, NULLIF($5, ''), false)
		`, w.Date, w.StartTime, w.EndTime, string(w.Mode), w.Location); err != nil {
			return err
		}
	}
	return nil
}

func isExclusionViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}

func scanWindow(row pgx.Row) (availability.Window, error) {
	var w availability.Window
	var mode string
	if err := row.Scan(&w.ID, &w.Date, &w.StartTime, &w.EndTime, &mode, &w.Location, &w.Booked); err != nil {
		return availability.Window{}, err
	}
	w.Mode = session.Mode(mode)
	return w, nil
}
