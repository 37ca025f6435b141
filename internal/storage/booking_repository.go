package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/tutorlane/bookingd/internal/booking"
	"github.com/tutorlane/bookingd/internal/session"
	"github.com/tutorlane/bookingd/libs/db"
)

// ErrStateConflict: the booking exists but its status does not allow the
// requested transition.
var ErrStateConflict = errors.New("booking state does not allow this change")

type BookingRepository struct {
	pool *db.Pool
}

func NewBookingRepository(pool *db.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

const bookingColumns = `
	id::text,
	student_id,
	start_at,
	end_at,
	duration_minutes,
	mode,
	status,
	payment_status,
	price_cents,
	is_free_trial,
	COALESCE(location, ''),
	COALESCE(notes, ''),
	COALESCE(payment_session_ref, ''),
	created_at`

func (r *BookingRepository) insertTx(ctx context.Context, tx pgx.Tx, b booking.Booking) (booking.Booking, error) {
	err := tx.QueryRow(ctx, `
		INSERT INTO bookings
			(student_id, start_at, end_at, duration_minutes, mode, status, payment_status,
			 price_cents, is_free_trial, location, notes, payment_session_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), NULLIF($11, ''), NULLIF($12, ''))
		RETURNING id::text, created_at
	`, b.StudentID, b.StartAt, b.EndAt, b.DurationMinutes, string(b.Mode), string(b.Status),
		string(b.PaymentStatus), b.PriceCents, b.FreeTrial, b.Location, b.Notes, b.PaymentSessionRef,
	).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return booking.Booking{}, booking.ErrDuplicateSessionRef
		}
		return booking.Booking{}, err
	}
	return b, nil
}

// BySessionRef returns the booking carrying the external payment session
// reference, or nil when none does.
func (r *BookingRepository) BySessionRef(ctx context.Context, ref string) (*booking.Booking, error) {
	if ref == "" {
		return nil, nil
	}
	row := r.pool.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE payment_session_ref = $1
	`, ref)
	b, err := scanBooking(row)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

func (r *BookingRepository) ListByStudent(ctx context.Context, studentID string, limit int) ([]booking.Booking, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE student_id = $1
		ORDER BY start_at DESC
		LIMIT $2
	`, studentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []booking.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return bookings, nil
}

func (r *BookingRepository) getForUpdateTx(ctx context.Context, tx pgx.Tx, id string) (booking.Booking, error) {
	row := tx.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id = $1
		FOR UPDATE
	`, id)
	return scanBooking(row)
}

func (r *BookingRepository) setStatusTx(ctx context.Context, tx pgx.Tx, id string, status booking.Status) error {
	_, err := tx.Exec(ctx, `
		UPDATE bookings SET status = $2 WHERE id = $1
	`, id, string(status))
	return err
}

func scanBooking(row pgx.Row) (booking.Booking, error) {
	var b booking.Booking
	var mode, status, paymentStatus string
	if err := row.Scan(
		&b.ID,
		&b.StudentID,
		&b.StartAt,
		&b.EndAt,
		&b.DurationMinutes,
		&mode,
		&status,
		&paymentStatus,
		&b.PriceCents,
		&b.FreeTrial,
		&b.Location,
		&b.Notes,
		&b.PaymentSessionRef,
		&b.CreatedAt,
	); err != nil {
		return booking.Booking{}, err
	}
	b.Mode = session.Mode(mode)
	b.Status = booking.Status(status)
	b.PaymentStatus = booking.PaymentStatus(paymentStatus)
	return b, nil
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
