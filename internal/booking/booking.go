// Package booking holds the booking domain model, the time-selection
// validator, and the orchestration that turns a request plus an
// availability window into a persisted booking.
package booking

import (
	"time"

	"github.com/tutorlane/bookingd/internal/session"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

type PaymentStatus string

const (
	PaymentUnpaid     PaymentStatus = "unpaid"
	PaymentPending    PaymentStatus = "pending"
	PaymentPaid       PaymentStatus = "paid"
	PaymentRefunded   PaymentStatus = "refunded"
	PaymentProcessing PaymentStatus = "processing"
)

// Booking is a committed lesson. PaymentSessionRef is the external checkout
// session id for bookings created from a payment confirmation; it is unique
// across bookings, which is what makes confirmation replays idempotent.
// Bookings are never deleted: cancellation is a status change.
type Booking struct {
	ID                string
	StudentID         string
	StartAt           time.Time
	EndAt             time.Time
	DurationMinutes   int
	Mode              session.Mode
	Status            Status
	PaymentStatus     PaymentStatus
	PriceCents        int64
	FreeTrial         bool
	Location          string
	Notes             string
	PaymentSessionRef string
	CreatedAt         time.Time
}
