package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tutorlane/bookingd/internal/availability"
	"github.com/tutorlane/bookingd/internal/pricing"
	"github.com/tutorlane/bookingd/internal/session"
	"github.com/tutorlane/bookingd/internal/timeutil"
)

// Store is the persistence contract the orchestrator needs. Implementations
// must make CreateBooking atomic: either the booking row and the window
// consumption both commit, or neither does.
type Store interface {
	// OpenWindow loads an unbooked availability window.
	// Returns ErrWindowNotFound when it does not exist or is booked.
	OpenWindow(ctx context.Context, id string) (availability.Window, error)

	// CreateBooking inserts the booking and, when consume is non-nil,
	// replaces the consumed window with its remainders. The window
	// replacement must be conditional on the window still being unbooked;
	// a lost race surfaces as ErrWindowUnavailable with nothing persisted.
	// A payment-session-reference collision surfaces as
	// ErrDuplicateSessionRef.
	CreateBooking(ctx context.Context, b Booking, consume *Consumption) (Booking, error)

	// BookingBySessionRef returns the booking carrying the given external
	// payment session reference, or nil when none exists.
	BookingBySessionRef(ctx context.Context, ref string) (*Booking, error)
}

// Consumption describes the window replacement that commits together with a
// booking: delete the window, insert the remainders.
type Consumption struct {
	WindowID   string
	Remainders []availability.Window
}

// Notifier delivers booking notifications. Failures are logged and never
// affect the booking outcome.
type Notifier interface {
	BookingCreated(ctx context.Context, n Notification) error
}

// Notification is the booking summary handed to the notifier, with times
// already rendered for display.
type Notification struct {
	StudentID       string
	StudentName     string
	StudentEmail    string
	Date            string
	StartTime       string
	EndTime         string
	DurationMinutes int
	Mode            session.Mode
	Location        string
	PriceCents      int64
	PaymentStatus   PaymentStatus
}

// CheckoutProvider creates hosted checkout sessions. The full booking
// intent travels as session metadata and comes back with the payment
// confirmation; nothing is persisted locally until then.
type CheckoutProvider interface {
	CreateSession(ctx context.Context, intent CheckoutIntent) (CheckoutSession, error)
}

// CheckoutIntent is everything needed to create the booking once payment
// is confirmed.
type CheckoutIntent struct {
	StudentID       string
	StudentName     string
	StudentEmail    string
	WindowID        string
	Date            string
	Mode            session.Mode
	Location        string
	StartTime       string
	EndTime         string
	DurationMinutes int
	Notes           string
	AmountCents     int64
}

type CheckoutSession struct {
	ID  string
	URL string
}

// PaymentConfirmation is a verified checkout-completion event. Signature
// verification happens before this is constructed.
type PaymentConfirmation struct {
	SessionRef string
	Intent     CheckoutIntent
}

// Request is a student's booking intent against a window. FreeTrial marks
// the student's introductory lesson: booked like any other, priced at zero.
type Request struct {
	StudentID    string
	StudentName  string
	StudentEmail string
	WindowID     string
	StartTime    string
	EndTime      string
	Notes        string
	FreeTrial    bool
}

type Confirmation struct {
	Booking    Booking
	PriceCents int64
}

type Config struct {
	MinimumMinutes int
	Timezone       *time.Location
}

// Service orchestrates validation, pricing, allocation and persistence for
// both booking entry paths.
type Service struct {
	store      Store
	notifier   Notifier
	checkout   CheckoutProvider
	logger     *slog.Logger
	loc        *time.Location
	minMinutes int
}

func NewService(store Store, notifier Notifier, checkout CheckoutProvider, logger *slog.Logger, cfg Config) *Service {
	if cfg.MinimumMinutes <= 0 {
		cfg.MinimumMinutes = DefaultMinimumMinutes
	}
	if cfg.Timezone == nil {
		cfg.Timezone = time.UTC
	}
	return &Service{
		store:      store,
		notifier:   notifier,
		checkout:   checkout,
		logger:     logger,
		loc:        cfg.Timezone,
		minMinutes: cfg.MinimumMinutes,
	}
}

// Book executes the pay-later path: validate, price, persist the booking
// (status pending, unpaid) and consume the window, then notify best-effort.
// Nothing is written when validation fails.
func (s *Service) Book(ctx context.Context, req Request) (Confirmation, error) {
	w, err := s.store.OpenWindow(ctx, req.WindowID)
	if err != nil {
		if errors.Is(err, ErrWindowNotFound) {
			return Confirmation{}, ErrWindowUnavailable
		}
		return Confirmation{}, s.opError("load window", err)
	}

	if verr := ValidateTimes(w.StartTime, w.EndTime, req.StartTime, req.EndTime, s.minMinutes); verr != nil {
		return Confirmation{}, verr
	}

	duration := timeutil.Duration(req.StartTime, req.EndTime)
	price, err := pricing.SessionPriceCents(w.Mode, duration)
	if err != nil {
		return Confirmation{}, s.opError("price session", err)
	}
	if req.FreeTrial {
		price = 0
	}

	b := Booking{
		StudentID:       req.StudentID,
		StartAt:         s.combine(w.Date, req.StartTime),
		EndAt:           s.combine(w.Date, req.EndTime),
		DurationMinutes: duration,
		Mode:            w.Mode,
		Status:          StatusPending,
		PaymentStatus:   PaymentUnpaid,
		PriceCents:      price,
		FreeTrial:       req.FreeTrial,
		Location:        w.Location,
		Notes:           req.Notes,
	}
	consume := &Consumption{
		WindowID:   w.ID,
		Remainders: availability.Remainders(w, req.StartTime, req.EndTime),
	}

	created, err := s.store.CreateBooking(ctx, b, consume)
	if err != nil {
		if errors.Is(err, ErrWindowUnavailable) {
			return Confirmation{}, ErrWindowUnavailable
		}
		return Confirmation{}, s.opError("create booking", err)
	}

	s.notifyCreated(ctx, created, req.StudentName, req.StudentEmail)
	return Confirmation{Booking: created, PriceCents: price}, nil
}

// BeginCheckout executes the front half of the pay-now path: validate and
// price exactly as Book does, then hand the intent to the checkout provider.
// No local state changes; the window stays bookable until a confirmation
// arrives.
func (s *Service) BeginCheckout(ctx context.Context, req Request) (CheckoutSession, error) {
	w, err := s.store.OpenWindow(ctx, req.WindowID)
	if err != nil {
		if errors.Is(err, ErrWindowNotFound) {
			return CheckoutSession{}, ErrWindowUnavailable
		}
		return CheckoutSession{}, s.opError("load window", err)
	}

	if verr := ValidateTimes(w.StartTime, w.EndTime, req.StartTime, req.EndTime, s.minMinutes); verr != nil {
		return CheckoutSession{}, verr
	}

	duration := timeutil.Duration(req.StartTime, req.EndTime)
	price, err := pricing.SessionPriceCents(w.Mode, duration)
	if err != nil {
		return CheckoutSession{}, s.opError("price session", err)
	}

	sess, err := s.checkout.CreateSession(ctx, CheckoutIntent{
		StudentID:       req.StudentID,
		StudentName:     req.StudentName,
		StudentEmail:    req.StudentEmail,
		WindowID:        w.ID,
		Date:            w.Date,
		Mode:            w.Mode,
		Location:        w.Location,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		DurationMinutes: duration,
		Notes:           req.Notes,
		AmountCents:     price,
	})
	if err != nil {
		return CheckoutSession{}, s.opError("create checkout session", err)
	}
	return sess, nil
}

// ConfirmPayment executes the back half of the pay-now path. It is safe
// against at-least-once delivery: a session reference already carried by a
// booking makes the call a no-op, and a concurrent duplicate losing the
// insert race is resolved the same way. The returned bool reports whether
// this call created the booking.
func (s *Service) ConfirmPayment(ctx context.Context, pc PaymentConfirmation) (Booking, bool, error) {
	existing, err := s.store.BookingBySessionRef(ctx, pc.SessionRef)
	if err != nil {
		return Booking{}, false, s.opError("lookup session ref", err)
	}
	if existing != nil {
		s.logger.Info("payment confirmation replay ignored",
			"session_ref", pc.SessionRef, "booking_id", existing.ID)
		return *existing, false, nil
	}

	in := pc.Intent
	duration := in.DurationMinutes
	if duration <= 0 {
		duration = timeutil.Duration(in.StartTime, in.EndTime)
	}
	price, err := pricing.SessionPriceCents(in.Mode, duration)
	if err != nil {
		return Booking{}, false, s.opError("price session", err)
	}

	w, err := s.store.OpenWindow(ctx, in.WindowID)
	if err != nil {
		if errors.Is(err, ErrWindowNotFound) {
			// Paid, but the window was consumed or removed before the
			// confirmation arrived. No booking is created; the payment
			// needs support follow-up (refund or manual reassignment).
			s.logger.Error("paid checkout has no window to allocate",
				"session_ref", pc.SessionRef, "window_id", in.WindowID, "student_id", in.StudentID)
			return Booking{}, false, ErrWindowUnavailable
		}
		return Booking{}, false, s.opError("load window", err)
	}
	if !intervalWithin(w, in.StartTime, in.EndTime) || w.Mode != in.Mode {
		// The window changed shape since checkout began; the paid interval
		// no longer matches published availability.
		s.logger.Error("paid checkout no longer fits its window",
			"session_ref", pc.SessionRef, "window_id", in.WindowID)
		return Booking{}, false, ErrWindowUnavailable
	}

	b := Booking{
		StudentID:         in.StudentID,
		StartAt:           s.combine(in.Date, in.StartTime),
		EndAt:             s.combine(in.Date, in.EndTime),
		DurationMinutes:   duration,
		Mode:              in.Mode,
		Status:            StatusConfirmed,
		PaymentStatus:     PaymentPaid,
		PriceCents:        price,
		Location:          in.Location,
		Notes:             in.Notes,
		PaymentSessionRef: pc.SessionRef,
	}
	consume := &Consumption{
		WindowID:   w.ID,
		Remainders: availability.Remainders(w, in.StartTime, in.EndTime),
	}

	created, err := s.store.CreateBooking(ctx, b, consume)
	switch {
	case errors.Is(err, ErrDuplicateSessionRef):
		winner, lookupErr := s.store.BookingBySessionRef(ctx, pc.SessionRef)
		if lookupErr != nil || winner == nil {
			return Booking{}, false, s.opError("lookup after duplicate session ref", err)
		}
		return *winner, false, nil
	case errors.Is(err, ErrWindowUnavailable):
		s.logger.Error("paid checkout lost the window at commit",
			"session_ref", pc.SessionRef, "window_id", in.WindowID)
		return Booking{}, false, ErrWindowUnavailable
	case err != nil:
		return Booking{}, false, s.opError("create booking", err)
	}

	s.notifyCreated(ctx, created, in.StudentName, in.StudentEmail)
	return created, true, nil
}

func (s *Service) notifyCreated(ctx context.Context, b Booking, studentName, studentEmail string) {
	if s.notifier == nil {
		return
	}
	startAt := b.StartAt.In(s.loc)
	endAt := b.EndAt.In(s.loc)
	n := Notification{
		StudentID:       b.StudentID,
		StudentName:     studentName,
		StudentEmail:    studentEmail,
		Date:            startAt.Format("January 2, 2006"),
		StartTime:       startAt.Format("3:04 PM"),
		EndTime:         endAt.Format("3:04 PM"),
		DurationMinutes: b.DurationMinutes,
		Mode:            b.Mode,
		Location:        b.Location,
		PriceCents:      b.PriceCents,
		PaymentStatus:   b.PaymentStatus,
	}
	if err := s.notifier.BookingCreated(ctx, n); err != nil {
		s.logger.Error("booking notification failed", "booking_id", b.ID, "err", err)
	}
}

// combine anchors a wall-clock time on a date in the business timezone.
func (s *Service) combine(date, clock string) time.Time {
	day, err := time.ParseInLocation("2006-01-02", date, s.loc)
	if err != nil {
		return time.Time{}
	}
	return day.Add(time.Duration(timeutil.TimeToMinutes(clock)) * time.Minute)
}

func (s *Service) opError(op string, err error) *OpError {
	oe := newOpError(err)
	s.logger.Error("booking operation failed", "op", op, "correlation_id", oe.CorrelationID, "err", err)
	return oe
}

func intervalWithin(w availability.Window, start, end string) bool {
	return timeutil.TimeToMinutes(start) >= timeutil.TimeToMinutes(w.StartTime) &&
		timeutil.TimeToMinutes(end) <= timeutil.TimeToMinutes(w.EndTime)
}
