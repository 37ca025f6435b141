package booking

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/tutorlane/bookingd/internal/availability"
	"github.com/tutorlane/bookingd/internal/session"
)

type fakeStore struct {
	windows map[string]availability.Window
	byRef   map[string]Booking

	created     []Booking
	consumed    []*Consumption
	createErr   error
	lookupErr   error
	nextID      string
	createCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		windows: map[string]availability.Window{},
		byRef:   map[string]Booking{},
		nextID:  "b-1",
	}
}

func (s *fakeStore) OpenWindow(_ context.Context, id string) (availability.Window, error) {
	w, ok := s.windows[id]
	if !ok {
		return availability.Window{}, ErrWindowNotFound
	}
	return w, nil
}

func (s *fakeStore) CreateBooking(_ context.Context, b Booking, consume *Consumption) (Booking, error) {
	s.createCalls++
	if s.createErr != nil {
		return Booking{}, s.createErr
	}
	b.ID = s.nextID
	b.CreatedAt = time.Now()
	s.created = append(s.created, b)
	s.consumed = append(s.consumed, consume)
	if b.PaymentSessionRef != "" {
		s.byRef[b.PaymentSessionRef] = b
	}
	return b, nil
}

func (s *fakeStore) BookingBySessionRef(_ context.Context, ref string) (*Booking, error) {
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	b, ok := s.byRef[ref]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

type fakeNotifier struct {
	sent []Notification
	err  error
}

func (n *fakeNotifier) BookingCreated(_ context.Context, note Notification) error {
	n.sent = append(n.sent, note)
	return n.err
}

type fakeCheckout struct {
	intents []CheckoutIntent
	session CheckoutSession
	err     error
}

func (c *fakeCheckout) CreateSession(_ context.Context, intent CheckoutIntent) (CheckoutSession, error) {
	c.intents = append(c.intents, intent)
	if c.err != nil {
		return CheckoutSession{}, c.err
	}
	return c.session, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sydney(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Australia/Sydney")
	if err != nil {
		t.Fatal(err)
	}
	return loc
}

func newTestService(t *testing.T, store *fakeStore, notifier *fakeNotifier, checkout *fakeCheckout) *Service {
	t.Helper()
	return NewService(store, notifier, checkout, testLogger(), Config{
		MinimumMinutes: 60,
		Timezone:       sydney(t),
	})
}

func openWindow(id string, mode session.Mode) availability.Window {
	return availability.Window{
		ID:        id,
		Date:      "2026-09-01",
		StartTime: "09:00:00",
		EndTime:   "13:00:00",
		Mode:      mode,
		Location:  "Newtown Library",
	}
}

func TestBookPayLater(t *testing.T) {
	store := newFakeStore()
	store.windows["w1"] = openWindow("w1", session.ModeOnline)
	notifier := &fakeNotifier{}
	svc := newTestService(t, store, notifier, &fakeCheckout{})

	conf, err := svc.Book(context.Background(), Request{
		StudentID:    "s1",
		StudentName:  "Priya",
		StudentEmail: "priya@example.com",
		WindowID:     "w1",
		StartTime:    "10:00",
		EndTime:      "11:00",
		Notes:        "year 11 maths",
	})
	if err != nil {
		t.Fatalf("Book failed: %v", err)
	}

	b := conf.Booking
	if b.Status != StatusPending || b.PaymentStatus != PaymentUnpaid {
		t.Errorf("status = %s/%s, want pending/unpaid", b.Status, b.PaymentStatus)
	}
	if conf.PriceCents != 6000 || b.PriceCents != 6000 {
		t.Errorf("price = %d/%d, want 6000", conf.PriceCents, b.PriceCents)
	}
	if b.DurationMinutes != 60 {
		t.Errorf("duration = %d, want 60", b.DurationMinutes)
	}

	// 10:00 on the window's date, anchored in the business timezone.
	wantStart := time.Date(2026, 9, 1, 10, 0, 0, 0, sydney(t))
	if !b.StartAt.Equal(wantStart) {
		t.Errorf("StartAt = %v, want %v", b.StartAt, wantStart)
	}

	if len(store.consumed) != 1 || store.consumed[0] == nil {
		t.Fatal("window consumption not passed to store")
	}
	c := store.consumed[0]
	if c.WindowID != "w1" {
		t.Errorf("consumed window = %s, want w1", c.WindowID)
	}
	if len(c.Remainders) != 2 {
		t.Fatalf("remainders = %d, want 2 (interior online booking)", len(c.Remainders))
	}

	if len(notifier.sent) != 1 {
		t.Fatalf("notifications sent = %d, want 1", len(notifier.sent))
	}
	note := notifier.sent[0]
	if note.StudentEmail != "priya@example.com" || note.StartTime != "10:00 AM" || note.EndTime != "11:00 AM" {
		t.Errorf("notification = %+v", note)
	}
}

func TestBookValidationFailureWritesNothing(t *testing.T) {
	store := newFakeStore()
	store.windows["w1"] = openWindow("w1", session.ModeOnline)
	svc := newTestService(t, store, &fakeNotifier{}, &fakeCheckout{})

	_, err := svc.Book(context.Background(), Request{
		StudentID: "s1",
		WindowID:  "w1",
		StartTime: "10:00",
		EndTime:   "10:30",
	})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if verr.Reason != ReasonBelowMinimumDuration {
		t.Errorf("reason = %s, want below_minimum_duration", verr.Reason)
	}
	if store.createCalls != 0 {
		t.Errorf("store was written to despite validation failure")
	}
}

func TestBookWindowGone(t *testing.T) {
	svc := newTestService(t, newFakeStore(), &fakeNotifier{}, &fakeCheckout{})
	_, err := svc.Book(context.Background(), Request{
		StudentID: "s1", WindowID: "missing", StartTime: "10:00", EndTime: "11:00",
	})
	if !errors.Is(err, ErrWindowUnavailable) {
		t.Fatalf("err = %v, want ErrWindowUnavailable", err)
	}
}

func TestBookLostRace(t *testing.T) {
	store := newFakeStore()
	store.windows["w1"] = openWindow("w1", session.ModeOnline)
	store.createErr = ErrWindowUnavailable
	notifier := &fakeNotifier{}
	svc := newTestService(t, store, notifier, &fakeCheckout{})

	_, err := svc.Book(context.Background(), Request{
		StudentID: "s1", WindowID: "w1", StartTime: "10:00", EndTime: "11:00",
	})
	if !errors.Is(err, ErrWindowUnavailable) {
		t.Fatalf("err = %v, want ErrWindowUnavailable", err)
	}
	if len(notifier.sent) != 0 {
		t.Error("notification sent for a failed booking")
	}
}

func TestBookNotifierFailureDoesNotFailBooking(t *testing.T) {
	store := newFakeStore()
	store.windows["w1"] = openWindow("w1", session.ModeInPerson)
	svc := newTestService(t, store, &fakeNotifier{err: errors.New("smtp down")}, &fakeCheckout{})

	conf, err := svc.Book(context.Background(), Request{
		StudentID: "s1", WindowID: "w1", StartTime: "09:00", EndTime: "10:00",
	})
	if err != nil {
		t.Fatalf("Book failed: %v", err)
	}
	if conf.PriceCents != 7000 {
		t.Errorf("in-person price = %d, want 7000", conf.PriceCents)
	}
	// In-person windows are consumed whole.
	if rem := store.consumed[0].Remainders; len(rem) != 0 {
		t.Errorf("in-person remainders = %d, want 0", len(rem))
	}
}

func TestBookFreeTrial(t *testing.T) {
	store := newFakeStore()
	store.windows["w1"] = openWindow("w1", session.ModeOnline)
	svc := newTestService(t, store, &fakeNotifier{}, &fakeCheckout{})

	conf, err := svc.Book(context.Background(), Request{
		StudentID: "s1", WindowID: "w1", StartTime: "10:00", EndTime: "11:00", FreeTrial: true,
	})
	if err != nil {
		t.Fatalf("Book failed: %v", err)
	}
	if conf.Booking.PriceCents != 0 || !conf.Booking.FreeTrial {
		t.Errorf("free trial booking = price %d, flag %v", conf.Booking.PriceCents, conf.Booking.FreeTrial)
	}
}

func TestBeginCheckout(t *testing.T) {
	store := newFakeStore()
	store.windows["w1"] = openWindow("w1", session.ModeOnline)
	checkout := &fakeCheckout{session: CheckoutSession{ID: "cs_123", URL: "https://checkout.example/cs_123"}}
	svc := newTestService(t, store, &fakeNotifier{}, checkout)

	sess, err := svc.BeginCheckout(context.Background(), Request{
		StudentID:    "s1",
		StudentEmail: "priya@example.com",
		WindowID:     "w1",
		StartTime:    "10:00",
		EndTime:      "12:00",
	})
	if err != nil {
		t.Fatalf("BeginCheckout failed: %v", err)
	}
	if sess.ID != "cs_123" {
		t.Errorf("session id = %s", sess.ID)
	}
	if store.createCalls != 0 {
		t.Error("BeginCheckout must not persist anything")
	}
	if len(checkout.intents) != 1 {
		t.Fatal("checkout provider not called")
	}
	in := checkout.intents[0]
	if in.AmountCents != 12000 || in.DurationMinutes != 120 {
		t.Errorf("intent = amount %d, duration %d; want 12000, 120", in.AmountCents, in.DurationMinutes)
	}
	if in.WindowID != "w1" || in.Date != "2026-09-01" || in.Mode != session.ModeOnline {
		t.Errorf("intent window fields = %+v", in)
	}
}

func confirmedIntent() CheckoutIntent {
	return CheckoutIntent{
		StudentID:       "s1",
		StudentName:     "Priya",
		StudentEmail:    "priya@example.com",
		WindowID:        "w1",
		Date:            "2026-09-01",
		Mode:            session.ModeOnline,
		StartTime:       "10:00",
		EndTime:         "11:00",
		DurationMinutes: 60,
		AmountCents:     6000,
	}
}

func TestConfirmPaymentCreatesBooking(t *testing.T) {
	store := newFakeStore()
	store.windows["w1"] = openWindow("w1", session.ModeOnline)
	notifier := &fakeNotifier{}
	svc := newTestService(t, store, notifier, &fakeCheckout{})

	b, created, err := svc.ConfirmPayment(context.Background(), PaymentConfirmation{
		SessionRef: "cs_123",
		Intent:     confirmedIntent(),
	})
	if err != nil {
		t.Fatalf("ConfirmPayment failed: %v", err)
	}
	if !created {
		t.Fatal("created = false, want true")
	}
	if b.Status != StatusConfirmed || b.PaymentStatus != PaymentPaid {
		t.Errorf("status = %s/%s, want confirmed/paid", b.Status, b.PaymentStatus)
	}
	if b.PaymentSessionRef != "cs_123" {
		t.Errorf("session ref = %s", b.PaymentSessionRef)
	}
	if b.PriceCents != 6000 {
		t.Errorf("price = %d, want 6000", b.PriceCents)
	}
	if len(notifier.sent) != 1 {
		t.Errorf("notifications = %d, want 1", len(notifier.sent))
	}
}

// The price is recomputed from mode and duration at confirmation; a metadata
// amount cannot set it.
func TestConfirmPaymentRecomputesPrice(t *testing.T) {
	store := newFakeStore()
	store.windows["w1"] = openWindow("w1", session.ModeOnline)
	svc := newTestService(t, store, &fakeNotifier{}, &fakeCheckout{})

	intent := confirmedIntent()
	intent.AmountCents = 1 // tampered

	b, _, err := svc.ConfirmPayment(context.Background(), PaymentConfirmation{
		SessionRef: "cs_tampered", Intent: intent,
	})
	if err != nil {
		t.Fatalf("ConfirmPayment failed: %v", err)
	}
	if b.PriceCents != 6000 {
		t.Errorf("price = %d, want recomputed 6000", b.PriceCents)
	}
}

func TestConfirmPaymentReplayIsNoOp(t *testing.T) {
	store := newFakeStore()
	store.windows["w1"] = openWindow("w1", session.ModeOnline)
	svc := newTestService(t, store, &fakeNotifier{}, &fakeCheckout{})

	first, created, err := svc.ConfirmPayment(context.Background(), PaymentConfirmation{
		SessionRef: "cs_123", Intent: confirmedIntent(),
	})
	if err != nil || !created {
		t.Fatalf("first confirmation: created=%v err=%v", created, err)
	}

	second, created, err := svc.ConfirmPayment(context.Background(), PaymentConfirmation{
		SessionRef: "cs_123", Intent: confirmedIntent(),
	})
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if created {
		t.Error("replay reported created = true")
	}
	if second.ID != first.ID {
		t.Errorf("replay returned %s, want %s", second.ID, first.ID)
	}
	if store.createCalls != 1 {
		t.Errorf("createCalls = %d, want 1", store.createCalls)
	}
}

func TestConfirmPaymentDuplicateInsertRace(t *testing.T) {
	store := newFakeStore()
	store.windows["w1"] = openWindow("w1", session.ModeOnline)
	store.createErr = ErrDuplicateSessionRef
	store.byRef["cs_123"] = Booking{ID: "winner", PaymentSessionRef: "cs_123"}
	notifier := &fakeNotifier{}
	svc := newTestService(t, store, notifier, &fakeCheckout{})

	b, created, err := svc.ConfirmPayment(context.Background(), PaymentConfirmation{
		SessionRef: "cs_123", Intent: confirmedIntent(),
	})
	if err != nil {
		t.Fatalf("ConfirmPayment failed: %v", err)
	}
	if created || b.ID != "winner" {
		t.Errorf("got created=%v id=%s, want false/winner", created, b.ID)
	}
	if len(notifier.sent) != 0 {
		t.Error("duplicate confirmation must not notify again")
	}
}

func TestConfirmPaymentWindowGone(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, &fakeNotifier{}, &fakeCheckout{})

	_, created, err := svc.ConfirmPayment(context.Background(), PaymentConfirmation{
		SessionRef: "cs_123", Intent: confirmedIntent(),
	})
	if !errors.Is(err, ErrWindowUnavailable) {
		t.Fatalf("err = %v, want ErrWindowUnavailable", err)
	}
	if created || store.createCalls != 0 {
		t.Error("no booking may be created when the window is gone")
	}
}

func TestConfirmPaymentWindowShrunk(t *testing.T) {
	store := newFakeStore()
	w := openWindow("w1", session.ModeOnline)
	w.StartTime = "10:30:00" // paid interval 10:00-11:00 no longer fits
	store.windows["w1"] = w
	svc := newTestService(t, store, &fakeNotifier{}, &fakeCheckout{})

	_, _, err := svc.ConfirmPayment(context.Background(), PaymentConfirmation{
		SessionRef: "cs_123", Intent: confirmedIntent(),
	})
	if !errors.Is(err, ErrWindowUnavailable) {
		t.Fatalf("err = %v, want ErrWindowUnavailable", err)
	}
	if store.createCalls != 0 {
		t.Error("no booking may be created when the paid interval no longer fits")
	}
}
