package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tutorlane/bookingd/internal/booking"
	"github.com/tutorlane/bookingd/internal/session"
)

type recordingSender struct {
	to   []string
	body []string
	err  error
}

func (s *recordingSender) Send(to, _, body string) error {
	s.to = append(s.to, to)
	s.body = append(s.body, body)
	return s.err
}

func sampleNotification() booking.Notification {
	return booking.Notification{
		StudentID:       "s1",
		StudentName:     "Priya",
		StudentEmail:    "priya@example.com",
		Date:            "September 1, 2026",
		StartTime:       "10:00 AM",
		EndTime:         "11:30 AM",
		DurationMinutes: 90,
		Mode:            session.ModeInPerson,
		Location:        "Newtown Library",
		PriceCents:      10500,
		PaymentStatus:   booking.PaymentUnpaid,
	}
}

func TestBookingCreatedSendsToStudentAndAdmin(t *testing.T) {
	sender := &recordingSender{}
	n := NewBookingNotifier(sender, "admin@tutorlane.com.au")

	if err := n.BookingCreated(context.Background(), sampleNotification()); err != nil {
		t.Fatalf("BookingCreated failed: %v", err)
	}
	if len(sender.to) != 2 {
		t.Fatalf("sent %d emails, want 2", len(sender.to))
	}
	if sender.to[0] != "priya@example.com" || sender.to[1] != "admin@tutorlane.com.au" {
		t.Errorf("recipients = %v", sender.to)
	}

	body := sender.body[0]
	for _, want := range []string{
		"Hi Priya",
		"Time: 10:00 AM - 11:30 AM",
		"Duration: 1 hour 30 min",
		"Mode: In-Person",
		"Location: Newtown Library",
		"Price: $105.00",
		"Payment: unpaid",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
}

func TestBookingCreatedSkipsMissingRecipients(t *testing.T) {
	sender := &recordingSender{}
	n := NewBookingNotifier(sender, "")

	note := sampleNotification()
	note.StudentEmail = ""
	if err := n.BookingCreated(context.Background(), note); err != nil {
		t.Fatalf("BookingCreated failed: %v", err)
	}
	if len(sender.to) != 0 {
		t.Errorf("sent %d emails, want 0", len(sender.to))
	}
}

func TestBookingCreatedReportsSendFailure(t *testing.T) {
	sender := &recordingSender{err: errors.New("smtp down")}
	n := NewBookingNotifier(sender, "admin@tutorlane.com.au")

	err := n.BookingCreated(context.Background(), sampleNotification())
	if err == nil {
		t.Fatal("expected an error")
	}
	// Both sends are attempted even when the first fails.
	if len(sender.to) != 2 {
		t.Errorf("attempted %d sends, want 2", len(sender.to))
	}
}

func TestBuildMessage(t *testing.T) {
	msg := buildMessage("from@x", "to@y", "Subject line", "body text")
	for _, want := range []string{
		"From: from@x\r\n",
		"To: to@y\r\n",
		"Subject: Subject line\r\n",
		"\r\n\r\nbody text\r\n",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestDurationText(t *testing.T) {
	cases := []struct {
		minutes int
		want    string
	}{
		{45, "45 minutes"},
		{60, "1 hour"},
		{90, "1 hour 30 min"},
		{120, "2 hours"},
		{150, "2 hours 30 min"},
	}
	for _, tc := range cases {
		if got := durationText(tc.minutes); got != tc.want {
			t.Errorf("durationText(%d) = %q, want %q", tc.minutes, got, tc.want)
		}
	}
}
