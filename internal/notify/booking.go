package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tutorlane/bookingd/internal/booking"
	"github.com/tutorlane/bookingd/internal/pricing"
	"github.com/tutorlane/bookingd/internal/session"
)

// BookingNotifier emails a booking summary to the student and the admin.
type BookingNotifier struct {
	sender     Sender
	adminEmail string
}

func NewBookingNotifier(sender Sender, adminEmail string) *BookingNotifier {
	return &BookingNotifier{sender: sender, adminEmail: strings.TrimSpace(adminEmail)}
}

var _ booking.Notifier = (*BookingNotifier)(nil)

func (n *BookingNotifier) BookingCreated(_ context.Context, note booking.Notification) error {
	subject := fmt.Sprintf("Lesson booked for %s", note.Date)
	body := summaryBody(note)

	var errs []error
	if note.StudentEmail != "" {
		if err := n.sender.Send(note.StudentEmail, subject, body); err != nil {
			errs = append(errs, fmt.Errorf("student email: %w", err))
		}
	}
	if n.adminEmail != "" {
		adminSubject := subject
		if note.StudentName != "" {
			adminSubject = fmt.Sprintf("%s (%s)", subject, note.StudentName)
		}
		if err := n.sender.Send(n.adminEmail, adminSubject, body); err != nil {
			errs = append(errs, fmt.Errorf("admin email: %w", err))
		}
	}
	return errors.Join(errs...)
}

func summaryBody(note booking.Notification) string {
	var b strings.Builder
	name := note.StudentName
	if name == "" {
		name = "Student"
	}
	fmt.Fprintf(&b, "Hi %s,\n\nYour lesson is booked.\n\n", name)
	fmt.Fprintf(&b, "Date: %s\n", note.Date)
	fmt.Fprintf(&b, "Time: %s - %s\n", note.StartTime, note.EndTime)
	fmt.Fprintf(&b, "Duration: %s\n", durationText(note.DurationMinutes))
	fmt.Fprintf(&b, "Mode: %s\n", modeText(note.Mode))
	if note.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", note.Location)
	}
	fmt.Fprintf(&b, "Price: $%s\n", pricing.FormatCents(note.PriceCents))
	fmt.Fprintf(&b, "Payment: %s\n", note.PaymentStatus)
	return b.String()
}

func durationText(minutes int) string {
	hours := minutes / 60
	mins := minutes % 60
	switch {
	case hours > 0 && mins > 0:
		return fmt.Sprintf("%d hour%s %d min", hours, plural(hours), mins)
	case hours > 0:
		return fmt.Sprintf("%d hour%s", hours, plural(hours))
	default:
		return fmt.Sprintf("%d minutes", mins)
	}
}

func modeText(m session.Mode) string {
	if m == session.ModeInPerson {
		return "In-Person"
	}
	return "Online"
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
