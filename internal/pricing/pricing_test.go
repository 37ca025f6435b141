package pricing

import (
	"errors"
	"testing"

	"github.com/tutorlane/bookingd/internal/session"
)

func TestSessionPriceCents(t *testing.T) {
	cases := []struct {
		name     string
		mode     session.Mode
		duration int
		want     int64
	}{
		{"online one hour", session.ModeOnline, 60, 6000},
		{"online ninety minutes", session.ModeOnline, 90, 9000},
		{"online two hours", session.ModeOnline, 120, 12000},
		{"in-person one hour", session.ModeInPerson, 60, 7000},
		{"in-person ninety minutes", session.ModeInPerson, 90, 10500},
		{"zero duration", session.ModeOnline, 0, 0},
		{"negative duration clamps to zero", session.ModeOnline, -30, 0},
		// 1 minute online is 100 cents exactly; 1 minute in-person is
		// 7000/60 = 116.67, rounded half up to 117.
		{"one minute online", session.ModeOnline, 1, 100},
		{"one minute in-person", session.ModeInPerson, 1, 117},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := SessionPriceCents(tc.mode, tc.duration)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("SessionPriceCents(%s, %d) = %d, want %d", tc.mode, tc.duration, got, tc.want)
			}
		})
	}
}

func TestSessionPriceCentsUnknownMode(t *testing.T) {
	_, err := SessionPriceCents(session.Mode("hybrid"), 60)
	if !errors.Is(err, session.ErrUnknownMode) {
		t.Fatalf("err = %v, want ErrUnknownMode", err)
	}
	_, err = HourlyRateCents("")
	if !errors.Is(err, session.ErrUnknownMode) {
		t.Fatalf("err = %v, want ErrUnknownMode", err)
	}
}

// Any non-zero duration must price above zero, and price must never decrease
// as duration grows.
func TestSessionPriceCentsMonotonic(t *testing.T) {
	var prev int64
	for mins := 1; mins <= 240; mins++ {
		got, err := SessionPriceCents(session.ModeInPerson, mins)
		if err != nil {
			t.Fatal(err)
		}
		if got <= 0 {
			t.Fatalf("price for %d minutes = %d, want > 0", mins, got)
		}
		if got < prev {
			t.Fatalf("price decreased at %d minutes: %d < %d", mins, got, prev)
		}
		prev = got
	}
}

func TestFormatCents(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{6000, "60.00"},
		{10550, "105.50"},
		{-1234, "-12.34"},
	}
	for _, tc := range cases {
		if got := FormatCents(tc.in); got != tc.want {
			t.Errorf("FormatCents(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
