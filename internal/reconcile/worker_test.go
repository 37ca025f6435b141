package reconcile

import (
	"testing"

	"github.com/tutorlane/bookingd/internal/availability"
	"github.com/tutorlane/bookingd/internal/session"
)

func TestClampToWindow(t *testing.T) {
	win := availability.Window{
		StartTime: "09:00:00",
		EndTime:   "13:00:00",
		Mode:      session.ModeOnline,
	}

	cases := []struct {
		name      string
		busyStart string
		busyEnd   string
		wantStart string
		wantEnd   string
	}{
		{"inside window", "10:00:00", "11:00:00", "10:00:00", "11:00:00"},
		{"booking starts before window", "08:00:00", "10:00:00", "09:00:00", "10:00:00"},
		{"booking ends after window", "12:00:00", "14:00:00", "12:00:00", "13:00:00"},
		{"booking spans whole window", "08:00:00", "14:00:00", "09:00:00", "13:00:00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			start, end := clampToWindow(win, tc.busyStart, tc.busyEnd)
			if start != tc.wantStart || end != tc.wantEnd {
				t.Errorf("clamp = [%s, %s), want [%s, %s)", start, end, tc.wantStart, tc.wantEnd)
			}
		})
	}
}
