package availability

import (
	"github.com/tutorlane/bookingd/internal/session"
	"github.com/tutorlane/bookingd/internal/timeutil"
)

// Remainders computes the windows that must replace w once the booked
// interval [bookedStart, bookedEnd) is committed. The original window is
// always deleted; the result is what gets inserted in its place.
//
// In-person windows are consumed whole no matter how much of the interval
// the booking covers: one published in-person slot represents one physical
// commitment (travel, room), so partial remainders are never offered. This
// is business policy, not a technical constraint.
//
// Online windows are deleted when exactly covered, otherwise split into the
// non-empty parts of [w.StartTime, bookedStart) and [bookedEnd, w.EndTime),
// each inheriting the window's date, mode and location, unbooked. Together
// with the booked interval the remainders partition the original window
// with no gap and no overlap.
func Remainders(w Window, bookedStart, bookedEnd string) []Window {
	if w.Mode == session.ModeInPerson {
		return nil
	}

	slotStart := timeutil.TimeToMinutes(w.StartTime)
	slotEnd := timeutil.TimeToMinutes(w.EndTime)
	start := timeutil.TimeToMinutes(bookedStart)
	end := timeutil.TimeToMinutes(bookedEnd)

	if start == slotStart && end == slotEnd {
		return nil
	}

	var out []Window
	if slotStart < start {
		out = append(out, Window{
			Date:      w.Date,
			StartTime: w.StartTime,
			EndTime:   bookedStart,
			Mode:      w.Mode,
			Location:  w.Location,
		})
	}
	if end < slotEnd {
		out = append(out, Window{
			Date:      w.Date,
			StartTime: bookedEnd,
			EndTime:   w.EndTime,
			Mode:      w.Mode,
			Location:  w.Location,
		})
	}
	return out
}
