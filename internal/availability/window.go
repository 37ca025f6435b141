// Package availability models tutor-published time windows and the rules
// for consuming them when a booking is committed.
package availability

import "github.com/tutorlane/bookingd/internal/session"

// Window is a bookable interval on a calendar date. Times are wall clock
// ("HH:MM:SS") in the business timezone; the half-open interval
// [StartTime, EndTime) must be non-empty. Windows owned by the same tutor
// never overlap for a given date and mode.
type Window struct {
	ID        string
	Date      string // "2006-01-02"
	StartTime string
	EndTime   string
	Mode      session.Mode
	Location  string
	Booked    bool
}
