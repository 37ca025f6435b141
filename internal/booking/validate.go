package booking

import (
	"fmt"

	"github.com/tutorlane/bookingd/internal/timeutil"
)

// DefaultMinimumMinutes is the minimum lesson length.
const DefaultMinimumMinutes = 60

type ValidationReason string

const (
	ReasonMissingTimes         ValidationReason = "missing_times"
	ReasonStartBeforeSlot      ValidationReason = "start_before_slot"
	ReasonEndAfterSlot         ValidationReason = "end_after_slot"
	ReasonEndNotAfterStart     ValidationReason = "end_not_after_start"
	ReasonBelowMinimumDuration ValidationReason = "below_minimum_duration"
)

// ValidationError reports why a requested interval cannot be booked against
// a window. It carries the violated boundary values so callers can render a
// precise message.
type ValidationError struct {
	Reason         ValidationReason
	SlotStart      string
	SlotEnd        string
	Start          string
	End            string
	MinimumMinutes int
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case ReasonMissingTimes:
		return "please select both start and end times"
	case ReasonStartBeforeSlot:
		return fmt.Sprintf("start time must be at or after %s", timeutil.Format12Hour(e.SlotStart))
	case ReasonEndAfterSlot:
		return fmt.Sprintf("end time must be at or before %s", timeutil.Format12Hour(e.SlotEnd))
	case ReasonEndNotAfterStart:
		return "end time must be after start time"
	case ReasonBelowMinimumDuration:
		hours := e.MinimumMinutes / 60
		if e.MinimumMinutes%60 == 0 && hours >= 1 {
			plural := ""
			if hours != 1 {
				plural = "s"
			}
			return fmt.Sprintf("lesson must be at least %d hour%s long", hours, plural)
		}
		return fmt.Sprintf("lesson must be at least %d minutes long", e.MinimumMinutes)
	default:
		return "invalid time selection"
	}
}

// ValidateTimes checks a requested [start, end) interval against a window's
// bounds and the minimum-duration policy. Checks run in a fixed order and
// short-circuit on the first failure, so a multi-violation input produces
// the single message most useful to the student: missing inputs, then the
// start bound, then the end bound, then ordering, then minimum duration.
// minMinutes <= 0 selects DefaultMinimumMinutes.
func ValidateTimes(slotStart, slotEnd, start, end string, minMinutes int) *ValidationError {
	if minMinutes <= 0 {
		minMinutes = DefaultMinimumMinutes
	}
	fail := func(reason ValidationReason) *ValidationError {
		return &ValidationError{
			Reason:         reason,
			SlotStart:      slotStart,
			SlotEnd:        slotEnd,
			Start:          start,
			End:            end,
			MinimumMinutes: minMinutes,
		}
	}

	if start == "" || end == "" {
		return fail(ReasonMissingTimes)
	}

	slotStartMins := timeutil.TimeToMinutes(slotStart)
	slotEndMins := timeutil.TimeToMinutes(slotEnd)
	startMins := timeutil.TimeToMinutes(start)
	endMins := timeutil.TimeToMinutes(end)

	if startMins < slotStartMins {
		return fail(ReasonStartBeforeSlot)
	}
	if endMins > slotEndMins {
		return fail(ReasonEndAfterSlot)
	}
	if endMins <= startMins {
		return fail(ReasonEndNotAfterStart)
	}
	if endMins-startMins < minMinutes {
		return fail(ReasonBelowMinimumDuration)
	}
	return nil
}
