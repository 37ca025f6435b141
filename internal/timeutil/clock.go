// Package timeutil works with wall-clock times of day as "HH:MM" or
// "HH:MM:SS" strings, the representation availability windows are stored in.
// Inputs are expected to be well-formed; validation happens at the edges.
package timeutil

import (
	"fmt"
	"iter"
	"strconv"
	"strings"
)

const minutesPerDay = 24 * 60

// TimeToMinutes converts a wall-clock time to minutes since midnight.
// Seconds, if present, are ignored. Malformed input maps to 0.
func TimeToMinutes(t string) int {
	hh, rest, ok := strings.Cut(t, ":")
	if !ok {
		return 0
	}
	mm, _, _ := strings.Cut(rest, ":")
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0
	}
	return h*60 + m
}

// MinutesToTime is the inverse of TimeToMinutes, with fixed ":00" seconds.
func MinutesToTime(m int) string {
	return fmt.Sprintf("%02d:%02d:00", m/60, m%60)
}

// Duration returns end minus start in minutes. The result is zero or
// negative when end is not after start; callers must check before treating
// it as a valid session length.
func Duration(start, end string) int {
	return TimeToMinutes(end) - TimeToMinutes(start)
}

// AddMinutesCapped returns start advanced by the given minutes, clamped so
// it never passes cap. Used to default a booking's end time to the earlier
// of start+duration and the window's own end.
func AddMinutesCapped(start string, minutes int, cap string) string {
	m := TimeToMinutes(start) + minutes
	if c := TimeToMinutes(cap); m > c {
		m = c
	}
	return MinutesToTime(m)
}

// Format12Hour renders a 24-hour time as "h:MM AM/PM".
// Hour 0 renders as 12 AM and hour 12 as 12 PM.
func Format12Hour(t24 string) string {
	if t24 == "" {
		return ""
	}
	hh, rest, _ := strings.Cut(t24, ":")
	mm, _, _ := strings.Cut(rest, ":")
	hour, _ := strconv.Atoi(hh)
	hour12 := hour % 12
	if hour12 == 0 {
		hour12 = 12
	}
	period := "AM"
	if hour >= 12 {
		period = "PM"
	}
	return fmt.Sprintf("%d:%s %s", hour12, mm, period)
}

// Format24Hour converts "h:MM AM/PM" back to "HH:MM".
func Format24Hour(t12 string) string {
	clock, period, _ := strings.Cut(t12, " ")
	hh, mm, _ := strings.Cut(clock, ":")
	hour, _ := strconv.Atoi(hh)
	switch period {
	case "PM":
		if hour != 12 {
			hour += 12
		}
	case "AM":
		if hour == 12 {
			hour = 0
		}
	}
	return fmt.Sprintf("%02d:%s", hour, mm)
}

// TimeGrid yields every time of day at the given step, starting at
// midnight, as "HH:MM". The sequence is finite and restartable.
func TimeGrid(stepMinutes int) iter.Seq[string] {
	return func(yield func(string) bool) {
		if stepMinutes <= 0 {
			return
		}
		for m := 0; m < minutesPerDay; m += stepMinutes {
			if !yield(fmt.Sprintf("%02d:%02d", m/60, m%60)) {
				return
			}
		}
	}
}
