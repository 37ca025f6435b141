// Package pricing derives session prices from the per-mode hourly rate
// table. Rates are minor currency units (cents, AUD) per hour.
package pricing

import (
	"fmt"

	"github.com/tutorlane/bookingd/internal/session"
)

const (
	OnlineHourlyCents   = 6000
	InPersonHourlyCents = 7000
)

// HourlyRateCents returns the hourly rate for a mode.
func HourlyRateCents(m session.Mode) (int64, error) {
	switch m {
	case session.ModeOnline:
		return OnlineHourlyCents, nil
	case session.ModeInPerson:
		return InPersonHourlyCents, nil
	default:
		return 0, fmt.Errorf("%w: %q", session.ErrUnknownMode, m)
	}
}

// SessionPriceCents prices a session of the given length, rounding half up
// so any non-zero duration yields a non-zero price.
func SessionPriceCents(m session.Mode, durationMinutes int) (int64, error) {
	rate, err := HourlyRateCents(m)
	if err != nil {
		return 0, err
	}
	if durationMinutes < 0 {
		durationMinutes = 0
	}
	return (rate*int64(durationMinutes) + 30) / 60, nil
}

// FormatCents renders cents as a two-decimal amount without a currency
// symbol; callers prepend one.
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
