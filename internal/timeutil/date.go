package timeutil

import "time"

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"

func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// Today returns the current date in the given location as "YYYY-MM-DD".
func Today(loc *time.Location) string {
	return time.Now().In(loc).Format(DateLayout)
}
