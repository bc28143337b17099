package utils

import (
	"fmt"
	"time"
)

const (
	DateFormat  = "2006-01-02"
	ClockFormat = "15:04"
)

// DateOnly returns t's calendar date as midnight UTC. Civil dates are
// carried in this form so that date columns round-trip unchanged.
func DateOnly(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateFormat, s)
}

func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func DaysBetween(start, end time.Time) int {
	start = DateOnly(start)
	end = DateOnly(end)
	return int(end.Sub(start).Hours() / 24)
}

// ParseClock converts "HH:MM" into minutes since midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse(ClockFormat, s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// At places a wall-clock minute offset on the civil date in loc.
func At(date time.Time, minutes int, loc *time.Location) time.Time {
	year, month, day := date.Date()
	return time.Date(year, month, day, minutes/60, minutes%60, 0, 0, loc)
}
