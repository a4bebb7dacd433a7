package utils

import (
	"time"
)

// ParseClock parses an "HH:MM" wall-clock string onto the given date in the
// date's location.
func ParseClock(clock string, date time.Time) (time.Time, error) {
	if clock == "" {
		return date, nil
	}

	parsed, err := time.Parse("15:04", clock)
	if err != nil {
		return date, err
	}

	return time.Date(
		date.Year(),
		date.Month(),
		date.Day(),
		parsed.Hour(),
		parsed.Minute(),
		0,
		0,
		date.Location(),
	), nil
}

// InWindow reports whether now falls inside [start, end) where the window may
// span midnight (start > end, e.g. 22:00-06:00).
func InWindow(now, start, end time.Time) bool {
	if start.Equal(end) {
		return false
	}
	if start.Before(end) {
		return !now.Before(start) && now.Before(end)
	}
	// spans midnight
	return !now.Before(start) || now.Before(end)
}
