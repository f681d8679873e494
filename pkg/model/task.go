package model

import (
	"fmt"
	"time"
)

// DateLayout is the on-disk and user-facing date format (YYYY-MM-DD).
const DateLayout = "2006-01-02"

// MaxHours bounds the hours a single task may require.
const MaxHours = 100_000

// Task is one study obligation.
type Task struct {
	Subject       string
	Deadline      time.Time // midnight UTC, no time component
	HoursRequired int
	// Priority is derived from the deadline and is never persisted.
	Priority int
}

// Entry is one allocation in a generated study plan.
type Entry struct {
	Subject string
	Date    time.Time
	Hours   int
}

// Day returns the entry's date formatted with DateLayout.
func (e Entry) Day() string {
	return e.Date.Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD string into a calendar date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return d, nil
}

// Today truncates t to its calendar date in t's own location and returns it
// as midnight UTC, so it can be compared with parsed deadlines.
func Today(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole calendar days from 'from' to 'to'.
// It is negative when 'to' is before 'from'.
func DaysBetween(from, to time.Time) int {
	return int(Today(to).Sub(Today(from)) / (24 * time.Hour))
}
