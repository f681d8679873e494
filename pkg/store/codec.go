package store

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/harrisonrobin/studyplan/pkg/model"
)

const delimiter = ","

// ErrInvalidTask is returned when a task cannot be stored as given.
var ErrInvalidTask = errors.New("invalid task")

// ParseError reports a malformed line in the task file.
type ParseError struct {
	Path string
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: malformed task record %q: %v", e.Path, e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// FormatLine encodes a task as subject,YYYY-MM-DD,hours.
func FormatLine(t model.Task) string {
	return strings.Join([]string{
		t.Subject,
		t.Deadline.Format(model.DateLayout),
		strconv.Itoa(t.HoursRequired),
	}, delimiter)
}

// ParseLine decodes a single record. The returned task has no priority.
func ParseLine(line string) (model.Task, error) {
	fields := strings.Split(line, delimiter)
	if len(fields) != 3 {
		return model.Task{}, fmt.Errorf("want 3 comma-separated fields, got %d", len(fields))
	}
	if fields[0] == "" {
		return model.Task{}, errors.New("empty subject")
	}
	deadline, err := model.ParseDate(fields[1])
	if err != nil {
		return model.Task{}, err
	}
	hours, err := strconv.Atoi(fields[2])
	if err != nil {
		return model.Task{}, fmt.Errorf("hours is not an integer: %w", err)
	}
	if hours < 0 || hours > model.MaxHours {
		return model.Task{}, fmt.Errorf("hours must be between 0 and %d, got %d", model.MaxHours, hours)
	}
	return model.Task{Subject: fields[0], Deadline: deadline, HoursRequired: hours}, nil
}

// Validate checks that t can round-trip through the line format.
func Validate(t model.Task) error {
	switch {
	case strings.TrimSpace(t.Subject) == "":
		return fmt.Errorf("%w: subject is required", ErrInvalidTask)
	case strings.ContainsAny(t.Subject, ",\r\n"):
		return fmt.Errorf("%w: subject %q must not contain commas or line breaks", ErrInvalidTask, t.Subject)
	case t.Subject != strings.TrimSpace(t.Subject):
		return fmt.Errorf("%w: subject %q has leading or trailing whitespace", ErrInvalidTask, t.Subject)
	case t.HoursRequired < 0:
		return fmt.Errorf("%w: hours required must not be negative, got %d", ErrInvalidTask, t.HoursRequired)
	case t.HoursRequired > model.MaxHours:
		return fmt.Errorf("%w: hours required must not exceed %d, got %d", ErrInvalidTask, model.MaxHours, t.HoursRequired)
	case t.Deadline.IsZero():
		return fmt.Errorf("%w: deadline is required", ErrInvalidTask)
	}
	return nil
}
