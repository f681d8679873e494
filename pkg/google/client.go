package google

import (
	"context"
	"errors"
	"fmt"

	"github.com/harrisonrobin/studyplan/pkg/auth"
	"github.com/harrisonrobin/studyplan/pkg/index"
	"google.golang.org/api/calendar/v3"
)

// NewClient authenticates and returns a client for the calendar whose
// summary is calendarName.
func NewClient(ctx context.Context, calendarName string, idx *index.EventIndex) (*CalendarClient, error) {
	srv, err := auth.GetCalendarService(ctx)
	if err != nil {
		return nil, err
	}

	calendarID, err := ResolveCalendar(ctx, srv, calendarName)
	if err != nil {
		return nil, err
	}
	return NewCalendarClient(srv, calendarID, idx), nil
}

// ErrCalendarNotFound is returned when no calendar matches the configured name.
var ErrCalendarNotFound = errors.New("calendar not found")

// ResolveCalendar returns the id of the calendar whose summary or id is
// name. "primary" is passed through unchanged.
func ResolveCalendar(ctx context.Context, srv *calendar.Service, name string) (string, error) {
	if name == "primary" {
		return name, nil
	}

	var found string
	err := srv.CalendarList.List().Pages(ctx, func(page *calendar.CalendarList) error {
		for _, item := range page.Items {
			if item.Summary == name || item.Id == name {
				found = item.Id
				return errStopPaging
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopPaging) {
		return "", fmt.Errorf("unable to retrieve calendar list: %w", err)
	}
	if found == "" {
		return "", fmt.Errorf("%w: '%s'", ErrCalendarNotFound, name)
	}
	return found, nil
}

var errStopPaging = errors.New("stop paging")
