package google

import (
	"context"
	"fmt"
	"log"

	"github.com/harrisonrobin/studyplan/pkg/index"
	"github.com/harrisonrobin/studyplan/pkg/util"
	"google.golang.org/api/calendar/v3"
)

// Action reports what SyncEvent did.
type Action int

const (
	Unchanged Action = iota
	Created
	Updated
)

// CalendarClient is a Google Calendar API client.
type CalendarClient struct {
	srv        *calendar.Service
	calendarID string
	index      *index.EventIndex
}

// NewCalendarClient creates a new Google Calendar client.
func NewCalendarClient(srv *calendar.Service, calendarID string, idx *index.EventIndex) *CalendarClient {
	return &CalendarClient{srv: srv, calendarID: calendarID, index: idx}
}

// SyncEvent creates the event for key or patches the existing one so it
// matches target.
func (c *CalendarClient) SyncEvent(ctx context.Context, key string, target *calendar.Event) (*calendar.Event, Action, error) {
	var existing *calendar.Event
	var err error

	if c.index != nil {
		if eventID := c.index.Get(key); eventID != "" {
			existing, err = c.srv.Events.Get(c.calendarID, eventID).Context(ctx).Do()
			if err != nil || existing.Status == "cancelled" {
				existing = nil
			}
		}
	}

	if existing == nil {
		existing, err = c.GetEventByKey(ctx, key)
		if err != nil {
			return nil, Unchanged, fmt.Errorf("error searching for event: %w", err)
		}
	}

	if existing != nil {
		patch, err := util.EventNeedsUpdate(existing, target)
		if err != nil {
			log.Printf("could not compare plan block %s with its calendar event: %v", key, err)
			return nil, Unchanged, err
		}
		if c.index != nil {
			c.index.Set(key, existing.Id)
		}
		if patch == nil {
			return existing, Unchanged, nil
		}
		updated, err := c.PatchEvent(ctx, existing.Id, patch)
		if err != nil {
			return nil, Unchanged, err
		}
		return updated, Updated, nil
	}

	created, err := c.srv.Events.Insert(c.calendarID, target).Context(ctx).Do()
	if err != nil {
		return nil, Unchanged, err
	}
	if c.index != nil {
		c.index.Set(key, created.Id)
	}
	return created, Created, nil
}

// PatchEvent performs a partial update on an event.
func (c *CalendarClient) PatchEvent(ctx context.Context, eventID string, patch *calendar.Event) (*calendar.Event, error) {
	return c.srv.Events.Patch(c.calendarID, eventID, patch).Context(ctx).Do()
}

// DeleteEvent deletes an event from the calendar.
func (c *CalendarClient) DeleteEvent(ctx context.Context, eventID string) error {
	return c.srv.Events.Delete(c.calendarID, eventID).Context(ctx).Do()
}

// GetEventByKey searches for the event tagged with the given plan block key.
func (c *CalendarClient) GetEventByKey(ctx context.Context, key string) (*calendar.Event, error) {
	events, err := c.srv.Events.List(c.calendarID).
		PrivateExtendedProperty(fmt.Sprintf("%s=%s", util.KeyProperty, key)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	if len(events.Items) > 0 {
		return events.Items[0], nil
	}
	return nil, nil
}
