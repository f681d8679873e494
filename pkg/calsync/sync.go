// Package calsync publishes a study plan to a calendar and keeps the
// calendar in step with later plans.
package calsync

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/harrisonrobin/studyplan/pkg/colors"
	"github.com/harrisonrobin/studyplan/pkg/google"
	"github.com/harrisonrobin/studyplan/pkg/index"
	"github.com/harrisonrobin/studyplan/pkg/model"
	"github.com/harrisonrobin/studyplan/pkg/overdue"
	"github.com/harrisonrobin/studyplan/pkg/util"
	"google.golang.org/api/calendar/v3"
)

const (
	completedPrefix = "✓ "
	defaultColorID  = "1"
)

// EventClient is the calendar surface the syncer needs.
// *google.CalendarClient implements it.
type EventClient interface {
	SyncEvent(ctx context.Context, key string, target *calendar.Event) (*calendar.Event, google.Action, error)
	PatchEvent(ctx context.Context, eventID string, patch *calendar.Event) (*calendar.Event, error)
	DeleteEvent(ctx context.Context, eventID string) error
}

type Syncer struct {
	Client EventClient
	Index  *index.EventIndex
	// Table and Colors are optional.
	Table  *overdue.Table
	Colors *colors.ColorCache

	Location    *time.Location
	StartOffset time.Duration
}

type Result struct {
	Created   int
	Updated   int
	Unchanged int
	Deleted   int
	Completed int
}

func (r Result) String() string {
	return fmt.Sprintf("%d created, %d updated, %d unchanged, %d removed, %d completed",
		r.Created, r.Updated, r.Unchanged, r.Deleted, r.Completed)
}

// Sync makes the calendar match plan.
//
// Blocks from earlier days are marked completed and left in place. Every
// block of plan is created or patched. Indexed blocks from today onwards that
// are no longer in plan are deleted.
func (s *Syncer) Sync(ctx context.Context, plan []model.Entry, today time.Time) (Result, error) {
	var res Result
	today = model.Today(today)

	if s.Table != nil {
		for _, e := range s.Table.Sweep(today) {
			s.Index.Remove(e.Key)
			if _, err := s.Client.PatchEvent(ctx, e.GCalID, &calendar.Event{Summary: completedPrefix + e.Summary}); err != nil {
				log.Printf("Sweep: error patching event %s: %v", e.GCalID, err)
				// Retry on the next sync.
				s.Table.Update(e.Key, e.GCalID, e.Summary, e.Date)
				continue
			}
			res.Completed++
		}
	}

	loc := s.Location
	if loc == nil {
		loc = time.Local
	}

	planned := make(map[string]bool, len(plan))
	for _, b := range util.BlockTimes(plan, loc, s.StartOffset) {
		key := b.Key
		planned[key] = true

		colorID := defaultColorID
		if s.Colors != nil {
			colorID = s.Colors.GetColorID(b.Entry.Subject)
		}
		target := util.ConvertEntryToCalendarEvent(b, colorID)

		event, action, err := s.Client.SyncEvent(ctx, key, target)
		if err != nil {
			if serr := s.save(); serr != nil {
				log.Printf("Warning: failed to save event index: %v", serr)
			}
			return res, fmt.Errorf("error syncing %s: %w", key, err)
		}
		switch action {
		case google.Created:
			res.Created++
		case google.Updated:
			res.Updated++
		default:
			res.Unchanged++
		}

		s.Index.Set(key, event.Id)
		if s.Table != nil {
			s.Table.Update(key, event.Id, target.Summary, b.Entry.Date)
		}
	}

	for _, key := range s.Index.Stale(planned) {
		date, err := util.KeyDate(key)
		if err == nil && date.Before(today) {
			// History; retire without touching the event.
			s.Index.Remove(key)
			continue
		}
		if err := s.Client.DeleteEvent(ctx, s.Index.Get(key)); err != nil {
			log.Printf("Error deleting stale event for %s: %v", key, err)
			continue
		}
		s.Index.Remove(key)
		if s.Table != nil {
			s.Table.Remove(key)
		}
		res.Deleted++
	}

	return res, s.save()
}

func (s *Syncer) save() error {
	if s.Table != nil {
		if err := s.Table.Save(); err != nil {
			log.Printf("Warning: failed to save sync table: %v", err)
		}
	}
	if s.Colors != nil {
		if err := s.Colors.Save(); err != nil {
			log.Printf("Warning: failed to save color cache: %v", err)
		}
	}
	return s.Index.Save()
}
