package util

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/harrisonrobin/studyplan/pkg/model"
	"google.golang.org/api/calendar/v3"
)

// KeyProperty is the private extended property that ties a calendar event to
// a plan block.
const KeyProperty = "studyplan_key"

var durationRe = regexp.MustCompile(`(\d+)([HMS])`)

// ParseDuration parses ISO 8601 duration format (PT1H30M) from Taskwarrior JSON export
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}

	if len(s) < 2 || s[0] != 'P' {
		return 0, fmt.Errorf("invalid ISO 8601 duration format: %s", s)
	}

	s = s[1:]
	if len(s) == 0 || s[0] != 'T' {
		return 0, fmt.Errorf("invalid ISO 8601 duration (missing T): P%s", s)
	}
	s = s[1:]

	var total time.Duration
	for _, match := range durationRe.FindAllStringSubmatch(s, -1) {
		value, _ := strconv.Atoi(match[1])
		switch match[2] {
		case "H":
			total += time.Duration(value) * time.Hour
		case "M":
			total += time.Duration(value) * time.Minute
		case "S":
			total += time.Duration(value) * time.Second
		}
	}

	if total == 0 {
		return 0, fmt.Errorf("invalid ISO 8601 duration: PT%s", s)
	}

	return total, nil
}

// WholeHours rounds d up to whole study hours.
func WholeHours(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Hour - 1) / time.Hour)
}

// EntryKey identifies a plan block across syncs. seq numbers the blocks of
// one subject on one date from 1; the first block's key is subject|date and
// later ones are subject|date|seq.
func EntryKey(e model.Entry, seq int) string {
	key := e.Subject + "|" + e.Day()
	if seq > 1 {
		key += "|" + strconv.Itoa(seq)
	}
	return key
}

// KeyDate extracts the date part of an EntryKey.
func KeyDate(key string) (time.Time, error) {
	i := strings.LastIndex(key, "|")
	if i < 0 {
		return time.Time{}, fmt.Errorf("malformed entry key %q", key)
	}
	if _, err := strconv.Atoi(key[i+1:]); err == nil {
		key = key[:i]
		if i = strings.LastIndex(key, "|"); i < 0 {
			return time.Time{}, fmt.Errorf("malformed entry key %q", key)
		}
	}
	return model.ParseDate(key[i+1:])
}

// Block is a plan entry placed on the clock.
type Block struct {
	Entry model.Entry
	Key   string
	Start time.Time
	End   time.Time
}

// BlockTimes lays out the entries of each date end to end, starting at
// startOffset past local midnight.
func BlockTimes(plan []model.Entry, loc *time.Location, startOffset time.Duration) []Block {
	used := make(map[string]time.Duration)
	seen := make(map[string]int)
	blocks := make([]Block, 0, len(plan))
	for _, e := range plan {
		base := EntryKey(e, 1)
		seen[base]++
		day := time.Date(e.Date.Year(), e.Date.Month(), e.Date.Day(), 0, 0, 0, 0, loc)
		start := day.Add(startOffset + used[e.Day()])
		length := time.Duration(e.Hours) * time.Hour
		used[e.Day()] += length
		blocks = append(blocks, Block{Entry: e, Key: EntryKey(e, seen[base]), Start: start, End: start.Add(length)})
	}
	return blocks
}

// ConvertEntryToCalendarEvent builds the calendar event for one plan block.
func ConvertEntryToCalendarEvent(b Block, colorID string) *calendar.Event {
	var desc strings.Builder
	desc.WriteString(fmt.Sprintf("Subject: %s\n", b.Entry.Subject))
	desc.WriteString(fmt.Sprintf("Date: %s\n", b.Entry.Day()))
	desc.WriteString(fmt.Sprintf("Allocated: %dh\n", b.Entry.Hours))

	return &calendar.Event{
		Summary:     "Study: " + b.Entry.Subject,
		Description: desc.String(),
		ColorId:     colorID,
		Start: &calendar.EventDateTime{
			DateTime: b.Start.UTC().Format(time.RFC3339),
		},
		End: &calendar.EventDateTime{
			DateTime: b.End.UTC().Format(time.RFC3339),
		},
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{
				KeyProperty: b.Key,
			},
		},
	}
}

// EventNeedsUpdate returns a patch event if the fields we manage differ
// between the existing event and the freshly converted target, or nil.
func EventNeedsUpdate(existingEvent *calendar.Event, targetEvent *calendar.Event) (*calendar.Event, error) {
	patch := &calendar.Event{}
	needsUpdate := false

	if existingEvent.Summary != targetEvent.Summary {
		patch.Summary = targetEvent.Summary
		needsUpdate = true
	}
	if existingEvent.Description != targetEvent.Description {
		patch.Description = targetEvent.Description
		needsUpdate = true
	}
	if existingEvent.ColorId != targetEvent.ColorId {
		patch.ColorId = targetEvent.ColorId
		needsUpdate = true
	}

	if existingEvent.Start == nil || existingEvent.End == nil {
		patch.Start = targetEvent.Start
		patch.End = targetEvent.End
		return patch, nil
	}

	existingStartTime, err := time.Parse(time.RFC3339, existingEvent.Start.DateTime)
	if err != nil {
		return nil, err
	}
	targetStartTime, err := time.Parse(time.RFC3339, targetEvent.Start.DateTime)
	if err != nil {
		return nil, err
	}
	existingEndTime, err := time.Parse(time.RFC3339, existingEvent.End.DateTime)
	if err != nil {
		return nil, err
	}
	targetEndTime, err := time.Parse(time.RFC3339, targetEvent.End.DateTime)
	if err != nil {
		return nil, err
	}

	if !existingStartTime.Equal(targetStartTime) || !existingEndTime.Equal(targetEndTime) {
		patch.Start = targetEvent.Start
		patch.End = targetEvent.End
		needsUpdate = true
	}

	if needsUpdate {
		return patch, nil
	}
	return nil, nil
}
