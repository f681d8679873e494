// Package overdue tracks synced study blocks until their day has passed.
package overdue

import (
	"cmp"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/harrisonrobin/studyplan/pkg/model"
)

// Entry is one study block that was pushed to the calendar.
type Entry struct {
	Key     string
	GCalID  string
	Summary string
	Date    time.Time
}

// record is an Entry as written to disk, dated without a clock time.
type record struct {
	Key     string `json:"key"`
	GCalID  string `json:"gcal_id"`
	Summary string `json:"summary"`
	Date    string `json:"date"`
}

type Table struct {
	Path    string
	Entries map[string]Entry
	dirty   bool
}

func NewTable(path string) (*Table, error) {
	t := &Table{Path: path, Entries: make(map[string]Entry)}
	if err := t.Load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return t, nil
}

func (t *Table) Load() error {
	data, err := os.ReadFile(t.Path)
	if err != nil {
		return err
	}
	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("%s: %w", t.Path, err)
	}

	entries := make(map[string]Entry, len(records))
	for _, r := range records {
		date, err := model.ParseDate(r.Date)
		if err != nil {
			return fmt.Errorf("%s: block %q: %w", t.Path, r.Key, err)
		}
		entries[r.Key] = Entry{Key: r.Key, GCalID: r.GCalID, Summary: r.Summary, Date: date}
	}
	t.Entries = entries
	t.dirty = false
	return nil
}

// Save writes the table, oldest block first, if anything changed.
func (t *Table) Save() error {
	if !t.dirty {
		return nil
	}

	records := make([]record, 0, len(t.Entries))
	for _, e := range t.sorted() {
		records = append(records, record{
			Key:     e.Key,
			GCalID:  e.GCalID,
			Summary: e.Summary,
			Date:    e.Date.Format(model.DateLayout),
		})
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(t.Path), 0700); err != nil {
		return err
	}
	tmp := t.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	if err := os.Rename(tmp, t.Path); err != nil {
		os.Remove(tmp)
		return err
	}
	t.dirty = false
	return nil
}

// Update records a synced block. A zero date removes it instead.
func (t *Table) Update(key, gcalID, summary string, date time.Time) {
	if date.IsZero() {
		t.Remove(key)
		return
	}
	next := Entry{Key: key, GCalID: gcalID, Summary: summary, Date: model.Today(date)}
	if old, ok := t.Entries[key]; ok && old.Date.Equal(next.Date) && old.GCalID == gcalID && old.Summary == summary {
		return
	}
	t.Entries[key] = next
	t.dirty = true
}

func (t *Table) Remove(key string) {
	if _, exists := t.Entries[key]; exists {
		delete(t.Entries, key)
		t.dirty = true
	}
}

// Sweep removes and returns blocks dated before today, oldest first.
func (t *Table) Sweep(today time.Time) []Entry {
	var swept []Entry
	for _, e := range t.sorted() {
		if !e.Date.Before(today) {
			break
		}
		swept = append(swept, e)
		delete(t.Entries, e.Key)
		t.dirty = true
	}
	return swept
}

func (t *Table) sorted() []Entry {
	out := make([]Entry, 0, len(t.Entries))
	for _, e := range t.Entries {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b Entry) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
	return out
}
