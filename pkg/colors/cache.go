// Package colors assigns Google Calendar colour ids to study subjects.
package colors

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"
)

const (
	// paletteSize is the number of Google Calendar event colours we hand out.
	paletteSize = 11
	fallbackID  = "1"
)

type SubjectState struct {
	ColorID      string    `json:"color_id"`
	LastModified time.Time `json:"last_modified"`
}

// ColorCache gives every subject a stable calendar colour, recycling the
// least recently used one when the palette runs out.
type ColorCache struct {
	Path     string
	Subjects map[string]*SubjectState
	now      func() time.Time
	dirty    bool
}

func NewColorCache(path string) (*ColorCache, error) {
	cache := &ColorCache{
		Path:     path,
		Subjects: make(map[string]*SubjectState),
		now:      time.Now,
	}
	if err := cache.Load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return cache, nil
}

func (c *ColorCache) Load() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		return err
	}
	subjects := make(map[string]*SubjectState)
	if err := json.Unmarshal(data, &subjects); err != nil {
		return fmt.Errorf("%s: %w", c.Path, err)
	}
	c.Subjects = subjects
	return nil
}

func (c *ColorCache) Save() error {
	if !c.dirty {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.Path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c.Subjects, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.Path, data, 0600); err != nil {
		return err
	}
	c.dirty = false
	return nil
}

// GetColorID returns the colour for subject, assigning one if needed.
func (c *ColorCache) GetColorID(subject string) string {
	if state, ok := c.Subjects[subject]; ok {
		// Touch only; the caller saves once at the end of a sync.
		state.LastModified = c.now()
		c.dirty = true
		return state.ColorID
	}

	id := c.freeColor()
	if id == "" {
		id = c.evictOldest()
	}
	c.Subjects[subject] = &SubjectState{ColorID: id, LastModified: c.now()}
	c.dirty = true
	return id
}

// freeColor returns the lowest palette id no subject holds, or "".
func (c *ColorCache) freeColor() string {
	used := make(map[string]bool, len(c.Subjects))
	for _, s := range c.Subjects {
		used[s.ColorID] = true
	}
	for i := 1; i <= paletteSize; i++ {
		if id := strconv.Itoa(i); !used[id] {
			return id
		}
	}
	return ""
}

// evictOldest drops the least recently used subject and returns its colour.
// Ties go to the alphabetically first subject.
func (c *ColorCache) evictOldest() string {
	if len(c.Subjects) == 0 {
		return fallbackID
	}
	names := slices.Sorted(maps.Keys(c.Subjects))
	oldest := slices.MinFunc(names, func(a, b string) int {
		return c.Subjects[a].LastModified.Compare(c.Subjects[b].LastModified)
	})
	id := c.Subjects[oldest].ColorID
	delete(c.Subjects, oldest)
	return id
}
