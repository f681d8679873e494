// Package index remembers which calendar event holds each plan block.
package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// document is the on-disk form.
type document struct {
	Blocks map[string]string `json:"blocks"`
}

// EventIndex maps plan-block keys (subject|date) to calendar event ids.
type EventIndex struct {
	Path string

	mu     sync.RWMutex
	blocks map[string]string
	dirty  bool
}

// NewEventIndex opens the index at path, loading it if the file exists.
func NewEventIndex(path string) (*EventIndex, error) {
	idx := &EventIndex{Path: path, blocks: make(map[string]string)}
	if err := idx.Load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return idx, nil
}

func (idx *EventIndex) Load() error {
	data, err := os.ReadFile(idx.Path)
	if err != nil {
		return err
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%s: %w", idx.Path, err)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.blocks = doc.Blocks
	if idx.blocks == nil {
		idx.blocks = make(map[string]string)
	}
	idx.dirty = false
	return nil
}

// Save writes the index if it changed since the last load or save.
func (idx *EventIndex) Save() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if !idx.dirty {
		return nil
	}

	data, err := json.MarshalIndent(document{Blocks: idx.blocks}, "", "  ")
	if err != nil {
		return err
	}
	if err := writeFile(idx.Path, data); err != nil {
		return err
	}
	idx.dirty = false
	return nil
}

func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".events-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (idx *EventIndex) Get(key string) string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.blocks[key]
}

func (idx *EventIndex) Set(key, eventID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.blocks[key] != eventID {
		idx.blocks[key] = eventID
		idx.dirty = true
	}
}

func (idx *EventIndex) Remove(key string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, ok := idx.blocks[key]; ok {
		delete(idx.blocks, key)
		idx.dirty = true
	}
}

// Stale returns, sorted, the indexed keys that planned does not contain.
func (idx *EventIndex) Stale(planned map[string]bool) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	var keys []string
	for k := range idx.blocks {
		if !planned[k] {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}
