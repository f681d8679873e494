// Package store persists a user's study tasks as one comma-delimited record
// per line. Every mutation rewrites the whole file.
package store

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/harrisonrobin/studyplan/pkg/model"
	"github.com/harrisonrobin/studyplan/pkg/priority"
	"github.com/harrisonrobin/studyplan/pkg/session"
)

// Store owns the in-memory task list of the session user.
type Store struct {
	Path    string
	session session.Session
	tasks   []model.Task
}

func New(path string, sess session.Session) *Store {
	return &Store{Path: path, session: sess}
}

// Open creates a store and loads the persisted tasks.
func Open(path string, sess session.Session) (*Store, error) {
	s := New(path, sess)
	if _, err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Load replaces the in-memory list with the file contents. On a parse error
// the in-memory list is left untouched.
func (s *Store) Load() ([]model.Task, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			s.tasks = nil
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var tasks []model.Task
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		task, err := ParseLine(line)
		if err != nil {
			return nil, &ParseError{Path: s.Path, Line: lineNo, Text: line, Err: err}
		}
		tasks = append(tasks, task)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.Path, err)
	}

	s.tasks = tasks
	return s.Tasks(), nil
}

// Add appends a new task and persists the list. Duplicate subjects are allowed.
func (s *Store) Add(subject string, deadline time.Time, hours int) (model.Task, error) {
	task := model.Task{Subject: subject, Deadline: model.Today(deadline), HoursRequired: hours}
	if err := Validate(task); err != nil {
		return model.Task{}, err
	}
	task.Priority = priority.Calculate(task.Deadline, s.session.Today)

	s.tasks = append(s.tasks, task)
	if err := s.Save(); err != nil {
		s.tasks = s.tasks[:len(s.tasks)-1]
		return model.Task{}, err
	}
	return task, nil
}

// AddTasks appends several tasks with a single rewrite. Nothing is added if
// any of them is invalid.
func (s *Store) AddTasks(tasks []model.Task) error {
	batch := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		t.Deadline = model.Today(t.Deadline)
		if err := Validate(t); err != nil {
			return err
		}
		t.Priority = priority.Calculate(t.Deadline, s.session.Today)
		batch = append(batch, t)
	}
	if len(batch) == 0 {
		return nil
	}

	prev := s.tasks
	s.tasks = append(slices.Clip(prev), batch...)
	if err := s.Save(); err != nil {
		s.tasks = prev
		return err
	}
	return nil
}

// Delete removes every task whose subject equals subject and returns how many
// were removed. The file is only rewritten when something matched.
func (s *Store) Delete(subject string) (int, error) {
	kept := make([]model.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if t.Subject != subject {
			kept = append(kept, t)
		}
	}
	removed := len(s.tasks) - len(kept)
	if removed == 0 {
		return 0, nil
	}

	prev := s.tasks
	s.tasks = kept
	if err := s.Save(); err != nil {
		s.tasks = prev
		return 0, err
	}
	return removed, nil
}

// Save atomically replaces the task file with the in-memory list.
func (s *Store) Save() error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create task directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp task file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	w := bufio.NewWriter(tmp)
	for _, t := range s.tasks {
		if _, err := w.WriteString(FormatLine(t) + "\n"); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to write tasks: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write tasks: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync tasks: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp task file: %w", err)
	}
	if err := os.Rename(tmpPath, s.Path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", s.Path, err)
	}
	return nil
}

// Tasks returns a copy of the in-memory list with priorities computed for
// the session's date.
func (s *Store) Tasks() []model.Task {
	out := make([]model.Task, len(s.tasks))
	for i, t := range s.tasks {
		t.Priority = priority.Calculate(t.Deadline, s.session.Today)
		out[i] = t
	}
	return out
}
