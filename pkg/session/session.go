// Package session tracks which user is logged in between invocations.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/harrisonrobin/studyplan/pkg/model"
)

// ErrNoSession is returned when no user is logged in.
var ErrNoSession = errors.New("not logged in, run 'studyplan login' first")

// Session identifies the active user and the canonical date for one run.
type Session struct {
	User       string    `json:"user"`
	LoggedInAt time.Time `json:"logged_in_at"`
	// Today is stamped once per invocation and never persisted.
	Today time.Time `json:"-"`
}

// New starts a session for user at now.
func New(user string, now time.Time) *Session {
	return &Session{User: user, LoggedInAt: now, Today: model.Today(now)}
}

// WithToday returns a copy of s whose Today is the calendar date of now.
func (s Session) WithToday(now time.Time) Session {
	s.Today = model.Today(now)
	return s
}

func Load(path string) (*Session, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSession
		}
		return nil, err
	}
	defer f.Close()

	var s Session
	if err := json.NewDecoder(f).Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode session file %s: %w", path, err)
	}
	if s.User == "" {
		return nil, ErrNoSession
	}
	return &s, nil
}

func Save(path string, s *Session) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open session file for writing: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(s)
}

// Clear logs out. A missing session file is not an error.
func Clear(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
