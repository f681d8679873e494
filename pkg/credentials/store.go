// Package credentials keeps the username,password list consulted at login
// and signup. Passwords are stored as entered.
package credentials

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrAuth               = errors.New("invalid username or password")
	ErrNoUsers            = fmt.Errorf("no users found, please sign up first: %w", ErrAuth)
	ErrDuplicateUser      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password format")
)

type Store struct {
	Path string
}

func New(path string) *Store {
	return &Store{Path: path}
}

// Register appends a new user. It fails with ErrDuplicateUser when the name
// is taken.
func (s *Store) Register(username, password string) error {
	if err := validate(username, password); err != nil {
		return err
	}

	taken, err := s.Exists(username)
	if err != nil {
		return err
	}
	if taken {
		return ErrDuplicateUser
	}

	if err := os.MkdirAll(filepath.Dir(s.Path), 0700); err != nil {
		return fmt.Errorf("failed to create users directory: %w", err)
	}
	f, err := os.OpenFile(s.Path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("failed to open users file: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%s,%s\n", username, password); err != nil {
		return fmt.Errorf("failed to write users file: %w", err)
	}
	return f.Sync()
}

// Verify checks a username/password pair.
func (s *Store) Verify(username, password string) error {
	users, err := s.load()
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNoUsers
		}
		return err
	}
	if stored, ok := users[username]; !ok || stored != password {
		return ErrAuth
	}
	return nil
}

// Exists reports whether username is registered.
func (s *Store) Exists(username string) (bool, error) {
	users, err := s.load()
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	_, ok := users[username]
	return ok, nil
}

func (s *Store) load() (map[string]string, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	users := make(map[string]string)
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		username, password, ok := strings.Cut(line, ",")
		if !ok || username == "" || strings.Contains(password, ",") {
			return nil, fmt.Errorf("%s:%d: malformed user record", s.Path, lineNo)
		}
		users[username] = password
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.Path, err)
	}
	return users, nil
}

func validate(username, password string) error {
	switch {
	case username == "" || password == "":
		return fmt.Errorf("%w: username and password are required", ErrInvalidCredentials)
	case strings.ContainsAny(username+password, ",\r\n"):
		return fmt.Errorf("%w: commas and line breaks are not allowed", ErrInvalidCredentials)
	case strings.ContainsAny(username, `/\`) || username == "." || username == "..":
		return fmt.Errorf("%w: username %q is not a valid name", ErrInvalidCredentials, username)
	case username != strings.TrimSpace(username) || password != strings.TrimSpace(password):
		return fmt.Errorf("%w: leading or trailing whitespace is not allowed", ErrInvalidCredentials)
	}
	return nil
}
