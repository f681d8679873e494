package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	xdgAppName = "studyplan"
	configFile = "config.json"

	UsersFile         = "users.txt"
	SessionFile       = "session.json"
	TasksDir          = "tasks"
	EventsFile        = "events.json"
	SyncedFile        = "synced_sessions.json"
	ColorsFile        = "subject_colors.json"
	ClientSecretsFile = "credentials.json"
	TokenFile         = "token.json"

	DefaultCalendar   = "Study"
	DefaultStudyStart = "18:00"
)

type Config struct {
	Calendar    string `json:"calendar"`
	HoursPerDay int    `json:"hours_per_day,omitempty"`
	StudyStart  string `json:"study_start,omitempty"` // HH:MM, local time
}

// Dir returns the directory holding the config and every state file.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", xdgAppName), nil
}

// Path joins name onto Dir.
func Path(name string) (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// TaskFile is the task list of a single user.
func TaskFile(user string) (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, TasksDir, user+".txt"), nil
}

func GetConfigPath() (string, error) {
	return Path(configFile)
}

func defaults() *Config {
	return &Config{Calendar: DefaultCalendar, StudyStart: DefaultStudyStart}
}

func Load() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaults(), nil
		}
		return nil, err
	}
	defer f.Close()

	var cfg Config
	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.Calendar == "" {
		cfg.Calendar = DefaultCalendar
	}
	if cfg.StudyStart == "" {
		cfg.StudyStart = DefaultStudyStart
	}
	return &cfg, nil
}

func Save(cfg *Config) error {
	if _, err := cfg.StartOffset(); err != nil {
		return err
	}
	if cfg.HoursPerDay < 0 {
		return fmt.Errorf("hours_per_day must not be negative, got %d", cfg.HoursPerDay)
	}

	path, err := GetConfigPath()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file for writing: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(cfg)
}

// StartOffset parses StudyStart into an offset from midnight.
func (c *Config) StartOffset() (time.Duration, error) {
	start := c.StudyStart
	if start == "" {
		start = DefaultStudyStart
	}
	t, err := time.Parse("15:04", start)
	if err != nil {
		return 0, fmt.Errorf("invalid study_start %q (want HH:MM): %w", start, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
