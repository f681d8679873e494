package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/harrisonrobin/studyplan/pkg/auth"
	"github.com/harrisonrobin/studyplan/pkg/calsync"
	"github.com/harrisonrobin/studyplan/pkg/colors"
	"github.com/harrisonrobin/studyplan/pkg/config"
	"github.com/harrisonrobin/studyplan/pkg/credentials"
	"github.com/harrisonrobin/studyplan/pkg/google"
	"github.com/harrisonrobin/studyplan/pkg/index"
	"github.com/harrisonrobin/studyplan/pkg/model"
	"github.com/harrisonrobin/studyplan/pkg/orgmode"
	"github.com/harrisonrobin/studyplan/pkg/overdue"
	"github.com/harrisonrobin/studyplan/pkg/render"
	"github.com/harrisonrobin/studyplan/pkg/schedule"
	"github.com/harrisonrobin/studyplan/pkg/session"
	"github.com/harrisonrobin/studyplan/pkg/store"
	"github.com/harrisonrobin/studyplan/pkg/taskwarrior"
)

type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	now    time.Time
}

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func isSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func statePath(name string) (string, error) {
	return config.Path(name)
}

// session loads the logged-in user stamped with this run's date.
func (a *app) session() (session.Session, error) {
	path, err := statePath(config.SessionFile)
	if err != nil {
		return session.Session{}, err
	}
	sess, err := session.Load(path)
	if err != nil {
		return session.Session{}, err
	}
	return sess.WithToday(a.now), nil
}

func (a *app) openStore() (*store.Store, session.Session, error) {
	sess, err := a.session()
	if err != nil {
		return nil, sess, err
	}
	path, err := config.TaskFile(sess.User)
	if err != nil {
		return nil, sess, err
	}
	s, err := store.Open(path, sess)
	if err != nil {
		return nil, sess, err
	}
	return s, sess, nil
}

func (a *app) credentialFlags(name string, args []string) (string, string, error) {
	fs := a.flags(name)
	user := fs.String("user", "", "username")
	password := fs.String("password", "", "password")
	if err := fs.Parse(args); err != nil {
		return "", "", err
	}
	return *user, *password, nil
}

func (a *app) startSession(user string) error {
	path, err := statePath(config.SessionFile)
	if err != nil {
		return err
	}
	return session.Save(path, session.New(user, a.now))
}

func (a *app) credentialStore() (*credentials.Store, error) {
	path, err := statePath(config.UsersFile)
	if err != nil {
		return nil, err
	}
	return credentials.New(path), nil
}

func (a *app) signup(args []string) error {
	user, password, err := a.credentialFlags("signup", args)
	if err != nil {
		return err
	}
	creds, err := a.credentialStore()
	if err != nil {
		return err
	}
	if err := creds.Register(user, password); err != nil {
		return err
	}
	if err := a.startSession(user); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "User registered successfully! Welcome, %s!\n", user)
	return nil
}

func (a *app) login(args []string) error {
	user, password, err := a.credentialFlags("login", args)
	if err != nil {
		return err
	}
	creds, err := a.credentialStore()
	if err != nil {
		return err
	}
	if err := creds.Verify(user, password); err != nil {
		return err
	}
	if err := a.startSession(user); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Login successful! Welcome, %s!\n", user)
	return nil
}

func (a *app) logout(args []string) error {
	if err := a.flags("logout").Parse(args); err != nil {
		return err
	}
	path, err := statePath(config.SessionFile)
	if err != nil {
		return err
	}
	if err := session.Clear(path); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, "You have been logged out!")
	return nil
}

func (a *app) whoami(args []string) error {
	if err := a.flags("whoami").Parse(args); err != nil {
		return err
	}
	sess, err := a.session()
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, sess.User)
	return nil
}

func (a *app) add(args []string) error {
	fs := a.flags("add")
	subject := fs.String("subject", "", "subject to study")
	deadline := fs.String("deadline", "", "deadline (YYYY-MM-DD)")
	hours := fs.Int("hours", 0, "study hours required")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !isSet(fs, "hours") {
		return errors.New("-hours is required")
	}
	due, err := model.ParseDate(*deadline)
	if err != nil {
		return err
	}

	s, _, err := a.openStore()
	if err != nil {
		return err
	}
	task, err := s.Add(*subject, due, *hours)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Task added successfully! (%s, priority %d)\n", task.Subject, task.Priority)
	return nil
}

func (a *app) delete(args []string) error {
	fs := a.flags("delete")
	subject := fs.String("subject", "", "subject to delete")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *subject == "" {
		return errors.New("-subject is required")
	}

	s, _, err := a.openStore()
	if err != nil {
		return err
	}
	n, err := s.Delete(*subject)
	if err != nil {
		return err
	}
	if n == 0 {
		fmt.Fprintf(a.stdout, "No task named '%s' found.\n", *subject)
		return nil
	}
	fmt.Fprintf(a.stdout, "Task '%s' deleted successfully! (%d removed)\n", *subject, n)
	return nil
}

func (a *app) list(args []string) error {
	if err := a.flags("list").Parse(args); err != nil {
		return err
	}
	s, _, err := a.openStore()
	if err != nil {
		return err
	}
	return render.Tasks(a.stdout, s.Tasks())
}

// plan loads the session's tasks and generates a plan. An explicit -hours
// wins over the configured default.
func (a *app) plan(fs *flag.FlagSet, hours int, cfg *config.Config) ([]model.Entry, session.Session, error) {
	budget := cfg.HoursPerDay
	if isSet(fs, "hours") {
		budget = hours
	}
	s, sess, err := a.openStore()
	if err != nil {
		return nil, sess, err
	}
	plan, err := schedule.NewGenerator(sess).Generate(s.Tasks(), budget)
	return plan, sess, err
}

func (a *app) schedule(args []string) error {
	fs := a.flags("schedule")
	hours := fs.Int("hours", 0, "available study hours per day")
	format := fs.String("format", render.FormatTable, "output format: table, json or yaml")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	plan, _, err := a.plan(fs, *hours, cfg)
	if err != nil {
		return err
	}
	if err := render.Plan(a.stdout, plan, *format); err != nil {
		return err
	}
	if *format == render.FormatTable && len(plan) > 0 {
		totals := schedule.Totals(plan)
		parts := make([]string, 0, len(totals))
		for _, subject := range slices.Sorted(maps.Keys(totals)) {
			parts = append(parts, fmt.Sprintf("%s %dh", subject, totals[subject]))
		}
		fmt.Fprintf(a.stdout, "Total: %s\n", strings.Join(parts, ", "))
	}
	return nil
}

func (a *app) sync(args []string) error {
	fs := a.flags("sync")
	hours := fs.Int("hours", 0, "available study hours per day")
	calendarName := fs.String("calendar", "", "Google Calendar name (overrides config)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	offset, err := cfg.StartOffset()
	if err != nil {
		return err
	}
	selectedCalendar := cfg.Calendar
	if *calendarName != "" {
		selectedCalendar = *calendarName
	}

	plan, sess, err := a.plan(fs, *hours, cfg)
	if err != nil {
		return err
	}

	syncer, err := a.newSyncer(selectedCalendar, offset)
	if err != nil {
		return err
	}
	res, err := syncer.Sync(context.Background(), plan, sess.Today)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Synced %d study blocks to '%s': %s\n", len(plan), selectedCalendar, res)
	return nil
}

func (a *app) newSyncer(calendarName string, offset time.Duration) (*calsync.Syncer, error) {
	eventsPath, err := statePath(config.EventsFile)
	if err != nil {
		return nil, err
	}
	evtIndex, err := index.NewEventIndex(eventsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open event index: %w", err)
	}

	syncer := &calsync.Syncer{Index: evtIndex, Location: time.Local, StartOffset: offset}

	if path, err := statePath(config.SyncedFile); err == nil {
		if syncer.Table, err = overdue.NewTable(path); err != nil {
			log.Printf("Warning: failed to initialize sync table: %v", err)
		}
	}
	if path, err := statePath(config.ColorsFile); err == nil {
		if syncer.Colors, err = colors.NewColorCache(path); err != nil {
			log.Printf("Warning: could not load color cache: %v", err)
		}
	}

	client, err := google.NewClient(context.Background(), calendarName, evtIndex)
	if err != nil {
		return nil, fmt.Errorf("error creating Google Calendar client: %w", err)
	}
	syncer.Client = client
	return syncer, nil
}

func (a *app) importTasks(args []string) error {
	fs := a.flags("import")
	from := fs.String("from", "", "source: taskwarrior or org")
	file := fs.String("file", "", "input file; '-' reads stdin (taskwarrior runs 'task export' when empty)")
	filter := fs.String("filter", "", "taskwarrior filter or org tag")
	defaultHours := fs.Int("default-hours", 1, "hours for tasks without an estimate")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *defaultHours < 0 {
		return fmt.Errorf("-default-hours must not be negative, got %d", *defaultHours)
	}

	var candidates []model.Task
	var skipped int
	switch *from {
	case "taskwarrior":
		twTasks, err := a.readTaskwarrior(*file, *filter)
		if err != nil {
			return err
		}
		for _, t := range twTasks {
			st, err := t.StudyTask(time.Local, *defaultHours)
			if err != nil {
				log.Printf("Warning: skipping %q: %v", t.Description, err)
				skipped++
				continue
			}
			candidates = append(candidates, st)
		}
	case "org":
		files := fs.Args()
		if *file != "" {
			files = append([]string{*file}, files...)
		}
		if len(files) == 0 {
			return errors.New("-file is required for org import")
		}
		headings, err := orgmode.ParseFiles(files)
		if err != nil {
			return err
		}
		if *filter != "" {
			headings = orgmode.FilterHeadings(headings, *filter)
		}
		for _, h := range headings {
			st, err := h.StudyTask(*defaultHours)
			if err != nil {
				log.Printf("Warning: skipping heading: %v", err)
				skipped++
				continue
			}
			candidates = append(candidates, st)
		}
	default:
		return fmt.Errorf("-from must be 'taskwarrior' or 'org', got %q", *from)
	}

	tasks := candidates[:0]
	for _, t := range candidates {
		if err := store.Validate(t); err != nil {
			log.Printf("Warning: skipping %q: %v", t.Subject, err)
			skipped++
			continue
		}
		tasks = append(tasks, t)
	}

	s, _, err := a.openStore()
	if err != nil {
		return err
	}
	if err := s.AddTasks(tasks); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Imported %d study tasks (%d skipped)\n", len(tasks), skipped)
	return nil
}

func (a *app) readTaskwarrior(file, filter string) ([]taskwarrior.Task, error) {
	client := taskwarrior.NewClient()
	switch file {
	case "":
		return client.GetTasks(strings.Fields(filter))
	case "-":
		return client.ParseTasks(a.stdin)
	default:
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return client.ParseTasks(f)
	}
}

func (a *app) config(args []string) error {
	fs := a.flags("config")
	calendarName := fs.String("calendar", "", "default Google Calendar name")
	hours := fs.Int("hours", 0, "default study hours per day")
	start := fs.String("start", "", "time of day study blocks start (HH:MM)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	changed := false
	if isSet(fs, "calendar") {
		cfg.Calendar = *calendarName
		changed = true
	}
	if isSet(fs, "hours") {
		cfg.HoursPerDay = *hours
		changed = true
	}
	if isSet(fs, "start") {
		cfg.StudyStart = *start
		changed = true
	}
	if changed {
		if err := config.Save(cfg); err != nil {
			return fmt.Errorf("error saving config: %w", err)
		}
	}

	fmt.Fprintf(a.stdout, "calendar:      %s\n", cfg.Calendar)
	fmt.Fprintf(a.stdout, "hours_per_day: %d\n", cfg.HoursPerDay)
	fmt.Fprintf(a.stdout, "study_start:   %s\n", cfg.StudyStart)
	return nil
}

func (a *app) auth(args []string) error {
	if err := a.flags("auth").Parse(args); err != nil {
		return err
	}
	if err := auth.Reset(); err != nil {
		return err
	}
	if _, err := auth.GetCalendarService(context.Background()); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}
	fmt.Fprintln(a.stdout, "Authentication successful!")
	return nil
}
