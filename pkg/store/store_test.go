package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/studyplan/pkg/model"
	"github.com/harrisonrobin/studyplan/pkg/session"
)

var testToday = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tasks", "alice.txt")
	return New(path, session.Session{User: "alice", Today: testToday})
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := model.ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestLoadMissingFile(t *testing.T) {
	s := newTestStore(t)

	tasks, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestAddThenLoad(t *testing.T) {
	s := newTestStore(t)

	added, err := s.Add("Math", date(t, "2025-01-10"), 5)
	require.NoError(t, err)
	assert.Equal(t, 1, added.Priority)

	reopened, err := Open(s.Path, session.Session{User: "alice", Today: testToday})
	require.NoError(t, err)

	tasks := reopened.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "Math", tasks[0].Subject)
	assert.Equal(t, 5, tasks[0].HoursRequired)
	assert.Equal(t, "2025-01-10", tasks[0].Deadline.Format(model.DateLayout))

	raw, err := os.ReadFile(s.Path)
	require.NoError(t, err)
	assert.Equal(t, "Math,2025-01-10,5\n", string(raw))
}

func TestAddAllowsDuplicates(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Add("Math", date(t, "2025-01-10"), 5)
	require.NoError(t, err)
	_, err = s.Add("Math", date(t, "2025-01-12"), 2)
	require.NoError(t, err)

	tasks, err := s.Load()
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
}

func TestAddRejectsInvalidInput(t *testing.T) {
	s := newTestStore(t)

	cases := []struct {
		subject string
		hours   int
	}{
		{"", 1},
		{"Math, Calculus", 1},
		{"Line\nBreak", 1},
		{"History", -1},
		{"Physics", model.MaxHours + 1},
	}
	for _, c := range cases {
		_, err := s.Add(c.subject, date(t, "2025-01-10"), c.hours)
		assert.ErrorIs(t, err, ErrInvalidTask, "subject=%q hours=%d", c.subject, c.hours)
	}

	assert.Empty(t, s.Tasks())
	_, err := os.Stat(s.Path)
	assert.True(t, os.IsNotExist(err), "nothing should have been written")
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	for _, subject := range []string{"Math", "Physics", "Math"} {
		_, err := s.Add(subject, date(t, "2025-01-10"), 1)
		require.NoError(t, err)
	}

	n, err := s.Delete("Math")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	tasks, err := s.Load()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Physics", tasks[0].Subject)
}

func TestDeleteMissingLeavesFileUnchanged(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Add("Math", date(t, "2025-01-10"), 5)
	require.NoError(t, err)

	before, err := os.Stat(s.Path)
	require.NoError(t, err)

	n, err := s.Delete("math") // case sensitive
	require.NoError(t, err)
	assert.Zero(t, n)

	after, err := os.Stat(s.Path)
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())

	tasks, err := s.Load()
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestLoadParseErrorKeepsPreviousState(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Add("Math", date(t, "2025-01-10"), 5)
	require.NoError(t, err)

	bad := "Math,2025-01-10,5\nPhysics,2025-13-40,3\n"
	require.NoError(t, os.WriteFile(s.Path, []byte(bad), 0600))

	_, err = s.Load()
	var perr *ParseError
	require.True(t, errors.As(err, &perr), "want *ParseError, got %v", err)
	assert.Equal(t, 2, perr.Line)
	assert.Equal(t, "Physics,2025-13-40,3", perr.Text)

	tasks := s.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "Math", tasks[0].Subject)
}

func TestParseLineErrors(t *testing.T) {
	for _, line := range []string{
		"Math",
		"Math,2025-01-10",
		"Math,2025-01-10,5,extra",
		",2025-01-10,5",
		"Math,10/01/2025,5",
		"Math,2025-01-10,five",
		"Math,2025-01-10,-2",
		"Math,2025-01-10,9223372036854775807",
	} {
		_, err := ParseLine(line)
		assert.Error(t, err, line)
	}
}

func TestLoadSkipsBlankLines(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path), 0700))
	require.NoError(t, os.WriteFile(s.Path, []byte("Math,2025-01-10,5\n\n  \nArt,2025-01-02,1\n"), 0600))

	tasks, err := s.Load()
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, 9, tasks[1].Priority)
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Add("Math", date(t, "2025-01-10"), 5)
	require.NoError(t, err)
	_, err = s.Add("Art", date(t, "2025-01-03"), 2)
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Dir(s.Path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "alice.txt", entries[0].Name())
}

func TestAddTasks(t *testing.T) {
	s := newTestStore(t)

	err := s.AddTasks([]model.Task{
		{Subject: "Math", Deadline: date(t, "2025-01-10"), HoursRequired: 5},
		{Subject: "Bad,Subject", Deadline: date(t, "2025-01-10"), HoursRequired: 1},
	})
	require.ErrorIs(t, err, ErrInvalidTask)
	assert.Empty(t, s.Tasks())

	err = s.AddTasks([]model.Task{
		{Subject: "Math", Deadline: date(t, "2025-01-10"), HoursRequired: 5},
		{Subject: "Art", Deadline: date(t, "2025-01-01"), HoursRequired: 1},
	})
	require.NoError(t, err)

	tasks, err := s.Load()
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, 10, tasks[1].Priority)
}
