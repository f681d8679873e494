package taskwarrior

import (
	"fmt"
	"strings"
	"time"

	"github.com/harrisonrobin/studyplan/pkg/model"
	"github.com/harrisonrobin/studyplan/pkg/util"
)

const (
	PENDING   = "pending"
	COMPLETED = "completed"
	WAITING   = "waiting"
	DELETED   = "deleted"
)

type CustomTime struct {
	time.Time
}

const taskwarriorTimeLayout = "20060102T150405Z" // YYYYMMDDTHHMMSSZ, 'Z' indicates UTC

// UnmarshalJSON implements the json.Unmarshaler interface for CustomTime.
func (ct *CustomTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "0" {
		ct.Time = time.Time{}
		return nil
	}

	t, err := time.Parse(taskwarriorTimeLayout, s)
	if err != nil {
		return fmt.Errorf("failed to parse Taskwarrior time string '%s': %w", s, err)
	}
	ct.Time = t
	return nil
}

// MarshalJSON implements the json.Marshaler interface for CustomTime.
func (ct CustomTime) MarshalJSON() ([]byte, error) {
	if ct.Time.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + ct.Time.Format(taskwarriorTimeLayout) + `"`), nil
}

// Task is the subset of a Taskwarrior export record we import.
type Task struct {
	UUID        string      `json:"uuid"`
	Description string      `json:"description"`
	Due         *CustomTime `json:"due,omitempty"`
	Status      string      `json:"status"`
	Project     string      `json:"project,omitempty"`
	Tags        []string    `json:"tags,omitempty"`
	// Est is the 'est' UDA, an ISO 8601 duration such as PT2H30M.
	Est string `json:"est,omitempty"`
}

// StudyTask converts t into a study task. The deadline is the due date in
// loc; hours come from the est UDA rounded up, or defaultHours when unset.
func (t Task) StudyTask(loc *time.Location, defaultHours int) (model.Task, error) {
	if t.Status != PENDING {
		return model.Task{}, fmt.Errorf("task %s is %s, not pending", t.UUID, t.Status)
	}
	if t.Due == nil || t.Due.IsZero() {
		return model.Task{}, fmt.Errorf("task %s has no due date", t.UUID)
	}

	est, err := util.ParseDuration(t.Est)
	if err != nil {
		return model.Task{}, fmt.Errorf("task %s: %w", t.UUID, err)
	}
	hours := defaultHours
	if est > 0 {
		hours = util.WholeHours(est)
	}

	return model.Task{
		Subject:       strings.TrimSpace(t.Description),
		Deadline:      model.Today(t.Due.In(loc)),
		HoursRequired: hours,
	}, nil
}
