// Package schedule turns a task list into a day-by-day study plan.
package schedule

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/harrisonrobin/studyplan/pkg/model"
	"github.com/harrisonrobin/studyplan/pkg/priority"
	"github.com/harrisonrobin/studyplan/pkg/session"
)

var (
	// ErrInvalidBudget is returned when the daily hour budget is not positive.
	ErrInvalidBudget = errors.New("available study hours per day must be a positive integer")
	// ErrTooManyHours is returned for a task needing more than model.MaxHours.
	ErrTooManyHours = errors.New("task requires too many hours")
)

// Generator produces plans for the date of the session it was built from.
type Generator struct {
	today time.Time
}

func NewGenerator(sess session.Session) *Generator {
	return &Generator{today: model.Today(sess.Today)}
}

// Generate plans tasks with hoursPerDay available each day.
func (g *Generator) Generate(tasks []model.Task, hoursPerDay int) ([]model.Entry, error) {
	return Generate(tasks, hoursPerDay, g.today)
}

// Generate prioritizes tasks against today and allocates hoursPerDay per
// study day. The input slice is not modified.
func Generate(tasks []model.Task, hoursPerDay int, today time.Time) ([]model.Entry, error) {
	if hoursPerDay <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBudget, hoursPerDay)
	}
	return Allocate(Prioritize(tasks, today), hoursPerDay, today)
}

// Prioritize returns a copy of tasks with fresh priorities, sorted by
// priority descending. Ties keep their original order.
func Prioritize(tasks []model.Task, today time.Time) []model.Task {
	sorted := make([]model.Task, len(tasks))
	for i, t := range tasks {
		t.Priority = priority.Calculate(t.Deadline, today)
		sorted[i] = t
	}
	slices.SortStableFunc(sorted, func(a, b model.Task) int {
		return b.Priority - a.Priority
	})
	return sorted
}

// Allocate walks the already sorted tasks and hands out up to hoursPerDay
// hours per study day until each task is covered.
//
// The current date is shared across tasks: a task starts on the day the
// previous task's last block landed, not on today. The date only advances
// between two blocks of the same task.
func Allocate(sorted []model.Task, hoursPerDay int, today time.Time) ([]model.Entry, error) {
	if hoursPerDay <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBudget, hoursPerDay)
	}

	var plan []model.Entry
	current := model.Today(today)

	for _, task := range sorted {
		if task.HoursRequired > model.MaxHours {
			return nil, fmt.Errorf("%w: %q needs %d, limit is %d", ErrTooManyHours, task.Subject, task.HoursRequired, model.MaxHours)
		}
		remaining := task.HoursRequired
		studyDays := remaining / hoursPerDay
		if remaining%hoursPerDay != 0 {
			studyDays++
		}

		for range studyDays {
			allocated := min(hoursPerDay, remaining)
			plan = append(plan, model.Entry{
				Subject: task.Subject,
				Date:    current,
				Hours:   allocated,
			})
			remaining -= allocated
			if remaining <= 0 {
				break
			}
			current = current.AddDate(0, 0, 1)
		}
	}
	return plan, nil
}

// Totals sums allocated hours per subject.
func Totals(plan []model.Entry) map[string]int {
	totals := make(map[string]int)
	for _, e := range plan {
		totals[e.Subject] += e.Hours
	}
	return totals
}
