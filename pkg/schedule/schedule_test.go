package schedule

import (
	"fmt"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/studyplan/pkg/model"
	"github.com/harrisonrobin/studyplan/pkg/session"
)

var today = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func task(subject string, daysOut, hours int) model.Task {
	return model.Task{Subject: subject, Deadline: today.AddDate(0, 0, daysOut), HoursRequired: hours}
}

func TestGenerateEndToEnd(t *testing.T) {
	tasks := []model.Task{task("B", 20, 2), task("A", 1, 3)}

	plan, err := Generate(tasks, 2, today)
	require.NoError(t, err)

	want := []model.Entry{
		{Subject: "A", Date: today, Hours: 2},
		{Subject: "A", Date: today.AddDate(0, 0, 1), Hours: 1},
		{Subject: "B", Date: today.AddDate(0, 0, 1), Hours: 2},
	}
	assert.Equal(t, want, plan)
}

func TestGenerateRejectsNonPositiveBudget(t *testing.T) {
	tasks := []model.Task{task("A", 1, 3)}

	for _, budget := range []int{0, -3} {
		plan, err := Generate(tasks, budget, today)
		assert.ErrorIs(t, err, ErrInvalidBudget)
		assert.Nil(t, plan)
	}
}

func TestGenerateKeepsInsertionOrderOnTies(t *testing.T) {
	tasks := []model.Task{
		task("First", 3, 1),
		task("Urgent", 0, 1),
		task("Second", 3, 1),
		task("Third", 3, 1),
	}

	plan, err := Generate(tasks, 4, today)
	require.NoError(t, err)

	var order []string
	for _, e := range plan {
		order = append(order, e.Subject)
	}
	assert.Equal(t, []string{"Urgent", "First", "Second", "Third"}, order)
}

func TestGenerateDoesNotMutateInput(t *testing.T) {
	tasks := []model.Task{task("B", 20, 7), task("A", 1, 3)}
	before := append([]model.Task(nil), tasks...)

	_, err := Generate(tasks, 2, today)
	require.NoError(t, err)
	assert.Equal(t, before, tasks)

	// Running twice yields the same plan.
	first, _ := Generate(tasks, 2, today)
	second, _ := Generate(tasks, 2, today)
	assert.Equal(t, first, second)
}

func TestGenerateConservesHours(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 50; i++ {
		var tasks []model.Task
		want := make(map[string]int)
		n := rng.Intn(8)
		for j := 0; j < n; j++ {
			subject := fmt.Sprintf("S%d", j)
			hours := rng.Intn(20)
			tasks = append(tasks, task(subject, rng.Intn(30)-10, hours))
			if hours > 0 {
				want[subject] = hours
			}
		}
		budget := rng.Intn(6) + 1

		plan, err := Generate(tasks, budget, today)
		require.NoError(t, err)
		assert.Equal(t, want, Totals(plan))

		for k, e := range plan {
			assert.LessOrEqual(t, e.Hours, budget)
			assert.Positive(t, e.Hours)
			if k > 0 {
				assert.False(t, e.Date.Before(plan[k-1].Date), "dates must be non-decreasing")
			}
		}
	}
}

func TestGenerateZeroHourTaskEmitsNothing(t *testing.T) {
	plan, err := Generate([]model.Task{task("Nothing", 1, 0), task("Math", 5, 1)}, 2, today)
	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.Equal(t, "Math", plan[0].Subject)
	assert.Equal(t, today, plan[0].Date)
}

func TestGenerateRecomputesStalePriority(t *testing.T) {
	stale := task("Later", 30, 1)
	stale.Priority = 99
	plan, err := Generate([]model.Task{stale, task("Sooner", 2, 1)}, 1, today)
	require.NoError(t, err)
	assert.Equal(t, "Sooner", plan[0].Subject)
}

func TestGeneratorUsesSessionDate(t *testing.T) {
	g := NewGenerator(session.Session{User: "alice", Today: today})

	plan, err := g.Generate([]model.Task{task("A", 1, 1)}, 3)
	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.Equal(t, today, plan[0].Date)
}

func TestGenerateRejectsOversizedTask(t *testing.T) {
	tasks := []model.Task{task("A", 1, 3), task("Big", 2, math.MaxInt)}

	plan, err := Generate(tasks, 2, today)
	assert.ErrorIs(t, err, ErrTooManyHours)
	assert.Nil(t, plan)
}

func TestGenerateConservesHoursAtLimit(t *testing.T) {
	tasks := []model.Task{task("Thesis", 30, model.MaxHours)}

	plan, err := Generate(tasks, 7, today)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Thesis": model.MaxHours}, Totals(plan))
	assert.Len(t, plan, (model.MaxHours+6)/7)
	assert.Equal(t, model.MaxHours%7, plan[len(plan)-1].Hours)
}
