// Package priority computes the urgency score of a study task.
package priority

import (
	"time"

	"github.com/harrisonrobin/studyplan/pkg/model"
)

const (
	// Horizon is the number of days at which a task reaches the floor priority.
	Horizon = 10
	// Floor is the lowest priority any task can have.
	Floor = 1
)

// Calculate maps a deadline to a priority relative to today.
// Tasks due today score 10, tasks nine or more days out score 1, and overdue
// tasks score above 10, growing by one for every day late.
func Calculate(deadline, today time.Time) int {
	daysLeft := model.DaysBetween(today, deadline)
	return max(Floor, Horizon-daysLeft)
}
