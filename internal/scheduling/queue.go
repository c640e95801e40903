package scheduling

import (
	"sort"
	"time"
)

// Task is the planner's view of a pending tasks row. Duration is in minutes,
// matching the table column.
type Task struct {
	ID       uint
	Name     string
	Deadline time.Time
	Duration int
	Priority float64
	Category string
}

// Order returns the tasks in allocation order: ascending deadline, ties
// broken by descending priority, remaining ties by ascending id. The input
// slice is not modified.
func Order(tasks []Task) []Task {
	ordered := make([]Task, len(tasks))
	copy(ordered, tasks)
	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if !a.Deadline.Equal(b.Deadline) {
			return a.Deadline.Before(b.Deadline)
		}
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		return a.ID < b.ID
	})
	return ordered
}
