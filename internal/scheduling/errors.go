package scheduling

import "fmt"

// ConfigError reports a malformed schedule window. The whole batch is
// rejected: a broken window set cannot produce a trustworthy plan.
type ConfigError struct {
	Category string
	Detail   string
}

func (e *ConfigError) Error() string {
	if e.Category == "" {
		return fmt.Sprintf("schedule config error: %s", e.Detail)
	}
	return fmt.Sprintf("schedule config error for category %q: %s", e.Category, e.Detail)
}

// ValidationError reports a task that violates its own field constraints
// (non-positive duration, priority outside [0,1], unknown category, deadline
// not after the planning reference time). Aborts the batch.
type ValidationError struct {
	TaskID uint
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("task %d failed validation: %s", e.TaskID, e.Detail)
}

// UnschedulableError reports that no window before the task's deadline has
// enough free capacity. Recovered per task: the task is marked failed and the
// batch continues.
type UnschedulableError struct {
	TaskID uint
	Detail string
}

func (e *UnschedulableError) Error() string {
	return fmt.Sprintf("task %d is unschedulable: %s", e.TaskID, e.Detail)
}
