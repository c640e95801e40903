package events

import "time"

// TaskLogPayload is published by the planner for every allocation outcome and
// consumed by the log-writer, which appends it to the logs table.
type TaskLogPayload struct {
	TaskID   uint      `json:"task_id"`
	Message  string    `json:"message"`
	LoggedAt time.Time `json:"logged_at"`
}
