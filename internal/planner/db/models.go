package db

import "time"

// Task statuses. A task is created pending and moves to completed or failed
// exactly once; it is never resurrected.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Task is one tasks row. StartTime stays NULL until the allocator places the
// task; once set, StartTime + Duration minutes never exceeds Deadline.
type Task struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	Name      string     `json:"name" gorm:"index"`
	StartTime *time.Time `json:"start_time" gorm:"index"`
	Deadline  time.Time  `json:"deadline" gorm:"index"`
	Duration  int        `json:"duration"` // minutes
	Priority  float64    `json:"priority"`
	Category  string     `json:"category" gorm:"index"`
	Status    string     `json:"status" gorm:"index;default:pending"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	Logs              []LogEntry         `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	RecurringSettings []RecurringSetting `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

// User owns recurring settings; deleting a user cascades to them.
type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Email     string    `json:"email" gorm:"uniqueIndex"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	RecurringSettings []RecurringSetting `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

// ScheduleWindow is one schedules row: a weekly opening of whole hours for a
// category. Edited independently of the task lifecycle.
type ScheduleWindow struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Category  string    `json:"category" gorm:"index"`
	DayOfWeek string    `json:"day_of_week"` // weekday name, e.g. "Monday"
	StartHour int       `json:"start_hour"`
	EndHour   int       `json:"end_hour"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RecurringSetting links a user and a template task to a recurrence pattern
// document (see scheduling.PatternSchema). Cascades away with either parent.
type RecurringSetting struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"index"`
	TaskID    uint      `json:"task_id" gorm:"index"` // the template task
	Pattern   string    `json:"pattern" gorm:"type:json"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LogEntry is an append-only logs row. CreatedAt is the log timestamp; rows
// are never updated and disappear only when their task is deleted.
type LogEntry struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	TaskID    uint      `json:"task_id" gorm:"index"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// AllModels lists every model for migration.
func AllModels() []interface{} {
	return []interface{}{&User{}, &Task{}, &ScheduleWindow{}, &RecurringSetting{}, &LogEntry{}}
}
