package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	plannerDB "task-planner-service/internal/planner/db"
)

// Store is the persistence surface the planner consumes: the five tables with
// their cascade behavior, plus the narrow write operations the allocator
// needs (assign, mark-status, append-log).
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for migration wiring in main.
func (s *Store) DB() *gorm.DB { return s.db }

// ListPendingTasks returns pending tasks, optionally restricted to one
// category. Ordering is left to the scheduling queue.
func (s *Store) ListPendingTasks(ctx context.Context, category string) ([]plannerDB.Task, error) {
	query := s.db.WithContext(ctx).Where("status = ?", plannerDB.StatusPending)
	if category != "" {
		query = query.Where("category = ?", category)
	}
	var tasks []plannerDB.Task
	if err := query.Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list pending tasks: %w", err)
	}
	return tasks, nil
}

// ListScheduleWindows returns schedule rows, optionally for one category.
func (s *Store) ListScheduleWindows(ctx context.Context, category string) ([]plannerDB.ScheduleWindow, error) {
	query := s.db.WithContext(ctx)
	if category != "" {
		query = query.Where("category = ?", category)
	}
	var windows []plannerDB.ScheduleWindow
	if err := query.Find(&windows).Error; err != nil {
		return nil, fmt.Errorf("list schedule windows: %w", err)
	}
	return windows, nil
}

// Categories returns the distinct categories present in the schedules table.
func (s *Store) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	if err := s.db.WithContext(ctx).Model(&plannerDB.ScheduleWindow{}).
		Distinct("category").Pluck("category", &categories).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// Assign writes the start time chosen by the allocator. The task stays
// pending; completion is an external event.
func (s *Store) Assign(ctx context.Context, taskID uint, start time.Time) error {
	res := s.db.WithContext(ctx).Model(&plannerDB.Task{}).
		Where("id = ? AND status = ?", taskID, plannerDB.StatusPending).
		Update("start_time", start)
	if res.Error != nil {
		return fmt.Errorf("assign task %d: %w", taskID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("assign task %d: no pending task with that id", taskID)
	}
	return nil
}

// MarkStatus moves a task out of pending. Only pending -> completed and
// pending -> failed are legal; tasks are never resurrected.
func (s *Store) MarkStatus(ctx context.Context, taskID uint, status string) error {
	if status != plannerDB.StatusCompleted && status != plannerDB.StatusFailed {
		return fmt.Errorf("mark task %d: invalid target status %q", taskID, status)
	}
	res := s.db.WithContext(ctx).Model(&plannerDB.Task{}).
		Where("id = ? AND status = ?", taskID, plannerDB.StatusPending).
		Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("mark task %d %s: %w", taskID, status, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("mark task %d %s: task is not pending", taskID, status)
	}
	return nil
}

// AppendLog writes one immutable log entry for a task.
func (s *Store) AppendLog(ctx context.Context, taskID uint, message string) error {
	entry := plannerDB.LogEntry{TaskID: taskID, Message: message}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("append log for task %d: %w", taskID, err)
	}
	return nil
}

// ListLogs returns a task's log entries oldest first.
func (s *Store) ListLogs(ctx context.Context, taskID uint) ([]plannerDB.LogEntry, error) {
	var entries []plannerDB.LogEntry
	if err := s.db.WithContext(ctx).Where("task_id = ?", taskID).
		Order("id").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list logs for task %d: %w", taskID, err)
	}
	return entries, nil
}

// CreateTask inserts a new pending task.
func (s *Store) CreateTask(ctx context.Context, task *plannerDB.Task) error {
	if task.Status == "" {
		task.Status = plannerDB.StatusPending
	}
	if err := s.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// FindTask loads one task by id.
func (s *Store) FindTask(ctx context.Context, taskID uint) (*plannerDB.Task, error) {
	var task plannerDB.Task
	if err := s.db.WithContext(ctx).First(&task, taskID).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// DeleteTask removes a task; its logs and recurring settings cascade away.
func (s *Store) DeleteTask(ctx context.Context, taskID uint) error {
	if err := s.db.WithContext(ctx).Delete(&plannerDB.Task{}, taskID).Error; err != nil {
		return fmt.Errorf("delete task %d: %w", taskID, err)
	}
	return nil
}

// HasTaskForOccurrence reports whether a materialized instance of a recurring
// template already exists with the given deadline. Keeps expansion idempotent.
func (s *Store) HasTaskForOccurrence(ctx context.Context, name string, due time.Time) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&plannerDB.Task{}).
		Where("name = ? AND deadline = ?", name, due).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check occurrence %q: %w", name, err)
	}
	return count > 0, nil
}

// ListRecurringSettings returns every recurring setting.
func (s *Store) ListRecurringSettings(ctx context.Context) ([]plannerDB.RecurringSetting, error) {
	var settings []plannerDB.RecurringSetting
	if err := s.db.WithContext(ctx).Find(&settings).Error; err != nil {
		return nil, fmt.Errorf("list recurring settings: %w", err)
	}
	return settings, nil
}
