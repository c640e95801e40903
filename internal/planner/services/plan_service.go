package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	plannerDB "task-planner-service/internal/planner/db"
	"task-planner-service/internal/planner/events"
	"task-planner-service/internal/planner/store"
	"task-planner-service/internal/scheduling"
)

// LogPublisher is the slice of the kafka writer the planner needs, kept as an
// interface so tests can capture published events.
type LogPublisher interface {
	Publish(ctx context.Context, payload events.TaskLogPayload) error
}

// KafkaLogPublisher publishes task log events to the task log topic.
type KafkaLogPublisher struct {
	Writer *kafka.Writer
}

func (p *KafkaLogPublisher) Publish(ctx context.Context, payload events.TaskLogPayload) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal task log payload: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(payload.TaskID), 10)),
		Value: payloadBytes,
	}
	writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := p.Writer.WriteMessages(writeCtx, msg); err != nil {
		return fmt.Errorf("publish task log for task %d: %w", payload.TaskID, err)
	}
	return nil
}

// PlanService runs allocation passes. Each pass owns the window-capacity
// state exclusively for its duration and recomputes it from persisted rows on
// the next run, guarded by a per-category lock so two concurrent runs cannot
// double-book the same window.
type PlanService struct {
	Store     *store.Store
	Publisher LogPublisher     // nil: log entries are written straight to the store
	Now       func() time.Time // defaults to time.Now

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewPlanService(st *store.Store, publisher LogPublisher) *PlanService {
	return &PlanService{
		Store:     st,
		Publisher: publisher,
		Now:       time.Now,
		locks:     make(map[string]*sync.Mutex),
	}
}

func (s *PlanService) categoryLock(category string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[category]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[category] = lock
	}
	return lock
}

// RunCategory executes one allocation pass for a category: load windows and
// pending tasks, allocate, persist placements, mark unschedulable tasks
// failed. Every failure produces exactly one log entry.
func (s *PlanService) RunCategory(ctx context.Context, category string) (scheduling.Result, error) {
	lock := s.categoryLock(category)
	lock.Lock()
	defer lock.Unlock()

	windows, err := s.Store.ListScheduleWindows(ctx, category)
	if err != nil {
		return scheduling.Result{}, err
	}
	catalog, err := scheduling.BuildCatalog(toWindows(windows))
	if err != nil {
		return scheduling.Result{}, err
	}

	rows, err := s.Store.ListPendingTasks(ctx, category)
	if err != nil {
		return scheduling.Result{}, err
	}
	tasks := make([]scheduling.Task, 0, len(rows))
	var reserved []scheduling.Placement
	for _, row := range rows {
		if row.StartTime != nil {
			// Already placed by an earlier pass; re-running over an
			// unchanged set must not move it, only respect its slot.
			reserved = append(reserved, scheduling.Placement{
				TaskID:   row.ID,
				Category: row.Category,
				Start:    *row.StartTime,
				End:      row.StartTime.Add(time.Duration(row.Duration) * time.Minute),
			})
			continue
		}
		tasks = append(tasks, scheduling.Task{
			ID:       row.ID,
			Name:     row.Name,
			Deadline: row.Deadline,
			Duration: row.Duration,
			Priority: row.Priority,
			Category: row.Category,
		})
	}
	if len(tasks) == 0 {
		return scheduling.Result{}, nil
	}

	result, err := scheduling.Allocate(s.Now(), catalog, tasks, reserved)
	if err != nil {
		return scheduling.Result{}, err
	}

	for _, placement := range result.Placements {
		if err := s.Store.Assign(ctx, placement.TaskID, placement.Start); err != nil {
			return result, err
		}
		s.logTask(ctx, placement.TaskID, fmt.Sprintf("scheduled %s - %s",
			placement.Start.Format(time.RFC3339), placement.End.Format(time.RFC3339)))
	}
	for _, failure := range result.Failures {
		if err := s.Store.MarkStatus(ctx, failure.TaskID, plannerDB.StatusFailed); err != nil {
			return result, err
		}
		s.logTask(ctx, failure.TaskID, "scheduling failed: "+failure.Err.Detail)
	}
	log.Printf("Plan run for category %q: %d placed, %d failed", category, len(result.Placements), len(result.Failures))
	return result, nil
}

// RunAll runs a pass for every category with pending tasks. Categories with
// no schedule windows still run so their tasks fail loudly instead of
// lingering pending.
func (s *PlanService) RunAll(ctx context.Context) error {
	rows, err := s.Store.ListPendingTasks(ctx, "")
	if err != nil {
		return err
	}
	seen := make(map[string]bool)
	for _, row := range rows {
		if seen[row.Category] {
			continue
		}
		seen[row.Category] = true
		if _, err := s.RunCategory(ctx, row.Category); err != nil {
			return fmt.Errorf("plan run for category %q: %w", row.Category, err)
		}
	}
	return nil
}

// logTask publishes one log event for a task, falling back to a direct store
// write when no producer is configured or publishing fails. A failure never
// goes unlogged.
func (s *PlanService) logTask(ctx context.Context, taskID uint, message string) {
	if s.Publisher != nil {
		err := s.Publisher.Publish(ctx, events.TaskLogPayload{
			TaskID:   taskID,
			Message:  message,
			LoggedAt: s.Now(),
		})
		if err == nil {
			return
		}
		log.Printf("Error publishing log event for task %d: %v. Writing directly.", taskID, err)
	}
	if err := s.Store.AppendLog(ctx, taskID, message); err != nil {
		log.Printf("Error appending log for task %d: %v", taskID, err)
	}
}

func toWindows(rows []plannerDB.ScheduleWindow) []scheduling.Window {
	windows := make([]scheduling.Window, 0, len(rows))
	for _, row := range rows {
		windows = append(windows, scheduling.Window{
			Category:  row.Category,
			DayOfWeek: row.DayOfWeek,
			StartHour: row.StartHour,
			EndHour:   row.EndHour,
		})
	}
	return windows
}
