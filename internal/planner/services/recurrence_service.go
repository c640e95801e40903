package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-co-op/gocron/v2"

	plannerDB "task-planner-service/internal/planner/db"
	"task-planner-service/internal/planner/store"
	"task-planner-service/internal/scheduling"
)

const (
	DefaultExpandCron   = "0 * * * *"
	DefaultPlanCron     = "*/15 * * * *"
	DefaultHorizonWeeks = 8
)

// RecurrenceService owns the cron side of the planner: a job that expands
// recurring settings into concrete pending tasks over the horizon, and a job
// that triggers allocation passes.
type RecurrenceService struct {
	Store        *store.Store
	Plan         *PlanService
	Scheduler    gocron.Scheduler
	HorizonWeeks int
	appContext   context.Context
}

func NewRecurrenceService(ctx context.Context, st *store.Store, plan *PlanService) (*RecurrenceService, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	horizon := DefaultHorizonWeeks
	if raw := os.Getenv("PLAN_HORIZON_WEEKS"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			horizon = parsed
		} else {
			log.Printf("Ignoring invalid PLAN_HORIZON_WEEKS %q, using %d", raw, horizon)
		}
	}
	return &RecurrenceService{
		Store:        st,
		Plan:         plan,
		Scheduler:    s,
		HorizonWeeks: horizon,
		appContext:   ctx,
	}, nil
}

func (s *RecurrenceService) Start() error {
	expandCron := os.Getenv("EXPAND_CRON")
	if expandCron == "" {
		expandCron = DefaultExpandCron
	}
	planCron := os.Getenv("PLAN_CRON")
	if planCron == "" {
		planCron = DefaultPlanCron
	}

	_, err := s.Scheduler.NewJob(
		gocron.CronJob(expandCron, false),
		gocron.NewTask(func() { s.ExpandAll(s.appContext) }),
		gocron.WithName("expand_recurring"),
		gocron.WithTags("recurring_expansion"),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule expansion job: %w", err)
	}
	_, err = s.Scheduler.NewJob(
		gocron.CronJob(planCron, false),
		gocron.NewTask(func() {
			if err := s.Plan.RunAll(s.appContext); err != nil {
				log.Printf("Error in scheduled plan run: %v", err)
			}
		}),
		gocron.WithName("plan_run"),
		gocron.WithTags("plan_run"),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule plan job: %w", err)
	}

	s.Scheduler.Start()
	log.Printf("RecurrenceService started: expand %q, plan %q, horizon %d weeks", expandCron, planCron, s.HorizonWeeks)
	return nil
}

func (s *RecurrenceService) Stop() {
	if err := s.Scheduler.Shutdown(); err != nil {
		log.Printf("Error shutting down gocron scheduler: %v", err)
	} else {
		log.Println("Gocron scheduler shut down successfully.")
	}
}

// ExpandAll materializes every recurring setting over the horizon. Instances
// already materialized for an occurrence are skipped, so the job can run as
// often as it likes.
func (s *RecurrenceService) ExpandAll(ctx context.Context) {
	settings, err := s.Store.ListRecurringSettings(ctx)
	if err != nil {
		log.Printf("Error fetching recurring settings: %v", err)
		return
	}
	created := 0
	for _, setting := range settings {
		n, err := s.expandSetting(ctx, setting)
		if err != nil {
			log.Printf("Error expanding recurring setting %d: %v", setting.ID, err)
			continue
		}
		created += n
	}
	log.Printf("Recurring expansion complete: %d settings, %d tasks created", len(settings), created)
}

func (s *RecurrenceService) expandSetting(ctx context.Context, setting plannerDB.RecurringSetting) (int, error) {
	pattern, err := scheduling.ParsePattern(setting.Pattern)
	if err != nil {
		return 0, err
	}
	template, err := s.Store.FindTask(ctx, setting.TaskID)
	if err != nil {
		return 0, fmt.Errorf("load template task %d: %w", setting.TaskID, err)
	}

	tpl := scheduling.Template{
		Name:     template.Name,
		Duration: template.Duration,
		Priority: template.Priority,
		Category: template.Category,
	}
	created := 0
	for draft := range scheduling.Expand(pattern, tpl, s.Plan.Now(), s.HorizonWeeks) {
		name := fmt.Sprintf("%s (%s)", draft.Name, draft.Occurrence.Format("2006-01-02"))
		exists, err := s.Store.HasTaskForOccurrence(ctx, name, draft.Due)
		if err != nil {
			return created, err
		}
		if exists {
			continue
		}
		task := plannerDB.Task{
			Name:     name,
			Deadline: draft.Due,
			Duration: draft.Duration,
			Priority: draft.Priority,
			Category: draft.Category,
			Status:   plannerDB.StatusPending,
		}
		if err := s.Store.CreateTask(ctx, &task); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

// NextOccurrence reports when a setting fires next, for the admin surface.
func (s *RecurrenceService) NextOccurrence(setting plannerDB.RecurringSetting, from time.Time) (time.Time, bool) {
	pattern, err := scheduling.ParsePattern(setting.Pattern)
	if err != nil {
		return time.Time{}, false
	}
	for draft := range scheduling.Expand(pattern, scheduling.Template{}, from, 1) {
		return draft.Occurrence, true
	}
	return time.Time{}, false
}
