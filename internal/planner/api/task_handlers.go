package api

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"gorm.io/gorm"

	plannerDB "task-planner-service/internal/planner/db"
	"task-planner-service/internal/planner/store"
)

type TaskHandler struct {
	Store *store.Store
}

func NewTaskHandler(st *store.Store) *TaskHandler {
	return &TaskHandler{Store: st}
}

type CreateTaskRequest struct {
	Name     string    `json:"name" validate:"required"`
	Deadline time.Time `json:"deadline" validate:"required"`
	Duration int       `json:"duration" validate:"required"`
	Priority float64   `json:"priority"`
	Category string    `json:"category" validate:"required"`
}

func (h *TaskHandler) CreateTask(ctx context.Context, c *app.RequestContext) {
	var req CreateTaskRequest
	if err := c.BindAndValidate(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	if req.Duration <= 0 {
		c.JSON(http.StatusBadRequest, utils.H{"error": "duration must be positive"})
		return
	}
	if req.Priority < 0 || req.Priority > 1 {
		c.JSON(http.StatusBadRequest, utils.H{"error": "priority must be in [0,1]"})
		return
	}
	if !req.Deadline.After(time.Now()) {
		c.JSON(http.StatusBadRequest, utils.H{"error": "deadline must be in the future"})
		return
	}

	task := plannerDB.Task{
		Name:     req.Name,
		Deadline: req.Deadline,
		Duration: req.Duration,
		Priority: req.Priority,
		Category: req.Category,
		Status:   plannerDB.StatusPending,
	}
	if err := h.Store.CreateTask(ctx, &task); err != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to create task: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (h *TaskHandler) GetTasks(ctx context.Context, c *app.RequestContext) {
	query := h.Store.DB().WithContext(ctx).Model(&plannerDB.Task{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	var tasks []plannerDB.Task
	if result := query.Find(&tasks); result.Error != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to fetch tasks: " + result.Error.Error()})
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (h *TaskHandler) GetTaskByID(ctx context.Context, c *app.RequestContext) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid ID format"})
		return
	}
	task, err := h.Store.FindTask(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, utils.H{"error": "Task not found"})
		} else {
			c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to fetch task: " + err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, task)
}

// CompleteTask transitions a pending task to completed. The transition is
// one-way; re-completing or completing a failed task is a conflict.
func (h *TaskHandler) CompleteTask(ctx context.Context, c *app.RequestContext) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid ID format"})
		return
	}
	if err := h.Store.MarkStatus(ctx, id, plannerDB.StatusCompleted); err != nil {
		c.JSON(http.StatusConflict, utils.H{"error": err.Error()})
		return
	}
	task, err := h.Store.FindTask(ctx, id)
	if err != nil {
		c.JSON(http.StatusNotFound, utils.H{"error": "Task not found"})
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) DeleteTask(ctx context.Context, c *app.RequestContext) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid ID format"})
		return
	}
	if _, err := h.Store.FindTask(ctx, id); err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, utils.H{"error": "Task not found"})
		} else {
			c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to fetch task: " + err.Error()})
		}
		return
	}
	if err := h.Store.DeleteTask(ctx, id); err != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to delete task: " + err.Error()})
		return
	}
	log.Printf("Task ID %d deleted; logs and recurring settings cascade.", id)
	c.JSON(http.StatusOK, utils.H{"message": "Task deleted"})
}

func (h *TaskHandler) GetTaskLogs(ctx context.Context, c *app.RequestContext) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid ID format"})
		return
	}
	entries, err := h.Store.ListLogs(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to fetch logs: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, entries)
}

func parseID(c *app.RequestContext) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
