package api

import (
	"context"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"gorm.io/gorm"

	plannerDB "task-planner-service/internal/planner/db"
	"task-planner-service/internal/planner/store"
	"task-planner-service/internal/scheduling"
)

type ScheduleHandler struct {
	Store *store.Store
}

func NewScheduleHandler(st *store.Store) *ScheduleHandler {
	return &ScheduleHandler{Store: st}
}

type CreateScheduleWindowRequest struct {
	Category  string `json:"category" validate:"required"`
	DayOfWeek string `json:"day_of_week" validate:"required"`
	StartHour int    `json:"start_hour"`
	EndHour   int    `json:"end_hour" validate:"required"`
}

func (h *ScheduleHandler) CreateScheduleWindow(ctx context.Context, c *app.RequestContext) {
	var req CreateScheduleWindowRequest
	if err := c.BindAndValidate(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	// Run the row through the same validation the planner applies, so a
	// window that would break an allocation pass never reaches the table.
	_, err := scheduling.BuildCatalog([]scheduling.Window{{
		Category:  req.Category,
		DayOfWeek: req.DayOfWeek,
		StartHour: req.StartHour,
		EndHour:   req.EndHour,
	}})
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.H{"error": err.Error()})
		return
	}

	window := plannerDB.ScheduleWindow{
		Category:  req.Category,
		DayOfWeek: req.DayOfWeek,
		StartHour: req.StartHour,
		EndHour:   req.EndHour,
	}
	if err := h.Store.DB().WithContext(ctx).Create(&window).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to create schedule window: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, window)
}

func (h *ScheduleHandler) GetScheduleWindows(ctx context.Context, c *app.RequestContext) {
	windows, err := h.Store.ListScheduleWindows(ctx, c.Query("category"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to fetch schedule windows: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, windows)
}

func (h *ScheduleHandler) DeleteScheduleWindow(ctx context.Context, c *app.RequestContext) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid ID format"})
		return
	}
	var window plannerDB.ScheduleWindow
	if result := h.Store.DB().WithContext(ctx).First(&window, id); result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, utils.H{"error": "Schedule window not found"})
		} else {
			c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to fetch schedule window: " + result.Error.Error()})
		}
		return
	}
	if err := h.Store.DB().WithContext(ctx).Delete(&window).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to delete schedule window: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, utils.H{"message": "Schedule window deleted"})
}
