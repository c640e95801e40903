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

type UserHandler struct {
	Store *store.Store
}

func NewUserHandler(st *store.Store) *UserHandler {
	return &UserHandler{Store: st}
}

type CreateUserRequest struct {
	Email string `json:"email" validate:"required"`
	Name  string `json:"name" validate:"required"`
}

func (h *UserHandler) CreateUser(ctx context.Context, c *app.RequestContext) {
	var req CreateUserRequest
	if err := c.BindAndValidate(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	user := plannerDB.User{Email: req.Email, Name: req.Name}
	if err := h.Store.DB().WithContext(ctx).Create(&user).Error; err != nil {
		c.JSON(http.StatusConflict, utils.H{"error": "Failed to create user: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *UserHandler) GetUsers(ctx context.Context, c *app.RequestContext) {
	var users []plannerDB.User
	if result := h.Store.DB().WithContext(ctx).Find(&users); result.Error != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to fetch users: " + result.Error.Error()})
		return
	}
	c.JSON(http.StatusOK, users)
}

// DeleteUser removes a user; their recurring settings cascade away.
func (h *UserHandler) DeleteUser(ctx context.Context, c *app.RequestContext) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid ID format"})
		return
	}
	var user plannerDB.User
	if result := h.Store.DB().WithContext(ctx).First(&user, id); result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, utils.H{"error": "User not found"})
		} else {
			c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to fetch user: " + result.Error.Error()})
		}
		return
	}
	if err := h.Store.DB().WithContext(ctx).Delete(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to delete user: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, utils.H{"message": "User deleted"})
}

type RecurringHandler struct {
	Store *store.Store
}

func NewRecurringHandler(st *store.Store) *RecurringHandler {
	return &RecurringHandler{Store: st}
}

type CreateRecurringSettingRequest struct {
	UserID  uint   `json:"user_id" validate:"required"`
	TaskID  uint   `json:"task_id" validate:"required"`
	Pattern string `json:"pattern" validate:"required"`
}

func (h *RecurringHandler) CreateRecurringSetting(ctx context.Context, c *app.RequestContext) {
	var req CreateRecurringSettingRequest
	if err := c.BindAndValidate(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	if _, err := scheduling.ParsePattern(req.Pattern); err != nil {
		c.JSON(http.StatusBadRequest, utils.H{"error": err.Error()})
		return
	}
	var user plannerDB.User
	if err := h.Store.DB().WithContext(ctx).First(&user, req.UserID).Error; err != nil {
		c.JSON(http.StatusBadRequest, utils.H{"error": "User not found"})
		return
	}
	if _, err := h.Store.FindTask(ctx, req.TaskID); err != nil {
		c.JSON(http.StatusBadRequest, utils.H{"error": "Template task not found"})
		return
	}

	setting := plannerDB.RecurringSetting{
		UserID:  req.UserID,
		TaskID:  req.TaskID,
		Pattern: req.Pattern,
	}
	if err := h.Store.DB().WithContext(ctx).Create(&setting).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to create recurring setting: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, setting)
}

func (h *RecurringHandler) GetRecurringSettings(ctx context.Context, c *app.RequestContext) {
	settings, err := h.Store.ListRecurringSettings(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to fetch recurring settings: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *RecurringHandler) DeleteRecurringSetting(ctx context.Context, c *app.RequestContext) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid ID format"})
		return
	}
	var setting plannerDB.RecurringSetting
	if result := h.Store.DB().WithContext(ctx).First(&setting, id); result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, utils.H{"error": "Recurring setting not found"})
		} else {
			c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to fetch recurring setting: " + result.Error.Error()})
		}
		return
	}
	if err := h.Store.DB().WithContext(ctx).Delete(&setting).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to delete recurring setting: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, utils.H{"message": "Recurring setting deleted"})
}
