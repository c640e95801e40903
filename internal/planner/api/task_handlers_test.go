package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/route"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	plannerDB "task-planner-service/internal/planner/db"
	"task-planner-service/internal/planner/store"
)

func setupTestAppWithRoutes(t *testing.T, dbFilePath string) (*route.Engine, *store.Store) {
	os.Remove(dbFilePath)

	gormDB, err := gorm.Open(sqlite.Open(dbFilePath+"?_foreign_keys=on"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database '%s': %v", dbFilePath, err)
	}
	if err := gormDB.AutoMigrate(plannerDB.AllModels()...); err != nil {
		t.Fatalf("Failed to migrate test database '%s': %v", dbFilePath, err)
	}

	hlog.SetLevel(hlog.LevelFatal)

	h := server.Default(
		server.WithHostPorts("127.0.0.1:0"),
		server.WithExitWaitTime(time.Duration(0)),
	)

	st := store.NewStore(gormDB)
	taskHandler := NewTaskHandler(st)
	scheduleHandler := NewScheduleHandler(st)
	taskGroup := h.Group("/tasks")
	{
		taskGroup.POST("", taskHandler.CreateTask)
		taskGroup.GET("", taskHandler.GetTasks)
		taskGroup.GET("/:id", taskHandler.GetTaskByID)
		taskGroup.POST("/:id/complete", taskHandler.CompleteTask)
		taskGroup.DELETE("/:id", taskHandler.DeleteTask)
		taskGroup.GET("/:id/logs", taskHandler.GetTaskLogs)
	}
	scheduleGroup := h.Group("/schedules")
	{
		scheduleGroup.POST("", scheduleHandler.CreateScheduleWindow)
		scheduleGroup.GET("", scheduleHandler.GetScheduleWindows)
	}
	return h.Engine, st
}

func teardownTestStore(st *store.Store, t *testing.T, dbFilePath string) {
	if st != nil {
		if sqlDB, err := st.DB().DB(); err == nil && sqlDB != nil {
			if err := sqlDB.Close(); err != nil {
				t.Logf("Warning: could not close test API DB: %v", err)
			}
		}
	}
	if err := os.Remove(dbFilePath); err != nil && !os.IsNotExist(err) {
		t.Logf("Warning: could not remove test API DB file '%s': %v", dbFilePath, err)
	}
}

func testDBFile(prefix string) string {
	return prefix + strconv.FormatInt(time.Now().UnixNano(), 10) + ".db"
}

func TestCreateTaskAPI_Valid(t *testing.T) {
	dbFilePath := testDBFile("test_api_task_create_")
	router, st := setupTestAppWithRoutes(t, dbFilePath)
	defer teardownTestStore(st, t, dbFilePath)

	payload := CreateTaskRequest{
		Name:     "write report",
		Deadline: time.Now().Add(48 * time.Hour).UTC(),
		Duration: 90,
		Priority: 0.7,
		Category: "work",
	}
	payloadBytes, _ := json.Marshal(payload)
	w := ut.PerformRequest(router, "POST", "/tasks", &ut.Body{Body: bytes.NewReader(payloadBytes), Len: len(payloadBytes)},
		ut.Header{Key: "Content-Type", Value: "application/json"})
	resp := w.Result()

	assert.Equal(t, http.StatusCreated, resp.StatusCode())
	var created plannerDB.Task
	require.NoError(t, json.Unmarshal(resp.Body(), &created))
	assert.NotZero(t, created.ID)
	assert.Equal(t, plannerDB.StatusPending, created.Status)
	assert.Nil(t, created.StartTime)
}

func TestCreateTaskAPI_RejectsBadFields(t *testing.T) {
	dbFilePath := testDBFile("test_api_task_invalid_")
	router, st := setupTestAppWithRoutes(t, dbFilePath)
	defer teardownTestStore(st, t, dbFilePath)

	cases := []struct {
		name    string
		payload CreateTaskRequest
	}{
		{"zero duration", CreateTaskRequest{Name: "x", Deadline: time.Now().Add(time.Hour), Duration: 0, Priority: 0.5, Category: "work"}},
		{"negative duration", CreateTaskRequest{Name: "x", Deadline: time.Now().Add(time.Hour), Duration: -5, Priority: 0.5, Category: "work"}},
		{"priority above one", CreateTaskRequest{Name: "x", Deadline: time.Now().Add(time.Hour), Duration: 30, Priority: 1.2, Category: "work"}},
		{"deadline in the past", CreateTaskRequest{Name: "x", Deadline: time.Now().Add(-time.Hour), Duration: 30, Priority: 0.5, Category: "work"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payloadBytes, _ := json.Marshal(tc.payload)
			w := ut.PerformRequest(router, "POST", "/tasks", &ut.Body{Body: bytes.NewReader(payloadBytes), Len: len(payloadBytes)},
				ut.Header{Key: "Content-Type", Value: "application/json"})
			assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode())
		})
	}
}

func TestCompleteTaskAPI_OnlyOnce(t *testing.T) {
	dbFilePath := testDBFile("test_api_task_complete_")
	router, st := setupTestAppWithRoutes(t, dbFilePath)
	defer teardownTestStore(st, t, dbFilePath)

	task := plannerDB.Task{Name: "t", Deadline: time.Now().Add(time.Hour), Duration: 30, Priority: 0.5, Category: "work", Status: plannerDB.StatusPending}
	require.NoError(t, st.DB().Create(&task).Error)

	url := "/tasks/" + strconv.FormatUint(uint64(task.ID), 10) + "/complete"
	w := ut.PerformRequest(router, "POST", url, nil)
	assert.Equal(t, http.StatusOK, w.Result().StatusCode())

	w = ut.PerformRequest(router, "POST", url, nil)
	assert.Equal(t, http.StatusConflict, w.Result().StatusCode())
}

func TestDeleteTaskAPI_CascadesLogs(t *testing.T) {
	dbFilePath := testDBFile("test_api_task_delete_")
	router, st := setupTestAppWithRoutes(t, dbFilePath)
	defer teardownTestStore(st, t, dbFilePath)

	task := plannerDB.Task{Name: "t", Deadline: time.Now().Add(time.Hour), Duration: 30, Priority: 0.5, Category: "work", Status: plannerDB.StatusPending}
	require.NoError(t, st.DB().Create(&task).Error)
	require.NoError(t, st.DB().Create(&plannerDB.LogEntry{TaskID: task.ID, Message: "hello"}).Error)

	url := "/tasks/" + strconv.FormatUint(uint64(task.ID), 10)
	w := ut.PerformRequest(router, "DELETE", url, nil)
	assert.Equal(t, http.StatusOK, w.Result().StatusCode())

	var logCount int64
	st.DB().Model(&plannerDB.LogEntry{}).Where("task_id = ?", task.ID).Count(&logCount)
	assert.Zero(t, logCount)
}

func TestCreateScheduleWindowAPI_RejectsInvertedHours(t *testing.T) {
	dbFilePath := testDBFile("test_api_window_invalid_")
	router, st := setupTestAppWithRoutes(t, dbFilePath)
	defer teardownTestStore(st, t, dbFilePath)

	payload := CreateScheduleWindowRequest{Category: "work", DayOfWeek: "Monday", StartHour: 13, EndHour: 9}
	payloadBytes, _ := json.Marshal(payload)
	w := ut.PerformRequest(router, "POST", "/schedules", &ut.Body{Body: bytes.NewReader(payloadBytes), Len: len(payloadBytes)},
		ut.Header{Key: "Content-Type", Value: "application/json"})
	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode())
}

func TestGetScheduleWindowsAPI_FiltersByCategory(t *testing.T) {
	dbFilePath := testDBFile("test_api_window_list_")
	router, st := setupTestAppWithRoutes(t, dbFilePath)
	defer teardownTestStore(st, t, dbFilePath)

	require.NoError(t, st.DB().Create(&plannerDB.ScheduleWindow{Category: "work", DayOfWeek: "Monday", StartHour: 9, EndHour: 13}).Error)
	require.NoError(t, st.DB().Create(&plannerDB.ScheduleWindow{Category: "health", DayOfWeek: "Monday", StartHour: 18, EndHour: 20}).Error)

	w := ut.PerformRequest(router, "GET", "/schedules?category=work", nil)
	resp := w.Result()
	assert.Equal(t, http.StatusOK, resp.StatusCode())

	var windows []plannerDB.ScheduleWindow
	require.NoError(t, json.Unmarshal(resp.Body(), &windows))
	require.Len(t, windows, 1)
	assert.Equal(t, "work", windows[0].Category)
}
