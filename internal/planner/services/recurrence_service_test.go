package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	plannerDB "task-planner-service/internal/planner/db"
	"task-planner-service/internal/planner/store"
)

func newTestRecurrenceService(t *testing.T, st *store.Store, now time.Time) *RecurrenceService {
	t.Helper()
	plan := newTestPlanService(st, nil, now)
	svc, err := NewRecurrenceService(context.Background(), st, plan)
	require.NoError(t, err)
	svc.HorizonWeeks = 8
	return svc
}

func TestExpandAll_MaterializesWeeklyInstances(t *testing.T) {
	st, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	user := plannerDB.User{Email: "d@example.com", Name: "D"}
	require.NoError(t, st.DB().Create(&user).Error)
	template := createPending(t, st, "weekly review", testMonday.Add(13*time.Hour), 60, 0.6, "work")
	setting := plannerDB.RecurringSetting{UserID: user.ID, TaskID: template.ID, Pattern: `{"freq":"weekly","weekday":"Monday"}`}
	require.NoError(t, st.DB().Create(&setting).Error)

	svc := newTestRecurrenceService(t, st, testMonday.Add(10*time.Hour))
	svc.ExpandAll(ctx)

	var instances []plannerDB.Task
	require.NoError(t, st.DB().Where("name LIKE ?", "weekly review (%").Find(&instances).Error)
	require.Len(t, instances, 8)
	for _, inst := range instances {
		assert.Equal(t, plannerDB.StatusPending, inst.Status)
		assert.Equal(t, 60, inst.Duration)
		assert.Equal(t, 0.6, inst.Priority)
		assert.Equal(t, "work", inst.Category)
		assert.Equal(t, time.Monday, inst.Deadline.AddDate(0, 0, -1).Weekday())
	}
}

func TestExpandAll_IsIdempotent(t *testing.T) {
	st, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	user := plannerDB.User{Email: "e@example.com", Name: "E"}
	require.NoError(t, st.DB().Create(&user).Error)
	template := createPending(t, st, "gym", testMonday.Add(13*time.Hour), 45, 0.3, "health")
	setting := plannerDB.RecurringSetting{UserID: user.ID, TaskID: template.ID, Pattern: `{"freq":"weekly","weekday":"Wednesday"}`}
	require.NoError(t, st.DB().Create(&setting).Error)

	svc := newTestRecurrenceService(t, st, testMonday.Add(10*time.Hour))
	svc.ExpandAll(ctx)
	svc.ExpandAll(ctx)

	var count int64
	require.NoError(t, st.DB().Model(&plannerDB.Task{}).Where("name LIKE ?", "gym (%").Count(&count).Error)
	assert.EqualValues(t, 8, count)
}

func TestExpandAll_SkipsInvalidPattern(t *testing.T) {
	st, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	user := plannerDB.User{Email: "f@example.com", Name: "F"}
	require.NoError(t, st.DB().Create(&user).Error)
	template := createPending(t, st, "broken", testMonday.Add(13*time.Hour), 30, 0.2, "work")
	setting := plannerDB.RecurringSetting{UserID: user.ID, TaskID: template.ID, Pattern: `{"freq":"daily"}`}
	require.NoError(t, st.DB().Create(&setting).Error)

	svc := newTestRecurrenceService(t, st, testMonday.Add(10*time.Hour))
	svc.ExpandAll(ctx)

	var count int64
	require.NoError(t, st.DB().Model(&plannerDB.Task{}).Where("name LIKE ?", "broken (%").Count(&count).Error)
	assert.Zero(t, count)
}

func TestNextOccurrence(t *testing.T) {
	st, cleanup := setupTestStore(t)
	defer cleanup()

	svc := newTestRecurrenceService(t, st, testMonday)
	setting := plannerDB.RecurringSetting{Pattern: `{"freq":"weekly","weekday":"Thursday"}`}

	next, ok := svc.NextOccurrence(setting, testMonday)
	require.True(t, ok)
	assert.Equal(t, testMonday.AddDate(0, 0, 3), next)

	_, ok = svc.NextOccurrence(plannerDB.RecurringSetting{Pattern: `not json`}, testMonday)
	assert.False(t, ok)
}
