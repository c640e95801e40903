package main

import (
	"context"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/common/utils"

	"task-planner-service/internal/planner/api"
	plannerDB "task-planner-service/internal/planner/db"
	plannerKafka "task-planner-service/internal/planner/kafka"
	"task-planner-service/internal/planner/services"
	"task-planner-service/internal/planner/store"
	gorm_db "task-planner-service/pkg/db"
)

func main() {
	stdlog.Println("Task Planner Service starting...")

	appCtx, appCancel := context.WithCancel(context.Background())

	gormDB, err := gorm_db.NewGormDB()
	if err != nil {
		stdlog.Fatalf("Failed to initialize database: %v", err)
	}
	stdlog.Println("Database initialized successfully.")

	stdlog.Println("Running database migrations...")
	if err := gorm_db.AutoMigrate(gormDB, plannerDB.AllModels()...); err != nil {
		stdlog.Fatalf("Failed to migrate database: %v", err)
	}
	stdlog.Println("Database migration successful.")

	st := store.NewStore(gormDB)
	logProducer := plannerKafka.NewLogProducer()
	planService := services.NewPlanService(st, &services.KafkaLogPublisher{Writer: logProducer})

	recurrenceService, err := services.NewRecurrenceService(appCtx, st, planService)
	if err != nil {
		stdlog.Fatalf("Failed to create recurrence service: %v", err)
	}
	if err := recurrenceService.Start(); err != nil {
		stdlog.Fatalf("Failed to start recurrence service: %v", err)
	}

	serverAddr := os.Getenv("SERVER_ADDR")
	if serverAddr == "" {
		serverAddr = ":8080"
	}

	hlog.SetOutput(os.Stdout)
	hlog.SetLevel(hlog.LevelInfo)

	h := server.Default(server.WithHostPorts(serverAddr), server.WithExitWaitTime(5*time.Second))

	taskHandler := api.NewTaskHandler(st)
	scheduleHandler := api.NewScheduleHandler(st)
	userHandler := api.NewUserHandler(st)
	recurringHandler := api.NewRecurringHandler(st)

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
		scheduleGroup.DELETE("/:id", scheduleHandler.DeleteScheduleWindow)
	}
	userGroup := h.Group("/users")
	{
		userGroup.POST("", userHandler.CreateUser)
		userGroup.GET("", userHandler.GetUsers)
		userGroup.DELETE("/:id", userHandler.DeleteUser)
	}
	recurringGroup := h.Group("/recurring-settings")
	{
		recurringGroup.POST("", recurringHandler.CreateRecurringSetting)
		recurringGroup.GET("", recurringHandler.GetRecurringSettings)
		recurringGroup.DELETE("/:id", recurringHandler.DeleteRecurringSetting)
	}
	adminGroup := h.Group("/admin")
	adminGroup.POST("/plan/run", func(c context.Context, ctxReq *app.RequestContext) {
		category := ctxReq.Query("category")
		if category != "" {
			result, err := planService.RunCategory(c, category)
			if err != nil {
				ctxReq.JSON(http.StatusBadRequest, utils.H{"error": err.Error()})
				return
			}
			ctxReq.JSON(http.StatusOK, utils.H{"placed": len(result.Placements), "failed": len(result.Failures)})
			return
		}
		if err := planService.RunAll(c); err != nil {
			ctxReq.JSON(http.StatusBadRequest, utils.H{"error": err.Error()})
			return
		}
		ctxReq.JSON(http.StatusOK, utils.H{"message": "Plan run triggered for all categories"})
	})
	adminGroup.POST("/recurring/expand", func(c context.Context, ctxReq *app.RequestContext) {
		recurrenceService.ExpandAll(c)
		ctxReq.JSON(http.StatusOK, utils.H{"message": "Recurring expansion triggered"})
	})

	h.GET("/ping", func(c context.Context, ctxReq *app.RequestContext) {
		ctxReq.JSON(http.StatusOK, utils.H{"message": "pong"})
	})

	go func() {
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
		sig := <-signals
		hlog.Infof("Received signal: %s. Initiating graceful shutdown...", sig)

		appCancel()

		shutdownCtx, httpShutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer httpShutdownCancel()
		if err := h.Shutdown(shutdownCtx); err != nil {
			hlog.Errorf("Hertz server shutdown error: %v", err)
		} else {
			hlog.Info("Hertz server gracefully stopped.")
		}

		recurrenceService.Stop()

		if err := logProducer.Close(); err != nil {
			hlog.Errorf("Kafka producer close error: %v", err)
		} else {
			hlog.Info("Kafka producer closed.")
		}
		hlog.Info("Task Planner gracefully shut down.")
	}()

	hlog.Infof("Task Planner Service fully initialized and starting Hertz server on %s...", serverAddr)
	h.Spin()

	stdlog.Println("Task Planner Service has been shut down.")
}
