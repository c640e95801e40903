package main

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	plannerDB "task-planner-service/internal/planner/db"
	"task-planner-service/internal/planner/events"
	"task-planner-service/internal/planner/store"
	gorm_db "task-planner-service/pkg/db"
)

const (
	DefaultKafkaBrokers = "localhost:9092"
	DefaultTaskLogTopic = "task_log_events"
	DefaultGroupID      = "log-writer-group"
)

func main() {
	log.Println("Starting Log Writer Service...")

	gormDB, err := gorm_db.NewGormDB()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	if err := gorm_db.AutoMigrate(gormDB, plannerDB.AllModels()...); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	st := store.NewStore(gormDB)

	kafkaBrokers := os.Getenv("KAFKA_BROKERS")
	if kafkaBrokers == "" {
		kafkaBrokers = DefaultKafkaBrokers
	}
	taskLogTopic := os.Getenv("TASK_LOG_TOPIC")
	if taskLogTopic == "" {
		taskLogTopic = DefaultTaskLogTopic
	}
	groupID := os.Getenv("LOG_GROUP_ID")
	if groupID == "" {
		groupID = DefaultGroupID
	}
	brokerList := strings.Split(kafkaBrokers, ",")
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokerList, GroupID: groupID, Topic: taskLogTopic,
		MinBytes: 10e3, MaxBytes: 10e6, CommitInterval: time.Second, MaxWait: 3 * time.Second,
	})
	defer reader.Close()
	log.Printf("Log Writer Kafka consumer configured for brokers: %s, topic: %s, groupID: %s", kafkaBrokers, taskLogTopic, groupID)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sig := <-signals
		log.Printf("Log Writer: Shutdown signal received (%s). Cancelling context...", sig)
		cancel()
	}()

	log.Println("Log Writer listening for task log events...")
	for {
		select {
		case <-ctx.Done():
			log.Println("Log Writer: Context cancelled. Exiting message loop.")
			return
		default:
			readCtx, readLoopCancel := context.WithTimeout(ctx, 1*time.Second)
			m, err := reader.ReadMessage(readCtx)
			readLoopCancel()
			if err == context.DeadlineExceeded {
				continue
			}
			if err == context.Canceled {
				log.Println("Log Writer: Read context cancelled, likely due to shutdown.")
				continue
			}
			if err == io.EOF {
				log.Println("Log Writer: Kafka reader closed (EOF). Exiting.")
				return
			}
			if err != nil {
				log.Printf("Log Writer: Kafka read error: %v. Retrying...", err)
				time.Sleep(1 * time.Second)
				continue
			}

			var payload events.TaskLogPayload
			if err := json.Unmarshal(m.Value, &payload); err != nil {
				log.Printf("Log Writer: Unmarshal error for log payload: %v. Value: %s", err, string(m.Value))
				continue
			}
			if err := st.AppendLog(ctx, payload.TaskID, payload.Message); err != nil {
				log.Printf("Log Writer: Failed to persist log for task %d: %v", payload.TaskID, err)
				continue
			}
			log.Printf("Log Writer: Appended log for task %d (offset %d)", payload.TaskID, m.Offset)
		}
	}
}
