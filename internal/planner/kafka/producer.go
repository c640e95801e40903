package kafka

import (
	"log"
	"os"
	"strings"

	"github.com/segmentio/kafka-go"
)

const (
	DefaultKafkaBrokers = "localhost:9092"
	DefaultTaskLogTopic = "task_log_events"
)

// NewLogProducer builds the kafka writer for task log events. Brokers and
// topic come from KAFKA_BROKERS and TASK_LOG_TOPIC.
func NewLogProducer() *kafka.Writer {
	kafkaBrokers := os.Getenv("KAFKA_BROKERS")
	if kafkaBrokers == "" {
		kafkaBrokers = DefaultKafkaBrokers
	}
	taskLogTopic := os.Getenv("TASK_LOG_TOPIC")
	if taskLogTopic == "" {
		taskLogTopic = DefaultTaskLogTopic
	}
	brokerList := strings.Split(kafkaBrokers, ",")
	producer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      brokerList,
		Topic:        taskLogTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: int(kafka.RequireOne),
		Async:        false,
	})
	log.Printf("Planner Kafka producer configured for topic: %s", taskLogTopic)
	return producer
}
