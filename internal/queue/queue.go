// Package queue provides message-queue publishers and subscribers used to
// carry measurements into the service and anomaly events out of it.
package queue

import "context"

// Type identifies a queue backend
type Type string

const (
	// TypeNATS represents NATS JetStream queue (default)
	TypeNATS Type = "nats"

	// TypeRedis represents Redis Streams queue
	TypeRedis Type = "redis"

	// TypeKafka represents Apache Kafka queue
	TypeKafka Type = "kafka"

	// TypeMemory represents in-process queue (development and tests)
	TypeMemory Type = "memory"
)

// Publisher publishes messages to a queue
type Publisher interface {
	// Publish publishes a message to a subject/topic
	Publish(ctx context.Context, subject string, data []byte) error

	// PublishBatch publishes multiple messages and waits for all to complete
	// Returns the number of successfully published messages and any error
	PublishBatch(ctx context.Context, messages []BatchMessage) (int, error)

	// Close closes the connection
	Close() error
}

// BatchMessage represents a message for batch publishing
type BatchMessage struct {
	Subject string
	Data    []byte
}

// Subscriber subscribes to messages from a queue
type Subscriber interface {
	// Subscribe subscribes to a subject/topic with a handler. The subscription
	// ends when ctx is cancelled or Unsubscribe is called.
	Subscribe(ctx context.Context, subject string, handler MessageHandler) error

	// Unsubscribe unsubscribes from a subject/topic
	Unsubscribe(subject string) error

	// Close closes the connection
	Close() error
}

// MessageHandler handles incoming messages. Returning an error asks the
// backend to redeliver where it supports redelivery.
type MessageHandler func(ctx context.Context, subject string, data []byte) error

// Queue combines Publisher and Subscriber interfaces
type Queue interface {
	Publisher
	Subscriber
}
