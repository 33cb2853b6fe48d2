package queue

import (
	"testing"

	"github.com/soltixdb/streamwatch/internal/config"
)

func TestNewQueue_Memory(t *testing.T) {
	q, err := NewQueue(config.QueueConfig{Type: "memory"})
	if err != nil {
		t.Fatalf("NewQueue failed: %v", err)
	}
	defer func() { _ = q.Close() }()

	if _, ok := q.(*MemoryQueue); !ok {
		t.Errorf("expected *MemoryQueue, got %T", q)
	}
}

func TestNewQueue_TypeIsCaseInsensitive(t *testing.T) {
	q, err := NewQueue(config.QueueConfig{Type: "MEMORY"})
	if err != nil {
		t.Fatalf("NewQueue failed: %v", err)
	}
	_ = q.Close()
}

func TestNewQueue_NATS(t *testing.T) {
	url := setupTestNATS(t)

	q, err := NewQueue(config.QueueConfig{URL: url})
	if err != nil {
		t.Fatalf("NewQueue failed: %v", err)
	}
	defer func() { _ = q.Close() }()

	if _, ok := q.(*NATSQueue); !ok {
		t.Errorf("expected *NATSQueue for empty type, got %T", q)
	}
}

func TestNewQueue_Unsupported(t *testing.T) {
	if _, err := NewQueue(config.QueueConfig{Type: "rabbitmq"}); err == nil {
		t.Error("expected error for unsupported type")
	}
}

func TestNewQueue_KafkaWithoutBrokers(t *testing.T) {
	if _, err := NewQueue(config.QueueConfig{Type: "kafka"}); err == nil {
		t.Error("expected error without brokers")
	}
}

func TestNewQueue_RedisUnreachable(t *testing.T) {
	if _, err := NewQueue(config.QueueConfig{Type: "redis", URL: "127.0.0.1:1"}); err == nil {
		t.Error("expected error for unreachable redis")
	}
}
