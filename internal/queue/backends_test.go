package queue

import (
	"testing"
	"time"
)

func TestApplyRedisDefaults(t *testing.T) {
	cfg := applyRedisDefaults(RedisConfig{URL: "localhost:6379"})
	if cfg.Stream != "streamwatch" {
		t.Errorf("expected stream prefix streamwatch, got %s", cfg.Stream)
	}
	if cfg.Group != "streamwatch-group" {
		t.Errorf("expected group streamwatch-group, got %s", cfg.Group)
	}
	if cfg.Consumer == "" {
		t.Error("expected consumer name to default")
	}

	q := &RedisQueue{config: cfg}
	if got := q.streamName("measurements"); got != "streamwatch:measurements" {
		t.Errorf("unexpected stream name %s", got)
	}

	custom := applyRedisDefaults(RedisConfig{Stream: "s", Group: "g", Consumer: "c"})
	if custom.Stream != "s" || custom.Group != "g" || custom.Consumer != "c" {
		t.Errorf("explicit values overwritten: %+v", custom)
	}
}

func TestKafkaQueue_Defaults(t *testing.T) {
	q, err := newKafkaQueue(KafkaConfig{Brokers: []string{"localhost:9092"}})
	if err != nil {
		t.Fatalf("newKafkaQueue failed: %v", err)
	}
	defer func() { _ = q.Close() }()

	if q.config.GroupID != "streamwatch-group" {
		t.Errorf("expected default group, got %s", q.config.GroupID)
	}
	if q.config.BatchSize != 100 || q.config.BatchTimeout != 10*time.Millisecond {
		t.Errorf("unexpected batch defaults: %+v", q.config)
	}

	// Writers are created lazily and reused per topic
	w1 := q.writer("topic")
	w2 := q.writer("topic")
	if w1 != w2 {
		t.Error("expected the same writer for a topic")
	}
	if q.Stats("unknown").Writes != 0 {
		t.Error("expected zero stats for unknown topic")
	}
}

func TestKafkaQueue_UnsubscribeUnknown(t *testing.T) {
	q, err := newKafkaQueue(KafkaConfig{Brokers: []string{"localhost:9092"}})
	if err != nil {
		t.Fatalf("newKafkaQueue failed: %v", err)
	}
	defer func() { _ = q.Close() }()

	if err := q.Unsubscribe("nope"); err == nil {
		t.Error("expected error for unknown topic")
	}
}
