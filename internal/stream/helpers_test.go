package stream

import "github.com/soltixdb/streamwatch/internal/config"

func configForMemory() config.QueueConfig {
	return config.QueueConfig{Type: "memory"}
}
