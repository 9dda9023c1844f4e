package queue

import (
	"context"
	"encoding/json"
	"time"
)

// Publisher enqueues work for a registered job type.
type Publisher interface {
	Enqueue(ctx context.Context, msgType string, payload interface{}) error
}

type Config struct {
	Workers    int
	RetryLimit int
	RetryDelay time.Duration
	// PollInterval bounds how long a worker blocks on an empty queue.
	PollInterval time.Duration
}

// Message is the envelope stored in Redis.
type Message struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempts  int             `json:"attempts"`
	Timestamp time.Time       `json:"timestamp"`
}
