package queue

import (
	"context"
	"encoding/json"
)

// Job handles one message type.
type Job interface {
	Type() string
	Handle(ctx context.Context, payload json.RawMessage) error
}
