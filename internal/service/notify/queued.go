package notify

import (
	"context"
	"encoding/json"
	"fmt"

	domrepo "HypeRadar/internal/domain/repository"
	"HypeRadar/pkg/queue"
)

// JobNotifyCritical is the queue message type for critical alerts.
const JobNotifyCritical = "notify_critical"

type criticalPayload struct {
	Tickers    []string `json:"tickers"`
	Recipients []string `json:"recipients,omitempty"`
}

// Queued defers delivery to the job queue so a slow SMTP relay never
// holds up a refresh cycle.
type Queued struct {
	pub queue.Publisher
}

func NewQueued(pub queue.Publisher) *Queued {
	return &Queued{pub: pub}
}

var _ domrepo.Notifier = (*Queued)(nil)

func (q *Queued) NotifyCritical(ctx context.Context, tickers []string, recipients []string) error {
	if len(tickers) == 0 {
		return nil
	}
	if err := q.pub.Enqueue(ctx, JobNotifyCritical, criticalPayload{Tickers: tickers, Recipients: recipients}); err != nil {
		return fmt.Errorf("enqueue %s: %w", JobNotifyCritical, err)
	}
	return nil
}

// CriticalJob is the worker side of Queued.
type CriticalJob struct {
	deliver domrepo.Notifier
}

func NewCriticalJob(deliver domrepo.Notifier) *CriticalJob {
	return &CriticalJob{deliver: deliver}
}

var _ queue.Job = (*CriticalJob)(nil)

func (j *CriticalJob) Type() string { return JobNotifyCritical }

func (j *CriticalJob) Handle(ctx context.Context, payload json.RawMessage) error {
	var p criticalPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode %s payload: %w", JobNotifyCritical, err)
	}
	return j.deliver.NotifyCritical(ctx, p.Tickers, p.Recipients)
}
